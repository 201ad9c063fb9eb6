package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aoideee/treekings-library/internal/data"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#166534")
	colorBorder  = lipgloss.Color("#4B5563")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	sectionStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).MarginTop(1)
	headerStyle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2)
)

var errStudentRequired = errors.New("a student id is required: pass --student or set LIBRARY_STUDENT")

// dateLayout is how due dates are shown to people.
const dateLayout = "Mon 2 Jan 2006"

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render("✓ ")+fmt.Sprintf(format, args...))
}

func warning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warningStyle.Render("⚠ ")+fmt.Sprintf(format, args...))
}

func muted(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w, sectionStyle.Render(title))
}

// renderError turns an error into the line shown on stderr. Availability
// errors list the books involved.
func renderError(err error) string {
	var libErr *data.Error
	if errors.As(err, &libErr) {
		switch libErr.Kind {
		case data.KindAvailability:
			msg := strings.ToUpper(libErr.Message[:1]) + libErr.Message[1:]
			if len(libErr.Titles) > 0 {
				msg += ":\n  • " + strings.Join(libErr.Titles, "\n  • ")
			}
			return errorStyle.Render("✗ ") + msg
		case data.KindTransport:
			return errorStyle.Render("✗ ") + "Failed to connect to the library service. Is the API running?"
		}
	}
	return errorStyle.Render("✗ ") + err.Error()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func booksTable(books []*data.Book) string {
	t := newTable("ID", "Title", "Author", "Genre", "Rating", "Available", "Status")
	for _, b := range books {
		t.Row(
			strconv.FormatInt(b.ID, 10),
			b.Title,
			b.Author,
			b.Genre,
			stars(b.Rating),
			fmt.Sprintf("%d/%d", b.AvailableCopies, b.Copies),
			string(b.Status),
		)
	}
	return t.String()
}

// stars renders a rating as "★★★★½ 4.5".
func stars(rating float64) string {
	half := int(rating*2 + 0.5)
	s := strings.Repeat("★", half/2)
	if half%2 == 1 {
		s += "½"
	}
	return fmt.Sprintf("%s %.1f", s, rating)
}

func formatDate(t time.Time) string {
	return t.Local().Format(dateLayout)
}
