package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aoideee/treekings-library/internal/circulation"
	"github.com/aoideee/treekings-library/internal/data"
)

func parseBookIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid book id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *cli) borrowCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "borrow BOOK_ID...",
		Short: "Borrow up to five books in one checkout",
		Long: `Stage the given books in a cart, check that they are all still
available and borrow them together. Every book is due back 14 days
from now. Nothing is borrowed unless every book can be.`,
		Args: cobra.RangeArgs(1, circulation.MaxCartSize),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireStudent(); err != nil {
				return err
			}
			ids, err := parseBookIDs(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			session := circulation.NewSession(c.studentID, c.api)
			for _, id := range ids {
				book, err := c.api.GetBook(ctx, id)
				if err != nil {
					return fmt.Errorf("book %d: %w", id, err)
				}
				if err := session.Add(book); err != nil {
					return err
				}
			}

			if err := session.Checkout(ctx); err != nil {
				return err
			}

			if !c.jsonOut {
				c.renderPending(session)
			}
			if !yes && !c.confirm(fmt.Sprintf("Borrow %d book(s)? [y/N] ", session.Len())) {
				_ = session.Cancel()
				muted(c.out, "Checkout cancelled. Nothing was borrowed.")
				return nil
			}

			summary, err := session.Confirm(ctx)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(summary)
			}
			c.renderSummary(summary)
			return session.Acknowledge()
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// confirm asks prompt on the output and reads a yes or no answer.
func (c *cli) confirm(prompt string) bool {
	fmt.Fprint(c.out, prompt)
	answer, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (c *cli) renderPending(session *circulation.Session) {
	var b strings.Builder
	b.WriteString(sectionStyle.UnsetMarginTop().Render("Confirm checkout") + "\n\n")
	for _, item := range session.Items() {
		fmt.Fprintf(&b, "• %s by %s\n", item.Book.Title, item.Book.Author)
	}
	fmt.Fprintf(&b, "\nDue back %s", formatDate(data.DueDate(time.Now())))
	fmt.Fprintln(c.out, summaryStyle.Render(b.String()))
}

func (c *cli) renderSummary(summary *circulation.Summary) {
	var b strings.Builder
	b.WriteString(successStyle.Render("Checkout complete") + "\n\n")
	for _, title := range summary.Titles {
		fmt.Fprintf(&b, "• %s\n", title)
	}
	fmt.Fprintf(&b, "\nDue back %s", formatDate(summary.DueDate))
	fmt.Fprintln(c.out, summaryStyle.Render(b.String()))
}

func (c *cli) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return BOOK_ID",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireStudent(); err != nil {
				return err
			}
			ids, err := parseBookIDs(args)
			if err != nil {
				return err
			}

			book, err := c.api.ReturnBook(cmd.Context(), ids[0], c.studentID)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(book)
			}
			success(c.out, "Returned %q. %d of %d copies on the shelf.", book.Title, book.AvailableCopies, book.Copies)
			return nil
		},
	}
}

func (c *cli) loansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loans",
		Short: "List the books a student has borrowed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireStudent(); err != nil {
				return err
			}

			loans, err := c.api.ActiveLoans(cmd.Context(), c.studentID)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(loans)
			}

			section(c.out, "Borrowed books")
			if len(loans) == 0 {
				muted(c.out, "No books on loan.")
				return nil
			}

			now := time.Now()
			t := newTable("ID", "Title", "Borrowed", "Due")
			for _, loan := range loans {
				due := formatDate(loan.DueDate)
				if now.After(loan.DueDate) {
					due = warningStyle.Render(due + " (overdue)")
				}
				t.Row(strconv.FormatInt(loan.BookID, 10), loan.Book.Title, formatDate(loan.BorrowedAt), due)
			}
			fmt.Fprintln(c.out, t.String())
			return nil
		},
	}
}
