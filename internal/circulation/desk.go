package circulation

import (
	"context"
	"strings"
	"time"

	"github.com/aoideee/treekings-library/internal/data"
)

// Desk is the circulation desk: the CatalogService served straight from
// the stores. The API server runs borrow and return requests through it.
type Desk struct {
	models data.Models
	now    func() time.Time
}

// DeskOption configures a Desk.
type DeskOption func(*Desk)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) DeskOption {
	return func(d *Desk) { d.now = now }
}

func NewDesk(models data.Models, opts ...DeskOption) *Desk {
	d := &Desk{models: models, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Desk) ListBooks(ctx context.Context) ([]*data.Book, error) {
	return d.models.Books.List(ctx)
}

func (d *Desk) GetBook(ctx context.Context, id int64) (*data.Book, error) {
	return d.models.Books.Get(ctx, id)
}

// BorrowBooks checks the request the same way a cart would and commits it
// as one store transaction. The due date is exactly LoanPeriod after the
// borrow time.
func (d *Desk) BorrowBooks(ctx context.Context, studentID string, bookIDs []int64) (*data.Receipt, error) {
	studentID = strings.TrimSpace(studentID)
	switch {
	case len(bookIDs) == 0:
		return nil, data.ErrNoBooks
	case len(bookIDs) > MaxCartSize:
		return nil, ErrCartFull
	}

	if _, err := d.models.Students.Get(ctx, studentID); err != nil {
		return nil, err
	}

	// PostgreSQL keeps microseconds; truncate so the receipt matches what is stored.
	at := d.now().UTC().Truncate(time.Microsecond)
	return d.models.Loans.Borrow(ctx, studentID, bookIDs, at)
}

// ReturnBook is the return workflow: it removes the student's loan of the
// book and puts the copy back.
func (d *Desk) ReturnBook(ctx context.Context, bookID int64, studentID string) (*data.Book, error) {
	return d.models.Loans.Return(ctx, bookID, strings.TrimSpace(studentID))
}

// ActiveLoan pairs a loan with its book for the "borrowed by you" view.
type ActiveLoan struct {
	data.Loan
	Book *data.Book `json:"book"`
}

// ActiveLoans lists the student's current loans with their books.
func (d *Desk) ActiveLoans(ctx context.Context, studentID string) ([]ActiveLoan, error) {
	loans, err := d.models.Loans.ForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := make([]ActiveLoan, 0, len(loans))
	for _, loan := range loans {
		book, err := d.models.Books.Get(ctx, loan.BookID)
		if err != nil {
			return nil, err
		}
		out = append(out, ActiveLoan{Loan: *loan, Book: book})
	}
	return out, nil
}

// Stats are the totals shown on the admin dashboard.
type Stats struct {
	TotalBooks     int `json:"total_books"`
	AvailableBooks int `json:"available_books"`
	TotalCopies    int `json:"total_copies"`
	CopiesOnLoan   int `json:"copies_on_loan"`
	TotalStudents  int `json:"total_students"`
	ActiveStudents int `json:"active_students"`
	ActiveLoans    int `json:"active_loans"`
}

func (d *Desk) Stats(ctx context.Context) (Stats, error) {
	var s Stats

	books, err := d.models.Books.List(ctx)
	if err != nil {
		return s, err
	}
	s.TotalBooks = len(books)
	for _, b := range books {
		if b.Available() {
			s.AvailableBooks++
		}
		s.TotalCopies += b.Copies
		s.CopiesOnLoan += b.OnLoan()
	}

	if s.TotalStudents, s.ActiveStudents, err = d.models.Students.Count(ctx); err != nil {
		return s, err
	}
	if s.ActiveLoans, err = d.models.Loans.CountActive(ctx); err != nil {
		return s, err
	}
	return s, nil
}
