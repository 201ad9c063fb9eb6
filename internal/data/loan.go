package data

import "time"

// LoanPeriod is the fixed borrowing window. There is no renewal.
const LoanPeriod = 14 * 24 * time.Hour

// Loan is one student's hold on one copy of one book (a borrow record).
// It exists from checkout until the copy is returned.
type Loan struct {
	ID         int64     `json:"loan_id"`
	StudentID  string    `json:"student_id"`
	BookID     int64     `json:"book_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueDate    time.Time `json:"due_date"`
}

// DueDate returns the due date of a loan started at borrowedAt.
func DueDate(borrowedAt time.Time) time.Time {
	return borrowedAt.Add(LoanPeriod)
}

// Receipt is the outcome of a committed checkout.
type Receipt struct {
	StudentID  string    `json:"student_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueDate    time.Time `json:"due_date"`
	Books      []*Book   `json:"books"`
	Loans      []*Loan   `json:"loans"`
}

// Titles lists the borrowed titles in checkout order.
func (r *Receipt) Titles() []string {
	titles := make([]string, 0, len(r.Books))
	for _, b := range r.Books {
		titles = append(titles, b.Title)
	}
	return titles
}

// checkBorrowable verifies a locked set of books for one checkout.
// books is keyed by id; held holds the ids the student already has on loan.
// Availability is checked first and lists every book with no copies left;
// only then is a book the student already holds refused.
func checkBorrowable(bookIDs []int64, books map[int64]*Book, held map[int64]bool) error {
	var unavailable []string
	for _, id := range bookIDs {
		b, ok := books[id]
		if !ok {
			return ErrRecordNotFound
		}
		if !b.Available() {
			unavailable = append(unavailable, b.Title)
		}
	}
	if len(unavailable) > 0 {
		return ErrNotAvailable.WithTitles(unavailable...)
	}

	for _, id := range bookIDs {
		if held[id] {
			return ErrAlreadyBorrowed.WithTitles(books[id].Title)
		}
	}
	return nil
}

func hasDuplicates(ids []int64) bool {
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}
