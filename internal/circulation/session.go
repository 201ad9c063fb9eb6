// Package circulation holds the borrowing workflows: staging books in a
// cart, checking them out as one unit, and returning them.
package circulation

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/aoideee/treekings-library/internal/data"
)

// MaxCartSize is the most books one checkout may hold.
const MaxCartSize = 5

// CatalogService is what the workflows need from the library backend.
// Desk serves it from the stores; the API client serves it over HTTP.
type CatalogService interface {
	ListBooks(ctx context.Context) ([]*data.Book, error)
	GetBook(ctx context.Context, id int64) (*data.Book, error)
	BorrowBooks(ctx context.Context, studentID string, bookIDs []int64) (*data.Receipt, error)
	ReturnBook(ctx context.Context, bookID int64, studentID string) (*data.Book, error)
}

// State is where a Session is in the checkout flow.
type State int

const (
	StateEmpty State = iota
	StateStaged
	StatePendingConfirmation
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateStaged:
		return "staged"
	case StatePendingConfirmation:
		return "pending_confirmation"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// CartItem is the book as it looked when it was added.
type CartItem struct {
	Book    data.Book `json:"book"`
	AddedAt time.Time `json:"added_at"`
}

// Summary is kept after a successful checkout until it is acknowledged.
type Summary struct {
	Titles  []string      `json:"titles"`
	DueDate time.Time     `json:"due_date"`
	Receipt *data.Receipt `json:"receipt"`
}

// Session is one student's cart and checkout flow. It replaces any
// process-wide cart: callers create one per student and pass it around.
// A Session must not be used from more than one goroutine at a time.
type Session struct {
	studentID string
	svc       CatalogService
	now       func() time.Time
	items     []CartItem
	state     State
	summary   *Summary
}

func NewSession(studentID string, svc CatalogService) *Session {
	return &Session{studentID: studentID, svc: svc, now: time.Now}
}

func (s *Session) StudentID() string { return s.studentID }
func (s *Session) State() State      { return s.state }
func (s *Session) Len() int          { return len(s.items) }

// Items returns a copy of the cart in the order books were added.
func (s *Session) Items() []CartItem {
	return slices.Clone(s.items)
}

// BookIDs returns the ids of the books in the cart.
func (s *Session) BookIDs() []int64 {
	ids := make([]int64, len(s.items))
	for i, item := range s.items {
		ids[i] = item.Book.ID
	}
	return ids
}

// Summary returns the last checkout summary, or nil.
func (s *Session) Summary() *Summary { return s.summary }

func (s *Session) contains(bookID int64) bool {
	return slices.ContainsFunc(s.items, func(item CartItem) bool { return item.Book.ID == bookID })
}

// Add stages book. The checks run in order and the first failure wins:
// no copies left, already in the cart, cart full.
func (s *Session) Add(book *data.Book) error {
	if s.state != StateEmpty && s.state != StateStaged {
		return ErrInvalidState
	}
	if book.AvailableCopies <= 0 {
		return data.ErrNotAvailable.WithTitles(book.Title)
	}
	if s.contains(book.ID) {
		return ErrAlreadyInCart.WithTitles(book.Title)
	}
	if len(s.items) >= MaxCartSize {
		return ErrCartFull
	}

	s.items = append(s.items, CartItem{Book: *book, AddedAt: s.now()})
	s.state = StateStaged
	return nil
}

// Remove takes a book out of the cart.
func (s *Session) Remove(bookID int64) error {
	if s.state != StateEmpty && s.state != StateStaged {
		return ErrInvalidState
	}
	if !s.contains(bookID) {
		return ErrNotInCart
	}

	s.items = slices.DeleteFunc(s.items, func(item CartItem) bool { return item.Book.ID == bookID })
	if len(s.items) == 0 {
		s.state = StateEmpty
	}
	return nil
}

// Checkout re-checks every cart item against the live catalog, not the
// snapshot taken at add time. Only the cart's books are fetched. If any
// book has no copies left, or is gone, the whole checkout is refused and
// the cart stays as it was.
func (s *Session) Checkout(ctx context.Context) error {
	switch s.state {
	case StateEmpty:
		return ErrCartEmpty
	case StateStaged:
	default:
		return ErrInvalidState
	}

	live := make([]*data.Book, len(s.items))
	var unavailable []string
	for i, item := range s.items {
		b, err := s.svc.GetBook(ctx, item.Book.ID)
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			unavailable = append(unavailable, item.Book.Title)
			continue
		case err != nil:
			return err
		}
		if b.AvailableCopies <= 0 {
			unavailable = append(unavailable, item.Book.Title)
		}
		live[i] = b
	}
	if len(unavailable) > 0 {
		return ErrNoLongerAvailable.WithTitles(unavailable...)
	}

	for i := range s.items {
		s.items[i].Book = *live[i]
	}
	s.state = StatePendingConfirmation
	return nil
}

// Cancel leaves the confirmation step with the cart untouched.
func (s *Session) Cancel() error {
	if s.state != StatePendingConfirmation {
		return ErrInvalidState
	}
	s.state = StateStaged
	return nil
}

// Confirm borrows every book in the cart in one backend call. On failure
// nothing is borrowed, the error is returned and the cart goes back to
// staged so it can be fixed or retried.
func (s *Session) Confirm(ctx context.Context) (*Summary, error) {
	if s.state != StatePendingConfirmation {
		return nil, ErrInvalidState
	}

	receipt, err := s.svc.BorrowBooks(ctx, s.studentID, s.BookIDs())
	if err != nil {
		s.state = StateStaged
		return nil, err
	}

	s.summary = &Summary{Titles: receipt.Titles(), DueDate: receipt.DueDate, Receipt: receipt}
	s.items = nil
	s.state = StateCompleted
	return s.summary, nil
}

// Acknowledge dismisses the checkout summary and starts a new cart.
func (s *Session) Acknowledge() error {
	if s.state != StateCompleted {
		return ErrInvalidState
	}
	s.summary = nil
	s.state = StateEmpty
	return nil
}

// Return gives back one copy of bookID held by the session's student. It
// does not touch the cart.
func (s *Session) Return(ctx context.Context, bookID int64) (*data.Book, error) {
	return s.svc.ReturnBook(ctx, bookID, s.studentID)
}
