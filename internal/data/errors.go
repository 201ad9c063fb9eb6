// internal/data/errors.go
package data

import (
	"errors"
	"strings"
)

// ErrorKind groups errors by how a caller should react to them.
type ErrorKind string

const (
	KindUnknown      ErrorKind = ""
	KindValidation   ErrorKind = "validation"   // bad input, duplicate cart entry, cart full
	KindAvailability ErrorKind = "availability" // no copies left, at add time or at checkout
	KindNotFound     ErrorKind = "not_found"    // missing record or no active loan
	KindConflict     ErrorKind = "conflict"     // unique or referential constraint
	KindAuth         ErrorKind = "auth"         // bad credentials
	KindTransport    ErrorKind = "transport"    // service unreachable
)

// Error is the error type shared by the stores, the circulation workflows
// and the API client. Sentinels are compared with errors.Is.
type Error struct {
	Kind    ErrorKind
	Message string
	Titles  []string // books involved, for availability errors
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Titles) > 0 {
		msg += ": " + strings.Join(e.Titles, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values on kind and message, so a sentinel still
// matches after it has been decorated with titles or a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithTitles returns a copy of e naming the books involved.
func (e *Error) WithTitles(titles ...string) *Error {
	cp := *e
	cp.Titles = titles
	return &cp
}

// KindOf reports the kind of the first *Error found in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// TransportError wraps a network or decoding failure talking to the API.
func TransportError(err error) error {
	return &Error{Kind: KindTransport, Message: ErrUnreachable.Message, Err: err}
}

var (
	// ErrRecordNotFound is returned when a query finds no matching row.
	ErrRecordNotFound = &Error{Kind: KindNotFound, Message: "record not found"}

	ErrNoActiveLoan       = &Error{Kind: KindNotFound, Message: "no active borrow record for this book and student"}
	ErrNotAvailable       = &Error{Kind: KindAvailability, Message: "book is not available"}
	ErrAlreadyBorrowed    = &Error{Kind: KindValidation, Message: "student already has this book on loan"}
	ErrNoBooks            = &Error{Kind: KindValidation, Message: "at least one book must be borrowed"}
	ErrDuplicateBookIDs   = &Error{Kind: KindValidation, Message: "a book may only be borrowed once per checkout"}
	ErrCopiesBelowOnLoan  = &Error{Kind: KindValidation, Message: "copies cannot be lower than the number of copies on loan"}
	ErrDuplicateEmail     = &Error{Kind: KindConflict, Message: "a user with this email address already exists"}
	ErrDuplicateStudentID = &Error{Kind: KindConflict, Message: "a student with this student id already exists"}
	ErrStudentHasLoans    = &Error{Kind: KindConflict, Message: "student still has books on loan"}
	ErrInvalidCredentials = &Error{Kind: KindAuth, Message: "invalid authentication credentials"}
	ErrUnreachable        = &Error{Kind: KindTransport, Message: "library service unreachable"}
)
