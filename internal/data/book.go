// Package data provides the data models and database interaction logic
// for the library management system.
package data

import (
	"math"
	"strings"
	"time"

	"github.com/aoideee/treekings-library/internal/validator"
)

// Status is the denormalized availability label stored with each book.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBorrowed  Status = "borrowed"
)

// Category is a display grouping tag; it says nothing about availability.
type Category string

const (
	CategoryFeatured Category = "featured"
	CategoryPopular  Category = "popular"
	CategoryAll      Category = "all"
)

// Book represents a single catalog title.
// It maps directly to a row in the "books" table.
type Book struct {
	ID              int64     `json:"book_id"`          // Unique identifier assigned by the store
	Title           string    `json:"title"`            // Title of the book
	Author          string    `json:"author"`           // Author shown on the card
	Genre           string    `json:"genre"`            // Genre used by the genre filter
	ISBN            string    `json:"isbn,omitempty"`   // Optional ISBN
	Rating          float64   `json:"rating"`           // 0.0 to 5.0, one decimal
	Category        Category  `json:"category"`         // featured, popular or all
	Copies          int       `json:"copies"`           // Total owned copies, at least 1
	AvailableCopies int       `json:"available_copies"` // Copies not currently on loan
	Status          Status    `json:"status"`           // Derived from AvailableCopies
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Available reports whether at least one copy can be borrowed.
func (b *Book) Available() bool {
	return b.AvailableCopies > 0
}

// OnLoan is the number of copies currently held by students.
func (b *Book) OnLoan() int {
	return b.Copies - b.AvailableCopies
}

// refreshStatus keeps Status in line with AvailableCopies.
func (b *Book) refreshStatus() {
	b.Status = statusFor(b.AvailableCopies)
}

func statusFor(available int) Status {
	if available > 0 {
		return StatusAvailable
	}
	return StatusBorrowed
}

// checkOut takes one copy off the shelf.
func (b *Book) checkOut() {
	b.AvailableCopies--
	b.refreshStatus()
}

// checkIn puts one copy back, never above Copies.
func (b *Book) checkIn() {
	b.AvailableCopies = min(b.AvailableCopies+1, b.Copies)
	b.refreshStatus()
}

// CreateBookInput holds the fields a client must supply when creating a new book.
type CreateBookInput struct {
	Title    string   `json:"title"    validate:"required,max=500"`
	Author   string   `json:"author"   validate:"required,max=500"`
	Genre    string   `json:"genre"    validate:"required,max=100"`
	ISBN     string   `json:"isbn"     validate:"omitempty,max=20"`
	Rating   float64  `json:"rating"   validate:"gte=0,lte=5"`
	Category Category `json:"category" validate:"omitempty,oneof=featured popular all"`
	Copies   int      `json:"copies"   validate:"required,gte=1,lte=10000"`
}

// UpdateBookInput holds the fields a client may supply when partially updating a book.
// Every field is a pointer so we can distinguish between "not provided" (nil)
// and "intentionally set to zero/empty". Only non-nil fields are applied.
type UpdateBookInput struct {
	Title    *string   `json:"title"    validate:"omitempty,min=1,max=500"`
	Author   *string   `json:"author"   validate:"omitempty,min=1,max=500"`
	Genre    *string   `json:"genre"    validate:"omitempty,min=1,max=100"`
	ISBN     *string   `json:"isbn"     validate:"omitempty,max=20"`
	Rating   *float64  `json:"rating"   validate:"omitempty,gte=0,lte=5"`
	Category *Category `json:"category" validate:"omitempty,oneof=featured popular all"`
	Copies   *int      `json:"copies"   validate:"omitempty,gte=1,lte=10000"`
}

// ValidateCreateBook records every problem with input in v.
func ValidateCreateBook(v *validator.Validator, input CreateBookInput) {
	v.Struct(input)
	v.Check(strings.TrimSpace(input.Title) != "", "title", "must be provided")
	v.Check(strings.TrimSpace(input.Author) != "", "author", "must be provided")
}

// ValidateUpdateBook records every problem with input in v.
func ValidateUpdateBook(v *validator.Validator, input UpdateBookInput) {
	v.Struct(input)
	if input.Title != nil {
		v.Check(strings.TrimSpace(*input.Title) != "", "title", "must not be blank")
	}
	if input.Author != nil {
		v.Check(strings.TrimSpace(*input.Author) != "", "author", "must not be blank")
	}
}

// NewBook builds a book with every copy on the shelf.
func NewBook(input CreateBookInput) *Book {
	category := input.Category
	if category == "" {
		category = CategoryAll
	}
	b := &Book{
		Title:           strings.TrimSpace(input.Title),
		Author:          strings.TrimSpace(input.Author),
		Genre:           strings.TrimSpace(input.Genre),
		ISBN:            strings.TrimSpace(input.ISBN),
		Rating:          roundRating(input.Rating),
		Category:        category,
		Copies:          input.Copies,
		AvailableCopies: input.Copies,
	}
	b.refreshStatus()
	return b
}

// apply copies the non-nil fields of input onto b. A change in Copies moves
// AvailableCopies by the same amount; copies already on loan stay on loan.
func (b *Book) apply(input UpdateBookInput) error {
	if input.Copies != nil {
		onLoan := b.OnLoan()
		if *input.Copies < onLoan {
			return ErrCopiesBelowOnLoan
		}
		b.Copies = *input.Copies
		b.AvailableCopies = b.Copies - onLoan
	}
	if input.Title != nil {
		b.Title = strings.TrimSpace(*input.Title)
	}
	if input.Author != nil {
		b.Author = strings.TrimSpace(*input.Author)
	}
	if input.Genre != nil {
		b.Genre = strings.TrimSpace(*input.Genre)
	}
	if input.ISBN != nil {
		b.ISBN = strings.TrimSpace(*input.ISBN)
	}
	if input.Rating != nil {
		b.Rating = roundRating(*input.Rating)
	}
	if input.Category != nil {
		b.Category = *input.Category
	}
	b.refreshStatus()
	return nil
}

func roundRating(r float64) float64 {
	return math.Round(r*10) / 10
}
