// internal/data/models.go
package data

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/aoideee/treekings-library/internal/validator"
)

// BookStore is the Book Catalog Store.
type BookStore interface {
	Insert(ctx context.Context, book *Book) error
	Get(ctx context.Context, id int64) (*Book, error)
	// GetAll returns one page of the catalog; an empty genre matches every book.
	GetAll(ctx context.Context, genre string, filters Filters) ([]*Book, Metadata, error)
	// List returns the whole catalog in insertion order.
	List(ctx context.Context) ([]*Book, error)
	// Update applies input under a lock on the row so a concurrent
	// borrow cannot be lost.
	Update(ctx context.Context, id int64, input UpdateBookInput) (*Book, error)
	Delete(ctx context.Context, id int64) error
}

// LoanStore is the Borrow Ledger. Borrow and Return change the ledger and
// the books' available copies together or not at all.
type LoanStore interface {
	Borrow(ctx context.Context, studentID string, bookIDs []int64, at time.Time) (*Receipt, error)
	Return(ctx context.Context, bookID int64, studentID string) (*Book, error)
	ForStudent(ctx context.Context, studentID string) ([]*Loan, error)
	CountActive(ctx context.Context) (int, error)
}

type StudentStore interface {
	Insert(ctx context.Context, student *Student) error
	Get(ctx context.Context, studentID string) (*Student, error)
	GetAll(ctx context.Context, filters Filters) ([]*Student, Metadata, error)
	Update(ctx context.Context, studentID string, input UpdateStudentInput) (*Student, error)
	Delete(ctx context.Context, studentID string) error
	// Count returns the number of students and how many of them are active.
	Count(ctx context.Context) (total, active int, err error)
}

type UserStore interface {
	// Register stores user and, for students, the linked student record.
	Register(ctx context.Context, user *User, student *Student) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	Count(ctx context.Context) (int, error)
}

// Models is a top-level container that groups all store types together.
// It is passed around the application via applicationDependencies so every handler
// has access to storage without importing sql directly.
type Models struct {
	Books    BookStore
	Loans    LoanStore
	Students StudentStore
	Users    UserStore
}

// NewModels constructs Models backed by the given PostgreSQL connection pool.
// Call this once during application startup and store the result in applicationDependencies.
func NewModels(db *sql.DB, logger *slog.Logger) Models {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return Models{
		Books:    BookModel{DB: db},
		Loans:    LoanModel{DB: db, Logger: logger},
		Students: StudentModel{DB: db},
		Users:    UserModel{DB: db},
	}
}

// Filters holds pagination and sorting parameters extracted from URL query strings.
type Filters struct {
	Page         int      // Current page number (1-indexed)
	PageSize     int      // Number of records per page
	Sort         string   // Column name to sort by (prefix with "-" for DESC)
	SortSafeList []string // Allowed sort values to prevent SQL injection
}

// ValidateFilters checks the paging bounds and that Sort is on the safelist.
func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(f.PageSize <= 100, "page_size", "must be a maximum of 100")
	v.Check(validator.In(f.Sort, f.SortSafeList...), "sort", "invalid sort value")
}

// sortColumn returns the validated column name for ORDER BY, or fallback
// when Sort is not on the safelist.
func (f Filters) sortColumn(fallback string) string {
	for _, safe := range f.SortSafeList {
		if f.Sort == safe {
			return strings.TrimPrefix(f.Sort, "-")
		}
	}
	return fallback
}

// sortDescending reports whether the Sort value carries the "-" prefix.
func (f Filters) sortDescending() bool {
	return strings.HasPrefix(f.Sort, "-")
}

// limit returns the SQL LIMIT value derived from PageSize.
func (f Filters) limit() int { return f.PageSize }

// offset returns the SQL OFFSET value derived from Page and PageSize.
func (f Filters) offset() int { return (f.Page - 1) * f.PageSize }

// Metadata contains pagination information returned alongside list responses.
type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

// calculateMetadata computes page metadata from total record count and filter values.
func calculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}
