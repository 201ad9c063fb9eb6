package data

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // register the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	dialectPostgres = "postgres"
	tableBooks      = "books"
	colBookID       = "book_id"
)

// bookColumns lists the books columns in the order scanBook expects them.
var bookColumns = []any{
	"book_id", "title", "author", "genre", "isbn", "rating", "category",
	"copies", "available_copies", "status", "created_at", "updated_at",
}

const selectBook = `
	SELECT book_id, title, author, genre, isbn, rating, category,
	       copies, available_copies, status, created_at, updated_at
	FROM books`

// BookSortSafeList holds the sort values accepted by GET /v1/books.
var BookSortSafeList = []string{
	"book_id", "title", "author", "genre", "rating",
	"-book_id", "-title", "-author", "-genre", "-rating",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanBook reads one books row; extra destinations are scanned first.
func scanBook(row rowScanner, book *Book, extra ...any) error {
	dest := append(extra,
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Genre,
		&book.ISBN,
		&book.Rating,
		&book.Category,
		&book.Copies,
		&book.AvailableCopies,
		&book.Status,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	return row.Scan(dest...)
}

// BookModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and deleting book records.
type BookModel struct {
	DB *sql.DB // Shared database connection pool
}

// Insert adds a new book record to the database.
// After a successful insert, the database-assigned book_id, created_at, and
// updated_at values are written back into the book struct.
func (m BookModel) Insert(ctx context.Context, book *Book) error {
	query := `
		INSERT INTO books (title, author, genre, isbn, rating, category, copies, available_copies, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING book_id, created_at, updated_at`

	book.refreshStatus()
	return m.DB.QueryRowContext(ctx, query,
		book.Title,
		book.Author,
		book.Genre,
		book.ISBN,
		book.Rating,
		book.Category,
		book.Copies,
		book.AvailableCopies,
		book.Status,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
}

// Get retrieves a single book by its primary key.
// Returns ErrRecordNotFound if no book with the given id exists.
func (m BookModel) Get(ctx context.Context, id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	var book Book
	err := scanBook(m.DB.QueryRowContext(ctx, selectBook+` WHERE book_id = $1`, id), &book)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &book, nil
}

// GetAll retrieves a paginated, sorted list of books.
// It uses a COUNT(*) OVER() window function so only one round-trip is needed.
func (m BookModel) GetAll(ctx context.Context, genre string, filters Filters) ([]*Book, Metadata, error) {
	query, args, err := buildBookPageQuery(genre, filters)
	if err != nil {
		return nil, Metadata{}, err
	}

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	books := []*Book{}
	for rows.Next() {
		var book Book
		if err := scanBook(rows, &book, &totalRecords); err != nil {
			return nil, Metadata{}, err
		}
		books = append(books, &book)
	}
	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	return books, calculateMetadata(totalRecords, filters.Page, filters.PageSize), nil
}

// buildBookPageQuery renders the GetAll statement. The sort column only
// ever comes from the safelist.
func buildBookPageQuery(genre string, filters Filters) (string, []any, error) {
	column := filters.sortColumn(colBookID)
	var order exp.OrderedExpression = goqu.I(column).Asc()
	if filters.sortDescending() {
		order = goqu.I(column).Desc()
	}

	ds := goqu.Dialect(dialectPostgres).
		From(tableBooks).
		Select(append([]any{goqu.L("count(*) OVER()")}, bookColumns...)...).
		Order(order, goqu.I(colBookID).Asc()).
		Limit(uint(filters.limit())).
		Offset(uint(filters.offset()))

	if genre != "" {
		ds = ds.Where(goqu.Ex{"genre": genre})
	}

	return ds.Prepared(true).ToSQL()
}

// List returns the whole catalog in insertion order.
func (m BookModel) List(ctx context.Context) ([]*Book, error) {
	rows, err := m.DB.QueryContext(ctx, selectBook+` ORDER BY book_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []*Book{}
	for rows.Next() {
		var book Book
		if err := scanBook(rows, &book); err != nil {
			return nil, err
		}
		books = append(books, &book)
	}
	return books, rows.Err()
}

// Update locks the row, applies input and writes the result back.
func (m BookModel) Update(ctx context.Context, id int64, input UpdateBookInput) (book *Book, err error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	book = &Book{}
	err = scanBook(tx.QueryRowContext(ctx, selectBook+` WHERE book_id = $1 FOR UPDATE`, id), book)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if err = book.apply(input); err != nil {
		return nil, err
	}

	query := `
		UPDATE books
		SET title = $1, author = $2, genre = $3, isbn = $4, rating = $5, category = $6,
		    copies = $7, available_copies = $8, status = $9, updated_at = NOW()
		WHERE book_id = $10
		RETURNING updated_at`

	err = tx.QueryRowContext(ctx, query,
		book.Title,
		book.Author,
		book.Genre,
		book.ISBN,
		book.Rating,
		book.Category,
		book.Copies,
		book.AvailableCopies,
		book.Status,
		book.ID,
	).Scan(&book.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes the book with the given id from the database.
// Active loans on the book are removed with it.
// Returns ErrRecordNotFound if no matching record exists.
func (m BookModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	result, err := m.DB.ExecContext(ctx, `DELETE FROM books WHERE book_id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
