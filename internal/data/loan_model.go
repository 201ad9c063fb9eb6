package data

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// pqError returns the *pq.Error in err's chain, if any.
func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// LoanModel is the PostgreSQL Borrow Ledger.
type LoanModel struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// Borrow commits one checkout in a single transaction. The books rows are
// locked in id order, so two checkouts racing for the last copy of a book
// are serialized and the second one sees no copies left.
func (m LoanModel) Borrow(ctx context.Context, studentID string, bookIDs []int64, at time.Time) (receipt *Receipt, err error) {
	if len(bookIDs) == 0 {
		return nil, ErrNoBooks
	}
	if hasDuplicates(bookIDs) {
		return nil, ErrDuplicateBookIDs
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

	books, err := lockBooks(ctx, tx, bookIDs)
	if err != nil {
		return nil, err
	}

	held, err := heldBooks(ctx, tx, studentID, bookIDs)
	if err != nil {
		return nil, err
	}

	if err = checkBorrowable(bookIDs, books, held); err != nil {
		return nil, err
	}

	receipt = &Receipt{StudentID: studentID, BorrowedAt: at, DueDate: DueDate(at)}
	for _, id := range bookIDs {
		book := books[id]
		book.checkOut()

		err = tx.QueryRowContext(ctx,
			`UPDATE books SET available_copies = $1, status = $2, updated_at = NOW()
			 WHERE book_id = $3
			 RETURNING updated_at`,
			book.AvailableCopies, book.Status, book.ID,
		).Scan(&book.UpdatedAt)
		if err != nil {
			return nil, err
		}

		loan := &Loan{StudentID: studentID, BookID: id, BorrowedAt: at, DueDate: receipt.DueDate}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO loans (student_id, book_id, borrowed_at, due_date)
			 VALUES ($1, $2, $3, $4)
			 RETURNING loan_id`,
			loan.StudentID, loan.BookID, loan.BorrowedAt, loan.DueDate,
		).Scan(&loan.ID)
		if err != nil {
			if pqErr, ok := pqError(err); ok {
				switch string(pqErr.Code) {
				case pqForeignKeyViolation:
					err = ErrRecordNotFound
				case pqUniqueViolation:
					err = ErrAlreadyBorrowed.WithTitles(book.Title)
				}
			}
			return nil, err
		}

		receipt.Books = append(receipt.Books, book)
		receipt.Loans = append(receipt.Loans, loan)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	m.Logger.Info("books borrowed",
		slog.String("student_id", studentID),
		slog.Any("book_ids", bookIDs),
		slog.Time("due_date", receipt.DueDate),
	)
	return receipt, nil
}

// lockBooks reads and locks the requested books, keyed by id.
func lockBooks(ctx context.Context, tx *sql.Tx, bookIDs []int64) (map[int64]*Book, error) {
	rows, err := tx.QueryContext(ctx,
		selectBook+` WHERE book_id = ANY($1) ORDER BY book_id FOR UPDATE`,
		pq.Array(bookIDs),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make(map[int64]*Book, len(bookIDs))
	for rows.Next() {
		var book Book
		if err := scanBook(rows, &book); err != nil {
			return nil, err
		}
		books[book.ID] = &book
	}
	return books, rows.Err()
}

// heldBooks returns which of bookIDs the student already has on loan.
func heldBooks(ctx context.Context, tx *sql.Tx, studentID string, bookIDs []int64) (map[int64]bool, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT book_id FROM loans WHERE student_id = $1 AND book_id = ANY($2)`,
		studentID, pq.Array(bookIDs),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	held := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		held[id] = true
	}
	return held, rows.Err()
}

// Return removes the student's loan of the book and puts the copy back on
// the shelf, in one transaction.
func (m LoanModel) Return(ctx context.Context, bookID int64, studentID string) (book *Book, err error) {
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
	err = scanBook(tx.QueryRowContext(ctx, selectBook+` WHERE book_id = $1 FOR UPDATE`, bookID), book)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveLoan
		}
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM loans WHERE book_id = $1 AND student_id = $2`,
		bookID, studentID,
	)
	if err != nil {
		return nil, err
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, ErrNoActiveLoan
	}

	book.checkIn()
	err = tx.QueryRowContext(ctx,
		`UPDATE books SET available_copies = $1, status = $2, updated_at = NOW()
		 WHERE book_id = $3
		 RETURNING updated_at`,
		book.AvailableCopies, book.Status, book.ID,
	).Scan(&book.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	m.Logger.Info("book returned",
		slog.String("student_id", studentID),
		slog.Int64("book_id", bookID),
		slog.Int("available_copies", book.AvailableCopies),
	)
	return book, nil
}

// ForStudent lists the student's active loans, oldest first.
func (m LoanModel) ForStudent(ctx context.Context, studentID string) ([]*Loan, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT loan_id, student_id, book_id, borrowed_at, due_date
		FROM loans
		WHERE student_id = $1
		ORDER BY borrowed_at, loan_id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []*Loan{}
	for rows.Next() {
		var loan Loan
		if err := rows.Scan(&loan.ID, &loan.StudentID, &loan.BookID, &loan.BorrowedAt, &loan.DueDate); err != nil {
			return nil, err
		}
		loans = append(loans, &loan)
	}
	return loans, rows.Err()
}

func (m LoanModel) CountActive(ctx context.Context) (int, error) {
	var n int
	err := m.DB.QueryRowContext(ctx, `SELECT count(*) FROM loans`).Scan(&n)
	return n, err
}
