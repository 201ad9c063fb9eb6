package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestModels returns a memory store with two students and three books:
// "Dune" (2 copies), "Emma" (1 copy) and "Ulysses" (1 copy).
func newTestModels(t *testing.T) (Models, []*Book) {
	t.Helper()
	ctx := context.Background()
	models := NewMemoryModels(nil)

	for _, id := range []string{"S1", "S2"} {
		require.NoError(t, models.Students.Insert(ctx, NewStudent(CreateStudentInput{
			StudentID:  id,
			Name:       "Student " + id,
			Email:      id + "@treekings.edu",
			Department: "Arts",
			YearLevel:  1,
		})))
	}

	var books []*Book
	for _, in := range []CreateBookInput{
		{Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", Rating: 4.4, Copies: 2},
		{Title: "Emma", Author: "Jane Austen", Genre: "Romance", Rating: 3.6, Copies: 1},
		{Title: "Ulysses", Author: "James Joyce", Genre: "Classic", Rating: 2.2, Copies: 1},
	} {
		b := NewBook(in)
		require.NoError(t, models.Books.Insert(ctx, b))
		books = append(books, b)
	}
	return models, books
}

var borrowAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func TestMemoryBorrow(t *testing.T) {
	ctx := context.Background()
	models, books := newTestModels(t)

	receipt, err := models.Loans.Borrow(ctx, "S1", []int64{books[0].ID, books[1].ID}, borrowAt)
	require.NoError(t, err)

	assert.Equal(t, borrowAt.Add(14*24*time.Hour), receipt.DueDate)
	assert.Equal(t, []string{"Dune", "Emma"}, receipt.Titles())
	require.Len(t, receipt.Loans, 2)
	for _, loan := range receipt.Loans {
		assert.Equal(t, receipt.DueDate, loan.DueDate)
		assert.Equal(t, "S1", loan.StudentID)
	}

	dune, err := models.Books.Get(ctx, books[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, dune.AvailableCopies)
	assert.Equal(t, StatusAvailable, dune.Status)

	emma, err := models.Books.Get(ctx, books[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, emma.AvailableCopies)
	assert.Equal(t, StatusBorrowed, emma.Status)

	active, err := models.Loans.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, active)
}

func TestMemoryBorrowIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	models, books := newTestModels(t)

	_, err := models.Loans.Borrow(ctx, "S2", []int64{books[1].ID}, borrowAt)
	require.NoError(t, err)

	_, err = models.Loans.Borrow(ctx, "S1", []int64{books[0].ID, books[1].ID, books[2].ID}, borrowAt)
	require.ErrorIs(t, err, ErrNotAvailable)

	var libErr *Error
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, []string{"Emma"}, libErr.Titles)

	for _, id := range []int64{books[0].ID, books[2].ID} {
		b, err := models.Books.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, b.Copies, b.AvailableCopies, "book %q must be untouched", b.Title)
	}

	loans, err := models.Loans.ForStudent(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestMemoryBorrowRejects(t *testing.T) {
	ctx := context.Background()
	models, books := newTestModels(t)

	_, err := models.Loans.Borrow(ctx, "S1", []int64{books[0].ID}, borrowAt)
	require.NoError(t, err)

	tests := []struct {
		name      string
		studentID string
		bookIDs   []int64
		want      error
	}{
		{"no books", "S1", nil, ErrNoBooks},
		{"duplicate ids", "S2", []int64{books[2].ID, books[2].ID}, ErrDuplicateBookIDs},
		{"unknown student", "S9", []int64{books[2].ID}, ErrRecordNotFound},
		{"unknown book", "S2", []int64{books[2].ID, 999}, ErrRecordNotFound},
		{"already held", "S1", []int64{books[2].ID, books[0].ID}, ErrAlreadyBorrowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := models.Loans.Borrow(ctx, tt.studentID, tt.bookIDs, borrowAt)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	ulysses, err := models.Books.Get(ctx, books[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ulysses.AvailableCopies)
}

// A held book with no copies left is reported as unavailable, together
// with every other empty book in the request.
func TestMemoryBorrowAvailabilityBeforeHeld(t *testing.T) {
	ctx := context.Background()
	models, books := newTestModels(t)

	_, err := models.Loans.Borrow(ctx, "S1", []int64{books[1].ID}, borrowAt)
	require.NoError(t, err)
	_, err = models.Loans.Borrow(ctx, "S2", []int64{books[2].ID}, borrowAt)
	require.NoError(t, err)

	_, err = models.Loans.Borrow(ctx, "S1", []int64{books[0].ID, books[1].ID, books[2].ID}, borrowAt)
	require.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, KindAvailability, KindOf(err))

	var libErr *Error
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, []string{"Emma", "Ulysses"}, libErr.Titles)

	dune, err := models.Books.Get(ctx, books[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, dune.AvailableCopies)
}

func TestMemoryReturn(t *testing.T) {
	ctx := context.Background()
	models, books := newTestModels(t)
	emma := books[1]

	_, err := models.Loans.Return(ctx, emma.ID, "S1")
	require.ErrorIs(t, err, ErrNoActiveLoan)

	_, err = models.Loans.Borrow(ctx, "S1", []int64{emma.ID}, borrowAt)
	require.NoError(t, err)

	_, err = models.Loans.Return(ctx, emma.ID, "S2")
	require.ErrorIs(t, err, ErrNoActiveLoan, "only the borrower can return")

	got, err := models.Loans.Return(ctx, emma.ID, "S1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)
	assert.Equal(t, StatusAvailable, got.Status)

	_, err = models.Loans.Return(ctx, emma.ID, "S1")
	require.ErrorIs(t, err, ErrNoActiveLoan, "a loan can only be returned once")

	_, err = models.Loans.Return(ctx, 999, "S1")
	require.ErrorIs(t, err, ErrNoActiveLoan)
}

func TestMemoryUpdateCopies(t *testing.T) {
	ctx := context.Background()
	models, books := newTestModels(t)
	dune := books[0]

	_, err := models.Loans.Borrow(ctx, "S1", []int64{dune.ID}, borrowAt)
	require.NoError(t, err)
	_, err = models.Loans.Borrow(ctx, "S2", []int64{dune.ID}, borrowAt)
	require.NoError(t, err)

	one := 1
	_, err = models.Books.Update(ctx, dune.ID, UpdateBookInput{Copies: &one})
	require.ErrorIs(t, err, ErrCopiesBelowOnLoan)

	five := 5
	got, err := models.Books.Update(ctx, dune.ID, UpdateBookInput{Copies: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Copies)
	assert.Equal(t, 3, got.AvailableCopies)
	assert.Equal(t, StatusAvailable, got.Status)

	_, err = models.Books.Update(ctx, 999, UpdateBookInput{Copies: &five})
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemoryDeleteBookDropsLoans(t *testing.T) {
	ctx := context.Background()
	models, books := newTestModels(t)

	_, err := models.Loans.Borrow(ctx, "S1", []int64{books[0].ID, books[1].ID}, borrowAt)
	require.NoError(t, err)

	require.NoError(t, models.Books.Delete(ctx, books[0].ID))
	require.ErrorIs(t, models.Books.Delete(ctx, books[0].ID), ErrRecordNotFound)

	loans, err := models.Loans.ForStudent(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, books[1].ID, loans[0].BookID)
}

func TestMemoryStudents(t *testing.T) {
	ctx := context.Background()
	models, books := newTestModels(t)

	err := models.Students.Insert(ctx, NewStudent(CreateStudentInput{StudentID: "S1", Name: "Dup", Email: "other@treekings.edu", Department: "Arts", YearLevel: 2}))
	require.ErrorIs(t, err, ErrDuplicateStudentID)

	err = models.Students.Insert(ctx, NewStudent(CreateStudentInput{StudentID: "S3", Name: "Dup", Email: "S1@treekings.edu", Department: "Arts", YearLevel: 2}))
	require.ErrorIs(t, err, ErrDuplicateEmail)

	leave := StudentOnLeave
	got, err := models.Students.Update(ctx, "S2", UpdateStudentInput{Status: &leave})
	require.NoError(t, err)
	assert.Equal(t, StudentOnLeave, got.Status)

	total, active, err := models.Students.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, active)

	_, err = models.Loans.Borrow(ctx, "S1", []int64{books[0].ID}, borrowAt)
	require.NoError(t, err)
	require.ErrorIs(t, models.Students.Delete(ctx, "S1"), ErrStudentHasLoans)

	_, err = models.Loans.Return(ctx, books[0].ID, "S1")
	require.NoError(t, err)
	require.NoError(t, models.Students.Delete(ctx, "S1"))

	_, err = models.Students.Get(ctx, "S1")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemoryGetAllPaginates(t *testing.T) {
	ctx := context.Background()
	models := NewMemoryModels(nil)
	n, err := Seed(ctx, models.Books)
	require.NoError(t, err)
	require.Equal(t, len(SampleBooks()), n)

	books, meta, err := models.Books.GetAll(ctx, "", Filters{Page: 2, PageSize: 5, Sort: "book_id", SortSafeList: BookSortSafeList})
	require.NoError(t, err)
	require.Len(t, books, 5)
	assert.Equal(t, int64(6), books[0].ID)
	assert.Equal(t, Metadata{CurrentPage: 2, PageSize: 5, FirstPage: 1, LastPage: 3, TotalRecords: 12}, meta)

	books, meta, err = models.Books.GetAll(ctx, "Classic", Filters{Page: 1, PageSize: 20, Sort: "-title", SortSafeList: BookSortSafeList})
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "To Kill a Mockingbird", books[0].Title)
	assert.Equal(t, 3, meta.TotalRecords)
}

func TestSeedOnlyFillsAnEmptyStore(t *testing.T) {
	ctx := context.Background()
	models, _ := newTestModels(t)

	n, err := Seed(ctx, models.Books)
	require.NoError(t, err)
	assert.Zero(t, n)

	books, err := models.Books.List(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 3)
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	models := NewMemoryModels(nil)

	student := NewStudent(CreateStudentInput{StudentID: "2024-0007", Name: "Ana", Email: "ana@treekings.edu", Department: "Science", YearLevel: 1})
	user := &User{Name: "Ana", Email: "ana@treekings.edu", PasswordHash: []byte("hash"), Role: RoleStudent}
	require.NoError(t, models.Users.Register(ctx, user, student))
	assert.Equal(t, "2024-0007", user.StudentID)
	assert.NotZero(t, user.ID)

	got, err := models.Users.GetByEmail(ctx, "  ANA@treekings.edu ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = models.Students.Get(ctx, "2024-0007")
	require.NoError(t, err)

	err = models.Users.Register(ctx, &User{Name: "Ana", Email: "ana@treekings.edu", Role: RoleAdmin}, nil)
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = models.Users.GetByEmail(ctx, "nobody@treekings.edu")
	require.ErrorIs(t, err, ErrRecordNotFound)
}
