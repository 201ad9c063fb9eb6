package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/treekings-library/internal/catalog"
	"github.com/aoideee/treekings-library/internal/circulation"
	"github.com/aoideee/treekings-library/internal/data"
)

// fakeAPI serves the commands from a memory store.
type fakeAPI struct {
	*circulation.Desk
	models    data.Models
	listCalls int
}

func (f *fakeAPI) ListBooks(ctx context.Context) ([]*data.Book, error) {
	f.listCalls++
	return f.Desk.ListBooks(ctx)
}

func (f *fakeAPI) Catalog(ctx context.Context, q catalog.Query, search string) (*catalog.View, error) {
	books, err := f.models.Books.List(ctx)
	if err != nil {
		return nil, err
	}
	view := catalog.Build(books, q, search)
	return &view, nil
}

func (f *fakeAPI) Login(_ context.Context, email, _ string) (string, *data.User, error) {
	return "tok", &data.User{Name: "Ana", Email: email, Role: data.RoleStudent, StudentID: "S1"}, nil
}

func (f *fakeAPI) ListStudents(ctx context.Context, page int) ([]*data.Student, data.Metadata, error) {
	return f.models.Students.GetAll(ctx, data.Filters{Page: page, PageSize: 100, Sort: "id", SortSafeList: data.StudentSortSafeList})
}

func (f *fakeAPI) Stats(ctx context.Context) (*circulation.Stats, error) {
	s, err := f.Desk.Stats(ctx)
	return &s, err
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	ctx := context.Background()
	models := data.NewMemoryModels(nil)
	_, err := data.Seed(ctx, models.Books)
	require.NoError(t, err)
	require.NoError(t, models.Students.Insert(ctx, data.NewStudent(data.CreateStudentInput{
		StudentID: "S1", Name: "Ana", Email: "ana@treekings.edu", Department: "Arts", YearLevel: 1,
	})))
	return &fakeAPI{Desk: circulation.NewDesk(models), models: models}
}

func run(t *testing.T, api *fakeAPI, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LIBRARY_STUDENT", "")
	t.Setenv("LIBRARY_TOKEN", "")

	var out bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &out, func(string, string) libraryAPI { return api })
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestBooksCommand(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "", "books", "--search", "orwell", "--histogram")
	require.NoError(t, err)
	assert.Contains(t, out, `Search results for "orwell"`)
	assert.Contains(t, out, "Featured Books")
	assert.Contains(t, out, "The Great Gatsby")
	assert.Contains(t, out, "Rating distribution")

	out, err = run(t, api, "", "books", "--json", "--genre", "Fantasy", "--sort", "title")
	require.NoError(t, err)
	var view catalog.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Empty(t, view.Featured)
	require.Len(t, view.Popular, 2)
	assert.Equal(t, "Harry Potter", view.Popular[0].Title)
	assert.False(t, view.Search.Visible)

	_, err = run(t, api, "", "books", "--sort", "rating")
	assert.Error(t, err)
}

func TestBorrowCommand(t *testing.T) {
	api := newFakeAPI(t)
	ctx := context.Background()

	_, err := run(t, api, "", "borrow", "1")
	require.ErrorIs(t, err, errStudentRequired)

	out, err := run(t, api, "n\n", "borrow", "--student", "S1", "1", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Confirm checkout")
	assert.Contains(t, out, "Checkout cancelled")
	loans, err := api.ActiveLoans(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, loans)

	out, err = run(t, api, "", "borrow", "--student", "S1", "--yes", "1", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Checkout complete")
	assert.Contains(t, out, "Pride and Prejudice")
	loans, err = api.ActiveLoans(ctx, "S1")
	require.NoError(t, err)
	assert.Len(t, loans, 2)
	assert.Zero(t, api.listCalls, "borrow fetches only the requested books")

	_, err = run(t, api, "", "borrow", "--student", "S1", "--yes", "1")
	require.ErrorIs(t, err, data.ErrAlreadyBorrowed)

	_, err = run(t, api, "", "borrow", "--student", "S1", "--yes", "99")
	require.ErrorIs(t, err, data.ErrRecordNotFound)

	_, err = run(t, api, "", "borrow", "--student", "S1", "1", "2", "3", "4", "5", "6")
	assert.Error(t, err, "at most five books per checkout")
}

func TestReturnAndLoansCommands(t *testing.T) {
	api := newFakeAPI(t)

	_, err := run(t, api, "", "borrow", "--student", "S1", "--yes", "3")
	require.NoError(t, err)

	out, err := run(t, api, "", "loans", "--student", "S1", "--json")
	require.NoError(t, err)
	var loans []circulation.ActiveLoan
	require.NoError(t, json.Unmarshal([]byte(out), &loans))
	require.Len(t, loans, 1)
	assert.Equal(t, "Pride and Prejudice", loans[0].Book.Title)

	out, err = run(t, api, "", "return", "--student", "S1", "3")
	require.NoError(t, err)
	assert.Contains(t, out, `Returned "Pride and Prejudice". 2 of 2 copies on the shelf.`)

	_, err = run(t, api, "", "return", "--student", "S1", "3")
	require.ErrorIs(t, err, data.ErrNoActiveLoan)

	out, err = run(t, api, "", "loans", "--student", "S1")
	require.NoError(t, err)
	assert.Contains(t, out, "No books on loan.")
}

func TestLoginStudentsStats(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, api, "secret-pw\n", "login", "ana@treekings.edu")
	require.NoError(t, err)
	assert.Contains(t, out, "export LIBRARY_TOKEN=tok")
	assert.Contains(t, out, "export LIBRARY_STUDENT=S1")

	out, err = run(t, api, "", "students")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")

	out, err = run(t, api, "", "stats", "--json")
	require.NoError(t, err)
	var stats circulation.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 12, stats.TotalBooks)
	assert.Equal(t, 1, stats.TotalStudents)
}

func TestRenderError(t *testing.T) {
	msg := renderError(data.ErrNotAvailable.WithTitles("Dune", "Emma"))
	assert.Contains(t, msg, "Book is not available")
	assert.Contains(t, msg, "• Dune")
	assert.Contains(t, msg, "• Emma")

	msg = renderError(data.TransportError(assert.AnError))
	assert.Contains(t, msg, "Failed to connect to the library service")
}

func TestStars(t *testing.T) {
	assert.Equal(t, "★★★★½ 4.5", stars(4.5))
	assert.Equal(t, "★★★ 3.2", stars(3.2))
}
