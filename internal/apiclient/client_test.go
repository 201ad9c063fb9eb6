package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/treekings-library/internal/catalog"
	"github.com/aoideee/treekings-library/internal/circulation"
	"github.com/aoideee/treekings-library/internal/data"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestListBooksWalksPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/books", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"books":    []*data.Book{{ID: int64(page), Title: fmt.Sprintf("Book %d", page)}},
			"metadata": data.Metadata{CurrentPage: page, PageSize: 100, FirstPage: 1, LastPage: 3, TotalRecords: 3},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	books, err := New(srv.URL).ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Book 3", books[2].Title)
}

func TestBorrowBooks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/loans", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var in struct {
			StudentID string  `json:"student_id"`
			BookIDs   []int64 `json:"book_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "S1", in.StudentID)
		assert.Equal(t, []int64{1, 2}, in.BookIDs)

		writeJSON(t, w, http.StatusCreated, map[string]any{
			"receipt": data.Receipt{StudentID: "S1", Books: []*data.Book{{ID: 1, Title: "Dune"}, {ID: 2, Title: "Emma"}}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	receipt, err := New(srv.URL, WithToken("tok")).BorrowBooks(context.Background(), "S1", []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune", "Emma"}, receipt.Titles())
}

func TestErrorsComeBackAsSentinels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/loans", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, map[string]any{
			"error":  data.ErrNotAvailable.Message,
			"kind":   data.KindAvailability,
			"titles": []string{"Emma"},
		})
	})
	mux.HandleFunc("POST /v1/books/{id}/return", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{
			"error": data.ErrNoActiveLoan.Message,
			"kind":  data.KindNotFound,
		})
	})
	mux.HandleFunc("POST /v1/books", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnprocessableEntity, map[string]any{
			"error": map[string]string{"title": "must be provided", "copies": "must be provided"},
			"kind":  data.KindValidation,
		})
	})
	mux.HandleFunc("GET /v1/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusForbidden, map[string]any{"error": "not permitted"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)

	_, err := c.BorrowBooks(ctx, "S1", []int64{2})
	require.ErrorIs(t, err, data.ErrNotAvailable)
	var libErr *data.Error
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, []string{"Emma"}, libErr.Titles)

	_, err = c.ReturnBook(ctx, 2, "S1")
	require.ErrorIs(t, err, data.ErrNoActiveLoan)

	_, err = c.CreateBook(ctx, data.CreateBookInput{})
	assert.Equal(t, data.KindValidation, data.KindOf(err))
	assert.EqualError(t, err, "copies must be provided; title must be provided")

	_, err = c.Stats(ctx)
	assert.Equal(t, data.KindAuth, data.KindOf(err), "kind falls back to the status code")
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).ListBooks(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnreachable(err))
	assert.Equal(t, data.KindTransport, data.KindOf(err))
}

func TestCatalogQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/catalog", func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		assert.Equal(t, "orwell", qs.Get("q"))
		assert.Equal(t, "Fiction", qs.Get("genre"))
		assert.Equal(t, "4.5", qs.Get("rating"))
		assert.Equal(t, "title", qs.Get("sort"))

		books := []*data.Book{{ID: 4, Title: "1984", Author: "George Orwell", Genre: "Fiction", Rating: 4.5}}
		writeJSON(t, w, http.StatusOK, map[string]any{"catalog": catalog.Build(books, catalog.Query{}, "orwell")})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rating := 4.5
	view, err := New(srv.URL).Catalog(context.Background(), catalog.Query{Genre: "Fiction", Rating: &rating, SortByTitle: true}, "orwell")
	require.NoError(t, err)
	assert.True(t, view.Search.Visible)
	require.Len(t, view.Search.Books, 1)
	assert.Equal(t, "1984", view.Search.Books[0].Title)
	require.Len(t, view.All, 1)
}

// The client drives a checkout session like any other backend.
func TestClientBacksASession(t *testing.T) {
	book := &data.Book{ID: 1, Title: "Dune", Copies: 1, AvailableCopies: 1}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/books", func(w http.ResponseWriter, r *http.Request) {
		t.Error("checkout must not list the whole catalog")
	})
	mux.HandleFunc("GET /v1/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			writeJSON(t, w, http.StatusNotFound, map[string]any{"error": data.ErrRecordNotFound.Message, "kind": data.KindNotFound})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"book": book})
	})
	mux.HandleFunc("POST /v1/loans", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"receipt": data.Receipt{StudentID: "S1", Books: []*data.Book{book}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	s := circulation.NewSession("S1", New(srv.URL))
	require.NoError(t, s.Add(book))
	require.NoError(t, s.Checkout(ctx))
	summary, err := s.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, summary.Titles)

	gone := &data.Book{ID: 7, Title: "Emma", Copies: 1, AvailableCopies: 1}
	require.NoError(t, s.Acknowledge())
	require.NoError(t, s.Add(gone))
	require.ErrorIs(t, s.Checkout(ctx), circulation.ErrNoLongerAvailable)
}
