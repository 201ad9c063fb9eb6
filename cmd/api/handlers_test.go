package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/treekings-library/internal/apiclient"
	"github.com/aoideee/treekings-library/internal/auth"
	"github.com/aoideee/treekings-library/internal/circulation"
	"github.com/aoideee/treekings-library/internal/data"
)

const (
	superEmail    = "root@treekings.edu"
	superPassword = "super-secret-pw"
)

// newTestApp returns the API over a seeded memory store with a superadmin.
func newTestApp(t *testing.T) *applicationDependencies {
	t.Helper()

	settings := loadConfig([]string{
		"-store=memory",
		"-seed",
		"-limiter-enabled=false",
		"-jwt-secret=test-secret",
		"-superadmin-email=" + superEmail,
		"-superadmin-password=" + superPassword,
	})
	logger := slog.New(slog.DiscardHandler)
	models, _, err := openStore(settings, logger)
	require.NoError(t, err)

	app := &applicationDependencies{
		config: settings,
		logger: logger,
		models: models,
		desk:   circulation.NewDesk(models),
		tokens: auth.NewTokens(settings.jwt.secret, time.Hour),
	}
	require.NoError(t, app.bootstrap(context.Background()))
	return app
}

type response struct {
	status int
	header http.Header
	body   map[string]any
}

func (app *applicationDependencies) call(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(js)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, req)

	res := response{status: rec.Code, header: rec.Header()}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res.body), rec.Body.String())
	return res
}

func (app *applicationDependencies) login(t *testing.T, email, password string) string {
	t.Helper()
	res := app.call(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, res.status, res.body)
	return res.body["authentication_token"].(map[string]any)["token"].(string)
}

// registerStudent signs up a student and returns their token.
func (app *applicationDependencies) registerStudent(t *testing.T, studentID, email string) string {
	t.Helper()
	res := app.call(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name":     "Student " + studentID,
		"email":    email,
		"password": "pa55word!",
		"student_info": map[string]any{
			"student_id": studentID,
			"department": "Arts",
			"year_level": 2,
		},
	})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	return app.login(t, email, "pa55word!")
}

func TestHealthcheck(t *testing.T) {
	app := newTestApp(t)

	res := app.call(t, http.MethodGet, "/v1/healthcheck", "", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "available", res.body["status"])
	assert.NotEmpty(t, res.header.Get("X-Request-ID"))

	res = app.call(t, http.MethodGet, "/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = app.call(t, http.MethodPut, "/v1/healthcheck", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, res.status)
}

func TestCatalogHandler(t *testing.T) {
	app := newTestApp(t)

	res := app.call(t, http.MethodGet, "/v1/catalog?q=orwell&genre=Fiction&rating=4.5", "", nil)
	require.Equal(t, http.StatusOK, res.status)

	view := res.body["catalog"].(map[string]any)
	search := view["search"].(map[string]any)
	assert.Equal(t, true, search["visible"])
	require.Len(t, search["books"], 1)
	assert.Equal(t, "1984", search["books"].([]any)[0].(map[string]any)["title"])
	require.Len(t, view["all"], 1)
	assert.Empty(t, view["featured"])

	res = app.call(t, http.MethodGet, "/v1/catalog?q=", "", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, false, res.body["catalog"].(map[string]any)["search"].(map[string]any)["visible"])

	res = app.call(t, http.MethodGet, "/v1/catalog?rating=high&sort=author", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body["error"], "rating")
	assert.Contains(t, res.body["error"], "sort")

	res = app.call(t, http.MethodGet, "/v1/catalog?rating=4.2", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Equal(t, "must be a whole or half star", res.body["error"].(map[string]any)["rating"])
}

func TestBookWritesNeedStaff(t *testing.T) {
	app := newTestApp(t)
	student := app.registerStudent(t, "2024-0001", "ana@treekings.edu")
	admin := app.login(t, superEmail, superPassword)

	book := map[string]any{"title": "Beloved", "author": "Toni Morrison", "genre": "Fiction", "rating": 4.6, "copies": 2}

	assert.Equal(t, http.StatusUnauthorized, app.call(t, http.MethodPost, "/v1/books", "", book).status)
	assert.Equal(t, http.StatusForbidden, app.call(t, http.MethodPost, "/v1/books", student, book).status)
	assert.Equal(t, http.StatusUnauthorized, app.call(t, http.MethodPost, "/v1/books", "garbage", book).status)

	res := app.call(t, http.MethodPost, "/v1/books", admin, book)
	require.Equal(t, http.StatusCreated, res.status, res.body)
	created := res.body["book"].(map[string]any)
	assert.Equal(t, 4.6, created["rating"])
	assert.Equal(t, float64(2), created["available_copies"])
	assert.Equal(t, "available", created["status"])
	assert.Equal(t, "/v1/books/13", res.header.Get("Location"))

	res = app.call(t, http.MethodPatch, "/v1/books/13", admin, map[string]any{"genre": "Classic"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Classic", res.body["book"].(map[string]any)["genre"])

	res = app.call(t, http.MethodPost, "/v1/books", admin, map[string]any{"title": "", "copies": 0})
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body["error"], "title")
	assert.Contains(t, res.body["error"], "copies")

	res = app.call(t, http.MethodDelete, "/v1/books/13", admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, http.StatusNotFound, app.call(t, http.MethodGet, "/v1/books/13", "", nil).status)
}

func TestBorrowAndReturn(t *testing.T) {
	app := newTestApp(t)
	ana := app.registerStudent(t, "2024-0001", "ana@treekings.edu")
	ben := app.registerStudent(t, "2024-0002", "ben@treekings.edu")

	// Book 3 is "Pride and Prejudice" with two copies.
	res := app.call(t, http.MethodPost, "/v1/loans", ana, map[string]any{"student_id": "2024-0001", "book_ids": []int{3, 4}})
	require.Equal(t, http.StatusCreated, res.status, res.body)
	receipt := res.body["receipt"].(map[string]any)
	borrowed, err := time.Parse(time.RFC3339Nano, receipt["borrowed_at"].(string))
	require.NoError(t, err)
	due, err := time.Parse(time.RFC3339Nano, receipt["due_date"].(string))
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, due.Sub(borrowed))
	assert.Len(t, receipt["books"], 2)

	res = app.call(t, http.MethodPost, "/v1/loans", ana, map[string]any{"student_id": "2024-0002", "book_ids": []int{5}})
	assert.Equal(t, http.StatusForbidden, res.status, "students only borrow for themselves")

	res = app.call(t, http.MethodPost, "/v1/loans", ana, map[string]any{"student_id": "2024-0001", "book_ids": []int{1, 1}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)

	res = app.call(t, http.MethodPost, "/v1/loans", ben, map[string]any{"student_id": "2024-0002", "book_ids": []int{3}})
	require.Equal(t, http.StatusCreated, res.status)

	res = app.call(t, http.MethodPost, "/v1/loans", ben, map[string]any{"student_id": "2024-0002", "book_ids": []int{1, 3}})
	require.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, "availability", res.body["kind"])
	assert.Equal(t, []any{"Pride and Prejudice"}, res.body["titles"])

	gatsby := app.call(t, http.MethodGet, "/v1/books/1", "", nil).body["book"].(map[string]any)
	assert.Equal(t, float64(3), gatsby["available_copies"], "a refused checkout borrows nothing")

	res = app.call(t, http.MethodGet, "/v1/students/2024-0001/loans", ana, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.body["loans"], 2)
	assert.Equal(t, http.StatusForbidden, app.call(t, http.MethodGet, "/v1/students/2024-0001/loans", ben, nil).status)

	res = app.call(t, http.MethodPost, "/v1/books/3/return", ana, map[string]any{"student_id": "2024-0001"})
	require.Equal(t, http.StatusOK, res.status)
	book := res.body["book"].(map[string]any)
	assert.Equal(t, float64(1), book["available_copies"])
	assert.Equal(t, "available", book["status"])

	res = app.call(t, http.MethodPost, "/v1/books/3/return", ana, map[string]any{"student_id": "2024-0001"})
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "not_found", res.body["kind"])
}

func TestRegistration(t *testing.T) {
	app := newTestApp(t)
	app.registerStudent(t, "2024-0001", "ana@treekings.edu")

	res := app.call(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"name": "Ana Again", "email": "ANA@treekings.edu", "password": "pa55word!",
		"student_info": map[string]any{"student_id": "2024-0009", "department": "Arts", "year_level": 1},
	})
	assert.Equal(t, http.StatusConflict, res.status)

	admin := map[string]any{"name": "Librarian", "email": "lib@treekings.edu", "password": "pa55word!", "role": "admin"}
	assert.Equal(t, http.StatusUnauthorized, app.call(t, http.MethodPost, "/v1/auth/register", "", admin).status)

	super := app.login(t, superEmail, superPassword)
	res = app.call(t, http.MethodPost, "/v1/auth/register", super, admin)
	require.Equal(t, http.StatusCreated, res.status, res.body)
	assert.Equal(t, "admin", res.body["user"].(map[string]any)["role"])
	assert.NotContains(t, res.body["user"], "password_hash")

	res = app.call(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "lib@treekings.edu", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	res = app.call(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "who@treekings.edu", "password": "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestStudentsAndStats(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(t, superEmail, superPassword)
	ana := app.registerStudent(t, "2024-0001", "ana@treekings.edu")

	res := app.call(t, http.MethodPost, "/v1/students", admin, map[string]any{
		"student_id": "2024-0002", "name": "Ben", "email": "ben@treekings.edu", "department": "Science", "year_level": 3,
	})
	require.Equal(t, http.StatusCreated, res.status, res.body)

	res = app.call(t, http.MethodGet, "/v1/students?sort=name", admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Len(t, res.body["students"], 2)
	assert.Equal(t, http.StatusForbidden, app.call(t, http.MethodGet, "/v1/students", ana, nil).status)

	res = app.call(t, http.MethodPatch, "/v1/students/2024-0002", admin, map[string]any{"status": "on_leave"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "on_leave", res.body["student"].(map[string]any)["status"])

	require.Equal(t, http.StatusCreated, app.call(t, http.MethodPost, "/v1/loans", admin, map[string]any{"student_id": "2024-0002", "book_ids": []int{2}}).status)
	res = app.call(t, http.MethodDelete, "/v1/students/2024-0002", admin, nil)
	assert.Equal(t, http.StatusConflict, res.status)

	res = app.call(t, http.MethodGet, "/v1/stats", admin, nil)
	require.Equal(t, http.StatusOK, res.status)
	stats := res.body["stats"].(map[string]any)
	assert.Equal(t, float64(12), stats["total_books"])
	assert.Equal(t, float64(2), stats["total_students"])
	assert.Equal(t, float64(1), stats["active_students"])
	assert.Equal(t, float64(1), stats["active_loans"])

	res = app.call(t, http.MethodPatch, "/v1/books/2", admin, map[string]any{"copies": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
}

// A checkout session runs against the real API through the HTTP client.
func TestSessionOverHTTP(t *testing.T) {
	app := newTestApp(t)
	token := app.registerStudent(t, "2024-0001", "ana@treekings.edu")

	srv := httptest.NewServer(app.routes())
	defer srv.Close()

	ctx := context.Background()
	client := apiclient.New(srv.URL, apiclient.WithToken(token))

	books, err := client.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 12)

	s := circulation.NewSession("2024-0001", client)
	require.NoError(t, s.Add(books[0]))
	require.NoError(t, s.Add(books[8]))
	require.NoError(t, s.Checkout(ctx))

	summary, err := s.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"The Great Gatsby", "Steve Jobs"}, summary.Titles)

	loans, err := client.ActiveLoans(ctx, "2024-0001")
	require.NoError(t, err)
	assert.Len(t, loans, 2)

	_, err = s.Return(ctx, books[0].ID)
	require.NoError(t, err)
	_, err = s.Return(ctx, books[0].ID)
	require.ErrorIs(t, err, data.ErrNoActiveLoan)
}

func TestServeStopsWhenContextIsCancelled(t *testing.T) {
	app := newTestApp(t)
	app.config.port = 0
	app.config.shutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}
