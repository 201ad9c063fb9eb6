// cmd/api/handlers.go
// Handlers for the books resource, the dashboard catalog and the healthcheck.
package main

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/aoideee/treekings-library/internal/catalog"
	"github.com/aoideee/treekings-library/internal/data"
	"github.com/aoideee/treekings-library/internal/validator"
)

func (app *applicationDependencies) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	env := envelope{
		"status": "available",
		"system_info": map[string]string{
			"environment": app.config.environment,
			"version":     appVersion,
		},
	}
	if err := app.writeJSON(w, http.StatusOK, env, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createBookHandler handles POST /v1/books. Every copy of a new book
// starts on the shelf.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input data.CreateBookInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateCreateBook(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	book := data.NewBook(input)
	if err := app.models.Books.Insert(r.Context(), book); err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/books/%d", book.ID))

	if err := app.writeJSON(w, http.StatusCreated, envelope{"book": book}, headers); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /v1/books/:id.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBooksHandler handles GET /v1/books?genre=&page=&page_size=&sort=.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	genre := app.readString(qs, "genre", "")
	if strings.EqualFold(genre, catalog.AllGenres) {
		genre = ""
	}
	filters := app.readFilters(qs, "book_id", data.BookSortSafeList, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.GetAll(r.Context(), genre, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"books": books, "metadata": metadata}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PATCH /v1/books/:id. Only the fields present
// in the body change; copies may not drop below the copies on loan.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input data.UpdateBookInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateUpdateBook(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	book, err := app.models.Books.Update(r.Context(), id, input)
	switch {
	case errors.Is(err, data.ErrCopiesBelowOnLoan):
		v.AddError("copies", err.Error())
		app.failedValidationResponse(w, r, v.Errors)
		return
	case err != nil:
		app.libraryErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /v1/books/:id. Outstanding loans of
// the book go with it.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	if err := app.models.Books.Delete(r.Context(), id); err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"message": "book successfully deleted"}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// catalogHandler handles GET /v1/catalog?q=&genre=&rating=&sort=title and
// returns the dashboard: the grouped sections, the search panel and the
// rating histogram.
func (app *applicationDependencies) catalogHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	q := catalog.Query{Genre: app.readString(qs, "genre", catalog.AllGenres)}

	if raw := qs.Get("rating"); raw != "" && raw != "all" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			v.AddError("rating", "must be a number or all")
		} else {
			v.Check(rating >= 0 && rating <= 5, "rating", "must be between 0 and 5")
			v.Check(rating*2 == math.Trunc(rating*2), "rating", "must be a whole or half star")
			q.Rating = &rating
		}
	}

	switch sort := app.readString(qs, "sort", ""); sort {
	case "":
	case "title":
		q.SortByTitle = true
	default:
		v.AddError("sort", "must be title")
	}

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, err := app.models.Books.List(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	view := catalog.Build(books, q, qs.Get("q"))
	if err := app.writeJSON(w, http.StatusOK, envelope{"catalog": view}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
