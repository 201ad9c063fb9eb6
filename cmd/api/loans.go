// cmd/api/loans.go
// Handlers for borrowing, returning, a student's active loans and the
// admin stats.
package main

import (
	"net/http"

	"github.com/aoideee/treekings-library/internal/validator"
)

type borrowInput struct {
	StudentID string  `json:"student_id" validate:"required,max=32"`
	BookIDs   []int64 `json:"book_ids"   validate:"required,min=1,max=5,unique,dive,gt=0"`
}

// borrowBooksHandler handles POST /v1/loans. All books are borrowed
// together or none are; the response carries the shared due date.
func (app *applicationDependencies) borrowBooksHandler(w http.ResponseWriter, r *http.Request) {
	var input borrowInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if v.Struct(input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if !canActFor(app.contextGetUser(r), input.StudentID) {
		app.notPermittedResponse(w, r)
		return
	}

	receipt, err := app.desk.BorrowBooks(r.Context(), input.StudentID, input.BookIDs)
	if err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusCreated, envelope{"receipt": receipt}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type returnInput struct {
	StudentID string `json:"student_id" validate:"required,max=32"`
}

// returnBookHandler handles POST /v1/books/:id/return.
func (app *applicationDependencies) returnBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input returnInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if v.Struct(input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if !canActFor(app.contextGetUser(r), input.StudentID) {
		app.notPermittedResponse(w, r)
		return
	}

	book, err := app.desk.ReturnBook(r.Context(), id, input.StudentID)
	if err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listStudentLoansHandler handles GET /v1/students/:id/loans.
func (app *applicationDependencies) listStudentLoansHandler(w http.ResponseWriter, r *http.Request) {
	studentID, err := app.readStudentIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	if !canActFor(app.contextGetUser(r), studentID) {
		app.notPermittedResponse(w, r)
		return
	}

	loans, err := app.desk.ActiveLoans(r.Context(), studentID)
	if err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"loans": loans}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// statsHandler handles GET /v1/stats.
func (app *applicationDependencies) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := app.desk.Stats(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"stats": stats}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
