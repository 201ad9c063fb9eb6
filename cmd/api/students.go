// cmd/api/students.go
// Handlers for the students resource. Students are addressed by their
// student id string, not the surrogate key.
package main

import (
	"net/http"

	"github.com/aoideee/treekings-library/internal/data"
	"github.com/aoideee/treekings-library/internal/validator"
)

// createStudentHandler handles POST /v1/students.
func (app *applicationDependencies) createStudentHandler(w http.ResponseWriter, r *http.Request) {
	var input data.CreateStudentInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateCreateStudent(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	student := data.NewStudent(input)
	if err := app.models.Students.Insert(r.Context(), student); err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", "/v1/students/"+student.StudentID)

	if err := app.writeJSON(w, http.StatusCreated, envelope{"student": student}, headers); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showStudentHandler handles GET /v1/students/:id. Students may only see
// their own record.
func (app *applicationDependencies) showStudentHandler(w http.ResponseWriter, r *http.Request) {
	studentID, err := app.readStudentIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	if !canActFor(app.contextGetUser(r), studentID) {
		app.notPermittedResponse(w, r)
		return
	}

	student, err := app.models.Students.Get(r.Context(), studentID)
	if err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"student": student}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listStudentsHandler handles GET /v1/students?page=&page_size=&sort=.
func (app *applicationDependencies) listStudentsHandler(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	filters := app.readFilters(r.URL.Query(), "student_id", data.StudentSortSafeList, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	students, metadata, err := app.models.Students.GetAll(r.Context(), filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"students": students, "metadata": metadata}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateStudentHandler handles PATCH /v1/students/:id.
func (app *applicationDependencies) updateStudentHandler(w http.ResponseWriter, r *http.Request) {
	studentID, err := app.readStudentIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input data.UpdateStudentInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateUpdateStudent(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	student, err := app.models.Students.Update(r.Context(), studentID, input)
	if err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"student": student}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteStudentHandler handles DELETE /v1/students/:id. A student with
// books still on loan cannot be deleted.
func (app *applicationDependencies) deleteStudentHandler(w http.ResponseWriter, r *http.Request) {
	studentID, err := app.readStudentIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	if err := app.models.Students.Delete(r.Context(), studentID); err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"message": "student successfully deleted"}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
