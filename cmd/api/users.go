// cmd/api/users.go
// Handlers for registration and login.
package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aoideee/treekings-library/internal/auth"
	"github.com/aoideee/treekings-library/internal/data"
	"github.com/aoideee/treekings-library/internal/validator"
)

// registerUserHandler handles POST /v1/auth/register. Anyone may register
// as a student; admin accounts can only be created by a superadmin.
func (app *applicationDependencies) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input data.RegisterInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateRegister(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	role := input.Role
	if role == "" {
		role = data.RoleStudent
	}
	if role != data.RoleStudent {
		caller := app.contextGetUser(r)
		if caller == nil {
			app.authenticationRequiredResponse(w, r)
			return
		}
		if caller.Role != data.RoleSuperAdmin {
			app.notPermittedResponse(w, r)
			return
		}
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	user := &data.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        data.NormalizeEmail(input.Email),
		PasswordHash: hash,
		Role:         role,
	}

	var student *data.Student
	if input.StudentInfo != nil {
		student = data.NewStudent(data.CreateStudentInput{
			StudentID:  input.StudentInfo.StudentID,
			Name:       input.Name,
			Email:      input.Email,
			Department: input.StudentInfo.Department,
			YearLevel:  input.StudentInfo.YearLevel,
		})
	}

	if err := app.models.Users.Register(r.Context(), user, student); err != nil {
		app.libraryErrorResponse(w, r, err)
		return
	}
	app.logger.Info("user registered", "email", user.Email, "role", user.Role)

	if err := app.writeJSON(w, http.StatusCreated, envelope{"user": user}, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// loginHandler handles POST /v1/auth/login and issues a bearer token.
func (app *applicationDependencies) loginHandler(w http.ResponseWriter, r *http.Request) {
	var input data.LoginInput
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if data.ValidateLogin(v, input); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.models.Users.GetByEmail(r.Context(), input.Email)
	switch {
	case errors.Is(err, data.ErrRecordNotFound):
		app.libraryErrorResponse(w, r, data.ErrInvalidCredentials)
		return
	case err != nil:
		app.serverErrorResponse(w, r, err)
		return
	}

	match, err := auth.CheckPassword(user.PasswordHash, input.Password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if !match {
		app.libraryErrorResponse(w, r, data.ErrInvalidCredentials)
		return
	}

	token, expiry, err := app.tokens.Issue(user)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	env := envelope{
		"authentication_token": map[string]any{"token": token, "expiry": expiry},
		"user":                 user,
	}
	if err := app.writeJSON(w, http.StatusOK, env, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
