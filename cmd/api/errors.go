// cmd/api/errors.go
// Error-response helpers. Every error leaves the API as {"error": ...};
// library errors also carry their kind so clients can tell them apart.
package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aoideee/treekings-library/internal/data"
)

// logError logs an internal error at ERROR level with the request method and URL for context.
func (app *applicationDependencies) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(),
		slog.String("request_id", requestIDFrom(r)),
		slog.String("request_method", r.Method),
		slog.String("request_url", r.URL.String()),
	)
}

// errorResponse sends a JSON error envelope with the given status code and message.
func (app *applicationDependencies) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	app.writeError(w, r, status, envelope{"error": message})
}

func (app *applicationDependencies) writeError(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	if err := app.writeJSON(w, status, body, nil); err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs a 500-level error and sends a generic message to the client.
func (app *applicationDependencies) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func (app *applicationDependencies) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func (app *applicationDependencies) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "the " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

func (app *applicationDependencies) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// failedValidationResponse sends a 422 with the field errors collected by a Validator.
func (app *applicationDependencies) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.writeError(w, r, http.StatusUnprocessableEntity, envelope{"error": errors, "kind": data.KindValidation})
}

func (app *applicationDependencies) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

func (app *applicationDependencies) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.writeError(w, r, http.StatusUnauthorized, envelope{"error": "invalid or missing authentication token", "kind": data.KindAuth})
}

func (app *applicationDependencies) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	app.writeError(w, r, http.StatusUnauthorized, envelope{"error": "you must be authenticated to access this resource", "kind": data.KindAuth})
}

func (app *applicationDependencies) notPermittedResponse(w http.ResponseWriter, r *http.Request) {
	app.writeError(w, r, http.StatusForbidden, envelope{"error": "your account doesn't have the necessary permissions to access this resource", "kind": data.KindAuth})
}

// libraryErrorResponse maps an error from the stores or the circulation
// desk onto a status code. Anything that is not a *data.Error is a 500.
func (app *applicationDependencies) libraryErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var libErr *data.Error
	if !errors.As(err, &libErr) {
		app.serverErrorResponse(w, r, err)
		return
	}

	var status int
	switch libErr.Kind {
	case data.KindValidation:
		status = http.StatusUnprocessableEntity
	case data.KindAvailability, data.KindConflict:
		status = http.StatusConflict
	case data.KindNotFound:
		status = http.StatusNotFound
	case data.KindAuth:
		status = http.StatusUnauthorized
	default:
		app.serverErrorResponse(w, r, err)
		return
	}

	body := envelope{"error": libErr.Message, "kind": libErr.Kind}
	if len(libErr.Titles) > 0 {
		body["titles"] = libErr.Titles
	}
	app.writeError(w, r, status, body)
}
