// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers every endpoint and wraps the router in the global
// middleware chain (outermost first):
//
//	recoverPanic → logRequests → enableCORS → rateLimit → authenticate → router
//
// Reads of the catalog are public. Catalog writes, the student roster and
// the stats need staff; circulation needs a logged-in user acting for
// themselves, or staff.
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	router.HandlerFunc(http.MethodPost, "/v1/auth/register", app.registerUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/auth/login", app.loginHandler)

	router.HandlerFunc(http.MethodGet, "/v1/catalog", app.catalogHandler)

	router.HandlerFunc(http.MethodGet, "/v1/books", app.listBooksHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id", app.showBookHandler)
	router.HandlerFunc(http.MethodPost, "/v1/books", app.requireStaff(app.createBookHandler))
	router.HandlerFunc(http.MethodPatch, "/v1/books/:id", app.requireStaff(app.updateBookHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/books/:id", app.requireStaff(app.deleteBookHandler))

	router.HandlerFunc(http.MethodPost, "/v1/loans", app.requireAuthenticatedUser(app.borrowBooksHandler))
	router.HandlerFunc(http.MethodPost, "/v1/books/:id/return", app.requireAuthenticatedUser(app.returnBookHandler))

	router.HandlerFunc(http.MethodGet, "/v1/students", app.requireStaff(app.listStudentsHandler))
	router.HandlerFunc(http.MethodPost, "/v1/students", app.requireStaff(app.createStudentHandler))
	router.HandlerFunc(http.MethodGet, "/v1/students/:id", app.requireAuthenticatedUser(app.showStudentHandler))
	router.HandlerFunc(http.MethodPatch, "/v1/students/:id", app.requireStaff(app.updateStudentHandler))
	router.HandlerFunc(http.MethodDelete, "/v1/students/:id", app.requireStaff(app.deleteStudentHandler))
	router.HandlerFunc(http.MethodGet, "/v1/students/:id/loans", app.requireAuthenticatedUser(app.listStudentLoansHandler))

	router.HandlerFunc(http.MethodGet, "/v1/stats", app.requireStaff(app.statsHandler))

	return app.recoverPanic(app.logRequests(app.enableCORS(app.rateLimit(app.authenticate(router)))))
}
