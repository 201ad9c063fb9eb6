// cmd/api/context.go
// Request-scoped values: the authenticated user and the request id.
package main

import (
	"context"
	"net/http"

	"github.com/aoideee/treekings-library/internal/data"
)

type contextKey string

const (
	userContextKey      = contextKey("user")
	requestIDContextKey = contextKey("request_id")
)

// contextSetUser returns a copy of r carrying user.
func (app *applicationDependencies) contextSetUser(r *http.Request, user *data.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

// contextGetUser returns the authenticated user, or nil for anonymous requests.
func (app *applicationDependencies) contextGetUser(r *http.Request) *data.User {
	user, _ := r.Context().Value(userContextKey).(*data.User)
	return user
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(requestIDContextKey).(string)
	return id
}
