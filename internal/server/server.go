// package server contains routing, middleware & login handlers for the venue management web service
package server

import (
	"context"
	"net/http"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that serve several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD /path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                                               // Use adds middleware around every route
	Handle(method, path string, handler http.Handler, middleware ...Middleware) // Handle registers a handler with optional route middleware
	Handler(handler Handler, middleware ...Middleware)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request)                           // ServeHTTP implements http.Handler for the entire router
}

type contextKey int

const (
	userKey contextKey = iota
	requestInfoKey
)

// WithUser returns a copy of ctx carrying the authenticated allowlist entry.
func WithUser(ctx context.Context, user *models.AllowedUser) context.Context {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.user = user.Email
	}
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the allowlist entry of the authenticated request, if any.
func CurrentUser(ctx context.Context) (*models.AllowedUser, bool) {
	u, ok := ctx.Value(userKey).(*models.AllowedUser)
	return u, ok && u != nil
}

// requestInfo is filled in while a request travels down the middleware chain and read back by the logger.
type requestInfo struct {
	user string
}
