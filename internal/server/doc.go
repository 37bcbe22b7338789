// Package server provides HTTP routing, middleware, and the OAuth login flow for the web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method and wildcard patterns ("GET /api/tasks/{id}").
// Global middleware wraps the whole mux; route middleware wraps a single pattern.
//
// # Middleware
//
//   - [Recover] turns panics into 500 responses
//   - [Logging] writes one structured log line per request, including the authenticated user
//   - [Metrics] counts requests and observes latency per route pattern with Prometheus
//   - [RateLimit] applies a per-IP token bucket to the /auth/ routes
//   - [RequireSession] validates the session token with the auth provider and loads the allowlist entry
//   - [RequireModule] checks the per-module permission flag and the read-only viewer role
//
// # OAuth Login Handler
//
// [LoginHandler] implements the OAuth2 authorization code flow with PKCE.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and stores the access token in an HttpOnly session cookie.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Errors
//
// [WriteError] maps sentinel errors from the shared package to status codes with [StatusFor] and writes
// a {"error": "..."} body.
package server
