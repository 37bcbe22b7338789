package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/services"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// UserLookup finds allowlist entries by email.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.AllowedUser, error)
}

type cachedSession struct {
	identity *services.Identity
	expires  time.Time
}

// SessionCache remembers successful token validations for a fixed TTL. A zero TTL disables caching.
type SessionCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cachedSession
	now     func() time.Time
}

// NewSessionCache creates a cache whose entries expire after ttl.
func NewSessionCache(ttl time.Duration) *SessionCache {
	return &SessionCache{ttl: ttl, entries: map[string]cachedSession{}, now: time.Now}
}

// Get returns the cached identity of token when it has not expired.
func (c *SessionCache) Get(token string) (*services.Identity, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, token)
		return nil, false
	}
	return e.identity, true
}

// Put caches identity for token.
func (c *SessionCache) Put(token string, identity *services.Identity) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= maxVisitors {
		for k, e := range c.entries {
			if !now.Before(e.expires) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[token] = cachedSession{identity: identity, expires: now.Add(c.ttl)}
}

// Forget drops token from the cache.
func (c *SessionCache) Forget(token string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, token)
}

// sessionToken reads the session cookie, falling back to an Authorization bearer header.
func sessionToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireSession authenticates every request against provider and the allowlist.
//
// A missing or invalid session is answered with 401. A valid session whose email is not on the
// allowlist, or whose entry is inactive, is answered with 403. The allowlist entry is stored in
// the request context, see [CurrentUser].
func RequireSession(provider services.AuthProvider, users UserLookup, cache *SessionCache, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				WriteError(w, fmt.Errorf("%w: no session", shared.ErrNotAuthenticated))
				return
			}

			identity, ok := cache.Get(token)
			if !ok {
				var err error
				if identity, err = provider.Validate(r.Context(), token); err != nil {
					WriteError(w, err)
					return
				}
				cache.Put(token, identity)
			}

			user, err := users.GetByEmail(r.Context(), identity.Email)
			if errors.Is(err, shared.ErrNotFound) {
				WriteError(w, fmt.Errorf("%w: %s is not on the allowlist", shared.ErrForbidden, identity.Email))
				return
			}
			if err != nil {
				WriteError(w, err)
				return
			}
			if !user.Active {
				WriteError(w, fmt.Errorf("%w: %s is inactive", shared.ErrForbidden, identity.Email))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// RequireModule rejects users without access to module with 403.
// Viewers are further limited to safe methods.
func RequireModule(module models.Module) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				WriteError(w, shared.ErrNotAuthenticated)
				return
			}
			if !user.CanAccess(module) {
				WriteError(w, fmt.Errorf("%w: no access to %s", shared.ErrForbidden, module))
				return
			}
			if !safeMethod(r.Method) && !user.CanWrite() {
				WriteError(w, fmt.Errorf("%w: read-only access", shared.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
