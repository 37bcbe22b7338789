package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/services"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	tu "github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/testing"
)

type userMap map[string]*models.AllowedUser

func (m userMap) GetByEmail(_ context.Context, email string) (*models.AllowedUser, error) {
	u, ok := m[shared.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, shared.ErrNotFound)
	}
	return u, nil
}

func testUsers() userMap {
	admin := models.NewAllowedUser("admin@example.com", "Admin", models.RoleAdmin)

	chef := models.NewAllowedUser("chef@example.com", "Chef", models.RoleStaff)
	chef.Permissions.Kitchen = true

	host := models.NewAllowedUser("host@example.com", "Host", models.RoleViewer)
	host.Permissions.Reservations = true

	gone := models.NewAllowedUser("gone@example.com", "Gone", models.RoleStaff)
	gone.Active = false

	return userMap{admin.Email: admin, chef.Email: chef, host.Email: host, gone.Email: gone}
}

func testProvider() *tu.MockAuthProvider {
	p := tu.NewMockAuthProvider()
	p.AddSession("admin-token", "admin@example.com")
	p.AddSession("chef-token", "Chef@Example.com")
	p.AddSession("host-token", "host@example.com")
	p.AddSession("gone-token", "gone@example.com")
	p.AddSession("stranger-token", "stranger@example.com")
	return p
}

func TestRequireSession(t *testing.T) {
	provider := testProvider()
	handler := RequireSession(provider, testUsers(), nil, "gestio_session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := CurrentUser(r.Context())
		w.Write([]byte(u.Email))
	}))

	tests := []struct {
		name   string
		cookie string
		bearer string
		want   int
		email  string
	}{
		{name: "No session", want: http.StatusUnauthorized},
		{name: "Unknown token", cookie: "forged", want: http.StatusUnauthorized},
		{name: "Not allowlisted", cookie: "stranger-token", want: http.StatusForbidden},
		{name: "Inactive", cookie: "gone-token", want: http.StatusForbidden},
		{name: "Cookie", cookie: "chef-token", want: http.StatusOK, email: "chef@example.com"},
		{name: "Bearer", bearer: "admin-token", want: http.StatusOK, email: "admin@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "gestio_session", Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.email != "" && rec.Body.String() != tt.email {
				t.Errorf("expected user %s, got %s", tt.email, rec.Body.String())
			}
		})
	}

	t.Run("Provider down", func(t *testing.T) {
		down := tu.NewMockAuthProvider()
		down.Err = fmt.Errorf("%w: timeout", shared.ErrServiceUnavailable)
		h := RequireSession(down, testUsers(), nil, "gestio_session")(http.HandlerFunc(okHandler))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer chef-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestSessionCache(t *testing.T) {
	t.Run("Caches validations for the TTL", func(t *testing.T) {
		provider := testProvider()
		cache := NewSessionCache(time.Minute)
		now := time.Date(2026, 7, 14, 12, 0, 0, 0, time.UTC)
		cache.now = func() time.Time { return now }

		handler := RequireSession(provider, testUsers(), cache, "gestio_session")(http.HandlerFunc(okHandler))
		send := func() int {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: "gestio_session", Value: "chef-token"})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec.Code
		}

		send()
		send()
		if provider.Calls() != 1 {
			t.Errorf("expected one provider call within TTL, got %d", provider.Calls())
		}

		now = now.Add(2 * time.Minute)
		send()
		if provider.Calls() != 2 {
			t.Errorf("expected revalidation after TTL, got %d calls", provider.Calls())
		}

		cache.Forget("chef-token")
		provider.Revoke("chef-token")
		if code := send(); code != http.StatusUnauthorized {
			t.Errorf("expected revoked session to be rejected, got %d", code)
		}
	})

	t.Run("Zero TTL disables caching", func(t *testing.T) {
		cache := NewSessionCache(0)
		cache.Put("t", &services.Identity{Email: "a@example.com"})
		if _, ok := cache.Get("t"); ok {
			t.Error("expected nothing cached")
		}
	})
}

func TestRequireModule(t *testing.T) {
	users := testUsers()

	tests := []struct {
		name   string
		email  string
		module models.Module
		method string
		want   int
	}{
		{name: "Admin passes every module", email: "admin@example.com", module: models.ModuleCheffing, method: http.MethodPost, want: http.StatusOK},
		{name: "Staff with flag", email: "chef@example.com", module: models.ModuleKitchen, method: http.MethodPost, want: http.StatusOK},
		{name: "Staff without flag", email: "chef@example.com", module: models.ModuleMaintenance, method: http.MethodGet, want: http.StatusForbidden},
		{name: "Staff on admin", email: "chef@example.com", module: models.ModuleAdmin, method: http.MethodGet, want: http.StatusForbidden},
		{name: "Viewer reads", email: "host@example.com", module: models.ModuleReservations, method: http.MethodGet, want: http.StatusOK},
		{name: "Viewer writes", email: "host@example.com", module: models.ModuleReservations, method: http.MethodPut, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req = req.WithContext(WithUser(req.Context(), users[tt.email]))

			rec := httptest.NewRecorder()
			RequireModule(tt.module)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}

	t.Run("No user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireModule(models.ModuleKitchen)(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}
