package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/server"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	tu "github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/testing"
)

// fixedNow is Wednesday 2026-07-15.
var fixedNow = time.Date(2026, time.July, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	t        *testing.T
	db       *sql.DB
	app      *App
	handler  http.Handler
	provider *tu.MockAuthProvider
	users    map[string]*models.AllowedUser
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// newHarness serves the API over a fresh database with these allowlisted users:
//
//	admin   admin, every module
//	chef    staff, kitchen and cheffing
//	fixer   staff, maintenance
//	host    viewer, reservations
func newHarness(t *testing.T) *harness {
	t.Helper()

	db := setupTestDB(t)
	app := NewApp(db, time.UTC, shared.NewLogger(io.Discard))
	app.Now = func() time.Time { return fixedNow }

	admin := models.NewAllowedUser("admin@example.com", "Admin", models.RoleAdmin)
	chef := models.NewAllowedUser("chef@example.com", "Chef", models.RoleStaff)
	chef.Permissions.Kitchen = true
	chef.Permissions.Cheffing = true
	fixer := models.NewAllowedUser("fixer@example.com", "Fixer", models.RoleStaff)
	fixer.Permissions.Maintenance = true
	host := models.NewAllowedUser("host@example.com", "Host", models.RoleViewer)
	host.Permissions.Reservations = true

	h := &harness{
		t:        t,
		db:       db,
		app:      app,
		provider: tu.NewMockAuthProvider(),
		users:    map[string]*models.AllowedUser{},
	}

	for name, u := range map[string]*models.AllowedUser{"admin": admin, "chef": chef, "fixer": fixer, "host": host} {
		if err := app.Users.Create(context.Background(), u); err != nil {
			t.Fatalf("failed to allowlist %s: %v", name, err)
		}
		h.provider.AddSession(name+"-token", u.Email)
		h.users[name] = u
	}
	h.provider.AddSession("stranger-token", "stranger@example.com")

	router := server.NewBasicRouter()
	app.Register(router, server.RequireSession(h.provider, app.Users, nil, "gestio_session"))
	h.handler = router
	return h
}

// do sends a request as the named user; an empty user sends no credentials.
// body is sent as-is when it is a string, otherwise as JSON.
func (h *harness) do(user, method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user+"-token")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// expect fails the test unless the response has the wanted status.
func expect(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestMe(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		user     string
		modules  []models.Module
		canWrite bool
	}{
		{user: "admin", modules: models.Modules, canWrite: true},
		{user: "chef", modules: []models.Module{models.ModuleKitchen, models.ModuleCheffing}, canWrite: true},
		{user: "host", modules: []models.Module{models.ModuleReservations}, canWrite: false},
	}

	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			rec := h.do(tt.user, http.MethodGet, "/api/me", nil)
			expect(t, rec, http.StatusOK)

			got := decodeAs[meResponse](t, rec)
			if got.User.Email != h.users[tt.user].Email {
				t.Errorf("expected %s, got %s", h.users[tt.user].Email, got.User.Email)
			}
			if diff := cmp.Diff(tt.modules, got.Modules); diff != "" {
				t.Errorf("modules mismatch (-want +got):\n%s", diff)
			}
			if got.CanWrite != tt.canWrite {
				t.Errorf("expected can_write %v, got %v", tt.canWrite, got.CanWrite)
			}
		})
	}
}

func TestAccessControl(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		user   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "no credentials", method: http.MethodGet, path: "/api/me", want: http.StatusUnauthorized},
		{name: "not allowlisted", user: "stranger", method: http.MethodGet, path: "/api/me", want: http.StatusForbidden},
		{name: "module not granted", user: "chef", method: http.MethodGet, path: "/api/reservations", want: http.StatusForbidden},
		{name: "viewer reads", user: "host", method: http.MethodGet, path: "/api/reservations", want: http.StatusOK},
		{
			name:   "viewer cannot write",
			user:   "host",
			method: http.MethodPost,
			path:   "/api/reservations",
			body:   map[string]any{"date": "2026-07-15", "time": "20:00", "customer_name": "Puig", "party_size": 2},
			want:   http.StatusForbidden,
		},
		{name: "kitchen staff on maintenance", user: "chef", method: http.MethodGet, path: "/api/maintenance/tasks", want: http.StatusForbidden},
		{name: "maintenance staff on maintenance", user: "fixer", method: http.MethodGet, path: "/api/maintenance/tasks", want: http.StatusOK},
		{name: "admin module", user: "chef", method: http.MethodGet, path: "/api/admin/users", want: http.StatusForbidden},
		{name: "admin passes every module", user: "admin", method: http.MethodGet, path: "/api/cheffing/dishes", want: http.StatusOK},
		{name: "unknown route", user: "admin", method: http.MethodGet, path: "/api/nothing", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expect(t, h.do(tt.user, tt.method, tt.path, tt.body), tt.want)
		})
	}
}

func TestDecode(t *testing.T) {
	h := newHarness(t)

	t.Run("Empty body", func(t *testing.T) {
		rec := h.do("admin", http.MethodPost, "/api/reservations", "")
		expect(t, rec, http.StatusBadRequest)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		rec := h.do("admin", http.MethodPost, "/api/reservations", "{not json")
		expect(t, rec, http.StatusBadRequest)
	})
}
