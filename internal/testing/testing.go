// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/services"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"golang.org/x/oauth2"
)

// MockAuthProvider is a test double for [services.AuthProvider] backed by a token → identity map.
type MockAuthProvider struct {
	mu       sync.Mutex
	sessions map[string]*services.Identity
	calls    int
	Err      error // returned for every call when set
	Config   *oauth2.Config
}

// NewMockAuthProvider creates a provider with no valid sessions.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{sessions: map[string]*services.Identity{}}
}

// AddSession makes token valid for email.
func (m *MockAuthProvider) AddSession(token, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = &services.Identity{ID: "id-" + token, Email: email}
}

// Revoke makes token invalid.
func (m *MockAuthProvider) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// Calls returns how many times Validate was called.
func (m *MockAuthProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockAuthProvider) Validate(ctx context.Context, token string) (*services.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.Err != nil {
		return nil, m.Err
	}
	id, ok := m.sessions[token]
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}
	return id, nil
}

func (m *MockAuthProvider) OAuthConfig() *oauth2.Config {
	return m.Config
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
