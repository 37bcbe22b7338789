package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"golang.org/x/oauth2"
)

const (
	stateCookie    = "gestio_oauth_state"
	verifierCookie = "gestio_oauth_verifier"
	flowMaxAge     = 600
)

// CookieConfig controls the session cookie written after login.
type CookieConfig struct {
	Name   string
	Secure bool
}

// LoginHandler runs the OAuth2 authorization code flow against the hosted auth provider.
// Implements the Handler interface for registration with a Router.
type LoginHandler struct {
	config *oauth2.Config
	cookie CookieConfig
	cache  *SessionCache
	logger *log.Logger
}

// NewLoginHandler creates a login handler. cache may be nil; when set, logout evicts the session from it.
func NewLoginHandler(config *oauth2.Config, cookie CookieConfig, cache *SessionCache, logger *log.Logger) *LoginHandler {
	return &LoginHandler{config: config, cookie: cookie, cache: cache, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *LoginHandler) Routes() []string {
	return []string{"GET /auth/login", "GET /auth/callback", "POST /auth/logout"}
}

// ServeHTTP dispatches to the login, callback and logout steps.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		h.login(w, r)
	case "/auth/callback":
		h.callback(w, r)
	case "/auth/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login stores a random state and PKCE verifier in short-lived cookies and redirects to the provider.
func (h *LoginHandler) login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	verifier := oauth2.GenerateVerifier()

	h.setFlowCookie(w, stateCookie, state, flowMaxAge)
	h.setFlowCookie(w, verifierCookie, verifier, flowMaxAge)

	http.Redirect(w, r, h.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), http.StatusFound)
}

// callback validates the state parameter (CSRF protection), exchanges the authorization code for tokens
// and stores the access token in the session cookie.
func (h *LoginHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	expected, err := r.Cookie(stateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(expected.Value), []byte(q.Get("state"))) != 1 {
		WriteError(w, fmt.Errorf("%w: invalid state parameter", shared.ErrInvalidInput))
		return
	}

	code := q.Get("code")
	if code == "" {
		WriteError(w, fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description")))
		return
	}

	var opts []oauth2.AuthCodeOption
	if v, err := r.Cookie(verifierCookie); err == nil {
		opts = append(opts, oauth2.VerifierOption(v.Value))
	}

	token, err := h.config.Exchange(r.Context(), code, opts...)
	if err != nil {
		h.logger.Warn("token exchange failed", "error", err)
		WriteError(w, fmt.Errorf("%w: token exchange failed", shared.ErrAuthFailed))
		return
	}

	h.setFlowCookie(w, stateCookie, "", -1)
	h.setFlowCookie(w, verifierCookie, "", -1)

	session := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !token.Expiry.IsZero() {
		session.Expires = token.Expiry
	}
	http.SetCookie(w, session)

	http.Redirect(w, r, "/", http.StatusFound)
}

// logout clears the session cookie.
func (h *LoginHandler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookie.Name); err == nil {
		h.cache.Forget(c.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *LoginHandler) setFlowCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
