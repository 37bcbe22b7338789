// Hosted auth provider implementation of [AuthProvider]
//
// The provider exposes the account of a session at GET /auth/v1/user and issues tokens through
// a standard OAuth2 authorization code flow.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"golang.org/x/oauth2"
)

const userEndpoint = "/auth/v1/user"

// HostedAuth implements [OAuthProvider] against the hosted auth provider.
type HostedAuth struct {
	baseURL    string
	apiKey     string
	config     *oauth2.Config
	httpClient *http.Client
}

// NewHostedAuth creates a provider client from the [auth] config section.
//
// The authorize and token URLs default to the provider's /auth/v1 endpoints.
func NewHostedAuth(cfg shared.AuthConfig, client *http.Client) (*HostedAuth, error) {
	baseURL := strings.TrimRight(cfg.ProviderURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: auth.provider_url", shared.ErrMissingConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: auth.api_key", shared.ErrMissingConfig)
	}
	if client == nil {
		client = http.DefaultClient
	}

	authURL, tokenURL := cfg.AuthURL, cfg.TokenURL
	if authURL == "" {
		authURL = baseURL + "/auth/v1/authorize"
	}
	if tokenURL == "" {
		tokenURL = baseURL + "/auth/v1/token"
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}

	return &HostedAuth{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		config:     config,
		httpClient: client,
	}, nil
}

// OAuthConfig returns the OAuth2 configuration for the login flow.
func (h *HostedAuth) OAuthConfig() *oauth2.Config {
	return h.config
}

// Validate looks up the account of token at the provider.
//
// 401 and 403 answers mean the session is not valid; any other failure means the provider
// could not be asked and is reported as [shared.ErrServiceUnavailable].
func (h *HostedAuth) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+userEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", h.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: auth request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, shared.ErrNotAuthenticated
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: auth provider returned status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("%w: failed to decode auth response: %v", shared.ErrServiceUnavailable, err)
	}
	if identity.Email == "" {
		return nil, fmt.Errorf("%w: session has no email", shared.ErrNotAuthenticated)
	}

	identity.Email = shared.NormalizeEmail(identity.Email)
	return &identity, nil
}
