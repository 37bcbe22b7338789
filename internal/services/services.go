// package services defines the clients for the external services the application depends on
//
// Hosted auth provider (session validation, OAuth code flow)
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Identity is the provider account behind a valid session token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthProvider validates session tokens issued by the hosted auth provider.
type AuthProvider interface {
	// Validate resolves token to the account it was issued for.
	// Returns [shared.ErrNotAuthenticated] when the token is missing, expired or revoked.
	Validate(ctx context.Context, token string) (*Identity, error)
}

// OAuthProvider is an [AuthProvider] that also runs the OAuth2 authorization code flow.
type OAuthProvider interface {
	AuthProvider
	OAuthConfig() *oauth2.Config
}
