// Package services implements the clients for the external services the application relies on.
//
// # Auth Provider Interface
//
// Authentication is delegated to a hosted provider. The application never sees passwords: it
// only validates session tokens through [AuthProvider] and runs the OAuth2 code exchange through
// [OAuthProvider].
//
// # Hosted Auth Implementation
//
// [HostedAuth] calls GET {provider_url}/auth/v1/user with the session token as a bearer token
// and the project key in the apikey header. The returned account is reduced to an [Identity].
//
// [HostedAuth.OAuthConfig] builds the [oauth2.Config] used by the login handler in the server package.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : token missing, expired or revoked (401/403 from the provider)
//   - [shared.ErrServiceUnavailable] : provider unreachable or answering with an unexpected status
//   - [shared.ErrMissingConfig] : provider URL or API key not configured
package services
