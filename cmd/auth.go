package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/repositories"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/services"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthStatus reports the login endpoints the server will use.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	auth, err := services.NewHostedAuth(config.Auth, r.httpClient)
	if err != nil {
		return err
	}

	oauth := auth.OAuthConfig()
	r.writePlainHeader("Hosted auth provider")
	r.writePlain("Provider:  %s\n", config.Auth.ProviderURL)
	r.writePlain("Authorize: %s\n", oauth.Endpoint.AuthURL)
	r.writePlain("Token:     %s\n", oauth.Endpoint.TokenURL)
	r.writePlain("Redirect:  %s\n", oauth.RedirectURL)
	r.writePlain("Login:     %s/auth/login\n", config.Server.BaseURL)
	return nil
}

// AuthCheck validates a session token against the provider and reports the allowlist access it grants.
func (r *Runner) AuthCheck(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	auth, err := services.NewHostedAuth(config.Auth, r.httpClient)
	if err != nil {
		return err
	}

	identity, err := auth.Validate(ctx, cmd.String("token"))
	if err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}
	r.logger.Info("token valid", "email", identity.Email)

	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	user, err := repositories.NewAllowlistRepository(db).GetByEmail(ctx, identity.Email)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %s is not on the allowlist", shared.ErrForbidden, identity.Email)
	}
	if err != nil {
		return err
	}

	r.writePlain("✓ %s (%s)\n", identity.Email, identity.ID)
	for _, m := range models.Modules {
		mark := "✗"
		if user.CanAccess(m) {
			mark = "✓"
		}
		r.writePlain("  %s %s\n", mark, m)
	}
	if !user.CanWrite() {
		r.writePlain("  read only\n")
	}
	return nil
}
