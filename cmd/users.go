package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/repositories"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/urfave/cli/v3"
)

// withUsers opens the database and hands the allowlist repository to fn.
func (r *Runner) withUsers(cmd *cli.Command, fn func(users *repositories.AllowlistRepository) error) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(repositories.NewAllowlistRepository(db))
}

// UsersAdd adds an email to the allowlist. Used to bootstrap the first admin before the web UI is reachable.
func (r *Runner) UsersAdd(ctx context.Context, cmd *cli.Command) error {
	perms, err := parseModules(strings.Split(cmd.String("modules"), ","))
	if err != nil {
		return err
	}

	role := models.Role(cmd.String("role"))
	user := models.NewAllowedUser(cmd.String("email"), cmd.String("name"), role)
	user.Permissions = perms

	return r.withUsers(cmd, func(users *repositories.AllowlistRepository) error {
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to add %s: %w", user.Email, err)
		}
		r.logger.Info("user added", "email", user.Email, "role", user.Role)
		return r.writePlain("✓ Added %s (%s)\n", user.Email, user.Role)
	})
}

// UsersList prints the allowlist.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	return r.withUsers(cmd, func(users *repositories.AllowlistRepository) error {
		criteria := map[string]any{}
		if role := cmd.String("role"); role != "" {
			criteria["role"] = role
		}

		list, err := users.List(ctx, criteria)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(list, true)
		}

		r.writePlainHeader(fmt.Sprintf("Allowlist (%d)", len(list)))
		for _, u := range list {
			state := "active"
			if !u.Active {
				state = "inactive"
			}
			r.writePlain("%-32s %-7s %-8s %s\n", u.Email, u.Role, state, moduleList(u))
		}
		return nil
	})
}

// UsersRemove deletes an allowlist entry by email. The last active admin cannot be removed.
func (r *Runner) UsersRemove(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	return r.withUsers(cmd, func(users *repositories.AllowlistRepository) error {
		user, err := users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		if user.Active && user.Role == models.RoleAdmin {
			admins, err := users.CountActiveAdmins(ctx)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return fmt.Errorf("%w: %s is the last active admin", shared.ErrConflict, user.Email)
			}
		}

		if err := users.Delete(ctx, user.ID); err != nil {
			return err
		}
		r.logger.Info("user removed", "email", user.Email)
		return r.writePlain("✓ Removed %s\n", user.Email)
	})
}

func moduleList(u *models.AllowedUser) string {
	if u.Role == models.RoleAdmin {
		return "all modules"
	}
	names := []string{}
	for _, m := range models.Modules {
		if u.Permissions.Allows(m) {
			names = append(names, string(m))
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
