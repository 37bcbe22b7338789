package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/server"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

func (a *App) listUsers(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{}
	if role := r.URL.Query().Get("role"); role != "" {
		criteria["role"] = role
	}
	active, present, err := queryBool(r, "active")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if present {
		criteria["active"] = active
	}

	list, err := a.Users.List(r.Context(), criteria)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

func (a *App) createUser(w http.ResponseWriter, r *http.Request) {
	user := models.AllowedUser{Active: true}
	if err := decode(w, r, &user); err != nil {
		server.WriteError(w, err)
		return
	}
	user.Meta = models.Meta{}

	if err := a.Users.Create(r.Context(), &user); err != nil {
		server.WriteError(w, err)
		return
	}

	a.Logger.Info("allowlisted user", "email", user.Email, "role", user.Role, "by", userEmail(r))
	server.WriteJSON(w, http.StatusCreated, &user)
}

func (a *App) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.Users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, user)
}

func (a *App) updateUser(w http.ResponseWriter, r *http.Request) {
	existing, err := a.Users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	user := *existing
	if err := decode(w, r, &user); err != nil {
		server.WriteError(w, err)
		return
	}
	user.Meta = existing.Meta

	if isSelf(r, existing) && demotes(existing, &user) {
		server.WriteError(w, fmt.Errorf("%w: you cannot deactivate or demote your own account", shared.ErrInvalidInput))
		return
	}
	if existing.Active && existing.Role == models.RoleAdmin && !(user.Active && user.Role == models.RoleAdmin) {
		if err := a.keepOneAdmin(r.Context()); err != nil {
			server.WriteError(w, err)
			return
		}
	}

	if err := a.Users.Update(r.Context(), &user); err != nil {
		server.WriteError(w, err)
		return
	}

	a.Logger.Info("updated allowlisted user", "email", user.Email, "role", user.Role, "active", user.Active, "by", userEmail(r))
	server.WriteJSON(w, http.StatusOK, &user)
}

func (a *App) deleteUser(w http.ResponseWriter, r *http.Request) {
	existing, err := a.Users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	if isSelf(r, existing) {
		server.WriteError(w, fmt.Errorf("%w: you cannot delete your own account", shared.ErrInvalidInput))
		return
	}
	if existing.Active && existing.Role == models.RoleAdmin {
		if err := a.keepOneAdmin(r.Context()); err != nil {
			server.WriteError(w, err)
			return
		}
	}

	if err := a.Users.Delete(r.Context(), existing.ID); err != nil {
		server.WriteError(w, err)
		return
	}

	a.Logger.Info("removed allowlisted user", "email", existing.Email, "by", userEmail(r))
	w.WriteHeader(http.StatusNoContent)
}

// keepOneAdmin refuses to remove the last active admin.
func (a *App) keepOneAdmin(ctx context.Context) error {
	n, err := a.Users.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return fmt.Errorf("%w: at least one active admin is required", shared.ErrConflict)
	}
	return nil
}

func isSelf(r *http.Request, u *models.AllowedUser) bool {
	current, ok := server.CurrentUser(r.Context())
	return ok && current.ID == u.ID
}

// demotes reports whether the change from before to after loses access to user management or writes.
func demotes(before, after *models.AllowedUser) bool {
	if !after.Active {
		return true
	}
	if before.Role == models.RoleAdmin && after.Role != models.RoleAdmin {
		return true
	}
	return !after.CanAccess(models.ModuleAdmin) || !after.CanWrite()
}
