package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

var _ models.Repository[*models.AllowedUser] = (*AllowlistRepository)(nil)

const allowlistColumns = `id, sequence, email, display_name, role, can_reservations, can_kitchen, can_maintenance,
	can_cheffing, can_admin, is_active, created_at, updated_at, deleted_at`

// AllowlistRepository persists [models.AllowedUser] entries.
//
// Emails are unique among non-deleted entries, so a removed user can be added again.
type AllowlistRepository struct {
	db *sql.DB
}

// NewAllowlistRepository creates a new AllowlistRepository with the given database connection
func NewAllowlistRepository(db *sql.DB) *AllowlistRepository {
	return &AllowlistRepository{db: db}
}

// Create inserts a new [models.AllowedUser] with generated ID and sequence
func (r *AllowlistRepository) Create(ctx context.Context, user *models.AllowedUser) error {
	if err := user.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "allowed_users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	user.ID = shared.GenerateID()
	user.Sequence = sequence
	user.Touch(time.Now())

	query := `
		INSERT INTO allowed_users (id, sequence, email, display_name, role, can_reservations, can_kitchen,
			can_maintenance, can_cheffing, can_admin, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	p := user.Permissions
	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.Sequence, user.Email, user.DisplayName, user.Role,
		p.Reservations, p.Kitchen, p.Maintenance, p.Cheffing, p.Admin,
		user.Active, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert", "allowed user "+user.Email, err)
	}
	return nil
}

// Get retrieves an allowlist entry by ID, excluding soft-deleted entries
func (r *AllowlistRepository) Get(ctx context.Context, id string) (*models.AllowedUser, error) {
	query := `SELECT ` + allowlistColumns + ` FROM allowed_users WHERE id = ? AND deleted_at IS NULL`

	user, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "allowed user", id)
	}
	return user, nil
}

// GetByEmail retrieves an allowlist entry by email, case-insensitively
func (r *AllowlistRepository) GetByEmail(ctx context.Context, email string) (*models.AllowedUser, error) {
	email = shared.NormalizeEmail(email)
	query := `SELECT ` + allowlistColumns + ` FROM allowed_users WHERE email = ? AND deleted_at IS NULL`

	user, err := r.scan(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, notFound(err, "allowed user", email)
	}
	return user, nil
}

// Update modifies an existing allowlist entry
func (r *AllowlistRepository) Update(ctx context.Context, user *models.AllowedUser) error {
	if err := user.Validate(); err != nil {
		return err
	}
	user.Touch(time.Now())

	query := `
		UPDATE allowed_users
		SET email = ?, display_name = ?, role = ?, can_reservations = ?, can_kitchen = ?, can_maintenance = ?,
			can_cheffing = ?, can_admin = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	p := user.Permissions
	result, err := r.db.ExecContext(ctx, query,
		user.Email, user.DisplayName, user.Role,
		p.Reservations, p.Kitchen, p.Maintenance, p.Cheffing, p.Admin,
		user.Active, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return writeErr("update", "allowed user "+user.Email, err)
	}
	return mustAffect(result, "allowed user", user.ID)
}

// Delete soft-deletes an allowlist entry by ID
func (r *AllowlistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE allowed_users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete allowed user: %w", err)
	}
	return mustAffect(result, "allowed user", id)
}

// List retrieves allowlist entries ordered by email.
//
// Supported criteria: "role" (string), "active" (bool).
func (r *AllowlistRepository) List(ctx context.Context, criteria map[string]any) ([]*models.AllowedUser, error) {
	query := `SELECT ` + allowlistColumns + ` FROM allowed_users WHERE deleted_at IS NULL`
	args := []any{}

	if role, ok := criteria["role"].(string); ok && role != "" {
		query += " AND role = ?"
		args = append(args, role)
	}

	if active, ok := criteria["active"].(bool); ok {
		query += " AND is_active = ?"
		args = append(args, active)
	}

	query += " ORDER BY email ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	users := []*models.AllowedUser{}
	for rows.Next() {
		user, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

// CountActiveAdmins returns the number of active entries with the admin role.
func (r *AllowlistRepository) CountActiveAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM allowed_users WHERE role = 'admin' AND is_active = 1 AND deleted_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

func (r *AllowlistRepository) scan(row scanner) (*models.AllowedUser, error) {
	var (
		user      models.AllowedUser
		p         = &user.Permissions
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&user.ID, &user.Sequence, &user.Email, &user.DisplayName, &user.Role,
		&p.Reservations, &p.Kitchen, &p.Maintenance, &p.Cheffing, &p.Admin,
		&user.Active, &user.CreatedAt, &user.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	user.DeletedAt = timePtr(deletedAt)
	return &user, nil
}
