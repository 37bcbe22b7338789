package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

var _ models.Repository[*models.Routine] = (*RoutineRepository)(nil)

const routineColumns = `id, sequence, area, title, description, start_dow, end_dow, priority, is_active,
	created_at, updated_at, deleted_at`

// RoutineRepository persists weekly [models.Routine] templates.
type RoutineRepository struct {
	db *sql.DB
}

// NewRoutineRepository creates a new RoutineRepository with the given database connection
func NewRoutineRepository(db *sql.DB) *RoutineRepository {
	return &RoutineRepository{db: db}
}

// Create inserts a new [models.Routine] with generated ID and sequence
func (r *RoutineRepository) Create(ctx context.Context, routine *models.Routine) error {
	if err := routine.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "routines")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	routine.ID = shared.GenerateID()
	routine.Sequence = sequence
	routine.Touch(time.Now())

	query := `
		INSERT INTO routines (id, sequence, area, title, description, start_dow, end_dow, priority, is_active,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		routine.ID, routine.Sequence, routine.Area, routine.Title, routine.Description,
		routine.StartDOW, routine.EndDOW, routine.Priority, routine.Active,
		routine.CreatedAt, routine.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert", "routine", err)
	}
	return nil
}

// Get retrieves a routine by ID, excluding soft-deleted routines
func (r *RoutineRepository) Get(ctx context.Context, id string) (*models.Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines WHERE id = ? AND deleted_at IS NULL`

	routine, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "routine", id)
	}
	return routine, nil
}

// Update modifies an existing routine. Tasks already generated keep their window.
func (r *RoutineRepository) Update(ctx context.Context, routine *models.Routine) error {
	if err := routine.Validate(); err != nil {
		return err
	}
	routine.Touch(time.Now())

	query := `
		UPDATE routines
		SET title = ?, description = ?, start_dow = ?, end_dow = ?, priority = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		routine.Title, routine.Description, routine.StartDOW, routine.EndDOW, routine.Priority, routine.Active,
		routine.UpdatedAt, routine.ID,
	)
	if err != nil {
		return writeErr("update", "routine", err)
	}
	return mustAffect(result, "routine", routine.ID)
}

// Delete soft-deletes a routine by ID
func (r *RoutineRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE routines SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete routine: %w", err)
	}
	return mustAffect(result, "routine", id)
}

// List retrieves routines ordered by start day and sequence.
//
// Supported criteria: "area" ([models.Area] or string), "active" (bool).
func (r *RoutineRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Routine, error) {
	query := `SELECT ` + routineColumns + ` FROM routines WHERE deleted_at IS NULL`
	args := []any{}

	switch area := criteria["area"].(type) {
	case models.Area:
		query += " AND area = ?"
		args = append(args, string(area))
	case string:
		if area != "" {
			query += " AND area = ?"
			args = append(args, area)
		}
	}

	if active, ok := criteria["active"].(bool); ok {
		query += " AND is_active = ?"
		args = append(args, active)
	}

	query += " ORDER BY start_dow ASC, sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query routines: %w", err)
	}
	defer rows.Close()

	routines := []*models.Routine{}
	for rows.Next() {
		routine, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routine: %w", err)
		}
		routines = append(routines, routine)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return routines, nil
}

func (r *RoutineRepository) scan(row scanner) (*models.Routine, error) {
	var (
		routine   models.Routine
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&routine.ID, &routine.Sequence, &routine.Area, &routine.Title, &routine.Description,
		&routine.StartDOW, &routine.EndDOW, &routine.Priority, &routine.Active,
		&routine.CreatedAt, &routine.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	routine.DeletedAt = timePtr(deletedAt)
	return &routine, nil
}
