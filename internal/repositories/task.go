package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

var _ models.Repository[*models.Task] = (*TaskRepository)(nil)

const taskColumns = `id, sequence, area, title, description, priority, status, routine_id, week_start, window_start,
	window_end, completed_at, completed_by, created_by, created_at, updated_at, deleted_at`

const taskOrder = ` ORDER BY CASE priority WHEN 'urgent' THEN 3 WHEN 'high' THEN 2 WHEN 'normal' THEN 1 ELSE 0 END DESC,
	COALESCE(window_end, '9999-12-31') ASC, sequence ASC`

// TaskRepository persists board [models.Task] rows for both areas.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new [models.Task] with generated ID and sequence
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	_, err := r.insert(ctx, task, "INSERT")
	return err
}

// CreateGenerated inserts a routine task unless the routine already produced one for the week.
//
// Deleted tasks still count, so removing a generated task does not bring it back on the next run.
func (r *TaskRepository) CreateGenerated(ctx context.Context, task *models.Task) (bool, error) {
	if task.RoutineID == "" || task.WeekStart == "" {
		return false, fmt.Errorf("%w: generated tasks need a routine and a week", shared.ErrInvalidInput)
	}

	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM tasks WHERE routine_id = ? AND week_start = ?`, task.RoutineID, task.WeekStart,
	).Scan(&exists)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to check generated task: %w", err)
	}

	return r.insert(ctx, task, "INSERT OR IGNORE")
}

func (r *TaskRepository) insert(ctx context.Context, task *models.Task, verb string) (bool, error) {
	if err := task.Validate(); err != nil {
		return false, err
	}

	sequence, err := NextSequence(ctx, r.db, "tasks")
	if err != nil {
		return false, fmt.Errorf("failed to generate sequence: %w", err)
	}

	task.ID = shared.GenerateID()
	task.Sequence = sequence
	task.Touch(time.Now())

	query := verb + ` INTO tasks (id, sequence, area, title, description, priority, status, routine_id, week_start,
			window_start, window_end, completed_at, completed_by, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		task.ID, task.Sequence, task.Area, task.Title, task.Description, task.Priority, task.Status,
		nullString(task.RoutineID), nullString(task.WeekStart), nullString(task.WindowStart), nullString(task.WindowEnd),
		task.CompletedAt, task.CompletedBy, task.CreatedBy, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return false, writeErr("insert", "task", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// Get retrieves a task by ID, excluding soft-deleted tasks
func (r *TaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND deleted_at IS NULL`

	task, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "task", id)
	}
	return task, nil
}

// Update modifies an existing task. Area, routine and week are fixed at creation.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	task.Touch(time.Now())

	query := `
		UPDATE tasks
		SET title = ?, description = ?, priority = ?, status = ?, window_start = ?, window_end = ?,
			completed_at = ?, completed_by = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Priority, task.Status,
		nullString(task.WindowStart), nullString(task.WindowEnd),
		task.CompletedAt, task.CompletedBy, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return writeErr("update", "task", err)
	}
	return mustAffect(result, "task", task.ID)
}

// Delete soft-deletes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return mustAffect(result, "task", id)
}

// List retrieves tasks ordered by priority, window end and sequence.
//
// Supported criteria:
//   - "area" ([models.Area] or string)
//   - "status" (string): exact status, overrides include_closed
//   - "week" (YYYY-MM-DD Monday): tasks generated for that week
//   - "on" (YYYY-MM-DD): tasks whose window covers the date, plus open tasks overdue by then
//   - "include_closed" (bool): also return done and cancelled tasks
func (r *TaskRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE deleted_at IS NULL`
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

	status, _ := criteria["status"].(string)
	includeClosed, _ := criteria["include_closed"].(bool)
	switch {
	case status != "":
		query += " AND status = ?"
		args = append(args, status)
	case !includeClosed:
		query += " AND status IN ('pending', 'in_progress')"
	}

	if week, ok := criteria["week"].(string); ok && week != "" {
		query += " AND week_start = ?"
		args = append(args, week)
	}

	if on, ok := criteria["on"].(string); ok && on != "" {
		query += ` AND (
			(window_start IS NOT NULL AND window_start <= ? AND window_end >= ?)
			OR (window_start IS NULL AND window_end IS NULL)
			OR (status IN ('pending', 'in_progress') AND window_end < ?)
		)`
		args = append(args, on, on, on)
	}

	query += taskOrder

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) scan(row scanner) (*models.Task, error) {
	var (
		task                   models.Task
		routineID, weekStart   sql.NullString
		windowStart, windowEnd sql.NullString
		completedAt, deletedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID, &task.Sequence, &task.Area, &task.Title, &task.Description, &task.Priority, &task.Status,
		&routineID, &weekStart, &windowStart, &windowEnd, &completedAt, &task.CompletedBy, &task.CreatedBy,
		&task.CreatedAt, &task.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	task.RoutineID = routineID.String
	task.WeekStart = weekStart.String
	task.WindowStart = windowStart.String
	task.WindowEnd = windowEnd.String
	task.CompletedAt = timePtr(completedAt)
	task.DeletedAt = timePtr(deletedAt)
	return &task, nil
}
