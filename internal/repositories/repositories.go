// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations, soft deletes, and sequence generation.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// querier is satisfied by both [sql.DB] and [sql.Tx].
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., task #42, dish #15).
// Call it before opening a write transaction: an in-memory database only has one connection.
func NextSequence(ctx context.Context, db *sql.DB, table string) (int, error) {
	var sequence int
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		sequenceTable := table + "_sequence"

		if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable)); err != nil {
			return fmt.Errorf("failed to increment sequence: %w", err)
		}

		if err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence); err != nil {
			return fmt.Errorf("failed to get sequence value: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sequence, nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mustAffect turns a zero-row write into a not-found error.
func mustAffect(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, entity, id)
	}
	return nil
}

// writeErr wraps a failed insert or update, mapping constraint failures to sentinels.
func writeErr(action, entity string, err error) error {
	switch {
	case shared.IsUniqueViolation(err):
		return fmt.Errorf("%w: %s already exists", shared.ErrConflict, entity)
	case shared.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %s references a missing record", shared.ErrInvalidInput, entity)
	default:
		return fmt.Errorf("failed to %s %s: %w", action, entity, err)
	}
}

// notFound maps [sql.ErrNoRows] to [shared.ErrNotFound].
func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, entity, id)
	}
	return fmt.Errorf("failed to scan %s: %w", entity, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
