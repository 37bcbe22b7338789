package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

var _ models.Repository[*models.Reservation] = (*ReservationRepository)(nil)

const reservationColumns = `id, sequence, reservation_date, reservation_time, customer_name, phone, email, party_size,
	status, notes, outcome, outcome_notes, outcome_at, created_by, created_at, updated_at, deleted_at`

// ReservationRepository persists [models.Reservation] and reads the per-day summary view.
type ReservationRepository struct {
	db *sql.DB
}

// NewReservationRepository creates a new ReservationRepository with the given database connection
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create inserts a new [models.Reservation] with generated ID and sequence
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	if err := res.Validate(); err != nil {
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "reservations")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	res.ID = shared.GenerateID()
	res.Sequence = sequence
	res.Touch(time.Now())

	query := `
		INSERT INTO reservations (id, sequence, reservation_date, reservation_time, customer_name, phone, email,
			party_size, status, notes, outcome, outcome_notes, outcome_at, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		res.ID, res.Sequence, res.Date, res.Time, res.CustomerName, res.Phone, res.Email,
		res.PartySize, res.Status, res.Notes, nullString(string(res.Outcome)), res.OutcomeNotes, res.OutcomeAt,
		res.CreatedBy, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert", "reservation", err)
	}
	return nil
}

// Get retrieves a reservation by ID, excluding soft-deleted reservations
func (r *ReservationRepository) Get(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? AND deleted_at IS NULL`

	res, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "reservation", id)
	}
	return res, nil
}

// Update modifies an existing reservation, including its service outcome
func (r *ReservationRepository) Update(ctx context.Context, res *models.Reservation) error {
	if err := res.Validate(); err != nil {
		return err
	}
	res.Touch(time.Now())

	query := `
		UPDATE reservations
		SET reservation_date = ?, reservation_time = ?, customer_name = ?, phone = ?, email = ?, party_size = ?,
			status = ?, notes = ?, outcome = ?, outcome_notes = ?, outcome_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		res.Date, res.Time, res.CustomerName, res.Phone, res.Email, res.PartySize,
		res.Status, res.Notes, nullString(string(res.Outcome)), res.OutcomeNotes, res.OutcomeAt, res.UpdatedAt,
		res.ID,
	)
	if err != nil {
		return writeErr("update", "reservation", err)
	}
	return mustAffect(result, "reservation", res.ID)
}

// Delete soft-deletes a reservation by ID
func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return mustAffect(result, "reservation", id)
}

// List retrieves reservations ordered by date and time.
//
// Supported criteria: "date", "from", "to" (YYYY-MM-DD, inclusive), "status".
func (r *ReservationRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE deleted_at IS NULL`
	args := []any{}

	if date, ok := criteria["date"].(string); ok && date != "" {
		query += " AND reservation_date = ?"
		args = append(args, date)
	}

	if from, ok := criteria["from"].(string); ok && from != "" {
		query += " AND reservation_date >= ?"
		args = append(args, from)
	}

	if to, ok := criteria["to"].(string); ok && to != "" {
		query += " AND reservation_date <= ?"
		args = append(args, to)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY reservation_date ASC, reservation_time ASC, sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	list := []*models.Reservation{}
	for rows.Next() {
		res, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		list = append(list, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return list, nil
}

// DaySummaries reads v_reservation_days between from and to inclusive, keyed by date.
//
// Days without reservations are absent from the map.
func (r *ReservationRepository) DaySummaries(ctx context.Context, from, to string) (map[string]models.DaySummary, error) {
	query := `
		SELECT day, reservations, covers, cancelled, no_shows, incidents
		FROM v_reservation_days
		WHERE day >= ? AND day <= ?
		ORDER BY day
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query day summaries: %w", err)
	}
	defer rows.Close()

	out := map[string]models.DaySummary{}
	for rows.Next() {
		var s models.DaySummary
		if err := rows.Scan(&s.Date, &s.Reservations, &s.Covers, &s.Cancelled, &s.NoShows, &s.Incidents); err != nil {
			return nil, fmt.Errorf("failed to scan day summary: %w", err)
		}
		out[s.Date] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *ReservationRepository) scan(row scanner) (*models.Reservation, error) {
	var (
		res       models.Reservation
		outcome   sql.NullString
		outcomeAt sql.NullTime
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&res.ID, &res.Sequence, &res.Date, &res.Time, &res.CustomerName, &res.Phone, &res.Email, &res.PartySize,
		&res.Status, &res.Notes, &outcome, &res.OutcomeNotes, &outcomeAt, &res.CreatedBy,
		&res.CreatedAt, &res.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	res.Outcome = models.Outcome(outcome.String)
	res.OutcomeAt = timePtr(outcomeAt)
	res.DeletedAt = timePtr(deletedAt)
	return &res, nil
}

// DayNoteRepository persists [models.DayNote], one per date.
type DayNoteRepository struct {
	db *sql.DB
}

// NewDayNoteRepository creates a new DayNoteRepository with the given database connection
func NewDayNoteRepository(db *sql.DB) *DayNoteRepository {
	return &DayNoteRepository{db: db}
}

// Get returns the note for date or an [shared.ErrNotFound]-wrapped error.
func (r *DayNoteRepository) Get(ctx context.Context, date string) (*models.DayNote, error) {
	var note models.DayNote
	err := r.db.QueryRowContext(ctx,
		`SELECT note_date, content, updated_by, updated_at FROM day_notes WHERE note_date = ?`, date,
	).Scan(&note.Date, &note.Content, &note.UpdatedBy, &note.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "day note", date)
	}
	return &note, nil
}

// Save upserts the note. Blank content removes it; deleted reports whether that happened.
func (r *DayNoteRepository) Save(ctx context.Context, note *models.DayNote) (deleted bool, err error) {
	if err := models.Validate(note); err != nil {
		return false, err
	}

	if isBlank(note.Content) {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM day_notes WHERE note_date = ?`, note.Date); err != nil {
			return false, fmt.Errorf("failed to delete day note: %w", err)
		}
		return true, nil
	}

	note.UpdatedAt = time.Now()
	query := `
		INSERT INTO day_notes (note_date, content, updated_by, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(note_date) DO UPDATE SET content = excluded.content, updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, note.Date, note.Content, note.UpdatedBy, note.UpdatedAt); err != nil {
		return false, fmt.Errorf("failed to save day note: %w", err)
	}
	return false, nil
}

// Range returns notes between from and to inclusive, keyed by date.
func (r *DayNoteRepository) Range(ctx context.Context, from, to string) (map[string]*models.DayNote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT note_date, content, updated_by, updated_at FROM day_notes WHERE note_date >= ? AND note_date <= ?`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query day notes: %w", err)
	}
	defer rows.Close()

	out := map[string]*models.DayNote{}
	for rows.Next() {
		var note models.DayNote
		if err := rows.Scan(&note.Date, &note.Content, &note.UpdatedBy, &note.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan day note: %w", err)
		}
		out[note.Date] = &note
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}
