package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// ReservationStatus is the booking state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationSeated    ReservationStatus = "seated"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Outcome is the post-service annotation on a reservation.
type Outcome string

const (
	OutcomeNormal   Outcome = "normal"
	OutcomeNote     Outcome = "note"
	OutcomeIncident Outcome = "incident"
	OutcomeNoShow   Outcome = "no_show"
)

// Reservation is a table booking for a date and time.
type Reservation struct {
	Meta
	Date         string            `json:"date" validate:"required,isodate"`
	Time         string            `json:"time" validate:"required,hhmm"`
	CustomerName string            `json:"customer_name" validate:"required,max=120"`
	Phone        string            `json:"phone" validate:"max=40"`
	Email        string            `json:"email" validate:"omitempty,email"`
	PartySize    int               `json:"party_size" validate:"required,min=1,max=500"`
	Status       ReservationStatus `json:"status" validate:"required,oneof=pending confirmed seated cancelled"`
	Notes        string            `json:"notes" validate:"max=2000"`
	Outcome      Outcome           `json:"outcome,omitempty" validate:"omitempty,oneof=normal note incident no_show"`
	OutcomeNotes string            `json:"outcome_notes" validate:"max=2000"`
	OutcomeAt    *time.Time        `json:"outcome_at,omitempty"`
	CreatedBy    string            `json:"created_by"`
}

// Validate implements [Model].
func (r *Reservation) Validate() error {
	if r.Status == "" {
		r.Status = ReservationPending
	}
	return Validate(r)
}

// SetOutcome records how the service went for this reservation.
//
// Note and incident outcomes need explanatory notes; cancelled reservations take no outcome.
func (r *Reservation) SetOutcome(outcome Outcome, notes string, now time.Time) error {
	switch outcome {
	case OutcomeNormal, OutcomeNoShow:
	case OutcomeNote, OutcomeIncident:
		if strings.TrimSpace(notes) == "" {
			return fmt.Errorf("%w: outcome %q requires notes", shared.ErrInvalidInput, outcome)
		}
	default:
		return fmt.Errorf("%w: unknown outcome %q", shared.ErrInvalidInput, outcome)
	}

	if r.Status == ReservationCancelled {
		return fmt.Errorf("%w: cancelled reservations have no service outcome", shared.ErrInvalidInput)
	}

	r.Outcome = outcome
	r.OutcomeNotes = strings.TrimSpace(notes)
	r.OutcomeAt = &now
	return nil
}

// ClearOutcome removes the service outcome.
func (r *Reservation) ClearOutcome() {
	r.Outcome = ""
	r.OutcomeNotes = ""
	r.OutcomeAt = nil
}

// DayNote is a free-text note pinned to a calendar day.
type DayNote struct {
	Date      string    `json:"date" validate:"required,isodate"`
	Content   string    `json:"content" validate:"max=4000"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DaySummary is one row of the per-day reservation view.
type DaySummary struct {
	Date         string `json:"date"`
	Reservations int    `json:"reservations"`
	Covers       int    `json:"covers"`
	Cancelled    int    `json:"cancelled"`
	NoShows      int    `json:"no_shows"`
	Incidents    int    `json:"incidents"`
}
