package web

import (
	"net/http"
	"testing"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
)

func createReservation(t *testing.T, h *harness, body map[string]any) *models.Reservation {
	t.Helper()
	rec := h.do("admin", http.MethodPost, "/api/reservations", body)
	expect(t, rec, http.StatusCreated)
	return decodeAs[*models.Reservation](t, rec)
}

func TestReservationCRUD(t *testing.T) {
	h := newHarness(t)

	res := createReservation(t, h, map[string]any{
		"date": "2026-07-15", "time": "20:00", "customer_name": "Família Puig", "party_size": 4,
		"status": "confirmed", "created_by": "spoofed@example.com", "outcome": "incident",
	})

	t.Run("Create", func(t *testing.T) {
		if res.ID == "" {
			t.Fatal("expected an ID")
		}
		if res.CreatedBy != "admin@example.com" {
			t.Errorf("expected created_by from the session, got %s", res.CreatedBy)
		}
		if res.Outcome != "" {
			t.Errorf("expected no outcome on create, got %s", res.Outcome)
		}
	})

	t.Run("Create rejects invalid fields", func(t *testing.T) {
		rec := h.do("admin", http.MethodPost, "/api/reservations", map[string]any{
			"date": "15/07/2026", "time": "8pm", "customer_name": "X", "party_size": 0,
		})
		expect(t, rec, http.StatusUnprocessableEntity)
	})

	t.Run("Get", func(t *testing.T) {
		got := decodeAs[*models.Reservation](t, h.do("host", http.MethodGet, "/api/reservations/"+res.ID, nil))
		if got.CustomerName != "Família Puig" {
			t.Errorf("expected Família Puig, got %s", got.CustomerName)
		}
	})

	t.Run("Update keeps omitted fields", func(t *testing.T) {
		rec := h.do("admin", http.MethodPut, "/api/reservations/"+res.ID, map[string]any{"party_size": 6})
		expect(t, rec, http.StatusOK)

		got := decodeAs[*models.Reservation](t, rec)
		if got.PartySize != 6 || got.Time != "20:00" || got.CreatedBy != "admin@example.com" {
			t.Errorf("unexpected reservation after update: %+v", got)
		}
	})

	t.Run("List by date", func(t *testing.T) {
		createReservation(t, h, map[string]any{"date": "2026-07-16", "time": "13:00", "customer_name": "Soler", "party_size": 2})

		list := decodeAs[[]*models.Reservation](t, h.do("host", http.MethodGet, "/api/reservations?date=2026-07-16", nil))
		if len(list) != 1 || list[0].CustomerName != "Soler" {
			t.Errorf("expected only Soler, got %+v", list)
		}

		expect(t, h.do("host", http.MethodGet, "/api/reservations?from=yesterday", nil), http.StatusBadRequest)
	})

	t.Run("Delete", func(t *testing.T) {
		expect(t, h.do("admin", http.MethodDelete, "/api/reservations/"+res.ID, nil), http.StatusNoContent)
		expect(t, h.do("admin", http.MethodGet, "/api/reservations/"+res.ID, nil), http.StatusNotFound)
		expect(t, h.do("admin", http.MethodDelete, "/api/reservations/"+res.ID, nil), http.StatusNotFound)
	})
}

func TestReservationOutcome(t *testing.T) {
	h := newHarness(t)
	res := createReservation(t, h, map[string]any{"date": "2026-07-14", "time": "21:00", "customer_name": "Vidal", "party_size": 3})
	path := "/api/reservations/" + res.ID + "/outcome"

	t.Run("Incident requires notes", func(t *testing.T) {
		expect(t, h.do("admin", http.MethodPut, path, map[string]any{"outcome": "incident"}), http.StatusBadRequest)
	})

	t.Run("Unknown outcome", func(t *testing.T) {
		expect(t, h.do("admin", http.MethodPut, path, map[string]any{"outcome": "great"}), http.StatusBadRequest)
	})

	t.Run("Set", func(t *testing.T) {
		rec := h.do("admin", http.MethodPut, path, map[string]any{"outcome": "incident", "notes": " Broken glass "})
		expect(t, rec, http.StatusOK)

		got := decodeAs[*models.Reservation](t, rec)
		if got.Outcome != models.OutcomeIncident || got.OutcomeNotes != "Broken glass" {
			t.Errorf("unexpected outcome: %s %q", got.Outcome, got.OutcomeNotes)
		}
		if got.OutcomeAt == nil || !got.OutcomeAt.Equal(fixedNow) {
			t.Errorf("expected outcome_at %v, got %v", fixedNow, got.OutcomeAt)
		}
	})

	t.Run("Plain update keeps the outcome", func(t *testing.T) {
		rec := h.do("admin", http.MethodPut, "/api/reservations/"+res.ID, map[string]any{"notes": "window table", "outcome": "normal"})
		expect(t, rec, http.StatusOK)
		if got := decodeAs[*models.Reservation](t, rec); got.Outcome != models.OutcomeIncident {
			t.Errorf("expected outcome to stay incident, got %s", got.Outcome)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		rec := h.do("admin", http.MethodDelete, path, nil)
		expect(t, rec, http.StatusOK)
		if got := decodeAs[*models.Reservation](t, rec); got.Outcome != "" || got.OutcomeAt != nil {
			t.Errorf("expected outcome cleared, got %+v", got)
		}
	})

	t.Run("Cancelled reservations take no outcome", func(t *testing.T) {
		expect(t, h.do("admin", http.MethodPut, "/api/reservations/"+res.ID, map[string]any{"status": "cancelled"}), http.StatusOK)
		expect(t, h.do("admin", http.MethodPut, path, map[string]any{"outcome": "no_show"}), http.StatusBadRequest)
	})

	t.Run("Unknown action", func(t *testing.T) {
		expect(t, h.do("admin", http.MethodPut, "/api/reservations/"+res.ID+"/rating", map[string]any{}), http.StatusNotFound)
	})

	t.Run("Unknown reservation", func(t *testing.T) {
		expect(t, h.do("admin", http.MethodPut, "/api/reservations/missing/outcome", map[string]any{"outcome": "normal"}), http.StatusNotFound)
	})
}

func TestDayNotes(t *testing.T) {
	h := newHarness(t)
	path := "/api/reservations/notes/2026-07-15"

	t.Run("Missing note is empty", func(t *testing.T) {
		rec := h.do("host", http.MethodGet, path, nil)
		expect(t, rec, http.StatusOK)
		if got := decodeAs[models.DayNote](t, rec); got.Date != "2026-07-15" || got.Content != "" {
			t.Errorf("unexpected note: %+v", got)
		}
	})

	t.Run("Save", func(t *testing.T) {
		expect(t, h.do("admin", http.MethodPut, path, map[string]any{"content": "Terrace closed"}), http.StatusOK)

		got := decodeAs[models.DayNote](t, h.do("host", http.MethodGet, path, nil))
		if got.Content != "Terrace closed" || got.UpdatedBy != "admin@example.com" {
			t.Errorf("unexpected note: %+v", got)
		}
	})

	t.Run("Empty content deletes", func(t *testing.T) {
		expect(t, h.do("admin", http.MethodPut, path, map[string]any{"content": "  "}), http.StatusNoContent)

		got := decodeAs[models.DayNote](t, h.do("host", http.MethodGet, path, nil))
		if got.Content != "" {
			t.Errorf("expected note removed, got %q", got.Content)
		}
	})

	t.Run("Invalid date", func(t *testing.T) {
		expect(t, h.do("host", http.MethodGet, "/api/reservations/notes/tomorrow", nil), http.StatusBadRequest)
		expect(t, h.do("admin", http.MethodPut, "/api/reservations/notes/tomorrow", map[string]any{"content": "x"}), http.StatusBadRequest)
	})

	t.Run("Viewer cannot save", func(t *testing.T) {
		expect(t, h.do("host", http.MethodPut, path, map[string]any{"content": "x"}), http.StatusForbidden)
	})
}

func TestCalendarViews(t *testing.T) {
	h := newHarness(t)

	createReservation(t, h, map[string]any{"date": "2026-07-15", "time": "20:00", "customer_name": "Puig", "party_size": 4})
	createReservation(t, h, map[string]any{"date": "2026-07-15", "time": "13:30", "customer_name": "Roca", "party_size": 2})
	createReservation(t, h, map[string]any{"date": "2026-07-16", "time": "21:00", "customer_name": "Serra", "party_size": 6, "status": "cancelled"})
	expect(t, h.do("admin", http.MethodPut, "/api/reservations/notes/2026-07-17", map[string]any{"content": "Private event"}), http.StatusOK)

	t.Run("Month", func(t *testing.T) {
		rec := h.do("host", http.MethodGet, "/api/reservations/month?year=2026&month=7", nil)
		expect(t, rec, http.StatusOK)

		view := decodeAs[MonthView](t, rec)
		if len(view.Weeks) != 5 {
			t.Fatalf("expected 5 weeks, got %d", len(view.Weeks))
		}
		if first := view.Weeks[0][0]; first.Date != "2026-06-29" || first.InMonth {
			t.Errorf("expected grid to open on Monday 2026-06-29 outside the month, got %+v", first.Day)
		}

		wed := view.Weeks[2][2]
		if wed.Date != "2026-07-15" || wed.Summary.Reservations != 2 || wed.Summary.Covers != 6 {
			t.Errorf("unexpected summary for %s: %+v", wed.Date, wed.Summary)
		}
		thu := view.Weeks[2][3]
		if thu.Summary.Reservations != 0 || thu.Summary.Cancelled != 1 {
			t.Errorf("expected cancelled reservation excluded from counts, got %+v", thu.Summary)
		}
		if fri := view.Weeks[2][4]; !fri.HasNote || fri.Note != nil {
			t.Errorf("expected has_note without the note body, got %+v", fri)
		}
	})

	t.Run("Month defaults to the current month", func(t *testing.T) {
		view := decodeAs[MonthView](t, h.do("host", http.MethodGet, "/api/reservations/month", nil))
		if view.Year != 2026 || view.Month != 7 {
			t.Errorf("expected 2026-07, got %d-%d", view.Year, view.Month)
		}
	})

	t.Run("Month out of range", func(t *testing.T) {
		expect(t, h.do("host", http.MethodGet, "/api/reservations/month?year=2026&month=13", nil), http.StatusBadRequest)
		expect(t, h.do("host", http.MethodGet, "/api/reservations/month?month=july", nil), http.StatusBadRequest)
	})

	t.Run("Week", func(t *testing.T) {
		rec := h.do("host", http.MethodGet, "/api/reservations/week?date=2026-07-17", nil)
		expect(t, rec, http.StatusOK)

		view := decodeAs[WeekView](t, rec)
		if view.Start != "2026-07-13" || view.End != "2026-07-19" || len(view.Days) != 7 {
			t.Fatalf("unexpected week %s..%s with %d days", view.Start, view.End, len(view.Days))
		}
		if n := len(view.Days[2].Reservations); n != 2 {
			t.Errorf("expected 2 reservations on Wednesday, got %d", n)
		}
		if view.Days[4].Note == nil || view.Days[4].Note.Content != "Private event" {
			t.Errorf("expected the Friday note, got %+v", view.Days[4].Note)
		}
	})

	t.Run("Day", func(t *testing.T) {
		rec := h.do("host", http.MethodGet, "/api/reservations/day", nil)
		expect(t, rec, http.StatusOK)

		view := decodeAs[DayView](t, rec)
		if view.Date != "2026-07-15" || len(view.Reservations) != 2 {
			t.Fatalf("unexpected day view: %+v", view)
		}
		if view.Reservations[0].CustomerName != "Roca" {
			t.Errorf("expected reservations ordered by time, got %s first", view.Reservations[0].CustomerName)
		}
		if view.Summary.Covers != 6 {
			t.Errorf("expected 6 covers, got %d", view.Summary.Covers)
		}
	})

	t.Run("Empty day", func(t *testing.T) {
		view := decodeAs[DayView](t, h.do("host", http.MethodGet, "/api/reservations/day?date=2026-08-01", nil))
		if view.Reservations == nil || len(view.Reservations) != 0 || view.Note != nil {
			t.Errorf("expected an empty day, got %+v", view)
		}
	})
}
