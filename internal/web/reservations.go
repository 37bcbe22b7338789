package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/server"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"golang.org/x/sync/errgroup"
)

// CalendarDay is one day of a reservation calendar.
type CalendarDay struct {
	calendar.Day
	Summary      models.DaySummary     `json:"summary"`
	HasNote      bool                  `json:"has_note"`
	Note         *models.DayNote       `json:"note,omitempty"`
	Reservations []*models.Reservation `json:"reservations,omitempty"`
}

// MonthView is the month calendar: Monday-first weeks of day summaries.
type MonthView struct {
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Weeks [][]CalendarDay `json:"weeks"`
}

// WeekView is the week calendar with every reservation of the week.
type WeekView struct {
	Start string        `json:"start"`
	End   string        `json:"end"`
	Days  []CalendarDay `json:"days"`
}

// DayView is a single day with its reservations ordered by time.
type DayView struct {
	Date         string                `json:"date"`
	Summary      models.DaySummary     `json:"summary"`
	Note         *models.DayNote       `json:"note"`
	Reservations []*models.Reservation `json:"reservations"`
}

// rangeData is everything the calendars show for a span of days.
type rangeData struct {
	summaries    map[string]models.DaySummary
	notes        map[string]*models.DayNote
	reservations map[string][]*models.Reservation
}

// loadRange reads summaries, notes and optionally reservations between from and to in parallel.
func (a *App) loadRange(ctx context.Context, from, to string, withReservations bool) (*rangeData, error) {
	data := &rangeData{reservations: map[string][]*models.Reservation{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.summaries, err = a.Reservations.DaySummaries(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		data.notes, err = a.Notes.Range(gctx, from, to)
		return err
	})
	if withReservations {
		g.Go(func() error {
			list, err := a.Reservations.List(gctx, map[string]any{"from": from, "to": to})
			if err != nil {
				return err
			}
			for _, res := range list {
				data.reservations[res.Date] = append(data.reservations[res.Date], res)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}
	return data, nil
}

func (d *rangeData) day(day calendar.Day) CalendarDay {
	summary, ok := d.summaries[day.Date]
	if !ok {
		summary = models.DaySummary{Date: day.Date}
	}
	note := d.notes[day.Date]
	return CalendarDay{
		Day:          day,
		Summary:      summary,
		HasNote:      note != nil,
		Note:         note,
		Reservations: d.reservations[day.Date],
	}
}

func (a *App) reservationMonth(w http.ResponseWriter, r *http.Request) {
	today, err := calendar.Parse(a.today())
	if err != nil {
		server.WriteError(w, err)
		return
	}

	year, err := queryInt(r, "year", today.Year())
	if err != nil {
		server.WriteError(w, err)
		return
	}
	month, err := queryInt(r, "month", int(today.Month()))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	grid, err := calendar.MonthGrid(year, month)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	data, err := a.loadRange(r.Context(), grid.First, grid.Last, false)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	view := MonthView{Year: grid.Year, Month: grid.Month, Weeks: make([][]CalendarDay, 0, len(grid.Weeks))}
	for _, week := range grid.Weeks {
		days := make([]CalendarDay, 0, len(week.Days))
		for _, day := range week.Days {
			cd := data.day(day)
			cd.Note = nil
			days = append(days, cd)
		}
		view.Weeks = append(view.Weeks, days)
	}
	server.WriteJSON(w, http.StatusOK, view)
}

func (a *App) reservationWeek(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date", a.today())
	if err != nil {
		server.WriteError(w, err)
		return
	}

	week, err := calendar.WeekOf(date)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	data, err := a.loadRange(r.Context(), week.Start, week.End, true)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	view := WeekView{Start: week.Start, End: week.End, Days: make([]CalendarDay, 0, len(week.Days))}
	for _, day := range week.Days {
		cd := data.day(day)
		if cd.Reservations == nil {
			cd.Reservations = []*models.Reservation{}
		}
		view.Days = append(view.Days, cd)
	}
	server.WriteJSON(w, http.StatusOK, view)
}

func (a *App) reservationDay(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date", a.today())
	if err != nil {
		server.WriteError(w, err)
		return
	}

	data, err := a.loadRange(r.Context(), date, date, true)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	cd := data.day(calendar.Day{Date: date})
	view := DayView{Date: date, Summary: cd.Summary, Note: cd.Note, Reservations: cd.Reservations}
	if view.Reservations == nil {
		view.Reservations = []*models.Reservation{}
	}
	server.WriteJSON(w, http.StatusOK, view)
}

func (a *App) listReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := map[string]any{}
	for _, key := range []string{"date", "from", "to"} {
		v, err := queryDate(r, key, "")
		if err != nil {
			server.WriteError(w, err)
			return
		}
		if v != "" {
			criteria[key] = v
		}
	}
	if status := q.Get("status"); status != "" {
		criteria["status"] = status
	}

	list, err := a.Reservations.List(r.Context(), criteria)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

func (a *App) createReservation(w http.ResponseWriter, r *http.Request) {
	var res models.Reservation
	if err := decode(w, r, &res); err != nil {
		server.WriteError(w, err)
		return
	}

	res.Meta = models.Meta{}
	res.ClearOutcome()
	res.CreatedBy = userEmail(r)

	if err := a.Reservations.Create(r.Context(), &res); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, &res)
}

func (a *App) getReservation(w http.ResponseWriter, r *http.Request) {
	res, err := a.Reservations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

func (a *App) updateReservation(w http.ResponseWriter, r *http.Request) {
	existing, err := a.Reservations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	res := *existing
	if err := decode(w, r, &res); err != nil {
		server.WriteError(w, err)
		return
	}

	// Identity, authorship and outcome are only changed through their own endpoints.
	res.Meta = existing.Meta
	res.CreatedBy = existing.CreatedBy
	res.Outcome, res.OutcomeNotes, res.OutcomeAt = existing.Outcome, existing.OutcomeNotes, existing.OutcomeAt
	if res.Status == models.ReservationCancelled {
		res.ClearOutcome()
	}

	if err := a.Reservations.Update(r.Context(), &res); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, &res)
}

func (a *App) deleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := a.Reservations.Delete(r.Context(), r.PathValue("id")); err != nil {
		server.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putReservationAction dispatches PUT /api/reservations/notes/{date} and PUT /api/reservations/{id}/outcome.
func (a *App) putReservationAction(w http.ResponseWriter, r *http.Request) {
	id, action := r.PathValue("id"), r.PathValue("action")
	switch {
	case id == "notes":
		a.saveDayNote(w, r, action)
	case action == "outcome":
		a.setOutcome(w, r, id)
	default:
		server.WriteError(w, fmt.Errorf("%w: no such action %q", shared.ErrNotFound, action))
	}
}

type outcomeRequest struct {
	Outcome models.Outcome `json:"outcome"`
	Notes   string         `json:"notes"`
}

func (a *App) setOutcome(w http.ResponseWriter, r *http.Request, id string) {
	res, err := a.Reservations.Get(r.Context(), id)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	var req outcomeRequest
	if err := decode(w, r, &req); err != nil {
		server.WriteError(w, err)
		return
	}

	if err := res.SetOutcome(req.Outcome, req.Notes, a.Now()); err != nil {
		server.WriteError(w, err)
		return
	}
	if err := a.Reservations.Update(r.Context(), res); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

func (a *App) clearOutcome(w http.ResponseWriter, r *http.Request) {
	res, err := a.Reservations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	res.ClearOutcome()
	if err := a.Reservations.Update(r.Context(), res); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

func (a *App) getDayNote(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if _, err := calendar.Parse(date); err != nil {
		server.WriteError(w, err)
		return
	}

	note, err := a.Notes.Get(r.Context(), date)
	if errors.Is(err, shared.ErrNotFound) {
		note = &models.DayNote{Date: date}
	} else if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, note)
}

type noteRequest struct {
	Content string `json:"content"`
}

func (a *App) saveDayNote(w http.ResponseWriter, r *http.Request, date string) {
	if _, err := calendar.Parse(date); err != nil {
		server.WriteError(w, err)
		return
	}

	var req noteRequest
	if err := decode(w, r, &req); err != nil {
		server.WriteError(w, err)
		return
	}

	note := &models.DayNote{Date: date, Content: req.Content, UpdatedBy: userEmail(r)}
	deleted, err := a.Notes.Save(r.Context(), note)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if deleted {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	server.WriteJSON(w, http.StatusOK, note)
}
