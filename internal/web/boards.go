package web

import (
	"fmt"
	"net/http"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/formatter"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/server"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/tasks"
)

// boardHandlers serves the task board and routines of one area.
type boardHandlers struct {
	app  *App
	area models.Area
}

// TaskView is a task with its overdue flag computed for today.
type TaskView struct {
	*models.Task
	Overdue bool `json:"overdue"`
}

func (b *boardHandlers) notInArea(kind, id string) error {
	return fmt.Errorf("%w: %s %s on the %s board", shared.ErrNotFound, kind, id, b.area)
}

func (b *boardHandlers) loadTask(r *http.Request) (*models.Task, error) {
	id := r.PathValue("id")
	task, err := b.app.Tasks.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if task.Area != b.area {
		return nil, b.notInArea("task", id)
	}
	return task, nil
}

func (b *boardHandlers) listTasks(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{"area": b.area}
	if status := r.URL.Query().Get("status"); status != "" {
		criteria["status"] = status
	}

	week, err := queryDate(r, "week", "")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if week != "" {
		if criteria["week"], err = calendar.WeekStart(week); err != nil {
			server.WriteError(w, err)
			return
		}
	}

	on, err := queryDate(r, "on", "")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if on != "" {
		criteria["on"] = on
	}

	includeClosed, _, err := queryBool(r, "include_closed")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	criteria["include_closed"] = includeClosed

	list, err := b.app.Tasks.List(r.Context(), criteria)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	today := b.app.today()
	views := make([]TaskView, 0, len(list))
	for _, t := range list {
		views = append(views, TaskView{Task: t, Overdue: t.Overdue(today)})
	}
	server.WriteJSON(w, http.StatusOK, views)
}

func (b *boardHandlers) createTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := decode(w, r, &task); err != nil {
		server.WriteError(w, err)
		return
	}

	task.Meta = models.Meta{}
	task.Area = b.area
	task.RoutineID, task.WeekStart = "", ""
	task.Status = models.TaskPending
	task.CompletedAt, task.CompletedBy = nil, ""
	task.CreatedBy = userEmail(r)

	if err := b.app.Tasks.Create(r.Context(), &task); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, TaskView{Task: &task, Overdue: task.Overdue(b.app.today())})
}

func (b *boardHandlers) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := b.loadTask(r)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, TaskView{Task: task, Overdue: task.Overdue(b.app.today())})
}

func (b *boardHandlers) updateTask(w http.ResponseWriter, r *http.Request) {
	existing, err := b.loadTask(r)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	task := *existing
	if err := decode(w, r, &task); err != nil {
		server.WriteError(w, err)
		return
	}

	// Status only moves through the status endpoint so that transitions are checked.
	task.Meta = existing.Meta
	task.Area, task.RoutineID, task.WeekStart = existing.Area, existing.RoutineID, existing.WeekStart
	task.Status, task.CompletedAt, task.CompletedBy = existing.Status, existing.CompletedAt, existing.CompletedBy
	task.CreatedBy = existing.CreatedBy

	if err := b.app.Tasks.Update(r.Context(), &task); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, TaskView{Task: &task, Overdue: task.Overdue(b.app.today())})
}

func (b *boardHandlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := b.loadTask(r)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if err := b.app.Tasks.Delete(r.Context(), task.ID); err != nil {
		server.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status models.TaskStatus `json:"status"`
}

func (b *boardHandlers) transitionTask(w http.ResponseWriter, r *http.Request) {
	task, err := b.loadTask(r)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		server.WriteError(w, err)
		return
	}

	if err := task.Transition(req.Status, userEmail(r), b.app.Now()); err != nil {
		server.WriteError(w, err)
		return
	}
	if err := b.app.Tasks.Update(r.Context(), task); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, TaskView{Task: task, Overdue: task.Overdue(b.app.today())})
}

// exportWeek renders the board of the week containing ?week= as plain text.
func (b *boardHandlers) exportWeek(w http.ResponseWriter, r *http.Request) {
	today := b.app.today()
	date, err := queryDate(r, "week", today)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	week, err := calendar.WeekOf(date)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	list, err := b.app.Tasks.List(r.Context(), map[string]any{"area": b.area, "include_closed": true})
	if err != nil {
		server.WriteError(w, err)
		return
	}

	data, err := formatter.BoardToText(b.area, week, tasks.InWeek(list, week), today)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", formatter.FormatText.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (b *boardHandlers) loadRoutine(r *http.Request) (*models.Routine, error) {
	id := r.PathValue("id")
	routine, err := b.app.Routines.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if routine.Area != b.area {
		return nil, b.notInArea("routine", id)
	}
	return routine, nil
}

func (b *boardHandlers) listRoutines(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{"area": b.area}
	active, present, err := queryBool(r, "active")
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if present {
		criteria["active"] = active
	}

	list, err := b.app.Routines.List(r.Context(), criteria)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, list)
}

func (b *boardHandlers) createRoutine(w http.ResponseWriter, r *http.Request) {
	routine := models.Routine{Active: true}
	if err := decode(w, r, &routine); err != nil {
		server.WriteError(w, err)
		return
	}

	routine.Meta = models.Meta{}
	routine.Area = b.area

	if err := b.app.Routines.Create(r.Context(), &routine); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, &routine)
}

func (b *boardHandlers) getRoutine(w http.ResponseWriter, r *http.Request) {
	routine, err := b.loadRoutine(r)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, routine)
}

func (b *boardHandlers) updateRoutine(w http.ResponseWriter, r *http.Request) {
	existing, err := b.loadRoutine(r)
	if err != nil {
		server.WriteError(w, err)
		return
	}

	routine := *existing
	if err := decode(w, r, &routine); err != nil {
		server.WriteError(w, err)
		return
	}
	routine.Meta = existing.Meta
	routine.Area = existing.Area

	if err := b.app.Routines.Update(r.Context(), &routine); err != nil {
		server.WriteError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, &routine)
}

func (b *boardHandlers) deleteRoutine(w http.ResponseWriter, r *http.Request) {
	routine, err := b.loadRoutine(r)
	if err != nil {
		server.WriteError(w, err)
		return
	}
	if err := b.app.Routines.Delete(r.Context(), routine.ID); err != nil {
		server.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// generate creates this area's routine tasks for the week containing ?week= (default: this week).
func (b *boardHandlers) generate(w http.ResponseWriter, r *http.Request) {
	week, err := queryDate(r, "week", b.app.today())
	if err != nil {
		server.WriteError(w, err)
		return
	}

	result, err := b.app.Engine.GenerateWeek(r.Context(), nil, b.area, week, userEmail(r))
	if err != nil {
		server.WriteError(w, err)
		return
	}

	b.app.Logger.Info("generated routine tasks",
		"area", b.area, "week", result.WeekStart, "created", len(result.Created), "skipped", len(result.Skipped))
	server.WriteJSON(w, http.StatusOK, result)
}
