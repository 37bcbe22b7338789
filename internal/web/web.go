// Package web implements the JSON API of the venue management service.
//
// # Architecture
//
// [App] owns the repositories, the costing service and the task engine, and registers one handler per
// route on a [server.Router]. Every route except the login flow runs behind the session middleware;
// each module's routes additionally run behind [server.RequireModule]:
//
//	GET  /api/me                                  → current user and permissions
//	     /api/reservations/...                    → calendars, CRUD, service outcome, day notes (reservations)
//	     /api/kitchen/..., /api/maintenance/...   → task boards and routines (kitchen, maintenance)
//	     /api/cheffing/...                        → ingredients, sub-recipes, dishes, POS import (cheffing)
//	     /api/admin/users/...                     → allowlist (admin)
//
// # Request Handling
//
// Bodies are JSON and are decoded onto the stored entity for updates, so omitted fields keep their
// value. Entities are validated by the repositories; failures come back as 422 with the failing fields.
// All errors are written by [server.WriteError].
//
// # Dates
//
// "Today" is computed in the venue time zone so that the boards and calendars roll over at local midnight.
package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/cheffing"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/repositories"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/server"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/tasks"
)

const maxBodyBytes = 1 << 20

// App holds the dependencies of the API handlers.
type App struct {
	Users        *repositories.AllowlistRepository
	Reservations *repositories.ReservationRepository
	Notes        *repositories.DayNoteRepository
	Tasks        *repositories.TaskRepository
	Routines     *repositories.RoutineRepository
	Cheffing     *cheffing.Service
	Engine       *tasks.Engine

	Location *time.Location
	Logger   *log.Logger
	Now      func() time.Time
}

// NewApp creates an App over db. loc is the venue time zone.
func NewApp(db *sql.DB, loc *time.Location, logger *log.Logger) *App {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Default()
	}

	taskRepo := repositories.NewTaskRepository(db)
	routineRepo := repositories.NewRoutineRepository(db)
	dishRepo := repositories.NewDishRepository(db)
	posRepo := repositories.NewPosRepository(db)

	return &App{
		Users:        repositories.NewAllowlistRepository(db),
		Reservations: repositories.NewReservationRepository(db),
		Notes:        repositories.NewDayNoteRepository(db),
		Tasks:        taskRepo,
		Routines:     routineRepo,
		Cheffing: cheffing.NewService(
			repositories.NewIngredientRepository(db),
			repositories.NewSubRecipeRepository(db),
			dishRepo,
			posRepo,
		),
		Engine:   tasks.NewEngine(routineRepo, taskRepo, posRepo, dishRepo),
		Location: loc,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Register adds every API route to r. session authenticates the caller and is applied to every route.
func (a *App) Register(r server.Router, session server.Middleware) {
	guard := func(m models.Module) []server.Middleware {
		return []server.Middleware{session, server.RequireModule(m)}
	}
	h := func(f http.HandlerFunc) http.Handler { return f }

	r.Handle(http.MethodGet, "/api/me", h(a.me), session)

	res := guard(models.ModuleReservations)
	r.Handle(http.MethodGet, "/api/reservations/month", h(a.reservationMonth), res...)
	r.Handle(http.MethodGet, "/api/reservations/week", h(a.reservationWeek), res...)
	r.Handle(http.MethodGet, "/api/reservations/day", h(a.reservationDay), res...)
	r.Handle(http.MethodGet, "/api/reservations", h(a.listReservations), res...)
	r.Handle(http.MethodPost, "/api/reservations", h(a.createReservation), res...)
	r.Handle(http.MethodGet, "/api/reservations/{id}", h(a.getReservation), res...)
	r.Handle(http.MethodPut, "/api/reservations/{id}", h(a.updateReservation), res...)
	r.Handle(http.MethodDelete, "/api/reservations/{id}", h(a.deleteReservation), res...)
	r.Handle(http.MethodDelete, "/api/reservations/{id}/outcome", h(a.clearOutcome), res...)
	r.Handle(http.MethodGet, "/api/reservations/notes/{date}", h(a.getDayNote), res...)
	// notes/{date} and {id}/outcome overlap as PUT patterns, so one route serves both.
	r.Handle(http.MethodPut, "/api/reservations/{id}/{action}", h(a.putReservationAction), res...)

	for _, area := range []models.Area{models.AreaKitchen, models.AreaMaintenance} {
		board := &boardHandlers{app: a, area: area}
		mw := guard(area.Module())
		base := "/api/" + string(area)

		r.Handle(http.MethodGet, base+"/tasks", h(board.listTasks), mw...)
		r.Handle(http.MethodPost, base+"/tasks", h(board.createTask), mw...)
		r.Handle(http.MethodGet, base+"/tasks/export", h(board.exportWeek), mw...)
		r.Handle(http.MethodGet, base+"/tasks/{id}", h(board.getTask), mw...)
		r.Handle(http.MethodPut, base+"/tasks/{id}", h(board.updateTask), mw...)
		r.Handle(http.MethodDelete, base+"/tasks/{id}", h(board.deleteTask), mw...)
		r.Handle(http.MethodPost, base+"/tasks/{id}/status", h(board.transitionTask), mw...)
		r.Handle(http.MethodGet, base+"/routines", h(board.listRoutines), mw...)
		r.Handle(http.MethodPost, base+"/routines", h(board.createRoutine), mw...)
		r.Handle(http.MethodPost, base+"/routines/generate", h(board.generate), mw...)
		r.Handle(http.MethodGet, base+"/routines/{id}", h(board.getRoutine), mw...)
		r.Handle(http.MethodPut, base+"/routines/{id}", h(board.updateRoutine), mw...)
		r.Handle(http.MethodDelete, base+"/routines/{id}", h(board.deleteRoutine), mw...)
	}

	chef := guard(models.ModuleCheffing)
	r.Handle(http.MethodGet, "/api/cheffing/ingredients", h(a.listIngredients), chef...)
	r.Handle(http.MethodPost, "/api/cheffing/ingredients", h(a.createIngredient), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/ingredients/{id}", h(a.getIngredient), chef...)
	r.Handle(http.MethodPut, "/api/cheffing/ingredients/{id}", h(a.updateIngredient), chef...)
	r.Handle(http.MethodDelete, "/api/cheffing/ingredients/{id}", h(a.deleteIngredient), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/subrecipes", h(a.listSubRecipes), chef...)
	r.Handle(http.MethodPost, "/api/cheffing/subrecipes", h(a.createSubRecipe), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/subrecipes/{id}", h(a.getSubRecipe), chef...)
	r.Handle(http.MethodPut, "/api/cheffing/subrecipes/{id}", h(a.updateSubRecipe), chef...)
	r.Handle(http.MethodPut, "/api/cheffing/subrecipes/{id}/items", h(a.replaceSubRecipeItems), chef...)
	r.Handle(http.MethodDelete, "/api/cheffing/subrecipes/{id}", h(a.deleteSubRecipe), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/subrecipes/{id}/breakdown", h(a.subRecipeBreakdown), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/dishes", h(a.listDishes), chef...)
	r.Handle(http.MethodPost, "/api/cheffing/dishes", h(a.createDish), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/dishes/{id}", h(a.getDish), chef...)
	r.Handle(http.MethodPut, "/api/cheffing/dishes/{id}", h(a.updateDish), chef...)
	r.Handle(http.MethodPut, "/api/cheffing/dishes/{id}/items", h(a.replaceDishItems), chef...)
	r.Handle(http.MethodDelete, "/api/cheffing/dishes/{id}", h(a.deleteDish), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/dishes/{id}/breakdown", h(a.dishBreakdown), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/dishes/{id}/export", h(a.exportDish), chef...)
	r.Handle(http.MethodPost, "/api/cheffing/pos/import", h(a.importSales), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/pos/products", h(a.listProducts), chef...)
	r.Handle(http.MethodPut, "/api/cheffing/pos/products/{id}/link", h(a.linkProduct), chef...)
	r.Handle(http.MethodDelete, "/api/cheffing/pos/products/{id}/link", h(a.unlinkProduct), chef...)
	r.Handle(http.MethodPost, "/api/cheffing/pos/auto-link", h(a.autoLink), chef...)
	r.Handle(http.MethodGet, "/api/cheffing/pos/summary", h(a.salesSummary), chef...)

	admin := guard(models.ModuleAdmin)
	r.Handle(http.MethodGet, "/api/admin/users", h(a.listUsers), admin...)
	r.Handle(http.MethodPost, "/api/admin/users", h(a.createUser), admin...)
	r.Handle(http.MethodGet, "/api/admin/users/{id}", h(a.getUser), admin...)
	r.Handle(http.MethodPut, "/api/admin/users/{id}", h(a.updateUser), admin...)
	r.Handle(http.MethodDelete, "/api/admin/users/{id}", h(a.deleteUser), admin...)
}

// today returns the current date in the venue time zone.
func (a *App) today() string {
	return calendar.Today(a.Now(), a.Location)
}

// userEmail returns the email of the authenticated caller.
func userEmail(r *http.Request) string {
	if u, ok := server.CurrentUser(r.Context()); ok {
		return u.Email
	}
	return ""
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", shared.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed JSON: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

// queryDate returns the date query parameter name, or fallback when it is absent.
func queryDate(r *http.Request, name, fallback string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	if _, err := calendar.Parse(v); err != nil {
		return "", err
	}
	return v, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (value, present bool, err error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false, fmt.Errorf("%w: %s must be true or false", shared.ErrInvalidArgument, name)
	}
	return b, true, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", shared.ErrInvalidArgument, name)
	}
	return n, nil
}

type meResponse struct {
	User     *models.AllowedUser `json:"user"`
	Modules  []models.Module     `json:"modules"`
	CanWrite bool                `json:"can_write"`
}

// me returns the caller's allowlist entry and the modules it may open.
func (a *App) me(w http.ResponseWriter, r *http.Request) {
	u, ok := server.CurrentUser(r.Context())
	if !ok {
		server.WriteError(w, shared.ErrNotAuthenticated)
		return
	}

	modules := []models.Module{}
	for _, m := range models.Modules {
		if u.CanAccess(m) {
			modules = append(modules, m)
		}
	}
	server.WriteJSON(w, http.StatusOK, meResponse{User: u, Modules: modules, CanWrite: u.CanWrite()})
}
