package tasks

import (
	"context"
	"fmt"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// RoutineStore lists routine templates.
type RoutineStore interface {
	List(ctx context.Context, criteria map[string]any) ([]*models.Routine, error)
}

// TaskStore stores generated tasks idempotently.
type TaskStore interface {
	CreateGenerated(ctx context.Context, task *models.Task) (bool, error)
}

// SalesStore persists till products, links and sales.
type SalesStore interface {
	UpsertProduct(ctx context.Context, code, name string) (*models.PosProduct, bool, error)
	UpsertSale(ctx context.Context, sale *models.PosSale) error
	ListProducts(ctx context.Context, criteria map[string]any) ([]*models.PosProduct, error)
	AutoLink(ctx context.Context, productID, dishID string) (bool, error)
}

// DishStore lists dishes.
type DishStore interface {
	List(ctx context.Context, criteria map[string]any) ([]*models.Dish, error)
}

// Engine runs routine generation and sales imports. Any store may be nil when the caller
// only needs the other operation.
type Engine struct {
	routines RoutineStore
	tasks    TaskStore
	sales    SalesStore
	dishes   DishStore
}

// NewEngine creates a new Engine with the provided stores.
func NewEngine(routines RoutineStore, tasks TaskStore, sales SalesStore, dishes DishStore) *Engine {
	return &Engine{routines: routines, tasks: tasks, sales: sales, dishes: dishes}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// SkippedRoutine is a routine that already produced its task for the week.
type SkippedRoutine struct {
	RoutineID string `json:"routine_id"`
	Title     string `json:"title"`
}

// GenerateResult contains the outcome of a weekly generation run.
type GenerateResult struct {
	Area      models.Area      `json:"area"`
	WeekStart string           `json:"week_start"`
	Created   []*models.Task   `json:"created"`
	Skipped   []SkippedRoutine `json:"skipped"`
}

// GenerateWeek creates one task per active routine of area for the week containing week.
//
// Each task's window spans the routine's days within that week. Routines that already produced a task
// for the week are skipped, so running the generator twice is harmless.
func (e *Engine) GenerateWeek(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	area models.Area,
	week, createdBy string,
) (*GenerateResult, error) {
	if e.routines == nil || e.tasks == nil {
		return nil, fmt.Errorf("%w: routine generation is not configured", shared.ErrServiceUnavailable)
	}

	monday, err := calendar.WeekStart(week)
	if err != nil {
		return nil, err
	}

	routines, err := e.routines.List(ctx, map[string]any{"area": area, "active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to load routines: %w", err)
	}
	e.sendProgress(progress, loadRoutinesUpdate(area, len(routines)))

	result := &GenerateResult{
		Area:      area,
		WeekStart: monday,
		Created:   []*models.Task{},
		Skipped:   []SkippedRoutine{},
	}

	for i, r := range routines {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		window, err := calendar.RoutineWindow(monday, r.StartDOW, r.EndDOW)
		if err != nil {
			return result, fmt.Errorf("routine %s: %w", r.Title, err)
		}

		task := models.NewTask(area, r.Title, r.Priority)
		task.Description = r.Description
		task.RoutineID = r.ID
		task.WeekStart = monday
		task.WindowStart = window.Start
		task.WindowEnd = window.End
		task.CreatedBy = createdBy

		created, err := e.tasks.CreateGenerated(ctx, task)
		if err != nil {
			return result, fmt.Errorf("failed to generate task for routine %s: %w", r.Title, err)
		}

		if created {
			result.Created = append(result.Created, task)
			routineTasks.WithLabelValues(string(area), "created").Inc()
		} else {
			result.Skipped = append(result.Skipped, SkippedRoutine{RoutineID: r.ID, Title: r.Title})
			routineTasks.WithLabelValues(string(area), "skipped").Inc()
		}
		e.sendProgress(progress, generateTaskUpdate(i+1, len(routines), r, created))
	}

	return result, nil
}

// InWeek keeps the tasks whose window overlaps week, plus tasks without a window.
func InWeek(list []*models.Task, week calendar.Week) []*models.Task {
	out := make([]*models.Task, 0, len(list))
	for _, t := range list {
		if t.WindowStart == "" {
			out = append(out, t)
			continue
		}
		end := t.WindowEnd
		if end == "" {
			end = t.WindowStart
		}
		if t.WindowStart <= week.End && end >= week.Start {
			out = append(out, t)
		}
	}
	return out
}
