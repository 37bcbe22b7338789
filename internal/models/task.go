package models

import (
	"fmt"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// Area is the board a task or routine belongs to.
type Area string

const (
	AreaKitchen     Area = "kitchen"
	AreaMaintenance Area = "maintenance"
)

// ParseArea converts a path or flag value to an [Area].
func ParseArea(s string) (Area, error) {
	switch Area(s) {
	case AreaKitchen, AreaMaintenance:
		return Area(s), nil
	default:
		return "", fmt.Errorf("%w: unknown area %q", shared.ErrInvalidInput, s)
	}
}

// Module returns the permission module guarding the area.
func (a Area) Module() Module {
	if a == AreaKitchen {
		return ModuleKitchen
	}
	return ModuleMaintenance
}

// Priority orders tasks on a board, highest first.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities, higher is more pressing.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	default:
		return 0
	}
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

// IsOpen reports whether work is still expected on a task in this status.
func (s TaskStatus) IsOpen() bool {
	return s == TaskPending || s == TaskInProgress
}

var transitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskInProgress, TaskDone, TaskCancelled},
	TaskInProgress: {TaskPending, TaskDone, TaskCancelled},
	TaskDone:       {TaskPending},
	TaskCancelled:  {TaskPending},
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Task is an item on the kitchen or maintenance board, either ad hoc or generated from a [Routine].
//
// Generated tasks carry the routine, the Monday of their week and a date window inside that week.
type Task struct {
	Meta
	Area        Area       `json:"area" validate:"required,oneof=kitchen maintenance"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=4000"`
	Priority    Priority   `json:"priority" validate:"required,oneof=low normal high urgent"`
	Status      TaskStatus `json:"status" validate:"required,oneof=pending in_progress done cancelled"`
	RoutineID   string     `json:"routine_id,omitempty"`
	WeekStart   string     `json:"week_start,omitempty" validate:"omitempty,isodate"`
	WindowStart string     `json:"window_start,omitempty" validate:"omitempty,isodate"`
	WindowEnd   string     `json:"window_end,omitempty" validate:"omitempty,isodate"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty"`
	CreatedBy   string     `json:"created_by"`
}

// NewTask creates a pending task.
func NewTask(area Area, title string, priority Priority) *Task {
	t := &Task{Area: area, Title: title, Priority: priority, Status: TaskPending}
	t.Touch(time.Now())
	return t
}

// Validate implements [Model].
func (t *Task) Validate() error {
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	if t.Status == "" {
		t.Status = TaskPending
	}
	if err := Validate(t); err != nil {
		return err
	}
	if t.WindowStart != "" && t.WindowEnd != "" && t.WindowEnd < t.WindowStart {
		return fmt.Errorf("%w: window_end is before window_start", shared.ErrInvalidInput)
	}
	return nil
}

// Transition moves the task to status to, stamping completion when it becomes done.
//
// Setting the current status again is a no-op.
func (t *Task) Transition(to TaskStatus, by string, now time.Time) error {
	if to == t.Status {
		return nil
	}
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, t.Status, to)
	}

	t.Status = to
	if to == TaskDone {
		t.CompletedAt = &now
		t.CompletedBy = by
	} else {
		t.CompletedAt = nil
		t.CompletedBy = ""
	}
	return nil
}

// Overdue reports whether the task is still open after its window closed. today is YYYY-MM-DD.
func (t *Task) Overdue(today string) bool {
	return t.Status.IsOpen() && t.WindowEnd != "" && t.WindowEnd < today
}

// Routine is a weekly task template. Days of week run 1 (Monday) to 7 (Sunday).
type Routine struct {
	Meta
	Area        Area     `json:"area" validate:"required,oneof=kitchen maintenance"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=4000"`
	StartDOW    int      `json:"start_dow" validate:"min=1,max=7"`
	EndDOW      int      `json:"end_dow" validate:"min=1,max=7,gtefield=StartDOW"`
	Priority    Priority `json:"priority" validate:"required,oneof=low normal high urgent"`
	Active      bool     `json:"active"`
}

// NewRoutine creates an active routine.
func NewRoutine(area Area, title string, startDOW, endDOW int, priority Priority) *Routine {
	r := &Routine{
		Area:     area,
		Title:    title,
		StartDOW: startDOW,
		EndDOW:   endDOW,
		Priority: priority,
		Active:   true,
	}
	r.Touch(time.Now())
	return r
}

// Validate implements [Model].
func (r *Routine) Validate() error {
	if r.Priority == "" {
		r.Priority = PriorityNormal
	}
	return Validate(r)
}
