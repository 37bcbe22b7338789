package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

func TestTaskRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and Get", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		task := models.NewTask(models.AreaKitchen, "Sharpen knives", models.PriorityHigh)
		task.CreatedBy = "chef@example.com"

		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}

		got, err := repo.Get(ctx, task.ID)
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		if got.Title != task.Title || got.Priority != models.PriorityHigh || got.RoutineID != "" {
			t.Errorf("unexpected task: %+v", got)
		}
	})

	t.Run("Status round trip", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		task := models.NewTask(models.AreaMaintenance, "Replace bulb", models.PriorityNormal)
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}

		if err := task.Transition(models.TaskDone, "tech@example.com", time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := repo.Update(ctx, task); err != nil {
			t.Fatalf("failed to update task: %v", err)
		}

		got, _ := repo.Get(ctx, task.ID)
		if got.Status != models.TaskDone || got.CompletedAt == nil || got.CompletedBy != "tech@example.com" {
			t.Errorf("completion not persisted: %+v", got)
		}
	})

	t.Run("List filters", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))

		low := models.NewTask(models.AreaKitchen, "Label jars", models.PriorityLow)
		urgent := models.NewTask(models.AreaKitchen, "Fix cold room", models.PriorityUrgent)
		done := models.NewTask(models.AreaKitchen, "Order gas", models.PriorityHigh)
		done.Status = models.TaskDone
		other := models.NewTask(models.AreaMaintenance, "Paint door", models.PriorityUrgent)

		windowed := models.NewTask(models.AreaKitchen, "Deep clean", models.PriorityNormal)
		windowed.WeekStart = "2026-07-13"
		windowed.WindowStart = "2026-07-15"
		windowed.WindowEnd = "2026-07-16"

		late := models.NewTask(models.AreaKitchen, "Descale", models.PriorityNormal)
		late.WindowStart = "2026-07-06"
		late.WindowEnd = "2026-07-07"

		for _, task := range []*models.Task{low, urgent, done, other, windowed, late} {
			if err := repo.Create(ctx, task); err != nil {
				t.Fatalf("failed to create task: %v", err)
			}
		}

		tc := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{"open by priority", map[string]any{"area": models.AreaKitchen},
				[]string{"Fix cold room", "Descale", "Deep clean", "Label jars"}},
			{"include closed", map[string]any{"area": "kitchen", "include_closed": true},
				[]string{"Fix cold room", "Order gas", "Descale", "Deep clean", "Label jars"}},
			{"status", map[string]any{"area": "kitchen", "status": "done"}, []string{"Order gas"}},
			{"week", map[string]any{"area": "kitchen", "week": "2026-07-13"}, []string{"Deep clean"}},
			{"on window day", map[string]any{"area": "kitchen", "on": "2026-07-15"},
				[]string{"Fix cold room", "Descale", "Deep clean", "Label jars"}},
			{"on day outside window", map[string]any{"area": "kitchen", "on": "2026-07-14"},
				[]string{"Fix cold room", "Descale", "Label jars"}},
			{"on before overdue", map[string]any{"area": "kitchen", "on": "2026-07-01"},
				[]string{"Fix cold room", "Label jars"}},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				tasks, err := repo.List(ctx, tt.criteria)
				if err != nil {
					t.Fatalf("failed to list tasks: %v", err)
				}
				got := make([]string, len(tasks))
				for i, task := range tasks {
					got[i] = task.Title
				}
				if len(got) != len(tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
				for i := range got {
					if got[i] != tt.want[i] {
						t.Errorf("expected %v, got %v", tt.want, got)
						break
					}
				}
			})
		}
	})

	t.Run("CreateGenerated is idempotent", func(t *testing.T) {
		db := setupTestDB(t)
		routines := NewRoutineRepository(db)
		repo := NewTaskRepository(db)

		routine := models.NewRoutine(models.AreaKitchen, "Clean extractor", 1, 2, models.PriorityNormal)
		if err := routines.Create(ctx, routine); err != nil {
			t.Fatalf("failed to create routine: %v", err)
		}

		generate := func() bool {
			task := models.NewTask(models.AreaKitchen, routine.Title, routine.Priority)
			task.RoutineID = routine.ID
			task.WeekStart = "2026-07-13"
			task.WindowStart = "2026-07-13"
			task.WindowEnd = "2026-07-14"
			created, err := repo.CreateGenerated(ctx, task)
			if err != nil {
				t.Fatalf("failed to generate task: %v", err)
			}
			if created {
				if err := repo.Delete(ctx, task.ID); err != nil {
					t.Fatalf("failed to delete task: %v", err)
				}
			}
			return created
		}

		if !generate() {
			t.Fatal("expected first generation to create a task")
		}
		if generate() {
			t.Error("expected deleted generated task to block regeneration")
		}
	})

	t.Run("CreateGenerated needs routine", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		_, err := repo.CreateGenerated(ctx, models.NewTask(models.AreaKitchen, "Loose", models.PriorityLow))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Delete missing", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		if err := repo.Delete(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRoutineRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRoutineRepository(setupTestDB(t))

	weekly := models.NewRoutine(models.AreaMaintenance, "Test fire alarm", 5, 5, models.PriorityHigh)
	monday := models.NewRoutine(models.AreaMaintenance, "Check boiler", 1, 3, models.PriorityNormal)
	paused := models.NewRoutine(models.AreaMaintenance, "Winter check", 2, 2, models.PriorityLow)
	paused.Active = false
	kitchen := models.NewRoutine(models.AreaKitchen, "Inventory", 7, 7, models.PriorityNormal)

	for _, r := range []*models.Routine{weekly, monday, paused, kitchen} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("failed to create routine: %v", err)
		}
	}

	active, err := repo.List(ctx, map[string]any{"area": models.AreaMaintenance, "active": true})
	if err != nil {
		t.Fatalf("failed to list routines: %v", err)
	}
	if len(active) != 2 || active[0].ID != monday.ID || active[1].ID != weekly.ID {
		t.Errorf("expected active maintenance routines by start day, got %d", len(active))
	}

	monday.EndDOW = 4
	if err := repo.Update(ctx, monday); err != nil {
		t.Fatalf("failed to update routine: %v", err)
	}
	got, _ := repo.Get(ctx, monday.ID)
	if got.EndDOW != 4 {
		t.Errorf("expected end day 4, got %d", got.EndDOW)
	}

	monday.EndDOW = 0
	if err := repo.Update(ctx, monday); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	if err := repo.Delete(ctx, weekly.ID); err != nil {
		t.Fatalf("failed to delete routine: %v", err)
	}
	if _, err := repo.Get(ctx, weekly.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
