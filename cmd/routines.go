package main

import (
	"context"
	"fmt"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/tasks"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/web"
	"github.com/urfave/cli/v3"
)

// withApp opens the database and hands the wired repositories and engine to fn.
func (r *Runner) withApp(cmd *cli.Command, fn func(app *web.App) error) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	app := web.NewApp(db, r.location(config), r.logger)
	app.Now = r.now
	return fn(app)
}

// followProgress logs progress updates until the returned wait func is called.
func (r *Runner) followProgress() (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			kv := []any{"phase", update.Phase}
			if update.Total > 0 {
				kv = append(kv, "step", update.Step, "total", update.Total)
			}
			r.logger.Info(update.Message, kv...)
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

func areaFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "area",
		Aliases:  []string{"a"},
		Usage:    "Board area (kitchen or maintenance)",
		Required: true,
		Validator: func(s string) error {
			_, err := models.ParseArea(s)
			return err
		},
	}
}

// weekOf resolves the --week flag, defaulting to the current week in the venue time zone.
func (r *Runner) weekOf(cmd *cli.Command, app *web.App) (calendar.Week, error) {
	date := cmd.String("week")
	if date == "" {
		date = calendar.Today(r.now(), app.Location)
	}
	week, err := calendar.WeekOf(date)
	if err != nil {
		return calendar.Week{}, fmt.Errorf("%w: --week: %v", shared.ErrInvalidArgument, err)
	}
	return week, nil
}

// RoutinesGenerate creates the tasks of every active routine of an area for one week.
func (r *Runner) RoutinesGenerate(ctx context.Context, cmd *cli.Command) error {
	area, err := models.ParseArea(cmd.String("area"))
	if err != nil {
		return err
	}

	return r.withApp(cmd, func(app *web.App) error {
		week, err := r.weekOf(cmd, app)
		if err != nil {
			return err
		}

		progress, wait := r.followProgress()
		result, err := app.Engine.GenerateWeek(ctx, progress, area, week.Start, cmd.String("by"))
		wait()
		if err != nil {
			return fmt.Errorf("failed to generate routine tasks: %w", err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(result, true)
		}

		r.writePlainHeader(fmt.Sprintf("%s routines: week of %s", area, result.WeekStart))
		r.writePlain("✓ Created: %d\n", len(result.Created))
		for _, t := range result.Created {
			r.writePlain("  • %s (%s to %s)\n", t.Title, t.WindowStart, t.WindowEnd)
		}
		if len(result.Skipped) > 0 {
			r.writePlain("Already generated: %d\n", len(result.Skipped))
			for _, s := range result.Skipped {
				r.writePlain("  • %s\n", s.Title)
			}
		}
		return nil
	})
}

// RoutinesList prints the routines of an area.
func (r *Runner) RoutinesList(ctx context.Context, cmd *cli.Command) error {
	area, err := models.ParseArea(cmd.String("area"))
	if err != nil {
		return err
	}

	return r.withApp(cmd, func(app *web.App) error {
		list, err := app.Routines.List(ctx, map[string]any{"area": area})
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(list, true)
		}

		r.writePlainHeader(fmt.Sprintf("%s routines (%d)", area, len(list)))
		for _, rt := range list {
			state := ""
			if !rt.Active {
				state = " (inactive)"
			}
			r.writePlain("%-40s %s-%s %-6s%s\n", rt.Title,
				calendar.WeekdayName(rt.StartDOW), calendar.WeekdayName(rt.EndDOW), rt.Priority, state)
		}
		return nil
	})
}
