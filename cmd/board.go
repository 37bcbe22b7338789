package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/formatter"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/tasks"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/ui"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/web"
	"github.com/urfave/cli/v3"
)

// Board launches the interactive task board for an area, or prints the week with --print.
func (r *Runner) Board(ctx context.Context, cmd *cli.Command) error {
	area, err := models.ParseArea(cmd.String("area"))
	if err != nil {
		return err
	}

	if cmd.Bool("print") {
		return r.withApp(cmd, func(app *web.App) error {
			week, err := r.weekOf(cmd, app)
			if err != nil {
				return err
			}
			return r.printBoard(ctx, app, area, week)
		})
	}

	// Logs go to a file so they do not interfere with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	return r.withApp(cmd, func(app *web.App) error {
		model := ui.NewModel(ctx, area, cmd.String("user"), app.Tasks, app.Engine, fileLogger).
			WithClock(r.now, app.Location)

		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})
}

func (r *Runner) printBoard(ctx context.Context, app *web.App, area models.Area, week calendar.Week) error {
	list, err := app.Tasks.List(ctx, map[string]any{"area": area, "include_closed": true})
	if err != nil {
		return err
	}

	today := calendar.Today(r.now(), app.Location)
	data, err := formatter.BoardToText(area, week, tasks.InWeek(list, week), today)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}
