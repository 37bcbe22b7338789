package main

import (
	"context"
	"fmt"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/formatter"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/web"
	"github.com/urfave/cli/v3"
)

// findDish resolves --id, or --name compared accent and case insensitively.
func findDish(ctx context.Context, app *web.App, id, name string) (*models.Dish, error) {
	if id != "" {
		return app.Cheffing.Dishes.Get(ctx, id)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: --id or --name is required", shared.ErrMissingArgument)
	}

	dishes, err := app.Cheffing.Dishes.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	want := shared.NormalizeName(name)
	for _, d := range dishes {
		if shared.NormalizeName(d.Name) == want {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: no dish named %q", shared.ErrNotFound, name)
}

// DishesExport renders a dish costing sheet to stdout or --out.
func (r *Runner) DishesExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	return r.withApp(cmd, func(app *web.App) error {
		dish, err := findDish(ctx, app, cmd.String("id"), cmd.String("name"))
		if err != nil {
			return err
		}

		resolver, err := app.Cheffing.NewResolver(ctx)
		if err != nil {
			return err
		}
		b, err := resolver.DishBreakdown(dish.ID)
		if err != nil {
			return err
		}

		data, err := formatter.ExportBreakdown(b, format)
		if err != nil {
			return err
		}

		if out := cmd.String("out"); out != "" {
			if err := formatter.WriteExport(out, data); err != nil {
				return err
			}
			r.logger.Info("exported costing sheet", "dish", dish.Name, "format", format, "path", out)
			return r.writePlain("✓ Costing sheet for %s written to %s\n", dish.Name, out)
		}
		_, err = r.output.Write(data)
		return err
	})
}

// DishesList prints every dish with its current cost and margin.
func (r *Runner) DishesList(ctx context.Context, cmd *cli.Command) error {
	return r.withApp(cmd, func(app *web.App) error {
		criteria := map[string]any{}
		if c := cmd.String("category"); c != "" {
			criteria["category"] = c
		}

		dishes, err := app.Cheffing.Dishes.List(ctx, criteria)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(dishes, true)
		}

		resolver, err := app.Cheffing.NewResolver(ctx)
		if err != nil {
			return err
		}

		r.writePlainHeader(fmt.Sprintf("Dishes (%d)", len(dishes)))
		r.writePlain("%-32s %-14s %8s %8s %8s\n", "Dish", "Category", "Price", "Cost", "Margin")
		for _, d := range dishes {
			cost, err := resolver.DishCost(d.ID)
			if err != nil {
				r.logger.Warn("failed to cost dish", "dish", d.Name, "error", err)
				continue
			}
			r.writePlain("%-32s %-14s %8.2f %8.2f %8.2f\n", d.Name, d.Category, d.SellingPrice, cost, d.SellingPrice-cost)
		}
		return nil
	})
}
