package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/tasks"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/web"
	"github.com/urfave/cli/v3"
)

// SalesImport imports a POS CSV export and auto-links its new products to dishes.
//
// A --file of "-" reads the export from stdin.
func (r *Runner) SalesImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")

	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open sales export: %w", err)
		}
		defer f.Close()
		in = f
	}

	batch := cmd.String("batch")
	if batch == "" {
		batch = "cli-" + r.now().Format("20060102T150405")
		if path != "-" {
			batch += "-" + filepath.Base(path)
		}
	}

	return r.withApp(cmd, func(app *web.App) error {
		progress, wait := r.followProgress()
		result, err := app.Engine.ImportSales(ctx, progress, in, batch)
		wait()
		if err != nil {
			return fmt.Errorf("failed to import sales: %w", err)
		}

		if cmd.Bool("json") {
			return r.writeJSON(result, true)
		}
		r.printImport(result)
		return nil
	})
}

func (r *Runner) printImport(result *tasks.ImportResult) {
	r.writePlainHeader("Sales import " + result.Batch)
	r.writePlain("Rows read:        %d\n", result.Rows)
	r.writePlain("Sales stored:     %d\n", result.Sales)
	r.writePlain("Products created: %d\n", result.ProductsCreated)

	if len(result.Invalid) > 0 {
		r.writePlainln("Skipped %d invalid rows:", len(result.Invalid))
		for _, e := range result.Invalid {
			r.writePlain("  • %s\n", e.Error())
		}
	}

	if links := result.Links; links != nil {
		r.printLinks(links)
	}
}

func (r *Runner) printLinks(links *tasks.LinkResult) {
	r.writePlainln("Auto-linked %d products:", len(links.Linked))
	for _, l := range links.Linked {
		r.writePlain("  • %s → %s\n", l.ProductName, l.DishName)
	}
	for _, name := range links.Ambiguous {
		r.writePlain("  ? %s matches several dishes\n", name)
	}
	if links.Unmatched > 0 {
		r.writePlain("%d products still unlinked\n", links.Unmatched)
	}
}

// SalesLink auto-links every unlinked product.
func (r *Runner) SalesLink(ctx context.Context, cmd *cli.Command) error {
	return r.withApp(cmd, func(app *web.App) error {
		progress, wait := r.followProgress()
		links, err := app.Engine.AutoLink(ctx, progress)
		wait()
		if err != nil {
			return fmt.Errorf("failed to link products: %w", err)
		}
		if cmd.Bool("json") {
			return r.writeJSON(links, true)
		}
		r.printLinks(links)
		return nil
	})
}

// SalesSummary prints units, revenue, theoretical cost and margin per dish. Defaults to month to date.
func (r *Runner) SalesSummary(ctx context.Context, cmd *cli.Command) error {
	return r.withApp(cmd, func(app *web.App) error {
		today := calendar.Today(r.now(), app.Location)
		from, to := cmd.String("from"), cmd.String("to")
		if from == "" {
			from = today[:8] + "01"
		}
		if to == "" {
			to = today
		}
		for _, d := range []string{from, to} {
			if _, err := calendar.Parse(d); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
			}
		}
		if to < from {
			return fmt.Errorf("%w: --to is before --from", shared.ErrInvalidArgument)
		}

		rows, err := app.Cheffing.SalesSummary(ctx, from, to)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(web.SalesSummaryView{From: from, To: to, Dishes: rows}, true)
		}

		r.writePlainHeader(fmt.Sprintf("Sales %s to %s", from, to))
		r.writePlain("%-32s %8s %10s %10s %10s\n", "Dish", "Units", "Revenue", "Cost", "Margin")
		for _, row := range rows {
			name := row.DishName
			if row.DishID == "" {
				name = "(unlinked products)"
			}
			r.writePlain("%-32s %8.1f %10.2f %10.2f %10.2f\n", name, row.Units, row.Revenue, row.Cost, row.Margin)
		}
		return nil
	})
}
