package tasks

import (
	"fmt"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LoadRoutines Phase = iota
	GenerateTasks
	ParseSales
	ImportSales
	LinkProducts
)

func (p Phase) String() string {
	switch p {
	case LoadRoutines:
		return "load_routines"
	case GenerateTasks:
		return "generate_tasks"
	case ParseSales:
		return "parse_sales"
	case ImportSales:
		return "import_sales"
	case LinkProducts:
		return "link_products"
	default:
		return ""
	}
}

func loadRoutinesUpdate(area models.Area, found int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadRoutines,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d active %s routines", found, area),
	}
}

func generateTaskUpdate(step, total int, r *models.Routine, created bool) ProgressUpdate {
	mark := "✓"
	if !created {
		mark = "-"
	}
	return ProgressUpdate{
		Phase:   GenerateTasks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, r.Title),
		Data:    r,
	}
}

func parseSalesUpdate(rows, invalid int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParseSales,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Parsed %d sales rows (%d skipped)", rows, invalid),
	}
}

func importSaleUpdate(step, total int, s SalesRow) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportSales,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s x%g", step, total, s.Date, s.Name, s.Quantity),
	}
}

func linkProductUpdate(step, total int, l Link) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LinkProducts,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s → %s", step, total, l.ProductName, l.DishName),
		Data:    l,
	}
}
