// package formatter provides functions to export costing sheets and task boards to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/cheffing"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts csv, markdown (or md) and text (or txt).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension of f without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func qty(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

// BreakdownToCSV converts a costing sheet to CSV format with columns: Kind, Component, Quantity, Unit, UnitCost, Cost, Allergens.
//
// A final TOTAL row carries the total cost.
func BreakdownToCSV(b *cheffing.Breakdown) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Kind", "Component", "Quantity", "Unit", "UnitCost", "Cost", "Allergens"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, line := range b.Lines {
		name := line.Name
		if line.Missing {
			name = fmt.Sprintf("(missing %s)", line.ComponentID)
		}
		record := []string{
			string(line.Kind),
			name,
			qty(line.Quantity),
			line.Unit,
			money(line.UnitCost),
			money(line.Cost),
			strings.Join(line.Allergens, " "),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	total := []string{"TOTAL", b.Name, "", "", "", money(b.TotalCost), strings.Join(b.Allergens, " ")}
	if err := writer.Write(total); err != nil {
		return nil, fmt.Errorf("failed to write CSV record: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// BreakdownToMarkdown converts a costing sheet to a Markdown document with a cost table and allergen provenance.
func BreakdownToMarkdown(b *cheffing.Breakdown) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", b.Name)

	if b.Kind == "dish" {
		fmt.Fprintf(&buf, "**Selling price**: %s\n", money(b.SellingPrice))
		fmt.Fprintf(&buf, "**Cost**: %s\n", money(b.TotalCost))
		fmt.Fprintf(&buf, "**Margin**: %s\n", money(b.Margin))
		fmt.Fprintf(&buf, "**Food cost**: %.1f%%\n\n", b.FoodCostPct)
	} else {
		fmt.Fprintf(&buf, "**Batch cost**: %s\n", money(b.TotalCost))
		fmt.Fprintf(&buf, "**Usable yield**: %s %s\n", qty(b.UsableYield), b.YieldUnit)
		fmt.Fprintf(&buf, "**Cost per %s**: %s\n\n", b.YieldUnit, money(b.UnitCost))
	}

	buf.WriteString("## Items\n\n")
	buf.WriteString("| Component | Quantity | Unit cost | Cost |\n")
	buf.WriteString("|---|---:|---:|---:|\n")
	for _, line := range b.Lines {
		name := line.Name
		switch {
		case line.Missing:
			name = fmt.Sprintf("_missing %s_", line.ComponentID)
		case line.Cyclic:
			name += " (cycle)"
		}
		fmt.Fprintf(&buf, "| %s | %s %s | %s | %s |\n", name, qty(line.Quantity), line.Unit, money(line.UnitCost), money(line.Cost))
	}
	fmt.Fprintf(&buf, "| **Total** | | | **%s** |\n\n", money(b.TotalCost))

	buf.WriteString("## Allergens\n\n")
	if len(b.Allergens) == 0 {
		buf.WriteString("None declared.\n")
	}
	for _, a := range b.Allergens {
		sources := slices.Clone(b.Sources[a])
		slices.Sort(sources)
		fmt.Fprintf(&buf, "- %s", a)
		if len(sources) > 0 {
			fmt.Fprintf(&buf, " (from %s)", strings.Join(sources, ", "))
		}
		buf.WriteString("\n")
	}

	if len(b.Indicators) > 0 {
		fmt.Fprintf(&buf, "\n**Indicators**: %s\n", strings.Join(b.Indicators, ", "))
	}

	if len(b.Cycles) > 0 {
		fmt.Fprintf(&buf, "\n> Warning: sub-recipe cycle through %s; those items are costed at zero.\n", strings.Join(b.Cycles, ", "))
	}

	return buf.Bytes(), nil
}

// ExportBreakdown renders a costing sheet in the given format. Text falls back to Markdown.
func ExportBreakdown(b *cheffing.Breakdown, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return BreakdownToCSV(b)
	default:
		return BreakdownToMarkdown(b)
	}
}

var statusMarks = map[models.TaskStatus]string{
	models.TaskPending:    "[ ]",
	models.TaskInProgress: "[~]",
	models.TaskDone:       "[x]",
	models.TaskCancelled:  "[-]",
}

// BoardToText converts a week of tasks to a printable board, one section per day plus a section for
// tasks without a window. A task appears on every day of its window. today marks overdue tasks.
func BoardToText(area models.Area, week calendar.Week, tasks []*models.Task, today string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s board: %s to %s\n", strings.ToUpper(string(area[:1]))+string(area[1:]), week.Start, week.End)
	fmt.Fprintf(&buf, "Tasks: %d\n", len(tasks))

	writeTask := func(t *models.Task) {
		fmt.Fprintf(&buf, "  %s %s", statusMarks[t.Status], t.Title)
		if t.Priority == models.PriorityHigh || t.Priority == models.PriorityUrgent {
			fmt.Fprintf(&buf, " !%s", t.Priority)
		}
		if t.Overdue(today) {
			buf.WriteString(" OVERDUE")
		}
		if t.CompletedBy != "" {
			fmt.Fprintf(&buf, " (done by %s)", t.CompletedBy)
		}
		buf.WriteString("\n")
	}

	for _, day := range week.Days {
		fmt.Fprintf(&buf, "\n%s %s\n", weekdayNames[day.Weekday-1], day.Date)
		n := 0
		for _, t := range tasks {
			if t.WindowStart == "" {
				continue
			}
			w := calendar.Window{Start: t.WindowStart, End: t.WindowEnd}
			if w.End == "" {
				w.End = w.Start
			}
			if w.Contains(day.Date) {
				writeTask(t)
				n++
			}
		}
		if n == 0 {
			buf.WriteString("  -\n")
		}
	}

	var unscheduled []*models.Task
	for _, t := range tasks {
		if t.WindowStart == "" {
			unscheduled = append(unscheduled, t)
		}
	}
	if len(unscheduled) > 0 {
		buf.WriteString("\nAny day\n")
		for _, t := range unscheduled {
			writeTask(t)
		}
	}

	return buf.Bytes(), nil
}

var weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WriteExport writes data to path, creating or truncating the file.
func WriteExport(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
