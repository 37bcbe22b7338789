package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
)

var _ list.Item = taskItem{}

var statusMarks = map[models.TaskStatus]string{
	models.TaskPending:    "[ ]",
	models.TaskInProgress: "[~]",
	models.TaskDone:       "[x]",
	models.TaskCancelled:  "[-]",
}

// taskItem wraps [models.Task] to implement [list.Item].
type taskItem struct {
	task  *models.Task
	today string
}

func (i taskItem) FilterValue() string { return i.task.Title }
func (i taskItem) Title() string {
	title := styles.status(i.task.Status).Render(statusMarks[i.task.Status]) + " " + i.task.Title
	if i.task.Priority == models.PriorityHigh || i.task.Priority == models.PriorityUrgent {
		title += " " + styles.warn.Render("!"+string(i.task.Priority))
	}
	return title
}

func (i taskItem) Description() string {
	parts := []string{windowLabel(i.task)}
	if i.task.Overdue(i.today) {
		parts = append(parts, styles.err.Render("overdue"))
	}
	if i.task.CompletedBy != "" {
		parts = append(parts, "done by "+i.task.CompletedBy)
	}
	return strings.Join(parts, " • ")
}

// windowLabel renders a task window as "Mon 13" or "Mon 13 - Wed 15".
func windowLabel(t *models.Task) string {
	if t.WindowStart == "" {
		return "any day"
	}
	start := dayLabel(t.WindowStart)
	if t.WindowEnd == "" || t.WindowEnd == t.WindowStart {
		return start
	}
	return fmt.Sprintf("%s - %s", start, dayLabel(t.WindowEnd))
}

func dayLabel(date string) string {
	d, err := calendar.Parse(date)
	if err != nil {
		return date
	}
	return d.Format("Mon 2")
}

// nextStatus is the status the cycle key moves a task to.
func nextStatus(s models.TaskStatus) models.TaskStatus {
	switch s {
	case models.TaskPending:
		return models.TaskInProgress
	case models.TaskInProgress:
		return models.TaskDone
	default:
		return models.TaskPending
	}
}

// weekLabel renders "13 Jul - 19 Jul 2026".
func weekLabel(w calendar.Week) string {
	start, err1 := calendar.Parse(w.Start)
	end, err2 := calendar.Parse(w.End)
	if err1 != nil || err2 != nil {
		return w.Start + " - " + w.End
	}
	return fmt.Sprintf("%s - %s", start.Format("2 Jan"), end.Format("2 Jan 2006"))
}
