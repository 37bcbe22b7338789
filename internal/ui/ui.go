package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/calendar"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BoardView ViewState = iota
	ConfirmView
	GenerateView
	ResultView
)

// TaskStore reads and saves board tasks.
type TaskStore interface {
	List(ctx context.Context, criteria map[string]any) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
}

// Generator creates a week's routine tasks.
type Generator interface {
	GenerateWeek(ctx context.Context, progress chan<- tasks.ProgressUpdate, area models.Area, week, createdBy string) (*tasks.GenerateResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	area      models.Area
	user      string
	store     TaskStore
	generator Generator
	logger    *log.Logger
	now       func() time.Time
	loc       *time.Location
	week      calendar.Week
	width     int
	height    int
	taskList  list.Model
	loaded    bool
	flash     string
	progress  tasks.ProgressUpdate
	updates   <-chan tasks.ProgressUpdate
	done      <-chan Msg
	result    *tasks.GenerateResult
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a board for area. user is recorded as the person completing tasks.
func NewModel(ctx context.Context, area models.Area, user string, store TaskStore, generator Generator, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	m := &Model{
		ctx:       ctx,
		view:      BoardView,
		area:      area,
		user:      user,
		store:     store,
		generator: generator,
		logger:    logger,
		now:       time.Now,
		loc:       time.Local,
		help:      help.New(),
		keys:      newKeyMap(),
	}

	m.taskList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.taskList.SetShowHelp(false)
	m.taskList.DisableQuitKeybindings()
	m.setWeek(m.today())
	return m
}

// WithClock overrides the clock and time zone used to find today and the current week.
func (m *Model) WithClock(now func() time.Time, loc *time.Location) *Model {
	m.now, m.loc = now, loc
	m.setWeek(m.today())
	return m
}

func (m *Model) today() string {
	return calendar.Today(m.now(), m.loc)
}

func (m *Model) setWeek(date string) {
	week, err := calendar.WeekOf(date)
	if err != nil {
		m.err = err
		return
	}
	m.week = week
	m.taskList.Title = fmt.Sprintf("%s board · %s", strings.ToUpper(string(m.area[:1]))+string(m.area[1:]), weekLabel(week))
}

// Init initializes the TUI by loading the current week.
func (m *Model) Init() tea.Cmd {
	return m.fetchTasks()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.taskList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case BoardView:
			return m.handleBoardKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case GenerateView:
			if key.Matches(msg, m.keys.quit) && msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTasksFetched:
		data := msg.data.(tasksFetched)
		m.loaded = true
		if data.err != nil {
			m.err = data.err
			m.logger.Error("failed to load board", "area", m.area, "week", m.week.Start, "error", data.err)
			return m, nil
		}
		m.err = nil

		today := m.today()
		items := make([]list.Item, len(data.tasks))
		for i, t := range data.tasks {
			items[i] = taskItem{task: t, today: today}
		}
		return m, m.taskList.SetItems(items)

	case MsgTaskUpdated:
		data := msg.data.(taskUpdated)
		if data.err != nil {
			m.flash = styles.err.Render(fmt.Sprintf("Could not update %q: %v", data.task.Title, data.err))
			m.logger.Error("failed to update task", "task", data.task.ID, "error", data.err)
			return m, m.fetchTasks()
		}

		m.replaceTask(data.task)
		m.flash = styles.ok.Render(fmt.Sprintf("%s: %s → %s", data.task.Title, data.from, data.task.Status))
		m.logger.Info("task status changed", "task", data.task.ID, "from", data.from, "to", data.task.Status, "by", m.user)
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.updates, m.done)

	case MsgGenerateComplete:
		data := msg.data.(generateComplete)
		m.updates, m.done = nil, nil
		m.result = data.result
		m.view = ResultView
		if data.err != nil {
			m.flash = styles.err.Render(fmt.Sprintf("Generation failed: %v", data.err))
			m.logger.Error("failed to generate routine tasks", "area", m.area, "week", m.week.Start, "error", data.err)
			return m, nil
		}
		m.flash = ""
		m.logger.Info("generated routine tasks", "area", m.area, "week", data.result.WeekStart,
			"created", len(data.result.Created), "skipped", len(data.result.Skipped))
		return m, nil
	}
	return m, nil
}

func (m *Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.taskList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.cycle):
		if t := m.selectedTask(); t != nil {
			return m, m.transition(t, nextStatus(t.Status))
		}
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		if t := m.selectedTask(); t != nil {
			return m, m.transition(t, models.TaskCancelled)
		}
		return m, nil
	case key.Matches(msg, m.keys.prev), key.Matches(msg, m.keys.next):
		days := 7
		if key.Matches(msg, m.keys.prev) {
			days = -7
		}
		date, err := calendar.AddDays(m.week.Start, days)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.setWeek(date)
		m.flash = ""
		return m, m.fetchTasks()
	case key.Matches(msg, m.keys.refresh):
		m.flash = ""
		return m, m.fetchTasks()
	case key.Matches(msg, m.keys.generate):
		if m.generator != nil {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = GenerateView
		m.progress = tasks.ProgressUpdate{}
		return m, m.startGenerate()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = BoardView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.cycle), key.Matches(msg, m.keys.quit):
		m.view = BoardView
		m.result = nil
		return m, m.fetchTasks()
	}
	return m, nil
}

func (m *Model) selectedTask() *models.Task {
	item, ok := m.taskList.SelectedItem().(taskItem)
	if !ok {
		return nil
	}
	return item.task
}

func (m *Model) replaceTask(task *models.Task) {
	for i, item := range m.taskList.Items() {
		if ti, ok := item.(taskItem); ok && ti.task.ID == task.ID {
			m.taskList.SetItem(i, taskItem{task: task, today: m.today()})
			return
		}
	}
}

// transition applies the status change locally, then saves it. Invalid changes only flash a message.
func (m *Model) transition(t *models.Task, to models.TaskStatus) tea.Cmd {
	updated := *t
	if err := updated.Transition(to, m.user, m.now()); err != nil {
		m.flash = styles.err.Render(err.Error())
		return nil
	}

	from := t.Status
	return func() tea.Msg {
		err := m.store.Update(m.ctx, &updated)
		return taskUpdatedMsg(&updated, from, err)
	}
}

// fetchTasks loads the tasks of the selected week. The current week also shows open tasks still overdue.
func (m *Model) fetchTasks() tea.Cmd {
	week, today := m.week, m.today()
	return func() tea.Msg {
		all, err := m.store.List(m.ctx, map[string]any{"area": m.area, "include_closed": true})
		if err != nil {
			return tasksFetchedMsg(nil, err)
		}

		shown := tasks.InWeek(all, week)
		if week.Start <= today && today <= week.End {
			seen := make(map[string]bool, len(shown))
			for _, t := range shown {
				seen[t.ID] = true
			}
			for _, t := range all {
				if !seen[t.ID] && t.Overdue(today) {
					shown = append(shown, t)
				}
			}
		}
		return tasksFetchedMsg(shown, nil)
	}
}

// startGenerate runs the generator in the background and streams its progress.
func (m *Model) startGenerate() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	week := m.week.Start

	m.updates, m.done = progress, done

	go func() {
		result, err := m.generator.GenerateWeek(m.ctx, progress, m.area, week, m.user)
		close(progress)
		done <- generateCompleteMsg(result, err)
	}()

	return waitForProgress(progress, done)
}

func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case GenerateView:
		return m.renderGenerate()
	case ResultView:
		return m.renderResult()
	default:
		return m.renderBoard()
	}
}

func (m *Model) renderBoard() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}
	if !m.loaded {
		return styles.help.Render("Loading board...")
	}

	var b strings.Builder
	b.WriteString(m.taskList.View())
	if m.flash != "" {
		b.WriteString("\n" + m.flash)
	}
	b.WriteString("\n\n" + m.help.ShortHelpView([]key.Binding{
		m.keys.cycle, m.keys.cancel, m.keys.prev, m.keys.next, m.keys.generate, m.keys.quit,
	}))
	return b.String()
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Generate %s routine tasks?", m.area))
	info := fmt.Sprintf("\nWeek: %s\nRoutines that already produced a task this week are skipped.\n", weekLabel(m.week))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderGenerate() string {
	title := styles.title.Render("Generating routine tasks")

	var phase string
	switch m.progress.Phase {
	case tasks.LoadRoutines:
		phase = "Loading routines..."
	case tasks.GenerateTasks:
		phase = fmt.Sprintf("Creating tasks (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Starting..."
	}
	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	if m.result == nil {
		msg := m.flash
		if msg == "" {
			msg = styles.err.Render("No result available")
		}
		return fmt.Sprintf("%s\n\n%s", msg, helpView)
	}

	title := styles.ok.Render(fmt.Sprintf("✓ Week of %s generated", m.result.WeekStart))
	var b strings.Builder
	fmt.Fprintf(&b, "\nCreated: %d\n", len(m.result.Created))
	for _, t := range m.result.Created {
		fmt.Fprintf(&b, "  • %s (%s)\n", t.Title, windowLabel(t))
	}
	if len(m.result.Skipped) > 0 {
		b.WriteString(styles.warn.Render(fmt.Sprintf("Already generated: %d", len(m.result.Skipped))) + "\n")
		for _, s := range m.result.Skipped {
			fmt.Fprintf(&b, "  • %s\n", s.Title)
		}
	}
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}
