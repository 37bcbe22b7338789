package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/models"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTasksFetched MsgKind = iota
	MsgTaskUpdated
	MsgProgressUpdate
	MsgGenerateComplete
)

type tasksFetched struct {
	tasks []*models.Task
	err   error
}

type taskUpdated struct {
	task *models.Task
	from models.TaskStatus
	err  error
}

type generateComplete struct {
	result *tasks.GenerateResult
	err    error
}

// tasksFetchedMsg is the constructor for [MsgTasksFetched]
func tasksFetchedMsg(list []*models.Task, err error) Msg {
	return Msg{kind: MsgTasksFetched, data: tasksFetched{tasks: list, err: err}}
}

// taskUpdatedMsg is the constructor for [MsgTaskUpdated]
func taskUpdatedMsg(task *models.Task, from models.TaskStatus, err error) Msg {
	return Msg{kind: MsgTaskUpdated, data: taskUpdated{task: task, from: from, err: err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// generateCompleteMsg is the constructor for [MsgGenerateComplete]
func generateCompleteMsg(result *tasks.GenerateResult, err error) Msg {
	return Msg{kind: MsgGenerateComplete, data: generateComplete{result: result, err: err}}
}
