// Package ui implements the interactive task board using bubbletea's Elm architecture.
//
// The board shows one area's tasks for one week:
//  1. [BoardView] : Browse the week's tasks, cycle their status and move between weeks
//  2. [ConfirmView] : Confirm routine generation for the selected week
//  3. [GenerateView] : Follow generation progress
//  4. [ResultView] : Review created and skipped routines
//
// The (view) [Model] implements bubbletea's Init/Update/View pattern and receives results through the Msg union type.
// Storage and generation are reached through the [TaskStore] and [Generator] interfaces, so the board runs
// against the same repositories and engine as the HTTP API. Generation progress arrives on a channel read
// one update per command.
package ui
