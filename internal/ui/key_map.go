package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the board.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	cycle    key.Binding
	cancel   key.Binding
	prev     key.Binding
	next     key.Binding
	generate key.Binding
	refresh  key.Binding
	back     key.Binding
	yes      key.Binding
	no       key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		cycle:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter/space", "next status")),
		cancel:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel task")),
		prev:     key.NewBinding(key.WithKeys("[", "h"), key.WithHelp("[/h", "previous week")),
		next:     key.NewBinding(key.WithKeys("]", "l"), key.WithHelp("]/l", "next week")),
		generate: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate routines")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.cycle, k.cancel, k.generate, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.cycle, k.cancel},
		{k.prev, k.next, k.generate, k.refresh},
		{k.back, k.yes, k.no, k.quit},
	}
}
