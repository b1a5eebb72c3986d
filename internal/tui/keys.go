package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left    key.Binding
	Right   key.Binding
	Up      key.Binding
	Down    key.Binding
	Grab    key.Binding
	Cancel  key.Binding
	Detail  key.Binding
	MoveTo  key.Binding
	New     key.Binding
	Delete  key.Binding
	Refresh key.Binding
	Dismiss key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Left:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "left")),
		Right:   key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "right")),
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Grab:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "grab/drop")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Detail:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		MoveTo:  key.NewBinding(key.WithKeys("1", "2", "3"), key.WithHelp("1-3", "move to column")),
		New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		Delete:  key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Dismiss: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Grab, k.MoveTo, k.New, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down},
		{k.Grab, k.Cancel, k.MoveTo, k.Detail},
		{k.New, k.Delete, k.Refresh, k.Dismiss},
		{k.Help, k.Quit},
	}
}
