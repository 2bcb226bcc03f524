package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Execute    key.Binding
	Clear      key.Binding
	ShowValues key.Binding
	ShowPages  key.Binding
	ShowStats  key.Binding
	Help       key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Execute: key.NewBinding(
		key.WithKeys("ctrl+e", "ctrl+enter"),
		key.WithHelp("ctrl+e", "run commands"),
	),
	Clear: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear editor"),
	),
	ShowValues: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "show values"),
	),
	ShowPages: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("ctrl+p", "show pages"),
	),
	ShowStats: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "show stats"),
	),
	Help: key.NewBinding(
		key.WithKeys("ctrl+h"),
		key.WithHelp("ctrl+h", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "ctrl+q"),
		key.WithHelp("ctrl+c", "quit"),
	),
}
