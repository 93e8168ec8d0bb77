package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	AutoAccept   key.Binding
	AutoHide     key.Binding
	MouseThrough key.Binding
	Refresh      key.Binding
	Quit         key.Binding
}

var defaultKeys = keyMap{
	AutoAccept: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "auto-accept"),
	),
	AutoHide: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "auto-hide"),
	),
	MouseThrough: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "mouse-through"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.AutoAccept, k.AutoHide, k.MouseThrough, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
