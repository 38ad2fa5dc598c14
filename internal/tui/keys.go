package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the editor's key bindings.
type KeyMap struct {
	Next key.Binding
	Prev key.Binding

	Load  key.Binding
	Save  key.Binding
	Apply key.Binding // Starts the worker, or stops it when one is running.

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Every action uses a ctrl
// chord so plain keys always reach the focused field.
var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "prev field"),
	),
	Load: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "load"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save"),
	),
	Apply: key.NewBinding(
		key.WithKeys("ctrl+a"),
		key.WithHelp("ctrl+a", "apply/stop"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+q", "ctrl+c"),
		key.WithHelp("ctrl+q", "quit"),
	),
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Load, k.Save, k.Apply, k.Quit}
}

// FullHelp returns every binding, grouped for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev},
		{k.Load, k.Save, k.Apply},
		{k.Quit},
	}
}
