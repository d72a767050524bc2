package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the TUI key bindings.
type KeyMap struct {
	Quit     key.Binding
	Submit   key.Binding
	Cancel   key.Binding
	Focus    key.Binding
	Up       key.Binding
	Down     key.Binding
	Switch   key.Binding
	Delete   key.Binding
	Refresh  key.Binding
	New      key.Binding
	Approve  key.Binding
	Deny     key.Binding
	Mode     key.Binding
	Copy     key.Binding
	PrevLine key.Binding
	NextLine key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("j/k", "nav")),
		Down:     key.NewBinding(key.WithKeys("j", "down")),
		Switch:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		New:      key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
		Approve:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "allow")),
		Deny:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "deny")),
		Mode:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "mode")),
		Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy answer")),
		PrevLine: key.NewBinding(key.WithKeys("up"), key.WithHelp("↑↓", "recall")),
		NextLine: key.NewBinding(key.WithKeys("down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup/pgdn", "scroll")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d")),
	}
}
