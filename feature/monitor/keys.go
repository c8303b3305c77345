package monitor

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the monitor keybindings.
type KeyMap struct {
	Stop key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default keybinding configuration.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Stop: key.NewBinding(
			key.WithKeys("s", "ctrl+c"),
			key.WithHelp("s", "stop"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}
