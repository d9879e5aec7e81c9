// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// WatchKeyMap defines the keybindings of the live status view.
type WatchKeyMap struct {
	Dismiss key.Binding
	Quit    key.Binding
}

// Watch is the active keymap of the status view.
var Watch = DefaultWatchKeyMap()

// DefaultWatchKeyMap returns the default keybindings.
func DefaultWatchKeyMap() WatchKeyMap {
	return WatchKeyMap{
		Dismiss: key.NewBinding(
			key.WithKeys("esc", "x"),
			key.WithHelp("esc", "dismiss notifications"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "stop program"),
		),
	}
}

// ShortHelp returns keybindings for the mini help view.
func (k WatchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dismiss, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k WatchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
