package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestWatch_QuitKeys(t *testing.T) {
	require.Equal(t, []string{"q", "ctrl+c"}, Watch.Quit.Keys())
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, Watch.Quit))
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, Watch.Quit))
}

func TestWatch_DismissKeys(t *testing.T) {
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEsc}, Watch.Dismiss))
	require.False(t, key.Matches(tea.KeyMsg{Type: tea.KeyEsc}, Watch.Quit))
}

func TestWatch_HelpText(t *testing.T) {
	for _, b := range Watch.ShortHelp() {
		help := b.Help()
		require.NotEmpty(t, help.Key)
		require.NotEmpty(t, help.Desc)
	}
	require.Len(t, Watch.FullHelp(), 1)
}
