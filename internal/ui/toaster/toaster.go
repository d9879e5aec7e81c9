// Package toaster renders notifications as bordered toast boxes and keeps a
// bounded stack of them for views that show several at once.
package toaster

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/procwatch/internal/ui/styles"
)

// Style selects a toast's icon and border color.
type Style int

const (
	StyleSuccess Style = iota
	StyleError
	StyleInfo
	StyleWarn
)

type look struct {
	icon   string
	border lipgloss.AdaptiveColor
}

var looks = map[Style]look{
	StyleSuccess: {icon: "✅", border: styles.ToastBorderSuccessColor},
	StyleError:   {icon: "❌", border: styles.ToastBorderErrorColor},
	StyleInfo:    {icon: "ℹ️", border: styles.ToastBorderInfoColor},
	StyleWarn:    {icon: "⚠️", border: styles.ToastBorderWarnColor},
}

// border (2) + horizontal padding (2)
const chrome = 4

var box = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())

// Render draws text as a toast at most width cells wide. Zero width is
// unbounded and empty text renders nothing.
func Render(text string, style Style, width int) string {
	if text == "" {
		return ""
	}
	l, ok := looks[style]
	if !ok {
		l = looks[StyleSuccess]
	}

	content := l.icon + " " + text
	if inner := width - chrome; width > 0 && inner > 0 {
		content = fit(content, inner)
	}
	return box.BorderForeground(l.border).Render(content)
}

// fit wraps content at word boundaries and truncates words that still overflow.
func fit(content string, width int) string {
	lines := strings.Split(wordwrap.String(content, width), "\n")
	for i, line := range lines {
		if runewidth.StringWidth(line) > width {
			lines[i] = runewidth.Truncate(line, width, "…")
		}
	}
	return strings.Join(lines, "\n")
}

// Toast is one notification on screen.
type Toast struct {
	ID    string
	Text  string
	Style Style
}

// Stack keeps the newest toasts, oldest first. The zero value is unbounded.
type Stack struct {
	limit  int
	toasts []Toast
}

// NewStack returns a stack holding at most limit toasts.
func NewStack(limit int) Stack {
	return Stack{limit: limit}
}

// Push adds t, evicting the oldest toast when the stack is full.
func (s Stack) Push(t Toast) Stack {
	toasts := make([]Toast, 0, len(s.toasts)+1)
	toasts = append(append(toasts, s.toasts...), t)
	if s.limit > 0 && len(toasts) > s.limit {
		toasts = toasts[len(toasts)-s.limit:]
	}
	s.toasts = toasts
	return s
}

// Dismiss removes the toast with id, if it is still shown.
func (s Stack) Dismiss(id string) Stack {
	kept := make([]Toast, 0, len(s.toasts))
	for _, t := range s.toasts {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.toasts = kept
	return s
}

// Clear removes every toast.
func (s Stack) Clear() Stack {
	s.toasts = nil
	return s
}

// Items returns the shown toasts, oldest first.
func (s Stack) Items() []Toast {
	return append([]Toast(nil), s.toasts...)
}

// Len returns how many toasts are shown.
func (s Stack) Len() int {
	return len(s.toasts)
}

// View renders each toast on its own lines.
func (s Stack) View(width int) string {
	var b strings.Builder
	for _, t := range s.toasts {
		b.WriteString(Render(t.Text, t.Style, width))
		b.WriteString("\n")
	}
	return b.String()
}

// DismissMsg asks a view to drop the toast with ID.
type DismissMsg struct {
	ID string
}

// ScheduleDismiss delivers a DismissMsg for id after d.
func ScheduleDismiss(id string, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return DismissMsg{ID: id}
	})
}
