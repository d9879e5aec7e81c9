// Package watch implements the live status view shown while a supervised
// process runs: a spinner with the command line and a stack of toasts fed
// from the message bus.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/procwatch/internal/guiprocess"
	"github.com/zjrosen/procwatch/internal/keys"
	"github.com/zjrosen/procwatch/internal/log"
	"github.com/zjrosen/procwatch/internal/message"
	"github.com/zjrosen/procwatch/internal/pubsub"
	"github.com/zjrosen/procwatch/internal/ui/styles"
	"github.com/zjrosen/procwatch/internal/ui/toaster"
)

// maxToasts bounds how many notifications are stacked at once.
const maxToasts = 3

// Source is the read side of a supervisor the view polls for status.
type Source interface {
	State() guiprocess.State
	ExitCode() (int, bool)
	WinID() string
	Label() string
	Cmd() string
	Args() []string
}

// DoneMsg is sent when the supervisor's event loop returns.
type DoneMsg struct {
	Err error
}

// WaitCmd turns the result of a background Run into a DoneMsg.
func WaitCmd(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return DoneMsg{Err: <-done}
	}
}

// Model is the bubbletea model for the watch view.
type Model struct {
	src         Source
	listener    *pubsub.ContinuousListener[message.Message]
	done        <-chan error
	spinner     spinner.Model
	help        help.Model
	toasts      toaster.Stack
	dismissable time.Duration
	width       int
	started     time.Time
	now         func() time.Time
	finished    bool
	interrupted bool
	err         error
}

// Option configures a Model.
type Option func(*Model)

// WithNotifyTimeout sets how long each toast stays visible. Zero keeps
// toasts until the view exits.
func WithNotifyTimeout(d time.Duration) Option {
	return func(m *Model) {
		m.dismissable = d
	}
}

// WithClock overrides time.Now for elapsed-time rendering.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

// New creates the view. Notifications are read from bus for the lifetime of
// ctx; done must yield the supervisor's Run result exactly once.
func New(ctx context.Context, src Source, bus pubsub.Subscriber[message.Message], done <-chan error, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	m := Model{
		src:      src,
		listener: pubsub.NewContinuousListener(ctx, bus),
		done:     done,
		spinner:  sp,
		help:     help.New(),
		toasts:   toaster.NewStack(maxToasts),
		width:    80,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.started = m.now()
	return m
}

// Init starts the spinner, the bus listener and the completion wait.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listener.Listen(), WaitCmd(m.done))
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Watch.Quit):
			log.Debug(log.CatUI, "watch interrupted", "key", msg.String())
			m.interrupted = true
			return m, tea.Quit
		case key.Matches(msg, keys.Watch.Dismiss):
			m.toasts = m.toasts.Clear()
		}
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pubsub.Event[message.Message]:
		return m.push(msg.Payload)

	case pubsub.ClosedMsg:
		log.Debug(log.CatUI, "notification bus closed")
		return m, nil

	case toaster.DismissMsg:
		m.toasts = m.toasts.Dismiss(msg.ID)
		return m, nil

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) push(msg message.Message) (tea.Model, tea.Cmd) {
	if msg.WinID != "" && msg.WinID != m.src.WinID() {
		return m, m.listener.Listen()
	}
	m.toasts = m.toasts.Push(toaster.Toast{ID: msg.ID, Text: msg.Text, Style: message.ToastStyle(msg.Level)})
	cmds := []tea.Cmd{m.listener.Listen()}
	if m.dismissable > 0 {
		cmds = append(cmds, toaster.ScheduleDismiss(msg.ID, m.dismissable))
	}
	return m, tea.Batch(cmds...)
}

// View renders the status line followed by the toast stack.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(styles.MutedStyle.Render("$ " + guiprocess.Cmdline(m.src.Cmd(), m.src.Args())))
	b.WriteString("\n")

	b.WriteString(m.toasts.View(m.width))
	if !m.finished {
		b.WriteString(m.help.View(keys.Watch))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) statusLine() string {
	title := styles.TitleStyle.Render(m.src.Label())
	elapsed := m.now().Sub(m.started).Round(100 * time.Millisecond)

	if !m.finished {
		return fmt.Sprintf("%s %s %s", m.spinner.View(), title,
			styles.MutedStyle.Render(fmt.Sprintf("%s (%s)", m.src.State(), elapsed)))
	}

	state := m.src.State()
	code, ok := m.src.ExitCode()
	success := state == guiprocess.Finished && ok && code == 0
	outcome := state.String()
	if ok {
		outcome = fmt.Sprintf("%s, exit %d", state, code)
	}
	return fmt.Sprintf("%s %s", title, styles.StatusStyle(success).Render(outcome))
}

// Finished reports whether the supervisor's loop returned.
func (m Model) Finished() bool {
	return m.finished
}

// Interrupted reports whether the user quit before the process finished.
func (m Model) Interrupted() bool {
	return m.interrupted
}

// Err returns the Run error delivered with DoneMsg.
func (m Model) Err() error {
	return m.err
}

// Toasts returns the texts currently stacked, oldest first.
func (m Model) Toasts() []string {
	items := m.toasts.Items()
	out := make([]string, len(items))
	for i, t := range items {
		out[i] = t.Text
	}
	return out
}
