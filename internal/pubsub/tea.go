package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// ClosedMsg reports that a subscription ended because its source closed.
// A cancelled context produces no message.
type ClosedMsg struct{}

// ListenCmd waits for one event on ch and delivers it as a tea.Msg.
func ListenCmd[T any](ctx context.Context, ch <-chan Event[T]) tea.Cmd {
	return func() tea.Msg {
		ev, ok, closed := next(ctx, ch)
		switch {
		case ok:
			return ev
		case closed:
			return ClosedMsg{}
		}
		return nil
	}
}

func next[T any](ctx context.Context, ch <-chan Event[T]) (ev Event[T], ok, closed bool) {
	select {
	case <-ctx.Done():
		return ev, false, false
	case ev, ok = <-ch:
		return ev, ok, !ok
	}
}

// ContinuousListener keeps one subscription alive across Update calls.
type ContinuousListener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewContinuousListener subscribes to src for the lifetime of ctx.
func NewContinuousListener[T any](ctx context.Context, src Subscriber[T]) *ContinuousListener[T] {
	return &ContinuousListener[T]{ctx: ctx, ch: src.Subscribe(ctx)}
}

// Listen waits for the next event. Re-issue it from Update after each
// event; stop once a ClosedMsg arrives.
func (l *ContinuousListener[T]) Listen() tea.Cmd {
	return ListenCmd(l.ctx, l.ch)
}
