package message

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/procwatch/internal/log"
	"github.com/zjrosen/procwatch/internal/pubsub"
)

// DefaultHistory is how many messages Recent keeps per window.
const DefaultHistory = 50

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithHistory sets how many messages are retained per window.
func WithHistory(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.limit = n
		}
	}
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) BusOption {
	return func(b *Bus) {
		b.now = now
	}
}

// Bus is the Sink used by the application. Every message is logged,
// retained per window, and published to subscribers.
type Bus struct {
	broker *pubsub.Broker[Message]
	now    func() time.Time
	limit  int

	mu     sync.Mutex
	recent map[string][]Message
}

var (
	_ Sink                       = (*Bus)(nil)
	_ pubsub.Subscriber[Message] = (*Bus)(nil)
)

// NewBus creates a Bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		broker: pubsub.NewBroker[Message](),
		now:    time.Now,
		limit:  DefaultHistory,
		recent: make(map[string][]Message),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Error publishes an error notification.
func (b *Bus) Error(winID, text string, immediate bool) {
	b.publish(Message{WinID: winID, Level: Error, Text: text, Immediate: immediate})
}

// Warning publishes a warning notification.
func (b *Bus) Warning(winID, text string) {
	b.publish(Message{WinID: winID, Level: Warning, Text: text})
}

// Info publishes an informational notification.
func (b *Bus) Info(winID, text string) {
	b.publish(Message{WinID: winID, Level: Info, Text: text})
}

func (b *Bus) publish(m Message) {
	m.ID = uuid.NewString()
	m.Time = b.now()

	switch m.Level {
	case Error:
		log.Error(log.CatMessage, m.Text, "win", m.WinID, "immediate", m.Immediate)
	case Warning:
		log.Warn(log.CatMessage, m.Text, "win", m.WinID)
	default:
		log.Info(log.CatMessage, m.Text, "win", m.WinID)
	}

	b.mu.Lock()
	hist := append(b.recent[m.WinID], m)
	if over := len(hist) - b.limit; over > 0 {
		hist = append(hist[:0:0], hist[over:]...)
	}
	b.recent[m.WinID] = hist
	b.mu.Unlock()

	b.broker.Publish(pubsub.NotifyEvent, m)
}

// Recent returns the retained messages for winID, oldest first.
func (b *Bus) Recent(winID string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.recent[winID]))
	copy(out, b.recent[winID])
	return out
}

// Subscribe streams messages published after the call until ctx is done.
func (b *Bus) Subscribe(ctx context.Context) <-chan pubsub.Event[Message] {
	return b.broker.Subscribe(ctx)
}

// Close ends all subscriptions.
func (b *Bus) Close() {
	b.broker.Close()
}
