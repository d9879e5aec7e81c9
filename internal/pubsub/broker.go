package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 64

// Option configures a Broker.
type Option func(*options)

type options struct {
	buffer int
	replay int
	now    func() time.Time
}

// WithBuffer sets the per-subscriber channel capacity (minimum 1).
func WithBuffer(n int) Option {
	return func(o *options) {
		o.buffer = n
	}
}

// WithReplay keeps the last n events and delivers them to every new
// subscriber before any live event, so a listener attached after a process
// started still sees its first notifications.
func WithReplay(n int) Option {
	return func(o *options) {
		o.replay = n
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Broker fans events out to every live subscription.
// Publish never blocks; an event is dropped for a subscriber whose buffer is full.
type Broker[T any] struct {
	opts    options
	mu      sync.Mutex
	subs    map[uint64]chan Event[T]
	nextID  uint64
	history []Event[T]
	done    chan struct{}
	dropped atomic.Uint64
}

// NewBroker creates a broker. Without options each subscriber buffers 64
// events and nothing is replayed.
func NewBroker[T any](opts ...Option) *Broker[T] {
	o := options{buffer: defaultBufferSize, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.buffer < 1 {
		o.buffer = 1
	}
	return &Broker[T]{
		opts: o,
		subs: make(map[uint64]chan Event[T]),
		done: make(chan struct{}),
	}
}

// Subscribe creates a new subscription channel, pre-filled with the replay
// history. The channel is closed when ctx is cancelled or the broker is closed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed() {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	ch := make(chan Event[T], b.opts.buffer+len(b.history))
	for _, ev := range b.history {
		ch <- ev
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	go b.unsubscribeOnDone(ctx, id)

	return ch
}

func (b *Broker[T]) unsubscribeOnDone(ctx context.Context, id uint64) {
	select {
	case <-ctx.Done():
	case <-b.done:
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends an event to all subscribers and records it for replay.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed() {
		return
	}

	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: b.opts.now(),
	}

	if b.opts.replay > 0 {
		b.history = append(b.history, event)
		if over := len(b.history) - b.opts.replay; over > 0 {
			b.history = append(b.history[:0:0], b.history[over:]...)
		}
	}

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close shuts down the broker and all subscriber channels. Safe to call twice.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isClosed() {
		return
	}

	close(b.done)
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.history = nil
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Broker[T]) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Broker[T]) isClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
