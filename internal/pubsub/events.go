// Package pubsub fans typed events out from producers (the notification bus,
// the debug logger) to any number of listeners, typically bubbletea models.
package pubsub

import (
	"context"
	"time"
)

// EventType tags what an event carries.
type EventType string

const (
	NotifyEvent EventType = "notify" // user-visible notification
	LogEvent    EventType = "log"    // formatted debug log line
)

// Event is one published payload stamped with the broker's clock.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber is anything a ContinuousListener can attach to.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

var _ Subscriber[struct{}] = (*Broker[struct{}])(nil)
