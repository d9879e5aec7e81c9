// Package message carries user-visible notifications from process
// supervisors to whatever displays them.
package message

import (
	"fmt"
	"time"
)

// Level is the severity of a notification.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Message is one notification.
type Message struct {
	ID    string
	WinID string
	Level Level
	Text  string
	// Immediate asks the display to show the message right away instead of
	// queueing it behind earlier ones.
	Immediate bool
	Time      time.Time
}

// Sink receives notifications. Implementations must be safe for concurrent use.
type Sink interface {
	Error(winID, text string, immediate bool)
	Info(winID, text string)
}

type multiSink []Sink

// Tee returns a Sink that forwards every notification to each of sinks in order.
func Tee(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Error(winID, text string, immediate bool) {
	for _, s := range m {
		s.Error(winID, text, immediate)
	}
}

func (m multiSink) Info(winID, text string) {
	for _, s := range m {
		s.Info(winID, text)
	}
}
