package procexec

import (
	"fmt"
	"strings"
	"time"
)

// IOMode selects which standard streams of the child are piped to the parent.
type IOMode int

const (
	// ModeNotOpen pipes nothing; the child's stdio goes to the null device.
	ModeNotOpen IOMode = iota
	// ModeReadOnly pipes stdout and stderr.
	ModeReadOnly
	// ModeWriteOnly pipes stdin.
	ModeWriteOnly
	// ModeReadWrite pipes all three streams.
	ModeReadWrite
)

// CanRead reports whether stdout/stderr are piped.
func (m IOMode) CanRead() bool {
	return m == ModeReadOnly || m == ModeReadWrite
}

// CanWrite reports whether stdin is piped.
func (m IOMode) CanWrite() bool {
	return m == ModeWriteOnly || m == ModeReadWrite
}

func (m IOMode) String() string {
	switch m {
	case ModeNotOpen:
		return "none"
	case ModeReadOnly:
		return "r"
	case ModeWriteOnly:
		return "w"
	case ModeReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("IOMode(%d)", int(m))
	}
}

// ParseMode parses "none", "r", "w" or "rw".
func ParseMode(s string) (IOMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return ModeNotOpen, nil
	case "r", "read":
		return ModeReadOnly, nil
	case "w", "write":
		return ModeWriteOnly, nil
	case "rw", "readwrite":
		return ModeReadWrite, nil
	default:
		return ModeNotOpen, fmt.Errorf("invalid io mode %q (want none, r, w or rw)", s)
	}
}

// ErrorCode classifies why starting or running a process failed.
type ErrorCode int

const (
	// FailedToStart: the program is missing, not executable, or could not be forked.
	FailedToStart ErrorCode = iota
	// Crashed: the process was killed by a signal after it started.
	Crashed
	// Timedout: the process outlived its deadline and was killed.
	Timedout
	// ReadError: reading the child's output failed.
	ReadError
	// WriteError: writing to the child's stdin failed.
	WriteError
	// UnknownError: any other failure reported by the OS.
	UnknownError
)

// Codes lists every ErrorCode in declaration order.
func Codes() []ErrorCode {
	return []ErrorCode{FailedToStart, Crashed, Timedout, ReadError, WriteError, UnknownError}
}

func (c ErrorCode) String() string {
	switch c {
	case FailedToStart:
		return "failed-to-start"
	case Crashed:
		return "crashed"
	case Timedout:
		return "timed-out"
	case ReadError:
		return "read-error"
	case WriteError:
		return "write-error"
	case UnknownError:
		return "unknown"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// ExitStatus tells whether the process ended on its own or was killed.
type ExitStatus int

const (
	NormalExit ExitStatus = iota
	CrashExit
)

func (s ExitStatus) String() string {
	switch s {
	case NormalExit:
		return "normal"
	case CrashExit:
		return "crash"
	default:
		return fmt.Sprintf("ExitStatus(%d)", int(s))
	}
}

// EventKind identifies a lifecycle event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventError
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventError:
		return "error"
	case EventFinished:
		return "finished"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one lifecycle notification from an Executor.
//
// For a single start attempt the sequence is either
// Error(FailedToStart), or Started followed by zero or more Errors and
// exactly one Finished.
type Event struct {
	Kind       EventKind
	Error      ErrorCode  // valid for EventError
	ExitCode   int        // valid for EventFinished
	ExitStatus ExitStatus // valid for EventFinished
	PID        int        // valid for EventStarted
	Time       time.Time
}

// Started builds an EventStarted.
func Started(pid int) Event {
	return Event{Kind: EventStarted, PID: pid, Time: time.Now()}
}

// Errored builds an EventError.
func Errored(code ErrorCode) Event {
	return Event{Kind: EventError, Error: code, Time: time.Now()}
}

// Finished builds an EventFinished.
func Finished(code int, status ExitStatus) Event {
	return Event{Kind: EventFinished, ExitCode: code, ExitStatus: status, Time: time.Now()}
}

// Terminal reports whether no further events follow e in the same attempt.
func (e Event) Terminal() bool {
	return e.Kind == EventFinished || (e.Kind == EventError && e.Error == FailedToStart)
}
