package guiprocess

import (
	"time"

	"github.com/zjrosen/procwatch/internal/procexec"
)

// Attempt describes one start of a Process.
type Attempt struct {
	ID        string
	WinID     string
	Label     string
	Command   string
	Args      []string
	WorkDir   string
	Detached  bool
	PID       int
	StartedAt time.Time
}

// Recorder observes attempts, e.g. to persist them. Calls arrive on the
// goroutine that drives the Process. Implementations handle their own
// failures.
type Recorder interface {
	RecordStart(a Attempt)
	RecordError(a Attempt, code procexec.ErrorCode)
	RecordFinish(a Attempt, exitCode int, status procexec.ExitStatus)
}

type nopRecorder struct{}

func (nopRecorder) RecordStart(Attempt) {}
func (nopRecorder) RecordError(Attempt, procexec.ErrorCode) {}
func (nopRecorder) RecordFinish(Attempt, int, procexec.ExitStatus) {}
