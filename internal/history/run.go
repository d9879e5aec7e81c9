package history

import (
	"fmt"
	"time"

	"github.com/zjrosen/procwatch/internal/guiprocess"
)

// Status is where a recorded run stands. Detached runs are not supervised
// after their start, so they never move past StatusDetached.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusErrored  Status = "errored"
	StatusDetached Status = "detached"
)

// Run is one recorded start attempt.
type Run struct {
	ID         string
	WinID      string
	Label      string
	Command    string
	Args       []string
	WorkDir    string
	Detached   bool
	PID        int
	State      Status
	ExitCode   *int
	ExitStatus string
	ErrorCode  string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Cmdline renders the run's command line for display.
func (r *Run) Cmdline() string {
	return guiprocess.Cmdline(r.Command, r.Args)
}

// Outcome summarizes how the run ended.
func (r *Run) Outcome() string {
	switch {
	case r.ExitStatus == "crash":
		return "crashed"
	case r.ExitCode != nil:
		return fmt.Sprintf("exit %d", *r.ExitCode)
	case r.ErrorCode != "":
		return r.ErrorCode
	default:
		return string(r.State)
	}
}

// Duration is how long the run lasted, or zero while it is unfinished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// NotFoundError is returned when no run matches an ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("run not found: %s", e.ID)
}
