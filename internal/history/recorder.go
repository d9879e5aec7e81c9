package history

import (
	"sync"
	"time"

	"github.com/zjrosen/procwatch/internal/guiprocess"
	"github.com/zjrosen/procwatch/internal/log"
	"github.com/zjrosen/procwatch/internal/procexec"
)

// Recorder persists supervisor attempts. Save failures are logged and
// otherwise ignored so history never interferes with supervision.
type Recorder struct {
	repo *Repository
	keep int
	now  func() time.Time

	mu   sync.Mutex
	runs map[string]*Run
}

var _ guiprocess.Recorder = (*Recorder)(nil)

// NewRecorder records into repo. When keep > 0 only the newest keep runs are
// retained after each finished attempt.
func NewRecorder(repo *Repository, keep int) *Recorder {
	return &Recorder{
		repo: repo,
		keep: keep,
		now:  time.Now,
		runs: make(map[string]*Run),
	}
}

// runLocked returns the in-flight run for a, creating it on first sight. r.mu must be held.
func (r *Recorder) runLocked(a guiprocess.Attempt) *Run {
	if run, ok := r.runs[a.ID]; ok {
		return run
	}
	run := &Run{
		ID:        a.ID,
		WinID:     a.WinID,
		Label:     a.Label,
		Command:   a.Command,
		Args:      a.Args,
		WorkDir:   a.WorkDir,
		Detached:  a.Detached,
		State:     StatusStarting,
		StartedAt: a.StartedAt,
	}
	r.runs[a.ID] = run
	return run
}

func (r *Recorder) RecordStart(a guiprocess.Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.runLocked(a)
	run.PID = a.PID
	run.State = StatusRunning
	if a.Detached {
		run.State = StatusDetached
	}
	r.saveLocked(run, a.Detached)
}

func (r *Recorder) RecordError(a guiprocess.Attempt, code procexec.ErrorCode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.runLocked(a)
	run.ErrorCode = code.String()
	done := code == procexec.FailedToStart && run.State == StatusStarting
	if done {
		now := r.now()
		run.State = StatusErrored
		run.FinishedAt = &now
	}
	r.saveLocked(run, done)
}

func (r *Recorder) RecordFinish(a guiprocess.Attempt, exitCode int, status procexec.ExitStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.runLocked(a)
	now := r.now()
	run.ExitCode = &exitCode
	run.ExitStatus = status.String()
	run.State = StatusFinished
	run.FinishedAt = &now
	r.saveLocked(run, true)
}

// saveLocked writes run and forgets it once it is done. r.mu must be held.
func (r *Recorder) saveLocked(run *Run, done bool) {
	if err := r.repo.Save(run); err != nil {
		log.ErrorErr(log.CatDB, "Failed to record run", err, "id", run.ID, "label", run.Label)
	}
	if !done {
		return
	}
	delete(r.runs, run.ID)
	if r.keep > 0 {
		if n, err := r.repo.Trim(r.keep); err != nil {
			log.ErrorErr(log.CatDB, "Failed to trim history", err)
		} else if n > 0 {
			log.Debug(log.CatDB, "Trimmed history", "removed", n)
		}
	}
}

// Pending returns how many attempts are still in flight.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}
