package history

import (
	"encoding/json"
	"time"
)

// runModel is the database row for the runs table. Times are Unix milliseconds.
type runModel struct {
	ID         int64
	GUID       string
	WinID      string
	Label      string
	Command    string
	Args       string  // JSON array
	WorkDir    *string // nullable
	Detached   bool
	PID        *int64 // nullable
	State      string
	ExitCode   *int64  // nullable
	ExitStatus *string // nullable
	ErrorCode  *string // nullable
	StartedAt  int64
	FinishedAt *int64 // nullable
	UpdatedAt  int64
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toRunModel(r *Run, now time.Time) *runModel {
	args, err := json.Marshal(r.Args)
	if err != nil || r.Args == nil {
		args = []byte("[]")
	}
	m := &runModel{
		GUID:       r.ID,
		WinID:      r.WinID,
		Label:      r.Label,
		Command:    r.Command,
		Args:       string(args),
		WorkDir:    optString(r.WorkDir),
		Detached:   r.Detached,
		State:      string(r.State),
		ExitStatus: optString(r.ExitStatus),
		ErrorCode:  optString(r.ErrorCode),
		StartedAt:  r.StartedAt.UnixMilli(),
		UpdatedAt:  now.UnixMilli(),
	}
	if r.PID > 0 {
		pid := int64(r.PID)
		m.PID = &pid
	}
	if r.ExitCode != nil {
		code := int64(*r.ExitCode)
		m.ExitCode = &code
	}
	if r.FinishedAt != nil {
		finished := r.FinishedAt.UnixMilli()
		m.FinishedAt = &finished
	}
	return m
}

func (m *runModel) toRun() *Run {
	r := &Run{
		ID:        m.GUID,
		WinID:     m.WinID,
		Label:     m.Label,
		Command:   m.Command,
		Detached:  m.Detached,
		State:     Status(m.State),
		StartedAt: time.UnixMilli(m.StartedAt),
	}
	_ = json.Unmarshal([]byte(m.Args), &r.Args)
	if m.WorkDir != nil {
		r.WorkDir = *m.WorkDir
	}
	if m.PID != nil {
		r.PID = int(*m.PID)
	}
	if m.ExitCode != nil {
		code := int(*m.ExitCode)
		r.ExitCode = &code
	}
	if m.ExitStatus != nil {
		r.ExitStatus = *m.ExitStatus
	}
	if m.ErrorCode != nil {
		r.ErrorCode = *m.ErrorCode
	}
	if m.FinishedAt != nil {
		t := time.UnixMilli(*m.FinishedAt)
		r.FinishedAt = &t
	}
	return r
}
