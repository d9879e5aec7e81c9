// Package procexec is the process-execution primitive behind procwatch.
//
// An Exec runs one child at a time. Start returns immediately and the
// attempt's lifecycle is delivered on the channel returned by Events:
//
//	e := procexec.New(procexec.WithTimeout(30 * time.Second))
//	if err := e.Start(ctx, "vim", []string{"notes.txt"}, procexec.ModeNotOpen); err != nil {
//	    return err // ErrAlreadyRunning
//	}
//	for ev := range e.Events() {
//	    // Started, then Error(...)s, then Finished
//	}
//
// A spawn failure produces a single Error(FailedToStart). A process killed
// by a signal produces Error(Crashed) then Finished(code, CrashExit); one
// that outlives its timeout produces Error(Timedout) then Finished(code,
// CrashExit).
//
// StartDetached launches a process in its own process group and returns
// once it has been forked; no events are produced for it.
package procexec
