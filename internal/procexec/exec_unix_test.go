//go:build !windows

package procexec

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startLingering runs script in read mode and kills its process group when
// the test ends, since background children outlive the shell.
func startLingering(t *testing.T, ctx context.Context, e *Exec, script string) {
	t.Helper()
	require.NoError(t, e.Start(ctx, "sh", []string{"-c", script}, ModeReadOnly))
	pid := e.PID()
	require.Greater(t, pid, 0)
	t.Cleanup(func() { _ = syscall.Kill(-pid, syscall.SIGKILL) })
}

func TestExec_ExitWhileBackgroundChildHoldsOutput(t *testing.T) {
	e := New(WithWaitDelay(100 * time.Millisecond))

	startLingering(t, context.Background(), e, "echo before; sleep 20 & exit 3")
	events := collect(t, e)

	require.Equal(t, []EventKind{EventStarted, EventFinished}, kinds(events))
	require.Equal(t, 3, events[1].ExitCode)
	require.Equal(t, NormalExit, events[1].ExitStatus)
	require.Equal(t, []string{"before"}, e.Output())
	require.False(t, e.Running())
}

func TestExec_ZeroExitWhileBackgroundChildHoldsOutput(t *testing.T) {
	e := New(WithWaitDelay(100 * time.Millisecond))

	startLingering(t, context.Background(), e, "sleep 20 & exit 0")
	events := collect(t, e)

	require.Equal(t, []EventKind{EventStarted, EventFinished}, kinds(events))
	require.Equal(t, 0, events[1].ExitCode)
	require.Equal(t, NormalExit, events[1].ExitStatus)
}

func TestExec_TimeoutKillsBackgroundChildren(t *testing.T) {
	e := New(WithTimeout(200 * time.Millisecond))

	start := time.Now()
	startLingering(t, context.Background(), e, "sleep 20 & sleep 20")
	events := collect(t, e)

	require.Equal(t, []EventKind{EventStarted, EventError, EventFinished}, kinds(events))
	require.Equal(t, Timedout, events[1].Error)
	require.Equal(t, CrashExit, events[2].ExitStatus)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestExec_CancelKillsBackgroundChildren(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := New()

	startLingering(t, ctx, e, "sleep 20 & sleep 20")
	time.AfterFunc(100*time.Millisecond, cancel)
	events := collect(t, e)

	require.Equal(t, []EventKind{EventStarted, EventError, EventFinished}, kinds(events))
	require.Equal(t, Crashed, events[1].Error)
	require.Equal(t, CrashExit, events[2].ExitStatus)
}
