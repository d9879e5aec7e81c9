package guiprocess

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/procwatch/internal/message"
	"github.com/zjrosen/procwatch/internal/procexec"
	"github.com/zjrosen/procwatch/internal/tracing"
)

type recordedCall struct {
	kind    string
	attempt Attempt
	code    procexec.ErrorCode
	exit    int
	status  procexec.ExitStatus
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) RecordStart(a Attempt) {
	r.add(recordedCall{kind: "start", attempt: a})
}

func (r *fakeRecorder) RecordError(a Attempt, code procexec.ErrorCode) {
	r.add(recordedCall{kind: "error", attempt: a, code: code})
}

func (r *fakeRecorder) RecordFinish(a Attempt, exitCode int, status procexec.ExitStatus) {
	r.add(recordedCall{kind: "finish", attempt: a, exit: exitCode, status: status})
}

func (r *fakeRecorder) add(c recordedCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func newTestProcess(t *testing.T, what string, opts ...Option) (*Process, *fakeExec, *message.Collector) {
	t.Helper()
	fx := newFakeExec()
	sink := &message.Collector{}
	return New("win-0", what, fx, sink, opts...), fx, sink
}

func TestProcess_VerboseSuccessScenario(t *testing.T) {
	p, _, sink := newTestProcess(t, "userscript", WithVerbose(true))

	require.NoError(t, p.Start(context.Background(), "echo", []string{"hi"}, procexec.ModeReadWrite))
	require.Equal(t, []string{"Executing: echo hi"}, sink.Texts())
	require.False(t, p.Started())
	require.Equal(t, Starting, p.State())

	p.OnStarted(100)
	require.True(t, p.Started())
	require.Equal(t, Running, p.State())

	p.OnFinished(0, procexec.NormalExit)
	require.False(t, p.Started())
	require.Equal(t, Finished, p.State())

	msgs := sink.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, message.Info, msgs[1].Level)
	require.Equal(t, "Userscript exited successfully.", msgs[1].Text)
	require.Equal(t, "win-0", msgs[1].WinID)

	code, ok := p.ExitCode()
	require.True(t, ok)
	require.Equal(t, 0, code)
	require.Equal(t, "echo", p.Cmd())
	require.Equal(t, []string{"hi"}, p.Args())
}

func TestProcess_RunDrivesEvents(t *testing.T) {
	p, fx, sink := newTestProcess(t, "editor")

	require.NoError(t, p.Start(context.Background(), "vim", []string{"/tmp/f"}, procexec.ModeNotOpen))
	fx.emit(procexec.Started(7), procexec.Finished(2, procexec.NormalExit))

	require.NoError(t, p.Run(context.Background()))
	require.Equal(t, Finished, p.State())
	require.Equal(t, []string{"Editor exited with status 2."}, sink.Texts())
	require.False(t, sink.Messages()[0].Immediate)
	require.Equal(t, 7, p.Attempt().PID)
}

func TestProcess_RunStopsOnContext(t *testing.T) {
	p, _, _ := newTestProcess(t, "editor")
	require.NoError(t, p.Start(context.Background(), "vim", nil, procexec.ModeNotOpen))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, p.Run(ctx), context.DeadlineExceeded)
	require.Equal(t, Starting, p.State())
}

func TestProcess_OnErrorMessages(t *testing.T) {
	want := map[procexec.ErrorCode]string{
		procexec.FailedToStart: "Error while spawning userscript: The process failed to start.",
		procexec.Crashed:       "Error while spawning userscript: The process crashed.",
		procexec.Timedout:      "Error while spawning userscript: The last waitFor...() function timed out.",
		procexec.WriteError:    "Error while spawning userscript: An error occurred when attempting to write to the process.",
		procexec.ReadError:     "Error while spawning userscript: An error occurred when attempting to read from the process.",
		procexec.UnknownError:  "Error while spawning userscript: An unknown error occurred.",
	}

	for _, code := range procexec.Codes() {
		t.Run(code.String(), func(t *testing.T) {
			p, _, sink := newTestProcess(t, "userscript")

			p.OnError(code)

			msgs := sink.Messages()
			require.Len(t, msgs, 1)
			require.Equal(t, want[code], msgs[0].Text)
			require.Equal(t, message.Error, msgs[0].Level)
			require.True(t, msgs[0].Immediate)

			got, ok := p.LastError()
			require.True(t, ok)
			require.Equal(t, code, got)
		})
	}
	require.Len(t, want, len(procexec.Codes()))
}

func TestProcess_FailedToStart(t *testing.T) {
	rec := &fakeRecorder{}
	p, fx, sink := newTestProcess(t, "editor", WithRecorder(rec))

	require.NoError(t, p.Start(context.Background(), "missing-editor", nil, procexec.ModeReadWrite))
	fx.emit(procexec.Errored(procexec.FailedToStart))
	require.NoError(t, p.Run(context.Background()))

	require.False(t, p.Started())
	require.Equal(t, Errored, p.State())
	_, hasExit := p.ExitCode()
	require.False(t, hasExit)
	require.Equal(t, []string{"Error while spawning editor: The process failed to start."}, sink.Texts())

	require.Len(t, rec.calls, 1)
	require.Equal(t, "error", rec.calls[0].kind)
	require.Equal(t, "missing-editor", rec.calls[0].attempt.Command)

	// A failed attempt does not block the next one.
	require.NoError(t, p.Start(context.Background(), "vim", nil, procexec.ModeReadWrite))
}

func TestProcess_Crash(t *testing.T) {
	p, fx, sink := newTestProcess(t, "editor")

	require.NoError(t, p.Start(context.Background(), "vim", nil, procexec.ModeReadWrite))
	fx.emit(procexec.Started(1), procexec.Errored(procexec.Crashed), procexec.Finished(-1, procexec.CrashExit))
	require.NoError(t, p.Run(context.Background()))

	msgs := sink.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "Error while spawning editor: The process crashed.", msgs[0].Text)
	require.Equal(t, "Editor crashed!", msgs[1].Text)
	require.True(t, msgs[1].Immediate)
	require.False(t, p.Started())

	code, ok := p.LastError()
	require.True(t, ok)
	require.Equal(t, procexec.Crashed, code)
}

func TestProcess_StartTwiceRejected(t *testing.T) {
	p, fx, sink := newTestProcess(t, "userscript", WithVerbose(true))
	ctx := context.Background()

	require.NoError(t, p.Start(ctx, "a", nil, procexec.ModeReadWrite))
	err := p.Start(ctx, "b", nil, procexec.ModeReadWrite)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.False(t, p.Started())
	require.Equal(t, "a", p.Cmd(), "a rejected start leaves the attempt alone")

	p.OnStarted(1)
	err = p.Start(ctx, "c", nil, procexec.ModeReadWrite)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	err = p.StartDetached(ctx, "c", nil, "")
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.True(t, p.Started())
	require.Len(t, sink.Texts(), 1, "rejected starts announce nothing")

	fx.emit(procexec.Finished(0, procexec.NormalExit))
	require.NoError(t, p.Run(ctx))
	require.NoError(t, p.Start(ctx, "d", nil, procexec.ModeReadWrite))
}

func TestProcess_ExecutorRejectsStart(t *testing.T) {
	p, fx, _ := newTestProcess(t, "editor")
	fx.startErr = errors.New("executor busy")

	err := p.Start(context.Background(), "vim", nil, procexec.ModeReadWrite)
	require.ErrorContains(t, err, "executor busy")
	require.Equal(t, NotStarted, p.State())

	fx.startErr = nil
	require.NoError(t, p.Start(context.Background(), "vim", nil, procexec.ModeReadWrite))
}

func TestProcess_ResetOnStart(t *testing.T) {
	p, fx, _ := newTestProcess(t, "editor")
	ctx := context.Background()

	require.NoError(t, p.Start(ctx, "vim", nil, procexec.ModeReadWrite))
	fx.emit(procexec.Started(1), procexec.Errored(procexec.ReadError), procexec.Finished(3, procexec.NormalExit))
	require.NoError(t, p.Run(ctx))

	_, hasErr := p.LastError()
	require.True(t, hasErr)
	code, _ := p.ExitCode()
	require.Equal(t, 3, code)

	require.NoError(t, p.Start(ctx, "vim", nil, procexec.ModeReadWrite))
	_, hasErr = p.LastError()
	require.False(t, hasErr)
	_, hasExit := p.ExitCode()
	require.False(t, hasExit)
}

func TestProcess_StartDetached(t *testing.T) {
	rec := &fakeRecorder{}
	p, fx, sink := newTestProcess(t, "downloader", WithRecorder(rec), WithWorkDir("/srv"))

	require.NoError(t, p.StartDetached(context.Background(), "xdg-open", []string{"file.pdf"}, ""))

	require.True(t, p.Started())
	require.Equal(t, Running, p.State())
	require.Empty(t, sink.Texts())
	require.Len(t, fx.detached, 1)
	require.Equal(t, "xdg-open", fx.detached[0].name)

	require.Len(t, rec.calls, 1)
	a := rec.calls[0].attempt
	require.True(t, a.Detached)
	require.Equal(t, 4242, a.PID)
	require.Equal(t, "/srv", a.WorkDir)
}

func TestProcess_StartDetachedFailure(t *testing.T) {
	p, fx, sink := newTestProcess(t, "downloader")
	fx.detachErr = errors.New("start detached: exec: no such file")
	fx.errText = "exec: \"xdg-open\": executable file not found in $PATH"

	require.NoError(t, p.StartDetached(context.Background(), "xdg-open", nil, "/tmp"))

	require.False(t, p.Started())
	require.Equal(t, Errored, p.State())
	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t,
		"Error while spawning downloader: exec: \"xdg-open\": executable file not found in $PATH.",
		msgs[0].Text)
	require.True(t, msgs[0].Immediate)
}

func TestProcess_StartDetachedFailureFallsBackToError(t *testing.T) {
	p, fx, sink := newTestProcess(t, "downloader")
	fx.detachErr = errors.New("permission denied")

	require.NoError(t, p.StartDetached(context.Background(), "x", nil, ""))
	require.Equal(t, []string{"Error while spawning downloader: permission denied."}, sink.Texts())
}

func TestProcess_QuietSuccess(t *testing.T) {
	p, _, sink := newTestProcess(t, "editor")

	p.OnStarted(1)
	p.OnFinished(0, procexec.NormalExit)

	require.Zero(t, sink.Len())
}

func TestProcess_EnvAndDirReachExecutor(t *testing.T) {
	env := map[string]string{"QUTE_MODE": "hints"}
	_, fx, _ := newTestProcess(t, "userscript", WithAdditionalEnv(env), WithWorkDir("/work"))

	require.Equal(t, env, fx.env)
	require.Equal(t, "/work", fx.dir)
}

func TestProcess_StartedTwicePanics(t *testing.T) {
	p, _, _ := newTestProcess(t, "editor")
	p.OnStarted(1)

	require.Panics(t, func() { p.OnStarted(2) })
}

func TestProcess_UnknownExitStatusPanics(t *testing.T) {
	p, _, _ := newTestProcess(t, "editor")

	require.Panics(t, func() { p.OnFinished(0, procexec.ExitStatus(7)) })
}

func TestProcess_UnknownErrorCodePanics(t *testing.T) {
	p, _, _ := newTestProcess(t, "editor")

	require.Panics(t, func() { p.OnError(procexec.ErrorCode(99)) })
}

func TestProcess_RecorderSequence(t *testing.T) {
	rec := &fakeRecorder{}
	p, fx, _ := newTestProcess(t, "editor", WithRecorder(rec))

	require.NoError(t, p.Start(context.Background(), "vim", []string{"a"}, procexec.ModeReadWrite))
	fx.emit(procexec.Started(9), procexec.Errored(procexec.Crashed), procexec.Finished(-1, procexec.CrashExit))
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, rec.calls, 3)
	require.Equal(t, "start", rec.calls[0].kind)
	require.Equal(t, 9, rec.calls[0].attempt.PID)
	require.Equal(t, "error", rec.calls[1].kind)
	require.Equal(t, procexec.Crashed, rec.calls[1].code)
	require.Equal(t, "finish", rec.calls[2].kind)
	require.Equal(t, procexec.CrashExit, rec.calls[2].status)
	require.Equal(t, rec.calls[0].attempt.ID, rec.calls[2].attempt.ID)
}

func TestProcess_Tracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	p, fx, _ := newTestProcess(t, "editor", WithTracer(tp.Tracer("test")))

	require.NoError(t, p.Start(context.Background(), "vim", nil, procexec.ModeReadWrite))
	fx.emit(procexec.Started(5), procexec.Finished(1, procexec.NormalExit))
	require.NoError(t, p.Run(context.Background()))

	require.NoError(t, p.StartDetached(context.Background(), "xdg-open", nil, ""))

	spans := sr.Ended()
	require.Len(t, spans, 2)

	attached := spans[0]
	require.Equal(t, tracing.SpanStart, attached.Name())
	require.Equal(t, codes.Error, attached.Status().Code)
	require.Equal(t, "Editor exited with status 1.", attached.Status().Description)
	var names []string
	for _, ev := range attached.Events() {
		names = append(names, ev.Name)
	}
	require.Equal(t, []string{tracing.EventStarted, tracing.EventFinished}, names)

	detached := spans[1]
	require.Equal(t, tracing.SpanStartDetached, detached.Name())
	require.Equal(t, codes.Ok, detached.Status().Code)
}
