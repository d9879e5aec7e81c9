package guiprocess

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/procwatch/internal/log"
	"github.com/zjrosen/procwatch/internal/message"
	"github.com/zjrosen/procwatch/internal/procexec"
	"github.com/zjrosen/procwatch/internal/tracing"
)

// ErrAlreadyRunning is returned when starting a Process that is still started.
var ErrAlreadyRunning = errors.New("trying to start a running process")

// Option configures a Process.
type Option func(*Process)

// WithVerbose announces each command line and successful exits.
func WithVerbose(verbose bool) Option {
	return func(p *Process) {
		p.verbose = verbose
	}
}

// WithAdditionalEnv adds or overrides environment variables for every
// attempt. Inherited variables are never removed.
func WithAdditionalEnv(env map[string]string) Option {
	return func(p *Process) {
		p.env = env
	}
}

// WithWorkDir sets the working directory of attached starts.
func WithWorkDir(dir string) Option {
	return func(p *Process) {
		p.workDir = dir
	}
}

// WithTracer records one span per start attempt.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Process) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithRecorder reports attempts to r.
func WithRecorder(r Recorder) Option {
	return func(p *Process) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithClock overrides time.Now for attempt timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Process) {
		p.now = now
	}
}

// Process is an external program whose lifecycle is reported to a window.
// The event handlers must be called from a single goroutine; accessors are
// safe from any goroutine.
type Process struct {
	winID   string
	what    string
	verbose bool
	env     map[string]string
	workDir string

	exec     procexec.Executor
	sink     message.Sink
	tracer   trace.Tracer
	recorder Recorder
	now      func() time.Time

	mu       sync.Mutex
	started  bool
	state    State
	cmd      string
	args     []string
	exitCode int
	hasExit  bool
	lastErr  procexec.ErrorCode
	hasErr   bool
	attempt  Attempt
	span     trace.Span
}

// New creates a Process reporting to sink for window winID. what names the
// kind of program ("editor", "userscript") in notifications.
func New(winID, what string, exec procexec.Executor, sink message.Sink, opts ...Option) *Process {
	p := &Process{
		winID:    winID,
		what:     what,
		exec:     exec,
		sink:     sink,
		tracer:   noop.NewTracerProvider().Tracer("noop"),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.env) > 0 {
		exec.SetEnv(p.env)
	}
	if p.workDir != "" {
		exec.SetDir(p.workDir)
	}
	return p
}

// Started reports whether the program is running (or was started detached).
func (p *Process) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// State returns the lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cmd returns the command of the last start attempt.
func (p *Process) Cmd() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd
}

// Args returns the arguments of the last start attempt.
func (p *Process) Args() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.args...)
}

// ExitCode returns the exit code of the last finished attempt.
func (p *Process) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.hasExit
}

// LastError returns the last error reported for the current attempt.
func (p *Process) LastError() (procexec.ErrorCode, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr, p.hasErr
}

// Attempt returns the current (or last) attempt.
func (p *Process) Attempt() Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.attempt
	a.Args = append([]string(nil), a.Args...)
	return a
}

// Label returns the kind of program this Process runs.
func (p *Process) Label() string {
	return p.what
}

// WinID returns the window notifications are addressed to.
func (p *Process) WinID() string {
	return p.winID
}

// Output returns the captured stdout lines of the current attempt.
func (p *Process) Output() []string {
	return p.exec.Output()
}

// preStart records the attempt and announces it. It fails when started or
// when an attached start is still waiting for its started event.
// It returns the state to restore if the executor rejects the attempt.
func (p *Process) preStart(ctx context.Context, spanName, cmd string, args []string, detached bool) (context.Context, State, error) {
	p.mu.Lock()
	if p.started || p.state == Starting {
		p.mu.Unlock()
		return ctx, p.state, fmt.Errorf("start %s: %w", p.what, ErrAlreadyRunning)
	}
	prev := p.state
	p.state = Starting
	// An attempt that never reported back is abandoned.
	p.endSpanLocked(codes.Unset, "")
	p.cmd = cmd
	p.args = append([]string(nil), args...)
	p.hasExit, p.exitCode = false, 0
	p.hasErr, p.lastErr = false, 0
	p.attempt = Attempt{
		ID:        uuid.NewString(),
		WinID:     p.winID,
		Label:     p.what,
		Command:   cmd,
		Args:      append([]string(nil), args...),
		WorkDir:   p.workDir,
		Detached:  detached,
		StartedAt: p.now(),
	}
	spanCtx, span := p.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String(tracing.AttrWinID, p.winID),
		attribute.String(tracing.AttrLabel, p.what),
		attribute.String(tracing.AttrCommand, cmd),
		attribute.StringSlice(tracing.AttrArgs, args),
	))
	p.span = span
	p.mu.Unlock()

	if p.verbose {
		p.sink.Info(p.winID, "Executing: "+Cmdline(cmd, args))
	}
	return spanCtx, prev, nil
}

// Start launches cmd asynchronously. It returns ErrAlreadyRunning (wrapped)
// if the Process is started, or the executor's usage error. Every outcome
// of the launch itself arrives later as an event.
func (p *Process) Start(ctx context.Context, cmd string, args []string, mode procexec.IOMode) error {
	log.Debug(log.CatProcs, "Starting process.", "what", p.what)

	spanCtx, prev, err := p.preStart(ctx, tracing.SpanStart, cmd, args, false)
	if err != nil {
		return err
	}

	if err := p.exec.Start(spanCtx, cmd, args, mode); err != nil {
		p.mu.Lock()
		p.state = prev
		p.endSpanLocked(codes.Error, err.Error())
		p.mu.Unlock()
		return fmt.Errorf("start %s: %w", p.what, err)
	}
	return nil
}

// StartDetached launches cmd in its own process group with dir as working
// directory and does not supervise it. A spawn failure is reported as a
// notification, not as an error.
func (p *Process) StartDetached(ctx context.Context, cmd string, args []string, dir string) error {
	log.Debug(log.CatProcs, "Starting detached.", "what", p.what)

	_, prev, err := p.preStart(ctx, tracing.SpanStartDetached, cmd, args, true)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.attempt.WorkDir = dir
	if dir == "" {
		p.attempt.WorkDir = p.workDir
	}
	p.mu.Unlock()

	pid, err := p.exec.StartDetached(cmd, args, dir)
	if err != nil {
		if errors.Is(err, procexec.ErrAlreadyRunning) {
			p.mu.Lock()
			p.state = prev
			p.endSpanLocked(codes.Error, err.Error())
			p.mu.Unlock()
			return fmt.Errorf("start %s: %w", p.what, err)
		}

		detail := p.exec.ErrorString()
		if detail == "" {
			detail = err.Error()
		}
		p.mu.Lock()
		p.state = Errored
		p.span.AddEvent(tracing.EventError, trace.WithAttributes(
			attribute.String(tracing.AttrErrorCode, procexec.FailedToStart.String())))
		p.endSpanLocked(codes.Error, detail)
		attempt := p.attempt
		p.mu.Unlock()

		log.ErrorErr(log.CatProcs, "Detached start failed", err, "what", p.what)
		p.recorder.RecordError(attempt, procexec.FailedToStart)
		p.sink.Error(p.winID, spawnErrorText(p.what, detail)+".", true)
		return nil
	}

	p.mu.Lock()
	p.started = true
	p.state = Running
	p.attempt.PID = pid
	p.span.SetAttributes(attribute.Int(tracing.AttrPID, pid))
	p.span.AddEvent(tracing.EventStarted)
	p.endSpanLocked(codes.Ok, "")
	attempt := p.attempt
	p.mu.Unlock()

	log.Debug(log.CatProcs, "Process started.", "what", p.what, "pid", pid)
	p.recorder.RecordStart(attempt)
	return nil
}

// HandleEvent dispatches ev to the matching handler.
func (p *Process) HandleEvent(ev procexec.Event) {
	switch ev.Kind {
	case procexec.EventStarted:
		p.OnStarted(ev.PID)
	case procexec.EventError:
		p.OnError(ev.Error)
	case procexec.EventFinished:
		p.OnFinished(ev.ExitCode, ev.ExitStatus)
	default:
		panic(fmt.Sprintf("guiprocess: unknown event kind %d", int(ev.Kind)))
	}
}

// Run handles the executor's events for the current attempt on the calling
// goroutine until the attempt ends or ctx is done.
func (p *Process) Run(ctx context.Context) error {
	events := p.exec.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.HandleEvent(ev)
		}
	}
}

// OnStarted marks the program as running. A second start without a finish
// in between is an internal fault and panics.
func (p *Process) OnStarted(pid int) {
	log.Debug(log.CatProcs, "Process started.", "what", p.what, "pid", pid)

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		panic("guiprocess: started event for a process that is already started")
	}
	p.started = true
	p.state = Running
	p.attempt.PID = pid
	if p.span != nil {
		p.span.SetAttributes(attribute.Int(tracing.AttrPID, pid))
		p.span.AddEvent(tracing.EventStarted)
	}
	attempt := p.attempt
	p.mu.Unlock()

	p.recorder.RecordStart(attempt)
}

// OnError records code and shows an immediate spawn error notification.
func (p *Process) OnError(code procexec.ErrorCode) {
	text := spawnErrorText(p.what, ErrorString(code))
	log.Error(log.CatProcs, "Process error", "what", p.what, "code", code, "detail", p.exec.ErrorString())

	p.mu.Lock()
	p.lastErr, p.hasErr = code, true
	if p.span != nil {
		p.span.AddEvent(tracing.EventError, trace.WithAttributes(
			attribute.String(tracing.AttrErrorCode, code.String())))
	}
	if code == procexec.FailedToStart && !p.started {
		p.state = Errored
		p.endSpanLocked(codes.Error, text)
	}
	attempt := p.attempt
	p.mu.Unlock()

	p.recorder.RecordError(attempt, code)
	p.sink.Error(p.winID, text, true)
}

// OnFinished records the exit and shows the outcome notification.
func (p *Process) OnFinished(exitCode int, status procexec.ExitStatus) {
	log.Debug(log.CatProcs, "Process finished.", "what", p.what, "code", exitCode, "status", status)

	var (
		text    string
		isError bool
	)
	switch {
	case status == procexec.CrashExit:
		text, isError = crashedText(p.what), true
	case status == procexec.NormalExit && exitCode == 0:
		if p.verbose {
			text = successText(p.what)
		}
	case status == procexec.NormalExit:
		text, isError = exitStatusText(p.what, exitCode), true
	default:
		panic(fmt.Sprintf("guiprocess: unknown exit status %d", int(status)))
	}

	p.mu.Lock()
	p.started = false
	p.state = Finished
	p.exitCode, p.hasExit = exitCode, true
	if p.span != nil {
		p.span.SetAttributes(
			attribute.Int(tracing.AttrExitCode, exitCode),
			attribute.String(tracing.AttrExitStatus, status.String()),
		)
		p.span.AddEvent(tracing.EventFinished)
		if isError {
			p.endSpanLocked(codes.Error, text)
		} else {
			p.endSpanLocked(codes.Ok, "")
		}
	}
	attempt := p.attempt
	p.mu.Unlock()

	p.recorder.RecordFinish(attempt, exitCode, status)

	switch {
	case text == "":
	case status == procexec.CrashExit:
		p.sink.Error(p.winID, text, true)
	case isError:
		p.sink.Error(p.winID, text, false)
	default:
		p.sink.Info(p.winID, text)
	}
}

// endSpanLocked closes the attempt's span once. p.mu must be held.
func (p *Process) endSpanLocked(code codes.Code, desc string) {
	if p.span == nil {
		return
	}
	if code == codes.Error {
		p.span.SetAttributes(attribute.String(tracing.AttrErrorMessage, desc))
	}
	p.span.SetStatus(code, desc)
	p.span.End()
	p.span = nil
}
