package procexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/zjrosen/procwatch/internal/log"
)

var (
	// ErrAlreadyRunning is returned when starting an Exec whose previous attempt has not finished.
	ErrAlreadyRunning = errors.New("process is already running")
	// ErrNotRunning is returned when writing to an Exec with no live process.
	ErrNotRunning = errors.New("process is not running")
	// ErrNoStdin is returned when writing to a process started without a write mode.
	ErrNoStdin = errors.New("process stdin is not open")
)

const (
	// Started + two read errors + one write error + error/finished pair fit with room to spare.
	eventBuffer     = 16
	defaultMaxLines = 1000
	// defaultWaitDelay bounds how long output is drained after the child
	// exits while a descendant still holds its stdout or stderr open.
	defaultWaitDelay = time.Second
)

// CommandFactoryFunc creates the exec.Cmd for an attempt. Tests substitute it
// to run helper programs.
type CommandFactoryFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Executor is the process primitive a supervisor drives. Start returns only
// usage errors; every outcome of the attempt itself arrives on Events.
type Executor interface {
	Start(ctx context.Context, name string, args []string, mode IOMode) error
	StartDetached(name string, args []string, dir string) (int, error)
	Events() <-chan Event
	SetEnv(env map[string]string)
	SetDir(dir string)
	Write(p []byte) (int, error)
	CloseWrite() error
	Output() []string
	ErrorString() string
	PID() int
}

// Option configures an Exec.
type Option func(*Exec)

// WithTimeout kills the process once d has elapsed and reports Timedout.
func WithTimeout(d time.Duration) Option {
	return func(e *Exec) {
		e.timeout = d
	}
}

// WithResolver resolves program names through a cached PATH lookup.
func WithResolver(r *Resolver) Option {
	return func(e *Exec) {
		e.resolver = r
	}
}

// WithCommandFactory replaces exec.CommandContext.
func WithCommandFactory(fn CommandFactoryFunc) Option {
	return func(e *Exec) {
		e.factory = fn
	}
}

// WithWaitDelay sets how long output is still read after the child exited.
// Once it elapses the pipes are closed even if a background descendant
// keeps them open.
func WithWaitDelay(d time.Duration) Option {
	return func(e *Exec) {
		if d > 0 {
			e.waitDelay = d
		}
	}
}

// WithMaxLines bounds how many stdout/stderr lines are retained.
func WithMaxLines(n int) Option {
	return func(e *Exec) {
		if n > 0 {
			e.maxLines = n
		}
	}
}

// Exec runs one child process at a time over os/exec and reports its
// lifecycle as Events. It is safe for concurrent use.
type Exec struct {
	timeout   time.Duration
	waitDelay time.Duration
	resolver  *Resolver
	factory   CommandFactoryFunc
	maxLines  int

	mu       sync.Mutex
	env      map[string]string
	dir      string
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	events   chan Event
	running  bool
	wroteErr bool
	errText  string
	stdout   []string
	stderr   []string
}

var _ Executor = (*Exec)(nil)

// New creates an idle Exec.
func New(opts ...Option) *Exec {
	closed := make(chan Event)
	close(closed)
	e := &Exec{
		factory:   exec.CommandContext,
		maxLines:  defaultMaxLines,
		waitDelay: defaultWaitDelay,
		events:    closed,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetEnv sets variables added to (or overriding) the inherited environment
// of later attempts.
func (e *Exec) SetEnv(env map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.env = make(map[string]string, len(env))
	for k, v := range env {
		e.env[k] = v
	}
}

// SetDir sets the working directory of later attempts.
func (e *Exec) SetDir(dir string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dir = dir
}

// Events returns the event channel of the current (or last) attempt. The
// channel is closed after the attempt's final event.
func (e *Exec) Events() <-chan Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events
}

// Running reports whether an attempt is in flight.
func (e *Exec) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// PID returns the OS process ID of the current attempt, or -1.
func (e *Exec) PID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || e.cmd.Process == nil {
		return -1
	}
	return e.cmd.Process.Pid
}

// ErrorString describes the most recent failure, or "" if none.
func (e *Exec) ErrorString() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errText
}

// Output returns the retained stdout lines of the current attempt.
func (e *Exec) Output() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.stdout))
	copy(out, e.stdout)
	return out
}

// Stderr returns the retained stderr lines of the current attempt.
func (e *Exec) Stderr() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.stderr))
	copy(out, e.stderr)
	return out
}

// Start launches name asynchronously. Spawn failures are reported as an
// Error(FailedToStart) event, not as a return value.
func (e *Exec) Start(ctx context.Context, name string, args []string, mode IOMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}

	events := make(chan Event, eventBuffer)
	e.events = events
	e.running = true
	e.wroteErr = false
	e.errText = ""
	e.stdout, e.stderr = nil, nil
	e.stdin = nil
	e.cmd = nil

	path := name
	if e.resolver != nil {
		resolved, err := e.resolver.Resolve(ctx, name)
		if err != nil {
			e.failStartLocked(err)
			return nil
		}
		path = resolved
	}

	var procCtx context.Context
	var cancel context.CancelFunc
	if e.timeout > 0 {
		procCtx, cancel = context.WithTimeout(ctx, e.timeout)
	} else {
		procCtx, cancel = context.WithCancel(ctx)
	}

	var stdin io.WriteCloser
	cleanup := func() {
		cancel()
		if stdin != nil {
			_ = stdin.Close()
		}
	}

	// #nosec G204 -- running user-requested programs is the point
	cmd := e.factory(procCtx, path, args...)
	cmd.Dir = e.dir
	cmd.Env = ProcessEnv(e.env)
	setGroupAttr(cmd)
	if cmd.Cancel != nil {
		cmd.Cancel = func() error { return killGroup(cmd) }
	}
	cmd.WaitDelay = e.waitDelay

	var err error
	if mode.CanWrite() {
		if stdin, err = cmd.StdinPipe(); err != nil {
			cleanup()
			e.failStartLocked(fmt.Errorf("create stdin pipe: %w", err))
			return nil
		}
	}
	// Output goes through writers, not StdoutPipe, so Wait owns the copy
	// and WaitDelay can cut it off.
	var outputs []*io.PipeWriter
	var readers []*io.PipeReader
	if mode.CanRead() {
		outR, outW := io.Pipe()
		errR, errW := io.Pipe()
		cmd.Stdout, cmd.Stderr = outW, errW
		outputs = []*io.PipeWriter{outW, errW}
		readers = []*io.PipeReader{outR, errR}
	}

	log.Debug(log.CatProcs, "Spawning process",
		"path", path, "args", args, "mode", mode, "dir", e.dir)

	if err := cmd.Start(); err != nil {
		cleanup()
		for _, w := range outputs {
			_ = w.Close()
		}
		e.failStartLocked(err)
		return nil
	}

	e.cmd = cmd
	e.stdin = stdin
	events <- Started(cmd.Process.Pid)
	log.Debug(log.CatProcs, "Process spawned", "pid", cmd.Process.Pid)

	var drained sync.WaitGroup
	for i, r := range readers {
		drained.Add(1)
		go e.readLines(events, r, &drained, i == 0)
	}
	go e.wait(procCtx, cancel, cmd, events, outputs, &drained)

	return nil
}

// failStartLocked reports a spawn failure and ends the attempt. e.mu must be held.
func (e *Exec) failStartLocked(err error) {
	e.errText = err.Error()
	log.ErrorErr(log.CatProcs, "Failed to start process", err)
	e.events <- Errored(FailedToStart)
	close(e.events)
	e.running = false
}

// emit delivers ev if events still belongs to the running attempt.
func (e *Exec) emit(events chan Event, ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.events != events {
		return
	}
	events <- ev
}

func (e *Exec) appendLine(toStdout bool, line string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	buf := &e.stderr
	if toStdout {
		buf = &e.stdout
	}
	*buf = append(*buf, line)
	if over := len(*buf) - e.maxLines; over > 0 {
		*buf = append((*buf)[:0], (*buf)[over:]...)
	}
}

// readLines drains one output stream. A scan failure is reported as
// ReadError and the rest of the stream is discarded so the child never
// blocks on a full pipe.
func (e *Exec) readLines(events chan Event, r io.Reader, wg *sync.WaitGroup, toStdout bool) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !toStdout {
			log.Debug(log.CatProcs, "STDERR", "line", line)
		}
		e.appendLine(toStdout, line)
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, os.ErrClosed) {
		return
	}
	log.ErrorErr(log.CatProcs, "Reading process output failed", err, "stdout", toStdout)
	e.mu.Lock()
	e.errText = err.Error()
	e.mu.Unlock()
	e.emit(events, Errored(ReadError))
	_, _ = io.Copy(io.Discard, r)
}

// wait reaps the child, lets the readers finish the buffered output and
// emits the final events. Wait returns at most WaitDelay after the child
// exits, whoever else still holds its pipes.
func (e *Exec) wait(ctx context.Context, cancel context.CancelFunc, cmd *exec.Cmd, events chan Event, outputs []*io.PipeWriter, drained *sync.WaitGroup) {
	err := cmd.Wait()
	for _, w := range outputs {
		_ = w.Close()
	}
	drained.Wait()
	final := classify(ctx, err)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.errText = err.Error()
	}
	for _, ev := range final {
		events <- ev
	}
	close(events)
	e.running = false
	cancel()

	last := final[len(final)-1]
	log.Debug(log.CatProcs, "Process exited",
		"pid", cmd.Process.Pid, "code", last.ExitCode, "status", last.ExitStatus)
}

// classify maps the result of cmd.Wait to the attempt's final events.
func classify(ctx context.Context, err error) []Event {
	// ErrWaitDelay means the child exited 0 but a descendant kept its output open.
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		return []Event{Finished(0, NormalExit)}
	}

	var exitErr *exec.ExitError
	isExit := errors.As(err, &exitErr)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		code := -1
		if isExit {
			code = exitErr.ExitCode()
		}
		return []Event{Errored(Timedout), Finished(code, CrashExit)}
	}

	if isExit {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return []Event{Errored(Crashed), Finished(exitErr.ExitCode(), CrashExit)}
		}
		return []Event{Finished(exitErr.ExitCode(), NormalExit)}
	}

	return []Event{Errored(UnknownError), Finished(-1, CrashExit)}
}

// Write sends p to the child's stdin. The first failure of an attempt is
// also reported as an Error(WriteError) event.
func (e *Exec) Write(p []byte) (int, error) {
	e.mu.Lock()
	stdin, running, events := e.stdin, e.running, e.events
	e.mu.Unlock()

	if !running {
		return 0, ErrNotRunning
	}
	if stdin == nil {
		return 0, ErrNoStdin
	}

	n, err := stdin.Write(p)
	if err == nil {
		return n, nil
	}

	e.mu.Lock()
	e.errText = err.Error()
	report := !e.wroteErr && e.running && e.events == events
	if report {
		e.wroteErr = true
		events <- Errored(WriteError)
	}
	e.mu.Unlock()

	return n, fmt.Errorf("write stdin: %w", err)
}

// CloseWrite closes the child's stdin so it sees EOF.
func (e *Exec) CloseWrite() error {
	e.mu.Lock()
	stdin := e.stdin
	e.stdin = nil
	e.mu.Unlock()

	if stdin == nil {
		return ErrNoStdin
	}
	return stdin.Close()
}

// StartDetached launches name in its own process group with stdio on the
// null device and returns its PID. The child is reaped in the background
// but is otherwise not supervised.
func (e *Exec) StartDetached(name string, args []string, dir string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return 0, ErrAlreadyRunning
	}

	path := name
	if e.resolver != nil {
		resolved, err := e.resolver.Resolve(context.Background(), name)
		if err != nil {
			e.errText = err.Error()
			return 0, err
		}
		path = resolved
	}

	// #nosec G204 -- running user-requested programs is the point
	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	if cmd.Dir == "" {
		cmd.Dir = e.dir
	}
	cmd.Env = ProcessEnv(e.env)
	setDetachAttr(cmd)

	if err := cmd.Start(); err != nil {
		e.errText = err.Error()
		return 0, fmt.Errorf("start detached: %w", err)
	}

	pid := cmd.Process.Pid
	log.Debug(log.CatProcs, "Detached process started", "path", path, "pid", pid)
	go func() { _ = cmd.Wait() }()

	return pid, nil
}
