package guiprocess

import (
	"context"
	"errors"
	"sync"

	"github.com/zjrosen/procwatch/internal/procexec"
)

type startCall struct {
	name string
	args []string
	mode procexec.IOMode
	dir  string
}

// fakeExec is a scripted procexec.Executor. Tests push events with emit.
type fakeExec struct {
	mu        sync.Mutex
	events    chan procexec.Event
	running   bool
	startErr  error
	detachErr error
	detachPID int
	errText   string
	env       map[string]string
	dir       string
	starts    []startCall
	detached  []startCall
	output    []string
}

var _ procexec.Executor = (*fakeExec)(nil)

func newFakeExec() *fakeExec {
	closed := make(chan procexec.Event)
	close(closed)
	return &fakeExec{events: closed, detachPID: 4242}
}

func (f *fakeExec) Start(_ context.Context, name string, args []string, mode procexec.IOMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.running {
		return procexec.ErrAlreadyRunning
	}
	f.starts = append(f.starts, startCall{name: name, args: args, mode: mode})
	f.events = make(chan procexec.Event, 16)
	f.running = true
	return nil
}

func (f *fakeExec) StartDetached(name string, args []string, dir string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = append(f.detached, startCall{name: name, args: args, dir: dir})
	if f.detachErr != nil {
		return 0, f.detachErr
	}
	return f.detachPID, nil
}

// emit queues events for the current attempt and closes the channel after a
// terminal one.
func (f *fakeExec) emit(evs ...procexec.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range evs {
		f.events <- ev
		if ev.Terminal() {
			close(f.events)
			f.running = false
			return
		}
	}
}

func (f *fakeExec) Events() <-chan procexec.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events
}

func (f *fakeExec) SetEnv(env map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.env = env
}

func (f *fakeExec) SetDir(dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dir = dir
}

func (f *fakeExec) Write([]byte) (int, error) { return 0, errors.New("not supported") }
func (f *fakeExec) CloseWrite() error { return nil }
func (f *fakeExec) Output() []string { return f.output }
func (f *fakeExec) ErrorString() string { return f.errText }
func (f *fakeExec) PID() int { return -1 }
