package cmd

import (
	"errors"
	"io"
	"sync"

	"github.com/zjrosen/procwatch/internal/log"
	"github.com/zjrosen/procwatch/internal/procexec"
)

// stdinForwarder copies one input stream into whichever attempt of an Exec
// is current. A single goroutine reads src for the whole session, so reruns
// never leave stale readers behind. Input arriving between attempts is dropped.
type stdinForwarder struct {
	exec *procexec.Exec
	src  io.Reader
	once sync.Once
	eof  chan struct{}
}

func newStdinForwarder(e *procexec.Exec, src io.Reader) *stdinForwarder {
	return &stdinForwarder{exec: e, src: src, eof: make(chan struct{})}
}

// attach is called after each successful start. Once src is exhausted every
// new attempt gets its stdin closed right away.
func (f *stdinForwarder) attach() {
	f.once.Do(func() { go f.pump() })
	select {
	case <-f.eof:
		_ = f.exec.CloseWrite()
	default:
	}
}

func (f *stdinForwarder) pump() {
	buf := make([]byte, 32*1024)
	for {
		n, err := f.src.Read(buf)
		if n > 0 {
			if _, werr := f.exec.Write(buf[:n]); werr != nil && !errors.Is(werr, procexec.ErrNotRunning) {
				log.Debug(log.CatProcs, "Dropped stdin chunk", "bytes", n, "error", werr)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.ErrorErr(log.CatProcs, "Reading stdin failed", err)
			}
			close(f.eof)
			_ = f.exec.CloseWrite()
			return
		}
	}
}
