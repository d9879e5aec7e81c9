package cmd

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/zjrosen/procwatch/internal/config"
	"github.com/zjrosen/procwatch/internal/guiprocess"
	"github.com/zjrosen/procwatch/internal/history"
	"github.com/zjrosen/procwatch/internal/log"
	"github.com/zjrosen/procwatch/internal/message"
	"github.com/zjrosen/procwatch/internal/procexec"
	"github.com/zjrosen/procwatch/internal/tracing"
)

// session bundles one supervised program with the services it reports to.
type session struct {
	proc   *guiprocess.Process
	exec   *procexec.Exec
	bus    *message.Bus
	writer *message.Writer
	tracer *tracing.Provider
	db     *history.DB
	stdin  *stdinForwarder
}

// newSession wires a supervisor from cfg. When direct is true notifications
// are printed to out as they happen; otherwise they are only published on
// the bus for a UI to render.
func newSession(c config.Config, out io.Writer, direct bool) (*session, error) {
	s := &session{
		exec: procexec.New(
			procexec.WithTimeout(c.Timeout),
			procexec.WithResolver(procexec.NewResolver(nil, 0)),
		),
		bus:    message.NewBus(),
		writer: message.NewWriter(out, message.WithPlain(c.UI.Plain)),
	}

	tp, err := tracing.NewProvider(c.Tracing.ToTracing())
	if err != nil {
		s.bus.Close()
		return nil, err
	}
	s.tracer = tp

	opts := []guiprocess.Option{
		guiprocess.WithVerbose(c.Verbose),
		guiprocess.WithAdditionalEnv(c.Env),
		guiprocess.WithTracer(tp.Tracer()),
	}

	if c.History.Enabled {
		db, err := history.NewDB(c.HistoryPath())
		if err != nil {
			// History is best effort; the program still runs.
			log.ErrorErr(log.CatDB, "Failed to open history", err, "path", c.HistoryPath())
		} else {
			s.db = db
			opts = append(opts, guiprocess.WithRecorder(history.NewRecorder(db.Runs(), c.History.Keep)))
		}
	}

	var sink message.Sink = s.bus
	if direct {
		sink = message.Tee(s.bus, s.writer)
	}
	s.proc = guiprocess.New(strconv.Itoa(c.WinID), c.Label, s.exec, sink, opts...)
	return s, nil
}

// forwardStdin feeds src to the attempt that just started. The forwarder is
// created once per session and shared by every rerun.
func (s *session) forwardStdin(src io.Reader) {
	if s.stdin == nil {
		s.stdin = newStdinForwarder(s.exec, src)
	}
	s.stdin.attach()
}

// replay prints the notifications the UI showed so they outlive it.
func (s *session) replay() {
	for _, m := range s.bus.Recent(s.proc.WinID()) {
		switch m.Level {
		case message.Info:
			s.writer.Info(m.WinID, m.Text)
		default:
			s.writer.Error(m.WinID, m.Text, m.Immediate)
		}
	}
}

// exitCode mirrors the child's exit status. Spawn failures map to 127 like
// a shell, crashes and other errors to 1.
func (s *session) exitCode() int {
	if code, ok := s.proc.ExitCode(); ok {
		if _, errored := s.proc.LastError(); !errored && code >= 0 {
			return code
		}
		return 1
	}
	if code, ok := s.proc.LastError(); ok && code == procexec.FailedToStart {
		return 127
	}
	if s.proc.State() == guiprocess.Errored {
		return 1
	}
	return 0
}

func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tracer.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatTrace, "Tracing shutdown failed", err)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.ErrorErr(log.CatDB, "Closing history failed", err)
		}
	}
	s.bus.Close()
}
