package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/procwatch/internal/log"
	"github.com/zjrosen/procwatch/internal/procexec"
	"github.com/zjrosen/procwatch/internal/ui/watch"
	"github.com/zjrosen/procwatch/internal/watcher"
)

var (
	runEnv   []string
	runMode  string
	runWatch []string
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- CMD [ARGS...]",
	Short: "Run a program and report how it ended",
	Long: `Run a program attached to procwatch and report its lifecycle.

Failures to start, crashes and non-zero exits are reported as notifications.
procwatch exits with the child's exit status (127 if it could not be
started, 1 if it crashed).

Examples:
  # Report a failing build
  procwatch run --label build -- make test

  # Announce the command line and successful exits
  procwatch run -v -- ./scripts/deploy.sh staging

  # Extra environment and a hard time limit
  procwatch run --env RUST_BACKTRACE=1 --timeout 30s -- cargo run

  # Live status view
  procwatch run --tui -- sleep 3

  # Rerun whenever a file in ./src changes (Ctrl+C to stop)
  procwatch run --watch ./src -- go test ./...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProgram,
}

func init() {
	runCmd.Flags().String("label", "process", "what the program is, used in notifications")
	runCmd.Flags().BoolP("verbose", "v", false, "announce the command line and successful exits")
	runCmd.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "extra environment variable KEY=VALUE (repeatable)")
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "r", "child stdio piped to procwatch: none, r, w or rw")
	runCmd.Flags().Duration("timeout", 0, "kill the program after this long (0 disables)")
	runCmd.Flags().Bool("tui", false, "show a live status view while the program runs")
	runCmd.Flags().Int("win", 0, "window id notifications are addressed to")
	runCmd.Flags().Bool("plain", false, "print notifications as plain lines")
	runCmd.Flags().StringArrayVarP(&runWatch, "watch", "w", nil, "rerun when this file or directory changes (repeatable)")
	for flag, key := range map[string]string{
		"label": "label", "verbose": "verbose", "timeout": "timeout",
		"tui": "ui.tui", "win": "win_id", "plain": "ui.plain",
	} {
		bindFlag(runCmd.Flags(), flag, key)
	}
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

func runProgram(cmd *cobra.Command, args []string) error {
	mode, err := procexec.ParseMode(runMode)
	if err != nil {
		return err
	}

	env, invalid := procexec.ParseEnvPairs(runEnv)
	if len(invalid) > 0 {
		return fmt.Errorf("invalid --env value(s) %q: want KEY=VALUE", invalid)
	}
	c := cfg
	c.Env = mergeMaps(cfg.Env, env)

	s, err := newSession(c, cmd.ErrOrStderr(), !c.UI.TUI)
	if err != nil {
		return err
	}
	defer s.Close()

	// Cancelling ctx kills the child; the supervisor still sees it finish.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case c.UI.TUI:
		err = runWithTUI(ctx, stop, s, args, mode)
	case len(runWatch) > 0:
		err = runWatching(ctx, cmd, s, args, mode)
	default:
		err = runAttached(ctx, s, args, mode)
	}
	if err != nil {
		return err
	}

	if len(runWatch) == 0 || c.UI.TUI {
		printOutput(cmd, s)
	}
	if code := s.exitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func runAttached(ctx context.Context, s *session, args []string, mode procexec.IOMode) error {
	if err := s.proc.Start(ctx, args[0], args[1:], mode); err != nil {
		return err
	}
	if mode.CanWrite() {
		s.forwardStdin(os.Stdin)
	}
	return s.proc.Run(context.Background())
}

// runWatching reruns the program each time a watched path changes until ctx
// is cancelled.
func runWatching(ctx context.Context, cmd *cobra.Command, s *session, args []string, mode procexec.IOMode) error {
	w, err := watcher.New(watcher.DefaultConfig(runWatch...))
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return err
	}

	for {
		if err := runAttached(ctx, s, args, mode); err != nil {
			return err
		}
		printOutput(cmd, s)

		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if ctx.Err() != nil {
				return nil
			}
			log.Info(log.CatWatch, "Rerunning after change", "label", s.proc.Label())
			s.writer.Info(s.proc.WinID(), fmt.Sprintf("Change detected, rerunning %s.", s.proc.Label()))
		}
	}
}

func runWithTUI(ctx context.Context, stop context.CancelFunc, s *session, args []string, mode procexec.IOMode) error {
	uiCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before starting so the first notification is not missed.
	done := make(chan error, 1)
	model := watch.New(uiCtx, s.proc, s.bus, done, watch.WithNotifyTimeout(cfg.UI.NotifyTimeout))

	// The terminal's stdin belongs to the status view.
	if err := s.proc.Start(ctx, args[0], args[1:], mode); err != nil {
		return err
	}
	go func() {
		done <- s.proc.Run(context.Background())
		close(done)
	}()

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		stop()
		<-done
		return fmt.Errorf("running status view: %w", err)
	}

	if m, ok := final.(watch.Model); ok && !m.Finished() {
		log.Info(log.CatUI, "Interrupted, stopping program")
		stop()
		for range done { //nolint:revive // drain until Run returns
		}
	}

	s.replay()
	return nil
}

func printOutput(cmd *cobra.Command, s *session) {
	printLines(cmd.OutOrStdout(), s.exec.Output())
	printLines(cmd.ErrOrStderr(), s.exec.Stderr())
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		_, _ = fmt.Fprintln(w, line)
	}
}

// mergeMaps returns base overlaid with extra.
func mergeMaps(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
