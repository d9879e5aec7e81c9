package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/procwatch/internal/guiprocess"
)

var detachCwd string

var detachCmd = &cobra.Command{
	Use:   "detach [flags] -- CMD [ARGS...]",
	Short: "Start a program detached from procwatch",
	Long: `Start a program that outlives procwatch. Only failures to spawn are
reported; the program's exit is never observed.

Examples:
  procwatch detach -- xdg-open report.pdf
  procwatch detach --cwd /tmp --label server -- python3 -m http.server`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cfg, cmd.ErrOrStderr(), true)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.proc.StartDetached(cmd.Context(), args[0], args[1:], detachCwd); err != nil {
			return err
		}
		if s.proc.State() == guiprocess.Errored {
			return &ExitError{Code: 127}
		}
		if cfg.Verbose {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pid %d\n", s.proc.Attempt().PID)
		}
		return nil
	},
}

func init() {
	detachCmd.Flags().StringVar(&detachCwd, "cwd", "", "working directory for the program")
	detachCmd.Flags().String("label", "process", "what the program is, used in notifications")
	detachCmd.Flags().BoolP("verbose", "v", false, "announce the command line and print the pid")
	detachCmd.Flags().Int("win", 0, "window id notifications are addressed to")
	detachCmd.Flags().Bool("plain", false, "print notifications as plain lines")
	for flag, key := range map[string]string{
		"label": "label", "verbose": "verbose", "win": "win_id", "plain": "ui.plain",
	} {
		bindFlag(detachCmd.Flags(), flag, key)
	}
	detachCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(detachCmd)
}
