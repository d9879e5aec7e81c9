package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/procwatch/internal/history"
)

var (
	historyLimit  int
	historyLabel  string
	historyWin    string
	historyPrune  time.Duration
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `List runs recorded by procwatch, newest first.

Examples:
  procwatch history
  procwatch history --limit 5 --label build
  procwatch history -o json | jq '.[].outcome'

  # Delete runs older than a week
  procwatch history --prune 168h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := history.NewDB(cfg.HistoryPath())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		repo := db.Runs()

		if cmd.Flags().Changed("prune") {
			n, err := repo.Prune(time.Now().Add(-historyPrune))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d run(s)\n", n)
			return nil
		}

		runs, err := repo.List(history.ListFilter{
			Label: historyLabel,
			WinID: historyWin,
			Limit: historyLimit,
		})
		if err != nil {
			return err
		}
		return writeRuns(cmd.OutOrStdout(), historyOutput, runs)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	historyCmd.Flags().StringVarP(&historyLabel, "label", "l", "", "only runs with this label")
	historyCmd.Flags().StringVar(&historyWin, "win", "", "only runs addressed to this window id")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "delete runs older than this instead of listing")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(historyCmd)
}

// runView is the serialized form of a run.
type runView struct {
	ID        string     `json:"id" yaml:"id"`
	Label     string     `json:"label" yaml:"label"`
	Command   string     `json:"command" yaml:"command"`
	WorkDir   string     `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	Detached  bool       `json:"detached" yaml:"detached"`
	PID       int        `json:"pid,omitempty" yaml:"pid,omitempty"`
	State     string     `json:"state" yaml:"state"`
	Outcome   string     `json:"outcome" yaml:"outcome"`
	ExitCode  *int       `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	StartedAt time.Time  `json:"started_at" yaml:"started_at"`
	Finished  *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

func toRunView(r *history.Run) runView {
	return runView{
		ID:        r.ID,
		Label:     r.Label,
		Command:   r.Cmdline(),
		WorkDir:   r.WorkDir,
		Detached:  r.Detached,
		PID:       r.PID,
		State:     string(r.State),
		Outcome:   r.Outcome(),
		ExitCode:  r.ExitCode,
		StartedAt: r.StartedAt,
		Finished:  r.FinishedAt,
	}
}

func writeRuns(w io.Writer, format string, runs []*history.Run) error {
	views := make([]runView, len(runs))
	for i, r := range runs {
		views[i] = toRunView(r)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "STARTED\tLABEL\tOUTCOME\tDURATION\tCOMMAND")
		for _, r := range runs {
			duration := "-"
			if d := r.Duration(); d > 0 {
				duration = d.Round(time.Millisecond).String()
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Label, r.Outcome(), duration, r.Cmdline())
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}
