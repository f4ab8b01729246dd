package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapexport/internal/cli/config"
	"github.com/leapstack-labs/leapexport/internal/cli/output"
	"github.com/leapstack-labs/leapexport/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded export runs",
		Long: `List past export runs recorded in the history database, newest first.

Pass a run ID to show the outcome of every table in that run. The database
location is set by the history config key (default .leapexport/history.db).`,
		Example: `  # Recent runs
  leapexport history

  # One run in detail
  leapexport history 3f0c2a9e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutSource(cmd)
			path := cc.Cfg.History
			if path == "" {
				return fmt.Errorf("history is disabled\nHint: set history in %s", config.ConfigFileName)
			}

			r := cc.Renderer
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if len(args) == 1 {
					return fmt.Errorf("run not found: %s", args[0])
				}
				if ok, err := r.Structured([]history.Run{}); ok {
					return err
				}
				r.Println(r.Muted("No export runs recorded yet"))
				return nil
			}

			store, err := history.Open(cmd.Context(), path, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return renderRun(r, run)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderRuns(r, runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func renderRuns(r *output.Renderer, runs []history.Run) error {
	if ok, err := r.Structured(runs); ok {
		return err
	}
	if len(runs) == 0 {
		r.Println(r.Muted("No export runs recorded yet"))
		return nil
	}

	r.Header(1, fmt.Sprintf("Export runs (%d)", len(runs)))
	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Format,
			strconv.Itoa(run.Exported),
			strconv.Itoa(run.Empty),
			strconv.Itoa(run.Failed),
		}
	}
	r.Table([]string{"Run", "Started", "Format", "Exported", "Empty", "Failed"}, rows)
	return nil
}

func renderRun(r *output.Renderer, run *history.Run) error {
	if ok, err := r.Structured(run); ok {
		return err
	}

	r.Header(1, "Run "+run.ID)
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Started", run.StartedAt.Format(time.RFC3339)))
		r.Println(output.FormatKeyValue("Duration", run.Duration.String()))
		r.Println(output.FormatKeyValue("Destination", run.Destination))
		r.Println("")
	} else {
		r.Println(r.Muted(fmt.Sprintf("started %s, took %s, written to %s",
			run.StartedAt.Local().Format(time.DateTime), run.Duration, run.Destination)))
	}

	rows := make([][]string, len(run.Tables))
	for i, t := range run.Tables {
		detail := t.Path
		if t.Error != "" {
			detail = t.Error
		}
		rows[i] = []string{t.Table, t.Status, strconv.Itoa(t.Rows), detail}
	}
	r.Table([]string{"Table", "Status", "Records", "File / Error"}, rows)
	return nil
}
