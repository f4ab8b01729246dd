package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leapstack-labs/leapexport/internal/catalog"
	"github.com/leapstack-labs/leapexport/internal/cli/config"
	"github.com/leapstack-labs/leapexport/internal/cli/output"
	"github.com/leapstack-labs/leapexport/internal/download"
	"github.com/leapstack-labs/leapexport/internal/exporter"
	"github.com/leapstack-labs/leapexport/internal/history"
	"github.com/leapstack-labs/leapexport/internal/notify"
	"github.com/leapstack-labs/leapexport/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// stdoutDir is the output directory value that streams files to stdout.
const stdoutDir = "-"

// ExportResult is the structured output of the export command.
type ExportResult struct {
	exporter.Summary `yaml:",inline"`
	Notices          []notify.Notice `json:"notices" yaml:"notices"`
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var (
		all         bool
		interactive bool
		noHistory   bool
	)

	cmd := &cobra.Command{
		Use:   "export [table...]",
		Short: "Export tables to CSV files",
		Long: `Export one or more tables to files named <table>_<YYYY-MM-DD>.csv.

Tables are exported one at a time. A table that fails or has no records is
reported and skipped; the remaining tables are still exported. CSV files
start with a UTF-8 byte-order mark so spreadsheet tools detect the encoding.

Use --output-dir - to stream the files to stdout.`,
		Example: `  # Export two tables into the current directory
  leapexport export contacts deals

  # Export everything as spreadsheets into ./exports
  leapexport export --all --format xlsx --output-dir exports

  # Pick tables interactively
  leapexport export -i`,
		ValidArgsFunction: completeTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noHistory {
				config.FromContext(cmd.Context()).History = ""
			}
			if interactive {
				return runExportInteractive(cmd)
			}
			return runExport(cmd, args, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Export every table in the catalog")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Pick tables in an interactive list")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")
	// Read by the config loader as overwrite, strict and format.
	cmd.Flags().Bool("overwrite", false, "Replace existing files instead of picking a new name")
	cmd.Flags().Bool("strict", false, "Fail a table whose records do not share the first record's fields")
	cmd.Flags().String("format", "csv", "File format (csv|xlsx)")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(exporter.FormatCSV), string(exporter.FormatXLSX)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func completeTables(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cfg := NewCommandContextWithoutSource(cmd).Cfg
	return catalog.Keys(cfg.Catalog()), cobra.ShellCompDirectiveNoFileComp
}

func runExport(cmd *cobra.Command, args []string, all bool) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tables := cc.Cfg.Catalog()
	if !all {
		if tables, err = catalog.Lookup(tables, args); err != nil {
			return err
		}
	}
	keys := catalog.Keys(tables)

	r := cc.Renderer
	var rec notify.Recorder
	exp, err := newExporter(cc, cmd, notify.Multi{r.Notifier(), &rec})
	if err != nil {
		return err
	}

	summary, err := exp.Export(cmd.Context(), keys)
	if summary != nil {
		recordRun(cmd.Context(), cc, summary)
	}
	if err != nil {
		return err
	}

	if cc.Cfg.OutputDir == stdoutDir {
		return nil
	}
	return renderSummary(r, summary, rec.Notices())
}

func runExportInteractive(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if cc.Cfg.OutputDir == stdoutDir {
		return fmt.Errorf("interactive export cannot stream to stdout\nHint: set --output-dir to a directory")
	}
	if f, ok := cmd.InOrStdin().(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		return fmt.Errorf("interactive export requires a terminal")
	}

	hub := notify.NewHub()
	exp, err := newExporter(cc, cmd, hub)
	if err != nil {
		return err
	}

	tables := cc.Cfg.Catalog()
	opts := tui.Options{
		Tables: tables,
		Counts: func(ctx context.Context) []catalog.Count {
			return catalog.Counts(ctx, cc.Source, tables, cc.Cfg.Concurrency)
		},
		Export: func(ctx context.Context, keys []string) (*exporter.Summary, error) {
			sum, err := exp.Export(ctx, keys)
			if errors.Is(err, exporter.ErrNoSelection) {
				return nil, nil
			}
			if sum != nil {
				recordRun(ctx, cc, sum)
			}
			return sum, err
		},
		Hub: hub,
	}

	_, err = tui.Run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
	return err
}

func newExporter(cc *CommandContext, cmd *cobra.Command, n notify.Notifier) (*exporter.Exporter, error) {
	format, err := exporter.ParseFormat(cc.Cfg.Format)
	if err != nil {
		return nil, err
	}

	var saver download.Saver
	if cc.Cfg.OutputDir == stdoutDir {
		saver = &download.WriterSaver{W: cmd.OutOrStdout()}
	} else {
		saver = download.NewDirSaver(cc.Cfg.OutputDir, cc.Cfg.Overwrite, cc.Logger)
	}

	return exporter.New(exporter.Config{
		Fetcher:  cc.Source,
		Saver:    saver,
		Notifier: n,
		Format:   format,
		Strict:   cc.Cfg.Strict,
		Logger:   cc.Logger,
	})
}

// recordRun stores the run in the history database. Failures are logged
// and never fail the export.
func recordRun(ctx context.Context, cc *CommandContext, sum *exporter.Summary) {
	path := cc.Cfg.History
	if path == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)

	store, err := history.Open(ctx, path, cc.Logger)
	if err != nil {
		cc.Logger.Warn("failed to open history", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.Record(ctx, sum, cc.Cfg.Format, cc.Cfg.OutputDir); err != nil {
		cc.Logger.Warn("failed to record run", slog.String("run_id", sum.RunID), slog.String("error", err.Error()))
	}
}

func renderSummary(r *output.Renderer, s *exporter.Summary, notices []notify.Notice) error {
	if ok, err := r.Structured(ExportResult{Summary: *s, Notices: notices}); ok {
		return err
	}

	if len(s.Exported) == 0 {
		return nil
	}

	r.Header(2, "Files")
	rows := make([][]string, len(s.Exported))
	for i, o := range s.Exported {
		rows[i] = []string{o.Table, o.Path, fmt.Sprintf("%d", o.Rows)}
	}
	r.Table([]string{"Table", "File", "Records"}, rows)

	elapsed := s.Duration.Round(time.Millisecond).String()
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println("")
		r.Println(output.FormatKeyValue("Run", s.RunID))
		r.Println(output.FormatKeyValue("Duration", elapsed))
		return nil
	}
	r.Println(r.Muted(fmt.Sprintf("run %s finished in %s", s.RunID, elapsed)))
	return nil
}
