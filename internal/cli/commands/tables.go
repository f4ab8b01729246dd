package commands

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/leapexport/internal/catalog"
	"github.com/leapstack-labs/leapexport/internal/cli/output"
	"github.com/spf13/cobra"
)

// TableInfo is the structured form of one row of the tables command.
type TableInfo struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
	Rows  int64  `json:"rows" yaml:"rows"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List exportable tables with their row counts",
		Long: `List the tables available for export with their exact row counts.

Counts are queried concurrently. A table whose count fails is listed with
zero rows and the error.`,
		Example: `  # Show tables and counts
  leapexport tables

  # As JSON
  leapexport tables -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTables(cmd)
		},
	}
	return cmd
}

func runTables(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	counts := catalog.Counts(cmd.Context(), cc.Source, cc.Cfg.Catalog(), cc.Cfg.Concurrency)

	infos := make([]TableInfo, len(counts))
	var total int64
	for i, c := range counts {
		infos[i] = TableInfo{Key: c.Table.Key, Label: c.Table.Label, Rows: c.Rows}
		if c.Err != nil {
			infos[i].Error = c.Err.Error()
			cc.Logger.Warn("count failed", slog.String("table", c.Table.Key), slog.String("error", c.Err.Error()))
		}
		total += c.Rows
	}

	r := cc.Renderer
	if ok, err := r.Structured(infos); ok {
		return err
	}

	r.Header(1, fmt.Sprintf("Tables (%d)", len(infos)))
	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = []string{info.Label, info.Key, strconv.FormatInt(info.Rows, 10), info.Error}
	}
	r.Table([]string{"Table", "Key", "Records", "Error"}, rows)

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println("")
		r.Println(output.FormatKeyValue("Total records", strconv.FormatInt(total, 10)))
		return nil
	}
	r.Println(r.Muted(fmt.Sprintf("%d records in total", total)))
	return nil
}
