package commands

import (
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapexport/internal/clipboard"
	"github.com/leapstack-labs/leapexport/internal/migration"
	"github.com/leapstack-labs/leapexport/internal/notify"
	"github.com/spf13/cobra"
)

// MigrationOutput is the structured output of the migration command.
type MigrationOutput struct {
	Name   string `json:"name" yaml:"name"`
	Script string `json:"script" yaml:"script"`
}

// newCopier returns the clipboard used by migration --copy.
var newCopier = func(cmd *cobra.Command) migration.Copier {
	return &clipboard.OSC52{
		Out:         cmd.ErrOrStderr(),
		Multiplexer: clipboard.DetectMultiplexer(os.Getenv("TERM"), os.Getenv("TMUX")),
		RequireTTY:  true,
	}
}

// NewMigrationCommand creates the migration command.
func NewMigrationCommand() *cobra.Command {
	var (
		copyScript bool
		writePath  string
	)

	cmd := &cobra.Command{
		Use:   "migration",
		Short: "Print the SQL script that creates the exported tables",
		Long: `Print the SQL migration script that creates every table in the default
catalog, with row level security enabled.

The script is embedded in the binary and never changes between runs.
Use --copy to place it on the terminal clipboard (OSC 52) or --write to
save it to a file.`,
		Example: `  # Print the script
  leapexport migration

  # Copy it to the clipboard
  leapexport migration --copy

  # Save it next to your other migrations
  leapexport migration --write supabase/migrations/0001_crm.sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutSource(cmd)
			r := cc.Renderer

			switch {
			case copyScript:
				n := r.Notifier()
				if err := migration.Copy(cmd.Context(), newCopier(cmd)); err != nil {
					cc.Logger.Debug("clipboard copy failed", slog.String("error", err.Error()))
					notify.Error(n, "%s", err)
					return nil
				}
				notify.Success(n, "Migration script copied to clipboard")
				return nil
			case writePath != "":
				if err := migration.Write(writePath); err != nil {
					return err
				}
				notify.Success(r.Notifier(), "Migration script written to %s", writePath)
				return nil
			}

			if ok, err := r.Structured(MigrationOutput{Name: migration.Name, Script: migration.Script()}); ok {
				return err
			}
			_, err := cmd.OutOrStdout().Write([]byte(migration.Script()))
			return err
		},
	}

	cmd.Flags().BoolVar(&copyScript, "copy", false, "Copy the script to the clipboard")
	cmd.Flags().StringVar(&writePath, "write", "", "Write the script to `file`")
	cmd.MarkFlagsMutuallyExclusive("copy", "write")

	return cmd
}
