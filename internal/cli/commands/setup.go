package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapexport/internal/cli/config"
	"github.com/leapstack-labs/leapexport/internal/cli/output"
	"github.com/leapstack-labs/leapexport/pkg/source"
	"github.com/spf13/cobra"

	// Register the built-in sources.
	_ "github.com/leapstack-labs/leapexport/pkg/sources/duckdb"
	_ "github.com/leapstack-labs/leapexport/pkg/sources/postgres"
	_ "github.com/leapstack-labs/leapexport/pkg/sources/rest"
	_ "github.com/leapstack-labs/leapexport/pkg/sources/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Source   source.Source
}

// NewCommandContext creates a CommandContext with a connected source.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutSource(cmd)

	src, err := openSource(cmd.Context(), cc.Cfg.SourceSettings(), cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Source = src

	cleanup := func() {
		if err := src.Close(); err != nil {
			cc.Logger.Warn("failed to close source", slog.String("error", err.Error()))
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutSource creates a CommandContext without a source.
// Useful for commands that don't need data access.
func NewCommandContextWithoutSource(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

func openSource(ctx context.Context, cfg source.Config, logger *slog.Logger) (source.Source, error) {
	src, err := source.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("connecting to source", slog.String("type", src.Name()))
	if err := src.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s source: %w", src.Name(), err)
	}
	return src, nil
}
