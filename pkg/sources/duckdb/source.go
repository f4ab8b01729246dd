// Package duckdb provides a DuckDB source for leapexport.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapexport/pkg/source"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Name is the registered source type.
const Name = "duckdb"

func init() {
	source.Register(Name, func(l *slog.Logger) source.Source { return New(l) })
}

// Source implements source.Source for DuckDB.
type Source struct {
	source.BaseSQLSource
}

// New creates a new DuckDB source instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{
		BaseSQLSource: source.BaseSQLSource{Logger: logger},
	}
}

// Name returns the registered source type.
func (s *Source) Name() string { return Name }

// Connect establishes a connection to DuckDB.
// Use ":memory:" (or an empty path) for an in-memory database.
func (s *Source) Connect(ctx context.Context, cfg source.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	dsn := path
	if path == "" || path == ":memory:" {
		dsn = ""
	} else if cfg.Options["access_mode"] != "read_write" {
		dsn = path + "?access_mode=read_only"
	}

	s.Logger.Debug("opening duckdb database", slog.String("path", path))

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return nil
}

var _ source.Source = (*Source)(nil)
