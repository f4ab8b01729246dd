// Package sqlite provides a SQLite source for leapexport, backed by the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapexport/pkg/source"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Name is the registered source type.
const Name = "sqlite"

func init() {
	source.Register(Name, func(l *slog.Logger) source.Source { return New(l) })
}

// Source implements source.Source for SQLite.
type Source struct {
	source.BaseSQLSource
}

// New creates a new SQLite source instance.
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

// Connect opens the database file read-only.
// Use ":memory:" as the path for an in-memory database.
func (s *Source) Connect(ctx context.Context, cfg source.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		return fmt.Errorf("sqlite source requires a database path")
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?mode=ro"
	}

	s.Logger.Debug("opening sqlite database", slog.String("path", path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.DB = db
	s.Cfg = cfg
	return nil
}

var _ source.Source = (*Source)(nil)
