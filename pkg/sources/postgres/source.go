// Package postgres provides a PostgreSQL source for leapexport.
//
// Import this package with a blank identifier to register the source:
//
//	import _ "github.com/leapstack-labs/leapexport/pkg/sources/postgres"
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/leapexport/pkg/source"
)

// Name is the registered source type.
const Name = "postgres"

func init() {
	source.Register(Name, func(l *slog.Logger) source.Source { return New(l) })
}

// Source implements source.Source for PostgreSQL.
type Source struct {
	source.BaseSQLSource
}

// New creates a new PostgreSQL source instance.
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

// Connect establishes a connection to PostgreSQL.
func (s *Source) Connect(ctx context.Context, cfg source.Config) error {
	dsn := buildDSN(cfg)

	s.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	s.DB = db
	s.Cfg = cfg
	return nil
}

// buildDSN constructs a key=value PostgreSQL connection string.
// A full URL in cfg.URL takes precedence.
func buildDSN(cfg source.Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

var _ source.Source = (*Source)(nil)
