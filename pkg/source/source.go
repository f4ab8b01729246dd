// Package source defines the upstream data interface that exports read from.
//
// A Source answers two questions per table: how many rows it holds, and what
// those rows are. Concrete sources live in pkg/sources/ subdirectories and
// register themselves from init().
package source

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/leapstack-labs/leapexport/pkg/record"
)

// ErrNotConnected is returned when a source is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// Config holds the settings for connecting to a source.
type Config struct {
	// Type selects the registered source (e.g., "postgres", "sqlite", "rest").
	Type string

	// Path is the file path for file-based databases (DuckDB, SQLite).
	// Use ":memory:" for an in-memory database.
	Path string

	// Network databases
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Schema is the default schema for unqualified table names.
	Schema string

	// URL and APIKey address an HTTP backend.
	URL    string
	APIKey string

	// Options contains additional driver-specific options (e.g., sslmode).
	Options map[string]string

	// Params holds source-specific settings decoded by the source itself.
	Params map[string]any
}

// Source is the query capability an export reads from.
type Source interface {
	// Connect establishes the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Count returns the exact number of rows in table.
	Count(ctx context.Context, table string) (int64, error)

	// Fetch returns every row of table in source order.
	Fetch(ctx context.Context, table string) ([]record.Record, error)

	// Name returns the registered source type.
	Name() string
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTable checks that table is a plain or schema-qualified identifier.
func ValidateTable(table string) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table identifier %q", table)
	}
	return nil
}
