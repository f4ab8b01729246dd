// Package history records export runs in a local SQLite database so past
// exports can be listed and inspected.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/leapexport/internal/exporter"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// ErrNotOpen is returned when the store has no database.
var ErrNotOpen = errors.New("history database not opened")

// Table statuses.
const (
	StatusExported = "exported"
	StatusEmpty    = "empty"
	StatusFailed   = "failed"
)

// Run is one recorded export run.
type Run struct {
	ID          string        `json:"id" yaml:"id"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Format      string        `json:"format" yaml:"format"`
	Destination string        `json:"destination" yaml:"destination"`
	Exported    int           `json:"exported" yaml:"exported"`
	Empty       int           `json:"empty" yaml:"empty"`
	Failed      int           `json:"failed" yaml:"failed"`
	Tables      []TableResult `json:"tables,omitempty" yaml:"tables,omitempty"`
}

// TableResult is the outcome for one table of a run.
type TableResult struct {
	Table  string `json:"table" yaml:"table"`
	Status string `json:"status" yaml:"status"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	Rows   int    `json:"rows" yaml:"rows"`
	Bytes  int64  `json:"bytes" yaml:"bytes"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Store persists runs in SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path and applies
// migrations. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create history directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// A single connection keeps in-memory databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("history database opened", slog.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Record stores the outcome of one export run.
func (s *Store) Record(ctx context.Context, sum *exporter.Summary, format, destination string) error {
	if s.db == nil {
		return ErrNotOpen
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, format, destination, exported, empty_count, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Started.UTC().UnixMilli(), sum.Duration.Milliseconds(), format, destination,
		len(sum.Exported), len(sum.Empty), len(sum.Failed),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	pos := 0
	insert := func(t TableResult) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_tables (run_id, position, table_key, status, path, row_count, byte_size, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sum.RunID, pos, t.Table, t.Status, t.Path, t.Rows, t.Bytes, t.Error,
		)
		pos++
		if err != nil {
			return fmt.Errorf("failed to record table %s: %w", t.Table, err)
		}
		return nil
	}

	for _, o := range sum.Exported {
		if err := insert(TableResult{Table: o.Table, Status: StatusExported, Path: o.Path, Rows: o.Rows, Bytes: o.Bytes}); err != nil {
			return err
		}
	}
	for _, key := range sum.Empty {
		if err := insert(TableResult{Table: key, Status: StatusEmpty}); err != nil {
			return err
		}
	}
	for _, f := range sum.Failed {
		if err := insert(TableResult{Table: f.Table, Status: StatusFailed, Error: f.Error}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Debug("run recorded", slog.String("run_id", sum.RunID), slog.Int("tables", pos))
	return nil
}

// ListRuns returns the most recent runs, newest first, without table detail.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, format, destination, exported, empty_count, failed
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a run with its table results.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, duration_ms, format, destination, exported, empty_count, failed
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT table_key, status, path, row_count, byte_size, error
		 FROM run_tables WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	r.Tables = []TableResult{}
	for rows.Next() {
		var t TableResult
		if err := rows.Scan(&t.Table, &t.Status, &t.Path, &t.Rows, &t.Bytes, &t.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run table: %w", err)
		}
		r.Tables = append(r.Tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get run tables: %w", err)
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r          Run
		startedMs  int64
		durationMs int64
	)
	err := sc.Scan(&r.ID, &startedMs, &durationMs, &r.Format, &r.Destination, &r.Exported, &r.Empty, &r.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("failed to scan run: %w", err)
	}
	r.StartedAt = time.UnixMilli(startedMs).UTC()
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return r, nil
}
