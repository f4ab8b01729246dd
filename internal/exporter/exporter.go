// Package exporter runs an export over a selection of tables.
//
// Tables are processed strictly one after another: fetch, encode, save.
// A failure or an empty table is reported through the notifier and the run
// moves on to the next table.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapexport/internal/download"
	"github.com/leapstack-labs/leapexport/internal/notify"
	"github.com/leapstack-labs/leapexport/pkg/csvenc"
	"github.com/leapstack-labs/leapexport/pkg/record"
)

// ErrNoSelection is returned when Export is called with no tables.
var ErrNoSelection = errors.New("select at least one table")

// Format is an output file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q (supported: csv, xlsx)", s)
	}
}

// Fetcher retrieves all rows of a table.
type Fetcher interface {
	Fetch(ctx context.Context, table string) ([]record.Record, error)
}

// Config holds exporter dependencies and options.
type Config struct {
	Fetcher  Fetcher
	Saver    download.Saver
	Notifier notify.Notifier
	// Format defaults to csv.
	Format Format
	// Strict rejects tables whose records do not share the first record's keys.
	Strict bool
	// Now is the run clock. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Exporter exports tables from a source to a saver.
type Exporter struct {
	fetcher  Fetcher
	saver    download.Saver
	notifier notify.Notifier
	format   Format
	encoder  csvenc.Encoder
	now      func() time.Time
	logger   *slog.Logger
}

// New creates an Exporter.
func New(cfg Config) (*Exporter, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("exporter requires a fetcher")
	}
	if cfg.Saver == nil {
		return nil, errors.New("exporter requires a saver")
	}
	format, err := ParseFormat(string(cfg.Format))
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	n := cfg.Notifier
	if n == nil {
		n = notify.Multi(nil)
	}

	return &Exporter{
		fetcher:  cfg.Fetcher,
		saver:    cfg.Saver,
		notifier: n,
		format:   format,
		encoder:  csvenc.Encoder{Strict: cfg.Strict},
		now:      now,
		logger:   logger,
	}, nil
}

// Output is one saved file.
type Output struct {
	Table string `json:"table" yaml:"table"`
	Path  string `json:"path" yaml:"path"`
	Rows  int    `json:"rows" yaml:"rows"`
	Bytes int64  `json:"bytes" yaml:"bytes"`
}

// Failure is a table that could not be exported.
type Failure struct {
	Table string `json:"table" yaml:"table"`
	Error string `json:"error" yaml:"error"`
}

// Summary reports the outcome of one export run.
type Summary struct {
	RunID    string        `json:"run_id" yaml:"run_id"`
	Started  time.Time     `json:"started" yaml:"started"`
	Exported []Output      `json:"exported" yaml:"exported"`
	Empty    []string      `json:"empty" yaml:"empty"`
	Failed   []Failure     `json:"failed" yaml:"failed"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Filename returns "<key>_<YYYY-MM-DD>.<ext>" using the UTC date of t.
func Filename(key string, t time.Time, format Format) string {
	return fmt.Sprintf("%s_%s.%s", key, t.UTC().Format(time.DateOnly), format)
}

// Export processes keys in order. Per-table problems are reported through
// the notifier and recorded in the summary; only an empty selection or a
// canceled context is returned as an error.
func (e *Exporter) Export(ctx context.Context, keys []string) (*Summary, error) {
	if len(keys) == 0 {
		notify.Error(e.notifier, "%s", ErrNoSelection.Error())
		return nil, ErrNoSelection
	}

	started := e.now()
	summary := &Summary{
		RunID:    uuid.NewString(),
		Started:  started,
		Exported: []Output{},
		Empty:    []string{},
		Failed:   []Failure{},
	}
	logger := e.logger.With(slog.String("run_id", summary.RunID))
	logger.Info("export started", slog.Int("tables", len(keys)), slog.String("format", string(e.format)))

	var runErr error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		out, rows, err := e.exportTable(ctx, key, started)
		switch {
		case err != nil:
			notify.Error(e.notifier, "failed to export %s: %s", key, err)
			summary.Failed = append(summary.Failed, Failure{Table: key, Error: err.Error()})
			logger.Warn("table export failed", slog.String("table", key), slog.String("error", err.Error()))
		case rows == 0:
			notify.Info(e.notifier, "%s: no records found", key)
			summary.Empty = append(summary.Empty, key)
			logger.Debug("table empty", slog.String("table", key))
		default:
			summary.Exported = append(summary.Exported, out)
			logger.Debug("table exported",
				slog.String("table", key),
				slog.Int("rows", out.Rows),
				slog.String("path", out.Path))
		}
	}

	if n := len(summary.Exported); n > 0 {
		notify.Success(e.notifier, "%d table(s) exported", n)
	}
	summary.Duration = e.now().Sub(started)

	logger.Info("export finished",
		slog.Int("exported", len(summary.Exported)),
		slog.Int("empty", len(summary.Empty)),
		slog.Int("failed", len(summary.Failed)))

	return summary, runErr
}

// exportTable returns rows == 0 with a nil error for an empty table.
func (e *Exporter) exportTable(ctx context.Context, key string, at time.Time) (Output, int, error) {
	records, err := e.fetcher.Fetch(ctx, key)
	if err != nil {
		return Output{}, 0, err
	}
	if len(records) == 0 {
		return Output{}, 0, nil
	}

	artifact, err := e.render(key, at, records)
	if err != nil {
		return Output{}, 0, err
	}

	res, err := e.saver.Save(ctx, artifact)
	if err != nil {
		return Output{}, 0, err
	}

	return Output{Table: key, Path: res.Path, Rows: len(records), Bytes: res.Bytes}, len(records), nil
}

func (e *Exporter) render(key string, at time.Time, records []record.Record) (download.Artifact, error) {
	name := Filename(key, at, e.format)

	if e.format == FormatXLSX {
		if e.encoder.Strict {
			if err := csvenc.Validate(csvenc.Header(records), records); err != nil {
				return download.Artifact{}, err
			}
		}
		return download.XLSX(name, key, records)
	}

	text, err := e.encoder.Encode(records)
	if err != nil {
		return download.Artifact{}, err
	}
	return download.CSV(name, text), nil
}
