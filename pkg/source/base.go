package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapexport/pkg/record"
)

// BaseSQLSource provides common database/sql functionality for sources.
// Embed this struct in concrete source implementations to get standard
// Close, Count and Fetch implementations.
type BaseSQLSource struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLSource) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLSource) IsConnected() bool {
	return b.DB != nil
}

// Count returns the exact row count of table.
func (b *BaseSQLSource) Count(ctx context.Context, table string) (int64, error) {
	if b.DB == nil {
		return 0, ErrNotConnected
	}
	name, err := b.QualifiedName(table)
	if err != nil {
		return 0, err
	}

	var n int64
	//nolint:gosec // name is validated and quoted
	if err := b.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Fetch returns every row of table as records in column order.
func (b *BaseSQLSource) Fetch(ctx context.Context, table string) ([]record.Record, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	name, err := b.QualifiedName(table)
	if err != nil {
		return nil, err
	}

	if b.Logger != nil {
		b.Logger.Debug("fetching table", slog.String("table", name))
	}

	//nolint:gosec // name is validated and quoted
	rows, err := b.DB.QueryContext(ctx, "SELECT * FROM "+name)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	return ScanRecords(rows)
}

// ScanRecords drains rows into records keyed by column name.
func ScanRecords(rows *sql.Rows) ([]record.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	// JSON columns arrive as raw bytes; keep them as nested values.
	jsonCols := make([]bool, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			switch strings.ToUpper(ct.DatabaseTypeName()) {
			case "JSON", "JSONB":
				jsonCols[i] = true
			}
		}
	}

	var out []record.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if !jsonCols[i] {
				continue
			}
			switch raw := v.(type) {
			case []byte:
				values[i] = record.JSON(string(raw))
			case string:
				values[i] = record.JSON(raw)
			}
		}
		out = append(out, record.FromColumns(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// QualifiedName validates table and returns it quoted, prefixed with the
// configured schema when the table is unqualified.
func (b *BaseSQLSource) QualifiedName(table string) (string, error) {
	if err := ValidateTable(table); err != nil {
		return "", err
	}
	parts := strings.Split(table, ".")
	if len(parts) == 1 && b.Cfg.Schema != "" {
		parts = []string{b.Cfg.Schema, table}
	}
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}
	return strings.Join(parts, "."), nil
}

// QuoteIdent wraps an identifier in double quotes, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
