package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapexport/internal/exporter"
	"github.com/leapstack-labs/leapexport/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func summary(id string, started time.Time) *exporter.Summary {
	return &exporter.Summary{
		RunID:    id,
		Started:  started,
		Exported: []exporter.Output{{Table: "contacts", Path: "out/contacts_2026-03-15.csv", Rows: 2, Bytes: 64}},
		Empty:    []string{"deals"},
		Failed:   []exporter.Failure{{Table: "teams", Error: "no such table: teams"}},
		Duration: 1250 * time.Millisecond,
	}
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := setupTestStore(t)

	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	for _, table := range []string{"runs", "run_tables"} {
		rows, err := s.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s should exist", table)
		_ = rows.Close()
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	s, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Close())

	// Reopening an existing database is a no-op migration.
	s, err = Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestStore_RecordAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 15, 2, 30, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, summary("run-1", started), "csv", "out"))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.ID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 1250*time.Millisecond, got.Duration)
	assert.Equal(t, "csv", got.Format)
	assert.Equal(t, "out", got.Destination)
	assert.Equal(t, 1, got.Exported)
	assert.Equal(t, 1, got.Empty)
	assert.Equal(t, 1, got.Failed)

	require.Len(t, got.Tables, 3)
	assert.Equal(t, TableResult{Table: "contacts", Status: StatusExported, Path: "out/contacts_2026-03-15.csv", Rows: 2, Bytes: 64}, got.Tables[0])
	assert.Equal(t, TableResult{Table: "deals", Status: StatusEmpty}, got.Tables[1])
	assert.Equal(t, TableResult{Table: "teams", Status: StatusFailed, Error: "no such table: teams"}, got.Tables[2])
}

func TestStore_RecordDuplicateRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	started := time.Now()

	require.NoError(t, s.Record(ctx, summary("run-1", started), "csv", "out"))
	err := s.Record(ctx, summary("run-1", started), "csv", "out")
	require.Error(t, err)

	// The failed transaction leaves the first run intact.
	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Tables, 3)
}

func TestStore_ListRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, summary(id, base.Add(time.Duration(i)*time.Hour)), "csv", "."))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "newest first", limit: 10, want: []string{"c", "b", "a"}},
		{name: "limited", limit: 2, want: []string{"c", "b"}},
		{name: "zero uses default", limit: 0, want: []string{"c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.ListRuns(ctx, tt.limit)
			require.NoError(t, err)
			ids := make([]string, len(runs))
			for i, r := range runs {
				ids[i] = r.ID
				assert.Nil(t, r.Tables, "list omits table detail")
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_GetRunNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestStore_Closed(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.ListRuns(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, s.Record(context.Background(), summary("x", time.Now()), "csv", "."), ErrNotOpen)
}

func TestStore_RecordLogs(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	s, err := Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Record(context.Background(), summary("run-9", time.Now()), "xlsx", "-"))
	assert.Contains(t, logs.String(), "run recorded")
	assert.Contains(t, logs.String(), "run_id=run-9")
	assert.Contains(t, logs.String(), "tables=3")
}
