package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapexport/internal/testutil"
	"github.com/leapstack-labs/leapexport/pkg/csvenc"
	"github.com/leapstack-labs/leapexport/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a database with a couple of CRM tables.
func setupTestDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "crm.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(context.Background(), `
		CREATE TABLE contacts (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			phone TEXT,
			tags JSON
		);
		CREATE TABLE teams (id INTEGER PRIMARY KEY, name TEXT);

		INSERT INTO contacts (id, name, phone, tags) VALUES
		(1, 'Ana, Silva', NULL, '["a","b"]'),
		(2, 'Bruno', '555-0101', NULL);
	`)
	require.NoError(t, err)
	return path
}

func connect(t *testing.T, path string) *Source {
	t.Helper()
	s := New(testutil.NewTestLogger(t))
	require.NoError(t, s.Connect(context.Background(), source.Config{Path: path}))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSource_Count(t *testing.T) {
	s := connect(t, setupTestDB(t))
	ctx := context.Background()

	n, err := s.Count(ctx, "contacts")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Count(ctx, "teams")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = s.Count(ctx, "missing_table")
	assert.Error(t, err)
}

func TestSource_FetchToCSV(t *testing.T) {
	s := connect(t, setupTestDB(t))

	recs, err := s.Fetch(context.Background(), "contacts")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "id,name,phone,tags\n1,\"Ana, Silva\",,\"[\"\"a\"\",\"\"b\"\"]\"\n2,Bruno,555-0101,", csvenc.Encode(recs))
}

func TestSource_FetchEmpty(t *testing.T) {
	s := connect(t, setupTestDB(t))

	recs, err := s.Fetch(context.Background(), "teams")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSource_ReadOnly(t *testing.T) {
	s := connect(t, setupTestDB(t))

	_, err := s.DB.ExecContext(context.Background(), "DELETE FROM contacts")
	assert.Error(t, err, "export connections must not write")
}

func TestSource_ConnectRequiresPath(t *testing.T) {
	err := New(nil).Connect(context.Background(), source.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a database path")
}
