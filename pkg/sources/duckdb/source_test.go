package duckdb

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leapexport/pkg/csvenc"
	"github.com/leapstack-labs/leapexport/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_InMemory(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	require.NoError(t, s.Connect(ctx, source.Config{Path: ":memory:"}))
	defer func() { _ = s.Close() }()

	_, err := s.DB.ExecContext(ctx, `
		CREATE TABLE pipeline_stages (id INTEGER, title VARCHAR, position INTEGER);
		INSERT INTO pipeline_stages VALUES (1, 'Lead', 0), (2, 'Won, closed', 1);
	`)
	require.NoError(t, err)

	n, err := s.Count(ctx, "pipeline_stages")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	recs, err := s.Fetch(ctx, "pipeline_stages")
	require.NoError(t, err)
	assert.Equal(t, "id,title,position\n1,Lead,0\n2,\"Won, closed\",1", csvenc.Encode(recs))
}

func TestSource_NotConnected(t *testing.T) {
	_, err := New(nil).Count(context.Background(), "x")
	assert.ErrorIs(t, err, source.ErrNotConnected)
}

func TestRegistered(t *testing.T) {
	assert.True(t, source.IsRegistered(Name))
}
