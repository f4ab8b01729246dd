package source

import (
	"context"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/leapexport/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	BaseSQLSource
}

func (s *stubSource) Connect(_ context.Context, cfg Config) error {
	s.Cfg = cfg
	return nil
}

func (s *stubSource) Fetch(context.Context, string) ([]record.Record, error) { return nil, nil }

func (s *stubSource) Name() string { return "stub" }

func TestRegistry(t *testing.T) {
	Register("stub", func(l *slog.Logger) Source { return &stubSource{BaseSQLSource{Logger: l}} })

	assert.True(t, IsRegistered("stub"))
	assert.True(t, IsRegistered("Stub"), "types match case-insensitively")
	assert.Contains(t, List(), "stub")

	src, err := New(Config{Type: "STUB"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", src.Name())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source type not specified")

	_, err = New(Config{Type: "oracle"}, nil)
	var unknown *UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
	assert.Contains(t, err.Error(), "Available sources")
	assert.Contains(t, err.Error(), "--source-type")
}
