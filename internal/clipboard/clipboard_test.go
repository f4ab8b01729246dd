package clipboard

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMultiplexer(t *testing.T) {
	tests := []struct {
		term, tmux string
		want       Multiplexer
	}{
		{"xterm-256color", "", MultiplexerNone},
		{"xterm-256color", "/tmp/tmux-1000/default,123,0", MultiplexerTmux},
		{"tmux-256color", "", MultiplexerTmux},
		{"screen-256color", "", MultiplexerScreen},
		{"", "", MultiplexerNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectMultiplexer(tt.term, tt.tmux), "TERM=%q TMUX=%q", tt.term, tt.tmux)
	}
}

func TestOSC52_Copy(t *testing.T) {
	var buf bytes.Buffer
	c := &OSC52{Out: &buf}

	require.NoError(t, c.Copy("select 1;"))

	encoded := base64.StdEncoding.EncodeToString([]byte("select 1;"))
	out := buf.String()
	assert.Contains(t, out, "\x1b]52;")
	assert.Contains(t, out, encoded)
}

func TestOSC52_Tmux(t *testing.T) {
	var buf bytes.Buffer
	c := &OSC52{Out: &buf, Multiplexer: MultiplexerTmux}

	require.NoError(t, c.Copy("x"))
	assert.Contains(t, buf.String(), "\x1bPtmux;", "tmux passthrough wrapper")
}

func TestOSC52_RequiresTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	c := &OSC52{Out: f, RequireTTY: true}
	assert.ErrorIs(t, c.Copy("x"), ErrNotTerminal)

	c = &OSC52{Out: &bytes.Buffer{}, RequireTTY: true}
	assert.ErrorIs(t, c.Copy("x"), ErrNotTerminal, "writers without a descriptor are not terminals")
}
