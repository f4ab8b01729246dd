// Package clipboard copies text to the user's clipboard from a terminal.
//
// Copying uses the OSC 52 escape sequence, which the terminal emulator
// forwards to the system clipboard. It works over SSH and inside tmux or
// screen, but only when output goes to a real terminal.
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// ErrNotTerminal is returned when the output is not attached to a terminal.
var ErrNotTerminal = errors.New("clipboard requires an interactive terminal")

// Clipboard places text on the clipboard.
type Clipboard interface {
	Copy(text string) error
}

// Multiplexer identifies a terminal multiplexer that needs sequence wrapping.
type Multiplexer int

// Known multiplexers.
const (
	MultiplexerNone Multiplexer = iota
	MultiplexerTmux
	MultiplexerScreen
)

// DetectMultiplexer inspects TERM and TMUX values.
func DetectMultiplexer(termEnv, tmuxEnv string) Multiplexer {
	switch {
	case tmuxEnv != "" || strings.HasPrefix(termEnv, "tmux"):
		return MultiplexerTmux
	case strings.HasPrefix(termEnv, "screen"):
		return MultiplexerScreen
	default:
		return MultiplexerNone
	}
}

// OSC52 copies text by writing an OSC 52 sequence to Out.
type OSC52 struct {
	Out         io.Writer
	Multiplexer Multiplexer
	// RequireTTY rejects outputs that are not terminals.
	RequireTTY bool
}

// NewOSC52 creates a clipboard writing to f, with multiplexer wrapping
// detected from the environment.
func NewOSC52(f *os.File) *OSC52 {
	return &OSC52{
		Out:         f,
		Multiplexer: DetectMultiplexer(os.Getenv("TERM"), os.Getenv("TMUX")),
		RequireTTY:  true,
	}
}

// Copy writes text to the clipboard.
func (c *OSC52) Copy(text string) error {
	if c.RequireTTY && !isTerminal(c.Out) {
		return ErrNotTerminal
	}

	seq := osc52.New(text)
	switch c.Multiplexer {
	case MultiplexerTmux:
		seq = seq.Tmux()
	case MultiplexerScreen:
		seq = seq.Screen()
	}

	if _, err := seq.WriteTo(c.Out); err != nil {
		return fmt.Errorf("failed to write clipboard sequence: %w", err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

var _ Clipboard = (*OSC52)(nil)
