// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapexport/internal/cli/output"
	"github.com/stretchr/testify/assert"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// TestDatabase is the path of the SQLite file created by SetupTestProject.
const TestDatabase = "crm.db"

// SetupTestProject creates a temporary project holding a SQLite database
// and a leapexport.yaml pointing at it. The database has a contacts table
// with two rows and an empty deals table; the config also lists a missing
// table and keeps run history inside the project.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, TestDatabase)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	stmts := []string{
		`CREATE TABLE contacts (id INTEGER PRIMARY KEY, name TEXT, email TEXT, notes TEXT)`,
		`INSERT INTO contacts VALUES (1, 'Alice', 'alice@example.com', 'likes "quotes"')`,
		`INSERT INTO contacts VALUES (2, 'Bob', NULL, 'line1
line2')`,
		`CREATE TABLE deals (id INTEGER PRIMARY KEY, title TEXT, value REAL)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to run %q: %v", stmt, err)
		}
	}

	cfg := `history: ` + filepath.Join(tmpDir, "history.db") + `
source:
  type: sqlite
  path: ` + dbPath + `
tables:
  - key: contacts
    label: Contacts
  - key: missing_table
    label: Missing
  - key: deals
    label: Deals
`
	if err := os.WriteFile(filepath.Join(tmpDir, "leapexport.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to create leapexport.yaml: %v", err)
	}

	return tmpDir
}

// TestRenderer is a Renderer whose stdout and stderr are captured.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer returns a captured renderer in mode, simulating a
// terminal when isTTY is set.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	tr := &TestRenderer{Out: new(bytes.Buffer), ErrOut: new(bytes.Buffer)}
	tr.Renderer = output.NewRendererWithTTY(tr.Out, tr.ErrOut, isTTY, mode)
	return tr
}

// NewTestRendererText renders styled text as if attached to a terminal.
func NewTestRendererText() *TestRenderer { return NewTestRenderer(output.ModeText, true) }

// NewTestRendererMarkdown renders markdown.
func NewTestRendererMarkdown() *TestRenderer { return NewTestRenderer(output.ModeMarkdown, false) }

// NewTestRendererJSON renders JSON.
func NewTestRendererJSON() *TestRenderer { return NewTestRenderer(output.ModeJSON, false) }

// Output returns what was written to stdout.
func (tr *TestRenderer) Output() string { return tr.Out.String() }

// StripBOM removes a leading UTF-8 byte-order mark.
func StripBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertContains fails the test when s lacks substr.
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	assert.Contains(t, s, substr)
}

// AssertValidMarkdown fails on unbalanced code fences or empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	assert.Zero(t, strings.Count(md, "```")%2, "unbalanced code fences")
	for i, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			assert.NotEmpty(t, strings.TrimLeft(line, "# "), "empty header at line %d", i+1)
		}
	}
}

// AssertOutputMode checks that machine-readable and markdown output carry no
// ANSI styling. Text mode may be styled.
func AssertOutputMode(t *testing.T, tr *TestRenderer, mode output.OutputMode) {
	t.Helper()
	if mode == output.ModeText {
		return
	}
	assert.NotRegexp(t, ansiPattern, tr.Output()+tr.ErrOut.String())
}
