package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/leapstack-labs/leapexport/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	for _, name := range []string{"index", "tables", "export", "migration", "history", "doctor"} {
		data, err := os.ReadFile(filepath.Join(dir, name+".md"))
		require.NoError(t, err, "missing page %s", name)
		assert.Contains(t, string(data), "DO NOT EDIT")
	}

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "[`export`](/cli/export)")
	assert.Contains(t, string(index), "LEAPEXPORT_SOURCE__API_KEY")

	export, err := os.ReadFile(filepath.Join(dir, "export.md"))
	require.NoError(t, err)
	assert.Contains(t, string(export), "`--no-history`")
	assert.Contains(t, string(export), "leapexport export")
}

func TestGenerateConfigDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateConfigDocs(dir))

	data, err := os.ReadFile(filepath.Join(dir, "configuration.md"))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "`source.api_key`")
	assert.Contains(t, content, "`tables.label`")
	assert.Contains(t, content, "`"+config.DefaultHistory+"`")
	assert.Contains(t, content, "`sqlite`")
}

func TestCollectConfigFields(t *testing.T) {
	cfg := config.Default()
	fields := collectConfigFields(reflect.TypeOf(*cfg), "", reflect.ValueOf(*cfg))

	byKey := make(map[string]ConfigField, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
		assert.NotEmpty(t, f.Description, "key %s has no description", f.Key)
	}

	assert.Equal(t, "csv", byKey["format"].Default)
	assert.Equal(t, "object", byKey["source"].Type)
	assert.Equal(t, "list", byKey["tables"].Type)
	assert.Equal(t, "map", byKey["environments"].Type)
	assert.NotContains(t, byKey, "ConfigFile")
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"  spaced\n  across lines ", "spaced across lines"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanDescription(tt.in))
	}
}

func TestCleanExample(t *testing.T) {
	got := cleanExample("  # comment\n  leapexport tables\n\n    nested")
	assert.Equal(t, "# comment\nleapexport tables\n\n  nested", got)
}

func TestMarkdownWriter(t *testing.T) {
	w := NewMarkdownWriter()
	w.Frontmatter("Title", "Desc")
	w.Header(2, "Section")
	w.CodeBlock("bash", "echo hi\n")
	w.BulletList([]string{"one", "two"})

	got := string(w.Bytes())
	assert.Contains(t, got, "---\ntitle: \"Title\"\n")
	assert.Contains(t, got, "## Section\n\n")
	assert.Contains(t, got, "```bash\necho hi\n```\n")
	assert.Contains(t, got, "- one\n- two\n")
}
