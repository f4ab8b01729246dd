package commands

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/leapstack-labs/leapexport/internal/cli/testutil"
	"github.com/leapstack-labs/leapexport/internal/exporter"
	"github.com/leapstack-labs/leapexport/internal/migration"
	"github.com/leapstack-labs/leapexport/internal/notify"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	for _, version := range []string{"0.1.0", "dev"} {
		t.Run(version, func(t *testing.T) {
			cmd := NewVersionCommand(version)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			require.NoError(t, cmd.Execute())

			assert.Contains(t, buf.String(), "leapexport v"+version+"\n")
			assert.Contains(t, buf.String(), "CSV table exporter")
		})
	}
}

func TestNewTablesCommand(t *testing.T) {
	cmd := NewTablesCommand()

	assert.Equal(t, "tables", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

func TestNewExportCommand(t *testing.T) {
	cmd := NewExportCommand()

	assert.Equal(t, "export [table...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")

	flags := []string{"all", "interactive", "overwrite", "strict", "format"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "i", cmd.Flags().Lookup("interactive").Shorthand)
}

func TestNewMigrationCommand(t *testing.T) {
	cmd := NewMigrationCommand()

	assert.Equal(t, "migration", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("copy"))
	assert.NotNil(t, cmd.Flags().Lookup("write"))
}

type fakeCopier struct {
	got string
	err error
}

func (f *fakeCopier) Copy(text string) error {
	f.got = text
	return f.err
}

func runMigrationCopy(t *testing.T, c *fakeCopier) (string, string, error) {
	t.Helper()
	prev := newCopier
	newCopier = func(*cobra.Command) migration.Copier { return c }
	t.Cleanup(func() { newCopier = prev })

	cmd := NewMigrationCommand()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"--copy"})
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestMigrationCopy(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := &fakeCopier{}
		out, errOut, err := runMigrationCopy(t, c)
		require.NoError(t, err)
		assert.Equal(t, migration.Script(), c.got)
		assert.Empty(t, out, "the script is not printed when copied")
		assert.Contains(t, errOut, "copied to clipboard")
	})

	t.Run("failure is a notice", func(t *testing.T) {
		c := &fakeCopier{err: errors.New("permission denied")}
		_, errOut, err := runMigrationCopy(t, c)
		require.NoError(t, err)
		assert.Contains(t, errOut, "failed to copy migration script: permission denied")
	})
}

func TestMigrationCopyAndWriteExclusive(t *testing.T) {
	cmd := NewMigrationCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--copy", "--write", "x.sql"})
	assert.Error(t, cmd.Execute())
}

func TestRenderSummary(t *testing.T) {
	summary := &exporter.Summary{
		RunID:    "run-1",
		Exported: []exporter.Output{{Table: "contacts", Path: "out/contacts_2026-03-15.csv", Rows: 2}},
		Empty:    []string{"deals"},
		Failed:   []exporter.Failure{},
		Duration: 1500 * time.Millisecond,
	}
	notices := []notify.Notice{{Level: notify.LevelSuccess, Message: "1 table(s) exported"}}

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		require.NoError(t, renderSummary(tr.Renderer, summary, notices))

		out := tr.Output()
		testutil.AssertContains(t, out, "## Files")
		testutil.AssertContains(t, out, "contacts_2026-03-15.csv")
		testutil.AssertContains(t, out, "**Run:** run-1")
		testutil.AssertValidMarkdown(t, out)
		testutil.AssertOutputMode(t, tr, "markdown")
	})

	t.Run("json", func(t *testing.T) {
		tr := testutil.NewTestRendererJSON()
		require.NoError(t, renderSummary(tr.Renderer, summary, notices))

		out := tr.Output()
		testutil.AssertContains(t, out, `"run_id": "run-1"`)
		testutil.AssertContains(t, out, `"message": "1 table(s) exported"`)
		testutil.AssertContains(t, out, `"level": "success"`)
	})

	t.Run("nothing exported", func(t *testing.T) {
		tr := testutil.NewTestRendererText()
		empty := &exporter.Summary{RunID: "run-2"}
		require.NoError(t, renderSummary(tr.Renderer, empty, nil))
		assert.Empty(t, tr.Output())
	})
}

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		want   int
	}{
		{name: "no checks", want: 100},
		{name: "all pass", checks: []HealthCheck{{Status: statusPass}, {Status: statusPass}}, want: 100},
		{name: "one warning", checks: []HealthCheck{{Status: statusWarn}}, want: 90},
		{name: "errors count double", checks: []HealthCheck{{Status: statusError}, {Status: statusWarn}}, want: 70},
		{name: "clamped", checks: []HealthCheck{
			{Status: statusError}, {Status: statusError}, {Status: statusError},
			{Status: statusError}, {Status: statusError}, {Status: statusError},
		}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks))
		})
	}
}

func TestRenderDoctorMarkdown(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	out := buildDoctorOutput([]HealthCheck{
		{Group: "config", Name: "Config file", Status: statusWarn, Details: "using defaults"},
		{Group: "source", Name: "Connection", Status: statusPass, Details: "sqlite"},
	})
	require.NoError(t, renderDoctor(tr.Renderer, out))

	md := tr.Output()
	testutil.AssertContains(t, md, "## Config")
	testutil.AssertContains(t, md, "- **[WARN]** Config file: using defaults")
	testutil.AssertContains(t, md, "**Health Score:** 90/100")
	testutil.AssertValidMarkdown(t, md)
}
