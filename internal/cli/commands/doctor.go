package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapexport/internal/catalog"
	"github.com/leapstack-labs/leapexport/internal/cli/config"
	"github.com/leapstack-labs/leapexport/internal/cli/output"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, source connectivity and table access",
		Long: `Check that leapexport is ready to export.

The doctor command reports on:
- Configuration (config file, output directory)
- Source (driver registered, connection)
- Tables (every catalog table can be counted)

Problems are reported rather than returned as errors, so the report is
always complete.`,
		Example: `  # Run the checks
  leapexport doctor

  # Output as JSON
  leapexport doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

// DoctorOutput is the structured output of the doctor command.
type DoctorOutput struct {
	Checks []HealthCheck `json:"checks" yaml:"checks"`
	Score  int           `json:"score" yaml:"score"`
}

// HealthCheck is a single check result.
type HealthCheck struct {
	Group   string `json:"group" yaml:"group"`
	Name    string `json:"name" yaml:"name"`
	Status  string `json:"status" yaml:"status"` // "pass", "warn", "error"
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command) error {
	cc := NewCommandContextWithoutSource(cmd)
	cfg := cc.Cfg
	r := cc.Renderer

	var checks []HealthCheck
	add := func(group, name, status, details string) {
		checks = append(checks, HealthCheck{Group: group, Name: name, Status: status, Details: details})
	}

	if cfg.ConfigFile != "" {
		add("config", "Config file", statusPass, cfg.ConfigFile)
	} else {
		add("config", "Config file", statusWarn, "no "+config.ConfigFileName+" found, using defaults and flags")
	}

	switch fi, err := os.Stat(cfg.OutputDir); {
	case cfg.OutputDir == stdoutDir:
		add("config", "Output directory", statusPass, "stdout")
	case err != nil:
		add("config", "Output directory", statusWarn, "will be created: "+cfg.OutputDir)
	case !fi.IsDir():
		add("config", "Output directory", statusError, cfg.OutputDir+" is not a directory")
	default:
		add("config", "Output directory", statusPass, cfg.OutputDir)
	}

	src, err := openSource(cmd.Context(), cfg.SourceSettings(), cc.Logger)
	if err != nil {
		add("source", "Connection", statusError, err.Error())
		return renderDoctor(r, buildDoctorOutput(checks))
	}
	defer func() { _ = src.Close() }()
	add("source", "Connection", statusPass, src.Name())

	for _, c := range catalog.Counts(cmd.Context(), src, cfg.Catalog(), cfg.Concurrency) {
		if c.Err != nil {
			add("tables", c.Table.Label, statusError, c.Err.Error())
			continue
		}
		add("tables", c.Table.Label, statusPass, strconv.FormatInt(c.Rows, 10)+" records")
	}

	return renderDoctor(r, buildDoctorOutput(checks))
}

func buildDoctorOutput(checks []HealthCheck) *DoctorOutput {
	return &DoctorOutput{Checks: checks, Score: calculateHealthScore(checks)}
}

// calculateHealthScore computes a score from 0-100. Errors count double.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, c := range checks {
		switch c.Status {
		case statusError:
			score -= 20
		case statusWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	if ok, err := r.Structured(out); ok {
		return err
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		return renderDoctorMarkdown(r, out)
	}
	return renderDoctorText(r, out)
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header.Render("leapexport health report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case statusWarn:
			icon = styles.Warning.Render("!")
		case statusError:
			icon = styles.Error.Render("✗")
		}
		line := fmt.Sprintf("   %s %s", icon, check.Name)
		if check.Details != "" {
			line += styles.Muted.Render(": " + check.Details)
		}
		r.Println(line)
	}
	r.Println("")

	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# leapexport health report")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
		}
		r.Printf("- **[%s]** %s", strings.ToUpper(check.Status), check.Name)
		if check.Details != "" {
			r.Printf(": %s", check.Details)
		}
		r.Println("")
	}
	r.Println("")
	r.Printf("**Health Score:** %d/100\n", out.Score)
	return nil
}
