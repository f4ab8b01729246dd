package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapexport/internal/cli/output"
)

// Validate checks values that would otherwise fail late in a command.
func (c *Config) Validate() error {
	switch c.Format {
	case "csv", "xlsx":
	default:
		return fmt.Errorf("invalid format %q: must be csv or xlsx", c.Format)
	}

	valid := false
	for _, m := range output.Modes {
		if strings.EqualFold(c.OutputFormat, m) {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid output %q: must be one of %s", c.OutputFormat, strings.Join(output.Modes, ", "))
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required\nHint: use --output-dir - to write to stdout")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("count_concurrency must be at least 1")
	}

	for i, t := range c.Tables {
		if strings.TrimSpace(t.Key) == "" {
			return fmt.Errorf("tables[%d]: key is required", i)
		}
	}
	return nil
}
