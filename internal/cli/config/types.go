// Package config provides configuration management for the leapexport CLI.
package config

import (
	"github.com/leapstack-labs/leapexport/internal/catalog"
	"github.com/leapstack-labs/leapexport/pkg/source"
)

// Config holds all CLI configuration options.
type Config struct {
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	OutputDir    string               `koanf:"output_dir"`
	Overwrite    bool                 `koanf:"overwrite"`
	Format       string               `koanf:"format"`
	Strict       bool                 `koanf:"strict"`
	Concurrency  int                  `koanf:"count_concurrency"`
	History      string               `koanf:"history"`
	Environment  string               `koanf:"environment"`
	Source       *SourceConfig        `koanf:"source"`
	Tables       []TableConfig        `koanf:"tables"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// SourceConfig describes where table data is read from.
type SourceConfig struct {
	Type     string            `koanf:"type"`
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	URL      string            `koanf:"url"`
	APIKey   string            `koanf:"api_key"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// TableConfig overrides one catalog entry.
type TableConfig struct {
	Key   string `koanf:"key"`
	Label string `koanf:"label"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	OutputDir string        `koanf:"output_dir"`
	Source    *SourceConfig `koanf:"source"`
}

// Default configuration values.
const (
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultOutputDir   = "."
	DefaultFormat      = "csv"
	DefaultConcurrency = catalog.DefaultCountLimit
	DefaultHistory     = ".leapexport/history.db"
	ConfigFileName     = "leapexport.yaml"
	EnvPrefix          = "LEAPEXPORT_"
)

// SourceSettings converts the source section to the source package's config.
func (c *Config) SourceSettings() source.Config {
	s := c.Source
	if s == nil {
		return source.Config{}
	}
	return source.Config{
		Type:     s.Type,
		Path:     s.Path,
		Host:     s.Host,
		Port:     s.Port,
		Database: s.Database,
		Username: s.User,
		Password: s.Password,
		Schema:   s.Schema,
		URL:      s.URL,
		APIKey:   s.APIKey,
		Options:  s.Options,
		Params:   s.Params,
	}
}

// Catalog returns the configured tables, or the default catalog when none
// are configured.
func (c *Config) Catalog() []catalog.Table {
	if len(c.Tables) == 0 {
		return catalog.Default()
	}
	tables := make([]catalog.Table, len(c.Tables))
	for i, t := range c.Tables {
		tables[i] = catalog.Table{Key: t.Key, Label: t.Label}
	}
	return catalog.Normalize(tables)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		OutputFormat: DefaultOutput,
		OutputDir:    DefaultOutputDir,
		Format:       DefaultFormat,
		Concurrency:  DefaultConcurrency,
		History:      DefaultHistory,
		Source:       &SourceConfig{},
	}
}
