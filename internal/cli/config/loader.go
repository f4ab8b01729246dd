package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// configNames are the recognised config file names, in priority order.
var configNames = []string{ConfigFileName, "leapexport.yml"}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"source-type": "source.type",
	"database":    "source.database",
	"target":      "environment",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// findConfigFile returns the explicit path, or the first config file found
// in dir or one of its parents.
func findConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range configNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load loads configuration from defaults, file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > selected environment
// block > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"verbose":           false,
		"output":            DefaultOutput,
		"output_dir":        DefaultOutputDir,
		"format":            DefaultFormat,
		"count_concurrency": DefaultConcurrency,
		"history":           DefaultHistory,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	used := findConfigFile(cfgFile, cwd)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Selected environment block, layered over the file so that env vars
	// and flags still win over it.
	if name := selectedEnvironment(k, flags); name != "" {
		if !slices.Contains(k.MapKeys("environments"), name) {
			return nil, fmt.Errorf("environment %q not found in config", name)
		}
		if err := k.Merge(k.Cut("environments." + name)); err != nil {
			return nil, fmt.Errorf("failed to apply environment %q: %w", name, err)
		}
	}

	// 4. Environment variables
	// LEAPEXPORT_OUTPUT_DIR -> output_dir, LEAPEXPORT_SOURCE__API_KEY -> source.api_key
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigFile = used

	if cfg.Source == nil {
		cfg.Source = &SourceConfig{}
	}
	expandSourceEnvVars(cfg.Source)
	cfg.History = expandEnvVars(cfg.History)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandSourceEnvVars expands environment variables in credential fields.
func expandSourceEnvVars(s *SourceConfig) {
	s.Path = expandEnvVars(s.Path)
	s.Host = expandEnvVars(s.Host)
	s.Database = expandEnvVars(s.Database)
	s.User = expandEnvVars(s.User)
	s.Password = expandEnvVars(s.Password)
	s.URL = expandEnvVars(s.URL)
	s.APIKey = expandEnvVars(s.APIKey)
}

// selectedEnvironment returns the environment name from --target, then
// LEAPEXPORT_ENVIRONMENT, then the config file.
func selectedEnvironment(k *koanf.Koanf, flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("target") {
		name, _ := flags.GetString("target")
		return name
	}
	if name, ok := os.LookupEnv(EnvPrefix + "ENVIRONMENT"); ok {
		return name
	}
	return k.String("environment")
}

// configKey is used to store config in context.
type configKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from the command context, falling back
// to defaults.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return Default()
}
