package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/leapstack-labs/leapexport/internal/cli/config"
	"github.com/leapstack-labs/leapexport/pkg/source"
)

// ConfigField is one documented configuration key.
type ConfigField struct {
	Key         string
	Type        string
	Default     string
	Description string
}

// fieldDescriptions documents config keys by their dotted koanf path.
var fieldDescriptions = map[string]string{
	"verbose":           "Enable debug logging on stderr",
	"output":            "Output mode for command results (auto, text, markdown, json, yaml)",
	"output_dir":        "Directory for exported files, or - to stream them to stdout",
	"overwrite":         "Replace an existing export file instead of adding a numeric suffix",
	"format":            "Export file format (csv or xlsx)",
	"strict":            "Fail a table when a record does not have the header's fields",
	"count_concurrency": "Maximum number of row counts running at once",
	"history":           "SQLite database that records export runs; empty disables history",
	"environment":       "Environment from the environments section to apply",
	"source":            "Where table data is read from",
	"source.type":       "Source type",
	"source.path":       "Database file for sqlite and duckdb",
	"source.host":       "Database host for postgres",
	"source.port":       "Database port for postgres",
	"source.database":   "Database name, or the file path for file-based sources",
	"source.user":       "Database user",
	"source.password":   "Database password; ${VAR} references are expanded",
	"source.schema":     "Schema that holds the tables",
	"source.url":        "Base URL of the REST endpoint",
	"source.api_key":    "API key sent with every REST request",
	"source.options":    "Driver-specific connection options",
	"source.params":     "Extra source parameters",
	"tables":            "Tables to export; defaults to the built-in catalog",
	"tables.key":        "Table name in the source",
	"tables.label":      "Human-readable name used in notices",
	"environments":      "Named overrides selected with --target",
}

// collectConfigFields walks the koanf tags of t and returns a field per key.
func collectConfigFields(t reflect.Type, prefix string, defaults reflect.Value) []ConfigField {
	var fields []ConfigField
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		def := ""
		if defaults.IsValid() {
			v := defaults.Field(i)
			if v.Kind() != reflect.Pointer && v.Kind() != reflect.Slice && v.Kind() != reflect.Map && !v.IsZero() {
				def = fmt.Sprint(v.Interface())
			}
		}

		fields = append(fields, ConfigField{
			Key:         key,
			Type:        typeName(ft),
			Default:     def,
			Description: fieldDescriptions[key],
		})

		switch {
		case ft.Kind() == reflect.Struct:
			fields = append(fields, collectConfigFields(ft, key, reflect.Value{})...)
		case ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Struct:
			fields = append(fields, collectConfigFields(ft.Elem(), key, reflect.Value{})...)
		}
	}
	return fields
}

func typeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Struct:
		return "object"
	case reflect.Slice:
		return "list"
	case reflect.Map:
		return "map"
	default:
		return t.Kind().String()
	}
}

// generateConfigDocs writes the configuration reference page.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "Reference for the "+config.ConfigFileName+" file")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("leapexport reads " + InlineCode(config.ConfigFileName) +
		" from the current directory or the nearest parent. Values are layered: defaults, then the file, " +
		"then the selected environment block, then " +
		InlineCode(config.EnvPrefix+"*") + " environment variables, then command-line flags.")

	w.Header(2, "Keys")
	cfg := config.Default()
	fields := collectConfigFields(reflect.TypeOf(*cfg), "", reflect.ValueOf(*cfg))
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		def := ""
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(f.Key), f.Type, def, cleanDescription(f.Description)})
	}
	w.Table([]string{"Key", "Type", "Default", "Description"}, rows)

	w.Header(2, "Source Types")
	types := make([]string, 0)
	for _, name := range source.List() {
		types = append(types, InlineCode(name))
	}
	w.BulletList(types)

	w.Header(2, "Examples")
	w.Header(3, "SQLite")
	w.CodeBlock("yaml", `source:
  type: sqlite
  path: ./crm.db
output_dir: ./exports`)

	w.Header(3, "PostgreSQL with environments")
	w.CodeBlock("yaml", `source:
  type: postgres
  host: localhost
  port: 5432
  database: crm
  user: crm
  password: ${PGPASSWORD}
  schema: public

environments:
  prod:
    output_dir: /var/exports
    source:
      host: db.internal`)

	w.Header(3, "REST endpoint")
	w.CodeBlock("yaml", `source:
  type: rest
  url: https://example.supabase.co/rest/v1
  api_key: ${`+config.EnvPrefix+`API_KEY}
format: xlsx
tables:
  - key: contacts
    label: Contacts
  - key: deals
    label: Deals`)

	w.Paragraph("Select an environment with " + InlineCode("--target prod") + " or " +
		InlineCode(strings.TrimSuffix(config.EnvPrefix, "_")+"_ENVIRONMENT=prod") + ".")

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}
