// Package catalog describes the tables that can be exported and their row counts.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCountLimit bounds concurrent count queries when no limit is given.
const DefaultCountLimit = 8

// Table is one export unit.
type Table struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
}

// Default returns the CRM tables exposed by the admin export screen.
func Default() []Table {
	return []Table{
		{Key: "contacts", Label: "Contacts"},
		{Key: "conversations", Label: "Conversations"},
		{Key: "messages", Label: "Messages"},
		{Key: "deals", Label: "Deals"},
		{Key: "deal_activities", Label: "Deal Activities"},
		{Key: "appointments", Label: "Appointments"},
		{Key: "pipeline_stages", Label: "Pipeline Stages"},
		{Key: "teams", Label: "Teams"},
		{Key: "team_members", Label: "Team Members"},
		{Key: "team_functions", Label: "Team Functions"},
		{Key: "tag_definitions", Label: "Tag Definitions"},
		{Key: "nina_settings", Label: "System Settings"},
		{Key: "profiles", Label: "User Profiles"},
	}
}

// Normalize fills missing labels and drops duplicate keys, keeping the first.
func Normalize(tables []Table) []Table {
	out := make([]Table, 0, len(tables))
	seen := make(map[string]bool, len(tables))
	for _, t := range tables {
		t.Key = strings.TrimSpace(t.Key)
		if t.Key == "" || seen[t.Key] {
			continue
		}
		seen[t.Key] = true
		if t.Label == "" {
			t.Label = LabelFor(t.Key)
		}
		out = append(out, t)
	}
	return out
}

// LabelFor derives a display label from a table key.
// "deal_activities" becomes "Deal Activities".
func LabelFor(key string) string {
	titleCaser := cases.Title(language.English)
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// UnknownTableError is returned when a requested key is not in the catalog.
type UnknownTableError struct {
	Key       string
	Available []string
}

func (e *UnknownTableError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unknown table %q", e.Key)
	if len(e.Available) > 0 {
		sorted := append([]string(nil), e.Available...)
		sort.Strings(sorted)
		fmt.Fprintf(&sb, "\n\nAvailable tables: %s", strings.Join(sorted, ", "))
	}
	return sb.String()
}

// Lookup resolves keys against tables, preserving the order of keys.
// A key repeated in keys is resolved once, at its first position.
func Lookup(tables []Table, keys []string) ([]Table, error) {
	byKey := make(map[string]Table, len(tables))
	for _, t := range tables {
		byKey[t.Key] = t
	}

	out := make([]Table, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		t, ok := byKey[k]
		if !ok {
			return nil, &UnknownTableError{Key: k, Available: Keys(tables)}
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out, nil
}

// Keys returns the keys of tables in order.
func Keys(tables []Table) []string {
	keys := make([]string, len(tables))
	for i, t := range tables {
		keys[i] = t.Key
	}
	return keys
}

// Counter reports the exact number of rows in a table.
type Counter interface {
	Count(ctx context.Context, table string) (int64, error)
}

// Count is the row count of one table. Rows is 0 when Err is set.
type Count struct {
	Table Table
	Rows  int64
	Err   error
}

// Counts queries all tables concurrently, at most limit at a time, and
// waits for every query. A failed count never cancels the others.
func Counts(ctx context.Context, c Counter, tables []Table, limit int) []Count {
	if limit <= 0 {
		limit = DefaultCountLimit
	}

	results := make([]Count, len(tables))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, t := range tables {
		g.Go(func() error {
			n, err := c.Count(ctx, t.Key)
			if err != nil {
				n = 0
			}
			results[i] = Count{Table: t, Rows: n, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
