// Package csvenc renders records as CSV text.
//
// The header is the key sequence of the first record. Every later record is
// written positionally against that header; keys it lacks become empty
// fields and keys it adds are dropped. Strict mode rejects such records
// instead.
//
// Quoting follows the minimal RFC 4180 rule: a field is quoted only when it
// contains a comma, a double quote or a newline. Lines are separated by a
// single '\n' with no trailing newline.
package csvenc

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapexport/pkg/record"
)

// Encoder converts record batches to CSV text.
type Encoder struct {
	// Strict rejects records whose key set differs from the header.
	Strict bool
}

// ShapeError reports a record whose fields do not match the header.
type ShapeError struct {
	Row     int
	Missing []string
	Extra   []string
}

func (e *ShapeError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Extra, ", "))
	}
	return fmt.Sprintf("record %d does not match header: %s", e.Row, strings.Join(parts, "; "))
}

// Encode renders records as CSV text. An empty batch yields "".
func Encode(records []record.Record) string {
	out, _ := Encoder{}.Encode(records)
	return out
}

// Encode renders records as CSV text.
// The only error is a *ShapeError, and only in strict mode.
func (e Encoder) Encode(records []record.Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	header := Header(records)
	if e.Strict {
		if err := Validate(header, records); err != nil {
			return "", err
		}
	}

	var sb strings.Builder
	// Header keys are written as-is.
	writeLine(&sb, header, func(i int) string { return header[i] })
	for _, rec := range records {
		sb.WriteByte('\n')
		writeLine(&sb, header, func(i int) string {
			v, _ := rec.Get(header[i])
			return Field(v)
		})
	}
	return sb.String(), nil
}

func writeLine(sb *strings.Builder, header []string, field func(int) string) {
	for i := range header {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(field(i))
	}
}

// Header returns the column sequence for a batch: the keys of its first record.
func Header(records []record.Record) []string {
	if len(records) == 0 {
		return nil
	}
	return records[0].Keys()
}

// Validate checks that every record carries exactly the header keys.
func Validate(header []string, records []record.Record) error {
	want := make(map[string]struct{}, len(header))
	for _, h := range header {
		want[h] = struct{}{}
	}

	for i, rec := range records {
		var missing, extra []string
		for _, h := range header {
			if _, ok := rec.Get(h); !ok {
				missing = append(missing, h)
			}
		}
		for _, k := range rec.Keys() {
			if _, ok := want[k]; !ok {
				extra = append(extra, k)
			}
		}
		if len(missing) > 0 || len(extra) > 0 {
			return &ShapeError{Row: i, Missing: missing, Extra: extra}
		}
	}
	return nil
}

// Field renders a single value as an escaped CSV field.
// Null renders as an empty field; nested structures as their JSON text.
func Field(v record.Value) string {
	if v.IsNull() {
		return ""
	}
	return Escape(v.String())
}

// Escape quotes s when it contains a comma, a double quote or a newline,
// doubling any embedded quotes.
func Escape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
