// Package record provides the row model shared by sources and encoders.
//
// A Record is an ordered mapping from column name to Value. Values are a
// small tagged variant so encoders never need to type-switch on whatever a
// database driver happened to return.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindJSON
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Value is a single field value.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	s    string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns a numeric value from an integer.
func Int(i int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(i, 10)} }

// Uint returns a numeric value from an unsigned integer.
func Uint(u uint64) Value { return Value{kind: KindNumber, s: strconv.FormatUint(u, 10)} }

// Float returns a numeric value from a float.
func Float(f float64) Value { return Value{kind: KindNumber, s: formatFloat(f)} }

// NumberLiteral returns a numeric value from a JSON number literal.
// Integral literals are kept verbatim; anything with a fraction or exponent
// is normalized to its shortest decimal form.
func NumberLiteral(raw string) Value {
	raw = strings.TrimSpace(raw)
	if !strings.ContainsAny(raw, ".eE") {
		return Value{kind: KindNumber, s: raw}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Value{kind: KindNumber, s: raw}
	}
	return Float(f)
}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// JSON returns a nested structure value from raw JSON text.
// The text is compacted when it is valid JSON.
func JSON(raw string) Value {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err == nil {
		raw = buf.String()
	}
	return Value{kind: KindJSON, s: raw}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload and whether v is a boolean.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsFloat returns the numeric payload and whether v is a parseable number.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// String returns the natural text representation of v.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// MarshalJSON encodes v as its JSON equivalent.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	case KindNumber, KindJSON:
		return []byte(v.s), nil
	default:
		return json.Marshal(v.s)
	}
}

// FromAny converts a value produced by a database driver into a Value.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Uint(uint64(x))
	case uint8:
		return Uint(uint64(x))
	case uint16:
		return Uint(uint64(x))
	case uint32:
		return Uint(uint64(x))
	case uint64:
		return Uint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return Text(x)
	case []byte:
		return Text(string(x))
	case json.RawMessage:
		return JSON(string(x))
	case time.Time:
		return Text(x.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return Text(x.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Null()
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return Text(fmt.Sprintf("%v", v))
		}
		return JSON(string(b))
	default:
		return Text(fmt.Sprintf("%v", v))
	}
}

// formatFloat renders f in the shortest form that round-trips, switching to
// exponent notation only for very large or very small magnitudes.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if f == 0 {
		// Covers negative zero.
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		// strconv pads the exponent to two digits: 1e-07 becomes 1e-7.
		s := strconv.FormatFloat(f, 'e', -1, 64)
		i := strings.IndexByte(s, 'e') + 2
		exp := strings.TrimLeft(s[i:], "0")
		return s[:i] + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
