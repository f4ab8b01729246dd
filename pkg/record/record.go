package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Record is one exported row: an ordered mapping from field name to Value.
// The zero Record is empty and ready to use.
type Record struct {
	keys   []string
	values map[string]Value
}

// New returns an empty record with room for n fields.
func New(n int) Record {
	return Record{
		keys:   make([]string, 0, n),
		values: make(map[string]Value, n),
	}
}

// Set stores v under key. A new key is appended to the iteration order;
// an existing key keeps its position.
func (r *Record) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key and whether it is present.
func (r Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in iteration order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.keys) }

// MarshalJSON encodes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FromColumns builds a record from a scanned SQL row.
// cols and values must have the same length.
func FromColumns(cols []string, values []any) Record {
	r := New(len(cols))
	for i, c := range cols {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Set(c, FromAny(v))
	}
	return r
}

// ParseJSONArray decodes a JSON array of objects into records, keeping each
// object's key order.
func ParseJSONArray(data []byte) ([]Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON payload")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("expected JSON array, got %s", root.Type)
	}

	var (
		records []Record
		elemErr error
	)
	idx := 0
	root.ForEach(func(_, elem gjson.Result) bool {
		if !elem.IsObject() {
			elemErr = fmt.Errorf("element %d: expected JSON object, got %s", idx, elem.Type)
			return false
		}
		records = append(records, FromJSONObject(elem))
		idx++
		return true
	})
	if elemErr != nil {
		return nil, elemErr
	}
	return records, nil
}

// FromJSONObject converts a parsed JSON object into a record.
func FromJSONObject(obj gjson.Result) Record {
	var r Record
	obj.ForEach(func(key, val gjson.Result) bool {
		r.Set(key.String(), fromJSON(val))
		return true
	})
	return r
}

func fromJSON(v gjson.Result) Value {
	switch v.Type {
	case gjson.Null:
		return Null()
	case gjson.True:
		return Bool(true)
	case gjson.False:
		return Bool(false)
	case gjson.Number:
		return NumberLiteral(v.Raw)
	case gjson.String:
		return Text(v.Str)
	default:
		return JSON(v.Raw)
	}
}
