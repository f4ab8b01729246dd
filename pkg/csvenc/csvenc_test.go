package csvenc

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapexport/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, payload string) []record.Record {
	t.Helper()
	recs, err := record.ParseJSONArray([]byte(payload))
	require.NoError(t, err)
	return recs
}

func TestEncode_Empty(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "", Encode([]record.Record{}))
}

func TestEncode_Examples(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected string
	}{
		{
			name:     "comma quoted and null empty",
			payload:  `[{"id":1,"name":"Ana, Silva"},{"id":2,"name":null}]`,
			expected: "id,name\n1,\"Ana, Silva\"\n2,",
		},
		{
			name:     "nested array as json",
			payload:  `[{"tags":["a","b"]}]`,
			expected: "tags\n\"[\"\"a\"\",\"\"b\"\"]\"",
		},
		{
			name:     "newline quoted",
			payload:  `[{"note":"line1\nline2"}]`,
			expected: "note\n\"line1\nline2\"",
		},
		{
			name:     "quote doubled",
			payload:  `[{"q":"say \"hi\""}]`,
			expected: "q\n\"say \"\"hi\"\"\"",
		},
		{
			name:     "booleans and numbers",
			payload:  `[{"active":true,"score":1.5,"n":10}]`,
			expected: "active,score,n\ntrue,1.5,10",
		},
		{
			name:     "carriage return and spaces not quoted",
			payload:  `[{"a":" x\ry "}]`,
			expected: "a\n x\ry ",
		},
		{
			name:     "object value",
			payload:  `[{"meta":{"k":"v"}}]`,
			expected: "meta\n\"{\"\"k\"\":\"\"v\"\"}\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Encode(mustParse(t, tt.payload)))
		})
	}
}

func TestEncode_HeaderFromFirstRecord(t *testing.T) {
	recs := mustParse(t, `[{"b":1,"a":2},{"a":3,"b":4,"c":5},{"a":6}]`)

	out := Encode(recs)
	assert.Equal(t, "b,a\n1,2\n4,3\n,6", out)
}

func TestEncode_HeaderKeysUnquoted(t *testing.T) {
	var rec record.Record
	rec.Set("a,b", record.Int(1))
	rec.Set(`say "hi"`, record.Text("x,y"))

	assert.Equal(t, "a,b,say \"hi\"\n1,\"x,y\"", Encode([]record.Record{rec}))
}

func TestEncode_LineCount(t *testing.T) {
	for _, n := range []int{1, 2, 10} {
		recs := make([]record.Record, n)
		for i := range recs {
			recs[i].Set("id", record.Int(int64(i)))
			recs[i].Set("note", record.Text("a\nb"))
		}
		out := Encode(recs)
		assert.False(t, strings.HasSuffix(out, "\n"), "no trailing newline")

		parsed, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		require.NoError(t, err)
		assert.Len(t, parsed, n+1, "records plus header")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	recs := mustParse(t, `[
		{"id":1,"name":"Ana","city":"Lisbon","nick":null},
		{"id":2,"name":"Bruno","city":"Porto","nick":"B"}
	]`)

	out := Encode(recs)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "city", "nick"}, rows[0])
	assert.Equal(t, []string{"1", "Ana", "Lisbon", ""}, rows[1])
	assert.Equal(t, []string{"2", "Bruno", "Porto", "B"}, rows[2])

	// Re-encoding the parsed rows reproduces the document.
	var again []record.Record
	for _, row := range rows[1:] {
		var r record.Record
		for i, h := range rows[0] {
			r.Set(h, record.Text(row[i]))
		}
		again = append(again, r)
	}
	assert.Equal(t, out, Encode(again))
}

func TestEncode_NullEverywhere(t *testing.T) {
	recs := mustParse(t, `[{"a":null,"b":1},{"a":2,"b":null},{"a":null,"b":null}]`)
	assert.Equal(t, "a,b\n,1\n2,\n,", Encode(recs))
}

func TestEncoder_Strict(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		missing []string
		extra   []string
		row     int
	}{
		{
			name:    "uniform",
			payload: `[{"a":1,"b":2},{"b":3,"a":4}]`,
		},
		{
			name:    "missing field",
			payload: `[{"a":1,"b":2},{"a":4}]`,
			wantErr: true,
			row:     1,
			missing: []string{"b"},
		},
		{
			name:    "extra field",
			payload: `[{"a":1},{"a":2},{"a":4,"z":0}]`,
			wantErr: true,
			row:     2,
			extra:   []string{"z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encoder{Strict: true}.Encode(mustParse(t, tt.payload))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.NotEmpty(t, out)
				return
			}

			var shapeErr *ShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, tt.row, shapeErr.Row)
			assert.Equal(t, tt.missing, shapeErr.Missing)
			assert.Equal(t, tt.extra, shapeErr.Extra)
			assert.Empty(t, out)
		})
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"a,b", `"a,b"`},
		{`a"b`, `"a""b"`},
		{"a\nb", "\"a\nb\""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), "Escape(%q)", tt.in)
	}
}

func TestField(t *testing.T) {
	assert.Equal(t, "", Field(record.Null()))
	assert.Equal(t, "", Field(record.Text("")))
	assert.Equal(t, "false", Field(record.Bool(false)))
	assert.Equal(t, `"[1,2]"`, Field(record.JSON("[1, 2]")))
}
