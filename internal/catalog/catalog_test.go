package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	tables := Default()
	require.Len(t, tables, 13)
	assert.Equal(t, "contacts", tables[0].Key)
	assert.Equal(t, "profiles", tables[12].Key)
	assert.Equal(t, tables, Normalize(tables), "default catalog is already normalized")
}

func TestNormalize(t *testing.T) {
	got := Normalize([]Table{
		{Key: "deal_activities"},
		{Key: " teams ", Label: "Squads"},
		{Key: "teams", Label: "dup"},
		{Key: ""},
		{Key: "crm.tag_definitions"},
	})

	assert.Equal(t, []Table{
		{Key: "deal_activities", Label: "Deal Activities"},
		{Key: "teams", Label: "Squads"},
		{Key: "crm.tag_definitions", Label: "Tag Definitions"},
	}, got)
}

func TestLookup(t *testing.T) {
	tables := Default()

	got, err := Lookup(tables, []string{"teams", "contacts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"teams", "contacts"}, Keys(got))

	got, err = Lookup(tables, []string{"contacts", "teams", "contacts", "teams"})
	require.NoError(t, err)
	assert.Equal(t, []string{"contacts", "teams"}, Keys(got), "repeated keys collapse")

	_, err = Lookup(tables, []string{"contacts", "invoices"})
	var unknown *UnknownTableError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "invoices", unknown.Key)
	assert.Contains(t, err.Error(), "Available tables: appointments, contacts")
}

type fakeCounter struct {
	counts   map[string]int64
	fail     map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeCounter) Count(_ context.Context, table string) (int64, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	time.Sleep(f.delay)
	if err := f.fail[table]; err != nil {
		return 99, err
	}
	return f.counts[table], nil
}

func TestCounts(t *testing.T) {
	c := &fakeCounter{
		counts: map[string]int64{"contacts": 12, "deals": 3},
		fail:   map[string]error{"messages": errors.New("permission denied")},
	}
	tables, err := Lookup(Default(), []string{"contacts", "messages", "deals", "teams"})
	require.NoError(t, err)

	got := Counts(context.Background(), c, tables, 0)
	require.Len(t, got, 4)

	assert.Equal(t, "contacts", got[0].Table.Key)
	assert.Equal(t, int64(12), got[0].Rows)
	assert.NoError(t, got[0].Err)

	assert.Equal(t, int64(0), got[1].Rows, "failed count is reported as zero")
	assert.EqualError(t, got[1].Err, "permission denied")

	assert.Equal(t, int64(3), got[2].Rows)
	assert.Equal(t, int64(0), got[3].Rows)
	assert.NoError(t, got[3].Err)
}

func TestCounts_RespectsLimit(t *testing.T) {
	c := &fakeCounter{delay: 20 * time.Millisecond}
	got := Counts(context.Background(), c, Default(), 3)

	assert.Len(t, got, 13)
	assert.LessOrEqual(t, c.peak.Load(), int32(3))
	assert.Greater(t, c.peak.Load(), int32(1), "counts run concurrently")
}

func TestSelection(t *testing.T) {
	tables := Default()[:3]
	s := NewSelection(tables)

	s.Toggle("messages")
	s.Toggle("contacts")
	s.Toggle("invoices")
	assert.Equal(t, []string{"messages", "contacts"}, s.Keys())
	assert.True(t, s.IsSelected("messages"))
	assert.False(t, s.AllSelected())

	s.Toggle("messages")
	assert.Equal(t, []string{"contacts"}, s.Keys())

	s.ToggleAll()
	assert.True(t, s.AllSelected())
	assert.Equal(t, []string{"contacts", "conversations", "messages"}, s.Keys())

	s.ToggleAll()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Keys())
}

func TestSelection_KeysIsCopy(t *testing.T) {
	s := NewSelection(Default())
	s.Toggle("teams")
	keys := s.Keys()
	keys[0] = "mutated"
	assert.Equal(t, []string{"teams"}, s.Keys())
}

func TestSelection_Empty(t *testing.T) {
	s := NewSelection(nil)
	assert.False(t, s.AllSelected())
	s.ToggleAll()
	assert.Equal(t, 0, s.Len())
}
