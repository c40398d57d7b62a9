package view

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSortOrder(t *testing.T) {
	tests := []struct {
		name   string
		number int32
		want   SortOrder
	}{
		{name: "negative sorts ascending", number: -10, want: SortOrderAscending},
		{name: "minus one sorts ascending", number: -1, want: SortOrderAscending},
		{name: "zero keeps arrival order", number: 0, want: SortOrderNoSort},
		{name: "one sorts descending", number: 1, want: SortOrderDescending},
		{name: "positive sorts descending", number: 64, want: SortOrderDescending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultSortOrder(tt.number))
		})
	}
}

func TestBinDrainAscending(t *testing.T) {
	b := NewBin(-1, SortOrderAscending)
	b.Add(3.5, "far")
	b.Add(0.5, "near")
	b.Add(2.0, "mid")

	entries := b.Drain()

	require.Len(t, entries, 3)
	assert.Equal(t, []any{"near", "mid", "far"}, elements(entries))
	assert.Zero(t, b.Len(), "drain clears the bin")
}

func TestBinDrainDescending(t *testing.T) {
	b := NewBin(1, SortOrderDescending)
	b.Add(3.5, "far")
	b.Add(0.5, "near")
	b.Add(2.0, "mid")

	assert.Equal(t, []any{"far", "mid", "near"}, elements(b.Drain()))
}

func TestBinDrainNoSortKeepsArrivalOrder(t *testing.T) {
	b := NewBin(0, SortOrderNoSort)
	b.Add(3.5, "first")
	b.Add(0.5, "second")
	b.Add(2.0, "third")

	assert.Equal(t, []any{"first", "second", "third"}, elements(b.Drain()))
}

func TestBinDrainNaNKeysSortLast(t *testing.T) {
	nan := math32.NaN()

	asc := NewBin(-1, SortOrderAscending)
	asc.Add(nan, "nan")
	asc.Add(1.0, "one")
	asc.Add(2.0, "two")
	assert.Equal(t, []any{"one", "two", "nan"}, elements(asc.Drain()))

	desc := NewBin(1, SortOrderDescending)
	desc.Add(1.0, "one")
	desc.Add(nan, "nan")
	desc.Add(2.0, "two")
	assert.Equal(t, []any{"nan", "two", "one"}, elements(desc.Drain()))
}

func TestBinDrainStableForEqualKeys(t *testing.T) {
	b := NewBin(-1, SortOrderAscending)
	b.Add(1.0, "a")
	b.Add(1.0, "b")
	b.Add(0.5, "c")
	b.Add(1.0, "d")

	assert.Equal(t, []any{"c", "a", "b", "d"}, elements(b.Drain()))
}

func TestViewEnsureBin(t *testing.T) {
	v := NewView()

	neg := v.EnsureBin(-2)
	zero := v.EnsureBin(0)
	pos := v.EnsureBin(5)

	assert.Equal(t, SortOrderAscending, neg.Order())
	assert.Equal(t, SortOrderNoSort, zero.Order())
	assert.Equal(t, SortOrderDescending, pos.Order())

	// Ensuring again returns the same bin instead of recreating it.
	assert.Same(t, neg, v.EnsureBin(-2))
	assert.Same(t, neg, v.Bin(-2))
	assert.Nil(t, v.Bin(99))
}

func TestViewBinsOrderedByNumber(t *testing.T) {
	v := NewView()
	v.EnsureBin(3)
	v.EnsureBin(-1)
	v.EnsureBin(0)

	bins := v.Bins()

	require.Len(t, bins, 3)
	assert.Equal(t, int32(-1), bins[0].Number())
	assert.Equal(t, int32(0), bins[1].Number())
	assert.Equal(t, int32(3), bins[2].Number())
}

func TestViewAddBinReplaces(t *testing.T) {
	v := NewView()
	v.EnsureBin(1)

	custom := NewBin(1, SortOrderNoSort)
	v.AddBin(custom)

	assert.Same(t, custom, v.Bin(1))
	v.AddBin(nil)
	assert.Same(t, custom, v.Bin(1))
}

func TestViewIDsAreUnique(t *testing.T) {
	a := NewView()
	b := NewView()
	assert.NotEqual(t, a.ID(), b.ID())
}

func elements(entries []BinEntry) []any {
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Element)
	}
	return out
}
