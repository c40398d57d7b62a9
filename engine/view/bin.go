// Package view groups draw submissions into render bins with configurable
// sort policies. A command graph records the contents of each bin in bin-number
// order; within a bin entries are ordered by the bin's sort policy.
package view

import (
	"sort"
	"sync"

	"github.com/chewxy/math32"
)

// SortOrder controls how entries within a bin are ordered before recording.
type SortOrder int

const (
	// SortOrderAscending orders entries by increasing sort key.
	SortOrderAscending SortOrder = iota
	// SortOrderNoSort keeps entries in arrival order.
	SortOrderNoSort
	// SortOrderDescending orders entries by decreasing sort key.
	SortOrderDescending
)

// BinEntry is one draw submission queued into a bin: a sort key (typically
// eye-space depth) and the opaque element to record.
type BinEntry struct {
	Key     float32
	Element any
}

// Bin is an ordered grouping of draw submissions. Entries accumulate during
// traversal and are drained in sorted order each frame.
type Bin struct {
	mu *sync.Mutex

	number  int32
	order   SortOrder
	entries []BinEntry
}

// NewBin creates a bin with the given number and sort policy.
//
// Parameters:
//   - number: the bin number, used to order bins within a view
//   - order: the sort policy applied to entries
//
// Returns:
//   - *Bin: the new bin
func NewBin(number int32, order SortOrder) *Bin {
	return &Bin{
		mu:     &sync.Mutex{},
		number: number,
		order:  order,
	}
}

// Number returns the bin number.
//
// Returns:
//   - int32: the bin number
func (b *Bin) Number() int32 {
	return b.number
}

// Order returns the bin's sort policy.
//
// Returns:
//   - SortOrder: the policy
func (b *Bin) Order() SortOrder {
	return b.order
}

// Add queues an element with the given sort key.
//
// Parameters:
//   - key: the sort key
//   - element: the element to record later
func (b *Bin) Add(key float32, element any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, BinEntry{Key: key, Element: element})
}

// Len returns the number of queued entries.
//
// Returns:
//   - int: the entry count
func (b *Bin) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Drain sorts the queued entries by the bin's policy, clears the bin, and
// returns them. NaN keys are treated as greater than any other key so they
// always sort last under ascending order and first under descending order,
// keeping the comparison a strict weak ordering.
//
// Returns:
//   - []BinEntry: the entries in recording order
func (b *Bin) Drain() []BinEntry {
	b.mu.Lock()
	entries := b.entries
	b.entries = nil
	b.mu.Unlock()

	switch b.order {
	case SortOrderAscending:
		sort.SliceStable(entries, func(i, j int) bool {
			return keyLess(entries[i].Key, entries[j].Key)
		})
	case SortOrderDescending:
		sort.SliceStable(entries, func(i, j int) bool {
			return keyLess(entries[j].Key, entries[i].Key)
		})
	}
	return entries
}

// keyLess compares sort keys with NaN ordered after every real number.
func keyLess(a, b float32) bool {
	if math32.IsNaN(a) {
		return false
	}
	if math32.IsNaN(b) {
		return true
	}
	return a < b
}
