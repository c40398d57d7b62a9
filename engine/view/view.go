package view

import (
	"sort"
	"sync"
	"sync/atomic"
)

// nextViewID hands out unique view identifiers.
var nextViewID atomic.Uint32

// View is a visibility scope within a command graph: a set of render bins
// keyed by bin number. Reconciliation ensures a bin exists for every bin
// number the view's compiled content references.
type View interface {
	// ID returns the view's unique identifier.
	//
	// Returns:
	//   - uint32: the identifier
	ID() uint32

	// Bin returns the bin with the given number, or nil if none exists.
	//
	// Parameters:
	//   - number: the bin number
	//
	// Returns:
	//   - *Bin: the bin, or nil
	Bin(number int32) *Bin

	// Bins returns all bins in ascending bin-number order.
	//
	// Returns:
	//   - []*Bin: the bins
	Bins() []*Bin

	// EnsureBin returns the bin with the given number, creating it with the
	// default sort policy for that number if missing: negative numbers sort
	// ascending, zero keeps arrival order, positive numbers sort descending.
	//
	// Parameters:
	//   - number: the bin number
	//
	// Returns:
	//   - *Bin: the existing or newly created bin
	EnsureBin(number int32) *Bin

	// AddBin registers an explicitly constructed bin, replacing any existing
	// bin with the same number.
	//
	// Parameters:
	//   - bin: the bin to register
	AddBin(bin *Bin)
}

// viewImpl is the implementation of the View interface.
type viewImpl struct {
	mu *sync.Mutex

	id   uint32
	bins map[int32]*Bin
}

var _ View = &viewImpl{}

// NewView creates an empty view.
//
// Returns:
//   - View: the new view
func NewView() View {
	return &viewImpl{
		mu:   &sync.Mutex{},
		id:   nextViewID.Add(1),
		bins: make(map[int32]*Bin),
	}
}

func (v *viewImpl) ID() uint32 {
	return v.id
}

func (v *viewImpl) Bin(number int32) *Bin {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bins[number]
}

func (v *viewImpl) Bins() []*Bin {
	v.mu.Lock()
	defer v.mu.Unlock()

	bins := make([]*Bin, 0, len(v.bins))
	for _, b := range v.bins {
		bins = append(bins, b)
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Number() < bins[j].Number() })
	return bins
}

func (v *viewImpl) EnsureBin(number int32) *Bin {
	v.mu.Lock()
	defer v.mu.Unlock()

	if b, ok := v.bins[number]; ok {
		return b
	}
	b := NewBin(number, DefaultSortOrder(number))
	v.bins[number] = b
	return b
}

func (v *viewImpl) AddBin(bin *Bin) {
	if bin == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bins[bin.Number()] = bin
}

// DefaultSortOrder maps a bin number to its default sort policy.
//
// Parameters:
//   - number: the bin number
//
// Returns:
//   - SortOrder: ascending for negative numbers, arrival order for zero,
//     descending for positive numbers
func DefaultSortOrder(number int32) SortOrder {
	switch {
	case number < 0:
		return SortOrderAscending
	case number == 0:
		return SortOrderNoSort
	default:
		return SortOrderDescending
	}
}
