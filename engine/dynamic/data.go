// Package dynamic tracks host-side data objects destined for GPU buffers and
// stages their stale bytes into per-frame transfer submissions. Registration
// happens at scene-compile time; the per-frame transfer walks the registered
// regions, prunes descriptors nobody external owns anymore, and copies only
// regions whose backing data changed since the last copy for the device.
package dynamic

import (
	"sync"
	"sync/atomic"
)

// Data is a host-side data object with a modification counter. The counter is
// compared against the per-device count recorded at the last successful copy
// to decide whether a region is stale.
type Data struct {
	mu    sync.Mutex
	bytes []byte
	mod   atomic.Uint64
}

// NewData creates a Data object holding the given bytes. The initial state
// counts as one modification so a freshly registered region is copied on the
// first transfer.
//
// Parameters:
//   - b: the initial contents (retained, not copied)
//
// Returns:
//   - *Data: the new data object
func NewData(b []byte) *Data {
	d := &Data{bytes: b}
	d.mod.Store(1)
	return d
}

// Bytes returns the current contents.
//
// Returns:
//   - []byte: the data bytes
func (d *Data) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytes
}

// Set replaces the contents and bumps the modification counter.
//
// Parameters:
//   - b: the new contents (retained, not copied)
func (d *Data) Set(b []byte) {
	d.mu.Lock()
	d.bytes = b
	d.mu.Unlock()
	d.mod.Add(1)
}

// Dirty bumps the modification counter without replacing the slice, for
// callers that mutate the backing bytes in place.
func (d *Data) Dirty() {
	d.mod.Add(1)
}

// ModifiedCount returns the current modification counter.
//
// Returns:
//   - uint64: the number of modifications so far
func (d *Data) ModifiedCount() uint64 {
	return d.mod.Load()
}
