package dynamic

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/strata-go/engine/device"
)

// BufferInfo describes one dynamic region: a destination buffer, a byte
// offset/range within it, and the owning Data object whose bytes are uploaded
// there. Ownership is reference-counted: the creator holds one reference and
// the registry takes another on assignment. When every external owner has
// released its reference, the registry prunes the descriptor on the next
// transfer without copying.
type BufferInfo struct {
	// Buffer is the destination GPU buffer.
	Buffer device.Buffer

	// Offset is the destination byte offset within Buffer.
	Offset uint64

	// Range is the region length in bytes.
	Range uint64

	// Data owns the host bytes uploaded into the region.
	Data *Data

	refs atomic.Int32

	// copied records, per device ID, the Data modification count at the last
	// successful copy.
	copiedMu sync.Mutex
	copied   map[uint32]uint64
}

// NewBufferInfo creates a descriptor holding one reference on behalf of the
// caller.
//
// Parameters:
//   - buffer: the destination buffer (must not be nil)
//   - offset: the destination byte offset
//   - length: the region length in bytes
//   - data: the owning data object (must not be nil)
//
// Returns:
//   - *BufferInfo: the new descriptor
func NewBufferInfo(buffer device.Buffer, offset, length uint64, data *Data) *BufferInfo {
	if buffer == nil {
		panic("dynamic: NewBufferInfo requires a non-nil buffer")
	}
	if data == nil {
		panic("dynamic: NewBufferInfo requires non-nil data")
	}
	bi := &BufferInfo{
		Buffer: buffer,
		Offset: offset,
		Range:  length,
		Data:   data,
		copied: make(map[uint32]uint64),
	}
	bi.refs.Store(1)
	return bi
}

// Retain adds a reference.
func (bi *BufferInfo) Retain() {
	bi.refs.Add(1)
}

// Release drops a reference.
func (bi *BufferInfo) Release() {
	bi.refs.Add(-1)
}

// RefCount returns the current reference count. A count of exactly one while
// registered means the registry is the sole remaining owner, which is the
// deletion trigger during transfer.
//
// Returns:
//   - int32: the current reference count
func (bi *BufferInfo) RefCount() int32 {
	return bi.refs.Load()
}

// needsCopy reports whether the backing data changed since the last copy for
// the given device, and records the current count as copied when it has.
func (bi *BufferInfo) needsCopy(deviceID uint32) bool {
	mod := bi.Data.ModifiedCount()
	bi.copiedMu.Lock()
	defer bi.copiedMu.Unlock()
	if bi.copied[deviceID] == mod {
		return false
	}
	bi.copied[deviceID] = mod
	return true
}
