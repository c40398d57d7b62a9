package task

import (
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/strata-go/engine/device"
)

// FrameStamp identifies one logical frame passed down through record.
type FrameStamp struct {
	// FrameCount is the number of frames rendered so far.
	FrameCount uint64

	// Time is the wall-clock time the frame began.
	Time time.Time
}

// RecordedCommandBuffers collects the command buffers produced by command
// graph traversal in the current frame, grouped by submit order. Traversals
// may record from multiple goroutines, so access is mutex-guarded.
type RecordedCommandBuffers struct {
	mu     sync.Mutex
	groups map[int][]device.CommandBuffer
}

// NewRecordedCommandBuffers creates an empty container.
//
// Returns:
//   - *RecordedCommandBuffers: the new container
func NewRecordedCommandBuffers() *RecordedCommandBuffers {
	return &RecordedCommandBuffers{groups: make(map[int][]device.CommandBuffer)}
}

// Add appends a command buffer under the given submit order. Lower orders are
// submitted first.
//
// Parameters:
//   - submitOrder: the ordering key
//   - cb: the recorded command buffer
func (r *RecordedCommandBuffers) Add(submitOrder int, cb device.CommandBuffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[submitOrder] = append(r.groups[submitOrder], cb)
}

// Empty reports whether nothing was recorded.
//
// Returns:
//   - bool: true if no command buffers were added
func (r *RecordedCommandBuffers) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups) == 0
}

// Clear removes all recorded command buffers.
func (r *RecordedCommandBuffers) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = make(map[int][]device.CommandBuffer)
}

// Buffers returns the recorded command buffers flattened in ascending submit
// order.
//
// Returns:
//   - []device.CommandBuffer: the ordered command buffers
func (r *RecordedCommandBuffers) Buffers() []device.CommandBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.groups) == 0 {
		return nil
	}
	orders := make([]int, 0, len(r.groups))
	for order := range r.groups {
		orders = append(orders, order)
	}
	sort.Ints(orders)

	var buffers []device.CommandBuffer
	for _, order := range orders {
		buffers = append(buffers, r.groups[order]...)
	}
	return buffers
}
