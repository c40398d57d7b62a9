package device

import (
	"sync"
	"time"
)

// FenceSync is the low-level wait/reset primitive a backend supplies for a
// fence. The dependency-tracking layer on top of it is backend-independent.
type FenceSync interface {
	// Wait blocks until the underlying GPU fence signals or the timeout elapses.
	//
	// Parameters:
	//   - timeout: the maximum time to wait; <= 0 waits indefinitely
	//
	// Returns:
	//   - error: ErrTimeout if the bound elapsed, or a device error
	Wait(timeout time.Duration) error

	// Reset returns the underlying fence to the unsignaled state.
	//
	// Returns:
	//   - error: an error if the fence could not be reset
	Reset() error

	// Destroy releases the underlying fence.
	Destroy()
}

// trackedFence implements Fence by pairing a backend FenceSync with host-side
// dependency lists.
type trackedFence struct {
	mu   sync.Mutex
	sync FenceSync

	dependentCommandBuffers []CommandBuffer
	dependentSemaphores     []Semaphore
}

var _ Fence = &trackedFence{}

// NewTrackedFence wraps a backend fence primitive with dependency tracking.
// Backends call this from their Device.NewFence implementations; tests can
// pair it with a fake FenceSync.
//
// Parameters:
//   - sync: the backend wait/reset primitive (must not be nil)
//
// Returns:
//   - Fence: the dependency-tracking fence
func NewTrackedFence(sync FenceSync) Fence {
	if sync == nil {
		panic("device: NewTrackedFence requires a non-nil FenceSync")
	}
	return &trackedFence{sync: sync}
}

func (f *trackedFence) Wait(timeout time.Duration) error {
	return f.sync.Wait(timeout)
}

func (f *trackedFence) HasDependencies() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dependentCommandBuffers) > 0 || len(f.dependentSemaphores) > 0
}

func (f *trackedFence) ResetFenceAndDependencies() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dependentCommandBuffers = f.dependentCommandBuffers[:0]
	f.dependentSemaphores = f.dependentSemaphores[:0]
	return f.sync.Reset()
}

func (f *trackedFence) DependentCommandBuffers() []CommandBuffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dependentCommandBuffers
}

func (f *trackedFence) AddDependentCommandBuffers(cbs ...CommandBuffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dependentCommandBuffers = append(f.dependentCommandBuffers, cbs...)
}

func (f *trackedFence) DependentSemaphores() []Semaphore {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dependentSemaphores
}

func (f *trackedFence) SetDependentSemaphores(sems []Semaphore) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dependentSemaphores = append(f.dependentSemaphores[:0], sems...)
}

func (f *trackedFence) Destroy() {
	f.sync.Destroy()
}
