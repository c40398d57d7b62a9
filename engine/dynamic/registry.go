package dynamic

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/strata-go/common"
	"github.com/Carmen-Shannon/strata-go/engine/device"
	"github.com/Carmen-Shannon/strata-go/engine/logging"
)

// stagingAlignment is the padding granularity between staged regions.
const stagingAlignment = 4

// FrameResources is the transfer-related portion of one buffered-frame slot:
// a reusable staging buffer with a persistent host mapping, a reusable
// transfer command buffer and completion semaphore, and a scratch copy-region
// list. Allocated lazily on first use and reused every frame thereafter; the
// staging buffer grows but never shrinks.
type FrameResources struct {
	// Staging is the host-visible transfer source buffer.
	Staging device.Buffer

	// TransferCommandBuffer records this slot's copy commands.
	TransferCommandBuffer device.CommandBuffer

	// TransferCompletedSemaphore is signaled by the transfer submission.
	TransferCompletedSemaphore device.Semaphore

	// CopyRegions is the per-frame scratch list of staged copy regions.
	CopyRegions []device.BufferCopy
}

// Destroy releases the slot's transfer resources.
func (fr *FrameResources) Destroy() {
	if fr.Staging != nil {
		fr.Staging.Destroy()
		fr.Staging = nil
	}
	if fr.TransferCompletedSemaphore != nil {
		fr.TransferCompletedSemaphore.Destroy()
		fr.TransferCompletedSemaphore = nil
	}
	fr.TransferCommandBuffer = nil
	fr.CopyRegions = nil
}

// bufferEntrySet holds a destination buffer's descriptors ordered by
// destination offset so copy regions stage deterministically and adjacent
// regions can coalesce.
type bufferEntrySet struct {
	offsets  []uint64
	byOffset map[uint64]*BufferInfo
}

func newBufferEntrySet() *bufferEntrySet {
	return &bufferEntrySet{byOffset: make(map[uint64]*BufferInfo)}
}

// insert adds or replaces the descriptor at its offset, returning the
// replaced descriptor if one existed.
func (s *bufferEntrySet) insert(bi *BufferInfo) *BufferInfo {
	prev, existed := s.byOffset[bi.Offset]
	s.byOffset[bi.Offset] = bi
	if existed {
		return prev
	}
	idx := sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] >= bi.Offset })
	s.offsets = append(s.offsets, 0)
	copy(s.offsets[idx+1:], s.offsets[idx:])
	s.offsets[idx] = bi.Offset
	return nil
}

// remove deletes the descriptor at the given offset.
func (s *bufferEntrySet) remove(offset uint64) {
	delete(s.byOffset, offset)
	idx := sort.Search(len(s.offsets), func(i int) bool { return s.offsets[i] >= offset })
	if idx < len(s.offsets) && s.offsets[idx] == offset {
		s.offsets = append(s.offsets[:idx], s.offsets[idx+1:]...)
	}
}

func (s *bufferEntrySet) empty() bool {
	return len(s.offsets) == 0
}

// Registry maps destination buffers to their pending dynamic regions and
// drives the per-frame transfer step. All mutation of the registry (Assign
// and Transfer) is serialized by an internal lock; multiple tasks sharing
// dynamic data therefore contend on it rather than racing. The mapped staging
// pointer inside a FrameResources slot is only ever touched by the single
// host thread driving that slot's transfer.
type Registry struct {
	mu sync.Mutex

	device        device.Device
	transferQueue device.Queue

	// buffers preserves registration order so staging layout and submission
	// order are deterministic frame over frame.
	buffers []device.Buffer
	entries map[device.Buffer]*bufferEntrySet

	totalSize    uint64
	totalRegions int
}

// NewRegistry creates a registry bound to a device and its transfer queue.
//
// Parameters:
//   - dev: the device owning the destination buffers (must not be nil)
//
// Returns:
//   - *Registry: the new registry
func NewRegistry(dev device.Device) *Registry {
	if dev == nil {
		panic("dynamic: NewRegistry requires a non-nil device")
	}
	return &Registry{
		device:        dev,
		transferQueue: dev.TransferQueue(),
		entries:       make(map[device.Buffer]*bufferEntrySet),
	}
}

// SetTransferQueue overrides the queue transfer submissions go to. Defaults
// to the device's transfer queue.
//
// Parameters:
//   - q: the transfer queue (ignored if nil)
func (r *Registry) SetTransferQueue(q device.Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q != nil {
		r.transferQueue = q
	}
}

// Empty reports whether the registry has no pending regions.
//
// Returns:
//   - bool: true if nothing is registered
func (r *Registry) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers) == 0
}

// TotalStagingSize returns the staging bytes required to upload every
// registered region with alignment padding, as computed by the last Assign.
//
// Returns:
//   - uint64: the total staging size in bytes
func (r *Registry) TotalStagingSize() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalSize
}

// TotalRegions returns the number of registered regions as computed by the
// last Assign.
//
// Returns:
//   - int: the region count
func (r *Registry) TotalRegions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalRegions
}

// Assign registers descriptors for dynamic upload. Each descriptor is
// inserted into its destination buffer's offset-ordered set; a descriptor at
// an already-registered offset replaces the previous one, releasing the
// registry's reference on it. The registry retains each inserted descriptor.
// After insertion the total staging size and region count are recomputed
// across the whole registry with 4-byte alignment padding between entries.
//
// Parameters:
//   - infos: the descriptors to register
func (r *Registry) Assign(infos []*BufferInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bi := range infos {
		set, ok := r.entries[bi.Buffer]
		if !ok {
			set = newBufferEntrySet()
			r.entries[bi.Buffer] = set
			r.buffers = append(r.buffers, bi.Buffer)
		}
		bi.Retain()
		if prev := set.insert(bi); prev != nil {
			prev.Release()
		}
	}

	r.recomputeTotals()
}

// recomputeTotals walks all buffers and offsets in order accumulating byte
// ranges with alignment padding. Caller holds r.mu.
func (r *Registry) recomputeTotals() {
	var offset uint64
	regions := 0
	for _, buf := range r.buffers {
		set := r.entries[buf]
		for _, off := range set.offsets {
			offset = common.Align(offset+set.byOffset[off].Range, stagingAlignment)
			regions++
		}
	}
	r.totalSize = offset
	r.totalRegions = regions
}

// Transfer stages every stale registered region into the slot's staging
// buffer, records one copy command per destination buffer, and submits the
// batch to the transfer queue signaling the slot's completion semaphore.
// Descriptors whose only remaining owner is the registry are pruned without a
// copy. Returns the transfer-completion semaphore when a submission occurred,
// or nil when there was nothing to copy (in which case no submission is made).
//
// Any error aborts immediately; commands already assembled for this frame are
// never submitted, so no partial application reaches the device.
//
// Parameters:
//   - fr: the frame slot's transfer resources (must not be nil)
//
// Returns:
//   - device.Semaphore: the transfer-completion semaphore, or nil if nothing copied
//   - error: an error from resource creation, recording, or submission
func (r *Registry) Transfer(fr *FrameResources) (device.Semaphore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buffers) == 0 {
		return nil, nil
	}

	logging.Debug("dynamic: transfer start", "buffers", len(r.buffers), "totalSize", r.totalSize, "totalRegions", r.totalRegions)

	if fr.TransferCommandBuffer == nil {
		cb, err := r.device.NewCommandBuffer(device.CommandBufferLevelPrimary)
		if err != nil {
			return nil, fmt.Errorf("dynamic: failed to allocate transfer command buffer: %w", err)
		}
		fr.TransferCommandBuffer = cb
	} else {
		if err := fr.TransferCommandBuffer.Reset(); err != nil {
			return nil, fmt.Errorf("dynamic: failed to reset transfer command buffer: %w", err)
		}
	}

	if fr.TransferCompletedSemaphore == nil {
		sem, err := r.device.NewSemaphore(device.StageTransfer)
		if err != nil {
			return nil, fmt.Errorf("dynamic: failed to create transfer semaphore: %w", err)
		}
		fr.TransferCompletedSemaphore = sem
	}

	// Monotonic staging growth: reallocate only when the requirement exceeds
	// the current capacity, never shrink.
	if fr.Staging == nil || fr.Staging.Size() < r.totalSize {
		if fr.Staging != nil {
			fr.Staging.Destroy()
			fr.Staging = nil
		}
		staging, err := r.device.NewStagingBuffer(r.totalSize)
		if err != nil {
			return nil, fmt.Errorf("dynamic: failed to allocate staging buffer: %w", err)
		}
		fr.Staging = staging
	}
	stagingBytes := fr.Staging.Bytes()
	if stagingBytes == nil {
		return nil, fmt.Errorf("dynamic: staging buffer has no host mapping")
	}

	if err := fr.TransferCommandBuffer.Begin(); err != nil {
		return nil, fmt.Errorf("dynamic: failed to begin transfer command buffer: %w", err)
	}

	deviceID := r.device.ID()
	fr.CopyRegions = fr.CopyRegions[:0]
	var stagingOffset uint64
	copied := 0

	remaining := r.buffers[:0]
	for _, buf := range r.buffers {
		set := r.entries[buf]
		regionStart := len(fr.CopyRegions)

		offsets := set.offsets
		for i := 0; i < len(offsets); {
			off := offsets[i]
			bi := set.byOffset[off]
			if bi.RefCount() == 1 {
				// Registry is the sole owner left; prune without copying.
				logging.Debug("dynamic: pruning sole-owner region", "offset", off, "range", bi.Range)
				bi.Release()
				set.remove(off)
				offsets = set.offsets
				continue
			}
			if bi.needsCopy(deviceID) {
				copy(stagingBytes[stagingOffset:stagingOffset+bi.Range], bi.Data.Bytes()[:bi.Range])
				fr.CopyRegions = append(fr.CopyRegions, device.BufferCopy{
					SrcOffset: stagingOffset,
					DstOffset: bi.Offset,
					Size:      bi.Range,
				})
				stagingOffset = common.Align(stagingOffset+bi.Range, stagingAlignment)
				copied++
			}
			i++
		}

		if n := len(fr.CopyRegions) - regionStart; n > 0 {
			if err := fr.TransferCommandBuffer.CopyBuffer(fr.Staging, buf, fr.CopyRegions[regionStart:]); err != nil {
				return nil, fmt.Errorf("dynamic: failed to record copy regions: %w", err)
			}
		}

		if set.empty() {
			delete(r.entries, buf)
		} else {
			remaining = append(remaining, buf)
		}
	}
	r.buffers = remaining
	r.recomputeTotals()

	if err := fr.TransferCommandBuffer.End(); err != nil {
		return nil, fmt.Errorf("dynamic: failed to end transfer command buffer: %w", err)
	}

	// Empty command buffer: nothing stale this frame, so skip the submission
	// and report no completion semaphore.
	if copied == 0 {
		logging.Debug("dynamic: nothing to transfer")
		return nil, nil
	}

	batch := device.SubmitBatch{
		CommandBuffers:   []device.CommandBuffer{fr.TransferCommandBuffer},
		SignalSemaphores: []device.Semaphore{fr.TransferCompletedSemaphore},
	}
	if err := r.transferQueue.Submit(batch, nil); err != nil {
		return nil, fmt.Errorf("dynamic: transfer submission failed: %w", err)
	}

	logging.Debug("dynamic: transfer submitted", "regions", copied, "stagedBytes", stagingOffset)
	return fr.TransferCompletedSemaphore, nil
}
