// Package task implements the per-frame record-and-submit pipeline: a ring of
// reusable frame slots, the sequencer that maps logical frames onto them, and
// the three-phase task (start, record, finish) that coordinates scene-graph
// recording, dynamic-data transfer, and the final queue submission under
// multi-buffered synchronization.
package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/strata-go/common"
	"github.com/Carmen-Shannon/strata-go/engine/device"
	"github.com/Carmen-Shannon/strata-go/engine/dynamic"
	"github.com/Carmen-Shannon/strata-go/engine/logging"
	"github.com/Carmen-Shannon/strata-go/engine/pager"
)

// idleFrameDelay is how long finish yields the host thread when a frame
// recorded no command buffers, instead of submitting empty work.
const idleFrameDelay = 16 * time.Millisecond

// CommandGraph is a scene traversal unit: recording walks its subgraph and
// appends finished command buffers to the container. Failures surface through
// the subsequent submission path rather than a return value.
type CommandGraph interface {
	// Record traverses the graph for one frame.
	//
	// Parameters:
	//   - recorded: the container receiving finished command buffers
	//   - stamp: the frame being recorded
	//   - p: the paged-data loader, or nil when paging is disabled
	Record(recorded *RecordedCommandBuffers, stamp FrameStamp, p *pager.Pager)

	// MaxSlot returns the highest render-state binding slot the graph uses.
	//
	// Returns:
	//   - uint32: the current slot ceiling
	MaxSlot() uint32

	// SetMaxSlot raises the graph's binding-slot ceiling. Reconciliation only
	// ever raises it; implementations may ignore lower values.
	//
	// Parameters:
	//   - slot: the new ceiling
	SetMaxSlot(slot uint32)
}

// PresentationTarget is the per-window surface the task consults when
// assembling wait semaphores: the currently acquired image index and that
// image's availability semaphore. A target whose image index is out of range
// has nothing to wait on this frame and is skipped.
type PresentationTarget interface {
	// ImageIndex returns the currently acquired swap image index.
	//
	// Returns:
	//   - int: the image index; out of [0, FrameCount) means none acquired
	ImageIndex() int

	// FrameCount returns the number of swap images.
	//
	// Returns:
	//   - int: the image count
	FrameCount() int

	// ImageAvailableSemaphore returns the semaphore signaled when the given
	// image becomes available.
	//
	// Parameters:
	//   - imageIndex: the swap image index
	//
	// Returns:
	//   - device.Semaphore: the image-available semaphore, or nil
	ImageAvailableSemaphore(imageIndex int) device.Semaphore
}

// frameSlot is one element of the N-deep ring of reusable per-frame
// resources: the fence bounding reuse of the slot plus the transfer-side
// resources the dynamic-data registry fills each frame.
type frameSlot struct {
	fence    device.Fence
	transfer dynamic.FrameResources
}

// Task drives one record-and-submit pipeline. A single host thread advances
// and submits frames; GPU execution is asynchronous and tracked through the
// slot fences. Multiple tasks may run on independent threads and share a
// dynamic-data registry, whose own lock serializes registry mutation.
type Task interface {
	// Advance moves the logical frame forward one slot. Must be called before
	// each Submit.
	Advance()

	// Index resolves the physical slot used rel frames ago; see Sequencer.Index.
	//
	// Parameters:
	//   - rel: how many frames in the past to resolve
	//
	// Returns:
	//   - uint32: the slot index, or the buffered-frame count as the sentinel
	Index(rel uint32) uint32

	// Fence returns the fence for the frame rel frames ago: Fence(0) is the
	// current frame's fence, Fence(1) the previous frame's, and so on.
	//
	// Parameters:
	//   - rel: how many frames in the past to resolve
	//
	// Returns:
	//   - device.Fence: the fence, or nil if no such frame exists yet
	Fence(rel uint32) device.Fence

	// Submit runs one frame through the three phases: wait for the slot's
	// fence (backpressure bounding frames in flight), record the command
	// graphs and transfer stale dynamic data, then submit one batched command
	// to the main queue guarded by the slot's fence. An idle frame (nothing
	// recorded) sleeps briefly and returns nil without submitting.
	//
	// Parameters:
	//   - stamp: the frame being submitted
	//
	// Returns:
	//   - error: the underlying device error; the frame is abandoned for this
	//     cycle and the caller may retry on the next frame
	Submit(stamp FrameStamp) error

	// BufferedFrames returns the frames-in-flight depth N.
	//
	// Returns:
	//   - uint32: the buffered-frame count
	BufferedFrames() uint32

	// Registry returns the task's dynamic-data registry.
	//
	// Returns:
	//   - *dynamic.Registry: the registry
	Registry() *dynamic.Registry

	// AssignDynamicBufferInfos registers newly compiled dynamic descriptors
	// with the task's registry.
	//
	// Parameters:
	//   - infos: the descriptors to register
	AssignDynamicBufferInfos(infos []*dynamic.BufferInfo)

	// CommandGraphs returns the registered scene traversal units.
	//
	// Returns:
	//   - []CommandGraph: the command graphs
	CommandGraphs() []CommandGraph

	// AddCommandGraphs registers additional scene traversal units.
	//
	// Parameters:
	//   - graphs: the command graphs to add
	AddCommandGraphs(graphs ...CommandGraph)

	// Windows returns the registered presentation targets.
	//
	// Returns:
	//   - []PresentationTarget: the targets
	Windows() []PresentationTarget

	// AddWindows registers presentation targets whose image-available
	// semaphores join the final submission's wait set.
	//
	// Parameters:
	//   - targets: the targets to add
	AddWindows(targets ...PresentationTarget)

	// SetWaitSemaphores replaces the externally configured wait-semaphore set
	// attached to every final submission.
	//
	// Parameters:
	//   - sems: the semaphores to wait on
	SetWaitSemaphores(sems []device.Semaphore)

	// SetSignalSemaphores replaces the externally configured signal-semaphore
	// set attached to every final submission.
	//
	// Parameters:
	//   - sems: the semaphores to signal
	SetSignalSemaphores(sems []device.Semaphore)

	// Pager returns the task's paged-data loader, or nil.
	//
	// Returns:
	//   - *pager.Pager: the pager
	Pager() *pager.Pager

	// SetPager assigns the paged-data loader passed to Record.
	//
	// Parameters:
	//   - p: the pager (may be nil)
	SetPager(p *pager.Pager)

	// Destroy releases the task's per-slot resources. The caller must ensure
	// no GPU work is in flight.
	Destroy()
}

// taskImpl is the implementation of the Task interface.
type taskImpl struct {
	mu *sync.Mutex

	device device.Device
	queue  device.Queue

	seq    *Sequencer
	frames []frameSlot

	registry      *dynamic.Registry
	commandGraphs []CommandGraph
	windows       []PresentationTarget

	waitSemaphores   []device.Semaphore
	signalSemaphores []device.Semaphore

	// currentTransferCompleted is the transfer-completion semaphore produced
	// by the current frame's transfer step, or nil when nothing was copied.
	currentTransferCompleted device.Semaphore

	pager *pager.Pager

	// waitTimeout bounds the fence wait in start; 0 waits indefinitely.
	waitTimeout time.Duration
}

var _ Task = &taskImpl{}

// NewTask creates a record-and-submit task with the given frames-in-flight
// depth. All per-slot fences are allocated up front; per-slot transfer
// resources are created lazily by the first transfer that needs them.
//
// Panics if the device is nil, bufferedFrames is zero, or fence allocation
// fails.
//
// Parameters:
//   - dev: the device to submit to (must not be nil)
//   - bufferedFrames: the frames-in-flight depth N (must be > 0)
//   - options: functional options to further configure the task
//
// Returns:
//   - Task: the newly created task
func NewTask(dev device.Device, bufferedFrames uint32, options ...TaskBuilderOption) Task {
	if dev == nil {
		panic("task: NewTask requires a non-nil device")
	}
	if bufferedFrames == 0 {
		panic("task: NewTask requires bufferedFrames > 0")
	}

	t := &taskImpl{
		mu:       &sync.Mutex{},
		device:   dev,
		seq:      NewSequencer(bufferedFrames),
		frames:   make([]frameSlot, bufferedFrames),
		registry: dynamic.NewRegistry(dev),
	}
	for i := range t.frames {
		fence, err := dev.NewFence()
		if err != nil {
			panic(fmt.Sprintf("task: failed to create frame fence: %v", err))
		}
		t.frames[i].fence = fence
	}

	for _, option := range options {
		option(t)
	}
	t.queue = common.Coalesce(t.queue, dev.Queue())
	return t
}

func (t *taskImpl) Advance() {
	t.seq.Advance()
}

func (t *taskImpl) Index(rel uint32) uint32 {
	return t.seq.Index(rel)
}

func (t *taskImpl) Fence(rel uint32) device.Fence {
	slot := t.seq.Index(rel)
	if slot >= uint32(len(t.frames)) {
		return nil
	}
	return t.frames[slot].fence
}

func (t *taskImpl) Submit(stamp FrameStamp) error {
	recorded := NewRecordedCommandBuffers()
	if err := t.start(); err != nil {
		return err
	}
	if err := t.record(recorded, stamp); err != nil {
		return err
	}
	return t.finish(recorded)
}

// start resolves the current slot's fence and, if the slot's previous use has
// not yet been consumed, blocks until it has. This is the backpressure
// mechanism bounding how far ahead of the GPU the host may run: the depth
// equals the buffered-frame count.
func (t *taskImpl) start() error {
	t.currentTransferCompleted = nil

	fence := t.Fence(0)
	if fence == nil {
		return fmt.Errorf("task: Submit called before Advance")
	}
	if fence.HasDependencies() {
		if err := fence.Wait(t.waitTimeout); err != nil {
			return fmt.Errorf("task: fence wait failed: %w", err)
		}
		if err := fence.ResetFenceAndDependencies(); err != nil {
			return fmt.Errorf("task: fence reset failed: %w", err)
		}
	}
	return nil
}

// record invokes each command graph's traversal, then runs the dynamic-data
// transfer for the current slot.
func (t *taskImpl) record(recorded *RecordedCommandBuffers, stamp FrameStamp) error {
	t.mu.Lock()
	graphs := t.commandGraphs
	p := t.pager
	t.mu.Unlock()

	for _, graph := range graphs {
		graph.Record(recorded, stamp, p)
	}

	slot := t.seq.Index(0)
	sem, err := t.registry.Transfer(&t.frames[slot].transfer)
	if err != nil {
		return err
	}
	t.currentTransferCompleted = sem
	return nil
}

// finish submits the recorded command buffers as one batched command on the
// main queue, guarded by the slot's fence. Idle frames (nothing recorded)
// sleep briefly instead of submitting empty work.
func (t *taskImpl) finish(recorded *RecordedCommandBuffers) error {
	buffers := recorded.Buffers()
	if len(buffers) == 0 {
		time.Sleep(idleFrameDelay)
		return nil
	}

	fence := t.Fence(0)

	// Primary-level buffers are submitted directly; all recorded buffers
	// (primary and secondary) stay alive until the fence signals.
	primaries := make([]device.CommandBuffer, 0, len(buffers))
	for _, cb := range buffers {
		if cb.Level() == device.CommandBufferLevelPrimary {
			primaries = append(primaries, cb)
		}
	}
	fence.AddDependentCommandBuffers(buffers...)

	t.mu.Lock()
	windows := t.windows
	waitSems := t.waitSemaphores
	signalSems := t.signalSemaphores
	t.mu.Unlock()

	fence.SetDependentSemaphores(signalSems)

	waits := make([]device.Semaphore, 0, 1+len(windows)+len(waitSems))
	stages := make([]device.PipelineStage, 0, cap(waits))

	if t.currentTransferCompleted != nil {
		waits = append(waits, t.currentTransferCompleted)
		stages = append(stages, t.currentTransferCompleted.StageMask())
	}
	for _, w := range windows {
		idx := w.ImageIndex()
		if idx < 0 || idx >= w.FrameCount() {
			// Nothing acquired this frame; nothing to wait on.
			continue
		}
		sem := w.ImageAvailableSemaphore(idx)
		if sem == nil {
			continue
		}
		waits = append(waits, sem)
		stages = append(stages, sem.StageMask())
	}
	for _, sem := range waitSems {
		waits = append(waits, sem)
		stages = append(stages, sem.StageMask())
	}

	batch := device.SubmitBatch{
		CommandBuffers:   primaries,
		WaitSemaphores:   waits,
		WaitStages:       stages,
		SignalSemaphores: signalSems,
	}
	if err := t.queue.Submit(batch, fence); err != nil {
		return fmt.Errorf("task: queue submission failed: %w", err)
	}

	logging.Debug("task: frame submitted", "slot", t.seq.Index(0), "commandBuffers", len(primaries), "waits", len(waits))
	return nil
}

func (t *taskImpl) BufferedFrames() uint32 {
	return t.seq.Len()
}

func (t *taskImpl) Registry() *dynamic.Registry {
	return t.registry
}

func (t *taskImpl) AssignDynamicBufferInfos(infos []*dynamic.BufferInfo) {
	t.registry.Assign(infos)
}

func (t *taskImpl) CommandGraphs() []CommandGraph {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commandGraphs
}

func (t *taskImpl) AddCommandGraphs(graphs ...CommandGraph) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commandGraphs = append(t.commandGraphs, graphs...)
}

func (t *taskImpl) Windows() []PresentationTarget {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.windows
}

func (t *taskImpl) AddWindows(targets ...PresentationTarget) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows = append(t.windows, targets...)
}

func (t *taskImpl) SetWaitSemaphores(sems []device.Semaphore) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waitSemaphores = sems
}

func (t *taskImpl) SetSignalSemaphores(sems []device.Semaphore) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.signalSemaphores = sems
}

func (t *taskImpl) Pager() *pager.Pager {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pager
}

func (t *taskImpl) SetPager(p *pager.Pager) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pager = p
}

func (t *taskImpl) Destroy() {
	for i := range t.frames {
		if t.frames[i].fence != nil {
			t.frames[i].fence.Destroy()
			t.frames[i].fence = nil
		}
		t.frames[i].transfer.Destroy()
	}
}
