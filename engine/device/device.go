// Package device defines the GPU abstraction consumed by the frame-submission
// pipeline. All device-call sites in the engine go through these interfaces so
// the record/submit logic stays host-only and testable without real hardware.
// The WebGPU-backed implementation lives in wgpu_device_backend.go; host-side
// fakes for tests live in the devicetest subpackage.
package device

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Fence.Wait when the caller-supplied bound elapses
// before the GPU signals the fence.
var ErrTimeout = errors.New("device: fence wait timed out")

// ErrDeviceLost is returned when the underlying device has been lost and no
// further submissions can be made.
var ErrDeviceLost = errors.New("device: device lost")

// CommandBufferLevel distinguishes command buffers submitted directly to a
// queue from those executed from within another command buffer.
type CommandBufferLevel int

const (
	// CommandBufferLevelPrimary marks a command buffer for direct queue submission.
	CommandBufferLevelPrimary CommandBufferLevel = iota

	// CommandBufferLevelSecondary marks a command buffer executed from a primary one.
	// Secondary buffers are never placed in a submit batch but still participate
	// in fence dependency tracking.
	CommandBufferLevelSecondary
)

// PipelineStage is a bitmask identifying the pipeline stage(s) a semaphore
// wait applies to.
type PipelineStage uint32

const (
	// StageNone waits on no pipeline stage.
	StageNone PipelineStage = 0

	// StageTransfer covers copy/transfer operations.
	StageTransfer PipelineStage = 1 << iota

	// StageColorAttachmentOutput covers final color writes; the stage used for
	// image-available semaphores.
	StageColorAttachmentOutput

	// StageAllCommands covers every stage.
	StageAllCommands
)

// BufferCopy describes a single copy region from a source buffer into a
// destination buffer.
type BufferCopy struct {
	// SrcOffset is the byte offset into the source (staging) buffer.
	SrcOffset uint64

	// DstOffset is the byte offset into the destination buffer.
	DstOffset uint64

	// Size is the number of bytes to copy.
	Size uint64
}

// Buffer is a GPU buffer allocation.
type Buffer interface {
	// Size returns the buffer's capacity in bytes.
	//
	// Returns:
	//   - uint64: the allocated size in bytes
	Size() uint64

	// Bytes returns the host-visible mapping of the buffer, or nil if the
	// buffer is not host-visible. For staging buffers the mapping is
	// re-established on demand, so the returned slice is only valid until the
	// buffer is next used in a submission.
	//
	// Returns:
	//   - []byte: the mapped memory, or nil
	Bytes() []byte

	// Destroy releases the buffer's GPU resources.
	Destroy()
}

// CommandBuffer records GPU commands for later queue submission.
type CommandBuffer interface {
	// Level returns whether this is a primary or secondary command buffer.
	//
	// Returns:
	//   - CommandBufferLevel: the command buffer level
	Level() CommandBufferLevel

	// Begin starts a one-time-submit recording session.
	//
	// Returns:
	//   - error: an error if recording could not start
	Begin() error

	// End finishes the recording session.
	//
	// Returns:
	//   - error: an error if the recorded commands could not be finalized
	End() error

	// Reset discards previously recorded commands so the buffer can be reused.
	//
	// Returns:
	//   - error: an error if the buffer could not be reset
	Reset() error

	// CopyBuffer records a copy of the given regions from src into dst.
	// Must be called between Begin and End.
	//
	// Parameters:
	//   - src: the source buffer (typically host-visible staging)
	//   - dst: the destination buffer
	//   - regions: the copy regions to record
	//
	// Returns:
	//   - error: an error if the copy could not be recorded
	CopyBuffer(src, dst Buffer, regions []BufferCopy) error
}

// Semaphore is a GPU-GPU synchronization token with an associated pipeline
// stage mask describing where a wait on it takes effect.
type Semaphore interface {
	// StageMask returns the pipeline stage(s) a wait on this semaphore applies to.
	//
	// Returns:
	//   - PipelineStage: the stage mask
	StageMask() PipelineStage

	// Destroy releases the semaphore's GPU resources.
	Destroy()
}

// SubmitBatch is a fully assembled queue submission: the command buffers to
// execute, the semaphores to wait on (with per-semaphore stage masks), and
// the semaphores to signal on completion.
type SubmitBatch struct {
	// CommandBuffers are the primary command buffers to execute, in order.
	CommandBuffers []CommandBuffer

	// WaitSemaphores are waited on before execution begins.
	WaitSemaphores []Semaphore

	// WaitStages holds the stage mask for each entry in WaitSemaphores.
	// Must be the same length as WaitSemaphores.
	WaitStages []PipelineStage

	// SignalSemaphores are signaled once execution completes.
	SignalSemaphores []Semaphore
}

// Queue accepts assembled submissions for asynchronous GPU execution.
type Queue interface {
	// Submit enqueues the batch for execution. If fence is non-nil it is
	// signaled when the batch completes; pass nil for fire-and-forget
	// submissions such as transfer work tracked by a semaphore instead.
	//
	// Parameters:
	//   - batch: the assembled submission
	//   - fence: the fence to signal on completion, or nil
	//
	// Returns:
	//   - error: an error if the device rejected the submission
	Submit(batch SubmitBatch, fence Fence) error
}

// Device creates the synchronization and transfer resources the frame pipeline
// needs. One Device maps to one logical GPU; its ID keys per-device state such
// as dynamic-data copy counters.
type Device interface {
	// ID returns the device's identity used to key per-device bookkeeping.
	//
	// Returns:
	//   - uint32: the device ID
	ID() uint32

	// NewFence creates an unsignaled fence with dependency tracking.
	//
	// Returns:
	//   - Fence: the created fence
	//   - error: an error if creation fails
	NewFence() (Fence, error)

	// NewSemaphore creates a semaphore with the given pipeline stage mask.
	//
	// Parameters:
	//   - stageMask: the stage(s) a wait on this semaphore applies to
	//
	// Returns:
	//   - Semaphore: the created semaphore
	//   - error: an error if creation fails
	NewSemaphore(stageMask PipelineStage) (Semaphore, error)

	// NewStagingBuffer creates a host-visible, persistently mappable buffer
	// used as the transfer source for dynamic data uploads.
	//
	// Parameters:
	//   - size: the required capacity in bytes
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if allocation or mapping fails
	NewStagingBuffer(size uint64) (Buffer, error)

	// NewUniformBuffer creates a device-local uniform buffer usable as a
	// transfer destination. It has no host mapping; dynamic data reaches it
	// through the staging transfer path.
	//
	// Parameters:
	//   - size: the required capacity in bytes
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if allocation fails
	NewUniformBuffer(size uint64) (Buffer, error)

	// NewCommandBuffer allocates a resettable command buffer.
	//
	// Parameters:
	//   - level: primary or secondary
	//
	// Returns:
	//   - CommandBuffer: the allocated command buffer
	//   - error: an error if allocation fails
	NewCommandBuffer(level CommandBufferLevel) (CommandBuffer, error)

	// Queue returns the main graphics queue.
	//
	// Returns:
	//   - Queue: the graphics queue
	Queue() Queue

	// TransferQueue returns the queue used for dynamic-data transfer
	// submissions. May be the same queue as Queue on devices without a
	// dedicated transfer queue.
	//
	// Returns:
	//   - Queue: the transfer queue
	TransferQueue() Queue
}

// Fence is a host-waitable signal of GPU work completion, extended with a
// dependency list of resources that must stay alive until it signals.
// Before a frame slot is reused, the owning task waits on its fence and then
// resets both the fence and the dependency list; without that, command buffers
// or semaphores referenced by in-flight GPU work could be recycled while the
// GPU is still reading them.
type Fence interface {
	// Wait blocks until the fence signals or the timeout elapses.
	//
	// Parameters:
	//   - timeout: the maximum time to wait; <= 0 waits indefinitely
	//
	// Returns:
	//   - error: ErrTimeout if the bound elapsed, or a device error
	Wait(timeout time.Duration) error

	// HasDependencies reports whether any resources are still attached to this
	// fence from a previous submission.
	//
	// Returns:
	//   - bool: true if dependent command buffers or semaphores are attached
	HasDependencies() bool

	// ResetFenceAndDependencies returns the fence to the unsignaled state and
	// clears the dependency lists, making the slot safe to reuse.
	//
	// Returns:
	//   - error: an error if the fence could not be reset
	ResetFenceAndDependencies() error

	// DependentCommandBuffers returns the command buffers kept alive until the
	// fence signals.
	//
	// Returns:
	//   - []CommandBuffer: the attached command buffers
	DependentCommandBuffers() []CommandBuffer

	// AddDependentCommandBuffers attaches command buffers to be kept alive
	// until the fence signals.
	//
	// Parameters:
	//   - cbs: the command buffers to attach
	AddDependentCommandBuffers(cbs ...CommandBuffer)

	// DependentSemaphores returns the semaphores kept alive until the fence
	// signals.
	//
	// Returns:
	//   - []Semaphore: the attached semaphores
	DependentSemaphores() []Semaphore

	// SetDependentSemaphores replaces the attached semaphore list.
	//
	// Parameters:
	//   - sems: the semaphores to attach
	SetDependentSemaphores(sems []Semaphore)

	// Destroy releases the fence's GPU resources.
	Destroy()
}
