// Package devicetest provides host-only fakes for the device interfaces so
// the frame-submission pipeline can be exercised without a GPU. The fakes
// record every interaction (submissions, copies, waits) for assertions and
// can be armed to fail at specific points.
package devicetest

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/strata-go/engine/device"
)

// Device is a fake device.Device. Resources it creates are plain host memory.
type Device struct {
	DeviceID uint32

	// StagingBufferErr, when non-nil, is returned by NewStagingBuffer.
	StagingBufferErr error

	// GraphicsQueue and Transfer record submissions made to each queue.
	GraphicsQueue *Queue
	Transfer      *Queue

	// CreatedStagingSizes records every staging allocation, in order.
	CreatedStagingSizes []uint64

	// CreatedFences exposes the fence primitives handed out by NewFence, in
	// creation order, so tests can arm wait failures or flip signaled state.
	CreatedFences []*FenceSync
}

var _ device.Device = &Device{}

// NewDevice creates a fake device with distinct graphics and transfer queues.
//
// Returns:
//   - *Device: the fake device
func NewDevice() *Device {
	return &Device{
		DeviceID:      1,
		GraphicsQueue: &Queue{},
		Transfer:      &Queue{},
	}
}

func (d *Device) ID() uint32 { return d.DeviceID }

func (d *Device) NewFence() (device.Fence, error) {
	sync := &FenceSync{Signaled: true}
	d.CreatedFences = append(d.CreatedFences, sync)
	return device.NewTrackedFence(sync), nil
}

func (d *Device) NewSemaphore(stageMask device.PipelineStage) (device.Semaphore, error) {
	return &Semaphore{Stage: stageMask}, nil
}

func (d *Device) NewStagingBuffer(size uint64) (device.Buffer, error) {
	if d.StagingBufferErr != nil {
		return nil, d.StagingBufferErr
	}
	d.CreatedStagingSizes = append(d.CreatedStagingSizes, size)
	return &Buffer{Mem: make([]byte, size), HostVisible: true}, nil
}

func (d *Device) NewUniformBuffer(size uint64) (device.Buffer, error) {
	return &Buffer{Mem: make([]byte, size)}, nil
}

func (d *Device) NewCommandBuffer(level device.CommandBufferLevel) (device.CommandBuffer, error) {
	return &CommandBuffer{CBLevel: level}, nil
}

func (d *Device) Queue() device.Queue { return d.GraphicsQueue }

func (d *Device) TransferQueue() device.Queue { return d.Transfer }

// FenceSync is a fake backend fence primitive. Wait succeeds immediately while
// Signaled is true; otherwise it returns device.ErrTimeout (or WaitErr when set).
type FenceSync struct {
	Signaled bool
	WaitErr  error
	Waits    int
	Resets   int
}

var _ device.FenceSync = &FenceSync{}

func (f *FenceSync) Wait(timeout time.Duration) error {
	f.Waits++
	if f.WaitErr != nil {
		return f.WaitErr
	}
	if !f.Signaled {
		return device.ErrTimeout
	}
	return nil
}

func (f *FenceSync) Reset() error {
	f.Resets++
	f.Signaled = true
	return nil
}

func (f *FenceSync) Destroy() {}

// Semaphore is a fake semaphore carrying only its stage mask.
type Semaphore struct {
	Stage device.PipelineStage
}

var _ device.Semaphore = &Semaphore{}

func (s *Semaphore) StageMask() device.PipelineStage { return s.Stage }

func (s *Semaphore) Destroy() {}

// Buffer is a fake buffer backed by a byte slice.
type Buffer struct {
	Mem         []byte
	HostVisible bool
	Destroyed   bool
}

var _ device.Buffer = &Buffer{}

func (b *Buffer) Size() uint64 { return uint64(len(b.Mem)) }

func (b *Buffer) Bytes() []byte {
	if !b.HostVisible {
		return nil
	}
	return b.Mem
}

func (b *Buffer) Destroy() { b.Destroyed = true }

// RecordedCopy is one CopyBuffer call captured by a fake command buffer.
type RecordedCopy struct {
	Src     device.Buffer
	Dst     device.Buffer
	Regions []device.BufferCopy
}

// CommandBuffer is a fake command buffer recording its lifecycle and copies.
type CommandBuffer struct {
	CBLevel   device.CommandBufferLevel
	Recording bool
	Ended     bool
	Begins    int
	Ends      int
	ResetN    int
	Copies    []RecordedCopy

	BeginErr error
	EndErr   error
	CopyErr  error
}

var _ device.CommandBuffer = &CommandBuffer{}

func (c *CommandBuffer) Level() device.CommandBufferLevel { return c.CBLevel }

func (c *CommandBuffer) Begin() error {
	if c.BeginErr != nil {
		return c.BeginErr
	}
	c.Begins++
	c.Recording = true
	c.Ended = false
	c.Copies = c.Copies[:0]
	return nil
}

func (c *CommandBuffer) End() error {
	if c.EndErr != nil {
		return c.EndErr
	}
	if !c.Recording {
		return fmt.Errorf("devicetest: End without Begin")
	}
	c.Ends++
	c.Recording = false
	c.Ended = true
	return nil
}

func (c *CommandBuffer) Reset() error {
	c.ResetN++
	c.Recording = false
	c.Ended = false
	c.Copies = c.Copies[:0]
	return nil
}

func (c *CommandBuffer) CopyBuffer(src, dst device.Buffer, regions []device.BufferCopy) error {
	if c.CopyErr != nil {
		return c.CopyErr
	}
	if !c.Recording {
		return fmt.Errorf("devicetest: CopyBuffer outside Begin/End")
	}
	rs := make([]device.BufferCopy, len(regions))
	copy(rs, regions)
	c.Copies = append(c.Copies, RecordedCopy{Src: src, Dst: dst, Regions: rs})

	// Apply the copy to the fake destination memory so tests can assert on
	// the transferred bytes.
	fakeSrc, srcOK := src.(*Buffer)
	fakeDst, dstOK := dst.(*Buffer)
	if srcOK && dstOK {
		for _, r := range regions {
			copy(fakeDst.Mem[r.DstOffset:r.DstOffset+r.Size], fakeSrc.Mem[r.SrcOffset:r.SrcOffset+r.Size])
		}
	}
	return nil
}

// Submission is one Queue.Submit call captured by a fake queue.
type Submission struct {
	Batch device.SubmitBatch
	Fence device.Fence
}

// Queue is a fake queue recording submissions.
type Queue struct {
	mu          sync.Mutex
	Submissions []Submission

	// SubmitErr, when non-nil, is returned by Submit without recording.
	SubmitErr error
}

var _ device.Queue = &Queue{}

func (q *Queue) Submit(batch device.SubmitBatch, fence device.Fence) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.SubmitErr != nil {
		return q.SubmitErr
	}
	q.Submissions = append(q.Submissions, Submission{Batch: batch, Fence: fence})
	return nil
}

// LastSubmission returns the most recent submission, or nil if none occurred.
//
// Returns:
//   - *Submission: the last recorded submission, or nil
func (q *Queue) LastSubmission() *Submission {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.Submissions) == 0 {
		return nil
	}
	return &q.Submissions[len(q.Submissions)-1]
}
