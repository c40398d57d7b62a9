package device

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

// nextDeviceID hands out process-unique device IDs for per-device bookkeeping
// such as dynamic-data copy counters.
var nextDeviceID atomic.Uint32

// wgpuDeviceImpl is the WebGPU-backed Device implementation.
//
// WebGPU has no user-visible fences or semaphores: submissions to a queue
// execute in submission order, so semaphores are host-side tokens carrying
// stage masks only, and the fence-wait primitive polls the device until its
// queue drains. The rest of the engine never sees this; it programs against
// the device interfaces alone.
type wgpuDeviceImpl struct {
	mu     *sync.Mutex
	id     uint32
	device *wgpu.Device

	queue         Queue
	transferQueue Queue
}

var _ Device = &wgpuDeviceImpl{}

// NewWGPUDevice wraps an initialized wgpu device and queue in the engine's
// Device abstraction. The same wgpu queue backs both the graphics and the
// transfer queue; WebGPU exposes a single queue per device.
//
// Parameters:
//   - dev: the wgpu device (must not be nil)
//   - q: the wgpu queue (must not be nil)
//
// Returns:
//   - Device: the wrapped device
func NewWGPUDevice(dev *wgpu.Device, q *wgpu.Queue) Device {
	if dev == nil {
		panic("device: NewWGPUDevice requires a non-nil wgpu.Device")
	}
	if q == nil {
		panic("device: NewWGPUDevice requires a non-nil wgpu.Queue")
	}
	d := &wgpuDeviceImpl{
		mu:     &sync.Mutex{},
		id:     nextDeviceID.Add(1),
		device: dev,
	}
	wq := &wgpuQueue{device: d, queue: q}
	d.queue = wq
	d.transferQueue = wq
	return d
}

func (d *wgpuDeviceImpl) ID() uint32 {
	return d.id
}

func (d *wgpuDeviceImpl) NewFence() (Fence, error) {
	return NewTrackedFence(&wgpuFenceSync{device: d.device}), nil
}

func (d *wgpuDeviceImpl) NewSemaphore(stageMask PipelineStage) (Semaphore, error) {
	return &wgpuSemaphore{stageMask: stageMask}, nil
}

func (d *wgpuDeviceImpl) NewStagingBuffer(size uint64) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "Dynamic Data Staging Buffer",
		Size:             size,
		Usage:            wgpu.BufferUsageMapWrite | wgpu.BufferUsageCopySrc,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("device: failed to create staging buffer: %w", err)
	}
	return &wgpuBuffer{
		device:      d.device,
		buffer:      buf,
		size:        size,
		hostVisible: true,
		mapped:      buf.GetMappedRange(0, uint(size)),
	}, nil
}

func (d *wgpuDeviceImpl) NewUniformBuffer(size uint64) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Dynamic Uniform Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("device: failed to create uniform buffer: %w", err)
	}
	return &wgpuBuffer{device: d.device, buffer: buf, size: size}, nil
}

func (d *wgpuDeviceImpl) NewCommandBuffer(level CommandBufferLevel) (CommandBuffer, error) {
	return &wgpuCommandBuffer{device: d.device, level: level}, nil
}

func (d *wgpuDeviceImpl) Queue() Queue {
	return d.queue
}

func (d *wgpuDeviceImpl) TransferQueue() Queue {
	return d.transferQueue
}

// wgpuFenceSync implements FenceSync by polling the wgpu device until its
// queue drains. Submission order is total per wgpu queue, so queue-empty
// implies the guarded batch has completed.
type wgpuFenceSync struct {
	device *wgpu.Device
}

// fencePollInterval is the sleep between non-blocking device polls while
// waiting for a fence.
const fencePollInterval = 100 * time.Microsecond

func (f *wgpuFenceSync) Wait(timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if f.device.Poll(false, nil) {
			return nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(fencePollInterval)
	}
}

func (f *wgpuFenceSync) Reset() error {
	// Nothing to reset: the wait primitive is stateless queue polling.
	return nil
}

func (f *wgpuFenceSync) Destroy() {}

// wgpuSemaphore is a host-side stage-mask token; ordering within a wgpu queue
// is implicit.
type wgpuSemaphore struct {
	stageMask PipelineStage
}

func (s *wgpuSemaphore) StageMask() PipelineStage {
	return s.stageMask
}

func (s *wgpuSemaphore) Destroy() {}

// wgpuBuffer wraps a wgpu buffer with on-demand host mapping. Staging buffers
// are created mapped; End on a command buffer that read from them unmaps, and
// the next Bytes call re-establishes the mapping synchronously.
type wgpuBuffer struct {
	device      *wgpu.Device
	buffer      *wgpu.Buffer
	size        uint64
	hostVisible bool
	mapped      []byte
}

func (b *wgpuBuffer) Size() uint64 {
	return b.size
}

func (b *wgpuBuffer) Bytes() []byte {
	if !b.hostVisible {
		return nil
	}
	if b.mapped != nil {
		return b.mapped
	}
	done := false
	if err := b.buffer.MapAsync(wgpu.MapModeWrite, 0, b.size, func(status wgpu.BufferMapAsyncStatus) {
		done = status == wgpu.BufferMapAsyncStatusSuccess
	}); err != nil {
		return nil
	}
	b.device.Poll(true, nil)
	if !done {
		return nil
	}
	b.mapped = b.buffer.GetMappedRange(0, uint(b.size))
	return b.mapped
}

// unmap releases the host mapping ahead of GPU use.
func (b *wgpuBuffer) unmap() {
	if b.mapped == nil {
		return
	}
	b.buffer.Unmap()
	b.mapped = nil
}

func (b *wgpuBuffer) Destroy() {
	b.buffer.Release()
	b.mapped = nil
}

// wgpuCommandBuffer records copies through a wgpu command encoder. Begin
// creates a fresh encoder each recording session, which is also how Reset
// discards prior work.
type wgpuCommandBuffer struct {
	device   *wgpu.Device
	level    CommandBufferLevel
	encoder  *wgpu.CommandEncoder
	finished *wgpu.CommandBuffer

	// staging sources recorded this session; unmapped at End.
	srcs []*wgpuBuffer
}

func (c *wgpuCommandBuffer) Level() CommandBufferLevel {
	return c.level
}

func (c *wgpuCommandBuffer) Begin() error {
	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("device: failed to create command encoder: %w", err)
	}
	c.encoder = encoder
	c.finished = nil
	c.srcs = c.srcs[:0]
	return nil
}

func (c *wgpuCommandBuffer) End() error {
	if c.encoder == nil {
		return fmt.Errorf("device: End called without Begin")
	}
	for _, src := range c.srcs {
		src.unmap()
	}
	finished, err := c.encoder.Finish(nil)
	if err != nil {
		c.encoder.Release()
		c.encoder = nil
		return fmt.Errorf("device: failed to finish command buffer: %w", err)
	}
	c.encoder.Release()
	c.encoder = nil
	c.finished = finished
	return nil
}

func (c *wgpuCommandBuffer) Reset() error {
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
	c.srcs = c.srcs[:0]
	return nil
}

func (c *wgpuCommandBuffer) CopyBuffer(src, dst Buffer, regions []BufferCopy) error {
	if c.encoder == nil {
		return fmt.Errorf("device: CopyBuffer called outside Begin/End")
	}
	srcBuf, ok := src.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("device: source buffer is not a wgpu buffer")
	}
	dstBuf, ok := dst.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("device: destination buffer is not a wgpu buffer")
	}
	for _, r := range regions {
		if err := c.encoder.CopyBufferToBuffer(srcBuf.buffer, r.SrcOffset, dstBuf.buffer, r.DstOffset, r.Size); err != nil {
			return fmt.Errorf("device: failed to record buffer copy: %w", err)
		}
	}
	if srcBuf.mapped != nil {
		c.srcs = append(c.srcs, srcBuf)
	}
	return nil
}

// wgpuQueue submits finished command buffers. Wait/signal semaphores are
// host tokens on this backend and carry no submission-time work.
type wgpuQueue struct {
	device *wgpuDeviceImpl
	queue  *wgpu.Queue
}

func (q *wgpuQueue) Submit(batch SubmitBatch, fence Fence) error {
	finished := make([]*wgpu.CommandBuffer, 0, len(batch.CommandBuffers))
	for _, cb := range batch.CommandBuffers {
		wcb, ok := cb.(*wgpuCommandBuffer)
		if !ok {
			return fmt.Errorf("device: command buffer is not a wgpu command buffer")
		}
		if wcb.finished == nil {
			return fmt.Errorf("device: command buffer submitted before End")
		}
		finished = append(finished, wcb.finished)
	}
	q.queue.Submit(finished...)
	return nil
}
