// Package window provides platform windowing for presentation targets: the
// GLFW surface a renderer draws into plus the per-swap-image synchronization
// a record-and-submit task waits on.
package window

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/strata-go/engine/device"
)

// Window wraps a platform window with the presentation-side state a frame
// task needs: the currently acquired swap image and its availability
// semaphore.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is
	// resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating
	// a WebGPU surface. The descriptor is platform-appropriate and is created
	// by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// InitFrames allocates the per-swap-image synchronization objects. Must be
	// called before Acquire.
	//
	// Parameters:
	//   - dev: the device the semaphores belong to
	//   - frameCount: the number of swap images
	//
	// Returns:
	//   - error: if semaphore allocation fails
	InitFrames(dev device.Device, frameCount int) error

	// Acquire marks the next swap image as the current presentation target
	// and returns its index. Fails if InitFrames has not run.
	//
	// Returns:
	//   - int: the acquired image index
	//   - error: if no frames are initialized
	Acquire() (int, error)

	// ImageIndex returns the currently acquired swap image index, or -1 when
	// none is acquired.
	//
	// Returns:
	//   - int: the image index
	ImageIndex() int

	// FrameCount returns the number of swap images.
	//
	// Returns:
	//   - int: the image count
	FrameCount() int

	// ImageAvailableSemaphore returns the semaphore signaled when the given
	// swap image becomes available.
	//
	// Parameters:
	//   - imageIndex: the swap image index
	//
	// Returns:
	//   - device.Semaphore: the semaphore, or nil if out of range
	ImageAvailableSemaphore(imageIndex int) device.Semaphore

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform and sync resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop. Blocks until the window
	// is closed. Calls the update callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// presentationWindow is the implementation of the Window interface. Holds
// window configuration, GLFW state, swap-frame sync objects, and callbacks.
type presentationWindow struct {
	mu *sync.Mutex

	// title is the window title displayed in the title bar.
	title string

	// width and height are the current framebuffer dimensions in pixels.
	width  int
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// imageAvailable holds one semaphore per swap image; nil until InitFrames.
	imageAvailable []device.Semaphore

	// imageIndex is the currently acquired swap image, or -1.
	imageIndex int

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
}

var _ Window = &presentationWindow{}

// NewWindow creates a new Window with the specified options. Applies default
// values first, then each option in order. Panics if the platform window
// cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &presentationWindow{
		mu:         &sync.Mutex{},
		title:      "Strata",
		width:      1280,
		height:     720,
		imageIndex: -1,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *presentationWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *presentationWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *presentationWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *presentationWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *presentationWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *presentationWindow) InitFrames(dev device.Device, frameCount int) error {
	if dev == nil {
		return fmt.Errorf("window: InitFrames requires a non-nil device")
	}
	if frameCount <= 0 {
		return fmt.Errorf("window: InitFrames requires frameCount > 0, got %d", frameCount)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.destroyFramesLocked()
	w.imageAvailable = make([]device.Semaphore, frameCount)
	for i := range w.imageAvailable {
		sem, err := dev.NewSemaphore(device.StageColorAttachmentOutput)
		if err != nil {
			w.destroyFramesLocked()
			return fmt.Errorf("window: image-available semaphore creation failed: %w", err)
		}
		w.imageAvailable[i] = sem
	}
	w.imageIndex = -1
	return nil
}

func (w *presentationWindow) Acquire() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.imageAvailable) == 0 {
		return -1, fmt.Errorf("window: Acquire called before InitFrames")
	}
	w.imageIndex = (w.imageIndex + 1) % len(w.imageAvailable)
	return w.imageIndex, nil
}

func (w *presentationWindow) ImageIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.imageIndex
}

func (w *presentationWindow) FrameCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.imageAvailable)
}

func (w *presentationWindow) ImageAvailableSemaphore(imageIndex int) device.Semaphore {
	w.mu.Lock()
	defer w.mu.Unlock()
	if imageIndex < 0 || imageIndex >= len(w.imageAvailable) {
		return nil
	}
	return w.imageAvailable[imageIndex]
}

// destroyFramesLocked releases the swap-frame semaphores. Caller holds mu.
func (w *presentationWindow) destroyFramesLocked() {
	for _, sem := range w.imageAvailable {
		if sem != nil {
			sem.Destroy()
		}
	}
	w.imageAvailable = nil
	w.imageIndex = -1
}

func (w *presentationWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *presentationWindow) Close() error {
	w.mu.Lock()
	w.destroyFramesLocked()
	w.mu.Unlock()
	return platformCloseWindow(w)
}

func (w *presentationWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *presentationWindow) Width() int {
	return w.width
}

func (w *presentationWindow) Height() int {
	return w.height
}
