// Package engine ties the frame pipeline together: it owns the
// record-and-submit tasks, drives the per-frame advance/acquire/submit cycle,
// and reconciles task resources when scene compilation produces new content.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/strata-go/engine/dynamic"
	"github.com/Carmen-Shannon/strata-go/engine/logging"
	"github.com/Carmen-Shannon/strata-go/engine/pager"
	"github.com/Carmen-Shannon/strata-go/engine/profiler"
	"github.com/Carmen-Shannon/strata-go/engine/task"
	"github.com/Carmen-Shannon/strata-go/engine/view"
	"github.com/Carmen-Shannon/strata-go/engine/window"
)

// ViewRequirements describes what compilation discovered for one view: the
// distinct bin numbers its content references.
type ViewRequirements struct {
	View       view.View
	BinNumbers []int32
}

// CompileResult carries everything scene-graph compilation produced that the
// frame tasks must absorb before the next frame.
type CompileResult struct {
	// DynamicBufferInfos are newly compiled dynamic-data descriptors to
	// register with every task's registry.
	DynamicBufferInfos []*dynamic.BufferInfo

	// MaxSlot is the highest render-state binding slot compiled content uses.
	MaxSlot uint32

	// ContainsPagedData is true when compiled content needs on-demand paging.
	ContainsPagedData bool

	// Compiler, when set, compiles paged content after loading; assigned to
	// the shared pager.
	Compiler pager.Compiler

	// Views lists per-view bin requirements.
	Views []ViewRequirements
}

// viewer implements the Viewer interface. Coordinates the frame loop, the
// update tick, and window message processing.
type viewer struct {
	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window window.Window

	tasksMu *sync.Mutex
	tasks   []task.Task

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameCount uint64

	tickRate     time.Duration
	tickCallback func(deltaTime float32)

	frameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Viewer is the main entry point: it orchestrates the frame loop across one
// or more record-and-submit tasks and a presentation window.
type Viewer interface {
	// Window returns the underlying window, or nil when headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Tasks returns the registered record-and-submit tasks.
	//
	// Returns:
	//   - []task.Task: the tasks
	Tasks() []task.Task

	// AddTasks registers record-and-submit tasks with the viewer.
	//
	// Parameters:
	//   - tasks: the tasks to add
	AddTasks(tasks ...task.Task)

	// RenderFrame runs one complete frame: acquires the next window image,
	// advances every task, and submits them in registration order.
	//
	// Returns:
	//   - error: the first task error encountered; remaining tasks are
	//     skipped for this frame
	RenderFrame() error

	// FrameCount returns the number of frames rendered so far.
	//
	// Returns:
	//   - uint64: the frame count
	FrameCount() uint64

	// Update absorbs a compilation result into every registered task; see
	// UpdateTasks.
	//
	// Parameters:
	//   - result: the compilation result
	Update(result *CompileResult)

	// EnableProfiler enables frame-report output to the log.
	EnableProfiler()

	// DisableProfiler disables frame-report output.
	DisableProfiler()

	// SetTickRate sets the update tick rate in ticks per second. Takes effect
	// immediately when running.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each update tick. Use
	// this to mutate dynamic data and scene state between frames.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the frame loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetFrameLimit(fps float64)

	// Run starts the frame loop and blocks until the window closes.
	Run()

	// Quit signals all viewer goroutines to stop. Safe to call multiple
	// times; subsequent calls are no-ops.
	Quit()
}

// NewViewer creates a new Viewer with the provided options.
//
// Parameters:
//   - options: functional options for viewer configuration
//
// Returns:
//   - Viewer: the newly created viewer
func NewViewer(options ...ViewerBuilderOption) Viewer {
	v := &viewer{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		tasksMu:         &sync.Mutex{},
		profiler:        profiler.NewProfiler(),
		tickRate:        time.Second / 60,
	}

	for _, opt := range options {
		opt(v)
	}
	return v
}

func (v *viewer) Window() window.Window {
	return v.window
}

func (v *viewer) Tasks() []task.Task {
	v.tasksMu.Lock()
	defer v.tasksMu.Unlock()
	return v.tasks
}

func (v *viewer) AddTasks(tasks ...task.Task) {
	v.tasksMu.Lock()
	defer v.tasksMu.Unlock()
	v.tasks = append(v.tasks, tasks...)
}

func (v *viewer) RenderFrame() error {
	if v.window != nil && v.window.FrameCount() > 0 {
		if _, err := v.window.Acquire(); err != nil {
			return err
		}
	}

	v.frameCount++
	stamp := task.FrameStamp{
		FrameCount: v.frameCount,
		Time:       time.Now(),
	}

	for _, t := range v.Tasks() {
		start := time.Now()
		t.Advance()
		if err := t.Submit(stamp); err != nil {
			return err
		}
		if v.profilingEnabled {
			v.profiler.Measure(profiler.PhaseSubmit, time.Since(start))
		}
	}

	if v.profilingEnabled {
		v.profiler.Tick()
	}
	return nil
}

func (v *viewer) FrameCount() uint64 {
	return v.frameCount
}

func (v *viewer) Update(result *CompileResult) {
	UpdateTasks(v.Tasks(), result)
}

// UpdateTasks reconciles tasks with a compilation result: registers new
// dynamic-data descriptors with every task, raises command-graph slot
// ceilings, lazily shares one paged-data loader across tasks, and ensures a
// bin exists for every bin number each view references.
//
// Parameters:
//   - tasks: the tasks to reconcile
//   - result: the compilation result to absorb
func UpdateTasks(tasks []task.Task, result *CompileResult) {
	if result == nil || len(tasks) == 0 {
		return
	}

	if len(result.DynamicBufferInfos) > 0 {
		for _, t := range tasks {
			t.AssignDynamicBufferInfos(result.DynamicBufferInfos)
		}
	}

	for _, t := range tasks {
		for _, graph := range t.CommandGraphs() {
			if result.MaxSlot > graph.MaxSlot() {
				graph.SetMaxSlot(result.MaxSlot)
			}
		}
	}

	if result.ContainsPagedData {
		// Reuse a pager already present on any task before creating one, so
		// all tasks share a single background loader.
		var shared *pager.Pager
		for _, t := range tasks {
			if p := t.Pager(); p != nil {
				shared = p
				break
			}
		}
		if shared == nil {
			shared = pager.NewPager()
			shared.Start()
			logging.Info("engine: started shared paged-data loader")
		}
		if result.Compiler != nil {
			shared.SetCompiler(result.Compiler)
		}
		for _, t := range tasks {
			if t.Pager() == nil {
				t.SetPager(shared)
			}
		}
	}

	for _, req := range result.Views {
		if req.View == nil {
			continue
		}
		numbers := append([]int32(nil), req.BinNumbers...)
		sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
		for _, n := range numbers {
			req.View.EnsureBin(n)
		}
	}
}

func (v *viewer) Run() {
	v.running = true
	v.handle()
	if v.window != nil {
		v.window.ProcessMessages()
		v.signalQuit()
	}
	v.wg.Wait()
}

func (v *viewer) Quit() {
	v.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (v *viewer) signalQuit() {
	v.quitOnce.Do(func() {
		v.running = false
		close(v.quitChannel)
	})
}

// handle launches the tick and frame goroutines, each tracked by the
// viewer's WaitGroup.
func (v *viewer) handle() {
	v.wg.Add(2)
	go v.handleTick()
	go v.handleFrames()
}

// handleTick runs the fixed-rate update loop in its own goroutine. Fires the
// tick callback at the configured rate and listens for dynamic rate changes.
// Exits when the quit channel is closed.
func (v *viewer) handleTick() {
	defer v.wg.Done()

	ticker := time.NewTicker(v.tickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-v.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if v.tickCallback != nil {
				v.tickCallback(dt)
			}
		case newRate := <-v.tickRateChannel:
			ticker.Reset(newRate)
			v.tickRate = newRate
		}
	}
}

// handleFrames runs the frame loop in its own goroutine. Recovers from panics
// to avoid crashing the process and signals quit on recovery.
func (v *viewer) handleFrames() {
	defer v.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logging.Error("engine: frame goroutine recovered from panic", "panic", r)
			v.signalQuit()
		}
	}()

	for {
		select {
		case <-v.quitChannel:
			return
		default:
			frameStart := time.Now()

			if err := v.RenderFrame(); err != nil {
				// Frame-level failure: state stays consistent for a retry on
				// the next frame.
				logging.Error("engine: frame failed", "frame", v.frameCount, "error", err)
			}

			if v.frameLimit > 0 {
				if remaining := v.frameLimit - time.Since(frameStart); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

func (v *viewer) EnableProfiler() {
	v.profilingEnabled = true
}

func (v *viewer) DisableProfiler() {
	v.profilingEnabled = false
}

// SetTickRate sets the update tick rate in ticks per second. If the viewer is
// running, the change takes effect immediately.
func (v *viewer) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if v.running {
		// Non-blocking send; if a rate change is already pending, replace it.
		select {
		case v.tickRateChannel <- newRate:
		default:
			select {
			case <-v.tickRateChannel:
			default:
			}
			v.tickRateChannel <- newRate
		}
	} else {
		v.tickRate = newRate
	}
}

func (v *viewer) SetTickCallback(callback func(deltaTime float32)) {
	v.tickCallback = callback
}

// SetFrameLimit sets an optional frame rate cap. Pass 0 to uncap the loop.
func (v *viewer) SetFrameLimit(fps float64) {
	if fps <= 0 {
		v.frameLimit = 0
		return
	}
	v.frameLimit = time.Second / time.Duration(fps)
}
