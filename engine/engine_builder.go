package engine

import (
	"time"

	"github.com/Carmen-Shannon/strata-go/engine/task"
	"github.com/Carmen-Shannon/strata-go/engine/window"
)

// ViewerBuilderOption is a functional option for configuring a Viewer. Use
// the With* functions to create options applied directly to the viewer.
type ViewerBuilderOption func(*viewer)

// WithProfiling enables or disables frame-report output.
//
// Parameters:
//   - enabled: if true, enables profiling
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithProfiling(enabled bool) ViewerBuilderOption {
	return func(v *viewer) {
		v.profilingEnabled = enabled
	}
}

// WithTickRate sets the update tick rate in ticks per second. Values <= 0
// are treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithTickRate(fps float64) ViewerBuilderOption {
	return func(v *viewer) {
		if fps <= 0 {
			fps = 60.0
		}
		v.tickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets a pre-configured window for the viewer to present to.
// Without one the viewer runs headless and skips image acquisition.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithWindow(w window.Window) ViewerBuilderOption {
	return func(v *viewer) {
		v.window = w
	}
}

// WithTasks registers record-and-submit tasks during viewer construction.
// Tasks are submitted in registration order each frame.
//
// Parameters:
//   - tasks: the tasks to register
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithTasks(tasks ...task.Task) ViewerBuilderOption {
	return func(v *viewer) {
		v.tasks = append(v.tasks, tasks...)
	}
}

// WithFrameLimit sets an optional frame rate cap in frames per second. Pass
// 0 to uncap the frame loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithFrameLimit(fps float64) ViewerBuilderOption {
	return func(v *viewer) {
		if fps <= 0 {
			v.frameLimit = 0
			return
		}
		v.frameLimit = time.Second / time.Duration(fps)
	}
}
