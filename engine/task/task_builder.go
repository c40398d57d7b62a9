package task

import (
	"time"

	"github.com/Carmen-Shannon/strata-go/engine/device"
	"github.com/Carmen-Shannon/strata-go/engine/pager"
)

// TaskBuilderOption is a functional option for configuring a Task on creation.
type TaskBuilderOption func(*taskImpl)

// WithCommandGraphs registers the initial set of scene traversal units.
//
// Parameters:
//   - graphs: the command graphs to record each frame
//
// Returns:
//   - TaskBuilderOption: the option to apply
func WithCommandGraphs(graphs ...CommandGraph) TaskBuilderOption {
	return func(t *taskImpl) {
		t.commandGraphs = append(t.commandGraphs, graphs...)
	}
}

// WithWindows registers the initial set of presentation targets.
//
// Parameters:
//   - targets: the targets whose image-available semaphores join each
//     submission's wait set
//
// Returns:
//   - TaskBuilderOption: the option to apply
func WithWindows(targets ...PresentationTarget) TaskBuilderOption {
	return func(t *taskImpl) {
		t.windows = append(t.windows, targets...)
	}
}

// WithQueue overrides the queue used for the final frame submission. Defaults
// to the device's main queue.
//
// Parameters:
//   - q: the submission queue
//
// Returns:
//   - TaskBuilderOption: the option to apply
func WithQueue(q device.Queue) TaskBuilderOption {
	return func(t *taskImpl) {
		t.queue = q
	}
}

// WithTransferQueue overrides the queue used for dynamic-data transfers.
// Defaults to the device's transfer queue.
//
// Parameters:
//   - q: the transfer queue
//
// Returns:
//   - TaskBuilderOption: the option to apply
func WithTransferQueue(q device.Queue) TaskBuilderOption {
	return func(t *taskImpl) {
		t.registry.SetTransferQueue(q)
	}
}

// WithWaitSemaphores sets the externally configured semaphores every final
// submission waits on, in addition to transfer-completion and window
// image-available semaphores.
//
// Parameters:
//   - sems: the semaphores to wait on
//
// Returns:
//   - TaskBuilderOption: the option to apply
func WithWaitSemaphores(sems ...device.Semaphore) TaskBuilderOption {
	return func(t *taskImpl) {
		t.waitSemaphores = append(t.waitSemaphores, sems...)
	}
}

// WithSignalSemaphores sets the semaphores every final submission signals.
//
// Parameters:
//   - sems: the semaphores to signal
//
// Returns:
//   - TaskBuilderOption: the option to apply
func WithSignalSemaphores(sems ...device.Semaphore) TaskBuilderOption {
	return func(t *taskImpl) {
		t.signalSemaphores = append(t.signalSemaphores, sems...)
	}
}

// WithPager assigns the paged-data loader passed to each graph traversal.
//
// Parameters:
//   - p: the pager
//
// Returns:
//   - TaskBuilderOption: the option to apply
func WithPager(p *pager.Pager) TaskBuilderOption {
	return func(t *taskImpl) {
		t.pager = p
	}
}

// WithWaitTimeout bounds how long Submit blocks on a slot's fence. Zero, the
// default, waits indefinitely.
//
// Parameters:
//   - timeout: the maximum fence wait
//
// Returns:
//   - TaskBuilderOption: the option to apply
func WithWaitTimeout(timeout time.Duration) TaskBuilderOption {
	return func(t *taskImpl) {
		t.waitTimeout = timeout
	}
}
