// Package pager provides the background paged-data loader: scene content that
// is too large to keep resident is requested on demand during traversal and
// loaded off the submitting thread by a bounded worker pool. One pager is
// shared across every record-and-submit task that needs paging.
package pager

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/strata-go/engine/logging"
)

// PageRequest identifies one unit of paged content to load.
type PageRequest struct {
	// Path locates the content (file path, URI, or archive key).
	Path string

	// Priority orders competing requests; higher loads sooner. Currently
	// informational: the pool services requests in submission order.
	Priority float64
}

// LoadedPage is the result of a completed page load.
type LoadedPage struct {
	// Request is the originating request.
	Request PageRequest

	// Content is whatever the loader produced (typically a compiled subgraph).
	Content any

	// Err is the load failure, if any.
	Err error
}

// LoadFunc produces content for a page request. It runs on a pool worker and
// must be safe to call concurrently.
type LoadFunc func(req PageRequest) (any, error)

// Compiler compiles loaded content into GPU-ready form before it is handed
// back to the requesting task. Assigned by the resource-reconciliation step.
type Compiler interface {
	// Compile prepares loaded content for rendering.
	//
	// Parameters:
	//   - content: the raw loaded content
	//
	// Returns:
	//   - any: the compiled content
	//   - error: an error if compilation fails
	Compile(content any) (any, error)
}

// Pager coordinates background page loads through a dynamic worker pool.
// Construct with NewPager, Start before use. Safe for concurrent Enqueue.
type Pager struct {
	mu sync.Mutex

	pool    worker.DynamicWorkerPool
	workers int
	queue   int

	loader   LoadFunc
	compiler Compiler
	onLoaded func(LoadedPage)

	started bool
	nextID  int
}

// PagerBuilderOption is a functional option applied during NewPager.
type PagerBuilderOption func(*Pager)

// WithWorkers sets the worker count for the load pool.
// Values <= 0 fall back to the default (NumCPU - 1, minimum 1).
//
// Parameters:
//   - n: the number of pool workers
//
// Returns:
//   - PagerBuilderOption: option function to apply
func WithWorkers(n int) PagerBuilderOption {
	return func(p *Pager) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLoader sets the load function invoked for each page request.
//
// Parameters:
//   - fn: the loader (must not be nil when paging is used)
//
// Returns:
//   - PagerBuilderOption: option function to apply
func WithLoader(fn LoadFunc) PagerBuilderOption {
	return func(p *Pager) {
		p.loader = fn
	}
}

// WithOnLoaded sets the callback invoked with each completed load. The
// callback runs on a pool worker.
//
// Parameters:
//   - fn: the completion callback
//
// Returns:
//   - PagerBuilderOption: option function to apply
func WithOnLoaded(fn func(LoadedPage)) PagerBuilderOption {
	return func(p *Pager) {
		p.onLoaded = fn
	}
}

// NewPager creates a pager. Start must be called before Enqueue.
//
// Parameters:
//   - options: functional options to configure the pager
//
// Returns:
//   - *Pager: the new pager
func NewPager(options ...PagerBuilderOption) *Pager {
	p := &Pager{
		workers: max(runtime.NumCPU()-1, 1),
		queue:   256,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// SetCompiler assigns the compiler applied to loaded content. May be updated
// between frames; loads already in flight use the compiler captured at
// enqueue time.
//
// Parameters:
//   - c: the compiler (nil disables compilation)
func (p *Pager) SetCompiler(c Compiler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.compiler = c
}

// Started reports whether Start has been called.
//
// Returns:
//   - bool: true once the pager is running
func (p *Pager) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Start spins up the worker pool. Calling Start on a started pager is a no-op.
func (p *Pager) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.pool = worker.NewDynamicWorkerPool(p.workers, p.queue, 1*time.Second)
	p.started = true
	logging.Info("pager: started", "workers", p.workers)
}

// Stop marks the pager as stopped; subsequent Enqueue calls fail. Idle pool
// workers wind down on their own through the pool's idle timeout.
func (p *Pager) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = false
}

// Enqueue submits a page request for background loading. The loader runs on a
// pool worker; the result (including any compile step) is delivered to the
// OnLoaded callback.
//
// Parameters:
//   - req: the page request
//
// Returns:
//   - error: an error if the pager is not started or has no loader
func (p *Pager) Enqueue(req PageRequest) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return fmt.Errorf("pager: not started")
	}
	if p.loader == nil {
		p.mu.Unlock()
		return fmt.Errorf("pager: no loader configured")
	}
	loader := p.loader
	compiler := p.compiler
	onLoaded := p.onLoaded
	pool := p.pool
	id := p.nextID
	p.nextID++
	p.mu.Unlock()

	pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			content, err := loader(req)
			if err == nil && compiler != nil {
				content, err = compiler.Compile(content)
			}
			if err != nil {
				logging.Warn("pager: load failed", "path", req.Path, "err", err)
			}
			if onLoaded != nil {
				onLoaded(LoadedPage{Request: req, Content: content, Err: err})
			}
			return content, err
		},
	})
	return nil
}
