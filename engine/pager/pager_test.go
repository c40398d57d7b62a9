package pager

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectingSink gathers loaded pages delivered from pool workers.
type collectingSink struct {
	mu    sync.Mutex
	pages []LoadedPage
}

func (s *collectingSink) deliver(p LoadedPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, p)
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// upperCompiler uppercases string content to make the compile step visible.
type upperCompiler struct{}

func (upperCompiler) Compile(content any) (any, error) {
	return fmt.Sprintf("compiled:%v", content), nil
}

func TestPagerEnqueueRequiresStart(t *testing.T) {
	p := NewPager(WithLoader(func(PageRequest) (any, error) { return nil, nil }))

	assert.False(t, p.Started())
	assert.Error(t, p.Enqueue(PageRequest{Path: "a"}))
}

func TestPagerEnqueueRequiresLoader(t *testing.T) {
	p := NewPager()
	p.Start()
	defer p.Stop()

	assert.Error(t, p.Enqueue(PageRequest{Path: "a"}))
}

func TestPagerLoadsInBackground(t *testing.T) {
	sink := &collectingSink{}
	p := NewPager(
		WithWorkers(2),
		WithLoader(func(req PageRequest) (any, error) { return "content:" + req.Path, nil }),
		WithOnLoaded(sink.deliver),
	)
	p.Start()
	defer p.Stop()
	p.SetCompiler(upperCompiler{})

	require.NoError(t, p.Enqueue(PageRequest{Path: "tile-1"}))
	require.NoError(t, p.Enqueue(PageRequest{Path: "tile-2"}))

	require.Eventually(t, func() bool { return sink.count() == 2 }, 5*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	seen := map[string]bool{}
	for _, page := range sink.pages {
		require.NoError(t, page.Err)
		seen[page.Content.(string)] = true
	}
	assert.True(t, seen["compiled:content:tile-1"])
	assert.True(t, seen["compiled:content:tile-2"])
}

func TestPagerReportsLoadFailure(t *testing.T) {
	sink := &collectingSink{}
	loadErr := fmt.Errorf("missing tile")
	p := NewPager(
		WithWorkers(1),
		WithLoader(func(PageRequest) (any, error) { return nil, loadErr }),
		WithOnLoaded(sink.deliver),
	)
	p.Start()
	defer p.Stop()

	require.NoError(t, p.Enqueue(PageRequest{Path: "gone"}))

	require.Eventually(t, func() bool { return sink.count() == 1 }, 5*time.Second, 10*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.ErrorIs(t, sink.pages[0].Err, loadErr)
}

func TestPagerStartIsIdempotent(t *testing.T) {
	p := NewPager(WithLoader(func(PageRequest) (any, error) { return nil, nil }))
	p.Start()
	defer p.Stop()

	p.Start()
	assert.True(t, p.Started())

	p.Stop()
	assert.False(t, p.Started())
	assert.Error(t, p.Enqueue(PageRequest{Path: "late"}))
}
