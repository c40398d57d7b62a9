package device_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/strata-go/engine/device"
	"github.com/Carmen-Shannon/strata-go/engine/device/devicetest"
)

func TestNewTrackedFencePanicsOnNilSync(t *testing.T) {
	assert.Panics(t, func() { device.NewTrackedFence(nil) })
}

func TestTrackedFenceWaitDelegates(t *testing.T) {
	sync := &devicetest.FenceSync{Signaled: true}
	fence := device.NewTrackedFence(sync)

	require.NoError(t, fence.Wait(time.Second))
	assert.Equal(t, 1, sync.Waits)

	sync.Signaled = false
	err := fence.Wait(time.Millisecond)
	assert.ErrorIs(t, err, device.ErrTimeout)
}

func TestTrackedFenceDependencyLifecycle(t *testing.T) {
	sync := &devicetest.FenceSync{Signaled: true}
	fence := device.NewTrackedFence(sync)

	assert.False(t, fence.HasDependencies())

	cb := &devicetest.CommandBuffer{}
	sem := &devicetest.Semaphore{}
	fence.AddDependentCommandBuffers(cb)
	fence.SetDependentSemaphores([]device.Semaphore{sem})

	assert.True(t, fence.HasDependencies())
	assert.Equal(t, []device.CommandBuffer{cb}, fence.DependentCommandBuffers())
	assert.Equal(t, []device.Semaphore{sem}, fence.DependentSemaphores())

	require.NoError(t, fence.ResetFenceAndDependencies())

	assert.False(t, fence.HasDependencies())
	assert.Empty(t, fence.DependentCommandBuffers())
	assert.Empty(t, fence.DependentSemaphores())
	assert.Equal(t, 1, sync.Resets)
}

func TestTrackedFenceSemaphoresAloneAreDependencies(t *testing.T) {
	fence := device.NewTrackedFence(&devicetest.FenceSync{Signaled: true})

	fence.SetDependentSemaphores([]device.Semaphore{&devicetest.Semaphore{}})
	assert.True(t, fence.HasDependencies())

	fence.SetDependentSemaphores(nil)
	assert.False(t, fence.HasDependencies())
}
