package dynamic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/strata-go/engine/device"
	"github.com/Carmen-Shannon/strata-go/engine/device/devicetest"
)

func TestRegistryAssignComputesAlignedTotals(t *testing.T) {
	dev := devicetest.NewDevice()
	r := NewRegistry(dev)
	dst := &devicetest.Buffer{Mem: make([]byte, 64)}

	// 10 bytes pads to 12, then 20 bytes pads to 32.
	a := NewBufferInfo(dst, 0, 10, NewData(make([]byte, 10)))
	b := NewBufferInfo(dst, 16, 20, NewData(make([]byte, 20)))
	r.Assign([]*BufferInfo{a, b})

	assert.False(t, r.Empty())
	assert.Equal(t, uint64(32), r.TotalStagingSize())
	assert.Equal(t, 2, r.TotalRegions())
}

func TestRegistryTransferStagesStaleRegions(t *testing.T) {
	dev := devicetest.NewDevice()
	r := NewRegistry(dev)
	dst := &devicetest.Buffer{Mem: make([]byte, 64)}

	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	info := NewBufferInfo(dst, 8, 6, NewData(payload))
	r.Assign([]*BufferInfo{info})

	var fr FrameResources
	sem, err := r.Transfer(&fr)
	require.NoError(t, err)
	require.NotNil(t, sem)
	assert.Same(t, fr.TransferCompletedSemaphore, sem)
	assert.Equal(t, device.StageTransfer, sem.StageMask())

	// One submission on the transfer queue with the slot's command buffer and
	// completion semaphore, no fence.
	require.Len(t, dev.Transfer.Submissions, 1)
	sub := dev.Transfer.LastSubmission()
	assert.Equal(t, []device.CommandBuffer{fr.TransferCommandBuffer}, sub.Batch.CommandBuffers)
	assert.Equal(t, []device.Semaphore{sem}, sub.Batch.SignalSemaphores)
	assert.Nil(t, sub.Fence)

	// The fake command buffer applied the copy into destination memory.
	assert.Equal(t, payload, dst.Mem[8:14])
	require.Equal(t, []device.BufferCopy{{SrcOffset: 0, DstOffset: 8, Size: 6}}, fr.CopyRegions)
}

func TestRegistryTransferIdempotentUntilDirty(t *testing.T) {
	dev := devicetest.NewDevice()
	r := NewRegistry(dev)
	dst := &devicetest.Buffer{Mem: make([]byte, 32)}

	data := NewData([]byte{1, 2, 3, 4})
	info := NewBufferInfo(dst, 0, 4, data)
	r.Assign([]*BufferInfo{info})

	var fr FrameResources
	sem, err := r.Transfer(&fr)
	require.NoError(t, err)
	require.NotNil(t, sem)

	// Unchanged data: recording happens but nothing is copied or submitted.
	sem, err = r.Transfer(&fr)
	require.NoError(t, err)
	assert.Nil(t, sem)
	assert.Len(t, dev.Transfer.Submissions, 1)

	data.Set([]byte{5, 6, 7, 8})
	sem, err = r.Transfer(&fr)
	require.NoError(t, err)
	require.NotNil(t, sem)
	assert.Len(t, dev.Transfer.Submissions, 2)
	assert.Equal(t, []byte{5, 6, 7, 8}, dst.Mem[:4])
}

func TestRegistryTransferStagingLayout(t *testing.T) {
	dev := devicetest.NewDevice()
	r := NewRegistry(dev)
	dst := &devicetest.Buffer{Mem: make([]byte, 64)}

	a := NewBufferInfo(dst, 0, 10, NewData(make([]byte, 10)))
	b := NewBufferInfo(dst, 32, 20, NewData(make([]byte, 20)))
	r.Assign([]*BufferInfo{b, a})

	var fr FrameResources
	_, err := r.Transfer(&fr)
	require.NoError(t, err)

	// Regions stage in destination-offset order with 4-byte padding between
	// them, regardless of assignment order.
	require.Equal(t, []device.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: 10},
		{SrcOffset: 12, DstOffset: 32, Size: 20},
	}, fr.CopyRegions)
	assert.Equal(t, []uint64{32}, dev.CreatedStagingSizes)
}

func TestRegistryStagingGrowsMonotonically(t *testing.T) {
	dev := devicetest.NewDevice()
	r := NewRegistry(dev)
	dst := &devicetest.Buffer{Mem: make([]byte, 256)}

	small := NewBufferInfo(dst, 0, 16, NewData(make([]byte, 16)))
	r.Assign([]*BufferInfo{small})

	var fr FrameResources
	_, err := r.Transfer(&fr)
	require.NoError(t, err)
	require.Equal(t, []uint64{16}, dev.CreatedStagingSizes)
	firstStaging := fr.Staging

	// A larger requirement reallocates.
	big := NewBufferInfo(dst, 64, 100, NewData(make([]byte, 100)))
	r.Assign([]*BufferInfo{big})
	_, err = r.Transfer(&fr)
	require.NoError(t, err)
	assert.Equal(t, []uint64{16, 116}, dev.CreatedStagingSizes)
	assert.True(t, firstStaging.(*devicetest.Buffer).Destroyed)

	// Dropping back below capacity keeps the larger buffer.
	big.Release()
	small.Data.Dirty()
	_, err = r.Transfer(&fr)
	require.NoError(t, err)
	assert.Equal(t, []uint64{16, 116}, dev.CreatedStagingSizes)
}

func TestRegistryPrunesSoleOwnerRegions(t *testing.T) {
	dev := devicetest.NewDevice()
	r := NewRegistry(dev)
	dst := &devicetest.Buffer{Mem: make([]byte, 32)}

	kept := NewBufferInfo(dst, 0, 4, NewData([]byte{1, 1, 1, 1}))
	dropped := NewBufferInfo(dst, 8, 4, NewData([]byte{2, 2, 2, 2}))
	r.Assign([]*BufferInfo{kept, dropped})

	// The creator releases its reference; the registry becomes sole owner and
	// must prune the region on the next transfer without copying it.
	dropped.Release()

	var fr FrameResources
	_, err := r.Transfer(&fr)
	require.NoError(t, err)

	require.Len(t, fr.CopyRegions, 1)
	assert.Equal(t, uint64(0), fr.CopyRegions[0].DstOffset)
	assert.Equal(t, 1, r.TotalRegions())
	assert.Zero(t, dropped.RefCount())

	// Releasing the last region empties the registry entirely.
	kept.Release()
	sem, err := r.Transfer(&fr)
	require.NoError(t, err)
	assert.Nil(t, sem)
	assert.True(t, r.Empty())
}

func TestRegistryDuplicateOffsetReplacesDescriptor(t *testing.T) {
	dev := devicetest.NewDevice()
	r := NewRegistry(dev)
	dst := &devicetest.Buffer{Mem: make([]byte, 32)}

	old := NewBufferInfo(dst, 4, 8, NewData(make([]byte, 8)))
	r.Assign([]*BufferInfo{old})
	require.Equal(t, int32(2), old.RefCount())

	replacement := NewBufferInfo(dst, 4, 8, NewData([]byte{9, 9, 9, 9, 9, 9, 9, 9}))
	r.Assign([]*BufferInfo{replacement})

	// The registry released its reference on the replaced descriptor.
	assert.Equal(t, int32(1), old.RefCount())
	assert.Equal(t, int32(2), replacement.RefCount())
	assert.Equal(t, 1, r.TotalRegions())

	var fr FrameResources
	_, err := r.Transfer(&fr)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9, 9, 9, 9, 9}, dst.Mem[4:12])
}

func TestRegistryTransferErrorsAbortBeforeSubmit(t *testing.T) {
	tests := []struct {
		name string
		arm  func(dev *devicetest.Device, fr *FrameResources)
	}{
		{
			name: "staging allocation fails",
			arm: func(dev *devicetest.Device, fr *FrameResources) {
				dev.StagingBufferErr = errors.New("out of memory")
			},
		},
		{
			name: "submission fails",
			arm: func(dev *devicetest.Device, fr *FrameResources) {
				dev.Transfer.SubmitErr = errors.New("queue gone")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := devicetest.NewDevice()
			r := NewRegistry(dev)
			dst := &devicetest.Buffer{Mem: make([]byte, 32)}
			info := NewBufferInfo(dst, 0, 4, NewData([]byte{1, 2, 3, 4}))
			r.Assign([]*BufferInfo{info})

			var fr FrameResources
			tt.arm(dev, &fr)

			sem, err := r.Transfer(&fr)
			require.Error(t, err)
			assert.Nil(t, sem)
			assert.Empty(t, dev.Transfer.Submissions)
		})
	}
}

func TestFrameResourcesDestroy(t *testing.T) {
	dev := devicetest.NewDevice()
	r := NewRegistry(dev)
	dst := &devicetest.Buffer{Mem: make([]byte, 32)}
	info := NewBufferInfo(dst, 0, 4, NewData([]byte{1, 2, 3, 4}))
	r.Assign([]*BufferInfo{info})

	var fr FrameResources
	_, err := r.Transfer(&fr)
	require.NoError(t, err)
	staging := fr.Staging.(*devicetest.Buffer)

	fr.Destroy()

	assert.True(t, staging.Destroyed)
	assert.Nil(t, fr.Staging)
	assert.Nil(t, fr.TransferCommandBuffer)
	assert.Nil(t, fr.TransferCompletedSemaphore)
}
