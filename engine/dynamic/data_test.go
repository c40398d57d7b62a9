package dynamic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/strata-go/engine/device/devicetest"
)

func TestDataModificationCounter(t *testing.T) {
	d := NewData([]byte{1, 2, 3})

	// A fresh object counts as modified once so the first transfer copies it.
	assert.Equal(t, uint64(1), d.ModifiedCount())

	d.Set([]byte{4, 5, 6})
	assert.Equal(t, uint64(2), d.ModifiedCount())
	assert.Equal(t, []byte{4, 5, 6}, d.Bytes())

	d.Dirty()
	assert.Equal(t, uint64(3), d.ModifiedCount())
}

func TestBufferInfoNeedsCopyPerDevice(t *testing.T) {
	dst := &devicetest.Buffer{Mem: make([]byte, 16)}
	data := NewData([]byte{1, 2, 3, 4})
	info := NewBufferInfo(dst, 0, 4, data)

	// Each device tracks its own copied state.
	assert.True(t, info.needsCopy(1))
	assert.False(t, info.needsCopy(1))
	assert.True(t, info.needsCopy(2))

	data.Dirty()
	assert.True(t, info.needsCopy(1))
	assert.True(t, info.needsCopy(2))
	assert.False(t, info.needsCopy(2))
}

func TestBufferInfoRefCounting(t *testing.T) {
	dst := &devicetest.Buffer{Mem: make([]byte, 16)}
	info := NewBufferInfo(dst, 0, 4, NewData([]byte{1, 2, 3, 4}))

	assert.Equal(t, int32(1), info.RefCount())
	info.Retain()
	assert.Equal(t, int32(2), info.RefCount())
	info.Release()
	info.Release()
	assert.Zero(t, info.RefCount())
}

func TestNewBufferInfoPanicsOnNilArguments(t *testing.T) {
	dst := &devicetest.Buffer{Mem: make([]byte, 16)}

	assert.Panics(t, func() { NewBufferInfo(nil, 0, 4, NewData(nil)) })
	assert.Panics(t, func() { NewBufferInfo(dst, 0, 4, nil) })
}
