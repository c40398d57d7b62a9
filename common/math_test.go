package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlign(t *testing.T) {
	tests := []struct {
		name      string
		offset    uint64
		alignment uint64
		want      uint64
	}{
		{name: "zero stays zero", offset: 0, alignment: 4, want: 0},
		{name: "already aligned", offset: 16, alignment: 4, want: 16},
		{name: "rounds up", offset: 10, alignment: 4, want: 12},
		{name: "one past boundary", offset: 13, alignment: 4, want: 16},
		{name: "alignment of one", offset: 13, alignment: 1, want: 13},
		{name: "large alignment", offset: 100, alignment: 256, want: 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Align(tt.offset, tt.alignment))
		})
	}
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes[uint32](nil))

	got := SliceToBytes([]uint32{0x04030201})
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, got)
}

func TestStructToBytes(t *testing.T) {
	type header struct {
		A uint32
		B uint32
	}
	h := header{A: 1, B: 2}

	got := StructToBytes(&h)

	assert.Len(t, got, 8)
	assert.Equal(t, byte(1), got[0])
	assert.Equal(t, byte(2), got[4])
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 5, Coalesce(0, 5, 7))
	assert.Equal(t, "a", Coalesce("", "a"))
	assert.Zero(t, Coalesce(0, 0))
}
