package common

import (
	"unsafe"
)

// Align rounds offset up to the next multiple of alignment.
// An alignment of 1 (or an already-aligned offset) returns the offset unchanged.
//
// Parameters:
//   - offset: the byte offset to align
//   - alignment: the required alignment in bytes (must be > 0)
//
// Returns:
//   - uint64: the smallest multiple of alignment that is >= offset
func Align(offset, alignment uint64) uint64 {
	if alignment == 1 || offset%alignment == 0 {
		return offset
	}
	return (offset/alignment + 1) * alignment
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}
