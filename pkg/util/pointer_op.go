package util

import (
	"unsafe"
)

// Load, PointerAdd, PointerToSlice and BytesSliceToPointer are a small
// set of raw-pointer helpers. HashBytes uses Load and PointerAdd and
// Value.Hash uses BytesSliceToPointer to hash an encoded byte buffer
// without an extra allocation; PointerToSlice has no caller. A larger set of
// off-heap vector pointer arithmetic (Store, Memset, PointerCopy,
// PointerMemcmp, ...) has no caller in a row-level buffer that never
// manages its own backing memory, and is dropped rather than kept unused.
func Load[T any](ptr unsafe.Pointer) T {
	return *(*T)(ptr)
}

func BytesSliceToPointer(data []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(data))
}

func PointerAdd(base unsafe.Pointer, offset int) unsafe.Pointer {
	return unsafe.Add(base, offset)
}

func PointerToSlice[T any](base unsafe.Pointer, len int) []T {
	return unsafe.Slice((*T)(base), len)
}
