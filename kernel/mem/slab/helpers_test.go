package slab

import (
	"unsafe"

	"kfs/kernel/mem"
)

// pageAlignedBuffer allocates a Go byte slice with enough slack to carve a
// page-aligned region of exactly pages pages out of it. The backing slice
// is returned too so that a caller can keep it reachable (and thus
// unreclaimed by the Go GC) while it uses the region.
func pageAlignedBuffer(pages uint32) (ptr uintptr, backing []byte) {
	size := uintptr(pages)*uintptr(mem.PageSize) + uintptr(mem.PageSize)
	backing = make([]byte, size)

	base := uintptr(unsafe.Pointer(&backing[0]))
	aligned := (base + uintptr(mem.PageSize) - 1) &^ uintptr(mem.PageSize-1)

	return aligned, backing
}
