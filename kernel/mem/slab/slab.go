// Package slab implements a slab allocator: fixed-size-class caches of
// pre-carved objects threaded through an inline singly-linked free list, the
// way a kernel heap amortizes the cost of the underlying page allocator for
// small, frequently allocated objects.
package slab

import (
	"unsafe"

	"kfs/kernel"
	"kfs/kernel/mem"
)

var (
	// ErrInvalidSlabAddress is returned when initSlab is asked to carve a
	// slab at an address that is not page-aligned.
	ErrInvalidSlabAddress = &kernel.Error{Module: "slab", Message: "slab address is not page-aligned"}
)

// header sits at the start of every slab, followed by padding out to an
// 8-byte boundary and then the slab's objects. capacity is not one of the
// fields the design calls out by name, but storing it avoids recomputing it
// on every allocation from (objectSize, pages).
type header struct {
	next         *header
	objectSize   uint32
	capacity     uint32
	allocated    uint32
	freeListNext uintptr
}

// headerSize is sizeof(header) rounded up to an 8-byte boundary.
const headerSize = (unsafe.Sizeof(header{}) + 7) &^ 7

// capacityFor returns the number of objectSize-sized objects that fit in a
// slab spanning pages pages, after the header.
func capacityFor(objectSize uint32, pages uint32) uint32 {
	usable := uint64(pages)*uint64(mem.PageSize) - uint64(headerSize)
	return uint32(usable / uint64(objectSize))
}

// headerAt reinterprets the memory at ptr as a slab header. ptr must be
// page-aligned and own at least one page.
func headerAt(ptr uintptr) *header {
	return (*header)(unsafe.Pointer(ptr))
}

// initSlab writes a fresh header at ptr and threads every object in the
// slab onto the free list, each object's first machine word holding the
// address of the next free object (zero terminates the list).
func initSlab(ptr uintptr, objectSize uint32, pages uint32) (*header, *kernel.Error) {
	if ptr&uintptr(mem.PageSize-1) != 0 {
		return nil, ErrInvalidSlabAddress
	}

	h := headerAt(ptr)
	h.next = nil
	h.objectSize = objectSize
	h.capacity = capacityFor(objectSize, pages)
	h.allocated = 0

	base := ptr + uintptr(headerSize)
	for i := uint32(0); i < h.capacity; i++ {
		obj := base + uintptr(i)*uintptr(objectSize)
		var nextObj uintptr
		if i+1 < h.capacity {
			nextObj = base + uintptr(i+1)*uintptr(objectSize)
		}
		*(*uintptr)(unsafe.Pointer(obj)) = nextObj
	}
	h.freeListNext = base

	return h, nil
}

// isFull reports whether every object in the slab is currently allocated.
func (h *header) isFull() bool {
	return h.allocated == h.capacity
}

// isEmpty reports whether every object in the slab is currently free.
func (h *header) isEmpty() bool {
	return h.allocated == 0
}

// contains reports whether addr falls within this slab's page range.
func (h *header) contains(addr uintptr, pages uint32) bool {
	base := uintptr(unsafe.Pointer(h))
	end := base + uintptr(pages)*uintptr(mem.PageSize)
	return addr >= base && addr < end
}

// allocOne pops the head of the free list. The caller must have already
// verified the slab is not full.
func (h *header) allocOne() uintptr {
	obj := h.freeListNext
	h.freeListNext = *(*uintptr)(unsafe.Pointer(obj))
	h.allocated++
	return obj
}

// freeOne pushes addr back onto the head of the free list.
func (h *header) freeOne(addr uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = h.freeListNext
	h.freeListNext = addr
	h.allocated--
}
