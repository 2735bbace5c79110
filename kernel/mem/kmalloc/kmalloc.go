// Package kmalloc implements the kernel heap: small requests are served by
// a slab allocator's fixed size classes, large requests go straight to a
// buddy allocator over a single arena obtained from the VMM.
package kmalloc

import (
	"kfs/kernel"
	"kfs/kernel/mem"
	"kfs/kernel/mem/buddy"
	"kfs/kernel/mem/slab"
	"kfs/kernel/mem/vmm"
)

// BuddyArenaSize is the size of the single contiguous arena kmalloc.Init
// carves out via vmm.Mmap and hands to the buddy allocator. Not specified
// numerically upstream; 4 MiB comfortably covers the initial slabs for
// every size class with room for large direct-to-buddy allocations.
const BuddyArenaSize = 4 * mem.Mb

// initialSlabsPerClass is how many slabs kmalloc.Init pre-populates for
// each slab size class before the heap starts serving allocations.
const initialSlabsPerClass = 1

var (
	// ErrNotEnoughMemory is returned by Init if the arena cannot be
	// mapped or cannot seed every size class's initial slabs, and by
	// Kmalloc if the layer serving the request (slab for sizes up to
	// slab.MaxObjectSize, buddy above) cannot satisfy it.
	ErrNotEnoughMemory = &kernel.Error{Module: "kmalloc", Message: "not enough memory"}

	// ErrInvalidPointer is returned by Kfree when ptr was not allocated
	// by this heap.
	ErrInvalidPointer = &kernel.Error{Module: "kmalloc", Message: "invalid pointer"}
)

var (
	arena   *buddy.Allocator
	objects *slab.Allocator
)

// mmapFn is mocked by tests so Init can be exercised without standing up
// the full VMM (static page tables, frame table, TLB hooks).
var mmapFn = vmm.Mmap

// Init carries out the kmalloc::init sequence: map the arena, hand its base
// to the buddy allocator, then seed each slab size class with its initial
// slabs. Init must run after goruntime.Init, since the buddy allocator's
// bitmaps and the slab allocator's caches are allocated on the Go heap.
func Init() *kernel.Error {
	base, err := mmapFn(0, BuddyArenaSize, vmm.PermReadWrite, vmm.AccessRoot, vmm.ModeContinuous)
	if err != nil {
		return ErrNotEnoughMemory
	}

	a, newErr := buddy.New(BuddyArenaSize)
	if newErr != nil {
		return ErrNotEnoughMemory
	}
	a.SetRoot(base)

	o := slab.NewAllocator()
	for _, class := range slab.SizeClasses() {
		slabSize := mem.Size(class.Pages) * mem.PageSize
		for i := 0; i < initialSlabsPerClass; i++ {
			ptr, allocErr := a.Alloc(slabSize)
			if allocErr != nil {
				return ErrNotEnoughMemory
			}
			if addErr := o.AddSlab(class.ObjectSize, ptr); addErr != nil {
				return ErrNotEnoughMemory
			}
		}
	}

	arena = a
	objects = o
	return nil
}

// Kmalloc allocates size bytes from the kernel heap. Requests up to
// slab.MaxObjectSize are served by the slab allocator's size classes;
// larger requests are rounded up to a page multiple and served directly by
// the buddy allocator.
func Kmalloc(size uint32) (uintptr, *kernel.Error) {
	if size <= slab.MaxObjectSize {
		ptr, err := objects.Alloc(size)
		if err != nil {
			return 0, ErrNotEnoughMemory
		}
		return ptr, nil
	}

	pages := mem.Size(size).Pages()
	ptr, err := arena.Alloc(mem.Size(pages) * mem.PageSize)
	if err != nil {
		return 0, ErrNotEnoughMemory
	}
	return ptr, nil
}

// Kfree releases a pointer previously returned by Kmalloc. It tries the
// slab allocator first: every slab's address range is a strict subset of
// the buddy arena, so a slab hit always short-circuits the buddy walk.
func Kfree(ptr uintptr) *kernel.Error {
	if err := objects.Free(ptr); err == nil {
		return nil
	} else if err != slab.ErrInvalidPointer {
		return ErrNotEnoughMemory
	}

	if err := arena.Free(ptr); err != nil {
		return ErrInvalidPointer
	}
	return nil
}
