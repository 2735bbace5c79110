package pmm

import (
	"kfs/kernel/hal/multiboot"
	"kfs/kernel/mem"
)

// Owner records which memory domain, if any, holds a frame.
type Owner uint8

const (
	// OwnerNone marks a frame as free.
	OwnerNone Owner = iota

	// OwnerRoot marks a frame reserved for kernel (ring 0) use.
	OwnerRoot

	// OwnerUser marks a frame reserved for user-space use.
	OwnerUser
)

// MemoryMax bounds the physical address space the frame table describes:
// the full 32-bit address space of this protected-mode target.
const MemoryMax = 4 * mem.Gb

// TotalFrames is the number of page-frame slots covering [0, MemoryMax).
const TotalFrames = uint32(MemoryMax >> mem.PageShift)

// FrameTable tracks the owner of every physical page frame in
// [0, MemoryMax). A frame whose slot is OwnerNone is free.
//
// slots is a fixed-size array, not a dynamically sized slice: the table
// must be usable from the earliest boot code, before the Go runtime's
// allocator (goruntime.Init) or the kernel heap (kmalloc.Init) exist. A
// package-level array is placed in .bss by the linker and is addressable
// from kernel entry with no further setup.
type FrameTable struct {
	slots [TotalFrames]Owner
}

// Init marks every frame free. Call once, before ApplyBootPolicies.
func (t *FrameTable) Init() {
	for i := range t.slots {
		t.slots[i] = OwnerNone
	}
}

// Mark idempotently sets the owner of pfn. Marking an already-owned frame
// with the same owner is a no-op; marking it with a different owner
// overwrites the slot.
func (t *FrameTable) Mark(pfn Frame, owner Owner) {
	t.slots[pfn] = owner
}

// ReserveRegion marks every frame overlapping [paddr, paddr+length) with
// owner.
func (t *FrameTable) ReserveRegion(paddr, length uint64, owner Owner) {
	if length == 0 {
		return
	}

	start := FrameFromAddress(uintptr(paddr))
	end := FrameFromAddress(uintptr(paddr + length - 1))

	for pfn := start; pfn <= end; pfn++ {
		t.Mark(pfn, owner)
	}
}

// Free marks pfn as free. The caller must have already torn down any
// mapping that referenced this frame.
func (t *FrameTable) Free(pfn Frame) {
	t.slots[pfn] = OwnerNone
}

// Owner returns the current owner of pfn.
func (t *FrameTable) Owner(pfn Frame) Owner {
	return t.slots[pfn]
}

// IterFree invokes visitor once per free frame, in ascending pfn order.
// The scan stops early if visitor returns false.
func (t *FrameTable) IterFree(visitor func(pfn Frame) bool) {
	for i, owner := range t.slots {
		if owner != OwnerNone {
			continue
		}
		if !visitor(Frame(i)) {
			return
		}
	}
}

// ApplyBootPolicies reserves the frames that must never be handed out to an
// allocator, per the three boot-time policies:
//  1. the first megabyte is always Root-reserved.
//  2. every non-available multiboot mmap entry is Root-reserved.
//  3. frames covering [mem_upper, end-of-memory) are Root-reserved, since
//     the BIOS never reported them as usable RAM.
func (t *FrameTable) ApplyBootPolicies() {
	t.ReserveRegion(0, 1*uint64(mem.Mb), OwnerRoot)

	multiboot.VisitMemRegions(func(entry *multiboot.MemoryMapEntry) bool {
		if entry.Type != multiboot.MemAvailable {
			t.ReserveRegion(entry.PhysAddress, entry.Length, OwnerRoot)
		}
		return true
	})

	memUpperEnd := uint64(1*mem.Mb) + uint64(multiboot.MemUpperKB())*uint64(mem.Kb)
	endOfMemory := uint64(MemoryMax)
	if memUpperEnd < endOfMemory {
		t.ReserveRegion(memUpperEnd, endOfMemory-memUpperEnd, OwnerRoot)
	}
}
