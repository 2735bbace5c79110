package slab

import "kfs/kernel"

// ErrNoMatchingClass is returned when a requested size exceeds the largest
// size class the slab allocator serves; callers above this layer fall back
// to the buddy allocator directly.
var ErrNoMatchingClass = &kernel.Error{Module: "slab", Message: "no size class fits the requested size"}

// SizeClass describes one of the allocator's fixed object sizes and how
// many pages a slab of that class spans. Classes 8..256 B use a 1-page
// slab; from 256 B up the page count doubles with the object size, so the
// 256..2048 B classes each hold 15 objects and no class leaves more than
// 1/16 of its slab to the header and unused tail.
type SizeClass struct {
	ObjectSize uint32
	Pages      uint32
}

// sizeClasses is the allocator's fixed size-class table, in ascending
// order. Classes are checked in order so the first with ObjectSize >= the
// requested size wins.
var sizeClasses = [...]SizeClass{
	{ObjectSize: 8, Pages: 1},
	{ObjectSize: 16, Pages: 1},
	{ObjectSize: 32, Pages: 1},
	{ObjectSize: 64, Pages: 1},
	{ObjectSize: 128, Pages: 1},
	{ObjectSize: 256, Pages: 1},
	{ObjectSize: 512, Pages: 2},
	{ObjectSize: 1024, Pages: 4},
	{ObjectSize: 2048, Pages: 8},
}

// MaxObjectSize is the largest size this allocator will serve directly.
const MaxObjectSize = 2048

// SizeClasses returns the allocator's size-class table, for kmalloc.Init to
// iterate while populating each class's initial slabs.
func SizeClasses() []SizeClass {
	return sizeClasses[:]
}

// Allocator dispatches allocations to the smallest size class that fits,
// and routes frees to whichever class's cache owns the address.
type Allocator struct {
	caches [len(sizeClasses)]*Cache
}

// NewAllocator returns an allocator with one empty cache per size class.
// Each cache must be grown with AddSlab before it can serve an allocation.
func NewAllocator() *Allocator {
	a := &Allocator{}
	for i, class := range sizeClasses {
		a.caches[i] = NewCache(class.ObjectSize, class.Pages)
	}
	return a
}

// classIndexFor returns the index of the smallest size class able to hold
// size bytes.
func classIndexFor(size uint32) (int, bool) {
	for i, class := range sizeClasses {
		if class.ObjectSize >= size {
			return i, true
		}
	}
	return 0, false
}

// AddSlab grows the cache for the size class that owns objectSize by one
// slab carved out of the memory at ptr.
func (a *Allocator) AddSlab(objectSize uint32, ptr uintptr) *kernel.Error {
	idx, ok := classIndexFor(objectSize)
	if !ok || sizeClasses[idx].ObjectSize != objectSize {
		return ErrNoMatchingClass
	}
	return a.caches[idx].AddSlab(ptr)
}

// Alloc returns an object from the smallest size class that fits size, or
// ErrNoMatchingClass if size exceeds MaxObjectSize.
func (a *Allocator) Alloc(size uint32) (uintptr, *kernel.Error) {
	idx, ok := classIndexFor(size)
	if !ok {
		return 0, ErrNoMatchingClass
	}
	return a.caches[idx].Alloc()
}

// Free tries every size class's cache in turn and releases addr from
// whichever one owns it. It returns ErrInvalidPointer if no cache does.
func (a *Allocator) Free(addr uintptr) *kernel.Error {
	for _, cache := range a.caches {
		if err := cache.Free(addr); err == nil {
			return nil
		} else if err != ErrInvalidPointer {
			return err
		}
	}
	return ErrInvalidPointer
}
