package slab

import "kfs/kernel"

var (
	// ErrNotEnoughMemory is returned when a cache's empty, partial and
	// full lists hold no slab with a free object.
	ErrNotEnoughMemory = &kernel.Error{Module: "slab", Message: "no free slab available in cache"}

	// ErrInvalidPointer is returned when Free is called with an address
	// that does not fall inside any slab owned by the cache.
	ErrInvalidPointer = &kernel.Error{Module: "slab", Message: "address does not belong to any slab in this cache"}
)

// Cache is a single size-class's pool of slabs, split across three
// intrusive lists: empty (every object free), partial (some allocated, some
// free) and full (every object allocated).
type Cache struct {
	objectSize uint32
	pages      uint32
	empty      *header
	partial    *header
	full       *header
}

// NewCache returns an empty cache for objects of the given size, each slab
// spanning pages pages.
func NewCache(objectSize, pages uint32) *Cache {
	return &Cache{objectSize: objectSize, pages: pages}
}

// AddSlab carves a new slab out of the memory at ptr (already obtained from
// the buddy allocator by the caller) and adds it to the empty list. Growing
// a cache is the caller's policy, not the cache's.
func (c *Cache) AddSlab(ptr uintptr) *kernel.Error {
	h, err := initSlab(ptr, c.objectSize, c.pages)
	if err != nil {
		return err
	}
	h.next = c.empty
	c.empty = h
	return nil
}

// Alloc returns one free object, preferring a partially-used slab over an
// empty one so that empty slabs stay untouched as long as possible.
func (c *Cache) Alloc() (uintptr, *kernel.Error) {
	if c.partial != nil {
		h := c.partial
		addr := h.allocOne()
		if h.isFull() {
			c.partial = h.next
			h.next = c.full
			c.full = h
		}
		return addr, nil
	}

	if c.empty != nil {
		h := c.empty
		c.empty = h.next
		addr := h.allocOne()
		if h.isFull() {
			h.next = c.full
			c.full = h
		} else {
			h.next = c.partial
			c.partial = h
		}
		return addr, nil
	}

	return 0, ErrNotEnoughMemory
}

// Free releases the object at addr back to its owning slab, moving the
// slab between lists as its occupancy crosses a boundary. It returns
// ErrInvalidPointer if addr does not belong to any slab in this cache.
func (c *Cache) Free(addr uintptr) *kernel.Error {
	if h, prev, ok := findInList(c.partial, addr, c.pages); ok {
		h.freeOne(addr)
		if h.isEmpty() {
			unlink(&c.partial, prev, h)
			h.next = c.empty
			c.empty = h
		}
		return nil
	}

	if h, prev, ok := findInList(c.full, addr, c.pages); ok {
		h.freeOne(addr)
		unlink(&c.full, prev, h)
		h.next = c.partial
		c.partial = h
		return nil
	}

	return ErrInvalidPointer
}

// findInList walks a slab list looking for the slab owning addr, returning
// it along with its predecessor (nil if it is the list head).
func findInList(head *header, addr uintptr, pages uint32) (h, prev *header, ok bool) {
	prev = nil
	for cur := head; cur != nil; cur = cur.next {
		if cur.contains(addr, pages) {
			return cur, prev, true
		}
		prev = cur
	}
	return nil, nil, false
}

// unlink removes target from the list rooted at *head, given its
// predecessor (nil if target is the head).
func unlink(head **header, prev, target *header) {
	if prev == nil {
		*head = target.next
		return
	}
	prev.next = target.next
}
