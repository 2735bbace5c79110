package slab

import "testing"

func TestCacheAllocWithoutSlabsFails(t *testing.T) {
	c := NewCache(8, 1)
	if _, err := c.Alloc(); err != ErrNotEnoughMemory {
		t.Fatalf("expected ErrNotEnoughMemory; got %v", err)
	}
}

func TestCacheAllocMovesSlabsBetweenLists(t *testing.T) {
	ptr, _ := pageAlignedBuffer(1)
	c := NewCache(2048, 1)
	if err := c.AddSlab(ptr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	capacity := capacityFor(2048, 1)
	var allocated []uintptr
	for i := uint32(0); i < capacity; i++ {
		addr, err := c.Alloc()
		if err != nil {
			t.Fatalf("alloc %d: unexpected error: %v", i, err)
		}
		allocated = append(allocated, addr)
	}

	if c.empty != nil {
		t.Fatal("expected empty list to be drained")
	}
	if c.partial != nil {
		t.Fatal("expected the fully-allocated slab to have moved out of partial")
	}
	if c.full == nil {
		t.Fatal("expected the slab to be on the full list")
	}

	if _, err := c.Alloc(); err != ErrNotEnoughMemory {
		t.Fatalf("expected ErrNotEnoughMemory once the single slab is full; got %v", err)
	}

	// freeing one object must move the slab from full back to partial
	// and allow the next alloc to succeed.
	if err := c.Free(allocated[0]); err != nil {
		t.Fatalf("unexpected error freeing: %v", err)
	}
	if c.full != nil {
		t.Fatal("expected slab to leave the full list after a free")
	}
	if c.partial == nil {
		t.Fatal("expected slab to be on the partial list after a free")
	}

	if _, err := c.Alloc(); err != nil {
		t.Fatalf("expected alloc to succeed after freeing a slot: %v", err)
	}
}

func TestCacheFreeInvalidPointer(t *testing.T) {
	c := NewCache(8, 1)
	if err := c.Free(0xdeadbeef); err != ErrInvalidPointer {
		t.Fatalf("expected ErrInvalidPointer; got %v", err)
	}
}

func TestCacheFreeMovesSlabFromPartialToEmpty(t *testing.T) {
	ptr, _ := pageAlignedBuffer(1)
	c := NewCache(8, 1)
	if err := c.AddSlab(ptr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	addr, err := c.Alloc()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.partial == nil {
		t.Fatal("expected slab to be on the partial list after one allocation")
	}

	if err := c.Free(addr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.partial != nil {
		t.Fatal("expected slab to leave the partial list once empty again")
	}
	if c.empty == nil {
		t.Fatal("expected slab to be back on the empty list")
	}
}
