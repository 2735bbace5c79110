package vmm

import (
	"testing"

	"kfs/kernel/mem"
	"kfs/kernel/mem/pmm"
)

func withMockedTLB(t *testing.T) {
	t.Helper()
	origFlush := flushTLBEntryFn
	flushTLBEntryFn = func(uintptr) {}
	t.Cleanup(func() { flushTLBEntryFn = origFlush })
}

func TestMapUnmap(t *testing.T) {
	resetKernelTables(t)
	withMockedTLB(t)

	page := PageFromAddress(0xC0500000)
	kernelPD[pdIndex(page.Address())].SetFlags(FlagPresent | FlagRW)

	if err := Map(page, pmm.Frame(0x55), FlagPresent|FlagRW); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pte := kernelPTs[pdIndex(page.Address())][ptIndex(page.Address())]
	if !pte.HasFlags(FlagPresent | FlagRW) {
		t.Fatal("expected mapped page to be present+RW")
	}
	if got := pte.Frame(); got != pmm.Frame(0x55) {
		t.Fatalf("expected frame 0x55; got 0x%x", got)
	}

	Unmap(page)
	pte = kernelPTs[pdIndex(page.Address())][ptIndex(page.Address())]
	if pte.HasFlags(FlagPresent) {
		t.Fatal("expected page to be unmapped")
	}
}

func TestMapPageDirectoryNotPresent(t *testing.T) {
	resetKernelTables(t)
	withMockedTLB(t)

	page := PageFromAddress(0xC0500000)
	if err := Map(page, pmm.Frame(1), FlagPresent); err != ErrPageDirectoryNotPresent {
		t.Fatalf("expected ErrPageDirectoryNotPresent; got %v", err)
	}
}

func setupMmapFixture(t *testing.T) *pmm.FrameTable {
	t.Helper()
	resetKernelTables(t)
	withMockedTLB(t)

	for pdIdx := kernelPDEBase; pdIdx < 1024; pdIdx++ {
		kernelPD[pdIdx].SetFlags(FlagPresent | FlagRW)
	}

	var table pmm.FrameTable
	table.Init()
	SetFrameTable(&table)
	t.Cleanup(func() { SetFrameTable(nil) })

	return &table
}

func TestMmapVaddrHintNotImplemented(t *testing.T) {
	setupMmapFixture(t)

	if _, err := Mmap(0x1000, mem.PageSize, PermReadWrite, AccessRoot, ModeContinuous); err != ErrNotImplemented {
		t.Fatalf("expected ErrNotImplemented; got %v", err)
	}
}

func TestMmapAccessUserNotImplemented(t *testing.T) {
	setupMmapFixture(t)

	if _, err := Mmap(0, mem.PageSize, PermReadWrite, AccessUser, ModeContinuous); err != ErrNotImplemented {
		t.Fatalf("expected ErrNotImplemented; got %v", err)
	}
}

func TestMmapContinuous(t *testing.T) {
	table := setupMmapFixture(t)

	addr, err := Mmap(0, 2*mem.PageSize, PermReadWrite, AccessRoot, ModeContinuous)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != Page(rootSearchStartPage).Address() {
		t.Fatalf("expected mapping to start at 0x%x; got 0x%x", Page(rootSearchStartPage).Address(), addr)
	}

	for i := 0; i < 2; i++ {
		page := PageFromAddress(addr) + Page(i)
		pte := kernelPTs[pdIndex(page.Address())][ptIndex(page.Address())]
		if !pte.HasFlags(FlagPresent | FlagRW) {
			t.Fatalf("expected page %d to be mapped present+RW", i)
		}
		if owner := table.Owner(pte.Frame()); owner != pmm.OwnerRoot {
			t.Fatalf("expected page %d's frame to be OwnerRoot; got %v", i, owner)
		}
	}
}

func TestMunmapFreesFrames(t *testing.T) {
	table := setupMmapFixture(t)

	addr, err := Mmap(0, mem.PageSize, PermReadWrite, AccessRoot, ModeContinuous)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page := PageFromAddress(addr)
	frame := kernelPTs[pdIndex(page.Address())][ptIndex(page.Address())].Frame()

	if err := Munmap(addr, mem.PageSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pte := kernelPTs[pdIndex(page.Address())][ptIndex(page.Address())]
	if pte.HasFlags(FlagPresent) {
		t.Fatal("expected page to be unmapped after Munmap")
	}
	if owner := table.Owner(frame); owner != pmm.OwnerNone {
		t.Fatalf("expected frame to be freed; got owner %v", owner)
	}
}

func TestMunmapSkipsUnmappedPages(t *testing.T) {
	setupMmapFixture(t)

	// No mapping was ever installed; Munmap over an arbitrary range must
	// not panic or error.
	if err := Munmap(Page(rootSearchStartPage).Address(), 4*mem.PageSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindFreeVirtualRunSkipsPresentPages(t *testing.T) {
	setupMmapFixture(t)

	firstPage := Page(rootSearchStartPage)
	kernelPTs[pdIndex(firstPage.Address())][ptIndex(firstPage.Address())].SetFlags(FlagPresent)

	got, err := findFreeVirtualRun(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := firstPage + 1; got != want {
		t.Fatalf("expected first free page to be %v; got %v", want, got)
	}
}

func TestFindFreeFrameRunNotEnough(t *testing.T) {
	setupMmapFixture(t)

	// Fabricate scarcity: mark everything but the first two frames owned.
	for pfn := pmm.Frame(2); pfn < pmm.Frame(pmm.TotalFrames); pfn++ {
		frameTable.Mark(pfn, pmm.OwnerRoot)
	}

	if _, err := findFreeFrameRun(3); err != ErrNotEnoughMemory {
		t.Fatalf("expected ErrNotEnoughMemory; got %v", err)
	}

	if got, err := findFreeFrameRun(2); err != nil || got != pmm.Frame(0) {
		t.Fatalf("expected frame run starting at 0; got %v, err=%v", got, err)
	}
}

func TestMmapScatteredWithScarcity(t *testing.T) {
	setupMmapFixture(t)

	// Leave only frames 0 and 2 free; Scattered mode must still succeed
	// by picking up both, unlike Continuous which would need frame 1 too.
	frameTable.Mark(pmm.Frame(1), pmm.OwnerRoot)
	for pfn := pmm.Frame(3); pfn < pmm.Frame(pmm.TotalFrames); pfn++ {
		frameTable.Mark(pfn, pmm.OwnerRoot)
	}

	addr, err := Mmap(0, 2*mem.PageSize, PermReadWrite, AccessRoot, ModeScattered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page0 := PageFromAddress(addr)
	page1 := page0 + 1
	f0 := kernelPTs[pdIndex(page0.Address())][ptIndex(page0.Address())].Frame()
	f1 := kernelPTs[pdIndex(page1.Address())][ptIndex(page1.Address())].Frame()
	if f0 != pmm.Frame(0) || f1 != pmm.Frame(2) {
		t.Fatalf("expected frames {0, 2}; got {%v, %v}", f0, f1)
	}
}
