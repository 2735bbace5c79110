package vmm

import (
	"testing"

	"kfs/kernel/mem"
	"kfs/kernel/mem/pmm"
)

// resetKernelTables clears the package-level static page tables so tests do
// not leak state into one another; kernelPD/kernelPTs stand in for
// linker-placed .data symbols and are shared across the whole test binary.
func resetKernelTables(t *testing.T) {
	t.Helper()
	var zeroPD [1024]pageTableEntry
	var zeroPTs [1024][1024]pageTableEntry
	kernelPD = zeroPD
	kernelPTs = zeroPTs
	t.Cleanup(func() {
		kernelPD = zeroPD
		kernelPTs = zeroPTs
	})
}

func TestInitKernelPDT(t *testing.T) {
	resetKernelTables(t)

	var wpCalls, flushCalls int
	var flushedAddr uintptr
	origWP, origFlush := enableWriteProtectFn, flushTLBEntryFn
	enableWriteProtectFn = func() { wpCalls++ }
	flushTLBEntryFn = func(addr uintptr) { flushCalls++; flushedAddr = addr }
	t.Cleanup(func() {
		enableWriteProtectFn = origWP
		flushTLBEntryFn = origFlush
	})

	var table pmm.FrameTable
	table.Init()

	start := uintptr(KernelBase)
	end := uintptr(KernelBase) + 2*uintptr(mem.PageSize) - 1

	if err := InitKernelPDT(start, end, &table); err != nil {
		t.Fatalf("InitKernelPDT: unexpected error %v", err)
	}

	for pdIdx := kernelPDEBase; pdIdx < 1024; pdIdx++ {
		if !kernelPD[pdIdx].HasFlags(FlagPresent | FlagRW) {
			t.Fatalf("expected kernel PDE %d to be present+RW", pdIdx)
		}
	}

	if kernelPD[0] != 0 {
		t.Fatal("expected PDE 0 to be cleared")
	}

	firstPage := PageFromAddress(start)
	pdIdx := pdIndex(firstPage.Address())
	ptIdx := ptIndex(firstPage.Address())
	pte := kernelPTs[pdIdx][ptIdx]
	if !pte.HasFlags(FlagPresent | FlagRW) {
		t.Fatal("expected first kernel image page to be mapped present+RW")
	}
	if got, want := pte.Frame(), pmm.FrameFromAddress(physOf(firstPage.Address())); got != want {
		t.Fatalf("expected frame %v; got %v", want, got)
	}
	if owner := table.Owner(pte.Frame()); owner != pmm.OwnerRoot {
		t.Fatalf("expected kernel image frame to be marked OwnerRoot; got %v", owner)
	}

	recursivePDE := kernelPD[recursiveDirPDE]
	if !recursivePDE.HasFlags(FlagPresent | FlagRW) {
		t.Fatal("expected recursive self-map PDE to be present+RW")
	}
	if got := recursivePDE.Frame(); got != KernelPDT.frame {
		t.Fatalf("expected recursive PDE to point at %v; got %v", KernelPDT.frame, got)
	}

	if wpCalls != 1 {
		t.Fatalf("expected enableWriteProtectFn to be called once; got %d", wpCalls)
	}
	if flushCalls == 0 {
		t.Fatal("expected at least one TLB flush")
	}
	if flushedAddr != 0 {
		t.Fatalf("expected PDE 0 invalidation to flush address 0; got 0x%x", flushedAddr)
	}
}

func TestPageDirectoryTableActivate(t *testing.T) {
	resetKernelTables(t)

	var switched uintptr
	orig := switchPDTFn
	switchPDTFn = func(addr uintptr) { switched = addr }
	t.Cleanup(func() { switchPDTFn = orig })

	pdt := PageDirectoryTable{frame: pmm.Frame(7)}
	pdt.Activate()

	if switched != pmm.Frame(7).Address() {
		t.Fatalf("expected Activate to load CR3 with 0x%x; got 0x%x", pmm.Frame(7).Address(), switched)
	}
}
