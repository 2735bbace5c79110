package vmm

import (
	"unsafe"

	"kfs/kernel"
	"kfs/kernel/mem/pmm"
)

const (
	// KernelBase is the virtual address the kernel image is linked and
	// loaded at; everything from here up is the higher half.
	KernelBase = 0xC0000000

	// KernelPhysBase is the physical address the boot trampoline loads
	// the kernel image at, before the higher-half jump.
	KernelPhysBase = 0x00100000

	// recursiveDirPDE is the page directory index of the recursive
	// self-map, exposing the active PD at virtual address 0xFFFFF000.
	recursiveDirPDE = 1023

	// kernelPDEBase is the first PDE that maps kernel space (KernelBase
	// >> 22).
	kernelPDEBase = KernelBase >> pdShift
)

// kernelPD and kernelPTs are the kernel's static page directory and the
// 1024 page tables it can point to, zero-initialised package-level arrays
// that the linker places in .bss: per spec, no page
// table is ever frame-allocated at runtime for kernel-space mappings, only
// populated.
var (
	kernelPD  [1024]pageTableEntry
	kernelPTs [1024][1024]pageTableEntry
)

// physOf/virtOf convert between the kernel's higher-half virtual addresses
// and their physical counterparts using the fixed boot-time offset; this
// holds only for statically placed kernel data such as kernelPD/kernelPTs,
// never for dynamically mapped pages.
func physOf(virtAddr uintptr) uintptr {
	return virtAddr - KernelBase + KernelPhysBase
}

func virtOf(physAddr uintptr) uintptr {
	return physAddr - KernelPhysBase + KernelBase
}

// PageDirectoryTable is a handle to a 2-level x86 page directory.
type PageDirectoryTable struct {
	frame pmm.Frame
}

// KernelPDT addresses the kernel's static page directory table.
var KernelPDT PageDirectoryTable

// InitKernelPDT carries out the init_memory sequence for the static kernel
// page directory:
//  1. map each 4 KiB page covering the loaded kernel image, marking its
//     frame Root-owned in the frame table;
//  2. point every kernel PDE at the physical address of its corresponding
//     static page table;
//  3. clear PDE 0, removing the boot-time identity map, and invalidate it;
//  4. enable CR0.WP;
//  5. install the recursive self-map at PDE 1023.
func InitKernelPDT(kernelStartVirt, kernelEndVirt uintptr, table *pmm.FrameTable) *kernel.Error {
	KernelPDT.frame = pmm.FrameFromAddress(physOf(uintptr(unsafe.Pointer(&kernelPD[0]))))

	startPage := PageFromAddress(kernelStartVirt)
	endPage := PageFromAddress(kernelEndVirt)
	for page := startPage; page <= endPage; page++ {
		pdIdx := pdIndex(page.Address())
		ptIdx := ptIndex(page.Address())

		frame := pmm.FrameFromAddress(physOf(page.Address()))
		table.Mark(frame, pmm.OwnerRoot)

		pte := &kernelPTs[pdIdx][ptIdx]
		pte.SetFrame(frame)
		pte.SetFlags(FlagPresent | FlagRW)
	}

	for pdIdx := kernelPDEBase; pdIdx < 1024; pdIdx++ {
		ptPhys := physOf(uintptr(unsafe.Pointer(&kernelPTs[pdIdx][0])))
		pde := &kernelPD[pdIdx]
		pde.SetFrame(pmm.FrameFromAddress(ptPhys))
		pde.SetFlags(FlagPresent | FlagRW)
	}

	kernelPD[0] = 0
	flushTLBEntryFn(0)

	enableWriteProtectFn()

	recursivePDE := &kernelPD[recursiveDirPDE]
	recursivePDE.SetFrame(KernelPDT.frame)
	recursivePDE.SetFlags(FlagPresent | FlagRW)

	return nil
}

// Activate loads this table into CR3, making it the active page directory.
func (pdt PageDirectoryTable) Activate() {
	switchPDTFn(pdt.frame.Address())
}
