package kmain

import (
	"kfs/kernel"
	"kfs/kernel/goruntime"
	"kfs/kernel/hal"
	"kfs/kernel/hal/multiboot"
	"kfs/kernel/kfmt"
	"kfs/kernel/mem/kmalloc"
	"kfs/kernel/mem/pmm"
	"kfs/kernel/mem/vmm"
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	// frameTable is process-global for the kernel's lifetime: the frame
	// table, kernel page tables, buddy state and slab caches are never
	// torn down.
	frameTable pmm.FrameTable
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the GDT and a minimal g0 struct that allows Go code
// using the 4 KiB stack allocated by the assembly code.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the bootloader as well as the higher-half virtual addresses for the
// kernel start/end, which vmm.InitKernelPDT expects.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the
// CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	hal.InitTerminal()
	hal.ActiveTerminal.Clear()
	kfmt.Printf("starting kfs\n")

	// 1. frame table: a static array, usable immediately; no allocation
	//    of any kind is required to bring it up.
	frameTable.Init()
	frameTable.ApplyBootPolicies()

	// 2. static kernel page directory/tables, then switch CR3 to it and
	//    enable CR0.WP.
	if err := vmm.InitKernelPDT(kernelStart, kernelEnd, &frameTable); err != nil {
		kernel.Panic(err)
	}
	vmm.SetFrameTable(&frameTable)
	vmm.KernelPDT.Activate()

	// 3. bring up the Go runtime's own allocator. From this point on
	//    make()/append()/goroutines are available. This must run before
	//    kmalloc.Init: the Go runtime's sysReserve/sysAlloc hooks route
	//    through vmm.Mmap, and the kernel heap in turn needs the Go
	//    runtime up to track its own bookkeeping slices.
	if err := goruntime.Init(); err != nil {
		kernel.Panic(err)
	}

	// 4. kernel heap: buddy arena + initial slabs for every size class.
	if err := kmalloc.Init(); err != nil {
		kernel.Panic(err)
	}

	kfmt.Printf("kfs ready\n")

	// Use kernel.Panic instead of panic to prevent the compiler from
	// treating kernel.Panic as dead-code and eliminating it.
	kernel.Panic(errKmainReturned)
}
