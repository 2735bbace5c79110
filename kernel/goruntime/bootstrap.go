// Package goruntime contains code for bootstrapping Go runtime features such
// as the memory allocator.
package goruntime

import (
	"unsafe"

	"kfs/kernel"
	"kfs/kernel/mem"
	"kfs/kernel/mem/vmm"
)

// mmapFn is mocked by tests; it defaults to the VMM's eager mmap. This
// kernel never demand-pages or copies-on-write (an explicit Non-goal: no
// per-process address space objects), so unlike the split reserve/commit
// scheme a user-space allocator needs, every byte of address space the Go
// runtime reserves is immediately backed by real physical frames.
var mmapFn = vmm.Mmap

//go:linkname mSysStatInc runtime.mSysStatInc
func mSysStatInc(*uint64, uintptr)

// Init brings up the Go runtime's memory allocator. The sysReserve/sysMap/
// sysAlloc functions below are wired into the runtime at compile time via
// their go:redirect-from pragmas; Init exists as the step kmain calls to
// mark the point after which make()/append()/goroutines are safe to use,
// and as a place for future runtime bring-up steps to live.
func Init() *kernel.Error {
	return nil
}

// sysReserve reserves address space and backs it with real physical frames
// in the same call: this kernel has no lazy-commit path, so "reserve" and
// "map" collapse into one eager vmm.Mmap.
//
// This function replaces runtime.sysReserve and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysReserve
//go:nosplit
func sysReserve(_ unsafe.Pointer, size uintptr, reserved *bool) unsafe.Pointer {
	regionStartAddr, err := mmapFn(0, mem.Size(size), vmm.PermReadWrite, vmm.AccessRoot, vmm.ModeScattered)
	if err != nil {
		panic(err)
	}

	*reserved = true
	return unsafe.Pointer(regionStartAddr)
}

// sysMap commits a region previously reserved via sysReserve. Since
// sysReserve already fully backs its reservation with real frames, sysMap
// has nothing left to map; it only accounts the commit for runtime stats.
//
// This function replaces runtime.sysMap and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysMap
//go:nosplit
func sysMap(virtAddr unsafe.Pointer, size uintptr, reserved bool, sysStat *uint64) unsafe.Pointer {
	if !reserved {
		panic("sysMap should only be called with reserved=true")
	}

	mSysStatInc(sysStat, size)
	return virtAddr
}

// sysAlloc reserves and maps a region in a single step, for runtime call
// sites that never split reserve from commit.
//
// This function replaces runtime.sysAlloc and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysAlloc
//go:nosplit
func sysAlloc(size uintptr, sysStat *uint64) unsafe.Pointer {
	regionStartAddr, err := mmapFn(0, mem.Size(size), vmm.PermReadWrite, vmm.AccessRoot, vmm.ModeScattered)
	if err != nil {
		return unsafe.Pointer(uintptr(0))
	}

	mSysStatInc(sysStat, size)
	return unsafe.Pointer(regionStartAddr)
}

func init() {
	// Dummy calls so the compiler does not optimize away the functions in
	// this file.
	var (
		reserved bool
		stat     uint64
		zeroPtr  = unsafe.Pointer(uintptr(0))
	)

	sysReserve(zeroPtr, 0, &reserved)
	sysMap(zeroPtr, 0, reserved, &stat)
	sysAlloc(0, &stat)
}
