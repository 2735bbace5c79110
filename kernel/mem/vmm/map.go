package vmm

import (
	"kfs/kernel"
	"kfs/kernel/mem"
	"kfs/kernel/mem/pmm"
)

// Perm is the access permission requested for a mapping.
type Perm uint8

const (
	// PermRead maps pages without the RW flag.
	PermRead Perm = iota

	// PermReadWrite maps pages with the RW flag.
	PermReadWrite
)

// AccessLevel selects which virtual region a mapping is searched in.
type AccessLevel uint8

const (
	// AccessRoot searches [KernelBase/PageSize, MemoryMax-1).
	AccessRoot AccessLevel = iota

	// AccessUser would search [1, KernelBase), but this kernel has no
	// notion of a per-process address space (an explicit spec
	// Non-goal), so AccessUser is not implemented.
	AccessUser
)

// MapMode controls whether the backing physical frames must be contiguous.
type MapMode uint8

const (
	// ModeContinuous requires the N backing frames to be physically
	// contiguous.
	ModeContinuous MapMode = iota

	// ModeScattered allows any N free frames, without a contiguity
	// requirement.
	ModeScattered
)

var (
	// ErrVaddrRangeNotAvailable is returned when no N-page virtual hole
	// exists in the requested region.
	ErrVaddrRangeNotAvailable = &kernel.Error{Module: "vmm", Message: "no virtual address range available"}

	// ErrNotEnoughMemory is returned when fewer than N free frames of
	// the requested mode are available.
	ErrNotEnoughMemory = &kernel.Error{Module: "vmm", Message: "not enough physical memory"}

	// ErrNotImplemented is returned for any mapping request this VMM
	// does not support: a fixed-address hint, or AccessUser.
	ErrNotImplemented = &kernel.Error{Module: "vmm", Message: "not implemented"}
)

// frameTable is the process-global frame table Mmap/Munmap consult for
// physical frame search and release.
var frameTable *pmm.FrameTable

// SetFrameTable registers the frame table instance Mmap/Munmap operate on.
func SetFrameTable(t *pmm.FrameTable) {
	frameTable = t
}

// rootSearchStartPage is the first page of the Root virtual search region.
const rootSearchStartPage = KernelBase >> ptShift

// Map installs a single page-to-frame mapping in the static kernel page
// tables and invalidates any stale TLB entry for the page.
func Map(page Page, frame pmm.Frame, flags PageTableEntryFlag) *kernel.Error {
	pdIdx := pdIndex(page.Address())
	if !kernelPD[pdIdx].HasFlags(FlagPresent) {
		return ErrPageDirectoryNotPresent
	}

	pte := &kernelPTs[pdIdx][ptIndex(page.Address())]
	pte.SetFrame(frame)
	pte.SetFlags(flags)
	flushTLBEntryFn(page.Address())
	return nil
}

// Unmap clears a single page's mapping in the static kernel page tables and
// invalidates its TLB entry. Unmapping a page that was never mapped is a
// no-op.
func Unmap(page Page) {
	pdIdx := pdIndex(page.Address())
	pte := &kernelPTs[pdIdx][ptIndex(page.Address())]
	*pte = 0
	flushTLBEntryFn(page.Address())
}

// Mmap reserves N = ceil(size/PageSize) contiguous virtual pages and maps
// them to N physical frames, per mode's contiguity requirement. A
// fixed-address hint is not implemented; callers must pass vaddrHint as 0.
//
// Mmap never allocates from the Go heap: it is called during
// goruntime.Init, before the Go allocator itself is available, to back the
// runtime's own initial arena reservations.
func Mmap(vaddrHint uintptr, size mem.Size, perm Perm, access AccessLevel, mode MapMode) (uintptr, *kernel.Error) {
	if vaddrHint != 0 {
		return 0, ErrNotImplemented
	}
	if access == AccessUser {
		return 0, ErrNotImplemented
	}

	n := size.Pages()

	startPage, err := findFreeVirtualRun(n)
	if err != nil {
		return 0, err
	}

	flags := FlagPresent
	if perm == PermReadWrite {
		flags |= FlagRW
	}

	if mode == ModeContinuous {
		runStart, err := findFreeFrameRun(n)
		if err != nil {
			return 0, err
		}
		for i := uint32(0); i < n; i++ {
			frame := runStart + pmm.Frame(i)
			page := startPage + Page(i)
			if err := Map(page, frame, flags); err != nil {
				rollbackMapping(startPage, i)
				return 0, err
			}
			frameTable.Mark(frame, pmm.OwnerRoot)
		}
		return startPage.Address(), nil
	}

	var mapped uint32
	pfn := pmm.Frame(0)
	for mapped < n {
		for pfn < pmm.Frame(pmm.TotalFrames) && frameTable.Owner(pfn) != pmm.OwnerNone {
			pfn++
		}
		if pfn >= pmm.Frame(pmm.TotalFrames) {
			rollbackMapping(startPage, mapped)
			return 0, ErrNotEnoughMemory
		}

		page := startPage + Page(mapped)
		if err := Map(page, pfn, flags); err != nil {
			rollbackMapping(startPage, mapped)
			return 0, err
		}
		frameTable.Mark(pfn, pmm.OwnerRoot)
		mapped++
		pfn++
	}

	return startPage.Address(), nil
}

// rollbackMapping undoes the first n pages of a partially completed Mmap,
// unmapping each page and freeing its backing frame.
func rollbackMapping(startPage Page, n uint32) {
	for i := uint32(0); i < n; i++ {
		page := startPage + Page(i)
		frame := kernelPTs[pdIndex(page.Address())][ptIndex(page.Address())].Frame()
		Unmap(page)
		frameTable.Free(frame)
	}
}

// Munmap clears the mapping for each page in [vaddr, vaddr+size) and frees
// its backing frame. Pages in the range that are not currently mapped are
// silently skipped.
func Munmap(vaddr uintptr, size mem.Size) *kernel.Error {
	n := size.Pages()
	startPage := PageFromAddress(vaddr)

	for i := uint32(0); i < n; i++ {
		page := startPage + Page(i)
		pdIdx := pdIndex(page.Address())
		pte := kernelPTs[pdIdx][ptIndex(page.Address())]
		if !pte.HasFlags(FlagPresent) {
			continue
		}

		frame := pte.Frame()
		Unmap(page)
		frameTable.Free(frame)
	}

	return nil
}

// findFreeVirtualRun performs a linear first-fit scan over kernel_pts for n
// contiguous unmapped pages starting at rootSearchStartPage, skipping past
// the last present page inside any failed window.
func findFreeVirtualRun(n uint32) (Page, *kernel.Error) {
	pageIdx := uint32(rootSearchStartPage)
	maxPage := pmm.TotalFrames

	for pageIdx+n <= maxPage {
		lastPresent, ok := uint32(0), false

		for i := n; i > 0; i-- {
			if isPagePresent(Page(pageIdx + i - 1)) {
				lastPresent, ok = pageIdx+i-1, true
				break
			}
		}

		if !ok {
			return Page(pageIdx), nil
		}

		pageIdx = lastPresent + 1
	}

	return 0, ErrVaddrRangeNotAvailable
}

// isPagePresent reports whether page currently has a mapping.
func isPagePresent(page Page) bool {
	pde := kernelPD[pdIndex(page.Address())]
	if !pde.HasFlags(FlagPresent) {
		return false
	}
	if pde.HasFlags(FlagPS) {
		return true
	}
	return kernelPTs[pdIndex(page.Address())][ptIndex(page.Address())].HasFlags(FlagPresent)
}

// findFreeFrameRun performs a linear first-fit scan over the frame table
// for n physically contiguous free frames and returns the first one.
func findFreeFrameRun(n uint32) (pmm.Frame, *kernel.Error) {
	var runStart pmm.Frame
	var runLen uint32

	for pfn := pmm.Frame(0); pfn < pmm.Frame(pmm.TotalFrames); pfn++ {
		if frameTable.Owner(pfn) != pmm.OwnerNone {
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = pfn
		}
		runLen++
		if runLen == n {
			return runStart, nil
		}
	}

	return 0, ErrNotEnoughMemory
}
