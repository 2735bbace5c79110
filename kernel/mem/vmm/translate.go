package vmm

import "kfs/kernel"

var (
	// ErrPageDirectoryNotPresent is returned when the PDE covering a
	// virtual address has no present flag.
	ErrPageDirectoryNotPresent = &kernel.Error{Module: "vmm", Message: "page directory entry not present"}

	// ErrPageNotPresent is returned when the PTE covering a virtual
	// address has no present flag.
	ErrPageNotPresent = &kernel.Error{Module: "vmm", Message: "page table entry not present"}
)

// Translate walks the static kernel page tables and returns the physical
// address that corresponds to virtAddr, or an error if no mapping exists.
func Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	pde := kernelPD[pdIndex(virtAddr)]
	if !pde.HasFlags(FlagPresent) {
		return 0, ErrPageDirectoryNotPresent
	}

	if pde.HasFlags(FlagPS) {
		return pde.Frame().Address() | (virtAddr & largePageOffsetMask), nil
	}

	pte := kernelPTs[pdIndex(virtAddr)][ptIndex(virtAddr)]
	if !pte.HasFlags(FlagPresent) {
		return 0, ErrPageNotPresent
	}

	return pte.Frame().Address() | (virtAddr & offsetMask), nil
}
