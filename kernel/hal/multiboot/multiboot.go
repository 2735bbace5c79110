// Package multiboot decodes the Multiboot 1 information structure that the
// bootloader leaves for the kernel entrypoint: the flags word, the
// conventional/extended memory figures and the BIOS-provided memory map.
package multiboot

import "unsafe"

// infoFlag marks which optional fields of info are present, mirroring the
// Multiboot 1 "flags" word.
type infoFlag uint32

const (
	flagMem  infoFlag = 1 << 0
	flagMmap infoFlag = 1 << 6
)

// info mirrors the fixed-size prefix of the Multiboot 1 information
// structure up to mmapAddr. Only the flags, memory figures and memory map
// fields are read; bootDevice, cmdline, the module list and syms are
// declared only to keep the later fields at their offsets. Drive info,
// config table, bootloader name and VBE/framebuffer tables lie past
// mmapAddr and are not declared.
type info struct {
	flags      infoFlag
	memLower   uint32 // KiB of conventional memory (below 1MiB), valid iff flagMem
	memUpper   uint32 // KiB of extended memory (above 1MiB), valid iff flagMem
	bootDevice uint32
	cmdline    uint32
	modsCount  uint32
	modsAddr   uint32
	syms       [4]uint32
	mmapLength uint32
	mmapAddr   uint32
}

// rawMmapEntry mirrors one entry of the BIOS memory map as described by the
// Multiboot 1 spec: a 32-bit size field (not counting itself) followed by a
// 64-bit address, a 64-bit length and a 32-bit type.
type rawMmapEntry struct {
	size uint32
	addr uint64
	len  uint64
	ty   uint32
}

// MemoryEntryType defines the type of a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemAvailable indicates that the memory region is available for use.
	MemAvailable MemoryEntryType = 1

	// MemReserved indicates that the memory region is not available for
	// use; every multiboot type other than MemAvailable is normalized to
	// this value.
	MemReserved MemoryEntryType = 2
)

// String returns a human readable name for the entry type, used by the
// boot-time memory map dump.
func (t MemoryEntryType) String() string {
	if t == MemAvailable {
		return "available"
	}
	return "reserved"
}

// MemoryMapEntry describes a memory region entry, namely its physical
// address, its length and its type.
type MemoryMapEntry struct {
	// The physical address for this memory region.
	PhysAddress uint64

	// The length of the memory region.
	Length uint64

	// The type of this entry.
	Type MemoryEntryType
}

var infoPtr uintptr

// MemRegionVisitor defines a visitor function that gets invoked by
// VisitMemRegions for each memory region provided by the boot loader. The
// visitor must return true to continue or false to abort the scan.
type MemRegionVisitor func(entry *MemoryMapEntry) bool

// SetInfoPtr updates the internal multiboot information pointer to the
// given value. This function must be invoked before invoking any other
// function exported by this package.
func SetInfoPtr(ptr uintptr) {
	infoPtr = ptr
}

func header() *info {
	return (*info)(unsafe.Pointer(infoPtr))
}

// MemLowerKB returns the amount of conventional (below 1MiB) memory in KiB
// as reported by the bootloader, or 0 if the field is not valid.
func MemLowerKB() uint32 {
	hdr := header()
	if hdr.flags&flagMem == 0 {
		return 0
	}
	return hdr.memLower
}

// MemUpperKB returns the amount of extended (above 1MiB) memory in KiB as
// reported by the bootloader, or 0 if the field is not valid.
func MemUpperKB() uint32 {
	hdr := header()
	if hdr.flags&flagMem == 0 {
		return 0
	}
	return hdr.memUpper
}

// VisitMemRegions will invoke the supplied visitor for each memory region
// that is defined by the multiboot info data that we received from the
// bootloader.
//
// Unlike the Multiboot 2 tag format, entries here are not a fixed size:
// per the Multiboot 1 spec, the next entry starts at current + 4 +
// current.size, since the size field does not count towards its own
// length.
func VisitMemRegions(visitor MemRegionVisitor) {
	hdr := header()
	if hdr.flags&flagMmap == 0 || hdr.mmapLength == 0 {
		return
	}

	curPtr := uintptr(hdr.mmapAddr)
	endPtr := curPtr + uintptr(hdr.mmapLength)

	for curPtr < endPtr {
		raw := (*rawMmapEntry)(unsafe.Pointer(curPtr))

		entry := MemoryMapEntry{
			PhysAddress: raw.addr,
			Length:      raw.len,
			Type:        MemAvailable,
		}

		// Mark any non-available entry type as reserved.
		if raw.ty != uint32(MemAvailable) {
			entry.Type = MemReserved
		}

		if !visitor(&entry) {
			return
		}

		curPtr += uintptr(raw.size) + 4
	}
}
