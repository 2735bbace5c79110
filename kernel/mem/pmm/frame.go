// Package pmm tracks ownership of physical memory page frames.
package pmm

import (
	"math"

	"kfs/kernel/mem"
)

// Frame identifies a physical memory page by its page-frame number: the
// physical address divided by mem.PageSize.
type Frame uint32

// InvalidFrame is returned by allocators when they fail to reserve a frame.
const InvalidFrame = Frame(math.MaxUint32)

// Valid returns true if this is not InvalidFrame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of this frame.
func (f Frame) Address() uintptr {
	return uintptr(f) << mem.PageShift
}

// FrameFromAddress returns the Frame containing the given physical address.
func FrameFromAddress(addr uintptr) Frame {
	return Frame(addr >> mem.PageShift)
}
