// Package pic exposes the 8259 PIC interrupt-mask register as a pair of
// function declarations, the same way kernel/cpu exposes CPU primitives:
// the asm bodies for these live outside this module and are out of scope,
// only the narrow mask/unmask surface that kernel/sync.IRQMaskLock needs is
// modeled here.
package pic

// MaskIRQ sets the PIC mask bit for the given IRQ line, preventing it from
// being delivered.
func MaskIRQ(line uint8)

// UnmaskIRQ clears the PIC mask bit for the given IRQ line, allowing it to
// be delivered again.
func UnmaskIRQ(line uint8)
