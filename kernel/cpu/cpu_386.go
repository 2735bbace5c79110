// +build 386

// Package cpu exposes the small set of x86 protected-mode primitives that
// the VMM needs and that cannot be expressed in portable Go: interrupt
// masking, TLB invalidation, CR0/CR2/CR3 access and halting the core. Their
// bodies live in arch-specific assembly (not part of this module, same as
// the teacher's GDT/IDT/PIC bring-up) and are declared here without a body
// so the Go compiler emits an external reference.
package cpu

// EnableInterrupts executes STI, allowing maskable interrupts to be
// delivered again.
func EnableInterrupts()

// DisableInterrupts executes CLI, masking all maskable interrupts.
func DisableInterrupts()

// InterruptsEnabled reports whether the IF flag is currently set.
func InterruptsEnabled() bool

// Halt executes HLT, stopping instruction execution until the next
// interrupt.
func Halt()

// InvalidatePage executes INVLPG for the given virtual address, dropping
// any cached TLB translation for it.
func InvalidatePage(virtAddr uintptr)

// LoadCR3 loads CR3 with the physical address of a page directory and
// flushes the entire TLB.
func LoadCR3(pdPhysAddr uintptr)

// ActiveCR3 returns the physical address currently loaded in CR3.
func ActiveCR3() uintptr

// ReadCR2 returns the faulting linear address recorded by the CPU for the
// most recent page fault.
func ReadCR2() uintptr

// EnableWriteProtect sets CR0.WP, causing supervisor-mode writes to
// read-only pages to fault instead of silently succeeding.
func EnableWriteProtect()
