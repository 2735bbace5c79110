// Package sync provides the scoped interrupt-control primitives the VMM
// uses to bracket mutations of global allocator state on this single-CPU,
// cooperatively scheduled kernel: InterruptLock (cli/sti) and IRQMaskLock
// (per-line PIC mask). Unlike kernel/sync.Spinlock in a multi-core kernel,
// neither type busy-waits: there is only one CPU, so "acquiring" a lock
// that is already held can only mean a programming error, not contention.
package sync

import (
	"kfs/kernel"
	"kfs/kernel/cpu"
)

// ErrInterruptLockHeld is raised when code attempts to acquire an
// InterruptLock that is already held by the current (only) CPU.
var ErrInterruptLockHeld = &kernel.Error{Module: "sync", Message: "interrupt lock already held"}

// disableInterruptsFn, enableInterruptsFn and panicFn are mocked by tests.
var (
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts
	panicFn             = kernel.Panic
)

// InterruptLock disables maskable interrupts for its holder and restores
// them on release. It has no queue and no busy-wait: since the kernel is
// single-CPU and cooperatively scheduled, the only way to contend for it is
// to acquire it twice from the same call stack, which is a bug and panics
// rather than deadlocking.
type InterruptLock struct {
	held bool
}

// Acquire disables interrupts and marks the lock held. Calling Acquire
// while already held is a programming error and panics via kernel.Panic.
func (l *InterruptLock) Acquire() {
	if l.held {
		panicFn(ErrInterruptLockHeld)
	}

	disableInterruptsFn()
	l.held = true
}

// Release re-enables interrupts and marks the lock free. Calling Release
// while not held has no effect.
func (l *InterruptLock) Release() {
	if !l.held {
		return
	}

	l.held = false
	enableInterruptsFn()
}

// Held reports whether the lock is currently held.
func (l *InterruptLock) Held() bool {
	return l.held
}
