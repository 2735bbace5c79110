package sync

import "kfs/kernel/hal/pic"

// maskIRQFn and unmaskIRQFn are mocked by tests.
var (
	maskIRQFn   = pic.MaskIRQ
	unmaskIRQFn = pic.UnmaskIRQ
)

// IRQMaskLock guards mutation of a single IRQ line's handler table by
// masking that line at the PIC for the duration of the critical section,
// rather than disabling interrupts globally like InterruptLock does.
type IRQMaskLock struct {
	line uint8
	held bool
}

// NewIRQMaskLock returns a lock that masks the given IRQ line while held.
func NewIRQMaskLock(line uint8) *IRQMaskLock {
	return &IRQMaskLock{line: line}
}

// Acquire sets the PIC mask bit for the lock's IRQ line.
func (l *IRQMaskLock) Acquire() {
	maskIRQFn(l.line)
	l.held = true
}

// Release clears the PIC mask bit for the lock's IRQ line. Calling Release
// while not held has no effect.
func (l *IRQMaskLock) Release() {
	if !l.held {
		return
	}

	l.held = false
	unmaskIRQFn(l.line)
}
