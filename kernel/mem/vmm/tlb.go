package vmm

import "kfs/kernel/cpu"

// flushTLBEntryFn, switchPDTFn and activePDTFn are mocked by tests and are
// automatically inlined by the compiler in the non-test build.
var (
	flushTLBEntryFn      = cpu.InvalidatePage
	switchPDTFn          = cpu.LoadCR3
	activePDTFn          = cpu.ActiveCR3
	enableWriteProtectFn = cpu.EnableWriteProtect
)
