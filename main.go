package main

import "kfs/kernel/kmain"

var multibootInfoPtr uintptr

// main makes a dummy call to the actual kernel main entrypoint function. It
// is intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code.
//
// A global variable is passed as an argument to Kmain to prevent the compiler
// from inlining the actual call and removing Kmain from the generated .o file.
//
// The rt0 assembly trampoline (not part of this module) is responsible for
// passing the real higher-half kernelStart/kernelEnd virtual addresses it
// received from the linker script; until that trampoline is wired in, 0, 0 stands in for
// them here.
func main() {
	kmain.Kmain(multibootInfoPtr, 0, 0)
}
