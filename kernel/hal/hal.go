package hal

import (
	"kfs/kernel/driver/tty"
	"kfs/kernel/driver/video/console"
)

const (
	// vgaTextWidth and vgaTextHeight are the standard BIOS VGA 80x25
	// text mode dimensions, always valid the moment protected mode is
	// entered regardless of what the bootloader reports.
	vgaTextWidth  = 80
	vgaTextHeight = 25

	// vgaTextPhysAddr is the fixed physical address of the VGA text mode
	// framebuffer on every PC-compatible machine.
	vgaTextPhysAddr = 0xB8000
)

var (
	egaConsole = &console.Ega{}

	// ActiveTerminal points to the currently active terminal.
	ActiveTerminal = &tty.Vt{}
)

// InitTerminal provides a basic terminal to allow the kernel to emit some
// output till everything is properly setup. The VMM has not run yet at
// this point in boot, so this uses the fixed VGA text buffer address, which
// the boot-time identity map covers, rather than anything multiboot-reported.
// The kernel page directory that vmm.InitKernelPDT builds clears PDE 0 and
// so does not keep that identity mapping.
func InitTerminal() {
	egaConsole.Init(vgaTextWidth, vgaTextHeight, vgaTextPhysAddr)
	ActiveTerminal.AttachTo(egaConsole)
}
