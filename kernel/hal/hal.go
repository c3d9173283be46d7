package hal

import (
	"github.com/mantraos/mantracore/kernel/bootinfo"
	"github.com/mantraos/mantracore/kernel/driver/tty"
	"github.com/mantraos/mantracore/kernel/driver/video/console"
	"github.com/mantraos/mantracore/kernel/mem/vmm"
)

var (
	fbConsole = &console.FrameBuffer{}

	// ActiveTerminal points to the currently active terminal.
	ActiveTerminal = &tty.Vt{}
)

// InitTerminal provides a basic terminal to allow the kernel to emit some
// output till everything else is properly set up. info must already have
// been decoded from the boot record by the caller.
func InitTerminal(info bootinfo.BootInfo) {
	fbConsole.Init(info, mapFramebuffer)
	ActiveTerminal.AttachTo(fbConsole)
}

// mapFramebuffer maps the physical framebuffer range reported by the
// bootloader into the kernel's HHDM window. The GOP framebuffer sits
// outside any region the PMM hands out, so this reads straight through the
// direct map rather than going through a page-table allocation path.
func mapFramebuffer(physBase, size uintptr) []byte {
	return unsafeBytesAt(vmm.PhysToVirt(physBase), size)
}
