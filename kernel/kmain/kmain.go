package kmain

import (
	"github.com/mantraos/mantracore/kernel"
	"github.com/mantraos/mantracore/kernel/bootinfo"
	"github.com/mantraos/mantracore/kernel/cpu"
	"github.com/mantraos/mantracore/kernel/gdt"
	"github.com/mantraos/mantracore/kernel/goruntime"
	"github.com/mantraos/mantracore/kernel/hal"
	"github.com/mantraos/mantracore/kernel/heap"
	"github.com/mantraos/mantracore/kernel/idt"
	"github.com/mantraos/mantracore/kernel/kfmt/early"
	"github.com/mantraos/mantracore/kernel/mem/pmm"
	"github.com/mantraos/mantracore/kernel/mem/vmm"
	"github.com/mantraos/mantracore/kernel/pic"
	"github.com/mantraos/mantracore/kernel/pit"
	"github.com/mantraos/mantracore/kernel/serial"
	"github.com/mantraos/mantracore/kernel/syscall"
	"github.com/mantraos/mantracore/kernel/trap"
	"github.com/mantraos/mantracore/kernel/user"
)

var (
	errKmainReturned  = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errBadBootRecord  = &kernel.Error{Module: "kmain", Message: "invalid or missing boot record"}
	errAllocForPaging = &kernel.Error{Module: "kmain", Message: "out of physical memory while building the kernel's own page tables"}

	// timerHz is the scheduler's preemption tick rate.
	timerHz = uint32(100)
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the GDT and a minimal g0 struct that allows Go code to
// run on the 4 KiB stack allocated by the assembly code.
//
// The rt0 code passes the address of the boot record produced by the UEFI
// loader; everything else Kmain needs (kernel image extent, memory map,
// framebuffer) is decoded from that one record.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the
// CPU.
//
//go:noinline
func Kmain(bootInfoPtr uintptr) {
	serial.Init()

	info, ok := bootinfo.Decode(bootInfoPtr)
	if !ok {
		// No framebuffer geometry to trust yet, so hal.ActiveTerminal isn't
		// attached to anything; fall back to the serial port directly
		// rather than going through kernel.Panic/early.Printf.
		serial.WriteString("kmain: invalid or missing boot record\n")
		cpu.Halt()
	}

	hal.InitTerminal(info)
	hal.ActiveTerminal.Clear()
	early.Printf("booting\n")

	stats, err := pmm.Init(info.Regions)
	if err != nil {
		kernel.Panic(err)
	}
	early.Printf("pmm: %d usable bytes across %d ranges\n", stats.UsableBytes, stats.RangeCount)

	maxPhysInclusive := maxPhysAddress(info)
	if err := vmm.Init(maxPhysInclusive, allocFrame); err != nil {
		kernel.Panic(err)
	}
	early.Printf("vmm: paging enabled, HHDM covers up to %x\n", maxPhysInclusive)

	gdt.Init()
	early.Printf("gdt: installed\n")

	// Remap and program the 8259/8253 before idt.Init turns interrupts on,
	// so IRQ0 can't fire at its pre-remap vector (8, the double fault gate)
	// or before the PIT has a rate programmed.
	pic.Init()
	pit.Init(timerHz)
	early.Printf("pic/pit: timer at %d Hz\n", timerHz)

	idt.Init()
	early.Printf("idt: installed, interrupts enabled\n")

	heap.Init()

	goruntime.Init()
	early.Printf("goruntime: Go heap allocator enabled\n")

	trap.SyscallHandler = syscall.Dispatch
	user.Init()
	early.Printf("entering first user process\n")

	// Never returns.
	user.EnterFirstUser(info.KernelPhysBase, info.KernelPhysEnd, maxPhysInclusive)

	// Use kernel.Panic instead of panic to prevent the compiler from
	// treating kernel.Panic as dead-code and eliminating it.
	kernel.Panic(errKmainReturned)
}

func allocFrame() (pmm.Frame, *kernel.Error) {
	f := pmm.AllocFrame()
	if !f.Valid() {
		return pmm.InvalidFrame, errAllocForPaging
	}
	return f, nil
}

// maxPhysAddress returns the highest physical address (inclusive) reported
// by any region in the boot record, the extent vmm.Init needs to size the
// direct map.
func maxPhysAddress(info bootinfo.BootInfo) uintptr {
	var max uintptr
	for _, r := range info.Regions {
		end := uintptr(r.Base + r.Len)
		if end > max {
			max = end
		}
	}
	if max == 0 {
		return 0
	}
	return max - 1
}
