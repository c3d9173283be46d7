// Package idt builds the kernel's interrupt descriptor table. Only the
// vectors this kernel actually uses are populated: #BP for debugging,
// #DF/#GP/#PF as fatal traps that dump state and halt, the timer tick, and
// the int 0x80 syscall gate. Everything else is left as an all-zero entry
// with its present bit clear, so a stray interrupt faults rather than
// silently reading garbage.
package idt

import (
	"encoding/binary"
	"reflect"
	"unsafe"

	"github.com/mantraos/mantracore/kernel"
	"github.com/mantraos/mantracore/kernel/cpu"
	"github.com/mantraos/mantracore/kernel/gdt"
	"github.com/mantraos/mantracore/kernel/kfmt/early"
	"github.com/mantraos/mantracore/kernel/trap"
)

const (
	vecBreakpoint  = 3
	vecDoubleFault = 8
	vecGPFault     = 13
	vecPageFault   = 14
	vecTimer       = 32
	vecSyscall80   = 0x80
)

const entryCount = 256

// idtEntry is a 64-bit interrupt gate descriptor. Every field here sits on
// its natural alignment boundary already, so (unlike the GDTR or TSS) a
// plain ordered struct matches the hardware layout with no padding tricks.
type idtEntry struct {
	offsetLow  uint16
	selector   uint16
	istAndZero uint8 // bits 0-2: IST index, rest zero
	typeAttr   uint8
	offsetMid  uint16
	offsetHigh uint32
	zero       uint32
}

func (e *idtEntry) setHandler(addr uintptr) {
	e.offsetLow = uint16(addr)
	e.offsetMid = uint16(addr >> 16)
	e.offsetHigh = uint32(addr >> 32)
	e.selector = gdt.KcodeSel
	e.typeAttr = 0x8E // present, DPL0, 64-bit interrupt gate
}

func (e *idtEntry) setIST(ist uint8) {
	e.istAndZero = ist & 0x7
}

func (e *idtEntry) setDPL(dpl uint8) {
	e.typeAttr = (e.typeAttr &^ (0x3 << 5)) | ((dpl & 0x3) << 5)
}

var table [entryCount]idtEntry
var idtr [10]byte

// funcAddr returns the entry address of a Go function value with no
// arguments. Used to populate gate offsets for assembly-implemented stubs
// that are never called directly from Go.
func funcAddr(f func()) uintptr {
	return reflect.ValueOf(f).Pointer()
}

// Init populates the handled vectors, loads the IDT, and enables
// interrupts. Must run after gdt.Init, since the #DF gate's IST index and
// every gate's code selector depend on the GDT/TSS already being installed.
func Init() {
	table[vecBreakpoint].setHandler(funcAddr(breakpointStub))

	table[vecDoubleFault].setHandler(funcAddr(doubleFaultStub))
	table[vecDoubleFault].setIST(gdt.DFISTIndex())

	table[vecGPFault].setHandler(funcAddr(gpFaultStub))
	table[vecPageFault].setHandler(funcAddr(pageFaultStub))

	table[vecTimer].setHandler(funcAddr(trap.TimerIRQStub))

	table[vecSyscall80].setHandler(funcAddr(trap.Syscall80Stub))
	table[vecSyscall80].setDPL(3) // reachable from ring 3 via `int 0x80`

	limit := uint16(len(table)*int(unsafe.Sizeof(idtEntry{})) - 1)
	base := uint64(uintptr(unsafe.Pointer(&table[0])))
	binary.LittleEndian.PutUint16(idtr[0:2], limit)
	binary.LittleEndian.PutUint64(idtr[2:10], base)

	cpu.LoadIDT(uintptr(unsafe.Pointer(&idtr[0])))
	cpu.EnableInterrupts()

	early.Printf("idt: vectors 3/8/13/14/32/0x80 installed\n")
}

// breakpointFrame is the hardware frame for vectors that push no error
// code (#BP only, among the ones this kernel handles).
type breakpointFrame struct {
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// faultFrame is the hardware frame for vectors that push an error code
// (#DF, #GP, #PF).
type faultFrame struct {
	ErrCode uint64
	RIP     uint64
	CS      uint64
	RFlags  uint64
	RSP     uint64
	SS      uint64
}

// breakpointStub is entered directly by hardware on #BP; it preserves every
// GPR since execution resumes afterwards. Declared here, implemented in
// idt_amd64.s.
func breakpointStub()

// doubleFaultStub, gpFaultStub and pageFaultStub never return, so unlike
// breakpointStub they don't bother saving any GPRs: they hand the fatal
// handler the hardware-pushed frame pointer and then park the CPU.
func doubleFaultStub()
func gpFaultStub()
func pageFaultStub()

func goBreakpointHandler(framePtr uintptr) {
	f := (*breakpointFrame)(unsafe.Pointer(framePtr))
	early.Printf("int3: rip=%x cs=%x rflags=%x\n", f.RIP, f.CS, f.RFlags)
}

func goDoubleFaultHandler(framePtr uintptr) {
	f := (*faultFrame)(unsafe.Pointer(framePtr))
	early.Printf("#DF: err=%x rip=%x cs=%x rflags=%x rsp=%x ss=%x\n",
		f.ErrCode, f.RIP, f.CS, f.RFlags, f.RSP, f.SS)
	kernel.Panic(errDoubleFault)
}

func goGPFaultHandler(framePtr uintptr) {
	f := (*faultFrame)(unsafe.Pointer(framePtr))
	early.Printf("#GP: err=%x rip=%x cs=%x rflags=%x rsp=%x ss=%x\n",
		f.ErrCode, f.RIP, f.CS, f.RFlags, f.RSP, f.SS)
	kernel.Panic(errGPFault)
}

func goPageFaultHandler(framePtr uintptr) {
	f := (*faultFrame)(unsafe.Pointer(framePtr))
	cr2 := cpu.ReadCR2()
	early.Printf("#PF: err=%x cr2=%x rip=%x cs=%x rflags=%x rsp=%x ss=%x\n",
		f.ErrCode, cr2, f.RIP, f.CS, f.RFlags, f.RSP, f.SS)
	kernel.Panic(errPageFault)
}

var (
	errDoubleFault = &kernel.Error{Module: "idt", Message: "double fault"}
	errGPFault     = &kernel.Error{Module: "idt", Message: "general protection fault"}
	errPageFault   = &kernel.Error{Module: "idt", Message: "page fault"}
)
