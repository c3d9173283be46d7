// Package trap holds the register-preserving entry points the kernel uses
// for the two interrupt vectors that resume a process afterwards: the
// timer tick and the int 0x80 syscall gate. Both trampolines save every
// general-purpose register into a TrapFrame/SyscallFrame, call into a
// Go handler supplied by the scheduler and syscall packages (set through
// function variables to avoid an import cycle), and either resume the
// interrupted task or switch to a different one chosen by the handler.
package trap

import "unsafe"

// TrapFrame is the layout TimerIRQStub builds on the stack before calling
// TimerHandler. The GPR block is pushed by the stub in a fixed order; the
// trailing five fields are the ones the CPU itself pushes on any interrupt
// taken from ring 3 (RIP, CS, RFLAGS, RSP, SS).
type TrapFrame struct {
	R15 uint64
	R14 uint64
	R13 uint64
	R12 uint64
	R11 uint64
	R10 uint64
	R9  uint64
	R8  uint64
	RSI uint64
	RDI uint64
	RBP uint64
	RDX uint64
	RCX uint64
	RBX uint64
	RAX uint64

	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// SyscallFrame has the identical layout; it is a distinct type so syscall
// handlers don't need to reach for field names that imply a timer tick.
type SyscallFrame struct {
	R15 uint64
	R14 uint64
	R13 uint64
	R12 uint64
	R11 uint64
	R10 uint64
	R9  uint64
	R8  uint64
	RSI uint64
	RDI uint64
	RBP uint64
	RDX uint64
	RCX uint64
	RBX uint64
	RAX uint64

	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// NextCR3 is read by the trampolines right before they resume a (possibly
// different) task; the scheduler/syscall handlers set it whenever they pick
// a new address space alongside a new stack pointer. It is only consulted
// when the handler's return value is non-zero.
var NextCR3 uint64

// TimerHandler is called by TimerIRQStub with the address of the frame it
// built. A return value of 0 resumes the interrupted task; any other value
// is the RSP of a different task's saved frame to switch to (NextCR3 must
// already have been set to that task's PML4 physical address).
var TimerHandler = func(tf *TrapFrame) uint64 { return 0 }

// SyscallHandler plays the same role for int 0x80.
var SyscallHandler = func(tf *SyscallFrame) uint64 { return 0 }

// goTimerIRQ is called from TimerIRQStub with the frame pointer as its
// stack argument.
func goTimerIRQ(framePtr uintptr) uint64 {
	return TimerHandler((*TrapFrame)(unsafe.Pointer(framePtr)))
}

// goSyscall80 is called from Syscall80Stub with the frame pointer as its
// stack argument.
func goSyscall80(framePtr uintptr) uint64 {
	return SyscallHandler((*SyscallFrame)(unsafe.Pointer(framePtr)))
}

// TimerIRQStub is the IDT gate target for the timer (vector 32). It is
// entered directly by hardware, never called from Go; kernel/idt only ever
// takes its address. Declared here, implemented in trampoline_amd64.s.
func TimerIRQStub()

// Syscall80Stub is the IDT gate target for int 0x80, entered the same way.
func Syscall80Stub()

// trapReturn pops the GPR block built by either stub and executes IRETQ.
// Both stubs jump here instead of returning normally.
func trapReturn()

// transitionStack is used only by EnterUser, to hold RSP steady across the
// CR3 switch into a brand new address space before it jumps to the real
// per-task frame. The kernel's current stack isn't guaranteed to be mapped
// in the process's own page tables, so RSP has to move off it first.
var transitionStack [4096]byte

// EnterUser performs the one-time transition from kernel boot code into
// the first scheduled task: it switches to cr3, drops the stack pointer to
// tfRSP (the top of a TrapFrame already built on that task's kernel
// stack), and falls into trapReturn to pop registers and IRETQ into ring 3.
// It never returns. All subsequent task switches instead happen through
// the ordinary interrupt-return path in TimerIRQStub/Syscall80Stub.
func EnterUser(cr3 uint64, tfRSP uint64)
