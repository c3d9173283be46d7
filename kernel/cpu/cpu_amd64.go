// Package cpu exposes the privileged amd64 instructions the kernel needs.
// Each function is declared here without a body; its implementation lives
// in cpu_amd64.s since Go has no inline assembly support.
package cpu

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr

// OutB writes a byte to the given I/O port.
func OutB(port uint16, value uint8)

// InB reads a byte from the given I/O port.
func InB(port uint16) uint8

// ReadCR2 returns the faulting address recorded by the last page fault.
func ReadCR2() uintptr

// ReadCR3 returns the physical address of the currently loaded PML4.
func ReadCR3() uintptr

// WriteCR3 loads a new PML4 physical address, flushing the TLB (except
// global pages).
func WriteCR3(pml4PhysAddr uintptr)

// Invlpg invalidates the TLB entry covering virtAddr.
func Invlpg(virtAddr uintptr)

// LoadGDT loads the global descriptor table pointed to by gdtrAddr (the
// address of a packed {limit uint16; base uint64} record) and reloads CS
// via a far return plus the data segment registers with dataSel.
func LoadGDT(gdtrAddr uintptr, codeSel, dataSel uint16)

// LoadIDT loads the interrupt descriptor table pointed to by idtrAddr (a
// packed {limit uint16; base uint64} record).
func LoadIDT(idtrAddr uintptr)

// LoadTR loads the task register with the given segment selector.
func LoadTR(sel uint16)

// ReadCS returns the current code segment selector.
func ReadCS() uint16
