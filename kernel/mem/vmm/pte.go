package vmm

import (
	"unsafe"

	"github.com/mantraos/mantracore/kernel/mem"
	"github.com/mantraos/mantracore/kernel/mem/pmm"
)

// PageTableEntryFlag describes a single bit in a page table entry.
type PageTableEntryFlag uint64

// Page table entry flags. Bit positions match the x86-64 paging structures;
// everything above FlagHugePage is left unused by this kernel.
const (
	FlagPresent  PageTableEntryFlag = 1 << 0
	FlagRW       PageTableEntryFlag = 1 << 1
	FlagUser     PageTableEntryFlag = 1 << 2
	FlagHugePage PageTableEntryFlag = 1 << 7
)

// frameAddrMask isolates bits 12-51, the physical frame address encoded in
// every page table entry.
const frameAddrMask = 0x000f_ffff_ffff_f000

// entriesPerTable is the number of entries in every level of the paging
// hierarchy (PML4, PDPT, PD, PT).
const entriesPerTable = 512

// tableIndexMask extracts a 9-bit index from a shifted virtual address.
const tableIndexMask = entriesPerTable - 1

// Virtual address bit offsets for each level of the paging hierarchy.
const (
	pml4Shift = 39
	pdptShift = 30
	pdShift   = 21
	ptShift   = 12
)

type pageTableEntry uint64

type table [entriesPerTable]pageTableEntry

// HasFlags returns true if all the bits in f are set.
func (e pageTableEntry) HasFlags(f PageTableEntryFlag) bool {
	return pageTableEntry(f) != 0 && (e&pageTableEntry(f)) == pageTableEntry(f)
}

// SetFlags sets the bits in f without disturbing the rest of the entry.
func (e *pageTableEntry) SetFlags(f PageTableEntryFlag) {
	*e |= pageTableEntry(f)
}

// ClearFlags clears the bits in f without disturbing the rest of the entry.
func (e *pageTableEntry) ClearFlags(f PageTableEntryFlag) {
	*e &^= pageTableEntry(f)
}

// Frame returns the physical frame this entry points to.
func (e pageTableEntry) Frame() pmm.Frame {
	return pmm.FrameFromAddress(uintptr(e) & frameAddrMask)
}

// SetFrame updates the physical frame this entry points to, leaving the flag
// bits untouched.
func (e *pageTableEntry) SetFrame(f pmm.Frame) {
	*e = (*e &^ pageTableEntry(frameAddrMask)) | pageTableEntry(f.Address()&frameAddrMask)
}

// PhysToVirt returns the HHDM virtual address that maps the given physical
// address. Every physical frame used by the kernel's own page tables is
// always reachable this way, regardless of which address space is active.
func PhysToVirt(phys uintptr) uintptr {
	return HHDMBase + phys
}

// physToVirtFn is swapped out by tests, which run without the real HHDM
// mapping in place and instead back "physical" frames with ordinary Go
// memory.
var physToVirtFn = PhysToVirt

func tableAt(frame pmm.Frame) *table {
	return (*table)(unsafe.Pointer(physToVirtFn(frame.Address())))
}

func zeroFrame(frame pmm.Frame) {
	mem.Memset(physToVirtFn(frame.Address()), 0, mem.PageSize)
}
