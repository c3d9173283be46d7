// Package vmm implements 4-level x86-64 paging: a permanent higher-half
// direct map (HHDM) of all physical memory, a dynamic kernel-only mapping
// window (kmap), and per-process address spaces built on top of the same
// table-walking primitives.
package vmm

import (
	"unsafe"

	"github.com/mantraos/mantracore/kernel"
	"github.com/mantraos/mantracore/kernel/cpu"
	"github.com/mantraos/mantracore/kernel/mem/pmm"
)

// ptrFromUintptrFn is swapped out by tests since KmapBase addresses are not
// backed by real memory outside the kernel.
var ptrFromUintptrFn = func(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}

// HHDMBase is the virtual address at which all physical memory is mapped.
// A physical address p is always reachable at HHDMBase+p, independent of
// which address space is active, because every per-process PML4 carries
// its own copy of this mapping at hhdmPML4Index.
const HHDMBase = 0xffff_8000_0000_0000

// hhdmPML4Index is the PML4 slot the HHDM region falls under
// (0xffff_8000_0000_0000 >> 39 & 0x1ff).
const hhdmPML4Index = 256

// KmapBase is the base of a kernel-only window used for short-lived,
// individually-mapped 4 KiB pages (page tables under construction, MMIO,
// bring-up scratch space). Unlike HHDM it is not built in bulk: entries are
// added one at a time via KmapMap4K/KmapAlloc4K and never reused.
const KmapBase = 0xffff_ff00_0000_0000

// kmapPML4Index is the PML4 slot the kmap region falls under.
const kmapPML4Index = 510

var (
	kernelPML4Frame pmm.Frame
	kmapCursor      uintptr

	errInitAllocFailed = &kernel.Error{Module: "vmm", Message: "failed to allocate a page table frame during paging init"}
)

// Init builds the kernel's own PML4: an identity mapping of physical memory
// at PML4[0] and the same mapping again at PML4[hhdmPML4Index], both
// pointing at one shared PDPT. Sharing the PDPT between the two slots is
// what lets code keep running at identity-mapped addresses immediately
// after CR3 is switched, before anything has jumped to an HHDM address.
func Init(maxPhysInclusive uintptr, allocFn FrameAllocatorFn) *kernel.Error {
	frame, err := allocFn()
	if err != nil {
		return errInitAllocFailed
	}
	zeroFrame(frame)
	kernelPML4Frame = frame
	pml4 := tableAt(frame)

	pdptFrame, err := allocFn()
	if err != nil {
		return errInitAllocFailed
	}
	zeroFrame(pdptFrame)
	pdpt := tableAt(pdptFrame)

	pdptCount := (maxPhysInclusive >> pdptShift) + 1
	for i := uintptr(0); i < pdptCount; i++ {
		pdFrame, err := allocFn()
		if err != nil {
			return errInitAllocFailed
		}
		zeroFrame(pdFrame)
		pd := tableAt(pdFrame)

		for j := uintptr(0); j < entriesPerTable; j++ {
			phys := (i << pdptShift) + (j << pdShift)
			if phys > maxPhysInclusive {
				break
			}
			e := &pd[j]
			*e = 0
			e.SetFrame(pmm.FrameFromAddress(phys))
			e.SetFlags(FlagPresent | FlagRW | FlagHugePage)
		}

		e := &pdpt[i]
		*e = 0
		e.SetFrame(pdFrame)
		e.SetFlags(FlagPresent | FlagRW)
	}

	for _, idx := range [2]uintptr{0, hhdmPML4Index} {
		e := &pml4[idx]
		*e = 0
		e.SetFrame(pdptFrame)
		e.SetFlags(FlagPresent | FlagRW)
	}

	return nil
}

// Activate switches CR3 to the kernel's own address space.
func Activate() {
	cpu.WriteCR3(kernelPML4Frame.Address())
}

// KernelPML4Frame returns the physical frame backing the kernel's PML4.
func KernelPML4Frame() pmm.Frame {
	return kernelPML4Frame
}

// KmapMap4K installs frame at the next unused slot in the kmap window and
// returns the virtual address it is now reachable at. Slots are never
// reused; this is meant for bring-up scratch mappings, not a general
// allocator.
func KmapMap4K(frame pmm.Frame, flags PageTableEntryFlag, allocFn FrameAllocatorFn) (uintptr, *kernel.Error) {
	virt := KmapBase + (kmapCursor << ptShift)
	if err := Map4K(tableAt(kernelPML4Frame), virt, frame, flags, allocFn); err != nil {
		return 0, err
	}
	kmapCursor++
	return virt, nil
}

// KmapAlloc4K allocates a fresh, zeroed frame and maps it into the kmap
// window, returning the virtual address it is reachable at.
func KmapAlloc4K(allocFn FrameAllocatorFn) (uintptr, *kernel.Error) {
	frame, err := allocFn()
	if err != nil {
		return 0, err
	}
	zeroFrame(frame)
	return KmapMap4K(frame, FlagRW, allocFn)
}

// KmapReserveRegion claims pageCount contiguous pages of kmap address space
// and returns the virtual address the region starts at, without mapping
// any of them. Callers install pages into the reservation one at a time
// with KmapMapFixed4K as they're actually touched; this is the Go
// runtime allocator's sysReserve/sysAlloc entry point into the kmap
// window.
func KmapReserveRegion(pageCount uintptr) uintptr {
	virt := KmapBase + (kmapCursor << ptShift)
	kmapCursor += pageCount
	return virt
}

// KmapMapFixed4K installs frame at virt, an address that must already fall
// inside a region previously returned by KmapReserveRegion. Unlike
// KmapMap4K it does not advance the kmap cursor.
func KmapMapFixed4K(virt uintptr, frame pmm.Frame, flags PageTableEntryFlag, allocFn FrameAllocatorFn) *kernel.Error {
	return Map4K(tableAt(kernelPML4Frame), virt, frame, flags, allocFn)
}

// KmapSmokeTest maps a single scratch frame, writes and reads back a known
// value through it, and reports whether the round trip succeeded. It exists
// purely as an early boot sanity check of the kmap path.
func KmapSmokeTest(allocFn FrameAllocatorFn) bool {
	virt, err := KmapAlloc4K(allocFn)
	if err != nil {
		return false
	}

	ptr := (*uint64)(ptrFromUintptrFn(virt))
	*ptr = 0xC0FFEE
	return *ptr == 0xC0FFEE
}
