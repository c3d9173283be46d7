package vmm

import (
	"github.com/mantraos/mantracore/kernel"
	"github.com/mantraos/mantracore/kernel/mem/pmm"
)

// AddressSpace wraps a process-private PML4 table. Unlike the kernel's own
// table, a process AddressSpace gets its own HHDM PDPT rather than sharing
// the kernel's, so MapHHDM must be called before the space is ever
// activated if the process is expected to make syscalls that touch physical
// memory through the direct map.
type AddressSpace struct {
	pml4Frame pmm.Frame
}

// NewAddressSpace allocates and zeroes a fresh PML4, producing an address
// space with no mappings at all.
func NewAddressSpace(allocFn FrameAllocatorFn) (*AddressSpace, *kernel.Error) {
	frame, err := allocFn()
	if err != nil {
		return nil, err
	}
	zeroFrame(frame)
	return &AddressSpace{pml4Frame: frame}, nil
}

// AddressSpaceFromCR3 wraps an already-built PML4 (e.g. the value read back
// from CR3, or another process's saved address-space root) without
// allocating or zeroing anything. Used to translate user addresses in a
// process that isn't necessarily the one currently executing.
func AddressSpaceFromCR3(cr3 uintptr) *AddressSpace {
	return &AddressSpace{pml4Frame: pmm.FrameFromAddress(cr3)}
}

// PML4Frame returns the physical frame backing this address space's PML4.
func (as *AddressSpace) PML4Frame() pmm.Frame {
	return as.pml4Frame
}

// CR3 returns the value to load into CR3 to activate this address space.
func (as *AddressSpace) CR3() uintptr {
	return as.pml4Frame.Address()
}

func (as *AddressSpace) pml4() *table {
	return tableAt(as.pml4Frame)
}

// MapUser4K installs a user-accessible 4 KiB mapping. FlagUser is always
// implied regardless of what flags the caller passes.
func (as *AddressSpace) MapUser4K(virt uintptr, frame pmm.Frame, flags PageTableEntryFlag, allocFn FrameAllocatorFn) *kernel.Error {
	return Map4K(as.pml4(), virt, frame, flags|FlagUser, allocFn)
}

// MapKernel4K installs a supervisor-only 4 KiB mapping, e.g. for a process's
// kernel stack.
func (as *AddressSpace) MapKernel4K(virt uintptr, frame pmm.Frame, flags PageTableEntryFlag, allocFn FrameAllocatorFn) *kernel.Error {
	return Map4K(as.pml4(), virt, frame, flags, allocFn)
}

// Translate resolves a virtual address within this address space.
func (as *AddressSpace) Translate(virt uintptr) (uintptr, *kernel.Error) {
	return Translate(as.pml4(), virt)
}

// TranslateUser resolves a virtual address within this address space,
// requiring FlagUser at every level of the walk. Use this instead of
// Translate whenever virt comes from user-supplied syscall arguments.
func (as *AddressSpace) TranslateUser(virt uintptr) (uintptr, *kernel.Error) {
	return TranslateUser(as.pml4(), virt)
}

// MapHHDM builds a dedicated PDPT under PML4[hhdmPML4Index] covering
// physical memory up to and including maxPhysInclusive with 2 MiB pages,
// and links it into this address space. Every process gets its own copy of
// this table rather than sharing the kernel's, since nothing else in the
// process's PML4 is shared.
func (as *AddressSpace) MapHHDM(maxPhysInclusive uintptr, allocFn FrameAllocatorFn) *kernel.Error {
	return buildHHDM(as.pml4(), maxPhysInclusive, allocFn)
}

// buildHHDM allocates a fresh PDPT, populates it with 2 MiB identity-mapped
// entries up to maxPhysInclusive, and links it into pml4 at hhdmPML4Index.
func buildHHDM(pml4 *table, maxPhysInclusive uintptr, allocFn FrameAllocatorFn) *kernel.Error {
	pdptFrame, err := allocFn()
	if err != nil {
		return err
	}
	zeroFrame(pdptFrame)
	pdpt := tableAt(pdptFrame)

	pdptCount := (maxPhysInclusive >> pdptShift) + 1
	for i := uintptr(0); i < pdptCount; i++ {
		pdFrame, err := allocFn()
		if err != nil {
			return err
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

	e := &pml4[hhdmPML4Index]
	*e = 0
	e.SetFrame(pdptFrame)
	e.SetFlags(FlagPresent | FlagRW)
	return nil
}
