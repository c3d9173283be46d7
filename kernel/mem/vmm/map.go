package vmm

import (
	"github.com/mantraos/mantracore/kernel"
	"github.com/mantraos/mantracore/kernel/cpu"
	"github.com/mantraos/mantracore/kernel/mem/pmm"
)

var (
	// ErrInvalidMapping is returned when attempting to translate or unmap a
	// virtual address that has no present mapping at every paging level.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "address not mapped"}

	errHugePageConflict = &kernel.Error{Module: "vmm", Message: "cannot install a 4K mapping under an existing huge page"}

	// invlpgFn is mocked by tests; invalidating a TLB entry for an address
	// space that is not currently active is harmless.
	invlpgFn = cpu.Invlpg
)

// FrameAllocatorFn is a function that can allocate physical frames. Every
// allocated frame is assumed to be zeroed by the allocator's caller before
// it is linked into a page table.
type FrameAllocatorFn func() (pmm.Frame, *kernel.Error)

// getOrAllocTable returns the next-level table pointed to by parent[index],
// allocating and zeroing a fresh one if the entry is not yet present. If
// user is set and an existing entry does not carry FlagUser, the flag is
// OR-ed in; a table shared between a kernel-only and a user mapping must
// become accessible from user mode the moment either mapping requests it.
func getOrAllocTable(parent *table, index uintptr, user bool, allocFn FrameAllocatorFn) (*table, *kernel.Error) {
	entry := &parent[index]

	if !entry.HasFlags(FlagPresent) {
		frame, err := allocFn()
		if err != nil {
			return nil, err
		}
		zeroFrame(frame)

		*entry = 0
		entry.SetFrame(frame)
		flags := FlagPresent | FlagRW
		if user {
			flags |= FlagUser
		}
		entry.SetFlags(flags)
	} else if entry.HasFlags(FlagHugePage) {
		return nil, errHugePageConflict
	} else if user && !entry.HasFlags(FlagUser) {
		entry.SetFlags(FlagUser)
	}

	return tableAt(entry.Frame()), nil
}

// Map4K installs a 4 KiB mapping for virt in the paging hierarchy rooted at
// pml4, allocating intermediate tables as needed via allocFn.
func Map4K(pml4 *table, virt uintptr, frame pmm.Frame, flags PageTableEntryFlag, allocFn FrameAllocatorFn) *kernel.Error {
	user := flags&FlagUser != 0

	pdpt, err := getOrAllocTable(pml4, (virt>>pml4Shift)&tableIndexMask, user, allocFn)
	if err != nil {
		return err
	}
	pd, err := getOrAllocTable(pdpt, (virt>>pdptShift)&tableIndexMask, user, allocFn)
	if err != nil {
		return err
	}
	pt, err := getOrAllocTable(pd, (virt>>pdShift)&tableIndexMask, user, allocFn)
	if err != nil {
		return err
	}

	entry := &pt[(virt>>ptShift)&tableIndexMask]
	*entry = 0
	entry.SetFrame(frame)
	entry.SetFlags(FlagPresent | flags)

	invlpgFn(virt)
	return nil
}

// Unmap4K clears the present bit for virt's mapping in the hierarchy rooted
// at pml4. It returns ErrInvalidMapping if virt has no mapping.
func Unmap4K(pml4 *table, virt uintptr) *kernel.Error {
	entry, err := walkReadOnly(pml4, virt)
	if err != nil {
		return err
	}
	if entry.HasFlags(FlagHugePage) {
		return errHugePageConflict
	}

	entry.ClearFlags(FlagPresent)
	invlpgFn(virt)
	return nil
}

// walkReadOnly descends the paging hierarchy rooted at pml4 without
// allocating, returning the leaf entry for virt. The walk stops at a huge
// page if one is found at the PD level.
func walkReadOnly(pml4 *table, virt uintptr) (*pageTableEntry, *kernel.Error) {
	e4 := &pml4[(virt>>pml4Shift)&tableIndexMask]
	if !e4.HasFlags(FlagPresent) {
		return nil, ErrInvalidMapping
	}
	pdpt := tableAt(e4.Frame())

	e3 := &pdpt[(virt>>pdptShift)&tableIndexMask]
	if !e3.HasFlags(FlagPresent) {
		return nil, ErrInvalidMapping
	}
	pd := tableAt(e3.Frame())

	e2 := &pd[(virt>>pdShift)&tableIndexMask]
	if !e2.HasFlags(FlagPresent) {
		return nil, ErrInvalidMapping
	}
	if e2.HasFlags(FlagHugePage) {
		return e2, nil
	}
	pt := tableAt(e2.Frame())

	e1 := &pt[(virt>>ptShift)&tableIndexMask]
	if !e1.HasFlags(FlagPresent) {
		return nil, ErrInvalidMapping
	}
	return e1, nil
}

// walkRequireUser is walkReadOnly with an added FlagUser check at every
// level, matching the access rule a syscall argument buffer must satisfy.
func walkRequireUser(pml4 *table, virt uintptr) (*pageTableEntry, *kernel.Error) {
	required := FlagPresent | FlagUser

	e4 := &pml4[(virt>>pml4Shift)&tableIndexMask]
	if !e4.HasFlags(required) {
		return nil, ErrInvalidMapping
	}
	pdpt := tableAt(e4.Frame())

	e3 := &pdpt[(virt>>pdptShift)&tableIndexMask]
	if !e3.HasFlags(required) {
		return nil, ErrInvalidMapping
	}
	pd := tableAt(e3.Frame())

	e2 := &pd[(virt>>pdShift)&tableIndexMask]
	if !e2.HasFlags(required) {
		return nil, ErrInvalidMapping
	}
	if e2.HasFlags(FlagHugePage) {
		return e2, nil
	}
	pt := tableAt(e2.Frame())

	e1 := &pt[(virt>>ptShift)&tableIndexMask]
	if !e1.HasFlags(required) {
		return nil, ErrInvalidMapping
	}
	return e1, nil
}
