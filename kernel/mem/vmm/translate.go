package vmm

import "github.com/mantraos/mantracore/kernel"

// pageOffsetMask returns the low-bit mask appropriate for the entry a
// translation walk bottomed out on: a 2 MiB huge page leaves 21 offset
// bits, a regular 4 KiB page leaves 12.
func pageOffsetMask(entry pageTableEntry) uintptr {
	if entry.HasFlags(FlagHugePage) {
		return (1 << pdShift) - 1
	}
	return (1 << ptShift) - 1
}

// Translate resolves virt to a physical address using the paging hierarchy
// rooted at pml4, or returns ErrInvalidMapping if no translation exists.
func Translate(pml4 *table, virt uintptr) (uintptr, *kernel.Error) {
	entry, err := walkReadOnly(pml4, virt)
	if err != nil {
		return 0, err
	}

	return entry.Frame().Address() + (virt & pageOffsetMask(*entry)), nil
}

// TranslateUser behaves like Translate but additionally requires FlagUser
// to be set at every level of the walk, not just the leaf. Syscall
// argument buffers are translated through this instead of Translate so a
// process can never point a syscall at a kernel-only mapping that merely
// happens to share its page tables.
func TranslateUser(pml4 *table, virt uintptr) (uintptr, *kernel.Error) {
	entry, err := walkRequireUser(pml4, virt)
	if err != nil {
		return 0, err
	}

	return entry.Frame().Address() + (virt & pageOffsetMask(*entry)), nil
}
