package syscall

import (
	"unsafe"

	"github.com/mantraos/mantracore/kernel/cpu"
	"github.com/mantraos/mantracore/kernel/mem/vmm"
)

// currentUserSpace wraps the PML4 active in CR3 at the moment of the
// syscall, i.e. the calling process's own address space.
func currentUserSpace() *vmm.AddressSpace {
	return vmm.AddressSpaceFromCR3(cpu.ReadCR3())
}

// userCopyIn reads len(dst) bytes starting at userPtr in the calling
// process's address space. Stops and returns false the moment any byte of
// the range isn't mapped with FlagUser.
func userCopyIn(dst []byte, userPtr uint64) bool {
	as := currentUserSpace()
	for i := range dst {
		phys, err := as.TranslateUser(uintptr(userPtr) + uintptr(i))
		if err != nil {
			return false
		}
		dst[i] = *(*byte)(unsafe.Pointer(vmm.PhysToVirt(phys)))
	}
	return true
}

// userCopyOut writes src into the calling process's address space starting
// at userPtr, subject to the same per-byte translation check as
// userCopyIn.
func userCopyOut(userPtr uint64, src []byte) bool {
	as := currentUserSpace()
	for i, b := range src {
		phys, err := as.TranslateUser(uintptr(userPtr) + uintptr(i))
		if err != nil {
			return false
		}
		*(*byte)(unsafe.Pointer(vmm.PhysToVirt(phys))) = b
	}
	return true
}

// userCopyOutTo writes src into the address space rooted at cr3 (not
// necessarily the currently active one), for delivering a message into a
// receiver that isn't the process that happens to be running.
func userCopyOutTo(cr3 uint64, userPtr uint64, src []byte) bool {
	as := vmm.AddressSpaceFromCR3(uintptr(cr3))
	for i, b := range src {
		phys, err := as.TranslateUser(uintptr(userPtr) + uintptr(i))
		if err != nil {
			return false
		}
		*(*byte)(unsafe.Pointer(vmm.PhysToVirt(phys))) = b
	}
	return true
}
