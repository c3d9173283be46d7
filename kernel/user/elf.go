package user

import (
	"unsafe"

	"github.com/mantraos/mantracore/kernel"
	"github.com/mantraos/mantracore/kernel/mem"
	"github.com/mantraos/mantracore/kernel/mem/vmm"
)

// elf64Ehdr is the 64-byte ELF64 file header. Every field here lands on its
// own natural alignment boundary already, so — like bootinfo's rawRecord —
// a plain ordered struct matches the on-disk layout with no padding.
type elf64Ehdr struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type elf64Phdr struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

const (
	ptLoad = 1
	pfX    = 1
	pfW    = 2
	pfR    = 4
)

const elfMachineX8664 = 0x3e

var errBadELF = &kernel.Error{Module: "user", Message: "malformed or unsupported ELF image"}

// loadELF maps every PT_LOAD segment of elf into as with freshly allocated,
// zeroed frames (so BSS needs no separate zeroing pass — it's already zero
// before the file bytes are copied over the front of it), and returns the
// entry point.
func loadELF(as *vmm.AddressSpace, elf []byte, allocFn vmm.FrameAllocatorFn) (uint64, *kernel.Error) {
	if len(elf) < int(unsafe.Sizeof(elf64Ehdr{})) {
		return 0, errBadELF
	}
	eh := (*elf64Ehdr)(unsafe.Pointer(&elf[0]))

	if eh.Ident[0] != 0x7f || eh.Ident[1] != 'E' || eh.Ident[2] != 'L' || eh.Ident[3] != 'F' ||
		eh.Ident[4] != 2 || eh.Ident[5] != 1 {
		return 0, errBadELF
	}
	if eh.Machine != elfMachineX8664 {
		return 0, errBadELF
	}
	phdrSize := int(unsafe.Sizeof(elf64Phdr{}))
	if int(eh.Phentsize) != phdrSize {
		return 0, errBadELF
	}

	phoff, phnum := int(eh.Phoff), int(eh.Phnum)
	if phoff < 0 || phoff+phnum*phdrSize > len(elf) {
		return 0, errBadELF
	}

	for i := 0; i < phnum; i++ {
		ph := (*elf64Phdr)(unsafe.Pointer(&elf[phoff+i*phdrSize]))
		if ph.Type != ptLoad || ph.Memsz == 0 {
			continue
		}
		if err := loadSegment(as, elf, ph, allocFn); err != nil {
			return 0, err
		}
	}

	return eh.Entry, nil
}

func loadSegment(as *vmm.AddressSpace, elf []byte, ph *elf64Phdr, allocFn vmm.FrameAllocatorFn) *kernel.Error {
	const pageSize = uint64(mem.PageSize)

	segStart := alignDown(ph.Vaddr, pageSize)
	segEnd := alignUp(ph.Vaddr+ph.Memsz, pageSize)

	flags := vmm.FlagUser
	if ph.Flags&pfW != 0 {
		flags |= vmm.FlagRW
	}

	if ph.Filesz != 0 {
		if ph.Offset > uint64(len(elf)) || ph.Offset+ph.Filesz > uint64(len(elf)) {
			return errBadELF
		}
	}
	fileEnd := ph.Vaddr + ph.Filesz

	for va := segStart; va < segEnd; va += pageSize {
		frame, err := allocFn()
		if err != nil {
			return err
		}
		pageVirt := vmm.PhysToVirt(frame.Address())
		mem.Memset(pageVirt, 0, mem.Size(pageSize))

		// Copy whatever portion of the file's bytes for this segment falls
		// within this page; BSS bytes stay zero from the memset above.
		copyLo, copyHi := max64(va, ph.Vaddr), min64(va+pageSize, fileEnd)
		if copyHi > copyLo {
			src := elf[ph.Offset+(copyLo-ph.Vaddr) : ph.Offset+(copyHi-ph.Vaddr)]
			dst := unsafe.Slice((*byte)(unsafe.Pointer(pageVirt+uintptr(copyLo-va))), len(src))
			copy(dst, src)
		}

		if err := as.MapUser4K(uintptr(va), frame, flags, allocFn); err != nil {
			return err
		}
	}
	return nil
}

func alignDown(x, a uint64) uint64 { return x &^ (a - 1) }
func alignUp(x, a uint64) uint64   { return (x + a - 1) &^ (a - 1) }

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
