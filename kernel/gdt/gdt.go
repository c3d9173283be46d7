// Package gdt installs the kernel's flat 64-bit GDT and TSS: one code and
// one data descriptor for ring 0, a matching pair for ring 3, and a TSS
// entry supplying RSP0 (the stack loaded on a ring3->ring0 transition) and
// an IST1 stack reserved for #DF.
package gdt

import (
	"encoding/binary"
	"unsafe"

	"github.com/mantraos/mantracore/kernel/cpu"
	"github.com/mantraos/mantracore/kernel/kfmt/early"
)

// Segment selectors. User selectors carry RPL 3 baked in since they are
// never loaded any other way.
const (
	NullSel  uint16 = 0x00
	KcodeSel uint16 = 0x08
	KdataSel uint16 = 0x10
	tssSel   uint16 = 0x18
	UdataSel uint16 = 0x28 | 3
	UcodeSel uint16 = 0x30 | 3
)

// Raw 64-bit descriptor values. Each encodes base=0, limit=0xFFFFF with
// G=1 (4 KiB granularity, so the limit covers all 4 GiB), L=1 (64-bit code),
// P=1, S=1, and the type/DPL bits called out alongside each constant.
const (
	descCode64     = 0x00AF9A000000FFFF // DPL=0, type=0xA (exec/read)
	descData64     = 0x00AF92000000FFFF // DPL=0, type=0x2 (read/write)
	descUserCode64 = 0x00AFFA000000FFFF // DPL=3, type=0xA
	descUserData64 = 0x00AFF2000000FFFF // DPL=3, type=0x2
)

const ist1Bytes = 16 * 1024
const rsp0Bytes = 16 * 1024

var (
	table tss
	gdt   [7]uint64
	gdtr  [10]byte

	df  [ist1Bytes]byte
	int0 [rsp0Bytes]byte
)

// tss64Descriptor packs a 16-byte "available 64-bit TSS" system descriptor
// (type 0x9) split across two consecutive GDT slots.
func tss64Descriptor(base uint64, limit uint32) (lo, hi uint64) {
	lo = uint64(limit) & 0xFFFF
	lo |= (base & 0xFFFF) << 16
	lo |= ((base >> 16) & 0xFF) << 32
	lo |= 0x9 << 40
	lo |= 1 << 47
	lo |= (uint64(limit>>16) & 0xF) << 48
	lo |= ((base >> 24) & 0xFF) << 56

	hi = (base >> 32) & 0xFFFF_FFFF
	return lo, hi
}

// Init builds the GDT and TSS, loads them, and reloads every segment
// register so the kernel runs under its own flat descriptors rather than
// whatever the loader left behind.
func Init() {
	table.iomapBase = uint16(unsafe.Sizeof(table))
	table.setIST1(stackTop(df[:]))
	table.setRSP0(stackTop(int0[:]))

	gdt[0] = 0
	gdt[1] = descCode64
	gdt[2] = descData64
	tssBase := uint64(uintptr(unsafe.Pointer(&table)))
	gdt[3], gdt[4] = tss64Descriptor(tssBase, uint32(unsafe.Sizeof(table))-1)
	gdt[5] = descUserData64
	gdt[6] = descUserCode64

	limit := uint16(len(gdt)*8 - 1)
	base := uint64(uintptr(unsafe.Pointer(&gdt[0])))
	binary.LittleEndian.PutUint16(gdtr[0:2], limit)
	binary.LittleEndian.PutUint64(gdtr[2:10], base)

	cpu.LoadGDT(uintptr(unsafe.Pointer(&gdtr[0])), KcodeSel, KdataSel)
	cpu.LoadTR(tssSel)

	early.Printf("gdt: flat descriptors and tss installed\n")
}

func stackTop(stack []byte) uint64 {
	return uint64(uintptr(unsafe.Pointer(&stack[0]))) + uint64(len(stack))
}

// SetRSP0 updates the stack pointer the CPU switches to on a ring3->ring0
// transition. Called once per process context switch.
func SetRSP0(rsp0Top uint64) {
	table.setRSP0(rsp0Top)
}

// DFISTIndex is the IST slot (1-based) the #DF gate should use.
func DFISTIndex() uint8 {
	return 1
}

// CurrentCS returns the CS selector currently loaded in hardware.
func CurrentCS() uint16 {
	return cpu.ReadCS()
}
