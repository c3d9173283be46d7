// Package bootinfo decodes the fixed-layout record handed to the kernel by
// the UEFI loader. The record's lifetime is the entire run of the kernel;
// it lives in a firmware-reserved frame and is never written to again.
package bootinfo

import "unsafe"

// Magic identifies a valid boot record ("MANT" as a little-endian u32).
const Magic uint32 = 0x544E414D

// Version is the only boot-record layout this kernel understands.
const Version uint32 = 2

// PixelFormat describes how a framebuffer pixel's color bytes are ordered.
type PixelFormat uint32

// The pixel formats the loader may report.
const (
	PixelFormatUnknown PixelFormat = 0
	PixelFormatRgb      PixelFormat = 1
	PixelFormatBgr      PixelFormat = 2
)

// String implements fmt.Stringer for diagnostic logging.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRgb:
		return "rgb"
	case PixelFormatBgr:
		return "bgr"
	default:
		return "unknown"
	}
}

// RegionKind classifies a MemoryRegion.
type RegionKind uint32

// The region kinds the loader may report.
const (
	RegionUnknown RegionKind = iota
	RegionUsable
	RegionReserved
	RegionAcpiReclaim
	RegionAcpiNvs
	RegionMmio
	RegionKernel
	RegionBoot
	RegionFramebuffer
)

// String implements fmt.Stringer for diagnostic logging.
func (k RegionKind) String() string {
	switch k {
	case RegionUsable:
		return "usable"
	case RegionReserved:
		return "reserved"
	case RegionAcpiReclaim:
		return "acpi-reclaim"
	case RegionAcpiNvs:
		return "acpi-nvs"
	case RegionMmio:
		return "mmio"
	case RegionKernel:
		return "kernel"
	case RegionBoot:
		return "boot"
	case RegionFramebuffer:
		return "framebuffer"
	default:
		return "unknown"
	}
}

// MemoryRegion describes one physical memory range and how the firmware
// classifies it.
//
// The layout below must match the packed 24-byte record at spec offset
// "MemoryRegion: {u64 base, u64 len, u32 kind, u32 _reserved}" exactly;
// field order and width are load-bearing, not just documentation.
type MemoryRegion struct {
	Base     uint64
	Len      uint64
	Kind     RegionKind
	reserved uint32
}

// BootInfo is the decoded view of the boot record at offsets 0..72 of the
// raw record (see package-level layout table in the raw struct below).
type BootInfo struct {
	FbBase          uint64
	FbSize          uint64
	FbWidth         uint32
	FbHeight        uint32
	FbStride        uint32
	FbFormat        PixelFormat
	Regions         []MemoryRegion
	KernelPhysBase  uint64
	KernelPhysEnd   uint64
}

// rawRecord mirrors the packed, little-endian boot record produced by the
// loader byte-for-byte. Every field here corresponds to one row of the
// boot record layout table.
type rawRecord struct {
	Magic           uint32
	Version         uint32
	FbBase          uint64
	FbSize          uint64
	FbWidth         uint32
	FbHeight        uint32
	FbStride        uint32
	FbFormat        uint32
	RegionsPtr      uint64
	RegionsLen      uint32
	reserved0       uint32
	KernelPhysBase  uint64
	KernelPhysEnd   uint64
}

// Decode validates and decodes the boot record at ptr. A nil pointer or a
// magic/version mismatch is reported via ok=false; the caller is expected
// to treat that as fatal, since nothing past this point can be trusted.
func Decode(ptr uintptr) (info BootInfo, ok bool) {
	if ptr == 0 {
		return BootInfo{}, false
	}

	raw := (*rawRecord)(unsafe.Pointer(ptr))
	if raw.Magic != Magic || raw.Version != Version {
		return BootInfo{}, false
	}

	info = BootInfo{
		FbBase:         raw.FbBase,
		FbSize:         raw.FbSize,
		FbWidth:        raw.FbWidth,
		FbHeight:       raw.FbHeight,
		FbStride:       raw.FbStride,
		FbFormat:       PixelFormat(raw.FbFormat),
		KernelPhysBase: raw.KernelPhysBase,
		KernelPhysEnd:  raw.KernelPhysEnd,
	}

	if raw.RegionsPtr != 0 && raw.RegionsLen != 0 {
		info.Regions = (*[1 << 20]MemoryRegion)(unsafe.Pointer(uintptr(raw.RegionsPtr)))[:raw.RegionsLen:raw.RegionsLen]
	}

	return info, true
}

// UsableCount returns the number of regions tagged Usable, for boot banner
// diagnostics.
func (bi BootInfo) UsableCount() int {
	n := 0
	for _, r := range bi.Regions {
		if r.Kind == RegionUsable {
			n++
		}
	}
	return n
}
