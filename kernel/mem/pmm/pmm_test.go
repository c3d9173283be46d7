package pmm

import (
	"testing"

	"github.com/mantraos/mantracore/kernel/bootinfo"
	"github.com/mantraos/mantracore/kernel/mem"
)

func TestInitExcludesFirstMebibyte(t *testing.T) {
	regions := []bootinfo.MemoryRegion{
		{Base: 0, Len: 0x8000_0000, Kind: bootinfo.RegionUsable},
		{Base: 0x10_0000, Len: 0x10_0000, Kind: bootinfo.RegionKernel},
	}

	stats, err := Init(regions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.UsableBytes != 0x8000_0000 {
		t.Fatalf("expected usable bytes to equal region length; got %#x", stats.UsableBytes)
	}

	expFree := uint64(0x8000_0000 - firstMebibyte - 0x10_0000)
	if stats.FreeBytes != expFree {
		t.Fatalf("expected free bytes %#x; got %#x", expFree, stats.FreeBytes)
	}

	if first := AllocFrame(); first.Address() != 0x20_0000 {
		t.Fatalf("expected first alloc_frame to return 0x200000; got %#x", first.Address())
	}
}

func TestInitFailsWithNoUsableRegions(t *testing.T) {
	regions := []bootinfo.MemoryRegion{
		{Base: 0x10_0000, Len: 0x1000, Kind: bootinfo.RegionReserved},
	}
	if _, err := Init(regions); err == nil {
		t.Fatal("expected Init to fail with no usable memory")
	}
}

func TestAllocPagesMonotonicAndPageAligned(t *testing.T) {
	regions := []bootinfo.MemoryRegion{
		{Base: 0x10_0000, Len: 0x10_0000, Kind: bootinfo.RegionUsable},
	}
	if _, err := Init(regions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var prev uintptr
	for i := 0; i < 4; i++ {
		f := AllocFrame()
		if !f.Valid() {
			t.Fatalf("expected frame %d to be valid", i)
		}
		addr := f.Address()
		if addr%uintptr(mem.PageSize) != 0 {
			t.Fatalf("frame %d address %#x is not page-aligned", i, addr)
		}
		if addr < firstMebibyte {
			t.Fatalf("frame %d address %#x falls inside the first mebibyte", i, addr)
		}
		if i > 0 && addr <= prev {
			t.Fatalf("frame %d address %#x did not advance past previous %#x", i, addr, prev)
		}
		prev = addr
	}
}

func TestAllocPagesExhaustion(t *testing.T) {
	regions := []bootinfo.MemoryRegion{
		{Base: 0x10_0000, Len: 0x2000, Kind: bootinfo.RegionUsable},
	}
	if _, err := Init(regions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The region [0x100000,0x102000) starts right at the end of the first
	// mebibyte, so exactly two frames are available before exhaustion.
	first := AllocFrame()
	if !first.Valid() {
		t.Fatal("expected a first free frame")
	}
	if second := AllocFrame(); !second.Valid() {
		t.Fatal("expected a second free frame")
	}
	if third := AllocFrame(); third.Valid() {
		t.Fatalf("expected allocator to be exhausted; got %#x", third.Address())
	}
}
