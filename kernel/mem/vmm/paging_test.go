package vmm

import (
	"testing"
	"unsafe"
)

func resetKernelPaging(t *testing.T) {
	t.Helper()
	origFrame := kernelPML4Frame
	origCursor := kmapCursor
	t.Cleanup(func() {
		kernelPML4Frame = origFrame
		kmapCursor = origCursor
	})
	kmapCursor = 0
}

func TestInitSharesPDPTBetweenIdentityAndHHDM(t *testing.T) {
	withFakeHHDM(t)
	resetKernelPaging(t)

	pool := &fakePagePool{}
	if err := Init(0x1000_0000, pool.alloc); err != nil {
		t.Fatal(err)
	}

	pml4 := tableAt(kernelPML4Frame)
	identityEntry := pml4[0]
	hhdmEntry := pml4[hhdmPML4Index]

	if identityEntry.Frame() != hhdmEntry.Frame() {
		t.Fatal("expected PML4[0] and PML4[hhdmPML4Index] to share the same PDPT frame")
	}

	phys, err := Translate(pml4, 0x20_0000)
	if err != nil {
		t.Fatal(err)
	}
	if phys != 0x20_0000 {
		t.Fatalf("expected identity translation of 0x200000 to be itself; got %#x", phys)
	}

	phys, err = Translate(pml4, HHDMBase+0x20_0000)
	if err != nil {
		t.Fatal(err)
	}
	if phys != 0x20_0000 {
		t.Fatalf("expected HHDM translation of 0x200000 to be itself; got %#x", phys)
	}
}

func TestKmapMap4KAdvancesCursor(t *testing.T) {
	withFakeHHDM(t)
	resetKernelPaging(t)

	pool := &fakePagePool{}
	if err := Init(0x1000_0000, pool.alloc); err != nil {
		t.Fatal(err)
	}

	frameA, _ := pool.alloc()
	frameB, _ := pool.alloc()

	virtA, err := KmapMap4K(frameA, FlagRW, pool.alloc)
	if err != nil {
		t.Fatal(err)
	}
	virtB, err := KmapMap4K(frameB, FlagRW, pool.alloc)
	if err != nil {
		t.Fatal(err)
	}

	if virtA == virtB {
		t.Fatal("expected distinct kmap slots for successive mappings")
	}
	if virtA < KmapBase || virtB < KmapBase {
		t.Fatal("expected kmap addresses to fall within the kmap window")
	}

	phys, err := Translate(tableAt(kernelPML4Frame), virtA)
	if err != nil {
		t.Fatal(err)
	}
	if phys != frameA.Address() {
		t.Fatalf("expected %#x; got %#x", frameA.Address(), phys)
	}
}

func TestKmapSmokeTest(t *testing.T) {
	withFakeHHDM(t)
	resetKernelPaging(t)

	origPtrFromUintptr := ptrFromUintptrFn
	t.Cleanup(func() { ptrFromUintptrFn = origPtrFromUintptr })

	pool := &fakePagePool{}
	if err := Init(0x1000_0000, pool.alloc); err != nil {
		t.Fatal(err)
	}

	// Dereferencing a real kmap virtual address requires live paging; in
	// tests we instead resolve straight through the fake HHDM backing the
	// mapped frame, exercising the same map-then-access path.
	ptrFromUintptrFn = func(virt uintptr) unsafe.Pointer {
		phys, err := Translate(tableAt(kernelPML4Frame), virt)
		if err != nil {
			t.Fatalf("unexpected translate error: %v", err)
		}
		return unsafe.Pointer(physToVirtFn(phys))
	}

	if !KmapSmokeTest(pool.alloc) {
		t.Fatal("expected kmap smoke test to succeed")
	}
}
