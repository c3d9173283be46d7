package heap

import (
	"testing"

	"github.com/mantraos/mantracore/kernel/mem"
	"github.com/mantraos/mantracore/kernel/mem/pmm"
)

func resetHeap(t *testing.T) {
	t.Helper()
	origAllocPages, origPhysToVirt := allocPagesFn, physToVirtFn
	start, end, next, ready = 0, 0, 0, false
	t.Cleanup(func() {
		allocPagesFn, physToVirtFn = origAllocPages, origPhysToVirt
		start, end, next, ready = 0, 0, 0, false
	})
}

func TestInitBacksOffOnFailure(t *testing.T) {
	resetHeap(t)

	var requested []uint64
	allocPagesFn = func(n uint64) pmm.Frame {
		requested = append(requested, n)
		if n == minPages {
			return pmm.Frame(0)
		}
		return pmm.InvalidFrame
	}
	physToVirtFn = func(phys uintptr) uintptr { return phys }

	Init()

	if !ready {
		t.Fatal("expected heap to become ready once minPages succeeds")
	}
	if requested[0] != startPages {
		t.Fatalf("expected the first attempt to request %d pages; got %d", startPages, requested[0])
	}
	if requested[len(requested)-1] != minPages {
		t.Fatalf("expected the last attempt to request %d pages; got %d", minPages, requested[len(requested)-1])
	}
	for _, n := range requested {
		if n < minPages {
			t.Fatalf("backoff went below minPages: requested %d", n)
		}
	}
}

func TestInitDisablesHeapWhenExhausted(t *testing.T) {
	resetHeap(t)
	allocPagesFn = func(n uint64) pmm.Frame { return pmm.InvalidFrame }

	Init()

	if ready {
		t.Fatal("expected heap to stay disabled when no run is available")
	}
	if got := Alloc(8, 8); got != nil {
		t.Fatal("expected Alloc to return nil on a disabled heap")
	}
}

func TestAllocBumpsAndAligns(t *testing.T) {
	resetHeap(t)
	allocPagesFn = func(n uint64) pmm.Frame { return pmm.Frame(0x100) }
	physToVirtFn = func(phys uintptr) uintptr { return phys }
	Init()

	a := Alloc(3, 1)
	if len(a) != 3 {
		t.Fatalf("expected a 3-byte slice; got %d", len(a))
	}

	b := Alloc(8, 8)
	if uintptr(len(b)) != 8 {
		t.Fatalf("expected an 8-byte slice; got %d", len(b))
	}
	// b must start at an 8-byte aligned address strictly after a's 3 bytes.
	if next%8 != 0 {
		t.Fatalf("expected the bump cursor to stay 8-byte aligned; got %#x", next)
	}
}

func TestAllocFailsPastEnd(t *testing.T) {
	resetHeap(t)
	allocPagesFn = func(n uint64) pmm.Frame { return pmm.Frame(0) }
	physToVirtFn = func(phys uintptr) uintptr { return phys }
	Init()

	size := uintptr(startPages) * uintptr(mem.PageSize)
	if got := Alloc(size+1, 1); got != nil {
		t.Fatal("expected Alloc to fail once it would overrun the reserved run")
	}
}

func TestReady(t *testing.T) {
	resetHeap(t)
	if Ready() {
		t.Fatal("expected Ready to be false before Init")
	}
	allocPagesFn = func(n uint64) pmm.Frame { return pmm.Frame(0) }
	physToVirtFn = func(phys uintptr) uintptr { return phys }
	Init()
	if !Ready() {
		t.Fatal("expected Ready to be true after a successful Init")
	}
}
