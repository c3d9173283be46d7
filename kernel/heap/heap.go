// Package heap carves a large contiguous physical run out of the PMM at
// boot and hands out bump-allocated slices from it. Nothing is ever freed;
// this exists for kernel-side bookkeeping that needs memory before (or
// independent of) the Go runtime allocator goruntime wires up.
package heap

import (
	"github.com/mantraos/mantracore/kernel/kfmt/early"
	"github.com/mantraos/mantracore/kernel/mem"
	"github.com/mantraos/mantracore/kernel/mem/pmm"
	"github.com/mantraos/mantracore/kernel/mem/vmm"
)

// startPages is the first page count tried when reserving the heap's
// backing run; failure halves it until minPages is reached.
const (
	startPages = 4096 // 16 MiB
	minPages   = 128
)

var (
	start uintptr
	end   uintptr
	next  uintptr
	ready bool

	// allocPagesFn and physToVirtFn are mocked by tests.
	allocPagesFn = pmm.AllocPages
	physToVirtFn = vmm.PhysToVirt
)

// Init reserves a contiguous physical run for the heap, starting at
// startPages and backing off by half on failure until minPages. If even
// that fails, the heap stays disabled and every Alloc call returns nil;
// callers that can't tolerate that should check Ready first.
func Init() {
	pages := uint64(startPages)
	var base pmm.Frame
	for pages >= minPages {
		base = allocPagesFn(pages)
		if base.Valid() {
			break
		}
		pages /= 2
	}

	if !base.Valid() {
		early.Printf("heap: init failed (no pages)\n")
		return
	}

	size := pages * uint64(mem.PageSize)
	baseVirt := physToVirtFn(base.Address())

	start = baseVirt
	end = baseVirt + uintptr(size)
	next = baseVirt
	ready = true

	early.Printf("heap: initialized base(p)=%x base(v)=%x size=%dMiB\n",
		base.Address(), baseVirt, size/(1024*1024))
}

// Ready reports whether Init successfully reserved a backing run.
func Ready() bool {
	return ready
}

func alignUp(x, a uintptr) uintptr {
	if a == 0 {
		return x
	}
	return (x + a - 1) &^ (a - 1)
}

// Alloc returns a size-byte, align-byte-aligned region carved from the
// heap's run, or nil if the heap isn't ready or has run out of room.
func Alloc(size, align uintptr) []byte {
	if !ready {
		return nil
	}

	at := alignUp(next, align)
	newNext := at + size
	if newNext > end || newNext < at {
		return nil
	}
	next = newNext

	return unsafeSlice(at, int(size))
}
