package pmm

import (
	"github.com/mantraos/mantracore/kernel"
	"github.com/mantraos/mantracore/kernel/bootinfo"
	"github.com/mantraos/mantracore/kernel/mem"
)

// maxRanges bounds the number of disjoint usable intervals this allocator
// can track. Chosen generously for a bring-up memory map; Init fails if a
// reserved-region subtraction would need to split past this limit.
const maxRanges = 128

// firstMebibyte is always excluded from the usable set, regardless of what
// the firmware reports, to keep low-memory real-mode/firmware structures
// safe from allocation.
const firstMebibyte = 0x10_0000

type rangeT struct {
	base uintptr
	end  uintptr // exclusive
}

var (
	ranges [maxRanges]rangeT
	length int
	cursor int

	errInitNoUsableMemory = &kernel.Error{Module: "pmm", Message: "no usable memory regions"}
	errInitTooManyRanges  = &kernel.Error{Module: "pmm", Message: "too many disjoint memory ranges"}
)

// Stats summarizes the post-Init memory map for diagnostic logging.
type Stats struct {
	UsableBytes uint64
	FreeBytes   uint64
	RangeCount  int
}

func alignUp(x, a uintptr) uintptr {
	return (x + a - 1) &^ (a - 1)
}

func alignDown(x, a uintptr) uintptr {
	return x &^ (a - 1)
}

func overlaps(a0, a1, b0, b1 uintptr) bool {
	return a0 < b1 && b0 < a1
}

// sortByBase runs an insertion sort; N is always small (maxRanges) so this
// avoids pulling in a heap-backed sort for a one-shot boot-time operation.
func sortByBase() {
	for i := 1; i < length; i++ {
		key := ranges[i]
		j := i
		for j > 0 && ranges[j-1].base > key.base {
			ranges[j] = ranges[j-1]
			j--
		}
		ranges[j] = key
	}
}

func mergeAdjacent() {
	if length == 0 {
		return
	}
	out := 0
	i := 0
	for i < length {
		cur := ranges[i]
		i++
		for i < length && ranges[i].base <= cur.end {
			if ranges[i].end > cur.end {
				cur.end = ranges[i].end
			}
			i++
		}
		ranges[out] = cur
		out++
	}
	length = out
}

// subtractReserved removes [resBase, resEnd) from the tracked ranges,
// splitting an interval in two when the reserved span falls strictly
// inside it. Returns false if a split is needed but the array is full.
func subtractReserved(resBase, resEnd uintptr) bool {
	i := 0
	for i < length {
		r := ranges[i]
		if !overlaps(r.base, r.end, resBase, resEnd) {
			i++
			continue
		}

		switch {
		case resBase <= r.base && resEnd >= r.end:
			// Fully covered: remove by shifting left.
			for j := i + 1; j < length; j++ {
				ranges[j-1] = ranges[j]
			}
			length--

		case resBase <= r.base && resEnd < r.end:
			ranges[i].base = resEnd
			i++

		case resBase > r.base && resEnd >= r.end:
			ranges[i].end = resBase
			i++

		default:
			// Overlap in the middle: split into [r.base,resBase) and [resEnd,r.end).
			if length >= maxRanges {
				return false
			}
			left := rangeT{base: r.base, end: resBase}
			right := rangeT{base: resEnd, end: r.end}
			ranges[i] = left
			for j := length; j > i+1; j-- {
				ranges[j] = ranges[j-1]
			}
			ranges[i+1] = right
			length++
			i += 2
		}
	}
	return true
}

// Init builds the usable-frame interval set from the loader-provided
// memory map: collect page-aligned Usable sub-ranges, sort, merge, then
// subtract every non-Usable region and the first mebibyte unconditionally.
func Init(regions []bootinfo.MemoryRegion) (Stats, *kernel.Error) {
	length = 0
	cursor = 0

	var usableBytes uint64
	pageSize := uintptr(mem.PageSize)

	for _, r := range regions {
		if r.Kind != bootinfo.RegionUsable {
			continue
		}
		base := alignUp(uintptr(r.Base), pageSize)
		end := alignDown(uintptr(r.Base+r.Len), pageSize)
		if end <= base {
			continue
		}
		usableBytes += uint64(end - base)
		if length >= maxRanges {
			return Stats{}, errInitTooManyRanges
		}
		ranges[length] = rangeT{base: base, end: end}
		length++
	}

	if length == 0 {
		return Stats{}, errInitNoUsableMemory
	}

	sortByBase()
	mergeAdjacent()

	for _, r := range regions {
		if r.Kind == bootinfo.RegionUsable || r.Len == 0 {
			continue
		}
		resBase := alignDown(uintptr(r.Base), pageSize)
		resEnd := alignUp(uintptr(r.Base+r.Len), pageSize)
		if resEnd <= resBase {
			continue
		}
		if !subtractReserved(resBase, resEnd) {
			return Stats{}, errInitTooManyRanges
		}
	}

	if !subtractReserved(0, firstMebibyte) {
		return Stats{}, errInitTooManyRanges
	}

	// Drop any ranges left empty by the subtractions above.
	out := 0
	for i := 0; i < length; i++ {
		if ranges[i].end > ranges[i].base {
			ranges[out] = ranges[i]
			out++
		}
	}
	length = out
	if length == 0 {
		return Stats{}, errInitNoUsableMemory
	}

	var freeBytes uint64
	for i := 0; i < length; i++ {
		freeBytes += uint64(ranges[i].end - ranges[i].base)
	}

	return Stats{UsableBytes: usableBytes, FreeBytes: freeBytes, RangeCount: length}, nil
}

// AllocPages returns the base frame of n contiguous, never-before-returned
// frames, or InvalidFrame if no interval has enough room. Allocation
// carves from the low end of the current interval and the cursor only
// ever advances; nothing is ever freed.
func AllocPages(n uint64) Frame {
	if n == 0 {
		return InvalidFrame
	}

	need := uintptr(n) << mem.PageShift
	for cursor < length {
		r := &ranges[cursor]
		if r.base >= r.end {
			cursor++
			continue
		}
		if r.end-r.base < need {
			cursor++
			continue
		}

		base := r.base
		r.base += need
		if r.base >= r.end {
			cursor++
		}
		return FrameFromAddress(base)
	}
	return InvalidFrame
}

// AllocFrame is AllocPages(1).
func AllocFrame() Frame {
	return AllocPages(1)
}
