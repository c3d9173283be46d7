// Package goruntime contains code for bootstrapping Go runtime features such
// as the memory allocator.
package goruntime

import (
	"unsafe"

	"github.com/mantraos/mantracore/kernel"
	"github.com/mantraos/mantracore/kernel/mem"
	"github.com/mantraos/mantracore/kernel/mem/pmm"
	"github.com/mantraos/mantracore/kernel/mem/vmm"
)

var errOOM = &kernel.Error{Module: "goruntime", Message: "out of physical memory for the Go heap"}

var (
	kmapReserveFn  = vmm.KmapReserveRegion
	kmapMapFixedFn = vmm.KmapMapFixed4K
	frameAllocFn   = defaultFrameAlloc
)

func defaultFrameAlloc() (pmm.Frame, *kernel.Error) {
	f := pmm.AllocFrame()
	if !f.Valid() {
		return pmm.InvalidFrame, errOOM
	}
	return f, nil
}

//go:linkname mSysStatInc runtime.mSysStatInc
func mSysStatInc(*uint64, uintptr)

//go:linkname algInit runtime.alginit
func algInit()

//go:linkname modulesInit runtime.modulesinit
func modulesInit()

//go:linkname typeLinksInit runtime.typelinksinit
func typeLinksInit()

//go:linkname itabsInit runtime.itabsinit
func itabsInit()

//go:linkname mallocInit runtime.mallocinit
func mallocInit()

var (
	mallocInitFn    = mallocInit
	algInitFn       = algInit
	modulesInitFn   = modulesInit
	typeLinksInitFn = typeLinksInit
	itabsInitFn     = itabsInit
)

// Init enables support for various Go runtime features. After a call to
// Init the following become usable:
//   - heap memory allocation (new, make, etc)
//   - map primitives
//   - interfaces
func Init() *kernel.Error {
	mallocInitFn()
	algInitFn()       // hash implementation for map keys
	modulesInitFn()   // provides activeModules
	typeLinksInitFn() // uses maps, activeModules
	itabsInitFn()     // uses activeModules

	return nil
}

// sysReserve claims address space in the kernel's kmap window without
// establishing any page mappings; sysMap/sysAlloc back individual pages of
// the reservation with real frames only once the runtime actually touches
// them.
//
// This function replaces runtime.sysReserve and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysReserve
//go:nosplit
func sysReserve(_ unsafe.Pointer, size uintptr, reserved *bool) unsafe.Pointer {
	pageCount := uintptr(mem.Size(size).Pages())
	virt := kmapReserveFn(pageCount)

	*reserved = true
	return unsafe.Pointer(virt)
}

// sysMap backs a range inside an already-reserved region with freshly
// allocated, zeroed frames.
//
// This function replaces runtime.sysMap and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysMap
//go:nosplit
func sysMap(virtAddr unsafe.Pointer, size uintptr, reserved bool, sysStat *uint64) unsafe.Pointer {
	if !reserved {
		panic("sysMap should only be called with reserved=true")
	}

	regionStart := (uintptr(virtAddr) + uintptr(mem.PageSize-1)) &^ uintptr(mem.PageSize-1)
	pageCount := mem.Size(size).Pages()

	for i := uint32(0); i < pageCount; i++ {
		virt := regionStart + uintptr(i)*uintptr(mem.PageSize)
		frame, err := frameAllocFn()
		if err != nil {
			return unsafe.Pointer(uintptr(0))
		}
		if err := kmapMapFixedFn(virt, frame, vmm.FlagRW, frameAllocFn); err != nil {
			return unsafe.Pointer(uintptr(0))
		}
	}

	mSysStatInc(sysStat, uintptr(pageCount)*uintptr(mem.PageSize))
	return unsafe.Pointer(regionStart)
}

// sysAlloc reserves and immediately backs a fresh region with real frames,
// returning the virtual address it starts at.
//
// This function replaces runtime.sysAlloc and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysAlloc
//go:nosplit
func sysAlloc(size uintptr, sysStat *uint64) unsafe.Pointer {
	pageCount := mem.Size(size).Pages()
	virt := kmapReserveFn(uintptr(pageCount))

	for i := uint32(0); i < pageCount; i++ {
		page := virt + uintptr(i)*uintptr(mem.PageSize)
		frame, err := frameAllocFn()
		if err != nil {
			return unsafe.Pointer(uintptr(0))
		}
		if err := kmapMapFixedFn(page, frame, vmm.FlagRW, frameAllocFn); err != nil {
			return unsafe.Pointer(uintptr(0))
		}
	}

	mSysStatInc(sysStat, uintptr(pageCount)*uintptr(mem.PageSize))
	return unsafe.Pointer(virt)
}

func init() {
	// Dummy calls so the compiler does not optimize away the functions in
	// this file.
	var (
		reserved bool
		stat     uint64
		zeroPtr  = unsafe.Pointer(uintptr(0))
	)

	sysReserve(zeroPtr, 0, &reserved)
	sysMap(zeroPtr, 0, reserved, &stat)
	sysAlloc(0, &stat)
}
