// Package user builds the first user-mode processes: it turns an embedded
// ELF image (or, failing that, a hand-built two-instruction stub) into a
// fully-mapped per-process address space and an initial trap frame, and
// carries the two entry points that cross the kernel/user boundary for the
// very first time and on every later PROC_SPAWN syscall.
package user

import (
	"github.com/mantraos/mantracore/kernel"
	"github.com/mantraos/mantracore/kernel/gdt"
	"github.com/mantraos/mantracore/kernel/kfmt/early"
	"github.com/mantraos/mantracore/kernel/mem"
	"github.com/mantraos/mantracore/kernel/mem/pmm"
	"github.com/mantraos/mantracore/kernel/mem/vmm"
	"github.com/mantraos/mantracore/kernel/sched"
	"github.com/mantraos/mantracore/kernel/syscall"
	"github.com/mantraos/mantracore/kernel/trap"
)

// Init wires this package's ProcSpawn implementation into the syscall
// dispatcher. Called once at boot, before EnterFirstUser.
func Init() {
	syscall.SpawnFn = SpawnInitFromSyscall
}

const (
	userStackTop  = uintptr(0x0000_0000_2000_0000)
	userStackSize = 4 * uintptr(mem.PageSize)
	fallbackVA    = uintptr(0x0000_0000_1000_0000)
	kstackSize    = 16 * 1024

	// initProgID is the only program id the loader knows how to spawn: one
	// embedded image, selected by value rather than by name.
	initProgID = 1
)

// fallbackStub is "int 0x80 ; jmp $-2" encoded raw, used when InitELF is
// empty so the kernel still has something runnable to enter.
var fallbackStub = [...]byte{0xcd, 0x80, 0xeb, 0xfc}

// InitELF is the embedded first user program. It is nil until a generated
// file (written by tools/mkinitimage) sets it;
// an empty slice falls back to fallbackStub.
var InitELF []byte

// kstacks pins every kernel stack ever handed to a process so the Go
// runtime's collector never reclaims memory a process's TSS/trap frame
// still points at. Nothing is ever freed, matching the rest of this
// kernel's no-reclaim process model.
var kstacks [][]byte

var (
	kernelPhysBase uintptr
	kernelPhysEnd  uintptr
	maxPhysHint    uintptr
)

var errAllocFailed = &kernel.Error{Module: "user", Message: "out of physical memory while building a process"}

// SetBootRange records the kernel image's own physical extent and the
// highest usable physical address, both needed to build a new process's
// identity mapping of the kernel and its private HHDM. kmain calls this
// once, before the first process is ever built.
func SetBootRange(physBase, physEnd, maxPhysInclusive uintptr) {
	kernelPhysBase, kernelPhysEnd, maxPhysHint = physBase, physEnd, maxPhysInclusive
}

func allocFrame() (pmm.Frame, *kernel.Error) {
	f := pmm.AllocFrame()
	if !f.Valid() {
		return pmm.InvalidFrame, errAllocFailed
	}
	return f, nil
}

// builtProc is everything the scheduler needs to admit a freshly built
// process.
type builtProc struct {
	cr3       uint64
	kstackTop uint64
	tfRSP     uint64
}

// buildProcFromInit creates a brand new address space, maps the kernel's
// own image into it (supervisor-only, so syscalls and interrupts keep
// working after the switch), gives it a private HHDM, loads either InitELF
// or fallbackStub at fallbackVA, maps a fixed-address user stack, and
// writes the initial TrapFrame a process starts executing from.
func buildProcFromInit(role, initEPCap uint64) (*builtProc, *kernel.Error) {
	as, err := vmm.NewAddressSpace(allocFrame)
	if err != nil {
		return nil, err
	}

	if err := mapKernelIdentity(as); err != nil {
		return nil, err
	}
	if err := as.MapHHDM(maxPhysHint, allocFrame); err != nil {
		return nil, err
	}

	entry, err := loadProgram(as)
	if err != nil {
		return nil, err
	}

	if err := mapUserStack(as); err != nil {
		return nil, err
	}
	userRSP := uint64(userStackTop) - 8

	kstackTop := allocKernelStack()
	tf := buildInitialFrame(kstackTop, role, initEPCap, entry, userRSP)

	return &builtProc{
		cr3:       uint64(as.CR3()),
		kstackTop: kstackTop,
		tfRSP:     uint64(tf),
	}, nil
}

// mapKernelIdentity maps the kernel's own physical image supervisor-only at
// an identity virtual address, so code and data the kernel depends on
// (interrupt handlers, the scheduler, this very function) stay reachable
// immediately after CR3 switches into a process's address space.
func mapKernelIdentity(as *vmm.AddressSpace) *kernel.Error {
	base := alignDown(uint64(kernelPhysBase), uint64(mem.PageSize))
	end := alignUp(uint64(kernelPhysEnd), uint64(mem.PageSize))
	for pa := base; pa < end; pa += uint64(mem.PageSize) {
		frame := pmm.FrameFromAddress(uintptr(pa))
		if err := as.MapKernel4K(uintptr(pa), frame, vmm.FlagRW, allocFrame); err != nil {
			return err
		}
	}
	return nil
}

func loadProgram(as *vmm.AddressSpace) (uint64, *kernel.Error) {
	if len(InitELF) > 0 {
		return loadELF(as, InitELF, allocFrame)
	}
	return loadFallbackStub(as)
}

// loadFallbackStub maps a single page at fallbackVA containing "int 0x80 ;
// jmp $-2", used when no real init ELF has been embedded yet.
func loadFallbackStub(as *vmm.AddressSpace) (uint64, *kernel.Error) {
	frame, err := allocFrame()
	if err != nil {
		return 0, err
	}
	virt := vmm.PhysToVirt(frame.Address())
	mem.Memset(virt, 0, mem.PageSize)
	dst := unsafeSlice(virt, len(fallbackStub))
	copy(dst, fallbackStub[:])

	if err := as.MapUser4K(fallbackVA, frame, vmm.FlagRW, allocFrame); err != nil {
		return 0, err
	}
	return uint64(fallbackVA), nil
}

func mapUserStack(as *vmm.AddressSpace) *kernel.Error {
	stackBase := userStackTop - userStackSize
	for off := uintptr(0); off < userStackSize; off += uintptr(mem.PageSize) {
		frame, err := allocFrame()
		if err != nil {
			return err
		}
		mem.Memset(vmm.PhysToVirt(frame.Address()), 0, mem.PageSize)
		if err := as.MapUser4K(stackBase+off, frame, vmm.FlagRW, allocFrame); err != nil {
			return err
		}
	}
	return nil
}

// allocKernelStack leaks a fresh kstackSize-byte slice and returns the
// address just past its end, i.e. where a stack's first push lands.
func allocKernelStack() uint64 {
	stack := make([]byte, kstackSize)
	kstacks = append(kstacks, stack)
	return uint64(addressOf(stack)) + kstackSize
}

// buildInitialFrame writes a trap.TrapFrame at the top of the kernel stack
// addressed by kstackTop and returns its address, i.e. the value
// trap.EnterUser/the scheduler should load into RSP to resume this task
// for the very first time. Entry is via IRETQ rather than a call, so RSP
// is set up the way a call instruction would have left it.
func buildInitialFrame(kstackTop, role, initEPCap, entry, userRSP uint64) uint64 {
	tfAddr := kstackTop - uint64(frameSize)
	tf := frameAt(tfAddr)
	*tf = trap.TrapFrame{
		RDI:    role,
		RSI:    initEPCap,
		RIP:    entry,
		CS:     uint64(gdt.UcodeSel),
		RFlags: 0x202,
		RSP:    userRSP,
		SS:     uint64(gdt.UdataSel),
	}
	return tfAddr
}

func alignDown(x, a uint64) uint64 { return x &^ (a - 1) }
func alignUp(x, a uint64) uint64   { return (x + a - 1) &^ (a - 1) }

// SpawnInitFromSyscall implements the PROC_SPAWN syscall: it admits a new
// copy of the one embedded program, optionally handing it a capability to
// an endpoint the caller already owns, and returns the new process's pid
// (or syscall.ErrVal on failure). Init installs it as syscall.SpawnFn, so
// kernel/syscall never has to import this package.
func SpawnInitFromSyscall(progID, role uint64, shareCap uint32) uint64 {
	const errVal = ^uint64(0)

	if progID != initProgID {
		return errVal
	}

	var childEPCap uint64
	var shareEP uint32
	var haveShare bool
	if shareCap != 0 {
		ep, ok := sched.CapLookupCurrent(shareCap)
		if !ok {
			return errVal
		}
		shareEP, haveShare = ep, true
	}

	proc, err := buildProcFromInit(role, childEPCap)
	if err != nil {
		early.Printf("user: failed to build process: %s\n", err.Error())
		return errVal
	}

	pid, ok := sched.SpawnProc(proc.tfRSP, proc.kstackTop, proc.cr3)
	if !ok {
		return errVal
	}

	if haveShare {
		cap, ok := sched.CapAllocFor(pid, shareEP)
		if ok {
			frameAt(proc.tfRSP).RSI = uint64(cap)
		}
	}

	return uint64(pid)
}

// EnterFirstUser builds the very first process, admits it to the
// scheduler, and jumps into it. It never returns.
func EnterFirstUser(physBase, physEnd, maxPhysInclusive uintptr) {
	SetBootRange(physBase, physEnd, maxPhysInclusive)

	proc, err := buildProcFromInit(0, 0)
	if err != nil {
		kernel.Panic(errAllocFailed)
	}

	sched.InstallFirst(proc.tfRSP, proc.kstackTop, proc.cr3)
	gdt.SetRSP0(proc.kstackTop)

	trap.EnterUser(proc.cr3, proc.tfRSP)
}
