// Package sched implements a fixed-size, preemptible round-robin scheduler.
// It owns the process table, the capability table embedded in each process
// slot, and the two entry points the trap trampolines call into: one per
// timer tick, one per syscall-driven yield/block. There is exactly one CPU,
// so the only reentrancy hazard is an interrupt firing while the table is
// being read or written; critical sections are guarded by disabling
// interrupts rather than a spinlock, the same way the rest of the kernel
// treats single-core state.
package sched

import (
	"unsafe"

	"github.com/mantraos/mantracore/kernel/cpu"
	"github.com/mantraos/mantracore/kernel/gdt"
	"github.com/mantraos/mantracore/kernel/kfmt/early"
	"github.com/mantraos/mantracore/kernel/pic"
	"github.com/mantraos/mantracore/kernel/trap"
)

// MaxProcs bounds the process table; there is no dynamic process creation
// beyond this many concurrent, live processes.
const MaxProcs = 8

// MaxCaps bounds the per-process capability table.
const MaxCaps = 32

type proc struct {
	tfRSP     uint64
	kstackTop uint64
	cr3       uint64
	caps      [MaxCaps]uint32
	alive     bool
	runnable  bool
	blockedEP uint32
}

var (
	inited  bool
	current int
	ticks   uint64
	procs   [MaxProcs]proc
)

func withInterruptsDisabled(f func()) {
	cpu.DisableInterrupts()
	f()
	cpu.EnableInterrupts()
}

// InstallFirst seeds process slot 0 as the first runnable task and wires
// trap.TimerHandler to OnTimerIRQ (trap.SyscallHandler is set by kmain). Called
// once at boot after the first process's address space and trap frame have
// been built.
func InstallFirst(tfRSP, kstackTop, cr3 uint64) {
	withInterruptsDisabled(func() {
		procs[0] = proc{tfRSP: tfRSP, kstackTop: kstackTop, cr3: cr3, alive: true, runnable: true}
		for i := 1; i < MaxProcs; i++ {
			procs[i] = proc{}
		}
		trap.NextCR3 = cr3
		current = 0
		inited = true
	})

	trap.TimerHandler = OnTimerIRQ

	early.Printf("sched: installed proc0\n")
}

// CurrentPid returns the pid of the currently running process.
func CurrentPid() int {
	return current
}

// SpawnProc installs a new process in the first free slot and marks it
// runnable. Returns false if the table is full.
func SpawnProc(tfRSP, kstackTop, cr3 uint64) (int, bool) {
	result := -1
	withInterruptsDisabled(func() {
		for pid := range procs {
			if !procs[pid].alive {
				procs[pid] = proc{tfRSP: tfRSP, kstackTop: kstackTop, cr3: cr3, alive: true, runnable: true}
				result = pid
				return
			}
		}
	})
	return result, result >= 0
}

// ProcCR3 returns the address-space root of pid, if it exists.
func ProcCR3(pid int) (uint64, bool) {
	if pid < 0 || pid >= MaxProcs {
		return 0, false
	}
	return procs[pid].cr3, true
}

// ProcTrapFrameRSP returns the saved kernel stack pointer (pointing at the
// process's last-saved TrapFrame/SyscallFrame) of pid, if it exists.
func ProcTrapFrameRSP(pid int) (uint64, bool) {
	if pid < 0 || pid >= MaxProcs {
		return 0, false
	}
	return procs[pid].tfRSP, true
}

// Wake marks pid runnable again and clears any endpoint it was blocked on.
func Wake(pid int) {
	if pid < 0 || pid >= MaxProcs {
		return
	}
	withInterruptsDisabled(func() {
		if procs[pid].alive {
			procs[pid].runnable = true
			procs[pid].blockedEP = 0
		}
	})
}

// BlockCurrentOnEndpoint marks the running process as not runnable, pending
// a message on epID.
func BlockCurrentOnEndpoint(epID uint32) {
	withInterruptsDisabled(func() {
		procs[current].runnable = false
		procs[current].blockedEP = epID
	})
}

// HasOtherRunnable reports whether any process besides the current one is
// alive and runnable.
func HasOtherRunnable() bool {
	for pid := range procs {
		if pid != current && procs[pid].alive && procs[pid].runnable {
			return true
		}
	}
	return false
}

func pickNextRunnable(cur int) int {
	next := cur
	for i := 0; i < MaxProcs; i++ {
		next = (next + 1) % MaxProcs
		if procs[next].alive && procs[next].runnable {
			return next
		}
	}
	return cur
}

// switchFrom records curTF as the current process's saved frame pointer,
// picks the next runnable process (round-robin from the current one), and
// if it differs from the current process, updates the TSS RSP0 and
// trap.NextCR3 for the upcoming switch and returns the new process's saved
// frame pointer. Returns 0 if no other process is runnable, telling the
// caller to resume the interrupted process unchanged.
func switchFrom(curTF uint64) uint64 {
	cur := current
	procs[cur].tfRSP = curTF

	next := pickNextRunnable(cur)
	if next == cur {
		return 0
	}

	gdt.SetRSP0(procs[next].kstackTop)
	trap.NextCR3 = procs[next].cr3
	current = next
	return procs[next].tfRSP
}

// YieldFromSyscall is switchFrom's entry point from a cooperative syscall.
func YieldFromSyscall(curTF uint64) uint64 {
	if !inited {
		return 0
	}
	return switchFrom(curTF)
}

// OnTimerIRQ is trap.TimerHandler's implementation: it is called with the
// interrupted process's TrapFrame on every timer tick.
func OnTimerIRQ(tf *trap.TrapFrame) uint64 {
	// Acknowledge the PIC before doing anything else: until EOI(0) is sent
	// the 8259 holds IRQ0 in service and never raises it again.
	pic.EOI(0)

	if !inited {
		return 0
	}

	ticks++
	cur := current
	nextTF := switchFrom(uint64(uintptr(unsafe.Pointer(tf))))
	if nextTF == 0 {
		return 0
	}
	next := current

	if ticks%100 == 0 {
		early.Printf("sched: tick=%d switch %d->%d\n", ticks, cur, next)
	}
	return nextTF
}

// CapAllocFor installs a capability to endpointID in pid's first free slot
// and returns the allocated (1-based) capability number.
func CapAllocFor(pid int, endpointID uint32) (uint32, bool) {
	if pid < 0 || pid >= MaxProcs || endpointID == 0 {
		return 0, false
	}
	for i := range procs[pid].caps {
		if procs[pid].caps[i] == 0 {
			procs[pid].caps[i] = endpointID
			return uint32(i) + 1, true
		}
	}
	return 0, false
}

// CapAllocCurrent is CapAllocFor for the running process.
func CapAllocCurrent(endpointID uint32) (uint32, bool) {
	return CapAllocFor(current, endpointID)
}

// CapLookupCurrent resolves a capability number to an endpoint id for the
// running process.
func CapLookupCurrent(cap uint32) (uint32, bool) {
	if cap == 0 {
		return 0, false
	}
	idx := int(cap) - 1
	if idx < 0 || idx >= MaxCaps {
		return 0, false
	}
	ep := procs[current].caps[idx]
	if ep == 0 {
		return 0, false
	}
	return ep, true
}
