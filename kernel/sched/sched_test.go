package sched

import (
	"testing"

	"github.com/mantraos/mantracore/kernel/trap"
)

func resetSched(t *testing.T) {
	t.Helper()
	origProcs := procs
	origCurrent := current
	origInited := inited
	origTicks := ticks
	origTimerHandler := trap.TimerHandler
	t.Cleanup(func() {
		procs = origProcs
		current = origCurrent
		inited = origInited
		ticks = origTicks
		trap.TimerHandler = origTimerHandler
	})
}

func TestInstallFirst(t *testing.T) {
	resetSched(t)

	InstallFirst(0x1000, 0x2000, 0x3000)

	if !procs[0].alive || !procs[0].runnable {
		t.Fatal("expected proc0 to be alive and runnable")
	}
	if CurrentPid() != 0 {
		t.Fatalf("expected current pid 0; got %d", CurrentPid())
	}
	if trap.NextCR3 != 0x3000 {
		t.Fatalf("expected NextCR3 0x3000; got %#x", trap.NextCR3)
	}
}

func TestSpawnProcFillsFirstFreeSlot(t *testing.T) {
	resetSched(t)
	InstallFirst(0x1000, 0x2000, 0x3000)

	pid, ok := SpawnProc(0x4000, 0x5000, 0x6000)
	if !ok || pid != 1 {
		t.Fatalf("expected pid 1; got %d, ok=%v", pid, ok)
	}

	cr3, ok := ProcCR3(pid)
	if !ok || cr3 != 0x6000 {
		t.Fatalf("expected cr3 0x6000; got %#x", cr3)
	}
}

func TestSpawnProcTableFull(t *testing.T) {
	resetSched(t)
	InstallFirst(0, 0, 0)
	for i := 1; i < MaxProcs; i++ {
		if _, ok := SpawnProc(uint64(i), uint64(i), uint64(i)); !ok {
			t.Fatalf("expected slot %d to be available", i)
		}
	}
	if _, ok := SpawnProc(1, 1, 1); ok {
		t.Fatal("expected table-full spawn to fail")
	}
}

func TestPickNextRunnableRoundRobin(t *testing.T) {
	resetSched(t)
	InstallFirst(0, 0, 0)
	SpawnProc(1, 1, 1)
	SpawnProc(2, 2, 2)

	if got := pickNextRunnable(0); got != 1 {
		t.Fatalf("expected next pid 1; got %d", got)
	}
}

func TestSwitchFromReturnsZeroWhenAlone(t *testing.T) {
	resetSched(t)
	InstallFirst(0x10, 0, 0)

	if got := switchFrom(0x20); got != 0 {
		t.Fatalf("expected 0 with no other runnable process; got %#x", got)
	}
	if procs[0].tfRSP != 0x20 {
		t.Fatal("expected current process's tfRSP to be updated regardless")
	}
}

func TestSwitchFromSwitchesToNextRunnable(t *testing.T) {
	resetSched(t)
	InstallFirst(0x10, 0x100, 0xAAA)
	SpawnProc(0x20, 0x200, 0xBBB)

	next := switchFrom(0x99)
	if next != 0x20 {
		t.Fatalf("expected switch to proc1's saved frame 0x20; got %#x", next)
	}
	if CurrentPid() != 1 {
		t.Fatalf("expected current pid 1; got %d", CurrentPid())
	}
	if trap.NextCR3 != 0xBBB {
		t.Fatalf("expected NextCR3 0xBBB; got %#x", trap.NextCR3)
	}
}

func TestBlockAndWake(t *testing.T) {
	resetSched(t)
	InstallFirst(0, 0, 0)
	SpawnProc(1, 1, 1)

	BlockCurrentOnEndpoint(7)
	if procs[0].runnable {
		t.Fatal("expected current process to be blocked")
	}
	if !HasOtherRunnable() {
		t.Fatal("expected proc1 to still be runnable")
	}

	Wake(0)
	if !procs[0].runnable || procs[0].blockedEP != 0 {
		t.Fatal("expected Wake to clear the block")
	}
}

func TestYieldFromSyscallBeforeInit(t *testing.T) {
	resetSched(t)
	inited = false

	if got := YieldFromSyscall(0x1); got != 0 {
		t.Fatalf("expected 0 before InstallFirst; got %#x", got)
	}
}

func TestCapAllocAndLookup(t *testing.T) {
	resetSched(t)
	InstallFirst(0, 0, 0)

	cap, ok := CapAllocCurrent(42)
	if !ok || cap != 1 {
		t.Fatalf("expected first capability allocated as 1; got %d", cap)
	}

	ep, ok := CapLookupCurrent(cap)
	if !ok || ep != 42 {
		t.Fatalf("expected endpoint 42; got %d", ep)
	}

	if _, ok := CapLookupCurrent(0); ok {
		t.Fatal("expected capability 0 to never resolve")
	}
}

func TestCapAllocForRejectsZeroEndpoint(t *testing.T) {
	resetSched(t)
	InstallFirst(0, 0, 0)

	if _, ok := CapAllocFor(0, 0); ok {
		t.Fatal("expected endpoint id 0 to be rejected")
	}
}
