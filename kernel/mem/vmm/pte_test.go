package vmm

import (
	"testing"

	"github.com/mantraos/mantracore/kernel/mem/pmm"
)

func TestPageTableEntryFlags(t *testing.T) {
	var e pageTableEntry

	if e.HasFlags(FlagPresent) {
		t.Fatal("expected fresh entry to have no flags set")
	}

	e.SetFlags(FlagPresent | FlagRW)
	if !e.HasFlags(FlagPresent | FlagRW) {
		t.Fatal("expected entry to have FlagPresent and FlagRW set")
	}
	if e.HasFlags(FlagUser) {
		t.Fatal("did not expect FlagUser to be set")
	}

	e.ClearFlags(FlagRW)
	if e.HasFlags(FlagRW) {
		t.Fatal("expected FlagRW to be cleared")
	}
	if !e.HasFlags(FlagPresent) {
		t.Fatal("expected FlagPresent to remain set")
	}
}

func TestPageTableEntryFrame(t *testing.T) {
	var e pageTableEntry

	frame := pmm.Frame(0x1234)
	e.SetFlags(FlagPresent | FlagRW | FlagUser)
	e.SetFrame(frame)

	if got := e.Frame(); got != frame {
		t.Fatalf("expected frame %#x; got %#x", frame, got)
	}
	if !e.HasFlags(FlagPresent | FlagRW | FlagUser) {
		t.Fatal("expected SetFrame to preserve flag bits")
	}
}

func TestPhysToVirt(t *testing.T) {
	if got, exp := PhysToVirt(0x1000), uintptr(HHDMBase+0x1000); got != exp {
		t.Fatalf("expected %#x; got %#x", exp, got)
	}
}
