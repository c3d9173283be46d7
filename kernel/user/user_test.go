package user

import "testing"

func TestSetBootRange(t *testing.T) {
	SetBootRange(0x1000, 0x5000, 0x1_0000_0000)
	if kernelPhysBase != 0x1000 || kernelPhysEnd != 0x5000 || maxPhysHint != 0x1_0000_0000 {
		t.Fatal("SetBootRange did not record the supplied range")
	}
}

func TestSpawnInitFromSyscallRejectsUnknownProgram(t *testing.T) {
	if got := SpawnInitFromSyscall(2, 0, 0); got != ^uint64(0) {
		t.Fatalf("expected errVal for an unknown program id; got %#x", got)
	}
}

func TestSpawnInitFromSyscallRejectsUnresolvableShareCap(t *testing.T) {
	// No process table has been installed, so any nonzero capability number
	// fails to resolve before buildProcFromInit is ever reached.
	if got := SpawnInitFromSyscall(initProgID, 0, 7); got != ^uint64(0) {
		t.Fatalf("expected errVal for an unresolvable share capability; got %#x", got)
	}
}

func TestFallbackStubIsIntEightyThenSpin(t *testing.T) {
	if len(fallbackStub) != 4 {
		t.Fatalf("expected a 4-byte stub; got %d bytes", len(fallbackStub))
	}
	if fallbackStub[0] != 0xcd || fallbackStub[1] != 0x80 {
		t.Fatal("expected the stub to open with int 0x80")
	}
}
