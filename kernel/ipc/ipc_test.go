package ipc

import "testing"

func resetIPC(t *testing.T) {
	t.Helper()
	origEndpoints := endpoints
	origNextEP := nextEP
	t.Cleanup(func() {
		endpoints = origEndpoints
		nextEP = origNextEP
	})
	nextEP = 0
	endpoints = [maxEndpoints]endpoint{}
}

func TestEndpointAlloc(t *testing.T) {
	resetIPC(t)

	ep1, ok := EndpointAlloc()
	if !ok || ep1 != 1 {
		t.Fatalf("expected first endpoint id 1; got %d", ep1)
	}
	ep2, ok := EndpointAlloc()
	if !ok || ep2 != 2 {
		t.Fatalf("expected second endpoint id 2; got %d", ep2)
	}
}

func TestEndpointAllocExhaustion(t *testing.T) {
	resetIPC(t)
	for i := 0; i < maxEndpoints; i++ {
		if _, ok := EndpointAlloc(); !ok {
			t.Fatalf("expected allocation %d to succeed", i)
		}
	}
	if _, ok := EndpointAlloc(); ok {
		t.Fatal("expected allocation to fail once exhausted")
	}
}

func TestWaiterPushPopFIFO(t *testing.T) {
	resetIPC(t)

	if !WaiterPush(1, 3) {
		t.Fatal("expected push to succeed")
	}
	if !WaiterPush(1, 5) {
		t.Fatal("expected second push to succeed")
	}

	pid, ok := WaiterPop(1)
	if !ok || pid != 3 {
		t.Fatalf("expected FIFO pop of pid 3; got %d", pid)
	}
	pid, ok = WaiterPop(1)
	if !ok || pid != 5 {
		t.Fatalf("expected FIFO pop of pid 5; got %d", pid)
	}
	if _, ok := WaiterPop(1); ok {
		t.Fatal("expected pop on empty waiter ring to fail")
	}
}

func TestWaiterPushRejectsInvalidEndpoint(t *testing.T) {
	resetIPC(t)
	if WaiterPush(0, 1) {
		t.Fatal("expected endpoint id 0 to be rejected")
	}
}

func TestEndpointRingRoundTrip(t *testing.T) {
	resetIPC(t)

	epi := 0
	endpoints[epi] = endpoint{}
	// Directly exercise the ring without going through sched's capability
	// table by writing straight into the endpoint slot via EpSendCap's
	// sibling helpers is not possible (cap resolution is required), so
	// round-trip through the ring primitives at the endpoint level instead.
	ep := &endpoints[epi]
	ep.buf[0].len = 3
	copy(ep.buf[0].data[:3], []byte("abc"))
	ep.tail = 1

	out := make([]byte, 8)
	if ep.head == ep.tail {
		t.Fatal("expected a queued message")
	}
	n := int(ep.buf[ep.head%qLen].len)
	copy(out, ep.buf[ep.head%qLen].data[:n])
	if string(out[:n]) != "abc" {
		t.Fatalf("expected %q; got %q", "abc", out[:n])
	}
}

func TestEpSendCapUnknownCapability(t *testing.T) {
	resetIPC(t)
	if got := EpSendCap(999, []byte("x"), 0); got != ErrNone {
		t.Fatalf("expected ErrNone for unresolved capability; got %#x", got)
	}
}

func TestEpRecvCapUnknownCapability(t *testing.T) {
	resetIPC(t)
	n, xfer := EpRecvCap(999, make([]byte, 4))
	if n != ErrNone || xfer != 0 {
		t.Fatalf("expected ErrNone/0 for unresolved capability; got %#x, %d", n, xfer)
	}
}

func TestMessageRingFullDetection(t *testing.T) {
	resetIPC(t)
	ep := &endpoints[0]
	ep.tail = qLen - 1
	ep.head = 0
	if (ep.tail+1)%qLen != ep.head {
		t.Fatal("expected ring arithmetic to detect full at qLen-1 occupied slots")
	}
}
