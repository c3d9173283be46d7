// Package ipc implements the kernel's endpoint messaging: a fixed pool of
// endpoints, each backed by a small ring buffer of queued messages and a
// ring of waiting receivers. Endpoints have global 1-based ids; processes
// name them through per-process capability numbers resolved by
// kernel/sched, and a message that transfers a capability carries the
// endpoint id, not the sender's capability number.
package ipc

import "github.com/mantraos/mantracore/kernel/sched"

const (
	maxEndpoints = 32
	maxMsg       = 256
	qLen         = 32
	maxWaiters   = 8
)

// Sentinel return values mirroring the syscall ABI's u64::MAX-family codes:
// ordinary byte counts never collide with these since a message is capped
// at maxMsg.
const (
	ErrNone     = ^uint64(0)     // no such capability/endpoint
	ErrQueueFull = ^uint64(0) - 1 // send: ring buffer full
	ErrEmpty    = ^uint64(0) - 2 // recv: ring buffer empty
)

type message struct {
	len     uint16
	xferEP  uint32
	data    [maxMsg]byte
}

type endpoint struct {
	head, tail           int
	buf                  [qLen]message
	waitHead, waitTail   int
	waiters              [maxWaiters]uint8
}

var (
	endpoints [maxEndpoints]endpoint
	nextEP    int
)

// EndpointAlloc reserves the next unused endpoint slot and returns its
// 1-based id, or false once all slots are taken.
func EndpointAlloc() (uint32, bool) {
	i := nextEP
	nextEP++
	if i >= maxEndpoints {
		return 0, false
	}
	return uint32(i) + 1, true
}

// EpCreate allocates a new endpoint and a capability to it in the calling
// process's table, returning the capability number (or ErrNone).
func EpCreate() uint64 {
	ep, ok := EndpointAlloc()
	if !ok {
		return ErrNone
	}
	cap, ok := sched.CapAllocCurrent(ep)
	if !ok {
		return ErrNone
	}
	return uint64(cap)
}

// WaiterPush enqueues pid as waiting to receive on endpointID. Returns
// false if the endpoint id is invalid or its waiter ring is full.
func WaiterPush(endpointID uint32, pid int) bool {
	if endpointID == 0 || pid < 0 || pid > 0xFF {
		return false
	}
	epi := int(endpointID) - 1
	if epi < 0 || epi >= maxEndpoints {
		return false
	}
	ep := &endpoints[epi]
	if (ep.waitTail+1)%maxWaiters == ep.waitHead {
		return false
	}
	ep.waiters[ep.waitTail%maxWaiters] = uint8(pid)
	ep.waitTail = (ep.waitTail + 1) % maxWaiters
	return true
}

// WaiterPop dequeues the next process waiting on endpointID, if any.
func WaiterPop(endpointID uint32) (int, bool) {
	if endpointID == 0 {
		return 0, false
	}
	epi := int(endpointID) - 1
	if epi < 0 || epi >= maxEndpoints {
		return 0, false
	}
	ep := &endpoints[epi]
	if ep.waitHead == ep.waitTail {
		return 0, false
	}
	pid := int(ep.waiters[ep.waitHead%maxWaiters])
	ep.waitHead = (ep.waitHead + 1) % maxWaiters
	return pid, true
}

// EpSend is EpSendCap with no capability transfer.
func EpSend(cap uint32, msg []byte) uint64 {
	return EpSendCap(cap, msg, 0)
}

// EpSendCap resolves cap to an endpoint via the calling process's
// capability table and enqueues msg (truncated to maxMsg bytes), optionally
// alongside a transferred endpoint id. Returns the number of bytes queued,
// or one of the Err* sentinels.
func EpSendCap(cap uint32, msg []byte, xferEP uint32) uint64 {
	epID, ok := sched.CapLookupCurrent(cap)
	if !ok {
		return ErrNone
	}
	epi := int(epID) - 1
	if epi < 0 || epi >= maxEndpoints {
		return ErrNone
	}

	n := len(msg)
	if n > maxMsg {
		n = maxMsg
	}

	ep := &endpoints[epi]
	if (ep.tail+1)%qLen == ep.head {
		return ErrQueueFull
	}
	slot := ep.tail % qLen
	ep.buf[slot].len = uint16(n)
	ep.buf[slot].xferEP = xferEP
	copy(ep.buf[slot].data[:n], msg[:n])
	ep.tail = (ep.tail + 1) % qLen
	return uint64(n)
}

// EpRecv is EpRecvCap discarding any transferred capability.
func EpRecv(cap uint32, out []byte) uint64 {
	n, _ := EpRecvCap(cap, out)
	return n
}

// EpRecvCap resolves cap and dequeues the oldest message into out
// (truncated to len(out)), returning the byte count and any transferred
// endpoint id, or one of the Err* sentinels.
func EpRecvCap(cap uint32, out []byte) (uint64, uint32) {
	epID, ok := sched.CapLookupCurrent(cap)
	if !ok {
		return ErrNone, 0
	}
	epi := int(epID) - 1
	if epi < 0 || epi >= maxEndpoints {
		return ErrNone, 0
	}

	ep := &endpoints[epi]
	if ep.head == ep.tail {
		return ErrEmpty, 0
	}
	slot := ep.head % qLen
	n := int(ep.buf[slot].len)
	if n > len(out) {
		n = len(out)
	}
	xferEP := ep.buf[slot].xferEP
	copy(out[:n], ep.buf[slot].data[:n])
	ep.head = (ep.head + 1) % qLen
	return uint64(n), xferEP
}
