package syscall

import (
	"unsafe"

	"github.com/mantraos/mantracore/kernel/ipc"
	"github.com/mantraos/mantracore/kernel/kfmt/early"
	"github.com/mantraos/mantracore/kernel/sched"
	"github.com/mantraos/mantracore/kernel/serial"
	"github.com/mantraos/mantracore/kernel/trap"
)

// frameAddr returns tf's own address, the value switchFrom expects as "the
// current task's saved frame pointer".
func frameAddr(tf *trap.SyscallFrame) uint64 {
	return uint64(uintptr(unsafe.Pointer(tf)))
}

// frameAt reinterprets a saved kernel RSP as the SyscallFrame it points to.
func frameAt(rsp uint64) *trap.SyscallFrame {
	return (*trap.SyscallFrame)(unsafe.Pointer(uintptr(rsp)))
}

// SpawnFn is called for ProcSpawn; kernel/user sets it during boot to avoid
// an import cycle (user needs sched and vmm, which dispatch already needs).
var SpawnFn = func(progID, role uint64, shareCap uint32) uint64 { return ErrVal }

// Dispatch implements trap.SyscallHandler. tf.RAX selects the operation on
// entry and carries its result on return; a non-zero return value tells
// the trampoline to switch to a different task's saved frame instead of
// resuming this one.
func Dispatch(tf *trap.SyscallFrame) uint64 {
	var switchTo uint64

	switch tf.RAX {
	case Putc:
		serial.WriteByte(byte(tf.RDI))
		tf.RAX = 0

	case Yield:
		tf.RAX = 0
		switchTo = sched.YieldFromSyscall(frameAddr(tf))

	case Write:
		tf.RAX = doWrite(tf.RDI, tf.RSI)

	case IPCEpCreate:
		tf.RAX = ipc.EpCreate()

	case IPCSend:
		tf.RAX = doSend(tf.RDI, tf.RSI, tf.RDX, 0)

	case IPCSendCap:
		tf.RAX = doSend(tf.RDI, tf.RSI, tf.RDX, uint32(tf.RCX))

	case IPCRecv:
		tf.RAX, switchTo = doRecv(tf, tf.RDI, tf.RSI, tf.RDX, false)

	case IPCRecvCap:
		tf.RAX, switchTo = doRecv(tf, tf.RDI, tf.RSI, tf.RDX, true)

	case ProcSpawn:
		tf.RAX = SpawnFn(tf.RDI, tf.RSI, uint32(tf.RDX))

	default:
		early.Printf("SYS: unknown int80 n=%d\n", tf.RAX)
		tf.RAX = ErrVal
	}

	return switchTo
}

func doWrite(userPtr, userLen uint64) uint64 {
	n := int(userLen)
	if n > maxCopyLen {
		n = maxCopyLen
	}

	var written uint64
	for int(written) < n {
		var b [1]byte
		if !userCopyIn(b[:], userPtr+written) {
			break
		}
		serial.WriteByte(b[0])
		written++
	}
	return written
}

func doSend(cap, userPtr, userLen uint64, xferCap uint32) uint64 {
	n := int(userLen)
	if n > tmpBufLen {
		n = tmpBufLen
	}
	var tmp [tmpBufLen]byte
	if !userCopyIn(tmp[:n], userPtr) {
		return ErrVal
	}

	xferEP := uint32(0)
	if xferCap != 0 {
		ep, ok := sched.CapLookupCurrent(xferCap)
		if !ok {
			return ErrVal
		}
		xferEP = ep
	}

	epID, ok := sched.CapLookupCurrent(uint32(cap))
	if !ok {
		return ErrVal
	}
	if pid, ok := ipc.WaiterPop(epID); ok {
		return deliverTo(pid, tmp[:n], xferEP)
	}
	return ipc.EpSendCap(uint32(cap), tmp[:n], xferEP)
}

// doRecv returns (rax, switchTo). A blocking empty receive returns
// (unchanged, switchTo) without touching tf.RAX itself: the sender's
// delivery path (deliverTo) fills it in once a message arrives.
func doRecv(tf *trap.SyscallFrame, cap, userPtr, maxLen uint64, wantCap bool) (uint64, uint64) {
	n := int(maxLen)
	if n > tmpBufLen {
		n = tmpBufLen
	}
	var tmp [tmpBufLen]byte

	got, xferEP := ipc.EpRecvCap(uint32(cap), tmp[:n])
	if got == ipc.ErrNone || got == ipc.ErrEmpty {
		if got == ipc.ErrEmpty && sched.HasOtherRunnable() {
			epID, ok := sched.CapLookupCurrent(uint32(cap))
			if !ok {
				return ErrVal, 0
			}
			if ipc.WaiterPush(epID, sched.CurrentPid()) {
				sched.BlockCurrentOnEndpoint(epID)
				return tf.RAX, sched.YieldFromSyscall(frameAddr(tf))
			}
			return got, 0
		}
		return got, 0
	}

	if !userCopyOut(userPtr, tmp[:got]) {
		return ErrVal, 0
	}
	if wantCap {
		tf.RDX = 0
		if xferEP != 0 {
			if newCap, ok := sched.CapAllocCurrent(xferEP); ok {
				tf.RDX = uint64(newCap)
			}
		}
	}
	return got, 0
}

// deliverTo writes msg directly into pid's pending receive buffer (it is
// blocked waiting for exactly this) and wakes it, mirroring isr.rs's
// deliver_ipc.
func deliverTo(pid int, msg []byte, xferEP uint32) uint64 {
	cr3, ok := sched.ProcCR3(pid)
	if !ok {
		return ErrVal
	}
	tfRSP, ok := sched.ProcTrapFrameRSP(pid)
	if !ok {
		return ErrVal
	}
	receiverTF := frameAt(tfRSP)

	n := int(receiverTF.RDX)
	if n > tmpBufLen {
		n = tmpBufLen
	}
	if n > len(msg) {
		n = len(msg)
	}

	if !userCopyOutTo(cr3, receiverTF.RSI, msg[:n]) {
		return ErrVal
	}

	receiverTF.RAX = uint64(n)
	receiverTF.RDX = 0
	if xferEP != 0 {
		if newCap, ok := sched.CapAllocFor(pid, xferEP); ok {
			receiverTF.RDX = uint64(newCap)
		}
	}
	sched.Wake(pid)
	return uint64(n)
}
