// Package syscall dispatches int 0x80 traps to the kernel operations user
// processes can invoke: a byte-oriented console write, cooperative
// scheduling yield, capability-based IPC, and process spawn. It is wired
// into kernel/trap during boot (trap.SyscallHandler = syscall.Dispatch) to
// avoid an import cycle between trap and the packages that actually know
// what to do with a trapped syscall.
package syscall

// Numbers, exactly as handed to user code by the init program's syscall
// stubs.
const (
	Putc  = 1
	Yield = 2
	Write = 3 // (ptr,len) -> bytes_written

	IPCEpCreate = 0x10
	IPCSend     = 0x11 // (cap, ptr, len) -> bytes_sent or err
	IPCRecv     = 0x12 // (cap, ptr, max_len) -> bytes_recv or err
	IPCSendCap  = 0x13 // (cap, ptr, len, xfer_cap) -> bytes_sent or err
	IPCRecvCap  = 0x14 // (cap, ptr, max_len) -> bytes_recv or err; rdx=received_cap

	ProcSpawn = 0x20 // (prog_id, role, share_cap) -> pid or err
)

// ErrVal is the sentinel error return value used throughout the ABI
// (u64::MAX in the original), distinct from any real byte count or pid
// since both are bounded well below it.
const ErrVal = ^uint64(0)

const (
	maxCopyLen = 1024
	tmpBufLen  = 256
)
