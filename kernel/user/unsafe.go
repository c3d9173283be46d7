package user

import (
	"unsafe"

	"github.com/mantraos/mantracore/kernel/trap"
)

const frameSize = unsafe.Sizeof(trap.TrapFrame{})

func addressOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

func unsafeSlice(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

func frameAt(addr uint64) *trap.TrapFrame {
	return (*trap.TrapFrame)(unsafe.Pointer(uintptr(addr)))
}
