package kernel

import (
	"testing"

	"github.com/mantraos/mantracore/kernel/bootinfo"
	"github.com/mantraos/mantracore/kernel/cpu"
	"github.com/mantraos/mantracore/kernel/driver/video/console"
	"github.com/mantraos/mantracore/kernel/hal"
)

func TestPanic(t *testing.T) {
	defer func() {
		cpuHaltFn = cpu.Halt
	}()

	var cpuHaltCalled bool
	cpuHaltFn = func() {
		cpuHaltCalled = true
	}

	t.Run("with error", func(t *testing.T) {
		cpuHaltCalled = false
		fb := mockTTY()

		Panic(&Error{Module: "test", Message: "panic test"})

		if !anyLitPixel(fb) {
			t.Fatal("expected Panic to render its message to the console")
		}
		if !cpuHaltCalled {
			t.Fatal("expected cpu.Halt() to be called by Panic")
		}
	})

	t.Run("without error", func(t *testing.T) {
		cpuHaltCalled = false
		fb := mockTTY()

		Panic(nil)

		if !anyLitPixel(fb) {
			t.Fatal("expected Panic to render its banner even without an error")
		}
		if !cpuHaltCalled {
			t.Fatal("expected cpu.Halt() to be called by Panic")
		}
	})
}

// anyLitPixel reports whether any pixel in fb differs from the all-zero
// background, i.e. Panic actually drew something rather than leaving the
// console blank.
func anyLitPixel(fb []byte) bool {
	for i := 0; i+3 < len(fb); i += 4 {
		if fb[i] != 0 || fb[i+1] != 0 || fb[i+2] != 0 {
			return true
		}
	}
	return false
}

func mockTTY() []byte {
	const (
		widthPx  = 640 // 80 chars * 8px
		heightPx = 400 // 25 chars * 16px
		stride   = widthPx * 4
	)

	backing := make([]byte, stride*heightPx)

	var cons console.FrameBuffer
	cons.Init(bootinfo.BootInfo{
		FbWidth:  widthPx,
		FbHeight: heightPx,
		FbStride: stride,
		FbFormat: bootinfo.PixelFormatRgb,
	}, func(physBase, size uintptr) []byte {
		return backing
	})

	hal.ActiveTerminal.AttachTo(&cons)

	return backing
}
