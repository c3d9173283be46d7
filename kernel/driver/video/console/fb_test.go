package console

import (
	"testing"

	"github.com/mantraos/mantracore/kernel/bootinfo"
)

func newFbConsole(t *testing.T, format bootinfo.PixelFormat) (*FrameBuffer, []byte) {
	t.Helper()

	const (
		widthPx  = 16
		heightPx = 32
		stride   = widthPx * 4
	)

	backing := make([]byte, stride*heightPx)

	var cons FrameBuffer
	cons.Init(bootinfo.BootInfo{
		FbWidth:  widthPx,
		FbHeight: heightPx,
		FbStride: stride,
		FbFormat: format,
	}, func(physBase, size uintptr) []byte {
		return backing
	})

	return &cons, backing
}

func TestPackColorByteOrder(t *testing.T) {
	rgbCons, _ := newFbConsole(t, bootinfo.PixelFormatRgb)
	bgrCons, _ := newFbConsole(t, bootinfo.PixelFormatBgr)

	c := palette[Red&0xf]

	if got := rgbCons.packColor(Red); got != [4]byte{c[0], c[1], c[2], 0} {
		t.Fatalf("Rgb: expected (%d,%d,%d,0); got %v", c[0], c[1], c[2], got)
	}
	if got := bgrCons.packColor(Red); got != [4]byte{c[2], c[1], c[0], 0} {
		t.Fatalf("Bgr: expected (%d,%d,%d,0); got %v", c[2], c[1], c[0], got)
	}
}

func TestClearClipsToDimensions(t *testing.T) {
	cons, fb := newFbConsole(t, bootinfo.PixelFormatRgb)

	// Paint every pixel white first so Clear's effect is observable.
	white := cons.packColor(White)
	for i := 0; i+4 <= len(fb); i += 4 {
		copy(fb[i:i+4], white[:])
	}

	// Width/height that overrun the console's actual cell grid should clip
	// rather than write out of bounds or panic.
	cons.Clear(0, 0, 1000, 1000)

	black := cons.packColor(clearColor)
	for i := 0; i+4 <= len(fb); i += 4 {
		if fb[i] != black[0] || fb[i+1] != black[1] || fb[i+2] != black[2] {
			t.Fatalf("expected every pixel cleared to background; pixel at byte %d is %v", i, fb[i:i+4])
		}
	}
}

func TestPutPixelIgnoresOutOfBounds(t *testing.T) {
	cons, fb := newFbConsole(t, bootinfo.PixelFormatRgb)

	before := make([]byte, len(fb))
	copy(before, fb)

	// Coordinates past widthPx/heightPx must be silently dropped, not
	// overrun the backing slice.
	cons.putPixel(cons.widthPx+10, 0, [4]byte{0xff, 0xff, 0xff, 0})
	cons.putPixel(0, cons.heightPx+10, [4]byte{0xff, 0xff, 0xff, 0})

	for i := range fb {
		if fb[i] != before[i] {
			t.Fatalf("expected out-of-bounds putPixel to be a no-op; byte %d changed", i)
		}
	}
}
