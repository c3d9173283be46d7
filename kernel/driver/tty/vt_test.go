package tty

import (
	"testing"

	"github.com/mantraos/mantracore/kernel/bootinfo"
	"github.com/mantraos/mantracore/kernel/driver/video/console"
)

func newTestConsole(t *testing.T) (*console.FrameBuffer, []byte) {
	t.Helper()

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

	return &cons, backing
}

func TestVtPosition(t *testing.T) {
	specs := []struct {
		inX, inY   uint16
		expX, expY uint16
	}{
		{20, 20, 20, 20},
		{100, 20, 79, 20},
		{10, 200, 10, 24},
		{10, 200, 10, 24},
		{100, 100, 79, 24},
	}

	cons, _ := newTestConsole(t)

	var vt Vt
	vt.AttachTo(cons)

	w, h := cons.Dimensions()
	if w != 80 || h != 25 {
		t.Fatalf("Dimensions wrong: got %v x %v", w, h)
	}

	for specIndex, spec := range specs {
		vt.SetPosition(spec.inX, spec.inY)
		if x, y := vt.Position(); x != spec.expX || y != spec.expY {
			t.Errorf("[spec %d] expected setting position to (%d, %d) to update the position to (%d, %d); got (%d, %d)", specIndex, spec.inX, spec.inY, spec.expX, spec.expY, x, y)
		}
	}
}

func pixelAt(fb []byte, stride uint32, x, y uint32) (r, g, b byte) {
	off := y*stride + x*4
	return fb[off], fb[off+1], fb[off+2]
}

func TestWrite(t *testing.T) {
	cons, fb := newTestConsole(t)

	var vt Vt
	vt.AttachTo(cons)

	vt.Clear()

	// A clear screen should be entirely background (black).
	if r, g, b := pixelAt(fb, 640*4, 3, 3); r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected a cleared console to be black; got (%d,%d,%d)", r, g, b)
	}

	vt.SetPosition(0, 0)
	vt.Write([]byte("1"))

	// The glyph for '1' lights pixels in the middle columns of its cell (the
	// digit's stem), so the cell should no longer read as pure background.
	var litFound bool
	for y := uint32(0); y < 16; y++ {
		for x := uint32(0); x < 8; x++ {
			if r, g, b := pixelAt(fb, 640*4, x, y); r != 0 || g != 0 || b != 0 {
				litFound = true
			}
		}
	}
	if !litFound {
		t.Fatal("expected writing '1' to light at least one foreground pixel in its cell")
	}

	vt.Write([]byte("\n"))
	if _, y := vt.Position(); y != 1 {
		t.Fatalf("expected newline to advance to row 1; got row %d", y)
	}

	vt.Write([]byte("\r"))
	if x, _ := vt.Position(); x != 0 {
		t.Fatalf("expected carriage return to reset column to 0; got %d", x)
	}
}

func TestScroll(t *testing.T) {
	cons, _ := newTestConsole(t)

	var vt Vt
	vt.AttachTo(cons)
	vt.Clear()

	for y := uint16(0); y < 25; y++ {
		vt.SetPosition(0, y)
		vt.Write([]byte("9"))
	}

	// One more line should force a scroll rather than run off the console.
	vt.SetPosition(0, 24)
	vt.Write([]byte("\n"))
	if _, y := vt.Position(); y != 24 {
		t.Fatalf("expected the cursor to stay pinned to the last row after scrolling; got %d", y)
	}
}
