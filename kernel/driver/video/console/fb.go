package console

import (
	"github.com/mantraos/mantracore/kernel/bootinfo"
)

// cellW and cellH are the pixel dimensions of one text cell. The font is
// 8x8; each row is drawn twice so an 8x8 glyph fills an 8x16 cell.
const (
	cellW = 8
	cellH = 16
)

// palette holds the RGB values used for the 16 Attr colors. It matches the
// traditional CGA/EGA palette so output looks the same as the text-mode
// console it replaces.
var palette = [16][3]uint8{
	Black:        {0x00, 0x00, 0x00},
	Blue:         {0x00, 0x00, 0xa8},
	Green:        {0x00, 0xa8, 0x00},
	Cyan:         {0x00, 0xa8, 0xa8},
	Red:          {0xa8, 0x00, 0x00},
	Magenta:      {0xa8, 0x00, 0xa8},
	Brown:        {0xa8, 0x54, 0x00},
	LightGrey:    {0xa8, 0xa8, 0xa8},
	Grey:         {0x54, 0x54, 0x54},
	LightBlue:    {0x54, 0x54, 0xfe},
	LightGreen:   {0x54, 0xfe, 0x54},
	LightCyan:    {0x54, 0xfe, 0xfe},
	LightRed:     {0xfe, 0x54, 0x54},
	LightMagenta: {0xfe, 0x54, 0xfe},
	LightBrown:   {0xfe, 0xfe, 0x54},
	White:        {0xfe, 0xfe, 0xfe},
}

// FrameBuffer implements the Console interface over a linear, 32-bit-per-
// pixel framebuffer (the shape the UEFI GOP loader hands the kernel). Text
// is rendered with a fixed 8x16 bitmap font; there's no palette indirection
// like Ega's because the hardware doesn't offer one here, so every glyph
// draw packs Attr straight down to raw pixel bytes.
type FrameBuffer struct {
	fb []byte

	widthPx  uint32
	heightPx uint32
	stride   uint32 // bytes per scanline
	format   bootinfo.PixelFormat

	widthChars  uint16
	heightChars uint16
}

// Init sets up the console to draw into the framebuffer described by info.
// mapFn maps the physical framebuffer range into the kernel's address space
// and returns a byte slice spanning it; it's a parameter rather than a
// direct vmm call so this package stays free of a hard vmm import and
// fb_test.go can supply a plain in-memory backing slice.
func (cons *FrameBuffer) Init(info bootinfo.BootInfo, mapFn func(physBase uintptr, size uintptr) []byte) {
	cons.widthPx = info.FbWidth
	cons.heightPx = info.FbHeight
	cons.stride = info.FbStride
	cons.format = info.FbFormat

	cons.widthChars = uint16(cons.widthPx / cellW)
	cons.heightChars = uint16(cons.heightPx / cellH)

	cons.fb = mapFn(uintptr(info.FbBase), uintptr(info.FbSize))
}

// Dimensions returns the console width and height in characters.
func (cons *FrameBuffer) Dimensions() (uint16, uint16) {
	return cons.widthChars, cons.heightChars
}

func (cons *FrameBuffer) packColor(attr Attr) [4]byte {
	c := palette[attr&0xf]
	switch cons.format {
	case bootinfo.PixelFormatBgr:
		return [4]byte{c[2], c[1], c[0], 0}
	default: // Rgb and Unknown both lay out R,G,B,_ per the UEFI GOP convention.
		return [4]byte{c[0], c[1], c[2], 0}
	}
}

func (cons *FrameBuffer) putPixel(x, y uint32, packed [4]byte) {
	if x >= cons.widthPx || y >= cons.heightPx {
		return
	}
	off := y*cons.stride + x*4
	if off+4 > uint32(len(cons.fb)) {
		return
	}
	copy(cons.fb[off:off+4], packed[:])
}

func (cons *FrameBuffer) fillCellRect(xc, yc, wc, hc uint16, packed [4]byte) {
	px0, py0 := uint32(xc)*cellW, uint32(yc)*cellH
	pw, ph := uint32(wc)*cellW, uint32(hc)*cellH
	for y := py0; y < py0+ph; y++ {
		for x := px0; x < px0+pw; x++ {
			cons.putPixel(x, y, packed)
		}
	}
}

// Clear clears the specified rectangular region (in character cells).
func (cons *FrameBuffer) Clear(x, y, width, height uint16) {
	if x >= cons.widthChars {
		x = cons.widthChars
	}
	if y >= cons.heightChars {
		y = cons.heightChars
	}
	if x+width > cons.widthChars {
		width = cons.widthChars - x
	}
	if y+height > cons.heightChars {
		height = cons.heightChars - y
	}

	cons.fillCellRect(x, y, width, height, cons.packColor(clearColor))
}

// Scroll a particular number of lines to the specified direction. Rows are
// moved as whole pixel bands; the caller is responsible for clearing the
// band left behind.
func (cons *FrameBuffer) Scroll(dir ScrollDir, lines uint16) {
	if lines == 0 || lines > cons.heightChars {
		return
	}

	rowBytes := int(cons.stride) * cellH
	offset := int(lines) * rowBytes
	total := int(cons.heightChars) * rowBytes

	switch dir {
	case Up:
		copy(cons.fb[0:total-offset], cons.fb[offset:total])
	case Down:
		copy(cons.fb[offset:total], cons.fb[0:total-offset])
	}
}

// Write draws ch at the specified character cell using attr's low nibble as
// foreground and high nibble as background, matching Ega's packed-attribute
// convention.
func (cons *FrameBuffer) Write(ch byte, attr Attr, x, y uint16) {
	if x >= cons.widthChars || y >= cons.heightChars {
		return
	}

	fg := cons.packColor(attr & 0xf)
	bg := cons.packColor((attr >> 4) & 0xf)

	glyph := glyph8x8(ch)
	px0, py0 := uint32(x)*cellW, uint32(y)*cellH

	for row := uint32(0); row < 8; row++ {
		bits := glyph[row]
		for col := uint32(0); col < 8; col++ {
			on := bits&(0x80>>col) != 0
			packed := bg
			if on {
				packed = fg
			}
			cons.putPixel(px0+col, py0+row*2, packed)
			cons.putPixel(px0+col, py0+row*2+1, packed)
		}
	}
}
