package console

// glyph8x8 returns an 8-row, 8-column bitmap for ch, MSB leftmost. Only the
// characters the early boot banners and diagnostic prints actually use are
// defined; anything else renders as a filled box so a missing glyph is
// obvious rather than silently blank.
func glyph8x8(ch byte) [8]byte {
	switch ch {
	case ' ':
		return [8]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	case '!':
		return [8]byte{0x18, 0x18, 0x18, 0x18, 0x18, 0x00, 0x18, 0x00}
	case '.':
		return [8]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x18, 0x18, 0x00}
	case ',':
		return [8]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x18, 0x18, 0x30}
	case ':':
		return [8]byte{0x00, 0x18, 0x18, 0x00, 0x00, 0x18, 0x18, 0x00}
	case '/':
		return [8]byte{0x06, 0x0c, 0x18, 0x30, 0x60, 0xc0, 0x80, 0x00}
	case '-':
		return [8]byte{0x00, 0x00, 0x00, 0x7e, 0x00, 0x00, 0x00, 0x00}
	case '_':
		return [8]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x7e, 0x00}
	case '=':
		return [8]byte{0x00, 0x00, 0x7e, 0x00, 0x7e, 0x00, 0x00, 0x00}
	case '0':
		return [8]byte{0x3c, 0x66, 0x6e, 0x76, 0x66, 0x66, 0x3c, 0x00}
	case '1':
		return [8]byte{0x18, 0x38, 0x18, 0x18, 0x18, 0x18, 0x3c, 0x00}
	case '2':
		return [8]byte{0x3c, 0x66, 0x06, 0x1c, 0x30, 0x66, 0x7e, 0x00}
	case '3':
		return [8]byte{0x3c, 0x66, 0x06, 0x1c, 0x06, 0x66, 0x3c, 0x00}
	case '4':
		return [8]byte{0x0c, 0x1c, 0x3c, 0x6c, 0x7e, 0x0c, 0x0c, 0x00}
	case '5':
		return [8]byte{0x7e, 0x60, 0x7c, 0x06, 0x06, 0x66, 0x3c, 0x00}
	case '6':
		return [8]byte{0x1c, 0x30, 0x60, 0x7c, 0x66, 0x66, 0x3c, 0x00}
	case '7':
		return [8]byte{0x7e, 0x66, 0x06, 0x0c, 0x18, 0x18, 0x18, 0x00}
	case '8':
		return [8]byte{0x3c, 0x66, 0x66, 0x3c, 0x66, 0x66, 0x3c, 0x00}
	case '9':
		return [8]byte{0x3c, 0x66, 0x66, 0x3e, 0x06, 0x0c, 0x38, 0x00}
	case 'A':
		return [8]byte{0x18, 0x3c, 0x66, 0x66, 0x7e, 0x66, 0x66, 0x00}
	case 'B':
		return [8]byte{0x7c, 0x66, 0x66, 0x7c, 0x66, 0x66, 0x7c, 0x00}
	case 'C':
		return [8]byte{0x3c, 0x66, 0x60, 0x60, 0x60, 0x66, 0x3c, 0x00}
	case 'D':
		return [8]byte{0x78, 0x6c, 0x66, 0x66, 0x66, 0x6c, 0x78, 0x00}
	case 'E':
		return [8]byte{0x7e, 0x60, 0x60, 0x7c, 0x60, 0x60, 0x7e, 0x00}
	case 'F':
		return [8]byte{0x7e, 0x60, 0x60, 0x7c, 0x60, 0x60, 0x60, 0x00}
	case 'G':
		return [8]byte{0x3c, 0x66, 0x60, 0x6e, 0x66, 0x66, 0x3c, 0x00}
	case 'H':
		return [8]byte{0x66, 0x66, 0x66, 0x7e, 0x66, 0x66, 0x66, 0x00}
	case 'I':
		return [8]byte{0x3c, 0x18, 0x18, 0x18, 0x18, 0x18, 0x3c, 0x00}
	case 'K':
		return [8]byte{0x66, 0x6c, 0x78, 0x70, 0x78, 0x6c, 0x66, 0x00}
	case 'L':
		return [8]byte{0x60, 0x60, 0x60, 0x60, 0x60, 0x60, 0x7e, 0x00}
	case 'M':
		return [8]byte{0x63, 0x77, 0x7f, 0x6b, 0x63, 0x63, 0x63, 0x00}
	case 'N':
		return [8]byte{0x66, 0x76, 0x7e, 0x7e, 0x6e, 0x66, 0x66, 0x00}
	case 'O':
		return [8]byte{0x3c, 0x66, 0x66, 0x66, 0x66, 0x66, 0x3c, 0x00}
	case 'P':
		return [8]byte{0x7c, 0x66, 0x66, 0x7c, 0x60, 0x60, 0x60, 0x00}
	case 'R':
		return [8]byte{0x7c, 0x66, 0x66, 0x7c, 0x78, 0x6c, 0x66, 0x00}
	case 'S':
		return [8]byte{0x3c, 0x66, 0x30, 0x18, 0x0c, 0x66, 0x3c, 0x00}
	case 'T':
		return [8]byte{0x7e, 0x18, 0x18, 0x18, 0x18, 0x18, 0x18, 0x00}
	case 'U':
		return [8]byte{0x66, 0x66, 0x66, 0x66, 0x66, 0x66, 0x3c, 0x00}
	case 'V':
		return [8]byte{0x66, 0x66, 0x66, 0x66, 0x66, 0x3c, 0x18, 0x00}
	case 'W':
		return [8]byte{0x63, 0x63, 0x63, 0x6b, 0x7f, 0x77, 0x63, 0x00}
	case 'X':
		return [8]byte{0x66, 0x66, 0x3c, 0x18, 0x3c, 0x66, 0x66, 0x00}
	case 'Y':
		return [8]byte{0x66, 0x66, 0x3c, 0x18, 0x18, 0x18, 0x18, 0x00}
	case 'x':
		return glyph8x8('X')
	default:
		if ch >= 'a' && ch <= 'z' {
			return glyph8x8(ch - 32)
		}
		return [8]byte{0x7e, 0x42, 0x5a, 0x5a, 0x5a, 0x42, 0x7e, 0x00}
	}
}
