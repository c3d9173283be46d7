package gdt

// tss mirrors the 64-bit hardware Task State Segment byte-for-byte. Every
// 64-bit field is split into a lo/hi uint32 pair instead of a single uint64
// because the real structure interleaves a 4-byte reserved field before the
// first 8-byte field; a straight Go struct with a uint64 there would get a
// 4-byte padding gap the CPU does not expect.
type tss struct {
	reserved0            uint32
	rsp0Lo, rsp0Hi       uint32
	rsp1Lo, rsp1Hi       uint32
	rsp2Lo, rsp2Hi       uint32
	reserved1Lo, reserved1Hi uint32
	ist1Lo, ist1Hi uint32
	ist2Lo, ist2Hi uint32
	ist3Lo, ist3Hi uint32
	ist4Lo, ist4Hi uint32
	ist5Lo, ist5Hi uint32
	ist6Lo, ist6Hi uint32
	ist7Lo, ist7Hi uint32
	reserved2Lo, reserved2Hi uint32
	reserved3 uint16
	iomapBase uint16
}

func (t *tss) setRSP0(addr uint64) {
	t.rsp0Lo = uint32(addr)
	t.rsp0Hi = uint32(addr >> 32)
}

func (t *tss) rsp0() uint64 {
	return uint64(t.rsp0Lo) | uint64(t.rsp0Hi)<<32
}

func (t *tss) setIST1(addr uint64) {
	t.ist1Lo = uint32(addr)
	t.ist1Hi = uint32(addr >> 32)
}

func (t *tss) ist1() uint64 {
	return uint64(t.ist1Lo) | uint64(t.ist1Hi)<<32
}
