// Package serial drives the COM1 16550 UART as the kernel's first
// diagnostic sink, available before any framebuffer console is mapped.
package serial

import "github.com/mantraos/mantracore/kernel/cpu"

const com1 = 0x3F8

// Init programs COM1 for 115200-8N1 with the transmit FIFO enabled.
func Init() {
	cpu.OutB(com1+1, 0x00) // disable UART interrupts
	cpu.OutB(com1+3, 0x80) // enable DLAB
	cpu.OutB(com1+0, 0x01) // divisor low byte: 115200 baud
	cpu.OutB(com1+1, 0x00) // divisor high byte
	cpu.OutB(com1+3, 0x03) // 8 bits, no parity, one stop bit
	cpu.OutB(com1+2, 0xC7) // enable FIFO, clear it, 14-byte threshold
	cpu.OutB(com1+4, 0x0B) // IRQs enabled, RTS/DSR set
}

// WriteByte blocks until the transmit holding register is empty and then
// writes b. It implements io.ByteWriter.
func WriteByte(b byte) error {
	for cpu.InB(com1+5)&0x20 == 0 {
	}
	cpu.OutB(com1, b)
	return nil
}

// Write implements io.Writer.
func Write(p []byte) (int, error) {
	for _, b := range p {
		WriteByte(b)
	}
	return len(p), nil
}

// WriteString writes s byte by byte.
func WriteString(s string) {
	for i := 0; i < len(s); i++ {
		WriteByte(s[i])
	}
}
