// Package pic remaps the legacy 8259 programmable interrupt controller
// pair off the CPU's reserved exception vectors and onto 0x20/0x28, then
// masks every line except the timer (IRQ0) and the cascade input (IRQ2)
// the slave PIC needs to report through.
package pic

import "github.com/mantraos/mantracore/kernel/cpu"

const (
	pic1Cmd  = 0x20
	pic1Data = 0x21
	pic2Cmd  = 0xA0
	pic2Data = 0xA1

	icw1Init  = 0x10
	icw1ICW4  = 0x01
	icw4Mode8086 = 0x01

	// maskAllButTimerAndCascade leaves IRQ0 (timer) and IRQ2 (slave
	// cascade) unmasked on the master PIC.
	maskAllButTimerAndCascade = 0b1111_1010
	maskAll                   = 0xFF
)

func ioWait() {
	cpu.OutB(0x80, 0)
}

// Init remaps both PICs so their interrupt vectors start at 0x20 (master)
// and 0x28 (slave), putting them safely past the CPU's own exception
// vectors, and masks every line except the timer and the cascade.
func Init() {
	cpu.OutB(pic1Cmd, icw1Init|icw1ICW4)
	ioWait()
	cpu.OutB(pic2Cmd, icw1Init|icw1ICW4)
	ioWait()

	cpu.OutB(pic1Data, 0x20)
	ioWait()
	cpu.OutB(pic2Data, 0x28)
	ioWait()

	// Tell the master about the slave on IRQ2, and give the slave its
	// cascade identity.
	cpu.OutB(pic1Data, 0x04)
	ioWait()
	cpu.OutB(pic2Data, 0x02)
	ioWait()

	cpu.OutB(pic1Data, icw4Mode8086)
	ioWait()
	cpu.OutB(pic2Data, icw4Mode8086)
	ioWait()

	cpu.OutB(pic1Data, maskAllButTimerAndCascade)
	cpu.OutB(pic2Data, maskAll)
}

// EOI acknowledges the interrupt controller for irq, which must be the
// same line a handler was entered for. The slave also needs acknowledging
// for any line 8 and above.
func EOI(irq uint8) {
	if irq >= 8 {
		cpu.OutB(pic2Cmd, 0x20)
	}
	cpu.OutB(pic1Cmd, 0x20)
}
