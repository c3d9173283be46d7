// Package pit programs channel 0 of the 8253/8254 programmable interval
// timer to fire IRQ0 at a fixed rate, driving the scheduler's preemption
// tick.
package pit

import "github.com/mantraos/mantracore/kernel/cpu"

const (
	baseFrequencyHz = 1193182

	modeCmdPort = 0x43
	channel0Port = 0x40

	// channel 0, lobyte/hibyte access, mode 3 (square wave), binary.
	channel0LobyteHibyteMode3 = 0x36

	minHz = 19
	maxHz = 2000
)

// Init programs channel 0 to fire at hz, clamped to the range the divisor
// can represent ([19, 2000]).
func Init(hz uint32) {
	if hz < minHz {
		hz = minHz
	}
	if hz > maxHz {
		hz = maxHz
	}
	divisor := uint16(baseFrequencyHz / hz)

	cpu.OutB(modeCmdPort, channel0LobyteHibyteMode3)
	cpu.OutB(channel0Port, uint8(divisor&0xff))
	cpu.OutB(channel0Port, uint8(divisor>>8))
}
