//go:build rp2040

package pio

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// buildBitClockProgram toggles the SET pin every 32 cycles, so one program
// period is bitClockCycles.
func buildBitClockProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Set(rp2pio.SetDestPins, 1).Delay(31).Encode(), // 0: set pins, 1 [31]
		asm.Set(rp2pio.SetDestPins, 0).Delay(31).Encode(), // 1: set pins, 0 [31]
		// .wrap
	}
}

// Any offset works, the program has no jumps.
const bitClockOrigin = -1

// BitClock outputs a square wave at the LIN bit rate on a debug pin. With
// the sample indicator on a second scope channel it shows where the bit
// interrupt samples relative to the nominal bit grid.
type BitClock struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	pin    machine.Pin
	offset uint8
}

// NewBitClock returns a bit clock on state machine smNum of PIO0 (pioNum 0)
// or PIO1.
func NewBitClock(pioNum, smNum uint8) *BitClock {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}
	return &BitClock{
		pio: pioHW,
		sm:  pioHW.StateMachine(smNum),
	}
}

// Start loads the program and runs it on pin at baud.
func (c *BitClock) Start(pin machine.Pin, baud uint32) error {
	whole, frac, ok := ClockDivider(machine.CPUFrequency(), baud)
	if !ok {
		return ErrBitClockRate
	}
	if !c.sm.TryClaim() {
		return ErrStateMachineBusy
	}

	program := buildBitClockProgram()
	offset, err := c.pio.AddProgram(program, bitClockOrigin)
	if err != nil {
		c.sm.Unclaim()
		return err
	}
	c.offset = offset
	c.pin = pin

	pin.Configure(machine.PinConfig{Mode: c.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(pin, 1)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(whole, frac)

	// Pin directions only stick after Init.
	c.sm.Init(offset, cfg)
	c.sm.SetPindirsConsecutive(pin, 1, true)
	c.sm.SetPinsConsecutive(pin, 1, false)
	c.sm.SetEnabled(true)
	return nil
}

// Stop halts the state machine and leaves the pin low.
func (c *BitClock) Stop() {
	c.sm.SetEnabled(false)
	c.sm.SetPinsConsecutive(c.pin, 1, false)
	c.sm.Restart()
}
