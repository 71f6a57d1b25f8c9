// Package pio runs debug waveforms on the RP2040 programmable I/O blocks.
package pio

import "errors"

// bitClockCycles is the number of state machine cycles per bit clock period:
// two SET instructions with 31 delay cycles each.
const bitClockCycles = 64

var (
	// ErrBitClockRate is returned when the bit rate cannot be reached with
	// the 16.8 fixed point state machine clock divider.
	ErrBitClockRate = errors.New("pio: bit rate outside clock divider range")

	// ErrStateMachineBusy is returned when the requested state machine is
	// already claimed.
	ErrStateMachineBusy = errors.New("pio: state machine already claimed")
)

// ClockDivider returns the state machine clock divider that makes a
// bitClockCycles program period last one bit at baud, as the integer and
// 1/256 fraction the hardware takes. ok is false when the divider is below
// 1 or above 65535.
func ClockDivider(sysHz, baud uint32) (whole uint16, frac uint8, ok bool) {
	if baud == 0 {
		return 0, 0, false
	}

	// Divider in 8 bit fixed point, rounded to nearest.
	den := uint64(baud) * bitClockCycles
	div := (uint64(sysHz)*256 + den/2) / den
	if div < 256 || div>>8 > 0xFFFF {
		return 0, 0, false
	}
	return uint16(div >> 8), uint8(div), true
}
