package lin

import "desklin/core"

// Baud rate limits. Out of range rates fall back to DefaultBaud.
const (
	MinBaud     = 1000
	MaxBaud     = 20000
	DefaultBaud = 9600
)

const (
	// breakBits is the number of consecutive dominant samples taken as a
	// break. A LIN break is at least 13 bits; no legal byte has more than
	// 9 dominant bits in a row.
	breakBits = 10

	// maxSpaceBits bounds the wait from the stop bit of one byte to the
	// start bit of the next. Longer gaps end the frame.
	maxSpaceBits = 8

	// maxBreakTailBits bounds the wait for the break to release after it
	// was detected.
	maxBreakTailBits = 16
)

// Config is the decoder configuration, fixed at setup.
type Config struct {
	// Baud is the bus bit rate, 1000 to 20000.
	Baud uint32
	// Checksum selects the checksum version frames are validated with.
	Checksum ChecksumVersion
}

// DefaultConfig returns 19200 baud with the classic checksum.
func DefaultConfig() Config {
	return Config{
		Baud:     19200,
		Checksum: ChecksumClassic,
	}
}

// Validate reports an out of range baud rate. The decoder itself never
// fails on one; it silently uses DefaultBaud.
func (c Config) Validate() error {
	if c.Baud < MinBaud || c.Baud > MaxBaud {
		return ErrBaudOutOfRange
	}
	return nil
}

// Timing holds the tick budgets derived from the baud rate. It is computed
// once before the bit interrupt is enabled and read-only afterwards.
type Timing struct {
	Baud uint32

	// TicksPerBit is the bit interrupt period.
	TicksPerBit uint16
	// TicksPerHalfBit is the phase loaded after a start edge so samples
	// land mid bit.
	TicksPerHalfBit uint16
	// MaxGapTicks bounds the inter-byte idle time within a frame.
	MaxGapTicks uint16
	// MaxBreakTicks bounds the wait for the end of a detected break.
	MaxBreakTicks uint16

	// Substituted is set when the requested baud was out of range.
	Substituted bool
}

// NewTiming derives the tick budgets for baud.
func NewTiming(baud uint32) Timing {
	t := Timing{Baud: baud}
	if baud < MinBaud || baud > MaxBaud {
		t.Baud = DefaultBaud
		t.Substituted = true
	}
	t.TicksPerBit = uint16(core.TimerFreq / t.Baud)
	t.TicksPerHalfBit = t.TicksPerBit / 2
	t.MaxGapTicks = t.TicksPerBit * maxSpaceBits
	t.MaxBreakTicks = t.TicksPerBit * maxBreakTailBits
	return t
}
