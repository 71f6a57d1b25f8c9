//go:build !tinygo

// Package linsim is a software LIN line for host tests. It plays a scripted
// waveform on a simulated 1 MHz clock and fires the bit interrupt from the
// simulated timer, so the decoder runs exactly as on hardware but
// deterministically.
package linsim

import "desklin/core"

type segment struct {
	start uint32
	high  bool
}

// Bus is a simulated receive line, tick counter and bit timer. It
// implements core.LineInput, core.TickSource and core.BitTimer.
//
// Simulated time only moves when the decoder reads Ticks (each read costs
// ReadCost ticks, so busy waits make progress) and when Run advances to the
// next interrupt.
type Bus struct {
	// ReadCost is the number of ticks one Ticks call takes. Defaults to 1.
	ReadCost uint32

	bitTicks uint32 // transmitter bit length
	segs     []segment
	cursor   int    // index of the segment containing now
	end      uint32 // end of the scripted waveform

	now      uint32
	period   uint32
	nextFire uint32
	running  bool

	interrupts uint32
}

// New returns an idle bus whose transmitter sends bits of bitTicks ticks.
func New(bitTicks uint32) *Bus {
	return &Bus{
		ReadCost: 1,
		bitTicks: bitTicks,
		segs:     []segment{{start: 0, high: true}},
	}
}

// NewForBaud returns an idle bus with an exact transmitter bit length for
// baud.
func NewForBaud(baud uint32) *Bus {
	return New(core.TimerFreq / baud)
}

// SetBitTicks changes the transmitter bit length for waveform appended
// afterwards, e.g. to model a drifting clock.
func (b *Bus) SetBitTicks(ticks uint32) {
	b.bitTicks = ticks
}

// BitTicks returns the transmitter bit length.
func (b *Bus) BitTicks() uint32 {
	return b.bitTicks
}

// Now returns the simulated time.
func (b *Bus) Now() uint32 {
	return b.now
}

// End returns the time the scripted waveform ends. The line idles high
// afterwards.
func (b *Bus) End() uint32 {
	return b.end
}

// Interrupts returns the number of bit interrupts fired.
func (b *Bus) Interrupts() uint32 {
	return b.interrupts
}

// IsHigh implements core.LineInput.
func (b *Bus) IsHigh() bool {
	for b.cursor+1 < len(b.segs) && b.segs[b.cursor+1].start <= b.now {
		b.cursor++
	}
	return b.segs[b.cursor].high
}

// Ticks implements core.TickSource.
func (b *Bus) Ticks() uint16 {
	t := uint16(b.now)
	b.now += b.ReadCost
	return t
}

// Configure implements core.BitTimer.
func (b *Bus) Configure(periodTicks uint16) {
	b.period = uint32(periodTicks)
	b.nextFire = b.now + b.period
	b.running = true
}

// ResetPhase implements core.BitTimer.
func (b *Bus) ResetPhase() {
	b.nextFire = b.now + b.period
}

// SetPhase implements core.BitTimer.
func (b *Bus) SetPhase(elapsedTicks uint16) {
	e := uint32(elapsedTicks)
	if e >= b.period {
		b.nextFire = b.now
		return
	}
	b.nextFire = b.now + b.period - e
}

// Run fires the bit interrupt handler every time the timer expires, up to
// and including time until. Each invocation runs as an interrupt so
// consumers masking interrupts on other goroutines are excluded.
func (b *Bus) Run(isr func(), until uint32) {
	for b.running && b.nextFire <= until {
		if b.now < b.nextFire {
			b.now = b.nextFire
		}
		// The hardware reloads before the handler runs; the handler may
		// move the phase again.
		b.nextFire += b.period
		b.interrupts++
		core.ServeInterrupt(isr)
	}
	if b.now < until {
		b.now = until
	}
}

// RunBits runs for n transmitter bit lengths from now.
func (b *Bus) RunBits(isr func(), n uint32) {
	b.Run(isr, b.now+n*b.bitTicks)
}

// Drain runs until the scripted waveform ended plus idleBits bit lengths,
// enough for the decoder to time out the last frame.
func (b *Bus) Drain(isr func(), idleBits uint32) {
	b.Run(isr, b.end+idleBits*b.bitTicks)
}
