package lin

import (
	"sync/atomic"

	"desklin/core"
)

// maxInterruptWaitSpins bounds the consumer's wait for the running bit
// interrupt to return. It covers one bit period at the lowest baud rate with
// room to spare; without a running interrupt the read proceeds after it.
const maxInterruptWaitSpins = 1 << 16

// Hardware is what the decoder needs from the board. Line, Clock and Timer
// are required; the indicators are optional scope probes.
type Hardware struct {
	Line  core.LineInput
	Clock core.TickSource
	Timer core.BitTimer

	BreakPin  core.Indicator // high while waiting for a break to end
	SamplePin core.Indicator // pulses around every data sample
	ErrorPin  core.Indicator // pulses when an error flag is raised
	ISRPin    core.Indicator // high for the duration of the interrupt
}

// Stats is a snapshot of decoder counters.
type Stats struct {
	Frames     uint32 // frames committed to the ring
	Breaks     uint32 // breaks detected
	Generation uint32 // completed interrupt invocations
}

// Processor decodes LIN frames from line samples taken by a periodic bit
// interrupt. HandleInterrupt runs in the interrupt; ReadNextFrame and
// GetAndClearErrorFlags run on the main loop.
type Processor struct {
	hw     Hardware
	timing Timing
	config Config

	state  machineState
	ring   FrameRing
	errors ErrorSet

	// generation is bumped on every interrupt exit so the consumer can
	// wait for one to finish before masking.
	generation atomic.Uint32
	frames     atomic.Uint32
	breaks     atomic.Uint32
}

// NewProcessor sets up a decoder: derives the timing, empties the ring,
// enters break detection and starts the bit timer. Call it before the bit
// interrupt is enabled.
func NewProcessor(cfg Config, hw Hardware) *Processor {
	if hw.BreakPin == nil {
		hw.BreakPin = core.NopIndicator{}
	}
	if hw.SamplePin == nil {
		hw.SamplePin = core.NopIndicator{}
	}
	if hw.ErrorPin == nil {
		hw.ErrorPin = core.NopIndicator{}
	}
	if hw.ISRPin == nil {
		hw.ISRPin = core.NopIndicator{}
	}

	p := &Processor{
		hw:     hw,
		config: cfg,
		timing: NewTiming(cfg.Baud),
	}
	p.ring.Reset(cfg.Checksum)
	p.enterDetectBreak()
	p.hw.Timer.Configure(p.timing.TicksPerBit)
	return p
}

// Timing returns the derived timing.
func (p *Processor) Timing() Timing {
	return p.timing
}

// Config returns the configuration the processor was set up with.
func (p *Processor) Config() Config {
	return p.config
}

// HandleInterrupt is the bit interrupt service routine.
func (p *Processor) HandleInterrupt() {
	p.hw.ISRPin.High()

	switch p.state.kind {
	case stateDetectBreak:
		p.handleDetectBreak()
	case stateReadData:
		p.handleReadData()
	default:
		p.raise(OtherError)
		p.enterDetectBreak()
	}

	p.generation.Add(1)
	p.hw.ISRPin.Low()
}

// ReadNextFrame returns the oldest received frame. The frame is not
// validated; call IsValid. It never blocks: the wait for a running
// interrupt is bounded, and interrupts are masked only for the copy.
func (p *Processor) ReadNextFrame() (Frame, bool) {
	var frame Frame
	ok := p.TryReadFrame(&frame)
	return frame, ok
}

// TryReadFrame is ReadNextFrame into a caller owned frame. out is left
// unchanged when no frame is available.
func (p *Processor) TryReadFrame(out *Frame) bool {
	p.waitForInterruptEnd()

	var ok bool
	core.Critical(func() {
		ok = p.ring.TryRead(out)
	})
	return ok
}

// Pending returns the number of frames waiting.
func (p *Processor) Pending() int {
	var n int
	core.Critical(func() {
		n = p.ring.Len()
	})
	return n
}

// GetAndClearErrorFlags returns the errors raised since the last call.
func (p *Processor) GetAndClearErrorFlags() ErrorFlags {
	return p.errors.GetAndClear()
}

// Stats returns the decoder counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Frames:     p.frames.Load(),
		Breaks:     p.breaks.Load(),
		Generation: p.generation.Load(),
	}
}

// waitForInterruptEnd spins until the interrupt generation advances, so the
// masked section that follows starts right after an interrupt returned and
// does not push the next one late.
func (p *Processor) waitForInterruptEnd() {
	gen := p.generation.Load()
	for i := 0; i < maxInterruptWaitSpins; i++ {
		if p.generation.Load() != gen {
			return
		}
	}
}

// raise sets error flags. Interrupt only.
func (p *Processor) raise(flags ErrorFlags) {
	p.hw.ErrorPin.High()
	p.errors.Set(flags)
	core.RecordTiming(core.EvtError, uint8(flags), p.state.read.bytesRead, p.hw.Clock.Ticks())
	p.hw.ErrorPin.Low()
}
