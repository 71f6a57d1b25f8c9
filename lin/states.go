package lin

import "desklin/core"

type stateKind uint8

const (
	stateDetectBreak stateKind = iota + 1
	stateReadData
)

// detectBreak counts consecutive dominant samples.
type detectBreak struct {
	lowRun uint8
}

// readData reconstructs bytes. bytesRead counts every byte including the
// sync byte; bitsInByte counts start, data and stop bits of the current one.
type readData struct {
	bytesRead  uint8
	bitsInByte uint8
	byteAcc    uint8
	// bitMask goes 1<<0 .. 1<<7 across the data bits, saving a variable
	// shift per sample.
	bitMask uint8
}

// machineState is the active state and its counters. Entering a state
// replaces the whole value, so nothing carries over between states.
type machineState struct {
	kind   stateKind
	detect detectBreak
	read   readData
}

func (p *Processor) enterDetectBreak() {
	p.state = machineState{kind: stateDetectBreak}
}

// enterReadData runs right after the break released. It starts a new frame
// in the ring write slot and aligns the bit interrupt to the middle of the
// sync byte's start bit.
func (p *Processor) enterReadData() {
	p.state = machineState{kind: stateReadData}
	p.ring.WriteSlot().Reset()

	// A missing start edge shows up as a sync error on the next sample.
	p.waitForLineLow(p.timing.MaxGapTicks)
	p.hw.Timer.SetPhase(p.timing.TicksPerHalfBit)
}

func (p *Processor) handleDetectBreak() {
	st := &p.state.detect
	if p.hw.Line.IsHigh() {
		st.lowRun = 0
		return
	}

	if st.lowRun++; st.lowRun < breakBits {
		return
	}

	p.breaks.Add(1)
	p.hw.BreakPin.High()
	core.RecordTiming(core.EvtBreak, 0, 0, p.hw.Clock.Ticks())
	p.waitForLineHigh(p.timing.MaxBreakTicks)
	p.hw.BreakPin.Low()

	p.enterReadData()
}

func (p *Processor) handleReadData() {
	// Sample first, everything else adds jitter.
	p.hw.SamplePin.High()
	isHigh := p.hw.Line.IsHigh()
	p.hw.SamplePin.Low()

	st := &p.state.read

	// Start bit.
	if st.bitsInByte == 0 {
		if isHigh {
			p.abort(st.bytesRead, StartBitError)
			return
		}
		st.bitsInByte++
		st.byteAcc = 0
		st.bitMask = core.BitMask(0)
		return
	}

	// Data bits, least significant first.
	if st.bitsInByte <= 8 {
		if isHigh {
			st.byteAcc |= st.bitMask
		}
		st.bitMask <<= 1
		st.bitsInByte++
		return
	}

	// Stop bit.
	if !isHigh {
		p.abort(st.bytesRead, StopBitError)
		return
	}
	st.bitsInByte = 0
	st.bytesRead++
	core.RecordTiming(core.EvtByte, st.byteAcc, st.bytesRead-1, p.hw.Clock.Ticks())

	frame := p.ring.WriteSlot()
	if st.bytesRead == 1 {
		// The sync byte is checked, never stored.
		if st.byteAcc != SyncByte {
			p.raise(SyncByteError)
			p.enterDetectBreak()
			return
		}
	} else {
		// Room is guaranteed by the length check below on the previous byte.
		frame.Append(st.byteAcc)
	}

	if !p.waitForLineLow(p.timing.MaxGapTicks) {
		// Gap expired: the frame is complete.
		core.RecordTiming(core.EvtGapTimeout, 0, st.bytesRead, p.hw.Clock.Ticks())
		if frame.Len() < MinBytes {
			p.raise(FrameTooShort)
			p.enterDetectBreak()
			return
		}
		p.commit()
		p.enterDetectBreak()
		return
	}

	// Another start bit arrived.
	if frame.Len() >= MaxBytes {
		p.raise(FrameTooLong)
		p.enterDetectBreak()
		return
	}

	p.hw.Timer.SetPhase(p.timing.TicksPerHalfBit)
}

// abort drops the frame in progress on a framing error. Errors in the sync
// byte are reported as sync errors whatever bit failed.
func (p *Processor) abort(bytesRead uint8, kind ErrorFlags) {
	if bytesRead == 0 {
		kind = SyncByteError
	}
	p.raise(kind)
	p.enterDetectBreak()
}

// commit publishes the write slot. On overrun the oldest frame is gone.
func (p *Processor) commit() {
	size := uint8(p.ring.WriteSlot().Len())
	if p.ring.Commit() {
		p.raise(BufferOverrun)
	}
	p.frames.Add(1)
	core.RecordTiming(core.EvtFrameCommit, size, 0, p.hw.Clock.Ticks())
}

// waitForLineLow busy waits until the line goes dominant or maxTicks pass.
// The bit timer is held in reset meanwhile so no interrupt is pending when
// the wait ends. Interrupt only.
func (p *Processor) waitForLineLow(maxTicks uint16) bool {
	base := p.hw.Clock.Ticks()
	for {
		p.hw.Timer.ResetPhase()
		if !p.hw.Line.IsHigh() {
			return true
		}
		if core.TimedOut(base, p.hw.Clock.Ticks(), maxTicks) {
			return false
		}
	}
}

// waitForLineHigh is waitForLineLow with the polarity reversed.
func (p *Processor) waitForLineHigh(maxTicks uint16) bool {
	base := p.hw.Clock.Ticks()
	for {
		p.hw.Timer.ResetPhase()
		if p.hw.Line.IsHigh() {
			return true
		}
		if core.TimedOut(base, p.hw.Clock.Ticks(), maxTicks) {
			return false
		}
	}
}
