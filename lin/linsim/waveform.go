//go:build !tinygo

package linsim

// Level appends the line at level for ticks ticks.
func (b *Bus) Level(high bool, ticks uint32) *Bus {
	if ticks == 0 {
		return b
	}
	start := b.end
	if start < b.now {
		start = b.now
	}
	last := &b.segs[len(b.segs)-1]
	switch {
	case last.high == high:
		// Extends the current level.
	case last.start == start:
		last.high = high
	default:
		b.segs = append(b.segs, segment{start: start, high: high})
	}
	b.end = start + ticks
	// Idle after the script.
	if high {
		return b
	}
	b.segs = append(b.segs, segment{start: b.end, high: true})
	return b
}

// Bits appends n bit lengths at level.
func (b *Bus) Bits(high bool, n uint32) *Bus {
	return b.Level(high, n*b.bitTicks)
}

// Idle appends n recessive bits.
func (b *Bus) Idle(n uint32) *Bus {
	return b.Bits(true, n)
}

// Break appends a break of n dominant bits followed by a one bit delimiter.
func (b *Bus) Break(n uint32) *Bus {
	return b.Bits(false, n).Bits(true, 1)
}

// Byte appends one UART character: start bit, 8 data bits LSB first and a
// stop bit.
func (b *Bus) Byte(v uint8) *Bus {
	return b.rawByte(v, false, true)
}

// ByteBadStop appends a character whose stop bit is dominant.
func (b *Bus) ByteBadStop(v uint8) *Bus {
	return b.rawByte(v, false, false)
}

// Glitch appends a dominant pulse shorter than a bit, which looks like a
// start edge but samples recessive at mid bit.
func (b *Bus) Glitch(ticks uint32) *Bus {
	return b.Level(false, ticks).Bits(true, 2)
}

// Bytes appends characters separated by spaceBits recessive bits.
func (b *Bus) Bytes(spaceBits uint32, data ...uint8) *Bus {
	for i, v := range data {
		if i > 0 {
			b.Idle(spaceBits)
		}
		b.Byte(v)
	}
	return b
}

// Header appends a 13 bit break, the sync byte and the protected
// identifier.
func (b *Bus) Header(pid uint8) *Bus {
	return b.Break(13).Byte(0x55).Byte(pid)
}

// InterFrameBits is the idle Frame leaves after the last byte. It exceeds
// the decoder's 8 bit inter-byte budget, so the frame is closed before the
// next break starts.
const InterFrameBits = 12

// Frame appends a complete frame: break, sync byte, then frame[0] (the
// protected identifier) and the response bytes back to back, followed by
// InterFrameBits of idle.
func (b *Bus) Frame(frame []uint8) *Bus {
	b.Break(13).Byte(0x55)
	b.Bytes(0, frame...)
	return b.Idle(InterFrameBits)
}

func (b *Bus) rawByte(v uint8, start, stop bool) *Bus {
	b.Bits(start, 1)
	for i := 0; i < 8; i++ {
		b.Bits(v&(1<<i) != 0, 1)
	}
	return b.Bits(stop, 1)
}
