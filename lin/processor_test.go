package lin_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desklin/lin"
	"desklin/lin/linsim"
)

// drainBits is enough idle for the decoder to time out any frame.
const drainBits = 20

type countingPin struct {
	highs int
	level bool
}

func (c *countingPin) High() { c.highs++; c.level = true }
func (c *countingPin) Low()  { c.level = false }

type rig struct {
	p   *lin.Processor
	bus *linsim.Bus
	err *countingPin
}

func newRig(t *testing.T, cfg lin.Config) *rig {
	t.Helper()
	bus := linsim.NewForBaud(cfg.Baud)
	bus.Idle(5)
	r := &rig{bus: bus, err: &countingPin{}}
	r.p = lin.NewProcessor(cfg, lin.Hardware{
		Line:     bus,
		Clock:    bus,
		Timer:    bus,
		ErrorPin: r.err,
	})
	return r
}

func (r *rig) run() {
	r.bus.Drain(r.p.HandleInterrupt, drainBits)
}

func (r *rig) readAll() []lin.Frame {
	var frames []lin.Frame
	for {
		f, ok := r.p.ReadNextFrame()
		if !ok {
			return frames
		}
		frames = append(frames, f)
	}
}

func TestDecodeFrame(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Frame([]uint8{0x92, 0x10, 0x00, 0xEF})
	r.run()

	f, ok := r.p.ReadNextFrame()
	require.True(t, ok)
	assert.Equal(t, []uint8{0x92, 0x10, 0x00, 0xEF}, f.Bytes())
	assert.True(t, f.IsValid())
	assert.Equal(t, lin.ErrorFlags(0), r.p.GetAndClearErrorFlags())
	assert.Zero(t, r.err.highs)

	_, ok = r.p.ReadNextFrame()
	assert.False(t, ok)

	st := r.p.Stats()
	assert.Equal(t, uint32(1), st.Frames)
	assert.Equal(t, uint32(1), st.Breaks)
	assert.Equal(t, r.bus.Interrupts(), st.Generation)
}

func TestDecodeIdentifierOnly(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Frame([]uint8{0x92})
	r.run()

	f, ok := r.p.ReadNextFrame()
	require.True(t, ok)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, uint8(0x12), f.ID())
	assert.True(t, f.IsValid())
	assert.Equal(t, lin.ErrorFlags(0), r.p.GetAndClearErrorFlags())
}

func TestDecodeEnhancedChecksum(t *testing.T) {
	r := newRig(t, lin.Config{Baud: 9600, Checksum: lin.ChecksumEnhanced})
	want := lin.BuildFrame(lin.ChecksumEnhanced, 0x3C, 1, 2, 3, 4, 5, 6, 7, 8)
	r.bus.Frame(want.Bytes())
	r.run()

	f, ok := r.p.ReadNextFrame()
	require.True(t, ok)
	assert.Equal(t, want.Bytes(), f.Bytes())
	assert.Equal(t, lin.ChecksumEnhanced, f.ChecksumVersion())
	assert.True(t, f.IsValid())
}

func TestDecodeInvalidChecksumStillDelivered(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Frame([]uint8{0x92, 0x10, 0x00, 0xEE})
	r.run()

	f, ok := r.p.ReadNextFrame()
	require.True(t, ok)
	assert.False(t, f.IsValid())
	assert.Equal(t, lin.ErrorFlags(0), r.p.GetAndClearErrorFlags())
}

func TestDecodeSequence(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	var want []lin.Frame
	for i := uint8(0); i < 5; i++ {
		f := lin.BuildFrame(lin.ChecksumClassic, 0x12, 0x30+i, 0x01, i)
		want = append(want, f)
		r.bus.Frame(f.Bytes())
	}
	r.run()

	got := r.readAll()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Bytes(), got[i].Bytes())
		pos, ok := lin.DeskPosition(&got[i])
		assert.True(t, ok)
		assert.Equal(t, uint16(0x0130+i), pos)
	}
}

func TestInterByteSpace(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Break(13).Byte(lin.SyncByte)
	r.bus.Bytes(5, 0x92, 0x10, 0x00, 0xEF)
	r.bus.Idle(linsim.InterFrameBits)
	r.run()

	f, ok := r.p.ReadNextFrame()
	require.True(t, ok)
	assert.Equal(t, []uint8{0x92, 0x10, 0x00, 0xEF}, f.Bytes())
}

func TestShortInterFrameIdleCorruptsFrame(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Break(13).Byte(lin.SyncByte).Bytes(0, 0x92, 0x10, 0x00, 0xEF)
	r.bus.Idle(2)
	r.bus.Frame([]uint8{0x92})
	r.run()

	// The second break reads as a fifth byte with a dominant stop bit, and
	// what is left of it is too short to be seen as a break again.
	assert.Equal(t, lin.StopBitError, r.p.GetAndClearErrorFlags())
	assert.Empty(t, r.readAll())
}

func TestBaudDrift(t *testing.T) {
	for _, ticks := range []uint32{51, 53} {
		r := newRig(t, lin.DefaultConfig())
		r.bus.SetBitTicks(ticks)
		r.bus.Frame([]uint8{0x92, 0x55, 0xAA, 0xFF, 0x00, 0x01})
		r.run()

		f, ok := r.p.ReadNextFrame()
		require.True(t, ok, "bit ticks %d", ticks)
		assert.Equal(t, []uint8{0x92, 0x55, 0xAA, 0xFF, 0x00, 0x01}, f.Bytes(), "bit ticks %d", ticks)
		assert.Equal(t, lin.ErrorFlags(0), r.p.GetAndClearErrorFlags(), "bit ticks %d", ticks)
	}
}

func TestLowestAndHighestBaud(t *testing.T) {
	for _, baud := range []uint32{lin.MinBaud, lin.MaxBaud} {
		r := newRig(t, lin.Config{Baud: baud})
		want := lin.BuildFrame(lin.ChecksumClassic, 0x12, 0x10, 0x00)
		r.bus.Frame(want.Bytes())
		r.run()

		f, ok := r.p.ReadNextFrame()
		require.True(t, ok, "baud %d", baud)
		assert.Equal(t, want.Bytes(), f.Bytes(), "baud %d", baud)
	}
}

func TestSubstitutedBaud(t *testing.T) {
	r := newRig(t, lin.Config{Baud: 50000})
	assert.True(t, r.p.Timing().Substituted)
	assert.Equal(t, uint32(lin.DefaultBaud), r.p.Timing().Baud)
	assert.Equal(t, uint32(50000), r.p.Config().Baud)
}

func TestStartBitErrorDropsFrame(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Break(13).Byte(lin.SyncByte).Bytes(0, 0x92, 0x10)
	r.bus.Glitch(10)
	r.bus.Idle(linsim.InterFrameBits)
	r.run()

	_, ok := r.p.ReadNextFrame()
	assert.False(t, ok)
	assert.Equal(t, lin.StartBitError, r.p.GetAndClearErrorFlags())
	assert.Equal(t, 1, r.err.highs)

	// The decoder is back hunting for breaks.
	r.bus.Frame([]uint8{0x92, 0x10, 0x00, 0xEF})
	r.run()
	f, ok := r.p.ReadNextFrame()
	require.True(t, ok)
	assert.True(t, f.IsValid())
}

func TestStopBitError(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Break(13).Byte(lin.SyncByte).Byte(0x92).ByteBadStop(0x10)
	r.bus.Idle(linsim.InterFrameBits)
	r.run()

	_, ok := r.p.ReadNextFrame()
	assert.False(t, ok)
	assert.Equal(t, lin.StopBitError, r.p.GetAndClearErrorFlags())
}

func TestSyncByteMismatch(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Break(13).Byte(0x54).Bytes(0, 0x92, 0x10, 0x00, 0xEF)
	r.bus.Idle(linsim.InterFrameBits)
	r.run()

	_, ok := r.p.ReadNextFrame()
	assert.False(t, ok)
	assert.True(t, r.p.GetAndClearErrorFlags().Has(lin.SyncByteError))
}

func TestSyncByteFramingErrors(t *testing.T) {
	// No start edge after the break.
	r := newRig(t, lin.DefaultConfig())
	r.bus.Break(13).Idle(drainBits)
	r.run()
	assert.Equal(t, lin.SyncByteError, r.p.GetAndClearErrorFlags())

	// Dominant stop bit on the sync byte.
	r = newRig(t, lin.DefaultConfig())
	r.bus.Break(13).ByteBadStop(lin.SyncByte).Idle(linsim.InterFrameBits)
	r.run()
	assert.Equal(t, lin.SyncByteError, r.p.GetAndClearErrorFlags())

	_, ok := r.p.ReadNextFrame()
	assert.False(t, ok)
}

func TestFrameTooShort(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Break(13).Byte(lin.SyncByte).Idle(linsim.InterFrameBits)
	r.run()

	_, ok := r.p.ReadNextFrame()
	assert.False(t, ok)
	assert.Equal(t, lin.FrameTooShort, r.p.GetAndClearErrorFlags())
}

func TestFrameTooLong(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Break(13).Byte(lin.SyncByte)
	r.bus.Bytes(0, 0x92, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	r.bus.Idle(linsim.InterFrameBits)
	r.run()

	_, ok := r.p.ReadNextFrame()
	assert.False(t, ok)
	assert.Equal(t, lin.FrameTooLong, r.p.GetAndClearErrorFlags())
}

func TestOverrunKeepsNewest(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	total := lin.RingCapacity + 2
	for i := 0; i < total; i++ {
		f := lin.BuildFrame(lin.ChecksumClassic, uint8(i), 0xA0)
		r.bus.Frame(f.Bytes())
	}
	r.run()

	assert.Equal(t, lin.RingCapacity, r.p.Pending())
	assert.Equal(t, lin.BufferOverrun, r.p.GetAndClearErrorFlags())

	got := r.readAll()
	require.Len(t, got, lin.RingCapacity)
	for i, f := range got {
		assert.Equal(t, uint8(i+2), f.ID())
		assert.True(t, f.IsValid())
	}
	assert.Equal(t, uint32(total), r.p.Stats().Frames)
}

func TestErrorFlagsAccumulate(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	r.bus.Break(13).Byte(0x54).Idle(linsim.InterFrameBits)
	r.bus.Break(13).Byte(lin.SyncByte).Idle(linsim.InterFrameBits)
	r.bus.Break(13).Byte(0x54).Idle(linsim.InterFrameBits)
	r.run()

	assert.Equal(t, lin.SyncByteError|lin.FrameTooShort, r.p.GetAndClearErrorFlags())
	assert.Equal(t, lin.ErrorFlags(0), r.p.GetAndClearErrorFlags())
}

func TestDefaultProcessor(t *testing.T) {
	bus := linsim.NewForBaud(9600)
	bus.Idle(5)
	lin.Setup(lin.Config{Baud: 9600}, lin.Hardware{Line: bus, Clock: bus, Timer: bus})

	bus.Frame([]uint8{0x92, 0x10, 0x00, 0xEF})
	bus.Drain(lin.HandleInterrupt, drainBits)

	f, ok := lin.ReadNextFrame()
	require.True(t, ok)
	assert.True(t, f.IsValid())
	assert.Equal(t, lin.ErrorFlags(0), lin.GetAndClearErrorFlags())
}

// The consumer reads while the bus runs on another goroutine. Every frame
// it sees must be whole and in order; overruns may drop some.
func TestConcurrentConsumer(t *testing.T) {
	r := newRig(t, lin.DefaultConfig())
	const total = 40
	for i := 0; i < total; i++ {
		f := lin.BuildFrame(lin.ChecksumClassic, uint8(i), uint8(i), 0x5A, ^uint8(i))
		r.bus.Frame(f.Bytes())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.run()
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var got []lin.Frame
	finished := false
	for !finished {
		select {
		case <-done:
			finished = true
		default:
		}
		got = append(got, r.readAll()...)
	}

	require.NotEmpty(t, got)
	last := -1
	for _, f := range got {
		require.True(t, f.IsValid(), "torn frame %v", f)
		id := int(f.ID())
		assert.Greater(t, id, last)
		last = id
	}
	flags := r.p.GetAndClearErrorFlags()
	assert.Zero(t, flags&^lin.BufferOverrun, "flags %v", flags)
	if len(got) < total {
		assert.True(t, flags.Has(lin.BufferOverrun))
	}
}
