package linsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// levelAt samples the scripted line at t without disturbing the cursor of
// b.
func levelAt(b *Bus, t uint32) bool {
	c := *b
	c.cursor = 0
	c.now = t
	return c.IsHigh()
}

func TestByteWaveform(t *testing.T) {
	b := New(10)
	b.Byte(0x55)
	require.Equal(t, uint32(100), b.End())

	want := []bool{false, true, false, true, false, true, false, true, false, true}
	for i, high := range want {
		assert.Equal(t, high, levelAt(b, uint32(i*10+5)), "bit %d", i)
	}
	assert.True(t, levelAt(b, 1000))
}

func TestBreakWaveform(t *testing.T) {
	b := New(10)
	b.Idle(2).Break(13)
	assert.True(t, levelAt(b, 19))
	assert.False(t, levelAt(b, 20))
	assert.False(t, levelAt(b, 149))
	assert.True(t, levelAt(b, 150))
	assert.Equal(t, uint32(160), b.End())
}

func TestTicksAdvance(t *testing.T) {
	b := New(10)
	assert.Equal(t, uint16(0), b.Ticks())
	assert.Equal(t, uint16(1), b.Ticks())
	b.ReadCost = 5
	assert.Equal(t, uint16(2), b.Ticks())
	assert.Equal(t, uint32(7), b.Now())
}

func TestTimerPhase(t *testing.T) {
	b := New(10)
	var fired []uint32
	isr := func() { fired = append(fired, b.Now()) }

	b.Configure(10)
	b.Run(isr, 35)
	assert.Equal(t, []uint32{10, 20, 30}, fired)
	assert.Equal(t, uint32(35), b.Now())

	fired = nil
	b.SetPhase(5)
	b.Run(isr, 60)
	assert.Equal(t, []uint32{40, 50, 60}, fired)

	fired = nil
	b.ResetPhase()
	b.Run(isr, 75)
	assert.Equal(t, []uint32{70}, fired)
	assert.Equal(t, uint32(7), b.Interrupts())
}

func TestRunWithoutTimer(t *testing.T) {
	b := New(10)
	b.Run(func() { t.Fatal("fired") }, 100)
	assert.Equal(t, uint32(100), b.Now())
}
