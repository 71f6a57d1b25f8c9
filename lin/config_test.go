package lin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTiming(t *testing.T) {
	tm := NewTiming(19200)
	assert.False(t, tm.Substituted)
	assert.Equal(t, uint32(19200), tm.Baud)
	assert.Equal(t, uint16(52), tm.TicksPerBit)
	assert.Equal(t, uint16(26), tm.TicksPerHalfBit)
	assert.Equal(t, uint16(52*8), tm.MaxGapTicks)
	assert.Equal(t, uint16(52*16), tm.MaxBreakTicks)

	tm = NewTiming(MinBaud)
	assert.False(t, tm.Substituted)
	assert.Equal(t, uint16(1000), tm.TicksPerBit)
	assert.Equal(t, uint16(16000), tm.MaxBreakTicks)

	tm = NewTiming(MaxBaud)
	assert.False(t, tm.Substituted)
	assert.Equal(t, uint16(50), tm.TicksPerBit)
}

func TestNewTimingOutOfRange(t *testing.T) {
	for _, baud := range []uint32{0, 999, 20001, 115200} {
		tm := NewTiming(baud)
		assert.True(t, tm.Substituted, "baud %d", baud)
		assert.Equal(t, uint32(DefaultBaud), tm.Baud)
		assert.Equal(t, uint16(104), tm.TicksPerBit)
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{Baud: 500}.Validate(), ErrBaudOutOfRange)
	assert.ErrorIs(t, Config{Baud: 30000}.Validate(), ErrBaudOutOfRange)
}
