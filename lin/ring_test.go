package lin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFrame(r *FrameRing, id uint8) bool {
	w := r.WriteSlot()
	w.Reset()
	w.Append(WithIdentifierParity(id))
	return r.Commit()
}

func TestRingOrder(t *testing.T) {
	var r FrameRing
	r.Reset(ChecksumClassic)
	assert.True(t, r.IsEmpty())

	var out Frame
	assert.False(t, r.TryRead(&out))

	for id := uint8(1); id <= 3; id++ {
		assert.False(t, commitFrame(&r, id))
	}
	assert.Equal(t, 3, r.Len())

	for id := uint8(1); id <= 3; id++ {
		require.True(t, r.TryRead(&out))
		assert.Equal(t, id, out.ID())
	}
	assert.True(t, r.IsEmpty())
}

func TestRingOverrunKeepsNewest(t *testing.T) {
	var r FrameRing
	r.Reset(ChecksumEnhanced)

	overruns := 0
	for id := uint8(0); id < RingCapacity+3; id++ {
		if commitFrame(&r, id) {
			overruns++
		}
	}
	assert.Equal(t, 3, overruns)
	assert.Equal(t, RingCapacity, r.Len())

	var out Frame
	for id := uint8(3); id < RingCapacity+3; id++ {
		require.True(t, r.TryRead(&out))
		assert.Equal(t, id, out.ID())
		assert.Equal(t, ChecksumEnhanced, out.ChecksumVersion())
	}
	assert.False(t, r.TryRead(&out))
}

func TestRingWrapsAround(t *testing.T) {
	var r FrameRing
	r.Reset(ChecksumClassic)

	var out Frame
	for id := uint8(0); id < 40; id++ {
		assert.False(t, commitFrame(&r, id&idMask))
		require.True(t, r.TryRead(&out))
		assert.Equal(t, id&idMask, out.ID())
	}
	assert.Equal(t, 0, r.Len())
}

func TestRingReadLeavesOutOnEmpty(t *testing.T) {
	var r FrameRing
	r.Reset(ChecksumClassic)

	out := BuildFrame(ChecksumClassic, 0x12, 1)
	assert.False(t, r.TryRead(&out))
	assert.Equal(t, uint8(0x12), out.ID())
}
