package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16(t *testing.T) {
	assert.Equal(t, uint16(0xFFFF), CRC16(nil))
	assert.Equal(t, uint16(0x6F91), CRC16([]byte("123456789")))
	assert.Equal(t, uint16(0x9E81), CRC16([]byte{5, MessageDest}))
}

func TestCRC16DetectsSingleBitErrors(t *testing.T) {
	data := []byte{0x0B, 0x11, 0x01, 0x00, 0x04, 0x92, 0x10, 0x00, 0xEF}
	want := CRC16(data)
	for i := range data {
		for bit := 0; bit < 8; bit++ {
			data[i] ^= 1 << bit
			assert.NotEqual(t, want, CRC16(data), "byte %d bit %d", i, bit)
			data[i] ^= 1 << bit
		}
	}
}
