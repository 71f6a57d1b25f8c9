package protocol

import "errors"

// Report arguments are variable length quantities: 7 bits per byte, most
// significant group first, bit 7 set on every byte but the last. Bit 6 of
// the first byte is the sign, so one byte covers [-32, 96).

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// maxVLQBytes is the longest encoding of a 32 bit value.
const maxVLQBytes = 5

// vlqLen returns the number of bytes v encodes to. Each extra byte widens
// the one byte range [-32, 96) by 7 bits.
func vlqLen(v int32) int {
	lo, hi := int64(-1<<5), int64(3<<5)
	n := 1
	for n < maxVLQBytes && (int64(v) < lo || int64(v) >= hi) {
		lo <<= 7
		hi <<= 7
		n++
	}
	return n
}

// EncodeVLQInt writes v.
func EncodeVLQInt(output OutputBuffer, v int32) {
	var buf [maxVLQBytes]byte
	n := vlqLen(v)
	for i := 0; i < n-1; i++ {
		shift := 7 * uint(n-1-i)
		buf[i] = byte(v>>shift)&0x7F | 0x80
	}
	buf[n-1] = byte(v) & 0x7F
	output.Output(buf[:n])
}

// EncodeVLQUint writes v. Values of 2^31 and above travel as negative
// numbers and come back intact through DecodeVLQUint.
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt reads one value and advances data past it.
func DecodeVLQInt(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrBufferTooSmall
	}

	c := buf[0]
	v := uint32(c & 0x7F)
	if c&0x60 == 0x60 {
		// Negative: extend the sign from bit 5
		v |= ^uint32(0x1F)
	}

	i := 1
	for ; c&0x80 != 0; i++ {
		if i == maxVLQBytes {
			return 0, ErrInvalidVLQ
		}
		if i >= len(buf) {
			return 0, ErrBufferTooSmall
		}
		c = buf[i]
		v = v<<7 | uint32(c&0x7F)
	}

	*data = buf[i:]
	return int32(v), nil
}

func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// EncodeVLQBytes writes a length followed by the bytes.
func EncodeVLQBytes(output OutputBuffer, b []byte) {
	EncodeVLQUint(output, uint32(len(b)))
	output.Output(b)
}

// DecodeVLQBytes reads a length prefixed byte string. The result aliases
// data.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	n, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < n {
		return nil, ErrBufferTooSmall
	}
	b := (*data)[:n]
	*data = (*data)[n:]
	return b, nil
}

func EncodeVLQString(output OutputBuffer, s string) {
	EncodeVLQBytes(output, []byte(s))
}

func DecodeVLQString(data *[]byte) (string, error) {
	b, err := DecodeVLQBytes(data)
	return string(b), err
}
