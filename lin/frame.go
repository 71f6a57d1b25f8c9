package lin

// Frame size limits. The sync byte is checked by the decoder and never
// stored, so byte 0 of a frame is always the protected identifier.
const (
	// MinBytes is an identifier with no slave response.
	MinBytes = 1
	// MaxDataBytes is the largest LIN data field.
	MaxDataBytes = 8
	// MaxBytes is identifier, 8 data bytes and checksum.
	MaxBytes = 1 + MaxDataBytes + 1

	// SyncByte is the fixed value following every break.
	SyncByte = 0x55

	idMask = 0x3F
)

// ChecksumVersion selects which bytes the frame checksum covers.
type ChecksumVersion uint8

const (
	// ChecksumClassic (LIN 1.x) sums the data bytes only.
	ChecksumClassic ChecksumVersion = iota
	// ChecksumEnhanced (LIN 2.x) also sums the protected identifier.
	ChecksumEnhanced
)

func (v ChecksumVersion) String() string {
	switch v {
	case ChecksumClassic:
		return "classic"
	case ChecksumEnhanced:
		return "enhanced"
	default:
		return "unknown"
	}
}

// Frame is a received LIN frame: protected identifier, 0-8 data bytes and a
// checksum. Frames are plain values; the decoder fills ring slots in place
// and hands out copies. Read-only accessors take a value receiver, so they
// work on any Frame expression. Mutators and Bytes/Data, whose slices
// alias the frame, take a pointer.
type Frame struct {
	bytes    [MaxBytes]uint8
	count    uint8
	checksum ChecksumVersion
}

// NewFrame returns an empty frame validated with checksum version v.
func NewFrame(v ChecksumVersion) Frame {
	return Frame{checksum: v}
}

// BuildFrame assembles a wire-valid frame for a 6 bit identifier: the
// protected identifier, the data and the checksum. With no data the frame
// is a header only and carries no checksum. Data past MaxDataBytes is
// dropped.
func BuildFrame(v ChecksumVersion, id uint8, data ...uint8) Frame {
	f := NewFrame(v)
	f.Append(WithIdentifierParity(id))
	if len(data) > MaxDataBytes {
		data = data[:MaxDataBytes]
	}
	for _, b := range data {
		f.Append(b)
	}
	if len(data) > 0 {
		f.AppendChecksum()
	}
	return f
}

// Append adds a byte. The caller guarantees Len() < MaxBytes.
func (f *Frame) Append(b uint8) {
	f.bytes[f.count] = b
	f.count++
}

// AppendChecksum appends the checksum of all bytes currently in the frame.
// The caller guarantees Len() < MaxBytes.
func (f *Frame) AppendChecksum() {
	f.Append(f.checksumOver(f.count))
}

// Reset empties the frame. Bytes past the count are left stale.
func (f *Frame) Reset() {
	f.count = 0
}

// Len returns the number of bytes in the frame.
func (f Frame) Len() int {
	return int(f.count)
}

// Byte returns byte i. The caller guarantees i < Len().
func (f Frame) Byte(i int) uint8 {
	return f.bytes[i]
}

// Bytes returns the frame bytes. The slice aliases the frame.
func (f *Frame) Bytes() []uint8 {
	return f.bytes[:f.count]
}

// ChecksumVersion returns the checksum version used by IsValid.
func (f Frame) ChecksumVersion() ChecksumVersion {
	return f.checksum
}

// SetChecksumVersion changes the checksum version used by IsValid.
func (f *Frame) SetChecksumVersion(v ChecksumVersion) {
	f.checksum = v
}

// ProtectedID returns byte 0, identifier plus parity bits. Zero for an
// empty frame.
func (f Frame) ProtectedID() uint8 {
	if f.count == 0 {
		return 0
	}
	return f.bytes[0]
}

// ID returns the 6 bit logical identifier.
func (f Frame) ID() uint8 {
	return f.ProtectedID() & idMask
}

// Data returns the data bytes between identifier and checksum. The slice
// aliases the frame.
func (f *Frame) Data() []uint8 {
	if f.count < 3 {
		return nil
	}
	return f.bytes[1 : f.count-1]
}

// Checksum returns the received checksum byte, the last byte of a frame
// with a response.
func (f Frame) Checksum() (uint8, bool) {
	if f.count < 2 {
		return 0, false
	}
	return f.bytes[f.count-1], true
}

// ComputeChecksum computes the checksum the last byte should carry: the sum
// of the covered bytes with the carry folded back in, inverted. The frame
// should hold at least one byte.
func (f Frame) ComputeChecksum() uint8 {
	if f.count == 0 {
		return f.checksumOver(0)
	}
	return f.checksumOver(f.count - 1)
}

// checksumOver computes the checksum of bytes [start, end) where start
// depends on the checksum version.
func (f Frame) checksumOver(end uint8) uint8 {
	start := uint8(1)
	if f.checksum == ChecksumEnhanced {
		start = 0
	}

	// At most 10 bytes, no 16 bit overflow.
	var sum uint16
	for i := start; i < end; i++ {
		sum += uint16(f.bytes[i])
	}

	// Folding can carry again, keep going until the high byte is clear.
	for sum>>8 != 0 {
		sum = sum&0xFF + sum>>8
	}
	return ^uint8(sum)
}

// IsValid reports whether the frame has a legal size, a protected
// identifier with correct parity bits, and, when a response is present, a
// matching checksum.
func (f Frame) IsValid() bool {
	n := f.count

	// One identifier byte, optionally 1-8 data bytes and a checksum.
	if n != 1 && (n < 3 || n > MaxBytes) {
		return false
	}

	if id := f.bytes[0]; id != WithIdentifierParity(id) {
		return false
	}

	if n > 1 && f.bytes[n-1] != f.ComputeChecksum() {
		return false
	}
	return true
}

// String formats the frame as space separated hex bytes.
func (f Frame) String() string {
	if f.count == 0 {
		return "<empty>"
	}
	buf := make([]byte, 0, 3*MaxBytes)
	for i := uint8(0); i < f.count; i++ {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, hexDigits[f.bytes[i]>>4], hexDigits[f.bytes[i]&0x0F])
	}
	return string(buf)
}

const hexDigits = "0123456789ABCDEF"

// WithIdentifierParity returns the protected identifier for the 6 bit id in
// the low bits of id: P0 in bit 6, P1 in bit 7. The two high input bits are
// ignored, so a received byte is valid exactly when it equals its own
// WithIdentifierParity.
func WithIdentifierParity(id uint8) uint8 {
	bit := func(n uint8) uint8 { return (id >> n) & 1 }
	p0 := bit(0) ^ bit(1) ^ bit(2) ^ bit(4)
	p1 := ^(bit(1) ^ bit(3) ^ bit(4) ^ bit(5)) & 1
	return p1<<7 | p0<<6 | id&idMask
}
