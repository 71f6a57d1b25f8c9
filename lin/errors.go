package lin

import (
	"errors"
	"strings"
	"sync/atomic"
)

// ErrorFlags is a set of decoder error kinds, one bit each.
type ErrorFlags uint8

// Error kinds. Bit positions match the firmware report format.
const (
	FrameTooShort ErrorFlags = 1 << iota
	FrameTooLong
	StartBitError
	StopBitError
	SyncByteError
	BufferOverrun
	OtherError

	AllErrors = FrameTooShort | FrameTooLong | StartBitError | StopBitError |
		SyncByteError | BufferOverrun | OtherError
)

var errorNames = [...]struct {
	flag ErrorFlags
	name string
}{
	{FrameTooShort, "SHRT"},
	{FrameTooLong, "LONG"},
	{StartBitError, "STRT"},
	{StopBitError, "STOP"},
	{SyncByteError, "SYNC"},
	{BufferOverrun, "OVRN"},
	{OtherError, "OTHR"},
}

// Has reports whether any of the bits in k are set.
func (f ErrorFlags) Has(k ErrorFlags) bool {
	return f&k != 0
}

// Kinds splits the set into its single bit kinds, lowest bit first.
func (f ErrorFlags) Kinds() []ErrorFlags {
	var kinds []ErrorFlags
	for _, e := range errorNames {
		if f&e.flag != 0 {
			kinds = append(kinds, e.flag)
		}
	}
	return kinds
}

// String lists the set kinds by their four letter names, e.g. "SYNC OVRN".
func (f ErrorFlags) String() string {
	var b strings.Builder
	for _, e := range errorNames {
		if f&e.flag == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.name)
	}
	return b.String()
}

// ParseErrorName returns the kind for a four letter name.
func ParseErrorName(name string) (ErrorFlags, bool) {
	for _, e := range errorNames {
		if strings.EqualFold(e.name, name) {
			return e.flag, true
		}
	}
	return 0, false
}

// ErrorSet is the sticky error channel from the interrupt to the main loop.
// The interrupt only sets bits; the consumer takes and clears the whole set
// in one atomic swap. Repeated errors between polls collapse into one bit.
type ErrorSet struct {
	bits atomic.Uint32
}

// Set ORs flags into the set.
func (s *ErrorSet) Set(flags ErrorFlags) {
	for {
		old := s.bits.Load()
		if s.bits.CompareAndSwap(old, old|uint32(flags)) {
			return
		}
	}
}

// Peek returns the pending flags without clearing them.
func (s *ErrorSet) Peek() ErrorFlags {
	return ErrorFlags(s.bits.Load())
}

// GetAndClear returns the pending flags and clears them.
func (s *ErrorSet) GetAndClear() ErrorFlags {
	return ErrorFlags(s.bits.Swap(0))
}

// ErrBaudOutOfRange is returned by Config.Validate.
var ErrBaudOutOfRange = errors.New("lin: baud rate out of range [1000, 20000]")
