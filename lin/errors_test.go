package lin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFlagsString(t *testing.T) {
	assert.Equal(t, "", ErrorFlags(0).String())
	assert.Equal(t, "SYNC", SyncByteError.String())
	assert.Equal(t, "SHRT OVRN", (FrameTooShort | BufferOverrun).String())
	assert.Equal(t, "SHRT LONG STRT STOP SYNC OVRN OTHR", AllErrors.String())
}

func TestErrorFlagsKinds(t *testing.T) {
	f := StopBitError | FrameTooLong
	assert.Equal(t, []ErrorFlags{FrameTooLong, StopBitError}, f.Kinds())
	assert.True(t, f.Has(StopBitError))
	assert.True(t, f.Has(StopBitError|SyncByteError))
	assert.False(t, f.Has(SyncByteError))
	assert.Nil(t, ErrorFlags(0).Kinds())
}

func TestParseErrorName(t *testing.T) {
	for _, k := range AllErrors.Kinds() {
		got, ok := ParseErrorName(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	got, ok := ParseErrorName("ovrn")
	assert.True(t, ok)
	assert.Equal(t, BufferOverrun, got)

	_, ok = ParseErrorName("NOPE")
	assert.False(t, ok)
}

func TestErrorSetGetAndClear(t *testing.T) {
	var s ErrorSet
	assert.Equal(t, ErrorFlags(0), s.GetAndClear())

	s.Set(StartBitError)
	s.Set(StartBitError)
	s.Set(BufferOverrun)
	assert.Equal(t, StartBitError|BufferOverrun, s.Peek())
	assert.Equal(t, StartBitError|BufferOverrun, s.GetAndClear())
	assert.Equal(t, ErrorFlags(0), s.GetAndClear())
}

func TestErrorSetConcurrent(t *testing.T) {
	var s ErrorSet
	var seen ErrorFlags
	var wg sync.WaitGroup

	kinds := AllErrors.Kinds()
	for _, k := range kinds {
		wg.Add(1)
		go func(k ErrorFlags) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.Set(k)
			}
		}(k)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		seen |= s.GetAndClear()
		select {
		case <-done:
			seen |= s.GetAndClear()
			assert.Equal(t, AllErrors, seen)
			return
		default:
		}
	}
}
