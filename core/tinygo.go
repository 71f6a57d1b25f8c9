//go:build tinygo

package core

import (
	"runtime/interrupt"
	"sync/atomic"
)

func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}

// ServeInterrupt runs handler. On hardware the caller already is the
// interrupt service routine, so nothing needs masking.
func ServeInterrupt(handler func()) {
	handler()
}

// hardwareTime reads the target's 32 bit microsecond counter once
// registered.
var hardwareTime func() uint32

// SetTimeSource registers the target's hardware counter. GetTime reads it
// directly from then on.
func SetTimeSource(fn func() uint32) {
	hardwareTime = fn
}

func getSystemTicks() uint32 {
	if hardwareTime != nil {
		return hardwareTime()
	}
	return atomic.LoadUint32(&systemTicks)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}
