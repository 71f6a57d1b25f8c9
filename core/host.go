//go:build !tinygo

package core

import (
	"sync"
	"sync/atomic"
)

// Host shims. There is no interrupt controller off the board; a mutex
// stands in for it so a simulated interrupt running on another goroutine is
// excluded exactly like a real one would be.

// State is the saved interrupt state.
type State uintptr

var irqMu sync.Mutex

func disableInterrupts() State {
	irqMu.Lock()
	return 1
}

func restoreInterrupts(state State) {
	if state != 0 {
		irqMu.Unlock()
	}
}

// ServeInterrupt runs handler as an interrupt service routine. It must not
// nest and the handler must not mask interrupts itself.
func ServeInterrupt(handler func()) {
	irqMu.Lock()
	defer irqMu.Unlock()
	handler()
}

// The host system time is whatever SetTime stored last.
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}
