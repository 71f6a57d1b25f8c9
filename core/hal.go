// Package core holds the board abstraction and the small runtime shared by
// the decoder and the firmware: tick clock, interrupt masking, housekeeping
// timers, pins and the debug event ring.
package core

import "errors"

// Board interfaces. Targets implement them; the decoder and tests only see
// these.

// GPIOPin is a GPIO number.
type GPIOPin uint32

// GPIODriver configures and drives pins from the main loop. The bit
// interrupt never goes through it.
type GPIODriver interface {
	ConfigureOutput(pin GPIOPin) error
	ConfigureInputPullUp(pin GPIOPin) error
	SetPin(pin GPIOPin, value bool) error
	GetPin(pin GPIOPin) (bool, error)
}

// ErrNoGPIODriver is the panic value when a pin is used before the target
// registered its driver.
var ErrNoGPIODriver = errors.New("GPIO driver not configured")

var gpioDriver GPIODriver

// SetGPIODriver registers the target's driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the registered driver and panics without one.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic(ErrNoGPIODriver)
	}
	return gpioDriver
}

// LineInput reads the LIN receive line. IsHigh is called from the bit
// sampling interrupt and must be a single register read on hardware.
// High is recessive (idle), low is dominant (active).
type LineInput interface {
	IsHigh() bool
}

// BitTimer controls the phase of the periodic bit interrupt. The interrupt
// fires every configured period; the phase setters move the next firing
// without changing the period.
type BitTimer interface {
	// Configure sets the interrupt period in ticks and starts the timer.
	Configure(periodTicks uint16)

	// ResetPhase restarts the current period, so the next interrupt is a full
	// period away. Busy waits call it to keep the interrupt from firing.
	ResetPhase()

	// SetPhase marks elapsedTicks of the current period as already passed,
	// so the next interrupt fires after period-elapsedTicks.
	SetPhase(elapsedTicks uint16)
}

// Indicator is a debug output, typically a pin watched with a scope.
type Indicator interface {
	High()
	Low()
}

// NopIndicator discards all updates.
type NopIndicator struct{}

func (NopIndicator) High() {}
func (NopIndicator) Low()  {}
