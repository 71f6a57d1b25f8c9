//go:build rp2040

package main

import (
	"machine"
	"runtime/volatile"
	"unsafe"

	"desklin/core"
)

// RPGPIODriver implements core.GPIODriver on machine.Pin. It configures
// pins and serves the main loop; the interrupt path reads and writes SIO
// registers directly.
type RPGPIODriver struct {
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinOutput)
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPullup)
}

// SetPin drives the pin, configuring it as an output on first use.
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		machinePin = d.configuredPins[pin]
	}
	machinePin.Set(value)
	return nil
}

// GetPin reads the pin. Unconfigured pins read low.
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		return false, nil
	}
	return machinePin.Get(), nil
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	// RP2040 pins map directly to GPIO numbers
	machinePin := machine.Pin(pin)
	machinePin.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = machinePin
	return nil
}

// Single cycle IO block, one register access per read or write.
const (
	sioBase       = 0xd0000000
	sioGPIOIn     = sioBase + 0x04
	sioGPIOOutSet = sioBase + 0x14
	sioGPIOOutClr = sioBase + 0x18
)

var (
	sioIn     = (*volatile.Register32)(unsafe.Pointer(uintptr(sioGPIOIn)))
	sioOutSet = (*volatile.Register32)(unsafe.Pointer(uintptr(sioGPIOOutSet)))
	sioOutClr = (*volatile.Register32)(unsafe.Pointer(uintptr(sioGPIOOutClr)))
)

// sioLine is the LIN receive input.
type sioLine struct {
	mask uint32
}

func (l sioLine) IsHigh() bool {
	return sioIn.Get()&l.mask != 0
}

// sioIndicator is a scope probe output.
type sioIndicator struct {
	mask uint32
}

func (p sioIndicator) High() { sioOutSet.Set(p.mask) }
func (p sioIndicator) Low()  { sioOutClr.Set(p.mask) }

// newLineInput configures pin as a pulled up input. The transceiver drives
// RX push-pull; the pull-up only holds the line recessive when it is
// unplugged.
func newLineInput(pin core.GPIOPin) (sioLine, error) {
	if _, err := core.NewInputPin(pin); err != nil {
		return sioLine{}, err
	}
	return sioLine{mask: 1 << pin}, nil
}

// newIndicator configures pin as a low output.
func newIndicator(pin core.GPIOPin) (sioIndicator, error) {
	if _, err := core.NewOutputPin(pin, false); err != nil {
		return sioIndicator{}, err
	}
	return sioIndicator{mask: 1 << pin}, nil
}
