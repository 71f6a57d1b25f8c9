package core

// Digital pin wrapper for the main loop (status LEDs, transceiver enable,
// debug strobes). Never use it from the bit sampling interrupt: every
// operation masks interrupts around the read-modify-write.
// DigitalPin flags
const (
	DF_ON      = 1 << 0 // Last written level (outputs) or last read level (inputs)
	DF_OUTPUT  = 1 << 1 // Configured as output
	DF_DEFAULT = 1 << 2 // Level restored by Release
)

// DigitalPin is a configured GPIO pin.
type DigitalPin struct {
	Pin   GPIOPin
	Flags uint8
}

// NewOutputPin configures pin as an output and drives it to initial. The
// initial level is also the level Release returns the pin to.
func NewOutputPin(pin GPIOPin, initial bool) (*DigitalPin, error) {
	p := &DigitalPin{Pin: pin, Flags: DF_OUTPUT}
	if initial {
		p.Flags |= DF_DEFAULT
	}
	if err := MustGPIO().ConfigureOutput(pin); err != nil {
		return nil, err
	}
	if err := p.Set(initial); err != nil {
		return nil, err
	}
	return p, nil
}

// NewInputPin configures pin as an input with the pull-up enabled.
func NewInputPin(pin GPIOPin) (*DigitalPin, error) {
	if err := MustGPIO().ConfigureInputPullUp(pin); err != nil {
		return nil, err
	}
	return &DigitalPin{Pin: pin}, nil
}

// Set drives the pin to value
func (p *DigitalPin) Set(value bool) (err error) {
	Critical(func() {
		err = p.setLocked(value)
	})
	return err
}

// High drives the pin high
func (p *DigitalPin) High() error {
	return p.Set(true)
}

// Low drives the pin low
func (p *DigitalPin) Low() error {
	return p.Set(false)
}

// Toggle inverts the last written level. The read and the write happen
// inside one masked section.
func (p *DigitalPin) Toggle() (err error) {
	Critical(func() {
		err = p.setLocked(p.Flags&DF_ON == 0)
	})
	return err
}

// IsHigh reads the pin level
func (p *DigitalPin) IsHigh() (bool, error) {
	v, err := MustGPIO().GetPin(p.Pin)
	if err != nil {
		return false, err
	}
	if p.Flags&DF_OUTPUT == 0 {
		if v {
			p.Flags |= DF_ON
		} else {
			p.Flags &^= DF_ON
		}
	}
	return v, nil
}

// Release returns an output to its default level
func (p *DigitalPin) Release() error {
	if p.Flags&DF_OUTPUT == 0 {
		return nil
	}
	return p.Set(p.Flags&DF_DEFAULT != 0)
}

func (p *DigitalPin) setLocked(value bool) error {
	if err := MustGPIO().SetPin(p.Pin, value); err != nil {
		return err
	}
	if value {
		p.Flags |= DF_ON
	} else {
		p.Flags &^= DF_ON
	}
	return nil
}
