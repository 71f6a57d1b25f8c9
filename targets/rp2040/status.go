//go:build rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"desklin/core"
)

// Status pixel colors, kept dim.
var (
	colorIdle    = color.RGBA{R: 0, G: 0, B: 8}
	colorFrames  = color.RGBA{R: 0, G: 12, B: 0}
	colorInvalid = color.RGBA{R: 12, G: 6, B: 0}
	colorError   = color.RGBA{R: 16, G: 0, B: 0}
)

// How long an event keeps the pixel lit.
const statusHoldTicks = 250 * core.TicksPerMilli

// statusPixel shows decoder activity on a WS2812 LED. Writing the pixel
// masks interrupts for about 30µs, so the main loop only calls flush right
// after draining frames, while the bus sits in inter-frame space.
type statusPixel struct {
	dev     ws2812.Device
	shown   color.RGBA
	want    color.RGBA
	until   uint32
	enabled bool
}

func newStatusPixel(pin machine.Pin) *statusPixel {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p := &statusPixel{
		dev:     ws2812.New(pin),
		want:    colorIdle,
		enabled: true,
	}
	p.write(colorIdle)
	return p
}

// event records a frame or error. Errors outrank invalid frames, which
// outrank valid ones, until the hold time ends.
func (p *statusPixel) event(c color.RGBA, now uint32) {
	if p.rank(c) < p.rank(p.want) && int32(p.until-now) > 0 {
		return
	}
	p.want = c
	p.until = now + statusHoldTicks
}

// flush writes the pixel if its color changed.
func (p *statusPixel) flush(now uint32) {
	if !p.enabled {
		return
	}
	if p.want != colorIdle && int32(p.until-now) <= 0 {
		p.want = colorIdle
	}
	if p.want != p.shown {
		p.write(p.want)
	}
}

func (p *statusPixel) write(c color.RGBA) {
	if err := p.dev.WriteColors([]color.RGBA{c}); err != nil {
		p.enabled = false
		return
	}
	p.shown = c
}

func (p *statusPixel) rank(c color.RGBA) int {
	switch c {
	case colorError:
		return 3
	case colorInvalid:
		return 2
	case colorFrames:
		return 1
	default:
		return 0
	}
}
