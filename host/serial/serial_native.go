//go:build !wasm

package serial

import (
	"errors"
	"io"
	"time"

	"github.com/ansel1/merry/v2"
	"github.com/tarm/serial"
)

var ErrNilConfig = errors.New("serial config is nil")

// tarmPort adapts github.com/tarm/serial to Port.
type tarmPort struct {
	*serial.Port
	polling bool
}

// Open opens cfg.Device. With a read timeout set, an expired read comes
// back as (0, nil) instead of io.EOF.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, merry.Wrap(ErrNilConfig)
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, merry.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return &tarmPort{Port: p, polling: cfg.ReadTimeout > 0}, nil
}

func (p *tarmPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && p.polling && errors.Is(err, io.EOF) {
		return 0, nil
	}
	return n, err
}
