// Package serial opens the USB CDC port the decoder firmware reports on.
package serial

import "io"

// Port is an open serial port. Read returns (0, nil) when the read timeout
// expires with no data, so callers can poll for shutdown.
type Port interface {
	io.ReadWriteCloser
	// Flush drops received bytes that were not read yet.
	Flush() error
}

// Config selects the device. Baud only matters behind a USB-UART bridge;
// CDC ports ignore it.
type Config struct {
	Device      string `json:"device"`
	Baud        int    `json:"baud"`
	ReadTimeout int    `json:"read_timeout_ms"` // 0 blocks
}

// DefaultConfig returns the configuration for the report link on device.
func DefaultConfig(device string) *Config {
	return &Config{Device: device, Baud: 115200, ReadTimeout: 100}
}
