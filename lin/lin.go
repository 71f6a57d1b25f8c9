// Package lin decodes a LIN bus in software. A periodic interrupt samples
// the receive line once per bit; a two state machine finds the break,
// reassembles bytes from the samples and queues complete frames for the
// main loop. Nothing on the interrupt path allocates or waits without a
// tick budget.
//
// Firmware uses the package level functions on a single default
// processor; tests and host tools build their own with NewProcessor.
package lin

var defaultProcessor *Processor

// Setup initializes the default processor. Call once, before the bit
// interrupt is enabled. Out of range baud rates silently fall back to
// DefaultBaud; check Timing().Substituted to report it.
func Setup(cfg Config, hw Hardware) *Processor {
	defaultProcessor = NewProcessor(cfg, hw)
	return defaultProcessor
}

// HandleInterrupt is the bit interrupt entry point for the default
// processor.
func HandleInterrupt() {
	defaultProcessor.HandleInterrupt()
}

// ReadNextFrame polls the default processor for the oldest frame.
func ReadNextFrame() (Frame, bool) {
	return defaultProcessor.ReadNextFrame()
}

// GetAndClearErrorFlags takes the pending errors of the default processor.
func GetAndClearErrorFlags() ErrorFlags {
	return defaultProcessor.GetAndClearErrorFlags()
}
