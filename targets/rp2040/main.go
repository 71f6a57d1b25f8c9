//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"sync/atomic"
	"time"

	"desklin/core"
	"desklin/lin"
	"desklin/protocol"
	"desklin/targets/pio"
)

// Bus settings
const (
	linBaud     = 19200
	linChecksum = lin.ChecksumClassic
)

// Board pins. The transceiver RX goes to GPIO1; GPIO2-5 are scope probes.
const (
	pinLinRX  core.GPIOPin = 1
	pinBreak  core.GPIOPin = 2
	pinSample core.GPIOPin = 3
	pinError  core.GPIOPin = 4
	pinISR    core.GPIOPin = 5

	pinBitClock = machine.GPIO6
	pinPixel    = machine.GPIO16
	pinLED      = core.GPIOPin(machine.LED)
)

const (
	reportInterval = 5000 * core.TicksPerMilli
	dumpTiming     = true // log the decoder event ring after errors
)

var (
	outputBuffer *protocol.ScratchOutput
	encoder      *protocol.Encoder
	processor    *lin.Processor
	bitTimer     alarmTimer
	activityLED  *core.DigitalPin
	pixel        *statusPixel
	bitClock     *pio.BitClock

	// Set by the USB reader when the host writes anything.
	identifyRequested atomic.Bool

	reportTimer = core.Timer{Handler: reportEvent}

	// Debug counters
	framesSent               uint32
	msgerrors                uint32
	consecutiveWriteFailures uint32
)

func main() {
	// Clear watchdog state left over from a previous run
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitClock()

	core.SetGPIODriver(NewRPGPIODriver())

	outputBuffer = protocol.NewScratchOutput()
	encoder = protocol.NewEncoder(outputBuffer)
	core.SetDebugWriter(func(s string) {
		if outputBuffer.Space() >= protocol.MessageLengthMax {
			encoder.Send(protocol.LogReport{Text: s})
		}
	})
	core.SetDebugEnabled(dumpTiming)

	hw, err := setupHardware()
	if err != nil {
		for {
			// Nothing to decode without the RX pin; keep reporting why.
			encoder.Send(protocol.LogReport{Text: "pin setup: " + err.Error()})
			writeUSB()
			time.Sleep(time.Second)
		}
	}

	// Starts the alarm; the interrupt stays masked until Enable below.
	processor = lin.Setup(lin.Config{Baud: linBaud, Checksum: linChecksum}, hw)

	sendIdentify()
	if timing := processor.Timing(); timing.Substituted {
		encoder.Send(protocol.LogReport{
			Text: "baud " + core.Utoa(linBaud) + " out of range, using " + core.Utoa(timing.Baud),
		})
	}

	bitClock = pio.NewBitClock(0, 0)
	if err := bitClock.Start(pinBitClock, processor.Timing().Baud); err != nil {
		encoder.Send(protocol.LogReport{Text: "bit clock: " + err.Error()})
	}

	intr := interrupt.New(rp.IRQ_TIMER_IRQ_1, handleBitInterrupt)
	intr.SetPriority(0x00)
	intr.Enable()

	reportTimer.WakeTime = core.GetTime() + reportInterval
	core.ScheduleTimer(&reportTimer)

	go usbReaderLoop()

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					outputBuffer.Reset()
				}
			}()

			core.ProcessTimers()

			if identifyRequested.Swap(false) {
				sendIdentify()
			}

			pollDecoder()

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// handleBitInterrupt runs the decoder once per bit period.
func handleBitInterrupt(interrupt.Interrupt) {
	if !bitTimer.fire() {
		return
	}
	lin.HandleInterrupt()
}

func setupHardware() (lin.Hardware, error) {
	line, err := newLineInput(pinLinRX)
	if err != nil {
		return lin.Hardware{}, err
	}
	hw := lin.Hardware{
		Line:  line,
		Clock: hardwareClock{},
		Timer: &bitTimer,
	}

	// Probes are optional; a pin that fails to configure stays a no-op.
	if p, err := newIndicator(pinBreak); err == nil {
		hw.BreakPin = p
	}
	if p, err := newIndicator(pinSample); err == nil {
		hw.SamplePin = p
	}
	if p, err := newIndicator(pinError); err == nil {
		hw.ErrorPin = p
	}
	if p, err := newIndicator(pinISR); err == nil {
		hw.ISRPin = p
	}

	activityLED, _ = core.NewOutputPin(pinLED, false)
	pixel = newStatusPixel(pinPixel)
	return hw, nil
}

// pollDecoder moves frames and error flags from the decoder into reports.
// It stops early when the output buffer cannot take another block; the
// ring keeps the rest for the next pass.
func pollDecoder() {
	now := core.GetTime()
	drained := false

	var f lin.Frame
	for outputBuffer.Space() >= protocol.MessageLengthMax && processor.TryReadFrame(&f) {
		encoder.Send(protocol.FrameReport{Frame: f})
		framesSent++
		drained = true

		if activityLED != nil {
			activityLED.Toggle()
		}
		if f.IsValid() {
			pixel.event(colorFrames, now)
		} else {
			pixel.event(colorInvalid, now)
		}
	}

	if outputBuffer.Space() >= protocol.MessageLengthMax {
		if flags := processor.GetAndClearErrorFlags(); flags != 0 {
			encoder.Send(protocol.ErrorsReport{Flags: flags})
			pixel.event(colorError, now)
			if dumpTiming {
				core.DumpTimingRing()
				core.ClearTimingRing()
			}
		}
	}

	if drained {
		pixel.flush(now)
	}
}

// reportEvent sends the periodic stats and identify reports.
func reportEvent(t *core.Timer) uint8 {
	if outputBuffer.Space() >= 2*protocol.MessageLengthMax {
		encoder.Send(protocol.StatsReport{Stats: processor.Stats()})
		sendIdentify()
	}
	t.WakeTime += reportInterval
	return core.SF_RESCHEDULE
}

func sendIdentify() {
	timing := processor.Timing()
	encoder.Send(protocol.IdentifyReport{
		Version:     protocol.Version,
		Baud:        timing.Baud,
		Checksum:    processor.Config().Checksum,
		Substituted: timing.Substituted,
	})
}

// usbReaderLoop drains host input. There are no host commands; any byte
// asks for a fresh identify report.
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			if _, err := USBRead(); err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}
			identifyRequested.Store(true)
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB writes the output buffer to USB. After repeated failures the
// host is assumed gone and the stale output is dropped.
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				encoder.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
