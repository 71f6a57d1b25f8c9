//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"desklin/core"
)

// RP2040 timer peripheral. The counter runs at 1MHz from the watchdog tick.
// Alarms compare against the low word only and fire on equality.
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14 // writing arms the alarm
	timerTIMERAWL = timerBase + 0x28 // raw low word, no latching
	timerINTR     = timerBase + 0x34 // write 1 to clear
	timerINTE     = timerBase + 0x38
	timerINTS     = timerBase + 0x40

	alarm1Mask = 1 << 1

	// minAlarmLead keeps a re-armed alarm far enough ahead of the counter
	// that the write lands before the match.
	minAlarmLead = 2
)

var (
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerAlarm1 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
	timerInts   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTS)))
)

// InitClock points the core scheduler at the hardware counter.
func InitClock() {
	core.SetTimeSource(GetHardwareTime)
	core.TimerInit()
}

// GetHardwareTime returns the low 32 bits of the microsecond counter.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// hardwareClock is the decoder's tick source: the counter truncated to 16
// bits.
type hardwareClock struct{}

func (hardwareClock) Ticks() uint16 {
	return uint16(timerRAWL.Get())
}

// alarmTimer drives the bit interrupt from ALARM1. Each firing re-arms the
// alarm one period after the previous target, so interrupt latency does not
// accumulate.
type alarmTimer struct {
	period uint32
	next   uint32
}

func (t *alarmTimer) Configure(periodTicks uint16) {
	t.period = uint32(periodTicks)
	t.arm(timerRAWL.Get() + t.period)
	timerInte.SetBits(alarm1Mask)
}

func (t *alarmTimer) ResetPhase() {
	t.arm(timerRAWL.Get() + t.period)
}

func (t *alarmTimer) SetPhase(elapsedTicks uint16) {
	t.arm(timerRAWL.Get() + t.period - uint32(elapsedTicks))
}

// fire acknowledges the alarm and schedules the next period. It reports
// false for a stale interrupt whose alarm was re-armed in the meantime.
func (t *alarmTimer) fire() bool {
	if timerInts.Get()&alarm1Mask == 0 {
		return false
	}
	t.arm(t.next + t.period)
	return true
}

// arm clears any pending match and sets the alarm. A target already behind
// the counter would only match after the 32 bit wrap, so it is pulled in.
func (t *alarmTimer) arm(at uint32) {
	timerIntr.Set(alarm1Mask)
	if now := timerRAWL.Get(); int32(at-now) < minAlarmLead {
		at = now + minAlarmLead
	}
	t.next = at
	timerAlarm1.Set(at)
}
