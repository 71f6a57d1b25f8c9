package core

// Hardware tick clock. The LIN sampler and its timeouts all run on a 1 MHz
// free running counter truncated to 16 bits, so it wraps every ~65ms.
const (
	TimerFreq     = 1000000 // 1MHz tick clock
	TicksPerMilli = TimerFreq / 1000
)

// TickSource is a free running wrapping tick counter. Ticks must be safe to
// call from both the interrupt handler and the main loop.
type TickSource interface {
	Ticks() uint16
}

var (
	systemTicks uint32
	bootTime    uint32
)

// Elapsed returns the number of ticks from base to now. The unsigned
// subtraction stays correct across a counter wrap as long as less than one
// full counter cycle passed.
func Elapsed(base, now uint16) uint16 {
	return now - base
}

// TimedOut reports whether at least limit ticks passed since base.
func TimedOut(base, now, limit uint16) bool {
	return now-base >= limit
}

// GetTime returns the current 32 bit system time in ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// GetUptime returns ticks since TimerInit
func GetUptime() uint32 {
	return GetTime() - bootTime
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return us * (TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return ticks / (TimerFreq / 1000000)
}

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint32 {
	return ms * TicksPerMilli
}

// TimerInit records the boot time
func TimerInit() {
	bootTime = GetTime()
}

// ProcessTimers runs all housekeeping timers that are due
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
