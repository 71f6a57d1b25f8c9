package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a decoder event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Value     uint8  // Byte value, error bits or frame size
	Index     uint8  // Byte index within the frame
	Clock     uint16 // Tick counter at event
}

// Event type codes
const (
	EvtBreak       = 1 // break detected
	EvtByte        = 2 // byte complete (Value=byte, Index=byte index)
	EvtFrameCommit = 3 // frame committed (Value=byte count)
	EvtError       = 4 // error raised (Value=error bits)
	EvtGapTimeout  = 5 // inter-byte gap expired (Index=bytes read)
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Timing capture ring buffer. Written from the bit interrupt, so it is
	// fixed size and never allocates.
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	timingEnabled  bool = true
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetTimingEnabled enables or disables event capture
func SetTimingEnabled(enabled bool) {
	timingEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTiming captures an event in the ring buffer. Safe to call from the
// bit interrupt.
func RecordTiming(eventType, value, index uint8, clock uint16) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Value:     value,
		Index:     index,
		Clock:     clock,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// SnapshotTimingRing returns the captured events oldest first.
func SnapshotTimingRing() []TimingEvent {
	var ring [TimingRingSize]TimingEvent
	var head uint8
	Critical(func() {
		ring = timingRing
		head = timingRingHead
	})

	events := make([]TimingEvent, 0, TimingRingSize)
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := ring[(head+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

// EventName returns the short display name of an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtBreak:
		return "BREAK"
	case EvtByte:
		return "BYTE"
	case EvtFrameCommit:
		return "COMMIT"
	case EvtError:
		return "ERROR"
	case EvtGapTimeout:
		return "GAP"
	default:
		return "UNKNOWN"
	}
}

// DumpTimingRing writes the captured events through the debug writer when
// debug output is enabled.
func DumpTimingRing() {
	if !debugEnabled || debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range SnapshotTimingRing() {
		debugPrintln("[TIMING] " + EventName(evt.EventType) +
			" clock=" + itoa(int(evt.Clock)) +
			" value=0x" + hex2(evt.Value) +
			" index=" + itoa(int(evt.Index)))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	Critical(func() {
		for i := range timingRing {
			timingRing[i] = TimingEvent{}
		}
		timingRingHead = 0
	})
}
