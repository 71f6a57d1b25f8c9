// Package monitor receives the decoder firmware's reports, validates the
// frames, keeps counters and forwards traffic to an optional publisher.
package monitor

import (
	"sync"
	"time"

	"github.com/ansel1/merry/v2"
	"github.com/golang/glog"

	"desklin/host/serial"
	"desklin/lin"
	"desklin/protocol"
)

// ErrNotConnected is returned by operations that need an open port.
var ErrNotConnected = merry.New("not connected to decoder")

// Counters summarizes the traffic seen since the last Clear.
type Counters struct {
	ValidFrames   uint32
	InvalidFrames uint32
	// Errors counts error reports per kind; one report can count several
	// kinds.
	Errors map[lin.ErrorFlags]uint32
	Logs   uint32
}

// Status is a snapshot of the monitor state.
type Status struct {
	Connected bool
	Identify  *protocol.IdentifyReport
	Firmware  lin.Stats // last stats report
	Counters  Counters
	Link      protocol.DecoderStats

	Position        uint16
	PositionValid   bool
	PositionUpdated time.Time
}

// ReceivedFrame is a frame with its validation outcome.
type ReceivedFrame struct {
	Frame lin.Frame
	Valid bool
	At    time.Time
}

// Monitor consumes reports from one decoder.
type Monitor struct {
	config    *Config
	publisher Publisher

	override    lin.ChecksumVersion
	useOverride bool

	mu       sync.Mutex
	reader   *protocol.Reader
	status   Status
	history  []ReceivedFrame // ring, next write at histNext
	histNext int
	histLen  int
	pending  lin.ErrorFlags // errors since the last TakeErrors
	now      func() time.Time
}

// New returns a monitor; publisher may be nil.
func New(config *Config, publisher Publisher) (*Monitor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	v, ok, err := config.ChecksumOverride()
	if err != nil {
		return nil, err
	}
	history := config.History
	if history <= 0 {
		history = defaultHistory
	}
	m := &Monitor{
		config:      config,
		publisher:   publisher,
		override:    v,
		useOverride: ok,
		history:     make([]ReceivedFrame, history),
		now:         time.Now,
	}
	m.status.Counters.Errors = make(map[lin.ErrorFlags]uint32)
	return m, nil
}

// Connect opens the configured port and starts decoding.
func (m *Monitor) Connect() error {
	port, err := serial.Open(&m.config.Serial)
	if err != nil {
		return err
	}
	m.Attach(port)
	glog.Infof("reading reports from %s", m.config.Serial.Device)
	return nil
}

// Attach starts decoding from an already open port.
func (m *Monitor) Attach(port serial.Port) {
	reader := protocol.NewReader(port, m.HandleReport)
	m.mu.Lock()
	m.reader = reader
	m.status.Connected = true
	m.mu.Unlock()
}

func (m *Monitor) currentReader() *protocol.Reader {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader
}

// Done is closed when the connection ends; nil when not connected.
func (m *Monitor) Done() <-chan struct{} {
	if r := m.currentReader(); r != nil {
		return r.Done()
	}
	return nil
}

// Err returns the error that ended the connection, if any.
func (m *Monitor) Err() error {
	r := m.currentReader()
	if r == nil {
		return ErrNotConnected
	}
	return r.Err()
}

// Close stops decoding and closes the port and publisher.
func (m *Monitor) Close() error {
	m.mu.Lock()
	reader := m.reader
	m.reader = nil
	m.status.Connected = false
	m.mu.Unlock()

	// The reader may be inside HandleReport; close it unlocked.
	var err error
	if reader != nil {
		err = reader.Close()
	}
	if m.publisher != nil {
		if perr := m.publisher.Close(); err == nil {
			err = perr
		}
	}
	return err
}

// HandleReport processes one report. It runs on the reader goroutine.
func (m *Monitor) HandleReport(r protocol.Report) {
	switch r := r.(type) {
	case protocol.IdentifyReport:
		m.handleIdentify(r)
	case protocol.FrameReport:
		m.handleFrame(r.Frame)
	case protocol.ErrorsReport:
		m.handleErrors(r.Flags)
	case protocol.StatsReport:
		m.mu.Lock()
		m.status.Firmware = r.Stats
		m.mu.Unlock()
	case protocol.LogReport:
		m.mu.Lock()
		m.status.Counters.Logs++
		m.mu.Unlock()
		glog.Infof("firmware: %s", r.Text)
	}
}

func (m *Monitor) handleIdentify(r protocol.IdentifyReport) {
	glog.Infof("decoder %s: %d baud, %s checksum", r.Version, r.Baud, r.Checksum)
	if r.Substituted {
		glog.Warningf("decoder baud rate out of range, running at %d", r.Baud)
	}
	m.mu.Lock()
	m.status.Identify = &r
	m.mu.Unlock()
}

func (m *Monitor) handleFrame(f lin.Frame) {
	if m.useOverride {
		f.SetChecksumVersion(m.override)
	}
	valid := f.IsValid()
	now := m.now()
	pos, hasPos := lin.DeskPosition(&f)

	m.mu.Lock()
	if valid {
		m.status.Counters.ValidFrames++
	} else {
		m.status.Counters.InvalidFrames++
	}
	m.history[m.histNext] = ReceivedFrame{Frame: f, Valid: valid, At: now}
	m.histNext = (m.histNext + 1) % len(m.history)
	if m.histLen < len(m.history) {
		m.histLen++
	}
	// Only a checked frame moves the desk.
	positionChanged := valid && hasPos && (!m.status.PositionValid || m.status.Position != pos)
	if valid && hasPos {
		m.status.Position = pos
		m.status.PositionValid = true
		m.status.PositionUpdated = now
	}
	m.mu.Unlock()

	if glog.V(2) {
		glog.Infof("frame %s valid=%t", f, valid)
	}
	if m.publisher != nil {
		m.publisher.PublishFrame(f, valid)
		if positionChanged {
			m.publisher.PublishPosition(pos)
		}
	}
}

func (m *Monitor) handleErrors(flags lin.ErrorFlags) {
	if flags == 0 {
		return
	}
	m.mu.Lock()
	for _, k := range flags.Kinds() {
		m.status.Counters.Errors[k]++
	}
	m.pending |= flags
	m.mu.Unlock()

	glog.Warningf("decoder errors: %s", flags)
	if m.publisher != nil {
		m.publisher.PublishErrors(flags)
	}
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() Status {
	// The reader calls into the monitor with its own lock held, so its
	// stats are read without holding m.mu.
	var link protocol.DecoderStats
	if r := m.currentReader(); r != nil {
		link = r.Stats()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status
	st.Link = link
	st.Counters.Errors = make(map[lin.ErrorFlags]uint32, len(m.status.Counters.Errors))
	for k, v := range m.status.Counters.Errors {
		st.Counters.Errors[k] = v
	}
	if m.status.Identify != nil {
		id := *m.status.Identify
		st.Identify = &id
	}
	return st
}

// Position returns the last desk position from a valid frame.
func (m *Monitor) Position() (uint16, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.Position, m.status.PositionValid
}

// Recent returns up to n of the most recent frames, oldest first.
func (m *Monitor) Recent(n int) []ReceivedFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > m.histLen {
		n = m.histLen
	}
	out := make([]ReceivedFrame, 0, n)
	start := m.histNext - n
	if start < 0 {
		start += len(m.history)
	}
	for i := 0; i < n; i++ {
		out = append(out, m.history[(start+i)%len(m.history)])
	}
	return out
}

// TakeErrors returns the error kinds reported since the last call and
// clears them.
func (m *Monitor) TakeErrors() lin.ErrorFlags {
	m.mu.Lock()
	defer m.mu.Unlock()
	flags := m.pending
	m.pending = 0
	return flags
}

// Clear resets counters and history. The desk position is kept.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Counters = Counters{Errors: make(map[lin.ErrorFlags]uint32)}
	m.histNext = 0
	m.histLen = 0
	m.pending = 0
}
