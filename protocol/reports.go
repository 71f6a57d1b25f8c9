package protocol

import "desklin/lin"

// Report is one decoded message from the firmware.
type Report interface {
	MsgID() uint16
}

// IdentifyReport is sent once at startup and on request.
type IdentifyReport struct {
	Version     string
	Baud        uint32
	Checksum    lin.ChecksumVersion
	Substituted bool // requested baud rate was out of range
}

// FrameReport carries one received frame as read from the ring, not
// validated.
type FrameReport struct {
	Frame lin.Frame
}

// ErrorsReport carries the error flags taken since the previous report.
type ErrorsReport struct {
	Flags lin.ErrorFlags
}

// StatsReport carries the decoder counters.
type StatsReport struct {
	Stats lin.Stats
}

// LogReport is a line of firmware debug output.
type LogReport struct {
	Text string
}

func (IdentifyReport) MsgID() uint16 { return MsgIdentify }
func (FrameReport) MsgID() uint16    { return MsgFrame }
func (ErrorsReport) MsgID() uint16   { return MsgErrors }
func (StatsReport) MsgID() uint16    { return MsgStats }
func (LogReport) MsgID() uint16      { return MsgLog }

func encodeBool(output OutputBuffer, v bool) {
	if v {
		EncodeVLQUint(output, 1)
		return
	}
	EncodeVLQUint(output, 0)
}

// encodeReport writes the message id and arguments of r.
func encodeReport(output OutputBuffer, r Report) {
	EncodeVLQUint(output, uint32(r.MsgID()))
	switch r := r.(type) {
	case IdentifyReport:
		EncodeVLQString(output, r.Version)
		EncodeVLQUint(output, r.Baud)
		EncodeVLQUint(output, uint32(r.Checksum))
		encodeBool(output, r.Substituted)
	case FrameReport:
		EncodeVLQUint(output, uint32(r.Frame.ChecksumVersion()))
		EncodeVLQBytes(output, r.Frame.Bytes())
	case ErrorsReport:
		EncodeVLQUint(output, uint32(r.Flags))
	case StatsReport:
		EncodeVLQUint(output, r.Stats.Frames)
		EncodeVLQUint(output, r.Stats.Breaks)
		EncodeVLQUint(output, r.Stats.Generation)
	case LogReport:
		text := r.Text
		// Length prefix, id and the string must fit one block.
		if limit := MessagePayloadMax - 4; len(text) > limit {
			text = text[:limit]
		}
		EncodeVLQString(output, text)
	}
}

// decodeReport parses one payload.
func decodeReport(payload []byte) (Report, error) {
	id, err := DecodeVLQUint(&payload)
	if err != nil {
		return nil, err
	}

	// Arguments are read in order; the first error sticks.
	var argErr error
	next := func() uint32 {
		if argErr != nil {
			return 0
		}
		var v uint32
		v, argErr = DecodeVLQUint(&payload)
		return v
	}

	switch uint16(id) {
	case MsgIdentify:
		version, err := DecodeVLQString(&payload)
		if err != nil {
			return nil, err
		}
		r := IdentifyReport{Version: version}
		r.Baud = next()
		r.Checksum = lin.ChecksumVersion(next())
		r.Substituted = next() != 0
		return r, argErr

	case MsgFrame:
		f := lin.NewFrame(lin.ChecksumVersion(next()))
		if argErr != nil {
			return nil, argErr
		}
		data, err := DecodeVLQBytes(&payload)
		if err != nil {
			return nil, err
		}
		if len(data) > lin.MaxBytes {
			return nil, ErrPayloadTooLarge
		}
		for _, b := range data {
			f.Append(b)
		}
		return FrameReport{Frame: f}, nil

	case MsgErrors:
		r := ErrorsReport{Flags: lin.ErrorFlags(next())}
		return r, argErr

	case MsgStats:
		var r StatsReport
		r.Stats.Frames = next()
		r.Stats.Breaks = next()
		r.Stats.Generation = next()
		return r, argErr

	case MsgLog:
		text, err := DecodeVLQString(&payload)
		if err != nil {
			return nil, err
		}
		return LogReport{Text: text}, nil
	}
	return nil, ErrUnknownMessage
}
