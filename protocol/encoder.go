package protocol

// Encoder frames reports into blocks. It runs on the firmware main loop;
// the caller flushes the output to USB between loop iterations.
type Encoder struct {
	output OutputBuffer
	seq    uint8
}

// NewEncoder returns an encoder writing blocks to output.
func NewEncoder(output OutputBuffer) *Encoder {
	return &Encoder{
		output: output,
		seq:    MessageDest,
	}
}

// EncodeBlock writes one block whose payload is produced by payload.
func (e *Encoder) EncodeBlock(payload func(output OutputBuffer)) {
	cursor := e.output.CurPosition()

	// Length placeholder and sequence
	e.output.Output([]byte{0, e.seq})

	payload(e.output)

	// Update length field
	changed := len(e.output.DataSince(cursor))
	e.output.Update(cursor+MessagePositionLen, uint8(changed+MessageTrailerSize))

	crc := CRC16(e.output.DataSince(cursor))
	e.output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})

	e.seq = nextSequence(e.seq)
}

// Send encodes r into one block.
func (e *Encoder) Send(r Report) {
	e.EncodeBlock(func(output OutputBuffer) {
		encodeReport(output, r)
	})
}

// Sequence returns the sequence byte of the next block.
func (e *Encoder) Sequence() uint8 {
	return e.seq
}

// Reset restarts the block sequence, e.g. after the host reconnected.
func (e *Encoder) Reset() {
	e.seq = MessageDest
}
