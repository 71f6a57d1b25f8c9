package protocol

// Handler receives decoded reports.
type Handler func(r Report)

// DecoderStats counts what the decoder saw on the link.
type DecoderStats struct {
	Blocks    uint32 // blocks with a good CRC
	BadBlocks uint32 // length, trailer or CRC errors
	Resyncs   uint32 // times the decoder regained block sync
	SeqGaps   uint32 // blocks missing from the sequence
	BadReport uint32 // blocks whose payload did not parse
}

// Decoder splits a byte stream into blocks and reports. It resynchronizes
// on the trailing sync byte after any framing error.
type Decoder struct {
	handler      Handler
	synchronized bool
	haveSeq      bool
	expectedSeq  uint8
	stats        DecoderStats
}

// NewDecoder returns a decoder passing reports to handler.
func NewDecoder(handler Handler) *Decoder {
	return &Decoder{
		handler:      handler,
		synchronized: true,
	}
}

// Receive processes the buffered input and pops every byte it consumed.
// An incomplete block at the end is left for the next call.
func (d *Decoder) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !d.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			d.synchronized = true
			d.stats.Resyncs++
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.desync()
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.desync()
			continue
		}

		// Wait for full block
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.desync()
			continue
		}

		blockCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if blockCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.desync()
			continue
		}

		payload := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]

		d.stats.Blocks++
		d.checkSequence(seq)
		d.dispatch(payload)
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// Stats returns the link counters.
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

// Synchronized reports whether the decoder is in block sync.
func (d *Decoder) Synchronized() bool {
	return d.synchronized
}

// Reset forgets the sequence and any sync loss, e.g. after reopening the
// port.
func (d *Decoder) Reset() {
	d.synchronized = true
	d.haveSeq = false
}

func (d *Decoder) desync() {
	d.synchronized = false
	d.stats.BadBlocks++
}

func (d *Decoder) checkSequence(seq uint8) {
	if d.haveSeq && seq != d.expectedSeq {
		// A firmware restart starts over at MessageDest and is not a gap.
		if seq != MessageDest {
			d.stats.SeqGaps += uint32((seq - d.expectedSeq) & MessageSeqMask)
		}
	}
	d.haveSeq = true
	d.expectedSeq = nextSequence(seq)
}

func (d *Decoder) dispatch(payload []byte) {
	r, err := decodeReport(payload)
	if err != nil {
		d.stats.BadReport++
		return
	}
	if d.handler != nil {
		d.handler(r)
	}
}
