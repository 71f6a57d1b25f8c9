package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desklin/lin"
)

type collector struct {
	reports []Report
}

func (c *collector) handle(r Report) {
	c.reports = append(c.reports, r)
}

func encodeAll(reports ...Report) []byte {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	for _, r := range reports {
		enc.Send(r)
	}
	return append([]byte(nil), out.Result()...)
}

func sampleReports() []Report {
	return []Report{
		IdentifyReport{Version: Version, Baud: 19200, Checksum: lin.ChecksumClassic},
		FrameReport{Frame: lin.BuildFrame(lin.ChecksumClassic, 0x12, 0x10, 0x00)},
		ErrorsReport{Flags: lin.SyncByteError | lin.BufferOverrun},
		StatsReport{Stats: lin.Stats{Frames: 7, Breaks: 9, Generation: 100000}},
		LogReport{Text: "baud out of range"},
	}
}

func TestEncoderBlockLayout(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	enc.Send(ErrorsReport{Flags: lin.StartBitError})

	block := out.Result()
	require.Len(t, block, 7)
	assert.Equal(t, byte(7), block[MessagePositionLen])
	assert.Equal(t, byte(MessageDest), block[MessagePositionSeq])
	assert.Equal(t, []byte{byte(MsgErrors), byte(lin.StartBitError)}, block[2:4])
	crc := CRC16(block[:4])
	assert.Equal(t, []byte{byte(crc >> 8), byte(crc), MessageValueSync}, block[4:])
	assert.Equal(t, uint8(MessageDest+1), enc.Sequence())
}

func TestEncoderSequenceWraps(t *testing.T) {
	enc := NewEncoder(NewScratchOutput())
	for i := 0; i < 16; i++ {
		enc.Send(ErrorsReport{})
	}
	assert.Equal(t, uint8(MessageDest), enc.Sequence())

	enc.Send(ErrorsReport{})
	enc.Reset()
	assert.Equal(t, uint8(MessageDest), enc.Sequence())
}

func TestDecodeReports(t *testing.T) {
	want := sampleReports()
	var c collector
	dec := NewDecoder(c.handle)

	in := NewSliceInputBuffer(encodeAll(want...))
	dec.Receive(in)

	assert.Equal(t, 0, in.Available())
	assert.Equal(t, want, c.reports)
	assert.Equal(t, DecoderStats{Blocks: uint32(len(want))}, dec.Stats())

	f := c.reports[1].(FrameReport).Frame
	assert.True(t, f.IsValid())
}

func TestDecodeSplitDelivery(t *testing.T) {
	stream := encodeAll(sampleReports()...)
	var c collector
	dec := NewDecoder(c.handle)
	fifo := NewFifoBuffer(MessageMax)

	// One byte at a time leaves partial blocks buffered between calls.
	for _, b := range stream {
		fifo.Write([]byte{b})
		dec.Receive(fifo)
	}
	assert.Len(t, c.reports, len(sampleReports()))
	assert.Zero(t, fifo.Available())
}

func TestDecodeResyncAfterGarbage(t *testing.T) {
	good := encodeAll(FrameReport{Frame: lin.BuildFrame(lin.ChecksumClassic, 0x12, 0x10, 0x00)})
	stream := append([]byte{0x03, 0xFF, 0x42, MessageValueSync}, good...)

	var c collector
	dec := NewDecoder(c.handle)
	dec.Receive(NewSliceInputBuffer(stream))

	require.Len(t, c.reports, 1)
	assert.True(t, dec.Synchronized())
	st := dec.Stats()
	assert.Equal(t, uint32(1), st.BadBlocks)
	assert.Equal(t, uint32(1), st.Resyncs)
}

func TestDecodeBadCRC(t *testing.T) {
	stream := encodeAll(ErrorsReport{Flags: lin.StopBitError}, ErrorsReport{Flags: lin.FrameTooLong})
	stream[2] ^= 0x01 // first block payload

	var c collector
	dec := NewDecoder(c.handle)
	dec.Receive(NewSliceInputBuffer(stream))

	require.Len(t, c.reports, 1)
	assert.Equal(t, ErrorsReport{Flags: lin.FrameTooLong}, c.reports[0])
	assert.Equal(t, uint32(1), dec.Stats().BadBlocks)
	// The dropped block leaves a hole in the sequence only if it was seen
	// before; here the first good block sets the baseline.
	assert.Equal(t, uint32(0), dec.Stats().SeqGaps)
}

func TestDecodeSequenceGap(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	var blocks [][]byte
	for i := 0; i < 4; i++ {
		cursor := out.CurPosition()
		enc.Send(ErrorsReport{Flags: lin.ErrorFlags(i)})
		blocks = append(blocks, append([]byte(nil), out.DataSince(cursor)...))
	}

	var c collector
	dec := NewDecoder(c.handle)
	dec.Receive(NewSliceInputBuffer(blocks[0]))
	dec.Receive(NewSliceInputBuffer(blocks[3]))
	assert.Equal(t, uint32(2), dec.Stats().SeqGaps)

	// A restarted firmware begins at MessageDest again.
	restart := encodeAll(ErrorsReport{})
	dec.Receive(NewSliceInputBuffer(restart))
	assert.Equal(t, uint32(2), dec.Stats().SeqGaps)
	assert.Len(t, c.reports, 3)
}

func TestDecodeBadReports(t *testing.T) {
	out := NewScratchOutput()
	enc := NewEncoder(out)
	enc.EncodeBlock(func(o OutputBuffer) { EncodeVLQUint(o, 99) })
	enc.EncodeBlock(func(o OutputBuffer) {
		EncodeVLQUint(o, uint32(MsgFrame))
		EncodeVLQUint(o, 0)
		EncodeVLQBytes(o, make([]byte, lin.MaxBytes+1))
	})
	enc.EncodeBlock(func(o OutputBuffer) { EncodeVLQUint(o, uint32(MsgStats)) })

	var c collector
	dec := NewDecoder(c.handle)
	dec.Receive(NewSliceInputBuffer(out.Result()))

	assert.Empty(t, c.reports)
	assert.Equal(t, DecoderStats{Blocks: 3, BadReport: 3}, dec.Stats())
}

func TestDecodeInvalidLength(t *testing.T) {
	var c collector
	dec := NewDecoder(c.handle)
	dec.Receive(NewSliceInputBuffer([]byte{MessageLengthMax + 1, MessageDest, 0, 0, 0}))
	assert.False(t, dec.Synchronized())

	dec.Reset()
	assert.True(t, dec.Synchronized())
}

func TestLogReportTruncated(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	var c collector
	dec := NewDecoder(c.handle)
	dec.Receive(NewSliceInputBuffer(encodeAll(LogReport{Text: string(long)})))

	require.Len(t, c.reports, 1)
	text := c.reports[0].(LogReport).Text
	assert.Len(t, text, MessagePayloadMax-4)
}
