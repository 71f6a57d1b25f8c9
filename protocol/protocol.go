// Package protocol implements the report link from the decoder firmware to
// the host monitor: framed, CRC protected blocks over USB CDC carrying VLQ
// encoded reports.
package protocol

import "errors"

// Version is the firmware version sent in the identify report.
const Version = "0.3.0"

// Block layout: [len][seq][payload...][crc hi][crc lo][0x7E]. len counts
// the whole block; the CRC covers len, seq and payload.
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	// MessageDest is in the high nibble of every sequence byte; the low
	// nibble counts blocks.
	MessageDest     = 0x10
	MessageSeqMask  = 0x0F
	MessageSeqShift = 4

	// MessageMax is the encoder scratch size, several blocks between
	// flushes.
	MessageMax = 512
)

// Report message ids, the first VLQ of every payload.
const (
	MsgIdentify uint16 = iota
	MsgFrame
	MsgErrors
	MsgStats
	MsgLog
)

var (
	ErrBadCRC          = errors.New("report block CRC mismatch")
	ErrNotSynchronized = errors.New("report stream not synchronized")
	ErrUnknownMessage  = errors.New("unknown report message id")
	ErrPayloadTooLarge = errors.New("report payload exceeds block size")
)

func nextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
