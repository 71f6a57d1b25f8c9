//go:build js && wasm

// Command wasm exposes the report link decoder to the browser, for reading
// serial captures without the linmon tool.
package main

import (
	"encoding/hex"
	"strings"
	"syscall/js"

	"desklin/lin"
	"desklin/protocol"
)

func main() {
	js.Global().Set("desklinWasm", js.ValueOf(map[string]interface{}{
		"crc16":         js.FuncOf(crc16Wrapper),
		"decodeCapture": js.FuncOf(decodeCaptureWrapper),
		"checkFrame":    js.FuncOf(checkFrameWrapper),
		"version":       protocol.Version,
	}))

	// Keep the program running
	select {}
}

// crc16Wrapper calculates the block CRC
// Args: hexString (string)
// Returns: number (uint16)
func crc16Wrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(0)
	}
	data, err := decodeHex(args[0].String())
	if err != nil {
		return js.ValueOf(0)
	}
	return js.ValueOf(int(protocol.CRC16(data)))
}

// decodeCaptureWrapper decodes a recorded report stream
// Args: hexString (string)
// Returns: {reports: [...], blocks, badBlocks, resyncs, seqGaps, badReports, trailing, error}
func decodeCaptureWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing hex string argument")
	}
	data, err := decodeHex(args[0].String())
	if err != nil {
		return errorResult("invalid hex string: " + err.Error())
	}

	c := protocol.DecodeCapture(data)
	reports := make([]interface{}, 0, len(c.Reports))
	for _, r := range c.Reports {
		reports = append(reports, describeReport(r))
	}

	return js.ValueOf(map[string]interface{}{
		"reports":    reports,
		"blocks":     int(c.Stats.Blocks),
		"badBlocks":  int(c.Stats.BadBlocks),
		"resyncs":    int(c.Stats.Resyncs),
		"seqGaps":    int(c.Stats.SeqGaps),
		"badReports": int(c.Stats.BadReport),
		"trailing":   c.Trailing,
	})
}

// checkFrameWrapper validates raw frame bytes, protected identifier first
// Args: hexString (string), enhanced (bool)
// Returns: {id, valid, checksum, position}
func checkFrameWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing hex string argument")
	}
	data, err := decodeHex(args[0].String())
	if err != nil {
		return errorResult("invalid hex string: " + err.Error())
	}
	if len(data) == 0 || len(data) > lin.MaxBytes {
		return errorResult("frame must be 1 to 10 bytes")
	}

	version := lin.ChecksumClassic
	if len(args) > 1 && args[1].Truthy() {
		version = lin.ChecksumEnhanced
	}
	f := lin.NewFrame(version)
	for _, b := range data {
		f.Append(b)
	}
	return js.ValueOf(describeFrame(f))
}

func describeReport(r protocol.Report) map[string]interface{} {
	switch r := r.(type) {
	case protocol.IdentifyReport:
		return map[string]interface{}{
			"type":        "identify",
			"version":     r.Version,
			"baud":        int(r.Baud),
			"checksum":    r.Checksum.String(),
			"substituted": r.Substituted,
		}
	case protocol.FrameReport:
		m := describeFrame(r.Frame)
		m["type"] = "frame"
		return m
	case protocol.ErrorsReport:
		kinds := make([]interface{}, 0, 8)
		for _, k := range r.Flags.Kinds() {
			kinds = append(kinds, k.String())
		}
		return map[string]interface{}{
			"type":  "errors",
			"flags": int(r.Flags),
			"kinds": kinds,
		}
	case protocol.StatsReport:
		return map[string]interface{}{
			"type":       "stats",
			"frames":     int(r.Stats.Frames),
			"breaks":     int(r.Stats.Breaks),
			"generation": int(r.Stats.Generation),
		}
	case protocol.LogReport:
		return map[string]interface{}{
			"type": "log",
			"text": r.Text,
		}
	default:
		return map[string]interface{}{"type": "unknown"}
	}
}

func describeFrame(f lin.Frame) map[string]interface{} {
	m := map[string]interface{}{
		"id":    int(f.ID()),
		"bytes": f.String(),
		"valid": f.IsValid(),
	}
	if pos, ok := lin.DeskPosition(&f); ok {
		m["position"] = int(pos)
	}
	return m
}

// decodeHex accepts hex with optional spaces, as printed by linmon.
func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.ReplaceAll(s, " ", ""))
}

func errorResult(msg string) js.Value {
	return js.ValueOf(map[string]interface{}{"error": msg})
}
