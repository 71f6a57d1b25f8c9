package protocol

// Capture is a recorded report stream decoded in one pass.
type Capture struct {
	Reports []Report
	Stats   DecoderStats
	// Trailing counts bytes of an incomplete block at the end.
	Trailing int
}

// DecodeCapture decodes a recorded report stream, for example a serial
// dump pasted into the shell or the browser tool.
func DecodeCapture(data []byte) Capture {
	var c Capture
	d := NewDecoder(func(r Report) {
		c.Reports = append(c.Reports, r)
	})
	input := NewSliceInputBuffer(data)
	d.Receive(input)
	c.Stats = d.Stats()
	c.Trailing = input.Available()
	return c
}
