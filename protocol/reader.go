//go:build !tinygo

package protocol

import (
	"errors"
	"io"
	"sync"
	"time"
)

// readRetryDelay is the pause after a transient read error.
const readRetryDelay = 10 * time.Millisecond

// Reader decodes reports from a serial port on a background goroutine and
// passes them to a handler.
type Reader struct {
	port    io.ReadCloser
	fifo    *FifoBuffer
	decoder *Decoder

	mu       sync.Mutex // guards decoder state against Stats, and err
	err      error
	stopChan chan struct{}
	doneChan chan struct{}
	once     sync.Once
}

// NewReader starts reading port. handler runs on the reader goroutine.
func NewReader(port io.ReadCloser, handler Handler) *Reader {
	r := &Reader{
		port:     port,
		fifo:     NewFifoBuffer(MessageMax),
		decoder:  NewDecoder(handler),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go r.readLoop()
	return r
}

// Done is closed when the read loop exits.
func (r *Reader) Done() <-chan struct{} {
	return r.doneChan
}

// Err returns the error that ended the read loop, nil for end of stream or
// Close.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Stats returns the decoder link counters.
func (r *Reader) Stats() DecoderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decoder.Stats()
}

// Close stops the read loop and closes the port.
func (r *Reader) Close() error {
	var err error
	r.once.Do(func() {
		close(r.stopChan)
		// Closing the port unblocks a pending Read.
		err = r.port.Close()
		<-r.doneChan
	})
	return err
}

func (r *Reader) stopped() bool {
	select {
	case <-r.stopChan:
		return true
	default:
		return false
	}
}

func (r *Reader) readLoop() {
	defer close(r.doneChan)

	buffer := make([]byte, 256)
	for !r.stopped() {
		n, err := r.port.Read(buffer)
		if n > 0 {
			r.feed(buffer[:n])
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || r.stopped() {
			return
		}
		if !isTransient(err) {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
			return
		}
		time.Sleep(readRetryDelay)
	}
}

// feed queues data and decodes what is complete. Data that does not fit
// the fifo waits for the next round.
func (r *Reader) feed(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(data) > 0 {
		n := r.fifo.Write(data)
		data = data[n:]
		r.decoder.Receive(r.fifo)
		if n == 0 && len(data) > 0 {
			// Full of garbage with no block in it.
			r.fifo.Reset()
		}
	}
}

type temporary interface {
	Temporary() bool
}

func isTransient(err error) bool {
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}
