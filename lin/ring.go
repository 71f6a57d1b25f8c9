package lin

// RingCapacity is the number of received frames held for the consumer.
const RingCapacity = 8

// ringSlots has one spare slot: the slot at head is always the one being
// filled by the interrupt, so RingCapacity committed frames stay readable.
const ringSlots = RingCapacity + 1

// FrameRing is a single producer, single consumer queue of frames. The
// interrupt fills the slot at head and commits it; the consumer copies the
// slot at tail. head == tail means empty. When a commit catches up with
// tail, the oldest frame is evicted instead of blocking the producer.
//
// The ring does no synchronization itself. The producer side must run in
// the interrupt and the consumer side with interrupts masked; Processor
// handles both.
type FrameRing struct {
	slots [ringSlots]Frame
	head  uint8 // next slot to fill, producer owned
	tail  uint8 // next slot to read
}

func nextSlot(i uint8) uint8 {
	if i++; i >= ringSlots {
		return 0
	}
	return i
}

// Reset empties the ring and sets the checksum version stamped on every
// slot.
func (r *FrameRing) Reset(v ChecksumVersion) {
	for i := range r.slots {
		r.slots[i] = NewFrame(v)
	}
	r.head = 0
	r.tail = 0
}

// WriteSlot returns the slot being filled. Producer only.
func (r *FrameRing) WriteSlot() *Frame {
	return &r.slots[r.head]
}

// Commit publishes the write slot. It reports true when the ring was full
// and the oldest frame was dropped to make room. Producer only.
func (r *FrameRing) Commit() (overrun bool) {
	r.head = nextSlot(r.head)
	if r.head == r.tail {
		r.tail = nextSlot(r.tail)
		return true
	}
	return false
}

// TryRead copies the oldest frame into out and removes it. It returns false
// and leaves out untouched when the ring is empty. Consumer only.
func (r *FrameRing) TryRead(out *Frame) bool {
	if r.tail == r.head {
		return false
	}
	*out = r.slots[r.tail]
	r.tail = nextSlot(r.tail)
	return true
}

// Len returns the number of committed frames waiting.
func (r *FrameRing) Len() int {
	if r.head >= r.tail {
		return int(r.head - r.tail)
	}
	return ringSlots - int(r.tail) + int(r.head)
}

// IsEmpty returns true if no committed frame is waiting.
func (r *FrameRing) IsEmpty() bool {
	return r.head == r.tail
}
