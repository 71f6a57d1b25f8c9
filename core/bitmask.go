package core

// bitMasks maps a bit index to its single bit mask. A table lookup costs the
// same for every index, unlike a variable shift on small cores.
var bitMasks = [8]uint8{
	1 << 0,
	1 << 1,
	1 << 2,
	1 << 3,
	1 << 4,
	1 << 5,
	1 << 6,
	1 << 7,
}

// BitMask returns 1<<index for index in [0, 7]. Only the low three bits of
// index are used.
func BitMask(index uint8) uint8 {
	return bitMasks[index&7]
}
