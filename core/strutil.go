package core

// Lightweight formatting for firmware builds where pulling in fmt costs
// more flash than the rest of the decoder.

const hexDigits = "0123456789ABCDEF"

// itoa converts an integer to a string
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// hex2 formats a byte as two upper case hex digits
func hex2(b uint8) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0F]})
}

// Utoa is the exported form of utoa for target code
func Utoa(n uint32) string {
	return utoa(n)
}
