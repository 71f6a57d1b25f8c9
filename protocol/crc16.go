package protocol

// Block checksum: CRC-16/MCRF4XX, the reflected CCITT polynomial seeded with
// 0xFFFF and no final XOR. Sent high byte first.
const crcSeed = 0xFFFF

// crcUpdate folds one byte into crc. Table free.
func crcUpdate(crc uint16, b byte) uint16 {
	b ^= uint8(crc)
	b ^= b << 4
	w := uint16(b)
	return (w<<8 | crc>>8) ^ w>>4 ^ w<<3
}

// CRC16 returns the block checksum of data.
func CRC16(data []byte) uint16 {
	crc := uint16(crcSeed)
	for _, b := range data {
		crc = crcUpdate(crc, b)
	}
	return crc
}
