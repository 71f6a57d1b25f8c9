package lin

// PositionFrameID is the protected identifier of the lift position sensor
// frame.
const PositionFrameID = 0x92

// DeskPosition extracts the lift position from a sensor frame: two data
// bytes, low byte first. It reports false for any other frame or one too
// short to carry a position. The frame is not validated here.
func DeskPosition(f *Frame) (uint16, bool) {
	if f.ProtectedID() != PositionFrameID || f.Len() < 3 {
		return 0, false
	}
	return uint16(f.Byte(1)) | uint16(f.Byte(2))<<8, true
}
