package padevice

import "unsafe"

// unsafeInt16ToBytes reinterprets s as a byte slice of the same underlying
// array, little-endian, matching the native int16 layout on every platform
// PortAudio itself supports. This is the one unsafe cast in the module: the
// alternative is a per-callback byte-by-byte copy on the real-time audio
// path, which spec invariant I5 forbids.
func unsafeInt16ToBytes(s []int16) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*2)
}
