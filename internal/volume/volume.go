// Package volume implements the audio callback's final output stage: cubic
// volume scaling and mute, applied in-place to a 16-bit PCM buffer.
package volume

import (
	"encoding/binary"
	"math"
)

// CurveExponent is the volume-to-amplitude mapping exponent (spec I6):
// amplitude = (volume/100)^CurveExponent.
const CurveExponent = 3.0

const (
	maxInt16 = 32767
	minInt16 = -32768
)

// Amplitude returns the linear amplitude multiplier for a volume in [0,100].
func Amplitude(volumePercent int) float64 {
	return math.Pow(float64(volumePercent)/100.0, CurveExponent)
}

// Scale applies mute/volume to buf in place. muted forces silence regardless
// of volumePercent. volumePercent == 100 is a no-op fast path;
// volumePercent == 0 or muted zeroes the buffer without computing the curve.
func Scale(buf []int16, volumePercent int, muted bool) {
	if muted || volumePercent <= 0 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	if volumePercent >= 100 {
		return
	}

	amp := Amplitude(volumePercent)
	for i, s := range buf {
		v := math.Round(float64(s) * amp)
		if v > maxInt16 {
			v = maxInt16
		} else if v < minInt16 {
			v = minInt16
		}
		buf[i] = int16(v)
	}
}

// ScaleBytes applies mute/volume to buf in place, where buf holds
// interleaved 16-bit signed little-endian PCM samples (the wire format the
// audio callback operates on directly, avoiding an int16 copy on the
// steady-state path).
func ScaleBytes(buf []byte, volumePercent int, muted bool) {
	if muted || volumePercent <= 0 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	if volumePercent >= 100 {
		return
	}

	amp := Amplitude(volumePercent)
	for i := 0; i+1 < len(buf); i += 2 {
		s := int16(binary.LittleEndian.Uint16(buf[i : i+2]))
		v := math.Round(float64(s) * amp)
		if v > maxInt16 {
			v = maxInt16
		} else if v < minInt16 {
			v = minInt16
		}
		binary.LittleEndian.PutUint16(buf[i:i+2], uint16(int16(v)))
	}
}
