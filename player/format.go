package player

import "fmt"

// BlockSizeFrames is the fixed audio callback block size (spec §6).
const BlockSizeFrames = 2048

// bytesPerSample is fixed: 16-bit signed little-endian PCM (spec §3).
const bytesPerSample = 2

// Format describes the PCM stream once setFormat has been called. Immutable
// for the lifetime of a stream.
type Format struct {
	SampleRate int
	Channels   int
}

// FrameSize is channels * bytesPerSample (spec invariant I1).
func (f Format) FrameSize() int {
	return f.Channels * bytesPerSample
}

// Validate reports whether the format describes a usable stream.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidFormat, f.Channels)
	}
	return nil
}
