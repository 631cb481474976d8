package player

// Device opens the output stream for a given format. setFormat calls this
// once; the player façade owns the returned Stream exclusively (spec §9,
// "ownership of the output stream").
//
// Production code wires a Device backed by github.com/gordonklaus/portaudio
// (see internal/padevice, used by cmd/satellite-demo). Defining the
// boundary as an interface here keeps the player package's core logic
// testable without a real sound card or CGo, the same way the teacher's
// audio.go defines the paStream interface purely for test doubles.
type Device interface {
	// OpenOutputStream opens an output-only stream at sampleRate/channels,
	// 16-bit signed little-endian PCM, delivering frames in blocks of
	// blockSizeFrames via callback. The returned Stream is not yet started.
	OpenOutputStream(sampleRate, channels, blockSizeFrames int, callback StreamCallback) (Stream, error)
}

// Stream is an open (but not necessarily started) output audio stream.
type Stream interface {
	Start() error
	// Stop halts the stream without releasing device resources; it may be
	// started again. Safe to call from the control thread while the
	// callback is in flight (spec §9).
	Stop() error
	Close() error
}

// StatusFlags mirrors the device-supplied callback status bitset (spec
// §4.5 Step B).
type StatusFlags uint32

const (
	StatusOutputUnderflow StatusFlags = 1 << iota
	StatusOutputOverflow
	StatusInputUnderflow
	StatusInputOverflow
)

// Timing carries the per-callback timing information the device supplies
// alongside the output buffer.
type Timing struct {
	// OutputBufferDacUs is the DAC time (microseconds) at which the first
	// sample written by this callback will reach the output. Meaningful
	// only when HasDacTime is set.
	OutputBufferDacUs int64
	// HasDacTime reports whether OutputBufferDacUs is meaningful.
	HasDacTime bool
	Status     StatusFlags
}

// StreamCallback fills output (frames*frameSize bytes of 16-bit signed
// little-endian PCM) and must never block or allocate on its steady-state
// path (spec invariant I5).
type StreamCallback func(output []byte, timing Timing)
