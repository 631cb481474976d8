package player

import "sync"

// fakeDevice and fakeStream let tests drive the callback directly without a
// real sound card, the same way the teacher's audio_test.go exercises
// audio.go through a mockPAStream.
type fakeDevice struct {
	mu      sync.Mutex
	opened  *fakeStream
	openErr error
}

func (d *fakeDevice) OpenOutputStream(sampleRate, channels, blockSizeFrames int, callback StreamCallback) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeStream{
		sampleRate:      sampleRate,
		channels:        channels,
		blockSizeFrames: blockSizeFrames,
		callback:        callback,
	}
	d.mu.Lock()
	d.opened = s
	d.mu.Unlock()
	return s, nil
}

type fakeStream struct {
	sampleRate      int
	channels        int
	blockSizeFrames int
	callback        StreamCallback

	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	s.stopped = false
	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// deliver invokes the stream's registered callback directly, simulating one
// audio-thread invocation. frames is the block size in frames.
func (s *fakeStream) deliver(frames int, timing Timing) []byte {
	frameSize := s.channels * 2
	buf := make([]byte, frames*frameSize)
	s.callback(buf, timing)
	return buf
}

// identityClock provides loopNow/serverToClient/clientToServer for tests
// where the server and local clocks are assumed already aligned (offset 0).
func identityClock(now *int64) (loopNow func() int64, serverToClient ServerToClient, clientToServer ClientToServer) {
	loopNow = func() int64 { return *now }
	serverToClient = func(serverUs int64) int64 { return serverUs }
	clientToServer = func(clientUs int64) int64 { return clientUs }
	return
}

func newTestPlayer(now *int64) (*Player, *fakeDevice) {
	dev := &fakeDevice{}
	loopNow, s2c, c2s := identityClock(now)
	p := New(loopNow, s2c, c2s, nil, dev)
	return p, dev
}

func int16Buf(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(uint16(s))
		buf[i*2+1] = byte(uint16(s) >> 8)
	}
	return buf
}

func makeTone(frames int, channels int, value int16) []byte {
	buf := make([]byte, frames*channels*2)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			off := (f*channels + c) * 2
			buf[off] = byte(uint16(value))
			buf[off+1] = byte(uint16(value) >> 8)
		}
	}
	return buf
}
