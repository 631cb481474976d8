// Package chunkqueue implements the FIFO of timestamped PCM chunks that
// sits between the submit path (control thread, producer) and the audio
// callback (audio thread, consumer). The queue has no capacity limit: Push
// accepts every chunk, so its depth is set by how fast the producer pushes.
//
// Per the design notes in spec.md §9, a mutex-guarded deque is an explicitly
// sanctioned implementation for the single-producer/single-consumer
// hand-off, provided the producer only ever holds the lock for the
// microseconds it takes to append a chunk header — it never blocks on I/O
// while holding it, so the audio thread's brief wait for the lock cannot
// turn into an unbounded stall. See DESIGN.md for why this was chosen over
// a fully lock-free ring.
package chunkqueue

import "sync"

// Chunk is one queued PCM payload stamped with the server timestamp of its
// first frame.
type Chunk struct {
	ServerTimestampUs int64
	Audio             []byte
}

// entry is a chunk plus how many bytes of it have already been consumed
// from the head.
type entry struct {
	ts     int64
	audio  []byte
	offset int
}

// Queue is the SPSC chunk FIFO. Zero value is not usable; use New.
type Queue struct {
	sampleRate int
	frameSize  int

	mu      sync.Mutex
	entries []entry

	queuedDurationUs int64 // protected by mu
	cursorUs         int64 // protected by mu
	cursorRemainder  int64 // protected by mu; units of microseconds*sampleRate not yet credited
}

// New returns an empty queue for the given sample rate and frame size
// (channels * 2 bytes for 16-bit PCM).
func New(sampleRate, frameSize int) *Queue {
	return &Queue{sampleRate: sampleRate, frameSize: frameSize}
}

// durationUs returns the playback duration of n bytes of audio at the
// queue's configured format.
func (q *Queue) durationUs(nBytes int) int64 {
	frames := int64(nBytes / q.frameSize)
	return frames * 1_000_000 / int64(q.sampleRate)
}

// Push appends a chunk to the tail. Called only from the control thread.
func (q *Queue) Push(c Chunk) {
	q.mu.Lock()
	q.entries = append(q.entries, entry{ts: c.ServerTimestampUs, audio: c.Audio})
	q.queuedDurationUs += q.durationUs(len(c.Audio))
	q.mu.Unlock()
}

// Clear drains the queue and resets the cursor and duration tracking.
// Called from the control thread (explicit clear) or on re-anchor.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.entries = nil
	q.queuedDurationUs = 0
	q.cursorUs = 0
	q.cursorRemainder = 0
	q.mu.Unlock()
}

// SetCursor anchors the server-timeline cursor to tsUs, clearing any
// fractional remainder. Used when the first chunk schedules the stream.
func (q *Queue) SetCursor(tsUs int64) {
	q.mu.Lock()
	q.cursorUs = tsUs
	q.cursorRemainder = 0
	q.mu.Unlock()
}

// IsEmpty reports whether the queue currently holds no buffered audio.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries) == 0
}

// QueuedDurationUs returns the total buffered duration in microseconds.
func (q *Queue) QueuedDurationUs() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queuedDurationUs
}

// CursorUs returns the server timestamp of the next unread frame.
func (q *Queue) CursorUs() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursorUs
}

// advanceCursor advances the cursor by exactly frames frames, carrying the
// fractional remainder in integer arithmetic to avoid float drift. Must be
// called with q.mu held.
func (q *Queue) advanceCursor(frames int64) {
	if frames == 0 {
		return
	}
	total := q.cursorRemainder + frames*1_000_000
	q.cursorUs += total / int64(q.sampleRate)
	q.cursorRemainder = total % int64(q.sampleRate)
}

// PopFrames copies up to len(dst)/frameSize frames from the queue head into
// dst and returns the number of whole frames actually copied. If the queue
// underruns mid-read, the returned count is less than requested and the
// caller is responsible for silence-filling the remainder of dst. Called
// only from the audio callback.
func (q *Queue) PopFrames(dst []byte) (framesCopied int) {
	want := len(dst) / q.frameSize

	q.mu.Lock()
	defer q.mu.Unlock()

	written := 0
	for written < want && len(q.entries) > 0 {
		head := &q.entries[0]
		avail := (len(head.audio) - head.offset) / q.frameSize
		take := want - written
		if take > avail {
			take = avail
		}
		nBytes := take * q.frameSize
		copy(dst[written*q.frameSize:written*q.frameSize+nBytes], head.audio[head.offset:head.offset+nBytes])
		head.offset += nBytes
		written += take

		consumedDuration := q.durationUs(nBytes)
		q.queuedDurationUs -= consumedDuration

		if head.offset >= len(head.audio) {
			q.entries = q.entries[1:]
		}
	}

	q.advanceCursor(int64(written))
	return written
}

// DropFrames discards up to n frames from the queue head without copying
// them anywhere (used by the start gate's catch-up skip and by drop-event
// corrections). Returns the number of frames actually dropped.
func (q *Queue) DropFrames(n int) (dropped int) {
	if n <= 0 {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for dropped < n && len(q.entries) > 0 {
		head := &q.entries[0]
		avail := (len(head.audio) - head.offset) / q.frameSize
		take := n - dropped
		if take > avail {
			take = avail
		}
		nBytes := take * q.frameSize
		head.offset += nBytes
		dropped += take
		q.queuedDurationUs -= q.durationUs(nBytes)

		if head.offset >= len(head.audio) {
			q.entries = q.entries[1:]
		}
	}

	q.advanceCursor(int64(dropped))
	return dropped
}

// LastFrame returns the frameSize-byte subslice of buf holding frame
// frameIdx, without copying. Helper used by the audio callback's
// insert-event duplication logic; not queue state, but kept here since it
// operates on frame-sized slices the same way PopFrames does.
func LastFrame(buf []byte, frameSize, frameIdx int) []byte {
	start := frameIdx * frameSize
	return buf[start : start+frameSize]
}
