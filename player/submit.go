package player

import (
	"log"

	"github.com/OHF-Voice/linux-voice-assistant/internal/chunkqueue"
)

// Submit ingests one PCM chunk from the control thread (spec §4.6, C6). It
// validates the payload, reconciles gaps/overlaps against the expected
// timeline, schedules the stream start on the first chunk, and feeds the
// continuous drift-correction engine while PLAYING. Invalid payloads are
// logged at WARN and dropped; the stream is otherwise unaffected.
func (p *Player) Submit(serverTimestampUs int64, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	if p.clearRequested.Load() {
		p.clearRequested.Store(false)
		p.clearLocked()
	}

	if !p.formatSet {
		log.Printf("[submit] WARN: %v", ErrNoFormat)
		return
	}
	if len(payload) == 0 {
		log.Printf("[submit] WARN: %v", ErrEmptyPayload)
		return
	}
	frameSize := p.format.FrameSize()
	if len(payload)%frameSize != 0 {
		log.Printf("[submit] WARN: %v (len=%d frame_size=%d)", ErrMisalignedPayload, len(payload), frameSize)
		return
	}

	chunk := chunkqueue.Chunk{ServerTimestampUs: serverTimestampUs, Audio: payload}

	if !p.haveFirstChunk {
		p.scheduleFirstChunkLocked(serverTimestampUs)
		p.queue.SetCursor(serverTimestampUs)
		p.pushChunkLocked(chunk, frameSize)
		p.maybeStartStreamLocked()
		return
	}

	switch p.State() {
	case StateWaitingForStart:
		p.rescheduleStartLocked()
	case StatePlaying:
		if p.evaluateCorrectionLocked() {
			// A re-anchor was triggered by this chunk's divergence; the
			// chunk itself is not enqueued. The next submit re-anchors.
			return
		}
	}

	chunk = p.reconcileLocked(chunk, frameSize)
	if len(chunk.Audio) > 0 {
		p.pushChunkLocked(chunk, frameSize)
	}
	p.maybeStartStreamLocked()
}

// pushChunkLocked enqueues chunk and advances expectedNextTsUs by its
// duration. Must be called with p.mu held.
func (p *Player) pushChunkLocked(chunk chunkqueue.Chunk, frameSize int) {
	p.queue.Push(chunk)
	durationUs := int64(len(chunk.Audio)/frameSize) * 1_000_000 / int64(p.format.SampleRate)
	p.expectedNextTsUs = chunk.ServerTimestampUs + durationUs
}

// scheduleFirstChunkLocked implements spec §4.6 "First chunk".
func (p *Player) scheduleFirstChunkLocked(serverTimestampUs int64) {
	loopStart := p.serverToClient(serverTimestampUs)
	p.scheduledStartLoop.Store(loopStart)
	p.updateScheduledStartDacLocked(loopStart)

	p.state.Store(int32(StateWaitingForStart))
	p.firstServerTsUs = serverTimestampUs
	p.haveFirstChunk = true

	now := p.loopNow()
	if loopStart-now <= EarlyStartThresholdUs {
		p.earlyStartSuspect.Store(true)
	}
}

// rescheduleStartLocked implements spec §4.6 "Subsequent chunks while
// WAITING_FOR_START".
func (p *Player) rescheduleStartLocked() {
	newStart := p.serverToClient(p.firstServerTsUs)
	old := p.scheduledStartLoop.Load()
	diff := newStart - old
	if diff < 0 {
		diff = -diff
	}
	if diff > StartUpdateThresholdUs {
		p.scheduledStartLoop.Store(newStart)
		p.updateScheduledStartDacLocked(newStart)
	}
}

// updateScheduledStartDacLocked estimates the DAC-time equivalent of a
// scheduled loop-time start if calibration data is available.
func (p *Player) updateScheduledStartDacLocked(loopStart int64) {
	if p.cal.HasSamples() {
		p.scheduledStartDac.Store(p.cal.DACForLoop(loopStart))
	} else {
		p.scheduledStartDac.Store(noScheduledStart)
	}
}

// evaluateCorrectionLocked implements spec §4.6 "While PLAYING" and feeds
// the correction scheduler. Returns true if a re-anchor was triggered.
func (p *Player) evaluateCorrectionLocked() bool {
	loopPos := p.lastKnownLoopPosition.Load()
	serverPos := p.clientToServer(loopPos)
	cursor := p.queue.CursorUs()
	errUs := float64(serverPos - cursor)

	plan, reanchor := p.scheduler.Evaluate(errUs, p.loopNow())
	if reanchor {
		log.Printf("[submit] INFO: sync error %.0fus exceeds re-anchor threshold, clearing", errUs)
		p.clearLocked()
		return true
	}
	p.plan.Store(&plan)
	return false
}

// reconcileLocked implements spec §4.6 "Gap/overlap reconciliation". It may
// push a synthetic silence chunk to fill a gap and returns the (possibly
// trimmed) chunk to enqueue for the caller's timestamp.
func (p *Player) reconcileLocked(chunk chunkqueue.Chunk, frameSize int) chunkqueue.Chunk {
	exp := p.expectedNextTsUs

	switch {
	case chunk.ServerTimestampUs > exp:
		gapUs := chunk.ServerTimestampUs - exp
		gapFrames := gapUs * int64(p.format.SampleRate) / 1_000_000
		if gapFrames > 0 {
			silence := make([]byte, gapFrames*int64(frameSize))
			p.pushChunkLocked(chunkqueue.Chunk{ServerTimestampUs: exp, Audio: silence}, frameSize)
		}
	case chunk.ServerTimestampUs < exp:
		overlapUs := exp - chunk.ServerTimestampUs
		overlapFrames := overlapUs * int64(p.format.SampleRate) / 1_000_000
		trimBytes := overlapFrames * int64(frameSize)
		if trimBytes < int64(len(chunk.Audio)) {
			chunk.Audio = chunk.Audio[trimBytes:]
			chunk.ServerTimestampUs = exp
		} else {
			chunk.Audio = nil
			chunk.ServerTimestampUs = exp
		}
	}

	return chunk
}

// maybeStartStreamLocked starts the output stream once the queue holds
// buffered audio, if it has not already been started since the last clear.
func (p *Player) maybeStartStreamLocked() {
	if p.streamStarted || p.queue.IsEmpty() {
		return
	}
	if err := p.stream.Start(); err != nil {
		log.Printf("[submit] ERROR: failed to start stream: %v", err)
		return
	}
	p.streamStarted = true
	log.Printf("[submit] stream started, buffered=%dus", p.queue.QueuedDurationUs())
}
