package player

import (
	"github.com/OHF-Voice/linux-voice-assistant/internal/chunkqueue"
	"github.com/OHF-Voice/linux-voice-assistant/internal/correction"
	"github.com/OHF-Voice/linux-voice-assistant/internal/volume"
)

// audioCallback is the real-time sound device callback (spec §4.5, C5). It
// runs on the audio thread, does no I/O, and never calls the
// serverToClient/clientToServer collaborators (spec §5). Its one heap
// allocation per call is the calibration snapshot published by cal.Append.
// It is wired as the StreamCallback passed to Device.OpenOutputStream in
// SetFormat.
func (p *Player) audioCallback(output []byte, timing Timing) {
	frameSize := p.format.FrameSize()
	sampleRate := int64(p.format.SampleRate)

	// Step A: calibration/position capture.
	if timing.HasDacTime {
		loopUs := p.loopNow()
		p.cal.Append(timing.OutputBufferDacUs, loopUs)
		p.lastKnownLoopPosition.Store(p.cal.LoopForDAC(timing.OutputBufferDacUs))

		if startLoop := p.scheduledStartLoop.Load(); startLoop != noScheduledStart {
			if p.scheduledStartDac.Load() == noScheduledStart {
				p.scheduledStartDac.Store(p.cal.DACForLoop(startLoop))
			}
		}
	}

	// Step B: device under/overflow is reported for this block; the safest
	// response is silence rather than audio built from a stale or partial
	// buffer, and a request that the control thread re-anchor on next submit.
	const faultMask = StatusOutputUnderflow | StatusOutputOverflow | StatusInputUnderflow | StatusInputOverflow
	if timing.Status&faultMask != 0 {
		p.clearRequested.Store(true)
		zero(output)
		return
	}

	state := p.State()
	if state == StateInitializing {
		zero(output)
		return
	}

	if state == StateWaitingForStart {
		if !p.passStartGate(timing, sampleRate) {
			zero(output)
			return
		}
		p.state.Store(int32(StatePlaying))
	}

	// Step D: fill the buffer from the chunk queue, honoring any active
	// drop/insert correction plan.
	plan := p.plan.Load()
	p.fillOutput(output, frameSize, *plan)

	// Step E: volume/mute, applied last, directly on the wire bytes.
	vol, muted := p.Volume()
	volume.ScaleBytes(output, vol, muted)
}

// passStartGate reports whether the scheduled start instant has been
// reached or passed as of this callback. If gated on DAC time and the start
// is late (and not suspiciously close to "now" at schedule time, see
// earlyStartSuspect), it drops the frames that have already been missed so
// playback resumes in sync rather than re-starting from the buffer head.
func (p *Player) passStartGate(timing Timing, sampleRate int64) bool {
	startDac := p.scheduledStartDac.Load()
	if startDac != noScheduledStart && timing.HasDacTime {
		lateUs := timing.OutputBufferDacUs - startDac
		if lateUs < 0 {
			return false
		}
		if lateUs > 0 && !p.earlyStartSuspect.Load() {
			framesLate := ceilDiv(lateUs*sampleRate, 1_000_000)
			p.queue.DropFrames(int(framesLate))
		}
		return true
	}

	startLoop := p.scheduledStartLoop.Load()
	return p.loopNow() >= startLoop
}

// fillOutput writes frames*frameSize bytes of PCM into output from the
// chunk queue, applying plan's drop/insert correction if active. Does not
// allocate; it is the only writer of insertCountdown/dropCountdown while the
// stream runs (SetFormat resets them before a new stream starts).
func (p *Player) fillOutput(output []byte, frameSize int, plan correction.Plan) {
	if plan.InsertEveryN == 0 {
		p.insertCountdown = 0
	}
	if plan.DropEveryN == 0 {
		p.dropCountdown = 0
	}

	switch {
	case plan.InsertEveryN > 0:
		p.fillWithInserts(output, frameSize, plan.InsertEveryN)
	case plan.DropEveryN > 0:
		p.fillWithDrops(output, frameSize, plan.DropEveryN)
	default:
		frames := len(output) / frameSize
		n := p.queue.PopFrames(output)
		if n > 0 {
			p.rememberLastFrame(output, frameSize, n-1)
		}
		if n < frames {
			zero(output[n*frameSize:])
		}
	}
}

// fillWithInserts fills output one segment at a time, duplicating the last
// emitted frame (without consuming an extra input frame) every everyN
// output frames.
func (p *Player) fillWithInserts(output []byte, frameSize, everyN int) {
	frames := len(output) / frameSize
	if p.insertCountdown <= 0 {
		p.insertCountdown = everyN
	}

	outPos := 0
	for outPos < frames {
		segment := p.insertCountdown
		if remaining := frames - outPos; segment > remaining {
			segment = remaining
		}
		if segment <= 0 {
			segment = 1
		}

		dst := output[outPos*frameSize : (outPos+segment)*frameSize]
		n := p.queue.PopFrames(dst)
		if n > 0 {
			p.rememberLastFrame(dst, frameSize, n-1)
		}
		p.insertCountdown -= segment

		if n < segment {
			zero(dst[n*frameSize:])
			zero(output[(outPos+segment)*frameSize:])
			return
		}
		outPos += segment

		if p.insertCountdown <= 0 {
			if outPos < frames && p.haveLastFrame {
				copy(output[outPos*frameSize:(outPos+1)*frameSize], p.lastFrame)
				outPos++
			}
			p.insertCountdown = everyN
		}
	}
}

// fillWithDrops fills output one segment at a time, discarding one extra
// input frame (without emitting it) before the next output frame every
// everyN output frames. A drop that falls due at the very end of output is
// not performed, just as fillWithInserts skips an insert there.
func (p *Player) fillWithDrops(output []byte, frameSize, everyN int) {
	frames := len(output) / frameSize
	if p.dropCountdown <= 0 {
		p.dropCountdown = everyN
	}

	outPos := 0
	for outPos < frames {
		segment := p.dropCountdown
		if remaining := frames - outPos; segment > remaining {
			segment = remaining
		}
		if segment <= 0 {
			segment = 1
		}

		dst := output[outPos*frameSize : (outPos+segment)*frameSize]
		n := p.queue.PopFrames(dst)
		if n > 0 {
			p.rememberLastFrame(dst, frameSize, n-1)
		}
		p.dropCountdown -= segment

		if n < segment {
			zero(dst[n*frameSize:])
			zero(output[(outPos+segment)*frameSize:])
			return
		}
		outPos += segment

		if p.dropCountdown <= 0 {
			if outPos < frames {
				p.queue.DropFrames(1)
			}
			p.dropCountdown = everyN
		}
	}
}

// rememberLastFrame saves the frame at frameIdx within buf as the frame to
// duplicate on the next insert event.
func (p *Player) rememberLastFrame(buf []byte, frameSize, frameIdx int) {
	copy(p.lastFrame, chunkqueue.LastFrame(buf, frameSize, frameIdx))
	p.haveLastFrame = true
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ceilDiv returns ceil(a/b) for non-negative a and positive b.
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
