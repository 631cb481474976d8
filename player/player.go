// Package player implements the time-synchronized PCM audio player core of
// a multi-room voice-assistant endpoint. It receives PCM chunks stamped
// with a server timestamp, schedules their first sample for the correct
// wall-clock moment on the local DAC, and continuously steers playback back
// onto the server timeline as clocks drift.
//
// Two concurrent contexts touch a Player: the control thread, which owns
// Submit/SetFormat/Clear/SetVolume/Stop and the injected time-conversion
// functions, and the audio thread, which is the platform's real-time sound
// device callback. State shared between the two is held in typed atomics
// and in the chunk queue, which guards itself with its own mutex.
package player

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/OHF-Voice/linux-voice-assistant/internal/calibration"
	"github.com/OHF-Voice/linux-voice-assistant/internal/chunkqueue"
	"github.com/OHF-Voice/linux-voice-assistant/internal/correction"
)

// State is the playback state machine (spec §3, §4.5).
type State int32

const (
	StateInitializing State = iota
	StateWaitingForStart
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateWaitingForStart:
		return "WAITING_FOR_START"
	case StatePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// noScheduledStart marks scheduledStartLoop/scheduledStartDac as unset.
const noScheduledStart = math.MinInt64

// EarlyStartThresholdUs and StartUpdateThresholdUs are numeric constants
// from spec.md §6, bit-exact.
const (
	EarlyStartThresholdUs = 700_000
	StartUpdateThresholdUs = 5_000
)

// ServerToClient converts a server-clock instant to the local loop-time
// equivalent. ClientToServer is its inverse. Both are supplied by the
// clock-sync handshake collaborator (out of scope for this package) and
// MUST be called only from the control thread (spec §5).
type ServerToClient func(serverUs int64) int64
type ClientToServer func(clientUs int64) int64

// Player is the time-synchronized PCM audio player core. Zero value is not
// usable; construct with New.
type Player struct {
	loopNow        func() int64
	serverToClient ServerToClient
	clientToServer ClientToServer
	deviceID       *string
	device         Device

	// Control-thread fields, guarded by mu. The audio callback reads only
	// format, which SetFormat sets before the stream is started.
	mu               sync.Mutex
	format           Format
	formatSet        bool
	stream           Stream
	streamStarted    bool
	closed           bool
	scheduler        *correction.Scheduler
	expectedNextTsUs int64
	firstServerTsUs  int64
	haveFirstChunk   bool

	// Shared state: written by control, read by audio (or vice versa).
	// Each is a single machine word or an immutable pointer swap, accessed
	// with atomics so neither side blocks the other (spec §5).
	state              atomic.Int32
	volume             atomic.Int32 // 0..100
	muted              atomic.Bool
	clearRequested     atomic.Bool
	earlyStartSuspect  atomic.Bool
	scheduledStartLoop atomic.Int64
	scheduledStartDac  atomic.Int64
	// lastKnownLoopPosition is the loop-time instant (µs) the calibration ring
	// estimates the DAC is currently emitting, refreshed every audio
	// callback. It is deliberately NOT converted to server time by the
	// audio thread: clientToServer is a control-thread-only collaborator
	// call (spec §5), so that half of the composition happens in
	// evaluateCorrectionLocked on the next submit instead.
	lastKnownLoopPosition atomic.Int64
	plan                  atomic.Pointer[correction.Plan]

	queue *chunkqueue.Queue
	cal   calibration.Ring

	// insertCountdown/dropCountdown and the last-frame copy are written by
	// the audio callback while the stream runs (spec §4.5 Step D); the
	// control thread touches them only in SetFormat, before a new stream
	// is started.
	insertCountdown int
	dropCountdown   int
	haveLastFrame   bool
	lastFrame       []byte
}

// New constructs a dormant Player bound to loopNow (the control-thread
// monotonic clock reader), the two time-conversion callables, and an
// optional device identifier. The player opens no output stream until
// SetFormat is called.
func New(loopNow func() int64, serverToClient ServerToClient, clientToServer ClientToServer, deviceID *string, device Device) *Player {
	p := &Player{
		loopNow:        loopNow,
		serverToClient: serverToClient,
		clientToServer: clientToServer,
		deviceID:       deviceID,
		device:         device,
	}
	p.state.Store(int32(StateInitializing))
	p.volume.Store(100)
	p.scheduledStartLoop.Store(noScheduledStart)
	p.scheduledStartDac.Store(noScheduledStart)
	p.plan.Store(&correction.Plan{})
	return p
}

// State returns the current playback state.
func (p *Player) State() State {
	return State(p.state.Load())
}

// SetFormat opens the output stream with the given sample rate and channel
// count (16-bit signed little-endian PCM, spec §6). Any existing stream is
// closed first and all first-chunk scheduling state is reset.
func (p *Player) SetFormat(sampleRate, channels int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	fmtDesc := Format{SampleRate: sampleRate, Channels: channels}
	if err := fmtDesc.Validate(); err != nil {
		return err
	}

	if p.stream != nil {
		p.stream.Stop()
		p.stream.Close()
		p.stream = nil
	}

	stream, err := p.device.OpenOutputStream(sampleRate, channels, BlockSizeFrames, p.audioCallback)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceOpen, err)
	}

	p.format = fmtDesc
	p.formatSet = true
	p.stream = stream
	p.queue = chunkqueue.New(sampleRate, fmtDesc.FrameSize())
	p.scheduler = correction.New(sampleRate)
	p.lastFrame = make([]byte, fmtDesc.FrameSize())
	p.haveLastFrame = false
	p.insertCountdown = 0
	p.dropCountdown = 0
	p.resetScheduleLocked()

	log.Printf("[player] format set: %d Hz, %d ch", sampleRate, channels)
	return nil
}

// resetScheduleLocked resets every first-chunk-related and playback-state
// field except format and device binding. Must be called with p.mu held.
func (p *Player) resetScheduleLocked() {
	p.expectedNextTsUs = 0
	p.firstServerTsUs = 0
	p.haveFirstChunk = false
	p.streamStarted = false
	p.state.Store(int32(StateInitializing))
	p.scheduledStartLoop.Store(noScheduledStart)
	p.scheduledStartDac.Store(noScheduledStart)
	p.lastKnownLoopPosition.Store(0)
	p.earlyStartSuspect.Store(false)
	p.clearRequested.Store(false)
	p.plan.Store(&correction.Plan{})
	if p.scheduler != nil {
		p.scheduler.Reset()
	}
	if p.queue != nil {
		p.queue.Clear()
	}
	p.cal = calibration.Ring{}
}

// Clear drains the queue, resets the schedule, and stops (but does not
// close) the stream. Format and device binding survive. Idempotent (P8).
func (p *Player) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
}

func (p *Player) clearLocked() {
	if p.stream != nil {
		p.stream.Stop()
	}
	p.resetScheduleLocked()
}

// Stop closes the stream permanently. Idempotent; further Submit calls are
// no-ops.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.stream != nil {
		p.stream.Stop()
		p.stream.Close()
		p.stream = nil
	}
	log.Println("[player] stopped")
}

// SetVolume clamps v to [0,100] and stores it along with mute state. Takes
// effect on the next audio callback invocation.
func (p *Player) SetVolume(v int, muted bool) {
	if v < 0 {
		v = 0
	} else if v > 100 {
		v = 100
	}
	p.volume.Store(int32(v))
	p.muted.Store(muted)
}

// Volume returns the current volume (0-100) and mute flag.
func (p *Player) Volume() (int, bool) {
	return int(p.volume.Load()), p.muted.Load()
}

// IsPlaying reports whether the player is actively rendering audio (used by
// higher layers to drive MediaPlayer PLAYING/IDLE transitions; spec §7).
func (p *Player) IsPlaying() bool {
	return p.State() == StatePlaying
}

// Metrics is a diagnostic snapshot, not part of the core external interface,
// supplementing the spec per the teacher's stats-logging convention
// (server/metrics.go's RunMetrics). Safe to call from either thread.
type Metrics struct {
	State             State
	QueuedDurationUs  int64
	FilteredOffsetUs  float64
	InsertEveryNFrame int
	DropEveryNFrame   int
}

// Metrics returns a snapshot of current player state for logging/telemetry.
func (p *Player) Metrics() Metrics {
	p.mu.Lock()
	var offset float64
	if p.scheduler != nil {
		offset = p.scheduler.Offset()
	}
	q := p.queue
	p.mu.Unlock()

	plan := p.plan.Load()
	var queued int64
	if q != nil {
		queued = q.QueuedDurationUs()
	}
	return Metrics{
		State:             p.State(),
		QueuedDurationUs:  queued,
		FilteredOffsetUs:  offset,
		InsertEveryNFrame: plan.InsertEveryN,
		DropEveryNFrame:   plan.DropEveryN,
	}
}
