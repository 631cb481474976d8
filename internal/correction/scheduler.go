// Package correction implements the drift-correction scheduler: it turns a
// filtered sync error into a drop-every-N / insert-every-N plan for the
// audio callback, and recognizes catastrophic divergence that calls for a
// full re-anchor instead of incremental steering.
package correction

import (
	"math"

	"github.com/OHF-Voice/linux-voice-assistant/internal/syncfilter"
)

// Numeric constants from spec.md §6, bit-exact.
const (
	DeadbandUs          = 2_000
	ReanchorThresholdUs = 500_000
	ReanchorCooldownUs  = 5_000_000
	CorrectionTargetSec = 2.0
	MaxSpeedCorrection  = 0.04
)

// Plan is the current correction plan: at most one of InsertEveryN /
// DropEveryN is nonzero (spec invariant I3).
type Plan struct {
	InsertEveryN int
	DropEveryN   int
}

// Scheduler computes a Plan from instantaneous sync-error measurements. Not
// safe for concurrent use; called only from the control thread during
// submit while PLAYING.
type Scheduler struct {
	filter         syncfilter.Filter
	sampleRate     int
	lastReanchorUs int64
	haveReanchored bool
}

// New returns a Scheduler for the given sample rate.
func New(sampleRate int) *Scheduler {
	return &Scheduler{sampleRate: sampleRate}
}

// Evaluate feeds an instantaneous error measurement (microseconds, positive
// = DAC behind server timeline) through the filter and returns the updated
// Plan. nowLoopUs is the current control-thread loop time, used to enforce
// the re-anchor cooldown. reanchor reports whether the caller should clear
// the player and let the next chunk reschedule the start.
func (s *Scheduler) Evaluate(instantaneousErrorUs float64, nowLoopUs int64) (plan Plan, reanchor bool) {
	filtered := s.filter.Update(instantaneousErrorUs)
	abs := math.Abs(filtered)

	if abs <= DeadbandUs {
		return Plan{}, false
	}

	if abs > ReanchorThresholdUs && (!s.haveReanchored || nowLoopUs-s.lastReanchorUs >= ReanchorCooldownUs) {
		s.lastReanchorUs = nowLoopUs
		s.haveReanchored = true
		return Plan{}, true
	}

	desiredRate := (abs * float64(s.sampleRate) / 1_000_000) / CorrectionTargetSec
	maxRate := float64(s.sampleRate) * MaxSpeedCorrection
	rate := desiredRate
	if rate > maxRate {
		rate = maxRate
	}
	interval := 1
	if rate > 0 {
		interval = int(float64(s.sampleRate) / rate)
		if interval < 1 {
			interval = 1
		}
	}

	if filtered > 0 {
		// DAC is behind the server timeline: drop samples to catch up.
		return Plan{DropEveryN: interval}, false
	}
	// DAC is ahead of the server timeline: insert duplicate samples to slow down.
	return Plan{InsertEveryN: interval}, false
}

// Reset clears the filter and cooldown state. Called on explicit clear or
// full re-anchor so a fresh stream starts from a clean slate.
func (s *Scheduler) Reset() {
	s.filter.Reset()
	s.lastReanchorUs = 0
	s.haveReanchored = false
}

// Offset returns the current filtered sync error (diagnostic / metrics use).
func (s *Scheduler) Offset() float64 {
	return s.filter.Offset()
}
