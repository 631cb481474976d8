package player

import "testing"

func TestSetFormatRejectsInvalidFormat(t *testing.T) {
	now := int64(0)
	p, _ := newTestPlayer(&now)

	if err := p.SetFormat(0, 2); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if err := p.SetFormat(48000, 0); err == nil {
		t.Fatal("expected error for zero channels")
	}
}

func TestSetFormatOpensStream(t *testing.T) {
	now := int64(0)
	p, dev := newTestPlayer(&now)

	if err := p.SetFormat(48000, 2); err != nil {
		t.Fatalf("SetFormat: %v", err)
	}
	if dev.opened == nil {
		t.Fatal("expected device to open a stream")
	}
	if p.State() != StateInitializing {
		t.Fatalf("expected INITIALIZING after SetFormat, got %v", p.State())
	}
}

func TestVolumeClampedToRange(t *testing.T) {
	now := int64(0)
	p, _ := newTestPlayer(&now)

	p.SetVolume(150, false)
	if v, _ := p.Volume(); v != 100 {
		t.Fatalf("expected clamp to 100, got %d", v)
	}

	p.SetVolume(-5, false)
	if v, _ := p.Volume(); v != 0 {
		t.Fatalf("expected clamp to 0, got %d", v)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	now := int64(0)
	p, _ := newTestPlayer(&now)
	if err := p.SetFormat(48000, 1); err != nil {
		t.Fatalf("SetFormat: %v", err)
	}

	p.Submit(0, makeTone(100, 1, 42))
	if p.State() != StateWaitingForStart {
		t.Fatalf("expected WAITING_FOR_START, got %v", p.State())
	}

	p.Clear()
	p.Clear() // must not panic or misbehave on a second call

	if p.State() != StateInitializing {
		t.Fatalf("expected INITIALIZING after Clear, got %v", p.State())
	}
	if !p.queue.IsEmpty() {
		t.Fatal("expected empty queue after Clear")
	}
}

func TestStopIsIdempotentAndClosesStream(t *testing.T) {
	now := int64(0)
	p, dev := newTestPlayer(&now)
	if err := p.SetFormat(48000, 1); err != nil {
		t.Fatalf("SetFormat: %v", err)
	}

	p.Stop()
	p.Stop()

	if !dev.opened.closed {
		t.Fatal("expected stream to be closed after Stop")
	}

	p.Submit(0, makeTone(10, 1, 1))
	if p.State() != StateInitializing {
		t.Fatalf("expected Submit after Stop to be a no-op, got state %v", p.State())
	}
}

func TestIsPlayingReflectsState(t *testing.T) {
	now := int64(0)
	p, _ := newTestPlayer(&now)
	if err := p.SetFormat(48000, 1); err != nil {
		t.Fatalf("SetFormat: %v", err)
	}
	if p.IsPlaying() {
		t.Fatal("expected not playing before any chunk submitted")
	}
}

func TestMetricsReportsQueuedDuration(t *testing.T) {
	now := int64(0)
	p, _ := newTestPlayer(&now)
	if err := p.SetFormat(48000, 1); err != nil {
		t.Fatalf("SetFormat: %v", err)
	}

	p.Submit(0, makeTone(480, 1, 7)) // 10ms @ 48kHz
	m := p.Metrics()
	if m.QueuedDurationUs != 10_000 {
		t.Fatalf("expected 10000us queued, got %d", m.QueuedDurationUs)
	}
	if m.State != StateWaitingForStart {
		t.Fatalf("expected WAITING_FOR_START, got %v", m.State)
	}
}
