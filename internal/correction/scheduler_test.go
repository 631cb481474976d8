package correction

import "testing"

func TestWithinDeadbandZerosCounters(t *testing.T) {
	s := New(48000)
	plan, reanchor := s.Evaluate(1000, 0) // 1ms, inside 2ms deadband
	if plan != (Plan{}) || reanchor {
		t.Errorf("got %+v reanchor=%v, want zero plan, no reanchor", plan, reanchor)
	}
}

func TestPositiveErrorDrops(t *testing.T) {
	s := New(48000)
	plan, reanchor := s.Evaluate(50_000, 0) // 50ms behind
	if reanchor {
		t.Fatal("should not reanchor at 50ms")
	}
	if plan.DropEveryN == 0 || plan.InsertEveryN != 0 {
		t.Errorf("got %+v, want DropEveryN > 0, InsertEveryN == 0", plan)
	}
}

func TestNegativeErrorInserts(t *testing.T) {
	s := New(48000)
	plan, reanchor := s.Evaluate(-50_000, 0) // 50ms ahead
	if reanchor {
		t.Fatal("should not reanchor at 50ms")
	}
	if plan.InsertEveryN == 0 || plan.DropEveryN != 0 {
		t.Errorf("got %+v, want InsertEveryN > 0, DropEveryN == 0", plan)
	}
}

func TestCatastrophicErrorReanchors(t *testing.T) {
	s := New(48000)
	plan, reanchor := s.Evaluate(600_000, 0)
	if !reanchor {
		t.Fatal("should reanchor at 600ms error")
	}
	if plan != (Plan{}) {
		t.Errorf("got %+v, want zero plan on reanchor", plan)
	}
}

func TestReanchorCooldownSuppressesSecondDivergence(t *testing.T) {
	s := New(48000)
	_, reanchor1 := s.Evaluate(600_000, 0)
	if !reanchor1 {
		t.Fatal("first divergence should reanchor")
	}
	// Second divergence well within the 5s cooldown window.
	_, reanchor2 := s.Evaluate(600_000, 1_000_000)
	if reanchor2 {
		t.Error("second divergence inside cooldown should be suppressed")
	}
}

func TestReanchorAllowedAfterCooldownElapses(t *testing.T) {
	s := New(48000)
	s.Evaluate(600_000, 0)
	_, reanchor := s.Evaluate(600_000, ReanchorCooldownUs+1)
	if !reanchor {
		t.Error("divergence after cooldown elapsed should reanchor again")
	}
}

func TestRateCappedAtMaxSpeed(t *testing.T) {
	s := New(48000)
	// An enormous error (but under the reanchor threshold) should still cap
	// at the ±4% correction rate rather than producing interval < the cap.
	plan, _ := s.Evaluate(499_000, 0)
	maxRate := float64(48000) * MaxSpeedCorrection
	minInterval := int(float64(48000) / maxRate)
	if plan.DropEveryN < minInterval {
		t.Errorf("DropEveryN = %d, want >= %d (rate-capped)", plan.DropEveryN, minInterval)
	}
}

func TestResetClearsFilterAndCooldown(t *testing.T) {
	s := New(48000)
	s.Evaluate(600_000, 0)
	s.Reset()
	// Immediately after reset, a fresh catastrophic error should reanchor
	// again even at loop time 0 (no stale cooldown).
	_, reanchor := s.Evaluate(600_000, 0)
	if !reanchor {
		t.Error("should reanchor again after Reset")
	}
}
