package calibration

import "testing"

func TestEmptyRing(t *testing.T) {
	var r Ring
	if r.HasSamples() {
		t.Error("empty ring should report no samples")
	}
	if got := r.LoopForDAC(1000); got != 0 {
		t.Errorf("LoopForDAC on empty ring = %d, want 0", got)
	}
}

func TestSingleSampleFallsBack(t *testing.T) {
	var r Ring
	r.Append(100, 200)
	if got := r.LoopForDAC(999); got != 200 {
		t.Errorf("LoopForDAC with one sample = %d, want 200 (fallback)", got)
	}
	if got := r.DACForLoop(999); got != 100 {
		t.Errorf("DACForLoop with one sample = %d, want 100 (fallback)", got)
	}
}

func TestUnitySlope(t *testing.T) {
	var r Ring
	r.Append(0, 0)
	r.Append(1000, 1000)

	if got := r.LoopForDAC(5000); got != 5000 {
		t.Errorf("LoopForDAC = %d, want 5000", got)
	}
	if got := r.DACForLoop(5000); got != 5000 {
		t.Errorf("DACForLoop = %d, want 5000", got)
	}
}

func TestSlopeClamped(t *testing.T) {
	var r Ring
	// DAC advances twice as fast as loop time: way outside [0.999, 1.001].
	r.Append(0, 0)
	r.Append(2000, 1000)

	got := r.DACForLoop(2000) // 1000us past last loop sample
	// Clamped slope means the estimate must be within MaxSlope of unity,
	// not the raw (unclamped) 2.0 slope that would give 2000+2000=4000.
	want := int64(2000 + float64(1000)*MaxSlope)
	if got != want {
		t.Errorf("DACForLoop = %d, want %d (clamped)", got, want)
	}
}

func TestLenCapsAtCapacity(t *testing.T) {
	var r Ring
	for i := 0; i < Capacity+10; i++ {
		r.Append(int64(i), int64(i))
	}
	if r.Len() != Capacity {
		t.Errorf("Len() = %d, want %d", r.Len(), Capacity)
	}
}

func TestHasSamplesAfterAppend(t *testing.T) {
	var r Ring
	r.Append(1, 1)
	if !r.HasSamples() {
		t.Error("should report samples after Append")
	}
}
