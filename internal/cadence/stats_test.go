package cadence

import (
	"math"
	"sync"
	"testing"
	"testing/quick"
	"time"
)

func evenTimes(n int, interval time.Duration) []time.Time {
	base := time.Unix(1700000000, 0)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * interval)
	}
	return out
}

func TestCalculate_Empty(t *testing.T) {
	s := Calculate(nil, time.Second)
	if s.Frames != 0 || s.FPSMean != 0 || s.IsStable {
		t.Errorf("unexpected stats for no frames: %+v", s)
	}
}

func TestCalculate_SingleFrame(t *testing.T) {
	s := Calculate(evenTimes(1, time.Second), time.Second)
	if s.Frames != 1 || s.FPSMean != 1 || s.FPSMin != 0 || s.IsStable {
		t.Errorf("unexpected stats for single frame: %+v", s)
	}
}

func TestCalculate_PerfectCadence(t *testing.T) {
	times := evenTimes(60, time.Second/60)
	s := Calculate(times, time.Second)

	if math.Abs(s.FPSMean-60) > 0.01 {
		t.Errorf("expected 60 fps, got %.3f", s.FPSMean)
	}
	if math.Abs(s.FPSMin-60) > 0.1 || math.Abs(s.FPSMax-60) > 0.1 {
		t.Errorf("expected min/max 60, got %.3f/%.3f", s.FPSMin, s.FPSMax)
	}
	if !s.IsStable {
		t.Errorf("expected stable cadence, got %+v", s)
	}
}

func TestCalculate_Irregular(t *testing.T) {
	base := time.Unix(1700000000, 0)
	var times []time.Time
	at := base
	for i := 0; i < 30; i++ {
		times = append(times, at)
		if i%2 == 0 {
			at = at.Add(5 * time.Millisecond)
		} else {
			at = at.Add(60 * time.Millisecond)
		}
	}
	s := Calculate(times, at.Sub(base))

	if s.IsStable {
		t.Errorf("expected unstable cadence, got %+v", s)
	}
	if s.JitterMax <= 0 {
		t.Errorf("expected positive jitter, got %f", s.JitterMax)
	}
}

func TestTracker_Window(t *testing.T) {
	tr := NewTracker(10)
	for _, at := range evenTimes(25, 10*time.Millisecond) {
		tr.Record(at)
	}

	if tr.Total() != 25 {
		t.Errorf("expected 25 total, got %d", tr.Total())
	}
	s := tr.Snapshot()
	if s.Frames != 10 {
		t.Errorf("expected window of 10, got %d", s.Frames)
	}
	if math.Abs(s.FPSMean-100) > 0.5 {
		t.Errorf("expected ~100 fps, got %.3f", s.FPSMean)
	}
}

func TestTracker_SmallWindowDefaults(t *testing.T) {
	if tr := NewTracker(0); tr.window != DefaultWindow {
		t.Errorf("expected default window, got %d", tr.window)
	}
	if s := NewTracker(5).Snapshot(); s.Frames != 0 {
		t.Errorf("expected empty snapshot, got %+v", s)
	}
}

func TestTracker_ConcurrentSnapshot(t *testing.T) {
	tr := NewTracker(16)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, at := range evenTimes(1000, time.Millisecond) {
			tr.Record(at)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			tr.Snapshot()
		}
	}()
	wg.Wait()

	if tr.Total() != 1000 {
		t.Errorf("expected 1000, got %d", tr.Total())
	}
}

// Property: for any positive intervals recorded through a Tracker,
// FPSMin <= FPSMean <= FPSMax and jitter is never negative
func TestTracker_PropertyFPSBounds(t *testing.T) {
	f := func(intervalsMS []uint16) bool {
		if len(intervalsMS) == 0 {
			return true
		}
		tr := NewTracker(DefaultWindow)
		at := time.Unix(1700000000, 0)
		tr.Record(at)
		for _, ms := range intervalsMS {
			at = at.Add(time.Duration(int(ms)+1) * time.Millisecond)
			tr.Record(at)
		}

		s := tr.Snapshot()
		tolerance := s.FPSMean * 1e-6
		if s.FPSMin > s.FPSMean+tolerance || s.FPSMax < s.FPSMean-tolerance {
			t.Logf("FAIL: min %.4f mean %.4f max %.4f", s.FPSMin, s.FPSMean, s.FPSMax)
			return false
		}
		if s.JitterMean < 0 || s.JitterMax < s.JitterMean-tolerance {
			t.Logf("FAIL: jitter mean %.6f max %.6f", s.JitterMean, s.JitterMax)
			return false
		}
		return s.Frames <= DefaultWindow
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 100}); err != nil {
		t.Errorf("Property violated: %v", err)
	}
}
