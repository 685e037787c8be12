package cadence

import (
	"sync"
	"time"
)

// DefaultWindow is the number of recent presents kept by a Tracker
const DefaultWindow = 240

// Tracker keeps the timestamps of the most recent presents.
// Record is called by the main loop; Snapshot may be called from any goroutine.
type Tracker struct {
	mu     sync.Mutex
	times  []time.Time
	next   int
	full   bool
	total  uint64
	window int
}

// NewTracker creates a tracker keeping the last window presents
func NewTracker(window int) *Tracker {
	if window < 2 {
		window = DefaultWindow
	}
	return &Tracker{times: make([]time.Time, window), window: window}
}

// Record registers a present at t
func (t *Tracker) Record(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.times[t.next] = at
	t.next = (t.next + 1) % t.window
	if t.next == 0 {
		t.full = true
	}
	t.total++
}

// Total returns the number of presents recorded since creation
func (t *Tracker) Total() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Snapshot computes statistics over the current window
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	ordered := t.ordered()
	t.mu.Unlock()

	if len(ordered) < 2 {
		return Stats{Frames: len(ordered)}
	}
	// n timestamps span n-1 intervals; scale so FPSMean is the interval rate
	span := ordered[len(ordered)-1].Sub(ordered[0])
	duration := span * time.Duration(len(ordered)) / time.Duration(len(ordered)-1)
	return Calculate(ordered, duration)
}

func (t *Tracker) ordered() []time.Time {
	if !t.full {
		return append([]time.Time(nil), t.times[:t.next]...)
	}
	out := make([]time.Time, 0, t.window)
	out = append(out, t.times[t.next:]...)
	return append(out, t.times[:t.next]...)
}
