package handoff

import "sync"

// Binding references whichever element currently owns the video output.
//
// The owner can change across a pipeline restart, so every prepare-window-handle
// message rebinds it and bumps the version. Holders compare versions instead of
// caching the overlay.
type Binding struct {
	mu      sync.Mutex
	overlay Overlay
	source  string
	version uint64
}

// Rebind points the binding at overlay and returns the new version
func (b *Binding) Rebind(overlay Overlay, source string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.overlay = overlay
	b.source = source
	b.version++
	return b.version
}

// Current returns the bound overlay (nil when unbound) and its version
func (b *Binding) Current() (Overlay, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overlay, b.version
}

// Source returns the name of the element currently bound
func (b *Binding) Source() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.source
}

// Reset drops the reference; called when the pipeline is torn down
func (b *Binding) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.overlay == nil {
		return
	}
	b.overlay = nil
	b.source = ""
	b.version++
}
