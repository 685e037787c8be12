package surfaceplayer

import "context"

// Provider defines the contract for a playback surface.
//
// Implementations own one window, its rendering context and one media
// pipeline for the duration of Run.
type Provider interface {
	// Run blocks until ctx is cancelled, Stop is called or a fatal error
	// occurs.
	//
	// Returns an error if:
	//   - The compositor lacks a required capability
	//   - No pixel format with 8 bits per channel exists
	//   - The pipeline description cannot be realized
	//
	// A runtime playback error is not returned: playback stops, the error
	// is available from Stats, and the surface keeps presenting.
	Run(ctx context.Context) error

	// Stop asks Run to return. Safe to call from any goroutine and more
	// than once.
	Stop()

	// Stats returns a snapshot of the current state. Thread-safe.
	Stats() Stats
}

var _ Provider = (*Player)(nil)
