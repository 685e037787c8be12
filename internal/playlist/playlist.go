// Package playlist holds the immutable URI sequence played in a loop.
//
// Slot layout mirrors the launch arguments: slot 0 is the video-sink
// selector, content URIs start at FirstContentIndex.
package playlist

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/samber/lo"
)

// FirstContentIndex is the first playable slot; slot 0 is reserved for the sink selector
const FirstContentIndex = 1

var (
	// ErrNoContent is returned when no content URI follows the sink slot
	ErrNoContent = errors.New("playlist: at least one content URI is required")
	// ErrBlankSlot is returned when a slot is empty or whitespace
	ErrBlankSlot = errors.New("playlist: blank slot")
)

// Playlist is the ordered URI sequence plus the active index.
//
// Slots never change after New. The index is written only by Advance, which
// runs on the pipeline's streaming thread; Index and Current may be read from
// any goroutine.
type Playlist struct {
	slots []string
	index atomic.Int64
}

// New validates the slot layout and positions the playlist on the first content URI
func New(slots []string) (*Playlist, error) {
	if len(slots) <= FirstContentIndex {
		return nil, ErrNoContent
	}

	if _, i, blank := lo.FindIndexOf(slots, func(s string) bool {
		return strings.TrimSpace(s) == ""
	}); blank {
		return nil, fmt.Errorf("%w at index %d", ErrBlankSlot, i)
	}

	p := &Playlist{slots: append([]string(nil), slots...)}
	p.index.Store(FirstContentIndex)
	return p, nil
}

// Sink returns the reserved sink-selector slot
func (p *Playlist) Sink() string {
	return p.slots[0]
}

// Len returns the number of content URIs
func (p *Playlist) Len() int {
	return len(p.slots) - FirstContentIndex
}

// URIs returns a copy of the content URIs
func (p *Playlist) URIs() []string {
	return append([]string(nil), p.slots[FirstContentIndex:]...)
}

// Index returns the active slot index
func (p *Playlist) Index() int {
	return int(p.index.Load())
}

// Current returns the active content URI
func (p *Playlist) Current() string {
	return p.slots[p.Index()]
}

// Advance moves to the next content URI, wrapping past the end to
// FirstContentIndex, and returns the new index and URI.
func (p *Playlist) Advance() (int, string) {
	next := p.Index() + 1
	if next >= len(p.slots) {
		next = FirstContentIndex
	}
	p.index.Store(int64(next))
	return next, p.slots[next]
}
