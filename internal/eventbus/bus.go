// Package eventbus fans playback events out to subscribers without ever
// blocking the publisher.
//
// Publishers include the about-to-finish handler, which runs on a pipeline
// streaming thread, so Publish drops an event for a subscriber whose channel
// is full instead of waiting.
package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrBusClosed          = errors.New("eventbus: bus is closed")
	ErrSubscriberExists   = errors.New("eventbus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("eventbus: subscriber not found")
	ErrNilChannel         = errors.New("eventbus: nil channel provided")
)

// Type identifies a playback event
type Type string

const (
	SessionStarted   Type = "session_started"
	NowPlaying       Type = "now_playing"
	PlaybackError    Type = "playback_error"
	PlaybackFinished Type = "playback_finished"
	WindowResized    Type = "window_resized"
	SessionEnded     Type = "session_ended"
)

// Event is a playback status change
type Event struct {
	ID        string    `json:"id" msgpack:"id"`
	SessionID string    `json:"session_id" msgpack:"session_id"`
	Type      Type      `json:"type" msgpack:"type"`
	Time      time.Time `json:"time" msgpack:"time"`
	URI       string    `json:"uri,omitempty" msgpack:"uri,omitempty"`
	Index     int       `json:"index,omitempty" msgpack:"index,omitempty"`
	Error     string    `json:"error,omitempty" msgpack:"error,omitempty"`
	Debug     string    `json:"debug,omitempty" msgpack:"debug,omitempty"`
	Category  string    `json:"category,omitempty" msgpack:"category,omitempty"`
	Width     int       `json:"width,omitempty" msgpack:"width,omitempty"`
	Height    int       `json:"height,omitempty" msgpack:"height,omitempty"`
}

// SubscriberStats tracks delivery for one subscriber
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

// Stats is a snapshot of the bus counters
type Stats struct {
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
	Subscribers    map[string]SubscriberStats
}

type subscriber struct {
	ch      chan<- Event
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus distributes events to subscriber channels
type Bus struct {
	mu             sync.RWMutex
	subscribers    map[string]*subscriber
	totalPublished atomic.Uint64
	closed         bool
}

// New creates an empty bus
func New() *Bus {
	return &Bus{subscribers: make(map[string]*subscriber)}
}

// Subscribe registers ch under id
func (b *Bus) Subscribe(id string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	if ch == nil {
		return ErrNilChannel
	}

	b.subscribers[id] = &subscriber{ch: ch}
	return nil
}

// Unsubscribe removes a subscriber; its channel is left open
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subscribers, id)
	return nil
}

// Publish delivers ev to every subscriber with room in its channel
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	b.totalPublished.Add(1)

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- ev:
			sub.sent.Add(1)
		default:
			sub.dropped.Add(1)
		}
	}
}

// Stats returns the delivery counters
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Stats{
		TotalPublished: b.totalPublished.Load(),
		Subscribers:    make(map[string]SubscriberStats, len(b.subscribers)),
	}
	for id, sub := range b.subscribers {
		s := SubscriberStats{Sent: sub.sent.Load(), Dropped: sub.dropped.Load()}
		stats.Subscribers[id] = s
		stats.TotalSent += s.Sent
		stats.TotalDropped += s.Dropped
	}
	return stats
}

// Close stops delivery; later Publish calls are ignored
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.subscribers = nil
}
