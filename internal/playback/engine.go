// Package playback drives one media pipeline: it starts it, advances the
// playlist when the current item is about to finish, and turns bus errors
// into a stopped session without taking the window down.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/surface-player/internal/eventbus"
	"github.com/e7canasta/surface-player/internal/handoff"
	"github.com/e7canasta/surface-player/internal/playlist"
)

// MaxMessagesPerPump bounds the watch-queue drain done on each main-loop tick
const MaxMessagesPerPump = 64

var (
	// ErrAlreadyStarted is returned by a second call to Start
	ErrAlreadyStarted = errors.New("playback: engine already started")
	// ErrClosed is returned by Start after Shutdown
	ErrClosed         = errors.New("playback: engine is shut down")
)

// State is the session state of an Engine
type State int32

const (
	// StateIdle is the state before Start
	StateIdle State = iota
	// StatePlaying means the pipeline was asked to play
	StatePlaying
	// StateStopped follows a runtime error; the pipeline is in NULL
	StateStopped
	// StateFinished follows end of stream in single-shot mode
	StateFinished
	// StateClosed follows Shutdown
	StateClosed
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	case StateFinished:
		return "finished"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures an Engine
type Options struct {
	// Playlist enables looping playbin mode; nil plays a fixed description once
	Playlist *playlist.Playlist
	// Handoff is installed as the pipeline's bus sync filter
	Handoff *handoff.Handler
	// Events receives status events; optional
	Events *eventbus.Bus
	// SessionID tags published events
	SessionID string
}

// Stats is a snapshot of engine counters
type Stats struct {
	State          string
	CurrentURI     string
	CurrentIndex   int
	Advances       uint64
	Messages       uint64
	Warnings       uint64
	ErrorsNetwork  uint64
	ErrorsCodec    uint64
	ErrorsResource uint64
	ErrorsUnknown  uint64
	LastError      string
}

// Engine owns the pipeline for one session.
//
// Start, Pump, HandleBusError and Shutdown run on the main loop.
// AdvanceOnAboutToFinish runs on a pipeline streaming thread.
type Engine struct {
	builder Builder
	opts    Options

	mu       sync.RWMutex
	pipeline Pipeline

	state    atomic.Int32
	lastErr  atomic.Pointer[PlaybackError]
	advances atomic.Uint64
	messages atomic.Uint64
	warnings atomic.Uint64

	errorsNetwork  atomic.Uint64
	errorsCodec    atomic.Uint64
	errorsResource atomic.Uint64
	errorsUnknown  atomic.Uint64
}

// NewEngine creates an idle engine
func NewEngine(builder Builder, opts Options) (*Engine, error) {
	if builder == nil {
		return nil, fmt.Errorf("playback: builder is required")
	}
	if opts.Handoff == nil {
		return nil, fmt.Errorf("playback: handoff handler is required")
	}
	return &Engine{builder: builder, opts: opts}, nil
}

// State returns the current session state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start builds description, installs the sync filter and the about-to-finish
// handler, sets the initial URI and requests PLAYING.
//
// A description that cannot be realized returns an error wrapping
// ErrPipelineConstruction. A refused PLAYING request is a runtime error: the
// session is stopped and Start returns nil.
func (e *Engine) Start(description, initialURI string) error {
	e.mu.Lock()
	switch {
	case e.State() == StateClosed:
		e.mu.Unlock()
		return ErrClosed
	case e.pipeline != nil:
		e.mu.Unlock()
		return ErrAlreadyStarted
	}

	pipeline, err := e.builder.Build(description)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrPipelineConstruction, err)
	}

	pipeline.SetSyncHandler(e.opts.Handoff.Handle)

	if e.opts.Playlist != nil {
		if err := pipeline.OnAboutToFinish(e.AdvanceOnAboutToFinish); err != nil {
			e.mu.Unlock()
			pipeline.Close()
			return fmt.Errorf("%w: connect about-to-finish: %w", ErrPipelineConstruction, err)
		}
		if initialURI == "" {
			initialURI = e.opts.Playlist.Current()
		}
	}

	if initialURI != "" {
		if err := pipeline.SetURI(initialURI); err != nil {
			e.mu.Unlock()
			pipeline.Close()
			return fmt.Errorf("%w: set uri: %w", ErrPipelineConstruction, err)
		}
	}

	e.pipeline = pipeline
	e.mu.Unlock()

	slog.Info("playback: starting pipeline",
		"pipeline", pipeline.Name(),
		"description", description,
		"uri", initialURI,
	)

	e.state.Store(int32(StatePlaying))
	if initialURI != "" {
		e.publish(eventbus.Event{Type: eventbus.NowPlaying, URI: initialURI, Index: e.currentIndex()})
	}

	if err := pipeline.Play(); err != nil {
		e.HandleBusError(BusMessage{
			Kind:   BusError,
			Source: pipeline.Name(),
			Text:   fmt.Sprintf("failed to set PLAYING: %v", err),
		})
	}
	return nil
}

// AdvanceOnAboutToFinish queues the next playlist URI on the running
// pipeline. It never blocks on the main loop.
func (e *Engine) AdvanceOnAboutToFinish() {
	if e.opts.Playlist == nil {
		return
	}

	e.mu.RLock()
	pipeline := e.pipeline
	e.mu.RUnlock()
	if pipeline == nil {
		return
	}

	index, uri := e.opts.Playlist.Advance()
	e.advances.Add(1)

	slog.Info("playback: now playing", "uri", uri, "index", index)

	if err := pipeline.SetURI(uri); err != nil {
		slog.Error("playback: failed to queue next uri", "uri", uri, "error", err)
		return
	}
	e.publish(eventbus.Event{Type: eventbus.NowPlaying, URI: uri, Index: index})
}

// HandleBusError stops the pipeline (NULL state) and records msg as a
// PlaybackError. The window is left open.
func (e *Engine) HandleBusError(msg BusMessage) {
	perr := &PlaybackError{
		Source:   msg.Source,
		Message:  msg.Text,
		Debug:    msg.Debug,
		Category: ClassifyError(msg.Text, msg.Debug),
	}
	e.lastErr.Store(perr)

	switch perr.Category {
	case ErrCategoryNetwork:
		e.errorsNetwork.Add(1)
	case ErrCategoryCodec:
		e.errorsCodec.Add(1)
	case ErrCategoryResource:
		e.errorsResource.Add(1)
	default:
		e.errorsUnknown.Add(1)
	}

	slog.Error("playback: pipeline error",
		"source", perr.Source,
		"error", perr.Message,
		"debug", perr.Debug,
		"category", perr.Category.String(),
	)

	e.mu.RLock()
	pipeline := e.pipeline
	e.mu.RUnlock()

	if pipeline != nil {
		if err := pipeline.Stop(); err != nil {
			slog.Warn("playback: failed to stop pipeline after error", "error", err)
		}
	}
	e.opts.Handoff.Binding().Reset()

	if e.State() != StateClosed {
		e.state.Store(int32(StateStopped))
	}

	e.publish(eventbus.Event{
		Type:     eventbus.PlaybackError,
		Error:    perr.Message,
		Debug:    perr.Debug,
		Category: perr.Category.String(),
	})
}

// Pump drains up to MaxMessagesPerPump messages from the watch queue and
// returns how many were handled. It is the asynchronous bus watch; call it
// from the main loop only.
func (e *Engine) Pump() int {
	e.mu.RLock()
	pipeline := e.pipeline
	e.mu.RUnlock()
	if pipeline == nil {
		return 0
	}

	n := 0
	for ; n < MaxMessagesPerPump; n++ {
		msg, ok := pipeline.Pop()
		if !ok {
			break
		}
		e.messages.Add(1)
		e.dispatch(pipeline, msg)
	}
	return n
}

func (e *Engine) dispatch(pipeline Pipeline, msg BusMessage) {
	switch msg.Kind {
	case BusError:
		e.HandleBusError(msg)

	case BusWarning:
		e.warnings.Add(1)
		slog.Warn("playback: pipeline warning",
			"source", msg.Source,
			"warning", msg.Text,
			"debug", msg.Debug,
		)

	case BusEOS:
		slog.Info("playback: end of stream", "pipeline", pipeline.Name())
		if e.State() == StatePlaying {
			e.state.Store(int32(StateFinished))
		}
		e.publish(eventbus.Event{Type: eventbus.PlaybackFinished})

	case BusStateChanged:
		if msg.Source == pipeline.Name() {
			slog.Debug("playback: pipeline state changed",
				"old", msg.OldState,
				"new", msg.NewState,
			)
		}
	}
}

// Shutdown stops and releases the pipeline. It is idempotent.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.State() == StateClosed {
		e.mu.Unlock()
		return nil
	}
	e.state.Store(int32(StateClosed))
	pipeline := e.pipeline
	e.pipeline = nil
	e.mu.Unlock()

	e.opts.Handoff.Binding().Reset()

	if pipeline == nil {
		return nil
	}

	slog.Info("playback: shutting down pipeline", "pipeline", pipeline.Name())

	// Stopping joins the streaming threads, so it runs outside the lock the
	// about-to-finish handler takes.
	var errs []error
	if err := pipeline.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("playback: stop: %w", err))
	}
	if err := pipeline.Close(); err != nil {
		errs = append(errs, fmt.Errorf("playback: close: %w", err))
	}
	return errors.Join(errs...)
}

// LastError returns the most recent runtime error, or nil
func (e *Engine) LastError() *PlaybackError {
	return e.lastErr.Load()
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	s := Stats{
		State:          e.State().String(),
		CurrentIndex:   e.currentIndex(),
		Advances:       e.advances.Load(),
		Messages:       e.messages.Load(),
		Warnings:       e.warnings.Load(),
		ErrorsNetwork:  e.errorsNetwork.Load(),
		ErrorsCodec:    e.errorsCodec.Load(),
		ErrorsResource: e.errorsResource.Load(),
		ErrorsUnknown:  e.errorsUnknown.Load(),
	}
	if e.opts.Playlist != nil {
		s.CurrentURI = e.opts.Playlist.Current()
	}
	if perr := e.lastErr.Load(); perr != nil {
		s.LastError = perr.Error()
	}
	return s
}

func (e *Engine) currentIndex() int {
	if e.opts.Playlist == nil {
		return 0
	}
	return e.opts.Playlist.Index()
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.opts.Events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.SessionID = e.opts.SessionID
	ev.Time = time.Now()
	e.opts.Events.Publish(ev)
}
