// Package handoff answers the two synchronous bus queries a video sink makes
// before it can render into a foreign window: which display connection to use
// and which native surface (and rectangle) to draw into.
//
// Handle runs on whichever thread posted the message, usually a pipeline
// streaming thread. It never blocks and never creates or destroys window
// resources; it only reads the published window geometry.
package handoff

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Kind classifies a bus message for the sync filter
type Kind int

const (
	// KindOther is any message the filter does not answer
	KindOther Kind = iota
	// KindNeedDisplayContext asks for the compositor display handle
	KindNeedDisplayContext
	// KindPrepareWindowHandle asks for the target surface and rectangle
	KindPrepareWindowHandle
)

// String returns a human-readable representation of the kind
func (k Kind) String() string {
	switch k {
	case KindNeedDisplayContext:
		return "need-display-context"
	case KindPrepareWindowHandle:
		return "prepare-window-handle"
	default:
		return "other"
	}
}

// Reply tells the bus whether to forward the message to the watch queue
type Reply int

const (
	// Pass forwards the message unmodified
	Pass Reply = iota
	// Drop consumes the message
	Drop
)

// String returns a human-readable representation of the reply
func (r Reply) String() string {
	if r == Drop {
		return "drop"
	}
	return "pass"
}

// Display context types posted by the Wayland sinks. Newer GStreamer releases
// use the short form.
const (
	WaylandDisplayContextType = "GstWaylandDisplayHandleContextType"
	WlDisplayContextType      = "GstWlDisplayHandleContextType"
)

// IsDisplayContextType reports whether a need-context type asks for the Wayland display
func IsDisplayContextType(contextType string) bool {
	return contextType == WaylandDisplayContextType || contextType == WlDisplayContextType
}

// Rect is a render rectangle in surface coordinates
type Rect struct {
	X, Y          int
	Width, Height int
}

// ContextReceiver accepts a display context wrapping the compositor connection
type ContextReceiver interface {
	SetDisplayContext(display uintptr) error
}

// Overlay is the video-overlay capability of an element
type Overlay interface {
	SetWindowHandle(handle uintptr) error
	SetRenderRectangle(r Rect) error
}

// Message is the part of a bus message the filter needs
type Message struct {
	Kind Kind
	// Source is the originating element name (for logs)
	Source string
	// Element is the originating element; it implements ContextReceiver
	// and/or Overlay depending on Kind
	Element any
}

// Target is the surface the pipeline should draw into
type Target struct {
	Handle uintptr
	Width  int
	Height int
}

// Rect returns the full-surface render rectangle
func (t Target) Rect() Rect {
	return Rect{X: 0, Y: 0, Width: t.Width, Height: t.Height}
}

// TargetFunc returns a snapshot of the current window; it must be safe to
// call from any goroutine
type TargetFunc func() Target

// Stats counts handled messages
type Stats struct {
	ContextsSupplied uint64
	HandlesSupplied  uint64
	Passed           uint64
	Failures         uint64
	BindingVersion   uint64
}

// Handler is the bus sync filter
type Handler struct {
	display uintptr
	target  TargetFunc
	binding Binding

	contexts atomic.Uint64
	handles  atomic.Uint64
	passed   atomic.Uint64
	failures atomic.Uint64
}

// NewHandler creates a filter answering with display and the window returned by target
func NewHandler(display uintptr, target TargetFunc) (*Handler, error) {
	if target == nil {
		return nil, fmt.Errorf("handoff: target func is required")
	}
	return &Handler{display: display, target: target}, nil
}

// Handle applies the side effects for msg and returns whether to forward it.
//
// Display-context and prepare-window-handle messages are always dropped, even
// when their side effect fails, because nothing downstream can answer them.
func (h *Handler) Handle(msg Message) Reply {
	switch msg.Kind {
	case KindNeedDisplayContext:
		h.supplyContext(msg)
		return Drop

	case KindPrepareWindowHandle:
		h.supplyWindowHandle(msg)
		return Drop

	default:
		h.passed.Add(1)
		return Pass
	}
}

func (h *Handler) supplyContext(msg Message) {
	receiver, ok := msg.Element.(ContextReceiver)
	if !ok {
		h.failures.Add(1)
		slog.Error("handoff: display context requested by element without context support",
			"source", msg.Source,
		)
		return
	}

	if err := receiver.SetDisplayContext(h.display); err != nil {
		h.failures.Add(1)
		slog.Error("handoff: failed to set display context", "source", msg.Source, "error", err)
		return
	}

	h.contexts.Add(1)
	slog.Debug("handoff: display context supplied", "source", msg.Source)
}

func (h *Handler) supplyWindowHandle(msg Message) {
	overlay, ok := msg.Element.(Overlay)
	if !ok {
		h.failures.Add(1)
		slog.Error("handoff: window handle requested by element without overlay support",
			"source", msg.Source,
		)
		return
	}

	// The element posting this message is the one that owns the output now.
	version := h.binding.Rebind(overlay, msg.Source)
	target := h.target()

	if err := overlay.SetWindowHandle(target.Handle); err != nil {
		h.failures.Add(1)
		slog.Error("handoff: failed to set window handle", "source", msg.Source, "error", err)
		return
	}
	if err := overlay.SetRenderRectangle(target.Rect()); err != nil {
		h.failures.Add(1)
		slog.Error("handoff: failed to set render rectangle", "source", msg.Source, "error", err)
		return
	}

	h.handles.Add(1)
	slog.Debug("handoff: window handle supplied",
		"source", msg.Source,
		"width", target.Width,
		"height", target.Height,
		"binding_version", version,
	)
}

// Refresh re-applies the current render rectangle to the bound overlay.
// Called on the main loop after a resize; a no-op while nothing is bound.
func (h *Handler) Refresh() error {
	overlay, version := h.binding.Current()
	if overlay == nil {
		return nil
	}

	target := h.target()
	if err := overlay.SetRenderRectangle(target.Rect()); err != nil {
		h.failures.Add(1)
		return fmt.Errorf("handoff: refresh render rectangle (binding %d): %w", version, err)
	}
	return nil
}

// Binding exposes the overlay binding
func (h *Handler) Binding() *Binding {
	return &h.binding
}

// Stats returns a snapshot of the counters
func (h *Handler) Stats() Stats {
	_, version := h.binding.Current()
	return Stats{
		ContextsSupplied: h.contexts.Load(),
		HandlesSupplied:  h.handles.Load(),
		Passed:           h.passed.Load(),
		Failures:         h.failures.Load(),
		BindingVersion:   version,
	}
}
