package window

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Geometry is the snapshot of the window read by pipeline threads
type Geometry struct {
	Handle uintptr
	Width  int
	Height int
}

// State is the window owned by the process: native surface, buffer queue,
// rendering surface and context.
//
// Only Geometry is safe to call from any goroutine. Everything else runs on
// the main loop goroutine.
type State struct {
	shell ShellSurface
	queue BufferQueue

	config  Config
	context Context
	surface Surface
	current bool

	// Published with a pointer swap; pipeline threads only ever Load.
	geom atomic.Pointer[Geometry]

	mu        sync.Mutex
	observers []func(Geometry)

	destroyed bool
}

// Geometry returns the last published window geometry
func (s *State) Geometry() Geometry {
	if g := s.geom.Load(); g != nil {
		return *g
	}
	return Geometry{}
}

// Context returns the rendering context bound to this window (0 before CreateContext)
func (s *State) Context() Context {
	return s.context
}

// RenderSurface returns the rendering surface bound to this window
func (s *State) RenderSurface() Surface {
	return s.surface
}

// OnResize registers a callback run on the dispatching goroutine after each
// accepted configure event.
func (s *State) OnResize(fn func(Geometry)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *State) publish(g Geometry) {
	s.geom.Store(&g)
}

// OnConfigure resizes the buffer queue in place. The native surface and the
// rendering context are left untouched.
func (s *State) OnConfigure(edges uint32, width, height int32) {
	if width <= 0 || height <= 0 {
		slog.Debug("window: ignoring configure without size", "width", width, "height", height)
		return
	}
	if s.queue == nil {
		return
	}

	prev := s.Geometry()
	if prev.Width == int(width) && prev.Height == int(height) {
		return
	}

	if err := s.queue.Resize(int(width), int(height)); err != nil {
		slog.Warn("window: buffer queue resize failed, keeping previous geometry",
			"error", err,
			"width", prev.Width,
			"height", prev.Height,
			"requested_width", width,
			"requested_height", height,
		)
		return
	}

	next := Geometry{Handle: prev.Handle, Width: int(width), Height: int(height)}
	s.publish(next)

	slog.Debug("window: resized",
		"width", next.Width,
		"height", next.Height,
		"edges", edges,
	)

	s.mu.Lock()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(next)
	}
}

// OnPing answers the liveness probe inside the same dispatch turn
func (s *State) OnPing(serial uint32) {
	if s.shell == nil {
		return
	}
	s.shell.Pong(serial)
}

// OnPopupDone is not used by a toplevel surface
func (s *State) OnPopupDone() {}
