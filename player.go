package surfaceplayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/surface-player/internal/cadence"
	"github.com/e7canasta/surface-player/internal/compositor"
	"github.com/e7canasta/surface-player/internal/eventbus"
	"github.com/e7canasta/surface-player/internal/handoff"
	"github.com/e7canasta/surface-player/internal/launch"
	"github.com/e7canasta/surface-player/internal/playback"
	"github.com/e7canasta/surface-player/internal/window"
)

// Player owns one window, its rendering context and one pipeline
type Player struct {
	cfg       Config
	deps      Deps
	plan      launch.Plan
	sessionID string

	running atomic.Bool
	stopped atomic.Bool
	frames  atomic.Uint64
	resizes atomic.Uint64
	cadence *cadence.Tracker

	// Set during Run, read by Stats
	mu      sync.RWMutex
	started time.Time
	state   *window.State
	engine  *playback.Engine
	handoff *handoff.Handler
}

// terminator is implemented by GPU adapters that hold a display connection
type terminator interface {
	Terminate() error
}

// NewPlayer validates cfg and deps and plans the pipeline.
//
// Validation is fail-fast: an invalid size, a missing adapter or unusable
// launch arguments are reported here, before any window exists.
func NewPlayer(cfg Config, deps Deps) (*Player, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("surface-player: invalid window size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FrameInterval < 0 {
		return nil, fmt.Errorf("surface-player: frame interval must be >= 0")
	}
	switch {
	case deps.Connection == nil:
		return nil, fmt.Errorf("surface-player: compositor connection is required")
	case deps.Shell == nil:
		return nil, fmt.Errorf("surface-player: shell is required")
	case deps.GPU == nil:
		return nil, fmt.Errorf("surface-player: gpu is required")
	case deps.Builder == nil:
		return nil, fmt.Errorf("surface-player: pipeline builder is required")
	}

	plan, err := launch.New(cfg.Args, cfg.Live)
	if err != nil {
		return nil, fmt.Errorf("surface-player: %w", err)
	}

	return &Player{
		cfg:       cfg,
		deps:      deps,
		plan:      plan,
		sessionID: uuid.NewString(),
		cadence:   cadence.NewTracker(cadence.DefaultWindow),
	}, nil
}

// SessionID identifies this player in logs and events
func (p *Player) SessionID() string {
	return p.sessionID
}

// RequiredElements lists the element factories the planned pipeline needs
func (p *Player) RequiredElements() []string {
	return p.plan.Factories()
}

// Run discovers the compositor, creates the window and its context, starts
// the pipeline and presents until ctx is cancelled or Stop is called.
//
// Run locks the calling goroutine to its OS thread: the rendering context is
// current there and compositor events are dispatched there. Teardown always
// runs in order: pipeline, window, connection.
func (p *Player) Run(ctx context.Context) (err error) {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()

	slog.Info("surface-player: starting",
		"session_id", p.sessionID,
		"mode", p.plan.Mode.String(),
		"description", p.plan.Description,
		"width", p.cfg.Width,
		"height", p.cfg.Height,
	)

	conn := p.deps.Connection
	defer func() {
		if cerr := p.closeConnection(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := compositor.Discover(conn); err != nil {
		return err
	}

	mgr, err := window.NewManager(p.deps.Shell, p.deps.GPU, window.Options{ClearColor: p.cfg.ClearColor})
	if err != nil {
		return err
	}

	st, err := mgr.Create(p.cfg.Width, p.cfg.Height)
	if err != nil {
		return err
	}
	defer func() {
		if derr := mgr.Destroy(st); derr != nil {
			err = errors.Join(err, derr)
		}
	}()

	if err := mgr.CreateContext(st); err != nil {
		return err
	}

	h, err := handoff.NewHandler(conn.DisplayHandle(), func() handoff.Target {
		g := st.Geometry()
		return handoff.Target{Handle: g.Handle, Width: g.Width, Height: g.Height}
	})
	if err != nil {
		return err
	}

	st.OnResize(func(g window.Geometry) {
		p.resizes.Add(1)
		if err := h.Refresh(); err != nil {
			slog.Warn("surface-player: failed to refresh render rectangle", "error", err)
		}
		p.publish(eventbus.Event{Type: eventbus.WindowResized, Width: g.Width, Height: g.Height})
	})

	engine, err := playback.NewEngine(p.deps.Builder, playback.Options{
		Playlist:  p.plan.Playlist,
		Handoff:   h,
		Events:    p.deps.Events,
		SessionID: p.sessionID,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.state, p.engine, p.handoff = st, engine, h
	p.mu.Unlock()

	defer func() {
		if serr := engine.Shutdown(); serr != nil {
			err = errors.Join(err, serr)
		}
		p.publish(eventbus.Event{Type: eventbus.SessionEnded})
	}()

	if err := engine.Start(p.plan.Description, ""); err != nil {
		return err
	}
	p.publish(eventbus.Event{Type: eventbus.SessionStarted})

	return p.loop(ctx, conn, mgr, st, engine)
}

func (p *Player) loop(ctx context.Context, conn compositor.Connection, mgr *window.Manager, st *window.State, engine *playback.Engine) error {
	for {
		select {
		case <-ctx.Done():
			slog.Info("surface-player: context cancelled, stopping", "session_id", p.sessionID)
			return nil
		default:
		}
		if p.stopped.Load() {
			slog.Info("surface-player: stop requested", "session_id", p.sessionID)
			return nil
		}

		if err := conn.DispatchPending(); err != nil {
			return fmt.Errorf("surface-player: compositor dispatch: %w", err)
		}

		engine.Pump()

		if err := mgr.Present(st); err != nil {
			return fmt.Errorf("surface-player: present: %w", err)
		}
		p.frames.Add(1)
		p.cadence.Record(time.Now())

		if p.cfg.FrameInterval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.cfg.FrameInterval):
			}
		}
	}
}

func (p *Player) closeConnection() error {
	var errs []error
	if t, ok := p.deps.GPU.(terminator); ok {
		if err := t.Terminate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.deps.Connection.Close(); err != nil {
		errs = append(errs, fmt.Errorf("surface-player: close connection: %w", err))
	}
	slog.Info("surface-player: stopped",
		"session_id", p.sessionID,
		"frames", p.frames.Load(),
	)
	return errors.Join(errs...)
}

// Stop asks Run to return after the current tick. It is idempotent and
// sticky: a Stop issued before Run makes Run tear down without presenting,
// and a stopped Player is not restarted by calling Run again.
func (p *Player) Stop() {
	p.stopped.Store(true)
}

// Stats returns a snapshot of player statistics
func (p *Player) Stats() Stats {
	p.mu.RLock()
	started, st, engine, h := p.started, p.state, p.engine, p.handoff
	p.mu.RUnlock()

	s := Stats{
		SessionID: p.sessionID,
		Running:   p.running.Load(),
		Mode:      p.plan.Mode.String(),
		Resizes:   p.resizes.Load(),
		Frames:    p.frames.Load(),
		Cadence:   p.cadence.Snapshot(),
	}
	if !started.IsZero() {
		s.Uptime = time.Since(started)
	}
	if st != nil {
		g := st.Geometry()
		s.Width, s.Height = g.Width, g.Height
	}
	if engine != nil {
		s.Playback = engine.Stats()
	}
	if h != nil {
		s.Handoff = h.Stats()
	}
	return s
}

func (p *Player) publish(ev eventbus.Event) {
	if p.deps.Events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.SessionID = p.sessionID
	ev.Time = time.Now()
	p.deps.Events.Publish(ev)
}
