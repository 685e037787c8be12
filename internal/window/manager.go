package window

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/e7canasta/surface-player/internal/compositor"
)

var (
	// ErrNoCompatibleFormat is returned when pixel format negotiation yields zero configurations
	ErrNoCompatibleFormat = errors.New("window: no compatible pixel format")
	// ErrNotCurrent is returned when presenting outside the create/destroy window
	ErrNotCurrent = errors.New("window: rendering context is not current")
	// ErrDestroyed is returned when using a state after Destroy
	ErrDestroyed = errors.New("window: state already destroyed")
)

// MinChannelBits is the minimum bits per color channel accepted for the window surface
const MinChannelBits = 8

// DefaultClearColor is the color presented each tick behind the video overlay
var DefaultClearColor = Color{R: 0, G: 1, B: 0, A: 1}

// Options configures the Manager
type Options struct {
	// ClearColor is presented every tick; nil selects DefaultClearColor
	ClearColor *Color
}

// Manager creates, presents and destroys the window and its rendering context
type Manager struct {
	shell      Shell
	gpu        GPU
	clearColor Color
}

// NewManager creates a Manager over the compositor shell and the GPU API
func NewManager(shell Shell, gpu GPU, opts Options) (*Manager, error) {
	if shell == nil {
		return nil, fmt.Errorf("window: shell is required")
	}
	if gpu == nil {
		return nil, fmt.Errorf("window: gpu is required")
	}
	color := DefaultClearColor
	if opts.ClearColor != nil {
		color = *opts.ClearColor
	}
	return &Manager{shell: shell, gpu: gpu, clearColor: color}, nil
}

// Create binds a native surface with a toplevel shell role and a buffer
// queue of the given size.
//
// The returned State is registered as the listener of the shell surface, so
// configure and ping events delivered by later dispatches reach it.
func (m *Manager) Create(width, height int) (*State, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("window: invalid size %dx%d", width, height)
	}

	if err := m.shell.Registry().Require(compositor.InterfaceCompositor, compositor.InterfaceShell); err != nil {
		return nil, err
	}

	st := &State{}

	shell, err := m.shell.CreateShellSurface(st)
	if err != nil {
		return nil, fmt.Errorf("window: failed to create shell surface: %w", err)
	}
	st.shell = shell
	shell.SetToplevel()

	queue, err := shell.CreateBufferQueue(width, height)
	if err != nil {
		shell.Destroy()
		return nil, fmt.Errorf("window: failed to create buffer queue: %w", err)
	}
	st.queue = queue

	st.publish(Geometry{Handle: shell.Handle(), Width: width, Height: height})

	slog.Info("window: surface created",
		"width", width,
		"height", height,
	)

	return st, nil
}

// CreateContext chooses an 8-bit-per-channel format, creates the context and
// a rendering surface over the buffer queue, and makes them current on the
// calling OS thread.
//
// The caller must have locked the goroutine to its OS thread.
func (m *Manager) CreateContext(st *State) error {
	if st == nil || st.destroyed {
		return ErrDestroyed
	}
	if st.context != 0 {
		return fmt.Errorf("window: context already created")
	}

	if err := m.gpu.BindAPI(); err != nil {
		return fmt.Errorf("window: failed to bind rendering API: %w", err)
	}

	configs, err := m.gpu.ChooseConfigs(ConfigRequest{
		RedBits:   MinChannelBits,
		GreenBits: MinChannelBits,
		BlueBits:  MinChannelBits,
	}, 1)
	if err != nil {
		return fmt.Errorf("window: config negotiation failed: %w", err)
	}
	if len(configs) == 0 {
		return ErrNoCompatibleFormat
	}
	cfg := configs[0]

	ctx, err := m.gpu.CreateContext(cfg)
	if err != nil {
		return fmt.Errorf("window: failed to create context: %w", err)
	}

	surface, err := m.gpu.CreateWindowSurface(cfg, st.queue.Handle())
	if err != nil {
		_ = m.gpu.DestroyContext(ctx)
		return fmt.Errorf("window: failed to create rendering surface: %w", err)
	}

	if err := m.gpu.MakeCurrent(surface, ctx); err != nil {
		_ = m.gpu.DestroySurface(surface)
		_ = m.gpu.DestroyContext(ctx)
		return fmt.Errorf("window: failed to make context current: %w", err)
	}

	st.config = cfg
	st.context = ctx
	st.surface = surface
	st.current = true

	slog.Info("window: rendering context created", "min_channel_bits", MinChannelBits)
	return nil
}

// Present clears and swaps the rendering surface. Must run on the OS thread
// that called CreateContext.
func (m *Manager) Present(st *State) error {
	if st == nil || st.destroyed {
		return ErrDestroyed
	}
	if !st.current {
		return ErrNotCurrent
	}

	m.gpu.Clear(m.clearColor)
	if err := m.gpu.SwapBuffers(st.surface); err != nil {
		return fmt.Errorf("window: swap failed: %w", err)
	}
	return nil
}

// Destroy releases the rendering surface, the buffer queue, the native
// surface and finally the context. A second call is a no-op.
func (m *Manager) Destroy(st *State) error {
	if st == nil || st.destroyed {
		return nil
	}
	st.destroyed = true
	st.current = false

	var errs []error

	if st.surface != 0 {
		if err := m.gpu.DestroySurface(st.surface); err != nil {
			errs = append(errs, fmt.Errorf("window: destroy rendering surface: %w", err))
		}
		st.surface = 0
	}

	if st.queue != nil {
		st.queue.Destroy()
		st.queue = nil
	}

	if st.shell != nil {
		st.shell.Destroy()
		st.shell = nil
	}

	if st.context != 0 {
		if err := m.gpu.DestroyContext(st.context); err != nil {
			errs = append(errs, fmt.Errorf("window: destroy context: %w", err))
		}
		st.context = 0
	}

	slog.Info("window: destroyed")
	return errors.Join(errs...)
}
