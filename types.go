package surfaceplayer

import (
	"errors"
	"time"

	"github.com/e7canasta/surface-player/internal/cadence"
	"github.com/e7canasta/surface-player/internal/compositor"
	"github.com/e7canasta/surface-player/internal/eventbus"
	"github.com/e7canasta/surface-player/internal/handoff"
	"github.com/e7canasta/surface-player/internal/launch"
	"github.com/e7canasta/surface-player/internal/playback"
	"github.com/e7canasta/surface-player/internal/window"
)

var (
	// ErrMissingCompositorCapability is returned when the compositor does not
	// advertise the surface factory or the shell interface
	ErrMissingCompositorCapability = compositor.ErrMissingCapability
	// ErrNoCompatibleFormat is returned when no pixel format offers 8 bits per channel
	ErrNoCompatibleFormat = window.ErrNoCompatibleFormat
	// ErrPipelineConstruction is returned when the pipeline description cannot be realized
	ErrPipelineConstruction = playback.ErrPipelineConstruction
	// ErrMissingSinkDescription is returned for a single-shot test pattern without a sink argument
	ErrMissingSinkDescription = launch.ErrMissingSinkDescription
	// ErrAlreadyRunning is returned by a second call to Run
	ErrAlreadyRunning = errors.New("surface-player: already running")
)

// PlaybackError is a runtime pipeline error; it stops playback but not the player
type PlaybackError = playback.PlaybackError

// Color is an RGBA clear color, components in [0,1]
type Color = window.Color

// Config contains the player configuration
type Config struct {
	// Width and Height are the initial surface size in pixels
	Width  int
	Height int
	// ClearColor is presented behind the video overlay; nil selects opaque green
	ClearColor *Color
	// Args are the launch arguments: [video-sink, uri...]
	Args []string
	// Live selects the live test pattern when Args has no URI
	Live bool
	// FrameInterval is slept after each present; zero presents as fast as
	// buffer swaps allow
	FrameInterval time.Duration
}

// Deps are the platform adapters the player drives
type Deps struct {
	Connection compositor.Connection
	Shell      window.Shell
	GPU        window.GPU
	Builder    playback.Builder
	// Events receives playback events; optional
	Events *eventbus.Bus
}

// Stats contains a snapshot of player state
type Stats struct {
	SessionID string
	Running   bool
	Mode      string
	Uptime    time.Duration
	// Width and Height are the current surface size
	Width   int
	Height  int
	Resizes uint64
	// Frames is the number of presents since Run started
	Frames   uint64
	Cadence  cadence.Stats
	Playback playback.Stats
	Handoff  handoff.Stats
}
