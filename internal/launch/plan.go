// Package launch turns the positional launch arguments into a pipeline plan.
//
// Arguments are [video-sink, uri...]. With at least one URI the plan is a
// looping playbin; otherwise it falls back to a synthetic test pattern.
package launch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/e7canasta/surface-player/internal/playlist"
)

const (
	// TestPattern is the videotestsrc pattern used by the fallback plans
	TestPattern = 18
	// TestBackground is the test pattern background color (ARGB)
	TestBackground = 0x000062FF
	// LiveSink is the sink used by the live test-pattern plan
	LiveSink = "waylandsink"
)

var (
	// ErrMissingSinkDescription is returned when the single-shot test pattern has no sink to route into
	ErrMissingSinkDescription = errors.New("launch: sink description argument is required")
	// ErrBlankArgument is returned for empty or whitespace arguments
	ErrBlankArgument = errors.New("launch: blank argument")
)

// Mode identifies the kind of plan
type Mode int

const (
	// ModePlaylist loops content URIs through playbin
	ModePlaylist Mode = iota
	// ModeLivePattern plays a live test pattern into LiveSink
	ModeLivePattern
	// ModePattern routes the test pattern once through a caller-specified sink
	ModePattern
)

// String returns a human-readable representation of the mode
func (m Mode) String() string {
	switch m {
	case ModePlaylist:
		return "playlist"
	case ModeLivePattern:
		return "live-pattern"
	case ModePattern:
		return "pattern"
	default:
		return "unknown"
	}
}

// Plan is what the player needs to start playback
type Plan struct {
	Mode        Mode
	Description string
	// Playlist is set only in ModePlaylist
	Playlist *playlist.Playlist
}

// Loops reports whether the plan continues past the end of its content
func (p Plan) Loops() bool {
	return p.Mode == ModePlaylist
}

// Factories lists the element factories the description instantiates,
// including the video-sink property of playbin
func (p Plan) Factories() []string {
	var names []string
	for _, segment := range strings.Split(p.Description, "!") {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		names = append(names, fields[0])
		for _, f := range fields[1:] {
			if sink, ok := strings.CutPrefix(f, "video-sink="); ok && sink != "" {
				names = append(names, sink)
			}
		}
	}
	return lo.Uniq(names)
}

// New builds a plan from args. live selects the live test pattern when no
// content URI is given.
func New(args []string, live bool) (Plan, error) {
	if _, i, blank := lo.FindIndexOf(args, func(s string) bool {
		return strings.TrimSpace(s) == ""
	}); blank {
		return Plan{}, fmt.Errorf("%w at position %d", ErrBlankArgument, i)
	}

	if len(args) >= 2 {
		pl, err := playlist.New(args)
		if err != nil {
			return Plan{}, err
		}
		return Plan{
			Mode:        ModePlaylist,
			Description: fmt.Sprintf("playbin video-sink=%s", pl.Sink()),
			Playlist:    pl,
		}, nil
	}

	if live {
		return Plan{
			Mode:        ModeLivePattern,
			Description: fmt.Sprintf("%s is-live=true ! %s", patternSource(), LiveSink),
		}, nil
	}

	if len(args) == 0 {
		return Plan{}, ErrMissingSinkDescription
	}
	return Plan{
		Mode:        ModePattern,
		Description: fmt.Sprintf("%s ! %s", patternSource(), args[0]),
	}, nil
}

func patternSource() string {
	return fmt.Sprintf("videotestsrc pattern=%d background-color=0x%08X", TestPattern, TestBackground)
}
