package playback

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPipelineConstruction wraps failures to realize a pipeline description
var ErrPipelineConstruction = errors.New("playback: pipeline construction failed")

// ErrorCategory represents the classification of pipeline errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryNetwork indicates network-related failures (connection, timeout, DNS)
	ErrCategoryNetwork ErrorCategory = iota
	// ErrCategoryCodec indicates decode/format failures
	ErrCategoryCodec
	// ErrCategoryResource indicates missing or unreadable resources (file not found, permissions)
	ErrCategoryResource
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryNetwork:
		return "network"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryResource:
		return "resource"
	default:
		return "unknown"
	}
}

// PlaybackError is a runtime error reported by the pipeline. It stops the
// current session; the window and the main loop keep running.
type PlaybackError struct {
	Source   string
	Message  string
	Debug    string
	Category ErrorCategory
}

func (e *PlaybackError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("playback error [%s]: %s", e.Category, e.Message)
	}
	return fmt.Sprintf("playback error [%s] from %s: %s", e.Category, e.Source, e.Message)
}

// ClassifyError categorizes a pipeline error by message and debug string.
//
// GStreamer error domains are not exposed through the bindings, so this
// relies on keyword heuristics. Resource keywords are checked first because
// "not found" also appears in network errors for missing remote files.
func ClassifyError(message, debug string) ErrorCategory {
	combined := strings.ToLower(message + " " + debug)

	if containsAny(combined, resourceKeywords) {
		return ErrCategoryResource
	}
	if containsAny(combined, codecKeywords) {
		return ErrCategoryCodec
	}
	if containsAny(combined, networkKeywords) {
		return ErrCategoryNetwork
	}
	return ErrCategoryUnknown
}

var resourceKeywords = []string{
	"no such file",
	"could not open",
	"resource not found",
	"permission denied",
	"not authorized",
	"could not read",
	"file not found",
}

var codecKeywords = []string{
	"codec",
	"decode",
	"demux",
	"format",
	"negotiation",
	"not negotiated",
	"not-negotiated",
	"caps",
	"no decoder",
	"missing plugin",
	"stream type",
}

var networkKeywords = []string{
	"connection",
	"timeout",
	"timed out",
	"unreachable",
	"network",
	"dns",
	"resolve",
	"socket",
	"http",
	"could not connect",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
