package playback

import "github.com/e7canasta/surface-player/internal/handoff"

// Pipeline is a realized media pipeline and its bus
type Pipeline interface {
	Name() string
	// SetURI sets the content URI (playbin "uri" property)
	SetURI(uri string) error
	// Play sets the PLAYING state
	Play() error
	// Stop sets the NULL state
	Stop() error
	// OnAboutToFinish connects fn to the near-end-of-content notification.
	// fn runs on a streaming thread.
	OnAboutToFinish(fn func()) error
	// SetSyncHandler installs the synchronous bus filter. fn runs on the
	// posting thread before the message reaches the watch queue.
	SetSyncHandler(fn func(handoff.Message) handoff.Reply)
	// Pop returns the next queued bus message without waiting
	Pop() (BusMessage, bool)
	// Close releases the pipeline; it must already be stopped
	Close() error
}

// Builder realizes a textual pipeline description
type Builder interface {
	Build(description string) (Pipeline, error)
}

// BusKind classifies a message taken from the watch queue
type BusKind int

const (
	BusOther BusKind = iota
	BusError
	BusWarning
	BusEOS
	BusStateChanged
)

// String returns a human-readable representation of the kind
func (k BusKind) String() string {
	switch k {
	case BusError:
		return "error"
	case BusWarning:
		return "warning"
	case BusEOS:
		return "eos"
	case BusStateChanged:
		return "state-changed"
	default:
		return "other"
	}
}

// BusMessage is a message delivered through the asynchronous watch path
type BusMessage struct {
	Kind   BusKind
	Source string
	// Text is the error or warning message
	Text  string
	Debug string
	// OldState and NewState are set for BusStateChanged
	OldState string
	NewState string
}
