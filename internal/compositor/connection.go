package compositor

import (
	"fmt"
	"log/slog"
)

// Connection is the client side of the windowing server connection.
//
// All methods except Registry and DisplayHandle must be called from the
// goroutine that owns the main loop.
type Connection interface {
	// Registry returns the globals advertised so far
	Registry() *Registry

	// DisplayHandle is the native display pointer (wl_display*) handed to
	// EGL and to the pipeline's display context
	DisplayHandle() uintptr

	// Roundtrip blocks until the server processed all pending requests
	Roundtrip() error

	// DispatchPending runs handlers for events already queued, without
	// waiting for new ones
	DispatchPending() error

	// Flush sends buffered requests to the server
	Flush() error

	// Close disconnects from the server
	Close() error
}

// Discover performs the initial registry roundtrip and checks that the
// surface factory and the shell interface were advertised.
func Discover(conn Connection) error {
	if conn == nil {
		return fmt.Errorf("compositor: connection is nil")
	}

	if err := conn.Roundtrip(); err != nil {
		return fmt.Errorf("compositor: registry roundtrip failed: %w", err)
	}

	reg := conn.Registry()
	if err := reg.Require(InterfaceCompositor, InterfaceShell); err != nil {
		slog.Error("compositor: discovery incomplete",
			"error", err,
			"globals", reg.Len(),
		)
		return err
	}

	slog.Info("compositor: discovery complete", "globals", reg.Len())
	return nil
}
