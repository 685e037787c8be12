package window

import "github.com/e7canasta/surface-player/internal/compositor"

// Shell is the compositor side used to create drawable surfaces
type Shell interface {
	Registry() *compositor.Registry
	CreateShellSurface(l ShellListener) (ShellSurface, error)
}

// ShellListener receives shell-surface events during compositor dispatch
type ShellListener interface {
	OnConfigure(edges uint32, width, height int32)
	OnPing(serial uint32)
	OnPopupDone()
}

// ShellSurface is a native surface (wl_surface) plus its shell role
type ShellSurface interface {
	// Handle is the native surface pointer handed to the pipeline overlay
	Handle() uintptr
	SetToplevel()
	Pong(serial uint32)
	CreateBufferQueue(width, height int) (BufferQueue, error)
	// Destroy releases the shell role and the native surface
	Destroy()
}

// BufferQueue presents rendered buffers into the compositor (wl_egl_window)
type BufferQueue interface {
	Handle() uintptr
	Resize(width, height int) error
	Destroy()
}

// Opaque GPU handles
type (
	Config  uintptr
	Context uintptr
	Surface uintptr
)

// ConfigRequest is the minimum channel depth a pixel format must offer
type ConfigRequest struct {
	RedBits   int
	GreenBits int
	BlueBits  int
}

// Color is an RGBA clear color, components in [0,1]
type Color struct {
	R, G, B, A float32
}

// GPU is the rendering API bound to the compositor display (EGL)
type GPU interface {
	BindAPI() error
	ChooseConfigs(req ConfigRequest, max int) ([]Config, error)
	CreateContext(cfg Config) (Context, error)
	CreateWindowSurface(cfg Config, window uintptr) (Surface, error)
	MakeCurrent(s Surface, c Context) error
	Clear(c Color)
	SwapBuffers(s Surface) error
	DestroySurface(s Surface) error
	DestroyContext(c Context) error
}
