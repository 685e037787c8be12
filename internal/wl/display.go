//go:build linux && cgo

// Package wl implements the compositor connection and the shell surface
// ports on libwayland-client and wayland-egl.
package wl

/*
#cgo pkg-config: wayland-client wayland-egl
#include <stdlib.h>
#include "wl.h"
*/
import "C"

import (
	"fmt"
	"log/slog"
	"runtime/cgo"
	"syscall"
	"unsafe"

	"github.com/e7canasta/surface-player/internal/compositor"
	"github.com/e7canasta/surface-player/internal/window"
)

// Display is a connection to the Wayland server. It implements
// compositor.Connection and window.Shell.
type Display struct {
	display  *C.struct_wl_display
	registry *C.struct_wl_registry

	compositor *C.struct_wl_compositor
	shell      *C.struct_wl_shell

	globals *compositor.Registry
	handle  cgo.Handle
	closed  bool
}

// Connect opens the named display; an empty name uses WAYLAND_DISPLAY
func Connect(name string) (*Display, error) {
	var cname *C.char
	if name != "" {
		cname = C.CString(name)
		defer C.free(unsafe.Pointer(cname))
	}

	display := C.wl_display_connect(cname)
	if display == nil {
		return nil, fmt.Errorf("wl: failed to connect to Wayland display %q", name)
	}

	d := &Display{display: display, globals: compositor.NewRegistry()}

	d.registry = C.wl_display_get_registry(display)
	if d.registry == nil {
		C.wl_display_disconnect(display)
		return nil, fmt.Errorf("wl: failed to get registry")
	}

	d.handle = cgo.NewHandle(d)
	C.sp_registry_add_listener(d.registry, C.uintptr_t(d.handle))

	slog.Debug("wl: connected", "display", name)
	return d, nil
}

func (d *Display) Registry() *compositor.Registry {
	return d.globals
}

func (d *Display) DisplayHandle() uintptr {
	return uintptr(unsafe.Pointer(d.display))
}

func (d *Display) Roundtrip() error {
	if C.wl_display_roundtrip(d.display) < 0 {
		return d.protocolError("roundtrip")
	}
	return nil
}

func (d *Display) DispatchPending() error {
	if C.sp_dispatch_nonblocking(d.display) < 0 {
		return d.protocolError("dispatch")
	}
	return nil
}

func (d *Display) Flush() error {
	if C.wl_display_flush(d.display) < 0 {
		return d.protocolError("flush")
	}
	return nil
}

// Close destroys the bound globals and disconnects. It is idempotent.
func (d *Display) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	C.sp_destroy_globals(d.registry, d.compositor, d.shell)
	d.registry, d.compositor, d.shell = nil, nil, nil

	C.wl_display_flush(d.display)
	C.wl_display_disconnect(d.display)
	d.display = nil
	d.handle.Delete()

	slog.Debug("wl: disconnected")
	return nil
}

// CreateShellSurface creates a wl_surface with a wl_shell_surface role and
// routes its events to l
func (d *Display) CreateShellSurface(l window.ShellListener) (window.ShellSurface, error) {
	if d.compositor == nil || d.shell == nil {
		return nil, &compositor.MissingCapabilityError{
			Interfaces: d.missing(),
		}
	}

	surface := C.sp_create_surface(d.compositor)
	if surface == nil {
		return nil, fmt.Errorf("wl: failed to create surface")
	}

	shellSurface := C.sp_get_shell_surface(d.shell, surface)
	if shellSurface == nil {
		C.sp_surface_destroy(surface)
		return nil, fmt.Errorf("wl: failed to get shell surface")
	}

	s := &shellSurface{surface: surface, shellSurface: shellSurface, listener: cgo.NewHandle(l)}
	C.sp_shell_surface_add_listener(shellSurface, C.uintptr_t(s.listener))
	return s, nil
}

func (d *Display) missing() []string {
	var out []string
	if d.compositor == nil {
		out = append(out, compositor.InterfaceCompositor)
	}
	if d.shell == nil {
		out = append(out, compositor.InterfaceShell)
	}
	return out
}

func (d *Display) protocolError(op string) error {
	if code := C.wl_display_get_error(d.display); code != 0 {
		return fmt.Errorf("wl: %s: %w", op, syscall.Errno(code))
	}
	return fmt.Errorf("wl: %s failed", op)
}

//export goRegistryGlobal
func goRegistryGlobal(handle C.uintptr_t, name C.uint32_t, iface *C.char, version C.uint32_t) {
	d, ok := cgo.Handle(handle).Value().(*Display)
	if !ok {
		return
	}

	g := compositor.Global{Name: uint32(name), Interface: C.GoString(iface), Version: uint32(version)}
	d.globals.Announce(g)

	switch g.Interface {
	case compositor.InterfaceCompositor:
		if d.compositor == nil {
			d.compositor = C.sp_bind_compositor(d.registry, name, version)
			slog.Debug("wl: bound global", "interface", g.Interface, "name", g.Name)
		}
	case compositor.InterfaceShell:
		if d.shell == nil {
			d.shell = C.sp_bind_shell(d.registry, name, version)
			slog.Debug("wl: bound global", "interface", g.Interface, "name", g.Name)
		}
	}
}

//export goRegistryGlobalRemove
func goRegistryGlobalRemove(handle C.uintptr_t, name C.uint32_t) {
	d, ok := cgo.Handle(handle).Value().(*Display)
	if !ok {
		return
	}
	d.globals.Withdraw(uint32(name))
}
