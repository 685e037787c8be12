//go:build linux && cgo

package wl

/*
#include "wl.h"
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"unsafe"

	"github.com/e7canasta/surface-player/internal/window"
)

type shellSurface struct {
	surface      *C.struct_wl_surface
	shellSurface *C.struct_wl_shell_surface
	listener     cgo.Handle
}

func (s *shellSurface) Handle() uintptr {
	return uintptr(unsafe.Pointer(s.surface))
}

func (s *shellSurface) SetToplevel() {
	C.sp_shell_surface_set_toplevel(s.shellSurface)
}

func (s *shellSurface) Pong(serial uint32) {
	C.sp_shell_surface_pong(s.shellSurface, C.uint32_t(serial))
}

func (s *shellSurface) CreateBufferQueue(width, height int) (window.BufferQueue, error) {
	w := C.wl_egl_window_create(s.surface, C.int(width), C.int(height))
	if w == nil {
		return nil, fmt.Errorf("wl: failed to create egl window %dx%d", width, height)
	}
	return &eglWindow{window: w}, nil
}

func (s *shellSurface) Destroy() {
	if s.shellSurface != nil {
		C.sp_shell_surface_destroy(s.shellSurface)
		s.shellSurface = nil
	}
	if s.surface != nil {
		C.sp_surface_destroy(s.surface)
		s.surface = nil
	}
	s.listener.Delete()
}

// eglWindow is the wl_egl_window buffer queue
type eglWindow struct {
	window *C.struct_wl_egl_window
}

func (w *eglWindow) Handle() uintptr {
	return uintptr(unsafe.Pointer(w.window))
}

func (w *eglWindow) Resize(width, height int) error {
	if w.window == nil {
		return fmt.Errorf("wl: resize of destroyed egl window")
	}
	C.wl_egl_window_resize(w.window, C.int(width), C.int(height), 0, 0)
	return nil
}

func (w *eglWindow) Destroy() {
	if w.window != nil {
		C.wl_egl_window_destroy(w.window)
		w.window = nil
	}
}

func listenerFor(handle C.uintptr_t) (window.ShellListener, bool) {
	l, ok := cgo.Handle(handle).Value().(window.ShellListener)
	return l, ok
}

//export goShellPing
func goShellPing(handle C.uintptr_t, serial C.uint32_t) {
	if l, ok := listenerFor(handle); ok {
		l.OnPing(uint32(serial))
	}
}

//export goShellConfigure
func goShellConfigure(handle C.uintptr_t, edges C.uint32_t, width, height C.int32_t) {
	if l, ok := listenerFor(handle); ok {
		l.OnConfigure(uint32(edges), int32(width), int32(height))
	}
}

//export goShellPopupDone
func goShellPopupDone(handle C.uintptr_t) {
	if l, ok := listenerFor(handle); ok {
		l.OnPopupDone()
	}
}
