//go:build linux && cgo

// Package egl implements the window GPU port on EGL with a desktop GL API
// binding. Every call must come from the thread that made the context
// current.
package egl

/*
#cgo pkg-config: egl glesv2
#define WL_EGL_PLATFORM 1
#include <stdint.h>
#include <EGL/egl.h>
#include <GLES2/gl2.h>

static EGLDisplay sp_get_display(uintptr_t native) {
	return eglGetDisplay((EGLNativeDisplayType) native);
}

static EGLint sp_choose_configs(EGLDisplay dpy, EGLint red, EGLint green, EGLint blue,
                                EGLConfig *configs, EGLint max) {
	EGLint attributes[] = {
		EGL_RED_SIZE, red,
		EGL_GREEN_SIZE, green,
		EGL_BLUE_SIZE, blue,
		EGL_NONE,
	};
	EGLint n = 0;
	if (!eglChooseConfig(dpy, attributes, configs, max, &n)) {
		return -1;
	}
	return n;
}

static EGLSurface sp_create_window_surface(EGLDisplay dpy, EGLConfig cfg, uintptr_t window) {
	return eglCreateWindowSurface(dpy, cfg, (EGLNativeWindowType) window, NULL);
}

static void sp_clear(GLfloat r, GLfloat g, GLfloat b, GLfloat a) {
	glClearColor(r, g, b, a);
	glClear(GL_COLOR_BUFFER_BIT);
}
*/
import "C"

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/e7canasta/surface-player/internal/window"
)

// Error is an EGL call failure with its error code
type Error struct {
	Op   string
	Code int
}

func (e *Error) Error() string {
	return fmt.Sprintf("egl: %s failed (0x%04X)", e.Op, e.Code)
}

func lastError(op string) error {
	return &Error{Op: op, Code: int(C.eglGetError())}
}

// GPU is an initialized EGL display
type GPU struct {
	display C.EGLDisplay
}

// Open initializes EGL on the native display (wl_display*)
func Open(nativeDisplay uintptr) (*GPU, error) {
	dpy := C.sp_get_display(C.uintptr_t(nativeDisplay))
	if dpy == 0 {
		return nil, lastError("eglGetDisplay")
	}

	var major, minor C.EGLint
	if C.eglInitialize(dpy, &major, &minor) == C.EGL_FALSE {
		return nil, lastError("eglInitialize")
	}

	slog.Info("egl: initialized", "version", fmt.Sprintf("%d.%d", major, minor))
	return &GPU{display: dpy}, nil
}

func (g *GPU) BindAPI() error {
	if C.eglBindAPI(C.EGL_OPENGL_API) == C.EGL_FALSE {
		return lastError("eglBindAPI")
	}
	return nil
}

func (g *GPU) ChooseConfigs(req window.ConfigRequest, max int) ([]window.Config, error) {
	if max <= 0 {
		return nil, nil
	}
	configs := make([]C.EGLConfig, max)
	n := C.sp_choose_configs(g.display,
		C.EGLint(req.RedBits), C.EGLint(req.GreenBits), C.EGLint(req.BlueBits),
		&configs[0], C.EGLint(max))
	if n < 0 {
		return nil, lastError("eglChooseConfig")
	}

	out := make([]window.Config, 0, int(n))
	for _, cfg := range configs[:n] {
		out = append(out, window.Config(uintptr(unsafe.Pointer(cfg))))
	}
	return out, nil
}

func (g *GPU) CreateContext(cfg window.Config) (window.Context, error) {
	ctx := C.eglCreateContext(g.display, configPtr(cfg), nil, nil)
	if ctx == nil {
		return 0, lastError("eglCreateContext")
	}
	return window.Context(uintptr(unsafe.Pointer(ctx))), nil
}

func (g *GPU) CreateWindowSurface(cfg window.Config, nativeWindow uintptr) (window.Surface, error) {
	s := C.sp_create_window_surface(g.display, configPtr(cfg), C.uintptr_t(nativeWindow))
	if s == nil {
		return 0, lastError("eglCreateWindowSurface")
	}
	return window.Surface(uintptr(unsafe.Pointer(s))), nil
}

func (g *GPU) MakeCurrent(s window.Surface, c window.Context) error {
	if C.eglMakeCurrent(g.display, surfacePtr(s), surfacePtr(s), contextPtr(c)) == C.EGL_FALSE {
		return lastError("eglMakeCurrent")
	}
	return nil
}

func (g *GPU) Clear(c window.Color) {
	C.sp_clear(C.GLfloat(c.R), C.GLfloat(c.G), C.GLfloat(c.B), C.GLfloat(c.A))
}

func (g *GPU) SwapBuffers(s window.Surface) error {
	if C.eglSwapBuffers(g.display, surfacePtr(s)) == C.EGL_FALSE {
		return lastError("eglSwapBuffers")
	}
	return nil
}

// DestroySurface releases the current binding before destroying s
func (g *GPU) DestroySurface(s window.Surface) error {
	C.eglMakeCurrent(g.display, nil, nil, nil)
	if C.eglDestroySurface(g.display, surfacePtr(s)) == C.EGL_FALSE {
		return lastError("eglDestroySurface")
	}
	return nil
}

func (g *GPU) DestroyContext(c window.Context) error {
	if C.eglDestroyContext(g.display, contextPtr(c)) == C.EGL_FALSE {
		return lastError("eglDestroyContext")
	}
	return nil
}

// Terminate releases the EGL display
func (g *GPU) Terminate() error {
	if C.eglTerminate(g.display) == C.EGL_FALSE {
		return lastError("eglTerminate")
	}
	return nil
}

func configPtr(c window.Config) C.EGLConfig {
	return C.EGLConfig(unsafe.Pointer(uintptr(c)))
}

func surfacePtr(s window.Surface) C.EGLSurface {
	return C.EGLSurface(unsafe.Pointer(uintptr(s)))
}

func contextPtr(c window.Context) C.EGLContext {
	return C.EGLContext(unsafe.Pointer(uintptr(c)))
}
