//go:build linux && cgo

package gstbin

/*
#cgo pkg-config: gstreamer-1.0 gstreamer-video-1.0
#include <stdlib.h>
#include <gst/gst.h>
#include <gst/video/videooverlay.h>

static GstElement *sp_message_source(GstMessage *msg) {
	GstObject *src = GST_MESSAGE_SRC(msg);
	if (src == NULL || !GST_IS_ELEMENT(src)) {
		return NULL;
	}
	return GST_ELEMENT(gst_object_ref(src));
}

static gboolean sp_is_prepare_window_handle(GstMessage *msg) {
	return gst_is_video_overlay_prepare_window_handle_message(msg);
}

static void sp_set_display_context(GstElement *elem, const char *type, guintptr display) {
	GstContext *ctx = gst_context_new(type, TRUE);
	GstStructure *s = gst_context_writable_structure(ctx);
	// Older waylandsink releases read "handle", newer ones "display"
	gst_structure_set(s,
		"display", G_TYPE_POINTER, (gpointer) display,
		"handle", G_TYPE_POINTER, (gpointer) display,
		NULL);
	gst_element_set_context(elem, ctx);
	gst_context_unref(ctx);
}

static gboolean sp_context_pointer(GstElement *elem, const char *type, const char *field, guintptr *out) {
	GstContext *ctx = gst_element_get_context(elem, type);
	if (ctx == NULL) {
		return FALSE;
	}
	gpointer p = NULL;
	gboolean ok = gst_structure_get(gst_context_get_structure(ctx), field, G_TYPE_POINTER, &p, NULL);
	gst_context_unref(ctx);
	*out = (guintptr) p;
	return ok;
}

static gboolean sp_is_overlay(GstElement *elem) {
	return GST_IS_VIDEO_OVERLAY(elem);
}

static void sp_set_window_handle(GstElement *elem, guintptr handle) {
	gst_video_overlay_set_window_handle(GST_VIDEO_OVERLAY(elem), handle);
}

static gboolean sp_set_render_rectangle(GstElement *elem, gint x, gint y, gint w, gint h) {
	return gst_video_overlay_set_render_rectangle(GST_VIDEO_OVERLAY(elem), x, y, w, h);
}

static void sp_unref(GstElement *elem) {
	gst_object_unref(elem);
}
*/
import "C"

import (
	"errors"
	"runtime"
	"unsafe"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/surface-player/internal/handoff"
)

var (
	errNotOverlay         = errors.New("gstbin: element does not implement GstVideoOverlay")
	errRectangleRefused   = errors.New("gstbin: render rectangle refused")
	errMissingContextType = errors.New("gstbin: no context type requested")
)

// sinkElement is the element that posted a window negotiation message. It
// holds a reference so the overlay binding may outlive the message.
type sinkElement struct {
	ptr         *C.GstElement
	contextType string
}

func newSinkElement(msg *gst.Message, contextType string) *sinkElement {
	ptr := C.sp_message_source((*C.GstMessage)(unsafe.Pointer(msg.Instance())))
	if ptr == nil {
		return nil
	}
	return wrapSink(ptr, contextType)
}

// sinkFromElement references elem directly, for elements found without a message
func sinkFromElement(elem *gst.Element, contextType string) *sinkElement {
	ptr := (*C.GstElement)(unsafe.Pointer(elem.Instance()))
	C.gst_object_ref(C.gpointer(unsafe.Pointer(ptr)))
	return wrapSink(ptr, contextType)
}

func wrapSink(ptr *C.GstElement, contextType string) *sinkElement {
	e := &sinkElement{ptr: ptr, contextType: contextType}
	runtime.SetFinalizer(e, func(e *sinkElement) { C.sp_unref(e.ptr) })
	return e
}

// contextPointer reads a pointer field back from the display context set on the element
func (e *sinkElement) contextPointer(field string) (uintptr, bool) {
	ctype := C.CString(e.contextType)
	defer C.free(unsafe.Pointer(ctype))
	cfield := C.CString(field)
	defer C.free(unsafe.Pointer(cfield))

	var out C.guintptr
	ok := C.sp_context_pointer(e.ptr, ctype, cfield, &out) != 0
	runtime.KeepAlive(e)
	return uintptr(out), ok
}

func isPrepareWindowHandle(msg *gst.Message) bool {
	return C.sp_is_prepare_window_handle((*C.GstMessage)(unsafe.Pointer(msg.Instance()))) != 0
}

// SetDisplayContext wraps display in a context of the requested type
func (e *sinkElement) SetDisplayContext(display uintptr) error {
	if e.contextType == "" {
		return errMissingContextType
	}
	ctype := C.CString(e.contextType)
	defer C.free(unsafe.Pointer(ctype))

	C.sp_set_display_context(e.ptr, ctype, C.guintptr(display))
	runtime.KeepAlive(e)
	return nil
}

func (e *sinkElement) SetWindowHandle(handle uintptr) error {
	if C.sp_is_overlay(e.ptr) == 0 {
		return errNotOverlay
	}
	C.sp_set_window_handle(e.ptr, C.guintptr(handle))
	runtime.KeepAlive(e)
	return nil
}

func (e *sinkElement) SetRenderRectangle(r handoff.Rect) error {
	if C.sp_is_overlay(e.ptr) == 0 {
		return errNotOverlay
	}
	ok := C.sp_set_render_rectangle(e.ptr, C.gint(r.X), C.gint(r.Y), C.gint(r.Width), C.gint(r.Height))
	runtime.KeepAlive(e)
	if ok == 0 {
		return errRectangleRefused
	}
	return nil
}
