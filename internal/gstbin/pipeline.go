//go:build linux && cgo

// Package gstbin realizes pipeline descriptions on GStreamer and exposes them
// through the playback and handoff ports.
package gstbin

/*
#cgo pkg-config: gstreamer-1.0 gstreamer-video-1.0
#include <stdlib.h>
#include <gst/gst.h>
#include <gst/video/videooverlay.h>

static GstElement *sp_parse_launch(const char *desc, char **errmsg) {
	GError *err = NULL;
	GstElement *elem = gst_parse_launch(desc, &err);
	if (err != NULL) {
		*errmsg = g_strdup(err->message);
		g_error_free(err);
		if (elem != NULL) {
			gst_object_unref(elem);
		}
		return NULL;
	}
	if (elem != NULL) {
		gst_object_ref_sink(elem);
	}
	return elem;
}

static void sp_free(char *s) { g_free(s); }
*/
import "C"

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unsafe"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/surface-player/internal/handoff"
	"github.com/e7canasta/surface-player/internal/playback"
)

var initOnce sync.Once

// Builder parses textual pipeline descriptions
type Builder struct{}

// NewBuilder initializes GStreamer (once per process) and returns a Builder
func NewBuilder() *Builder {
	initOnce.Do(func() { gst.Init(nil) })
	return &Builder{}
}

// CheckAvailable verifies that every element factory is installed
func CheckAvailable(factories ...string) error {
	initOnce.Do(func() { gst.Init(nil) })

	var missing []string
	for _, name := range factories {
		if gst.Find(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("gstbin: missing GStreamer elements: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Build parses description. Unlike gst.NewPipelineFromString it accepts a
// single top-level element such as "playbin video-sink=waylandsink".
func (b *Builder) Build(description string) (playback.Pipeline, error) {
	cdesc := C.CString(description)
	defer C.free(unsafe.Pointer(cdesc))

	var cerr *C.char
	elem := C.sp_parse_launch(cdesc, &cerr)
	if elem == nil {
		msg := "no element returned"
		if cerr != nil {
			msg = C.GoString(cerr)
			C.sp_free(cerr)
		}
		return nil, fmt.Errorf("gstbin: parse %q: %s", description, msg)
	}

	element := gst.FromGstElementUnsafeFull(unsafe.Pointer(elem))
	bus := element.GetBus()
	if bus == nil {
		return nil, fmt.Errorf("gstbin: %q has no bus", description)
	}

	p := &Pipeline{element: element, bus: bus, name: element.GetName()}
	slog.Debug("gstbin: pipeline created", "pipeline", p.name, "description", description)
	return p, nil
}

// Pipeline is a parsed top-level element and its bus
type Pipeline struct {
	element *gst.Element
	bus     *gst.Bus
	name    string
}

func (p *Pipeline) Name() string {
	return p.name
}

func (p *Pipeline) SetURI(uri string) error {
	return p.element.SetProperty("uri", uri)
}

func (p *Pipeline) Play() error {
	return p.element.SetState(gst.StatePlaying)
}

func (p *Pipeline) Stop() error {
	return p.element.SetState(gst.StateNull)
}

// OnAboutToFinish connects fn to playbin's about-to-finish signal
func (p *Pipeline) OnAboutToFinish(fn func()) error {
	_, err := p.element.Connect("about-to-finish", func(self *gst.Element) {
		fn()
	})
	return err
}

// SetSyncHandler installs fn as the bus sync handler. Only the two window
// negotiation messages carry an element reference; everything else is
// classified as handoff.KindOther without touching its source.
func (p *Pipeline) SetSyncHandler(fn func(handoff.Message) handoff.Reply) {
	p.bus.SetSyncHandler(func(msg *gst.Message) gst.BusSyncReply {
		if fn(translate(msg)) == handoff.Drop {
			return gst.BusDrop
		}
		return gst.BusPass
	})
}

// Pop returns the next message from the asynchronous queue without waiting
func (p *Pipeline) Pop() (playback.BusMessage, bool) {
	msg := p.bus.Pop()
	if msg == nil {
		return playback.BusMessage{}, false
	}
	return toBusMessage(msg), true
}

// Close drops the Go references; the element is released by its finalizer
func (p *Pipeline) Close() error {
	p.bus = nil
	p.element = nil
	return nil
}

func translate(msg *gst.Message) handoff.Message {
	out := handoff.Message{Kind: handoff.KindOther, Source: msg.Source()}

	switch msg.Type() {
	case gst.MessageNeedContext:
		ctxType, ok := msg.ParseContextType()
		if !ok || !handoff.IsDisplayContextType(ctxType) {
			return out
		}
		out.Kind = handoff.KindNeedDisplayContext
		if e := newSinkElement(msg, ctxType); e != nil {
			out.Element = e
		}

	case gst.MessageElement:
		if !isPrepareWindowHandle(msg) {
			return out
		}
		out.Kind = handoff.KindPrepareWindowHandle
		if e := newSinkElement(msg, ""); e != nil {
			out.Element = e
		}
	}
	return out
}

func toBusMessage(msg *gst.Message) playback.BusMessage {
	out := playback.BusMessage{Kind: playback.BusOther, Source: msg.Source()}

	switch msg.Type() {
	case gst.MessageError:
		gerr := msg.ParseError()
		out.Kind = playback.BusError
		out.Text = gerr.Error()
		out.Debug = gerr.DebugString()

	case gst.MessageWarning:
		gerr := msg.ParseWarning()
		out.Kind = playback.BusWarning
		out.Text = gerr.Error()
		out.Debug = gerr.DebugString()

	case gst.MessageEOS:
		out.Kind = playback.BusEOS

	case gst.MessageStateChanged:
		oldState, newState := msg.ParseStateChanged()
		out.Kind = playback.BusStateChanged
		out.OldState = oldState.String()
		out.NewState = newState.String()
	}
	return out
}
