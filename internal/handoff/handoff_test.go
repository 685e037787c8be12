package handoff

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeElement struct {
	mu       sync.Mutex
	display  uintptr
	handle   uintptr
	rects    []Rect
	ctxErr   error
	rectErr  error
	contexts int
}

func (e *fakeElement) SetDisplayContext(display uintptr) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctxErr != nil {
		return e.ctxErr
	}
	e.display = display
	e.contexts++
	return nil
}

func (e *fakeElement) SetWindowHandle(handle uintptr) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handle = handle
	return nil
}

func (e *fakeElement) SetRenderRectangle(r Rect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rectErr != nil {
		return e.rectErr
	}
	e.rects = append(e.rects, r)
	return nil
}

// plainElement implements neither capability
type plainElement struct{}

func newTestHandler(t *testing.T, target *atomic.Pointer[Target]) *Handler {
	t.Helper()
	h, err := NewHandler(0xD15, func() Target { return *target.Load() })
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	return h
}

func staticTarget(tg Target) *atomic.Pointer[Target] {
	p := &atomic.Pointer[Target]{}
	p.Store(&tg)
	return p
}

func TestHandle_NeedDisplayContext(t *testing.T) {
	h := newTestHandler(t, staticTarget(Target{Handle: 0x5F, Width: 512, Height: 512}))
	elem := &fakeElement{}

	reply := h.Handle(Message{Kind: KindNeedDisplayContext, Source: "waylandsink0", Element: elem})
	if reply != Drop {
		t.Fatalf("expected Drop, got %v", reply)
	}
	if elem.display != 0xD15 {
		t.Errorf("expected display 0xD15, got %#x", elem.display)
	}
	if s := h.Stats(); s.ContextsSupplied != 1 || s.Passed != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

// Scenario: prepare-window-handle with a 512x512 target sets (0,0,512,512) exactly
func TestHandle_PrepareWindowHandle(t *testing.T) {
	h := newTestHandler(t, staticTarget(Target{Handle: 0x5F, Width: 512, Height: 512}))
	elem := &fakeElement{}

	reply := h.Handle(Message{Kind: KindPrepareWindowHandle, Source: "playbin0", Element: elem})
	if reply != Drop {
		t.Fatalf("expected Drop, got %v", reply)
	}
	if elem.handle != 0x5F {
		t.Errorf("expected window handle 0x5F, got %#x", elem.handle)
	}
	want := Rect{X: 0, Y: 0, Width: 512, Height: 512}
	if len(elem.rects) != 1 || elem.rects[0] != want {
		t.Errorf("expected rectangle %+v, got %v", want, elem.rects)
	}

	overlay, version := h.Binding().Current()
	if overlay != Overlay(elem) || version != 1 {
		t.Errorf("expected binding to element at version 1, got %v/%d", overlay, version)
	}
	if h.Binding().Source() != "playbin0" {
		t.Errorf("expected binding source playbin0, got %s", h.Binding().Source())
	}
}

func TestHandle_AlwaysDropsAnsweredKinds(t *testing.T) {
	h := newTestHandler(t, staticTarget(Target{Handle: 0x5F, Width: 512, Height: 512}))

	cases := []struct {
		name string
		msg  Message
	}{
		{"context without support", Message{Kind: KindNeedDisplayContext, Element: plainElement{}}},
		{"context with failure", Message{Kind: KindNeedDisplayContext, Element: &fakeElement{ctxErr: errors.New("boom")}}},
		{"handle without support", Message{Kind: KindPrepareWindowHandle, Element: plainElement{}}},
		{"handle with nil element", Message{Kind: KindPrepareWindowHandle}},
		{"rectangle failure", Message{Kind: KindPrepareWindowHandle, Element: &fakeElement{rectErr: errors.New("boom")}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if reply := h.Handle(tc.msg); reply != Drop {
				t.Errorf("expected Drop, got %v", reply)
			}
		})
	}

	if s := h.Stats(); s.Failures != uint64(len(cases)) {
		t.Errorf("expected %d failures, got %d", len(cases), s.Failures)
	}
}

func TestHandle_PassesOtherMessagesUntouched(t *testing.T) {
	h := newTestHandler(t, staticTarget(Target{Handle: 0x5F, Width: 512, Height: 512}))
	elem := &fakeElement{}

	for i := 0; i < 10; i++ {
		if reply := h.Handle(Message{Kind: KindOther, Source: "decodebin0", Element: elem}); reply != Pass {
			t.Fatalf("expected Pass, got %v", reply)
		}
	}

	if elem.contexts != 0 || elem.handle != 0 || len(elem.rects) != 0 {
		t.Error("passed message had side effects on its element")
	}
	if s := h.Stats(); s.Passed != 10 {
		t.Errorf("expected 10 passed, got %d", s.Passed)
	}
	if overlay, _ := h.Binding().Current(); overlay != nil {
		t.Error("binding set by a passed message")
	}
}

func TestHandle_RebindsAcrossRestart(t *testing.T) {
	target := staticTarget(Target{Handle: 0x5F, Width: 512, Height: 512})
	h := newTestHandler(t, target)

	first := &fakeElement{}
	second := &fakeElement{}

	h.Handle(Message{Kind: KindPrepareWindowHandle, Source: "waylandsink0", Element: first})
	h.Binding().Reset()
	h.Handle(Message{Kind: KindPrepareWindowHandle, Source: "playbin0", Element: second})

	overlay, version := h.Binding().Current()
	if overlay != Overlay(second) {
		t.Fatal("expected binding to follow the latest element")
	}
	if version != 3 {
		t.Errorf("expected version 3 (bind, reset, bind), got %d", version)
	}

	target.Store(&Target{Handle: 0x5F, Width: 1024, Height: 768})
	if err := h.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if len(first.rects) != 1 {
		t.Errorf("stale overlay received %d rectangles, expected 1", len(first.rects))
	}
	want := Rect{Width: 1024, Height: 768}
	if got := second.rects[len(second.rects)-1]; got != want {
		t.Errorf("expected refreshed rectangle %+v, got %+v", want, got)
	}
}

func TestRefresh_Unbound(t *testing.T) {
	h := newTestHandler(t, staticTarget(Target{Handle: 0x5F, Width: 512, Height: 512}))
	if err := h.Refresh(); err != nil {
		t.Errorf("expected nil error while unbound, got %v", err)
	}
}

func TestHandle_ConcurrentPosters(t *testing.T) {
	h := newTestHandler(t, staticTarget(Target{Handle: 0x5F, Width: 640, Height: 480}))

	var wg sync.WaitGroup
	var drops, passes atomic.Uint64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			elem := &fakeElement{}
			for j := 0; j < 100; j++ {
				kind := Kind(j % 3)
				switch h.Handle(Message{Kind: kind, Element: elem}) {
				case Drop:
					drops.Add(1)
				case Pass:
					passes.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()

	s := h.Stats()
	if passes.Load() != s.Passed {
		t.Errorf("pass count mismatch: replies=%d stats=%d", passes.Load(), s.Passed)
	}
	if drops.Load() != s.ContextsSupplied+s.HandlesSupplied+s.Failures {
		t.Errorf("drop count mismatch: replies=%d stats=%+v", drops.Load(), s)
	}
}

func TestIsDisplayContextType(t *testing.T) {
	for ctxType, want := range map[string]bool{
		WaylandDisplayContextType: true,
		WlDisplayContextType:      true,
		"gst.gl.GLDisplay":        false,
		"":                        false,
	} {
		if got := IsDisplayContextType(ctxType); got != want {
			t.Errorf("IsDisplayContextType(%q) = %v, want %v", ctxType, got, want)
		}
	}
}
