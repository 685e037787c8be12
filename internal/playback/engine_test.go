package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/e7canasta/surface-player/internal/eventbus"
	"github.com/e7canasta/surface-player/internal/handoff"
	"github.com/e7canasta/surface-player/internal/playlist"
)

type fakePipeline struct {
	mu          sync.Mutex
	uris        []string
	states      []string
	queue       []BusMessage
	aboutToEnd  func()
	syncHandler func(handoff.Message) handoff.Reply
	playErr     error
	closed      int
}

func (p *fakePipeline) Name() string { return "pipeline0" }

func (p *fakePipeline) SetURI(uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uris = append(p.uris, uri)
	return nil
}

func (p *fakePipeline) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, "PLAYING")
	return p.playErr
}

func (p *fakePipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, "NULL")
	return nil
}

func (p *fakePipeline) OnAboutToFinish(fn func()) error {
	p.aboutToEnd = fn
	return nil
}

func (p *fakePipeline) SetSyncHandler(fn func(handoff.Message) handoff.Reply) {
	p.syncHandler = fn
}

func (p *fakePipeline) Pop() (BusMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return BusMessage{}, false
	}
	msg := p.queue[0]
	p.queue = p.queue[1:]
	return msg, true
}

func (p *fakePipeline) Close() error {
	p.closed++
	return nil
}

func (p *fakePipeline) post(msg BusMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, msg)
}

func (p *fakePipeline) lastState() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return ""
	}
	return p.states[len(p.states)-1]
}

type fakeBuilder struct {
	pipeline     *fakePipeline
	err          error
	descriptions []string
}

func (b *fakeBuilder) Build(description string) (Pipeline, error) {
	b.descriptions = append(b.descriptions, description)
	if b.err != nil {
		return nil, b.err
	}
	return b.pipeline, nil
}

func newTestHandoff(t *testing.T) *handoff.Handler {
	t.Helper()
	h, err := handoff.NewHandler(0xD15, func() handoff.Target {
		return handoff.Target{Handle: 0x5F, Width: 512, Height: 512}
	})
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	return h
}

func newTestEngine(t *testing.T, p *fakePipeline, pl *playlist.Playlist, bus *eventbus.Bus) *Engine {
	t.Helper()
	e, err := NewEngine(&fakeBuilder{pipeline: p}, Options{
		Playlist:  pl,
		Handoff:   newTestHandoff(t),
		Events:    bus,
		SessionID: "session-1",
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func TestNewEngine_Validation(t *testing.T) {
	if _, err := NewEngine(nil, Options{Handoff: newTestHandoff(t)}); err == nil {
		t.Error("expected error for nil builder")
	}
	if _, err := NewEngine(&fakeBuilder{}, Options{}); err == nil {
		t.Error("expected error for nil handoff handler")
	}
}

func TestStart_ConstructionFailure(t *testing.T) {
	cause := errors.New("no element \"bogussink\"")
	e, _ := NewEngine(&fakeBuilder{err: cause}, Options{Handoff: newTestHandoff(t)})

	err := e.Start("playbin video-sink=bogussink", "file:///a.mp4")
	if !errors.Is(err, ErrPipelineConstruction) {
		t.Fatalf("expected ErrPipelineConstruction, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected underlying cause to be preserved, got %v", err)
	}
	if e.State() != StateIdle {
		t.Errorf("expected idle state, got %s", e.State())
	}
}

func TestStart_PlaylistMode(t *testing.T) {
	p := &fakePipeline{}
	pl, _ := playlist.New([]string{"waylandsink", "file:///u1.mp4", "file:///u2.mp4"})
	e := newTestEngine(t, p, pl, nil)

	if err := e.Start("playbin video-sink=waylandsink", ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if len(p.uris) != 1 || p.uris[0] != "file:///u1.mp4" {
		t.Errorf("expected initial uri u1, got %v", p.uris)
	}
	if p.lastState() != "PLAYING" {
		t.Errorf("expected PLAYING, got %s", p.lastState())
	}
	if p.syncHandler == nil || p.aboutToEnd == nil {
		t.Fatal("expected sync handler and about-to-finish handler installed")
	}
	if e.State() != StatePlaying {
		t.Errorf("expected playing state, got %s", e.State())
	}

	if err := e.Start("playbin", ""); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStart_InstallsHandoffFilter(t *testing.T) {
	p := &fakePipeline{}
	e := newTestEngine(t, p, nil, nil)
	if err := e.Start("videotestsrc ! waylandsink", ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if reply := p.syncHandler(handoff.Message{Kind: handoff.KindOther}); reply != handoff.Pass {
		t.Errorf("expected unrelated message to pass, got %v", reply)
	}
	if reply := p.syncHandler(handoff.Message{Kind: handoff.KindPrepareWindowHandle}); reply != handoff.Drop {
		t.Errorf("expected prepare-window-handle to be dropped, got %v", reply)
	}
	if len(p.uris) != 0 {
		t.Errorf("fixed description must not get a uri, got %v", p.uris)
	}
}

// Scenario: playlist [sink, u1, u2, u3] starting at u1 plays u2, u3, u1 on
// successive about-to-finish notifications
func TestAdvanceOnAboutToFinish_Cycles(t *testing.T) {
	p := &fakePipeline{}
	pl, _ := playlist.New([]string{"waylandsink", "u1", "u2", "u3"})
	bus := eventbus.New()
	defer bus.Close()
	events := make(chan eventbus.Event, 8)
	bus.Subscribe("test", events)

	e := newTestEngine(t, p, pl, bus)
	if err := e.Start("playbin video-sink=waylandsink", ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		p.aboutToEnd()
	}

	want := []string{"u1", "u2", "u3", "u1"}
	if len(p.uris) != len(want) {
		t.Fatalf("expected uris %v, got %v", want, p.uris)
	}
	for i := range want {
		if p.uris[i] != want[i] {
			t.Errorf("uri %d: expected %s, got %s", i, want[i], p.uris[i])
		}
	}

	if s := e.Stats(); s.Advances != 3 || s.CurrentIndex != 1 {
		t.Errorf("unexpected stats %+v", s)
	}

	for i := 0; i < 4; i++ {
		select {
		case ev := <-events:
			if ev.Type != eventbus.NowPlaying || ev.SessionID != "session-1" || ev.ID == "" {
				t.Errorf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for now-playing events")
		}
	}
}

func TestAdvanceOnAboutToFinish_ConcurrentWithShutdown(t *testing.T) {
	p := &fakePipeline{}
	pl, _ := playlist.New([]string{"waylandsink", "u1", "u2"})
	e := newTestEngine(t, p, pl, nil)
	e.Start("playbin", "")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			e.AdvanceOnAboutToFinish()
		}
	}()
	if err := e.Shutdown(); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
	wg.Wait()

	if e.State() != StateClosed {
		t.Errorf("expected closed, got %s", e.State())
	}
}

// Scenario: an error message stops the pipeline, leaves the engine usable,
// and reports the source's message
func TestPump_ErrorStopsSession(t *testing.T) {
	p := &fakePipeline{}
	bus := eventbus.New()
	defer bus.Close()
	events := make(chan eventbus.Event, 8)
	bus.Subscribe("test", events)

	e := newTestEngine(t, p, nil, bus)
	e.Start("playbin video-sink=waylandsink", "file:///broken.mp4")
	<-events // now playing

	p.post(BusMessage{Kind: BusError, Source: "decodebin0", Text: "decode failed", Debug: "gstdecodebin.c:123"})

	if n := e.Pump(); n != 1 {
		t.Fatalf("expected 1 message pumped, got %d", n)
	}
	if p.lastState() != "NULL" {
		t.Errorf("expected pipeline set to NULL, got %s", p.lastState())
	}
	if e.State() != StateStopped {
		t.Errorf("expected stopped state, got %s", e.State())
	}

	perr := e.LastError()
	if perr == nil || perr.Message != "decode failed" || perr.Source != "decodebin0" {
		t.Fatalf("unexpected last error %+v", perr)
	}
	if perr.Category != ErrCategoryCodec {
		t.Errorf("expected codec category, got %s", perr.Category)
	}
	if s := e.Stats(); s.ErrorsCodec != 1 || s.Messages != 1 {
		t.Errorf("unexpected stats %+v", s)
	}

	select {
	case ev := <-events:
		if ev.Type != eventbus.PlaybackError || ev.Error != "decode failed" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for playback error event")
	}

	if p.closed != 0 {
		t.Error("pipeline closed on runtime error; only Shutdown may release it")
	}
}

func TestStart_PlayRefusedIsRuntimeError(t *testing.T) {
	p := &fakePipeline{playErr: errors.New("state change failure")}
	e := newTestEngine(t, p, nil, nil)

	if err := e.Start("videotestsrc ! waylandsink", ""); err != nil {
		t.Fatalf("expected nil error for refused PLAYING, got %v", err)
	}
	if e.State() != StateStopped {
		t.Errorf("expected stopped state, got %s", e.State())
	}
	if e.LastError() == nil {
		t.Error("expected last error recorded")
	}
}

func TestPump_Bounded(t *testing.T) {
	p := &fakePipeline{}
	e := newTestEngine(t, p, nil, nil)
	e.Start("videotestsrc ! waylandsink", "")

	for i := 0; i < MaxMessagesPerPump+10; i++ {
		p.post(BusMessage{Kind: BusStateChanged, Source: "pipeline0", OldState: "PAUSED", NewState: "PLAYING"})
	}

	if n := e.Pump(); n != MaxMessagesPerPump {
		t.Errorf("expected %d, got %d", MaxMessagesPerPump, n)
	}
	if n := e.Pump(); n != 10 {
		t.Errorf("expected 10 remaining, got %d", n)
	}
	if n := e.Pump(); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}

func TestPump_EOSAndWarnings(t *testing.T) {
	p := &fakePipeline{}
	e := newTestEngine(t, p, nil, nil)
	e.Start("videotestsrc num-buffers=10 ! waylandsink", "")

	p.post(BusMessage{Kind: BusWarning, Source: "waylandsink0", Text: "late buffers"})
	p.post(BusMessage{Kind: BusEOS, Source: "pipeline0"})
	e.Pump()

	if e.State() != StateFinished {
		t.Errorf("expected finished state, got %s", e.State())
	}
	if s := e.Stats(); s.Warnings != 1 {
		t.Errorf("expected 1 warning, got %d", s.Warnings)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	p := &fakePipeline{}
	e := newTestEngine(t, p, nil, nil)
	e.Start("videotestsrc ! waylandsink", "")

	for i := 0; i < 3; i++ {
		if err := e.Shutdown(); err != nil {
			t.Fatalf("Shutdown %d failed: %v", i, err)
		}
	}
	if p.closed != 1 {
		t.Errorf("expected pipeline closed once, got %d", p.closed)
	}
	if e.Pump() != 0 {
		t.Error("Pump after Shutdown should be a no-op")
	}
	if err := e.Start("videotestsrc ! waylandsink", ""); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		message string
		debug   string
		want    ErrorCategory
	}{
		{"decode failed", "", ErrCategoryCodec},
		{"Internal data stream error.", "streaming stopped, reason not-negotiated", ErrCategoryCodec},
		{"Resource not found.", "gstfilesrc.c: No such file", ErrCategoryResource},
		{"Could not open resource for reading.", "", ErrCategoryResource},
		{"Could not connect to server", "", ErrCategoryNetwork},
		{"Connection timed out", "", ErrCategoryNetwork},
		{"Something odd", "", ErrCategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := ClassifyError(tt.message, tt.debug); got != tt.want {
				t.Errorf("ClassifyError(%q, %q) = %s, want %s", tt.message, tt.debug, got, tt.want)
			}
		})
	}
}

func TestPlaybackError_Message(t *testing.T) {
	err := &PlaybackError{Source: "decodebin0", Message: "decode failed", Category: ErrCategoryCodec}
	if got := err.Error(); got != "playback error [codec] from decodebin0: decode failed" {
		t.Errorf("unexpected message %q", got)
	}
}
