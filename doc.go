// Package surfaceplayer plays a looping list of media URIs, or a synthetic
// test pattern, inside a borderless Wayland surface.
//
// Video frames reach the compositor through the sink's video-overlay
// capability, never through a pixel copy. The player wires three lifecycles
// together on one locked OS thread: the window surface, the rendering context
// bound to it, and the media pipeline that is told asynchronously, from its
// own streaming thread, which surface to draw into and at what rectangle.
//
// # Quick Start
//
//	display, _ := wl.Connect("")
//	gpu, _ := egl.Open(display.DisplayHandle())
//
//	player, err := surfaceplayer.NewPlayer(surfaceplayer.Config{
//	    Width:  512,
//	    Height: 512,
//	    Args:   []string{"waylandsink", "file:///a.mp4", "file:///b.mp4"},
//	}, surfaceplayer.Deps{
//	    Connection: display,
//	    Shell:      display,
//	    GPU:        gpu,
//	    Builder:    gstbin.NewBuilder(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Blocks until ctx is cancelled or player.Stop() is called
//	if err := player.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Launch arguments
//
// Args is [video-sink, uri...]:
//
//   - with at least one URI, "playbin video-sink=<sink>" loops the URIs; the
//     next URI is queued when the current one is about to finish
//   - without URIs and Live set, a live test pattern plays into waylandsink
//   - without URIs and Live unset, the test pattern is routed once through
//     Args[0], which must be present
//
// # Errors
//
// Construction failures are fatal and returned by NewPlayer or Run:
// ErrMissingCompositorCapability, ErrNoCompatibleFormat and
// ErrPipelineConstruction. A runtime pipeline error is not: the pipeline is
// set to NULL, a *PlaybackError is recorded in Stats, and the window keeps
// presenting until the player is stopped.
//
// # Thread Safety
//
// Run must be called once. Stop and Stats are safe from any goroutine.
package surfaceplayer
