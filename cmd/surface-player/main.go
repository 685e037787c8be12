//go:build linux && cgo

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	surfaceplayer "github.com/e7canasta/surface-player"
	"github.com/e7canasta/surface-player/internal/config"
	"github.com/e7canasta/surface-player/internal/egl"
	"github.com/e7canasta/surface-player/internal/emitter"
	"github.com/e7canasta/surface-player/internal/eventbus"
	"github.com/e7canasta/surface-player/internal/gstbin"
	"github.com/e7canasta/surface-player/internal/wl"
)

// Version information
const version = "v0.1.0"

func init() {
	rootCmd.Flags().StringP("config", "c", "", "Path to a YAML configuration file")
	lo.Must0(rootCmd.MarkFlagFilename("config", "yaml", "yml"))

	rootCmd.Flags().Bool("live", false, "Play a live test pattern into waylandsink when no URI is given")
	rootCmd.Flags().Int("width", 0, "Initial surface width in pixels (default 512)")
	rootCmd.Flags().Int("height", 0, "Initial surface height in pixels (default 512)")
	rootCmd.Flags().Int("frame-interval", 0, "Milliseconds to sleep between presents (0 = tight loop)")
	rootCmd.Flags().String("display", "", "Wayland display name (default $WAYLAND_DISPLAY)")

	rootCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().String("log-format", "", "Log format: text, json")
	rootCmd.Flags().Bool("debug", false, "Enable debug logging (same as --log-level=debug)")
	rootCmd.Flags().String("gst-debug", "", "GST_DEBUG value exported before GStreamer initializes")

	rootCmd.Flags().String("mqtt-broker", "", "Publish playback events to this MQTT broker")
	rootCmd.Flags().String("mqtt-topic", "", "MQTT topic prefix for playback events")
	rootCmd.Flags().String("mqtt-encoding", "", "MQTT payload encoding: json, msgpack")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("mqtt-encoding", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "msgpack"}, cobra.ShellCompDirectiveDefault
	}))

	rootCmd.Flags().BoolP("version", "v", false, "Print the version and exit")
}

var rootCmd = &cobra.Command{
	Use:   "surface-player <video-sink> [uri...]",
	Short: "Play looping media or a test pattern inside a Wayland surface",
	Long: `surface-player opens a borderless Wayland surface, clears it with a solid
color every frame and lets a GStreamer sink draw video into it through the
video overlay.

  surface-player waylandsink file:///a.mp4 file:///b.mp4   loop the URIs
  surface-player --live                                    live test pattern
  surface-player glimagesink                               test pattern once`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("version")) {
			fmt.Printf("surface-player %s\n", version)
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		setupLogging(cfg.Log)

		return run(cmd.Context(), cfg, args, lo.Must(cmd.Flags().GetString("display")))
	},
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("surface-player: shutdown signal received", "signal", sig.String())
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "surface-player: %s\n", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the optional config file and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	cfg := config.Default()
	if path := lo.Must(flags.GetString("config")); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Changed("live") {
		cfg.Playback.Live = lo.Must(flags.GetBool("live"))
	}
	if flags.Changed("width") {
		cfg.Window.Width = lo.Must(flags.GetInt("width"))
	}
	if flags.Changed("height") {
		cfg.Window.Height = lo.Must(flags.GetInt("height"))
	}
	if flags.Changed("frame-interval") {
		cfg.Loop.FrameIntervalMS = lo.Must(flags.GetInt("frame-interval"))
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = lo.Must(flags.GetString("log-level"))
	}
	if lo.Must(flags.GetBool("debug")) {
		cfg.Log.Level = "debug"
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = lo.Must(flags.GetString("log-format"))
	}
	if flags.Changed("gst-debug") {
		cfg.GStreamer.Debug = lo.Must(flags.GetString("gst-debug"))
	}
	if flags.Changed("mqtt-broker") {
		cfg.MQTT.Broker = lo.Must(flags.GetString("mqtt-broker"))
	}
	if flags.Changed("mqtt-topic") {
		cfg.MQTT.Topic = lo.Must(flags.GetString("mqtt-topic"))
	}
	if flags.Changed("mqtt-encoding") {
		cfg.MQTT.Encoding = lo.Must(flags.GetString("mqtt-encoding"))
	}

	// Overrides may have produced invalid values
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(ctx context.Context, cfg *config.Config, args []string, displayName string) error {
	// GStreamer reads GST_DEBUG once, during init
	if cfg.GStreamer.Debug != "" {
		if err := os.Setenv("GST_DEBUG", cfg.GStreamer.Debug); err != nil {
			return fmt.Errorf("failed to set GST_DEBUG: %w", err)
		}
	}
	builder := gstbin.NewBuilder()

	display, err := wl.Connect(displayName)
	if err != nil {
		return err
	}
	// Run closes the display on every path once it starts; this covers the
	// failures before that
	started := false
	defer func() {
		if !started {
			display.Close()
		}
	}()

	gpu, err := egl.Open(display.DisplayHandle())
	if err != nil {
		return err
	}

	bus := eventbus.New()
	defer bus.Close()

	player, err := surfaceplayer.NewPlayer(surfaceplayer.Config{
		Width:         cfg.Window.Width,
		Height:        cfg.Window.Height,
		ClearColor:    clearColor(cfg.Window.ClearColor),
		Args:          args,
		Live:          cfg.Playback.Live,
		FrameInterval: time.Duration(cfg.Loop.FrameIntervalMS) * time.Millisecond,
	}, surfaceplayer.Deps{
		Connection: display,
		Shell:      display,
		GPU:        gpu,
		Builder:    builder,
		Events:     bus,
	})
	if err != nil {
		gpu.Terminate()
		return err
	}

	if err := gstbin.CheckAvailable(player.RequiredElements()...); err != nil {
		gpu.Terminate()
		return err
	}

	if cfg.MQTT.Broker != "" {
		stop, err := startEmitter(ctx, cfg.MQTT, bus)
		if err != nil {
			// Events are optional; playback goes on without them
			slog.Warn("surface-player: mqtt events disabled", "error", err)
		} else {
			defer stop()
		}
	}

	started = true
	runErr := player.Run(ctx)

	s := player.Stats()
	slog.Info("surface-player: session summary",
		"session_id", s.SessionID,
		"mode", s.Mode,
		"uptime", s.Uptime.Round(time.Millisecond),
		"frames", s.Frames,
		"fps_mean", fmt.Sprintf("%.1f", s.Cadence.FPSMean),
		"resizes", s.Resizes,
		"advances", s.Playback.Advances,
		"playback_state", s.Playback.State,
		"last_error", s.Playback.LastError,
	)

	return runErr
}

func startEmitter(ctx context.Context, cfg config.MQTTConfig, bus *eventbus.Bus) (func(), error) {
	em, err := emitter.NewMQTTEmitter(cfg)
	if err != nil {
		return nil, err
	}
	if err := em.Connect(ctx); err != nil {
		return nil, err
	}

	// Keep forwarding through teardown so the session_ended event goes out
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := em.Run(ctx, bus); err != nil {
			slog.Error("surface-player: mqtt emitter stopped", "error", err)
		}
	}()

	return func() {
		cancel()
		<-done
		em.Disconnect()
	}, nil
}

func clearColor(c []float32) *surfaceplayer.Color {
	return &surfaceplayer.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}
