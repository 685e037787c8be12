package config

import (
	"fmt"
	"strings"
)

const (
	DefaultWidth  = 512
	DefaultHeight = 512
	DefaultTopic  = "surface-player/events"
)

// DefaultClearColor is opaque green
var DefaultClearColor = []float32{0, 1, 0, 1}

// Validate checks the configuration and fills defaults
func Validate(cfg *Config) error {
	// Window
	if cfg.Window.Width == 0 {
		cfg.Window.Width = DefaultWidth
	}
	if cfg.Window.Height == 0 {
		cfg.Window.Height = DefaultHeight
	}
	if cfg.Window.Width < 0 || cfg.Window.Height < 0 {
		return fmt.Errorf("window size must be > 0, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if len(cfg.Window.ClearColor) == 0 {
		cfg.Window.ClearColor = append([]float32(nil), DefaultClearColor...)
	}
	if len(cfg.Window.ClearColor) != 4 {
		return fmt.Errorf("window.clear_color must have 4 components (RGBA), got %d", len(cfg.Window.ClearColor))
	}
	for i, c := range cfg.Window.ClearColor {
		if c < 0 || c > 1 {
			return fmt.Errorf("window.clear_color[%d] must be in [0,1], got %g", i, c)
		}
	}

	// Loop
	if cfg.Loop.FrameIntervalMS < 0 {
		return fmt.Errorf("loop.frame_interval_ms must be >= 0")
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
		cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got '%s'", cfg.Log.Level)
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json', got '%s'", cfg.Log.Format)
	}

	// MQTT (optional)
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = DefaultTopic
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "surface-player"
	}
	if cfg.MQTT.Encoding == "" {
		cfg.MQTT.Encoding = "json"
	}
	if cfg.MQTT.Encoding != "json" && cfg.MQTT.Encoding != "msgpack" {
		return fmt.Errorf("mqtt.encoding must be 'json' or 'msgpack', got '%s'", cfg.MQTT.Encoding)
	}
	if cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
	}

	return nil
}
