package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete surface-player configuration
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Loop      LoopConfig      `yaml:"loop"`
	Log       LogConfig       `yaml:"log"`
	GStreamer GStreamerConfig `yaml:"gstreamer"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// WindowConfig contains surface settings
type WindowConfig struct {
	Width      int       `yaml:"width"`       // initial width in pixels (default: 512)
	Height     int       `yaml:"height"`      // initial height in pixels (default: 512)
	ClearColor []float32 `yaml:"clear_color"` // RGBA in [0,1] (default: [0, 1, 0, 1])
}

// PlaybackConfig contains pipeline settings
type PlaybackConfig struct {
	Live bool `yaml:"live"` // live test pattern when no content URI is given
}

// LoopConfig contains main loop settings
type LoopConfig struct {
	FrameIntervalMS int `yaml:"frame_interval_ms"` // sleep between presents, 0 = tight loop
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// GStreamerConfig contains GStreamer runtime settings
type GStreamerConfig struct {
	Debug string `yaml:"debug"` // exported as GST_DEBUG before gst init
}

// MQTTConfig contains the optional event publisher settings
type MQTTConfig struct {
	Broker   string `yaml:"broker"` // empty disables publishing
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Encoding string `yaml:"encoding"` // json, msgpack
	QoS      byte   `yaml:"qos"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	// Validate only fills defaults on an empty config
	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("config: default configuration is invalid: %v", err))
	}
	return cfg
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
