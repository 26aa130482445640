// Package config holds the engine's runtime configuration: the audio
// format it mixes at, where to find a game's manifest, and the
// ambient logging/telemetry knobs. It follows the teacher's
// load-from-YAML-then-apply-env-overrides-then-validate shape.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSampleRate           = 44100
	DefaultChannels             = 2
	DefaultBufferFrames         = 1024
	DefaultChannelTableCapacity = 16
	DefaultCommandBufferSize    = 4
	DefaultLogLevel             = "info"
)

// Config holds all runtime configuration for an engine instance.
type Config struct {
	// Manifest location, per the public init(base_path, game_name, ...) contract.
	BasePath string `yaml:"base_path"`
	GameName string `yaml:"game_name"`

	// Output format the mixer produces.
	SampleRate   float64 `yaml:"sample_rate"`
	Channels     int     `yaml:"channels"`
	BufferFrames int     `yaml:"buffer_frames"`

	// Fixed-capacity channel table size. CommandBufferSize is validated
	// but not read elsewhere: the framer's lookback window is always
	// four bytes.
	ChannelTableCapacity int `yaml:"channel_table_capacity"`
	CommandBufferSize    int `yaml:"command_buffer_size"`

	// Whether the in-game ROM volume command is honored (§4.1 WPC-DCS 0xAA rule).
	RomControlsVolume bool `yaml:"rom_controls_volume"`

	// Logging.
	LogPath    string `yaml:"log_path"`
	LogLevel   string `yaml:"log_level"`
	LogConsole bool   `yaml:"log_console"`

	// Telemetry (EXPANSION, see internal/telemetry).
	TelemetryWebSocketAddr string `yaml:"telemetry_websocket_addr"`
	TelemetryUDPAddr       string `yaml:"telemetry_udp_addr"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		SampleRate:           DefaultSampleRate,
		Channels:             DefaultChannels,
		BufferFrames:         DefaultBufferFrames,
		ChannelTableCapacity: DefaultChannelTableCapacity,
		CommandBufferSize:    DefaultCommandBufferSize,
		LogLevel:             DefaultLogLevel,
		LogConsole:           true,
	}
}

// Load reads YAML configuration from path layered on top of defaults,
// applies environment overrides, and validates the result. An empty
// path skips the file read and returns defaults with env overrides applied.
func Load(path string) (*Config, error) {
	cfg := New()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %v", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferFrames <= 0 {
		return fmt.Errorf("buffer_frames must be positive, got %d", c.BufferFrames)
	}
	if c.ChannelTableCapacity <= 0 {
		return fmt.Errorf("channel_table_capacity must be positive, got %d", c.ChannelTableCapacity)
	}
	if c.CommandBufferSize <= 0 {
		return fmt.Errorf("command_buffer_size must be positive, got %d", c.CommandBufferSize)
	}
	return nil
}

// applyEnvOverrides layers ALTSOUND_* environment variables on top of
// whatever was loaded from file/defaults, mirroring the teacher's
// ENV_* override convention.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("ALTSOUND_SAMPLE_RATE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.SampleRate = f
		}
	}
	if v, ok := os.LookupEnv("ALTSOUND_CHANNELS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Channels = n
		}
	}
	if v, ok := os.LookupEnv("ALTSOUND_BUFFER_FRAMES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.BufferFrames = n
		}
	}
	if v, ok := os.LookupEnv("ALTSOUND_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("ALTSOUND_ROM_CONTROLS_VOLUME"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RomControlsVolume = b
		}
	}
}
