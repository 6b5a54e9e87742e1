// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"groove/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	TickRate  int             `yaml:"tick_rate"` // Frames per second of the owning loop.
	Playback  PlaybackConfig  `yaml:"playback"`  // Ramp and dual-track settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Frequency analysis settings.
	Output    OutputConfig    `yaml:"output"`    // Audio output device settings.
	Transport TransportConfig `yaml:"transport"` // Renderer feed settings (WebSocket, UDP).
	Catalog   CatalogConfig   `yaml:"catalog"`   // Albums and their clean/dirty sources.
}

// PlaybackConfig holds the rate ramp and synchronizer tuning.
type PlaybackConfig struct {
	Inertia       float64       `yaml:"inertia"`        // Rate units per second while ramping.
	MinSafeRate   float64       `yaml:"min_safe_rate"`  // Lowest nonzero playback rate.
	FadeThreshold float64       `yaml:"fade_threshold"` // Rate below which volume fades on ramp-down.
	FadeCurve     string        `yaml:"fade_curve"`     // Easing curve for the fade ("linear", "in-quad", ...).
	SyncEpsilon   float64       `yaml:"sync_epsilon"`   // Allowed clean/dirty drift in seconds.
	ResumeSettle  time.Duration `yaml:"resume_settle"`  // Delay between ready and automatic resume after a swap.
}

// AnalysisConfig holds analyser settings.
type AnalysisConfig struct {
	FFTSize     int     `yaml:"fft_size"`     // Power of 2; bins = fft_size / 2.
	Smoothing   float64 `yaml:"smoothing"`    // Inter-frame smoothing constant in [0,1).
	MinDecibels float64 `yaml:"min_decibels"` // Magnitude mapped to byte 0.
	MaxDecibels float64 `yaml:"max_decibels"` // Magnitude mapped to byte 255.
	Window      string  `yaml:"window"`       // Window function name (e.g., "Blackman", "Hann").
}

// OutputConfig holds settings related to the audio output device.
type OutputConfig struct {
	Enabled         bool    `yaml:"enabled"`           // Play audio through PortAudio.
	Device          int     `yaml:"device"`            // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate of the graph and the device in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per device callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
}

// TransportConfig holds settings related to sending frames to renderers.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve JSON frames over WebSocket.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address, e.g. ":8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary snapshot packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // e.g. "127.0.0.1:9090".
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// CatalogConfig lists the albums the player can switch between.
type CatalogConfig struct {
	Default string  `yaml:"default"` // Title of the album loaded at startup.
	Albums  []Album `yaml:"albums"`
}

// Album pairs the clean and dirty mixes of one song with its tempo.
type Album struct {
	Title string  `yaml:"title"`
	Clean string  `yaml:"clean"`
	Dirty string  `yaml:"dirty"`
	BPM   float64 `yaml:"bpm"`
}

// Find returns the album with the given title.
func (c CatalogConfig) Find(title string) (Album, bool) {
	for _, a := range c.Albums {
		if strings.EqualFold(a.Title, title) {
			return a, true
		}
	}
	return Album{}, false
}

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		TickRate: DefaultTickRate,
		Playback: PlaybackConfig{
			Inertia:       DefaultInertia,
			MinSafeRate:   DefaultMinSafeRate,
			FadeThreshold: DefaultFadeThreshold,
			FadeCurve:     DefaultFadeCurve,
			SyncEpsilon:   DefaultSyncEpsilon,
			ResumeSettle:  DefaultResumeSettle,
		},
		Analysis: AnalysisConfig{
			FFTSize:     DefaultFFTSize,
			Smoothing:   DefaultSmoothing,
			MinDecibels: DefaultMinDecibels,
			MaxDecibels: DefaultMaxDecibels,
			Window:      DefaultWindow,
		},
		Output: OutputConfig{
			Enabled:         true,
			Device:          DefaultOutputDevice,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    DefaultWebSocketAddr,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("groove.yaml", "config.yaml"). If no file is found, it
// uses built-in defaults. After loading defaults or from file, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"groove.yaml",
			"config.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks ranges that the engine relies on. Errors from every section are
// joined so a bad file reports all of its problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.TickRate <= 0 || c.TickRate > MaxTickRate {
		errs = append(errs, fmt.Errorf("tick_rate must be in (0, %d], got %d", MaxTickRate, c.TickRate))
	}

	p := c.Playback
	if p.Inertia <= 0 {
		errs = append(errs, fmt.Errorf("playback.inertia must be positive, got %g", p.Inertia))
	}
	if p.MinSafeRate <= 0 || p.MinSafeRate >= 1 {
		errs = append(errs, fmt.Errorf("playback.min_safe_rate must be in (0,1), got %g", p.MinSafeRate))
	}
	if p.FadeThreshold <= 0 || p.FadeThreshold > 1 {
		errs = append(errs, fmt.Errorf("playback.fade_threshold must be in (0,1], got %g", p.FadeThreshold))
	}
	if p.SyncEpsilon <= 0 {
		errs = append(errs, fmt.Errorf("playback.sync_epsilon must be positive, got %g", p.SyncEpsilon))
	}
	if p.ResumeSettle < 0 {
		errs = append(errs, fmt.Errorf("playback.resume_settle must not be negative, got %s", p.ResumeSettle))
	}

	a := c.Analysis
	if !bitint.IsPowerOfTwo(a.FFTSize) || a.FFTSize < MinFFTSize || a.FFTSize > MaxFFTSize {
		errs = append(errs, fmt.Errorf("analysis.fft_size must be a power of 2 in [%d, %d], got %d", MinFFTSize, MaxFFTSize, a.FFTSize))
	}
	if a.Smoothing < 0 || a.Smoothing >= 1 || math.IsNaN(a.Smoothing) {
		errs = append(errs, fmt.Errorf("analysis.smoothing must be in [0,1), got %g", a.Smoothing))
	}
	if a.MinDecibels >= a.MaxDecibels {
		errs = append(errs, fmt.Errorf("analysis.min_decibels (%g) must be below max_decibels (%g)", a.MinDecibels, a.MaxDecibels))
	}

	o := c.Output
	if o.SampleRate < MinSampleRate || o.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("output.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, o.SampleRate))
	}
	if o.Device < MinDeviceID {
		errs = append(errs, fmt.Errorf("output.device must be >= %d, got %d", MinDeviceID, o.Device))
	}
	if o.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("output.frames_per_buffer must be positive, got %d", o.FramesPerBuffer))
	}

	t := c.Transport
	if t.WebSocketEnabled && t.WebSocketAddr == "" {
		errs = append(errs, errors.New("transport.websocket_addr must be set when WebSocket is enabled"))
	}
	if t.UDPEnabled {
		if !strings.Contains(t.UDPTargetAddress, ":") {
			errs = append(errs, fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", t.UDPTargetAddress))
		}
		if t.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}

	for i, album := range c.Catalog.Albums {
		if album.Title == "" {
			errs = append(errs, fmt.Errorf("catalog.albums[%d].title must be set", i))
		}
		if album.Clean == "" {
			errs = append(errs, fmt.Errorf("catalog.albums[%d].clean must be set", i))
		}
	}
	if c.Catalog.Default != "" {
		if _, ok := c.Catalog.Find(c.Catalog.Default); !ok {
			errs = append(errs, fmt.Errorf("catalog.default '%s' is not a listed album", c.Catalog.Default))
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets deployments tweak a few settings without editing the file.
// ENV_DEBUG, ENV_LOG_LEVEL, ENV_FFT_SIZE, ENV_OUTPUT_ENABLED, ENV_WS_ADDR,
// ENV_UDP_ENABLED, ENV_UDP_TARGET_ADDRESS and ENV_UDP_SEND_INTERVAL are recognised.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok && val != "" {
		cfg.LogLevel = val
	}
	// ENV_FFT_SIZE
	if val, ok := os.LookupEnv("ENV_FFT_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Analysis.FFTSize = n
		}
	}
	// ENV_OUTPUT_ENABLED
	if val, ok := os.LookupEnv("ENV_OUTPUT_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Output.Enabled = bVal
		}
	}
	// ENV_WS_ADDR
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok && val != "" {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddr = val
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
		}
	}
}
