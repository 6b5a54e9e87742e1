// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestDefault_MatchesEngineConstants(t *testing.T) {
	t.Parallel()
	cfg := Default()

	assert.Equal(t, 0.5, cfg.Playback.Inertia)
	assert.Equal(t, 0.1, cfg.Playback.MinSafeRate)
	assert.Equal(t, 0.5, cfg.Playback.FadeThreshold)
	assert.Equal(t, 0.1, cfg.Playback.SyncEpsilon)
	assert.Equal(t, 100*time.Millisecond, cfg.Playback.ResumeSettle)
	assert.Equal(t, 256, cfg.Analysis.FFTSize)
	assert.Equal(t, -100.0, cfg.Analysis.MinDecibels)
	assert.Equal(t, -30.0, cfg.Analysis.MaxDecibels)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
tick_rate: 30
playback:
  inertia: 0.25
  resume_settle: 250ms
analysis:
  fft_size: 1024
  window: Hann
output:
  enabled: false
catalog:
  default: Band Of Skulls
  albums:
    - title: Band Of Skulls
      clean: media/skulls-clean.wav
      dirty: media/skulls-dirty.wav
      bpm: 144
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.TickRate)
	assert.Equal(t, 0.25, cfg.Playback.Inertia)
	// Unset keys keep their defaults.
	assert.Equal(t, 0.1, cfg.Playback.MinSafeRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Playback.ResumeSettle)
	assert.Equal(t, 1024, cfg.Analysis.FFTSize)
	assert.Equal(t, "Hann", cfg.Analysis.Window)
	assert.False(t, cfg.Output.Enabled)

	album, ok := cfg.Catalog.Find("band of skulls")
	require.True(t, ok)
	assert.Equal(t, 144.0, album.BPM)
	assert.Equal(t, "media/skulls-dirty.wav", album.Dirty)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"fft not power of two", func(c *Config) { c.Analysis.FFTSize = 300 }, "analysis.fft_size"},
		{"fft too small", func(c *Config) { c.Analysis.FFTSize = 16 }, "analysis.fft_size"},
		{"smoothing one", func(c *Config) { c.Analysis.Smoothing = 1 }, "analysis.smoothing"},
		{"decibel range inverted", func(c *Config) { c.Analysis.MinDecibels = -20 }, "min_decibels"},
		{"zero inertia", func(c *Config) { c.Playback.Inertia = 0 }, "playback.inertia"},
		{"min safe rate too high", func(c *Config) { c.Playback.MinSafeRate = 1 }, "playback.min_safe_rate"},
		{"negative settle", func(c *Config) { c.Playback.ResumeSettle = -time.Second }, "resume_settle"},
		{"tick rate zero", func(c *Config) { c.TickRate = 0 }, "tick_rate"},
		{"sample rate low", func(c *Config) { c.Output.SampleRate = 100 }, "output.sample_rate"},
		{"udp target missing port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, "udp_target_address"},
		{"album without clean", func(c *Config) {
			c.Catalog.Albums = []Album{{Title: "x"}}
		}, "catalog.albums[0].clean"},
		{"unknown default album", func(c *Config) { c.Catalog.Default = "nope" }, "catalog.default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.TickRate = -1
	cfg.Analysis.FFTSize = 3

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_rate")
	assert.Contains(t, err.Error(), "analysis.fft_size")
}

// Env overrides mutate process state, so these tests are not parallel.
func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_FFT_SIZE", "512")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_UDP_SEND_INTERVAL", "10ms")
	t.Setenv("ENV_WS_ADDR", ":9999")

	path := writeTempConfig(t, "analysis:\n  fft_size: 2048\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Analysis.FFTSize)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, 10*time.Millisecond, cfg.Transport.UDPSendInterval)
	assert.True(t, cfg.Transport.WebSocketEnabled)
	assert.Equal(t, ":9999", cfg.Transport.WebSocketAddr)
}

func TestLoadConfig_EnvOverrideInvalidatesConfig(t *testing.T) {
	t.Setenv("ENV_FFT_SIZE", "100")
	path := writeTempConfig(t, "debug: true\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
