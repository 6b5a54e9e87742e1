package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
catalog:
  default: Night Drive
  albums:
    - title: Night Drive
      clean: night-clean.wav
      dirty: night-dirty.wav
      bpm: 120
    - title: Demo
      clean: demo.wav
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "groove.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCatalogCommand(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"catalog", "--config", writeConfig(t, testCatalog)})
	require.NoError(t, root.Execute())

	s := out.String()
	assert.Contains(t, s, "[0] Night Drive")
	assert.Contains(t, s, "(default)")
	assert.Contains(t, s, "Dirty: night-dirty.wav")
	assert.Contains(t, s, "Tempo: 120.0 bpm (0:00.500 per beat)")
	assert.Contains(t, s, "[1] Demo")
	assert.Contains(t, s, "Dirty: none")
	assert.Contains(t, s, "Tempo: none bpm (- per beat)")
}

func TestCatalogCommand_Empty(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"catalog", "--config", writeConfig(t, "tick_rate: 30\n")})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "No albums configured.")
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	root := NewRootCommand()
	require.NoError(t, root.ParseFlags([]string{
		"--album", "Demo",
		"--device", "3",
		"--no-output",
		"--ws", "127.0.0.1:0",
		"--udp", "127.0.0.1:9999",
	}))
	opts := &options{
		configPath: writeConfig(t, testCatalog),
		album:      "Demo",
		device:     3,
		noOutput:   true,
		wsAddr:     "127.0.0.1:0",
		udpTarget:  "127.0.0.1:9999",
	}

	cfg, err := loadConfig(root, opts)
	require.NoError(t, err)
	assert.Equal(t, "Demo", cfg.Catalog.Default)
	assert.Equal(t, 3, cfg.Output.Device)
	assert.False(t, cfg.Output.Enabled)
	assert.True(t, cfg.Transport.WebSocketEnabled)
	assert.Equal(t, "127.0.0.1:0", cfg.Transport.WebSocketAddr)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Transport.UDPTargetAddress)
}

func TestLoadConfig_UnsetFlagsKeepFile(t *testing.T) {
	root := NewRootCommand()
	opts := &options{configPath: writeConfig(t, testCatalog), album: "ignored"}

	cfg, err := loadConfig(root, opts)
	require.NoError(t, err)
	assert.Equal(t, "Night Drive", cfg.Catalog.Default)
	assert.True(t, cfg.Output.Enabled)
	assert.False(t, cfg.Transport.WebSocketEnabled)
}

func TestLoadConfig_UnknownAlbum(t *testing.T) {
	root := NewRootCommand()
	require.NoError(t, root.ParseFlags([]string{"--album", "Nope"}))
	opts := &options{configPath: writeConfig(t, testCatalog), album: "Nope"}

	_, err := loadConfig(root, opts)
	assert.ErrorContains(t, err, "catalog.default 'Nope' is not a listed album")
}

func TestVersionFlag(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "groove")
}
