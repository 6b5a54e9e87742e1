package log

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  LogLevel
		known bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, ok)
		})
	}
}

func TestSetLevelRoundTrip(t *testing.T) {
	orig := GetLevel()
	t.Cleanup(func() { SetLevel(orig) })

	for _, lvl := range []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		SetLevel(lvl)
		assert.Equal(t, lvl, GetLevel(), lvl.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	orig := GetLevel()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		logger = newLogger(os.Stderr)
		SetLevel(orig)
	})

	SetLevel(LevelWarn)
	Infof("Engine: %s", "hidden")
	Warnf("Engine: %s", "shown")
	WithFields(Fields{"track": "clean"}).Warn("Engine: with fields")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "track=clean")
}
