// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"groove/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFFTSize    = 256
	testSampleRate = 8000
)

// sine returns n samples of a sine wave centred on bin.
func sine(n, bin int, amp float64) []float32 {
	return utils.SineWave(n, testSampleRate, float64(bin)*testSampleRate/testFFTSize, amp)
}

func newTestAnalyser(t testing.TB, smoothing float64) *Analyser {
	t.Helper()
	cfg := DefaultAnalyserConfig()
	cfg.FFTSize = testFFTSize
	cfg.Smoothing = smoothing
	cfg.MaxDecibels = 0
	a, err := NewAnalyser(cfg, testSampleRate)
	require.NoError(t, err)
	return a
}

func argmax(bins []uint8) int { return utils.PeakBin(bins, 0, len(bins)-1) }

func TestNewAnalyser_Validation(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*AnalyserConfig)
		rate float64
	}{
		{"not a power of two", func(c *AnalyserConfig) { c.FFTSize = 300 }, 44100},
		{"too small", func(c *AnalyserConfig) { c.FFTSize = 16 }, 44100},
		{"too large", func(c *AnalyserConfig) { c.FFTSize = 65536 }, 44100},
		{"smoothing one", func(c *AnalyserConfig) { c.Smoothing = 1 }, 44100},
		{"negative smoothing", func(c *AnalyserConfig) { c.Smoothing = -0.1 }, 44100},
		{"inverted decibels", func(c *AnalyserConfig) { c.MinDecibels = -10 }, 44100},
		{"zero sample rate", func(c *AnalyserConfig) {}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAnalyserConfig()
			tt.mod(&cfg)
			_, err := NewAnalyser(cfg, tt.rate)
			assert.Error(t, err)
		})
	}
}

func TestAnalyser_SilenceIsZero(t *testing.T) {
	a := newTestAnalyser(t, 0.8)
	a.Feed(make([]float32, testFFTSize))

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)
	for i, v := range bins {
		require.Zerof(t, v, "bin %d", i)
	}
}

func TestAnalyser_SinePeaksAtItsBin(t *testing.T) {
	a := newTestAnalyser(t, 0)
	a.Feed(sine(testFFTSize, 16, 0.5))

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)

	assert.Equal(t, 16, argmax(bins))
	assert.Greater(t, bins[16], bins[100])
	assert.InDelta(t, 500.0, a.FrequencyForBin(16), 1e-9)
	assert.Equal(t, 16, a.BinForFrequency(500))
}

func TestAnalyser_KeepsNewestSamples(t *testing.T) {
	a := newTestAnalyser(t, 0)
	// An old tone followed by a full window of a new one.
	a.Feed(sine(testFFTSize, 40, 0.5))
	a.Feed(sine(testFFTSize*2, 16, 0.5))

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)
	assert.Equal(t, 16, argmax(bins))
}

func TestAnalyser_Smoothing(t *testing.T) {
	a := newTestAnalyser(t, 0.5)
	a.Feed(sine(testFFTSize, 16, 0.5))

	bins := make([]uint8, a.FrequencyBinCount())
	a.ByteFrequencyData(bins)
	first := bins[16]
	a.ByteFrequencyData(bins)
	second := bins[16]
	assert.Greater(t, second, first, "smoothed level should rise toward the input")

	a.Reset()
	a.ByteFrequencyData(bins)
	assert.Zero(t, bins[16])
}

func TestAnalyser_Level(t *testing.T) {
	a := newTestAnalyser(t, 0)
	assert.Zero(t, a.Level())
	a.Feed(sine(testFFTSize, 16, 1))
	assert.InDelta(t, 1/math.Sqrt2, a.Level(), 1e-3)
}

func TestParseWindowFunc(t *testing.T) {
	w, err := ParseWindowFunc(" Blackman ")
	require.NoError(t, err)
	assert.Equal(t, Blackman, w)

	w, err = ParseWindowFunc("hanning")
	require.NoError(t, err)
	assert.Equal(t, Hann, w)

	w, err = ParseWindowFunc("triangle")
	assert.Error(t, err)
	assert.Equal(t, Hann, w)
}

func TestAnalyserHotPath(t *testing.T) {
	a := newTestAnalyser(t, 0.8)
	block := sine(128, 16, 0.5)
	bins := make([]uint8, a.FrequencyBinCount())

	a.Feed(block)
	a.ByteFrequencyData(bins)
	allocs := testing.AllocsPerRun(100, func() {
		a.Feed(block)
		a.ByteFrequencyData(bins)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in analyser hot path, got %.1f", allocs)
	}
}

func BenchmarkByteFrequencyData(b *testing.B) {
	a := newTestAnalyser(b, 0.8)
	a.Feed(sine(testFFTSize, 16, 0.5))
	bins := make([]uint8, a.FrequencyBinCount())

	b.ReportAllocs()

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		a.ByteFrequencyData(bins)
	}
}
