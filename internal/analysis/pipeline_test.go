package analysis

import (
	"errors"
	"testing"

	"groove/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toneSource renders a bin-centred sine into both channels.
type toneSource struct {
	samples []float32
	pos     int
}

func (s *toneSource) Render(dst []float32, _ float64) {
	for i := 0; i+1 < len(dst); i += 2 {
		v := s.samples[s.pos%len(s.samples)]
		dst[i] += v
		dst[i+1] += v
		s.pos++
	}
}

type brokenGraph struct{}

func (brokenGraph) Attach(graph.Tap) (graph.Connection, error) {
	return 0, errors.New("no analyser support")
}
func (brokenGraph) Disconnect(graph.Connection) {}
func (brokenGraph) Err() error                  { return nil }

func newTestGraph(t *testing.T) *graph.Context {
	t.Helper()
	g := graph.NewContext(testSampleRate)
	_, err := g.Connect(&toneSource{samples: sine(testFFTSize, 16, 0.5)})
	require.NoError(t, err)
	return g
}

func TestPipeline_SamplesWhileAudible(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Resume())
	p := NewPipeline(g, newTestAnalyser(t, 0), nil)
	require.False(t, p.Degraded())

	g.Render(testFFTSize)
	snap := p.Sample()
	require.Len(t, snap.Bins, testFFTSize/2)
	assert.Equal(t, 16, argmax(snap.Bins))
	assert.Positive(t, BandAverage(snap, 14, 18))
}

func TestPipeline_ZeroWhenNotAudible(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Resume())
	playing := false
	p := NewPipeline(g, newTestAnalyser(t, 0), func() bool { return playing })

	g.Render(testFFTSize)
	for _, v := range p.Sample().Bins {
		require.Zero(t, v)
	}

	playing = true
	assert.NotZero(t, p.Sample().Bins[16])

	playing = false
	for _, v := range p.Sample().Bins {
		require.Zero(t, v)
	}
}

func TestPipeline_ZeroWhileGraphSuspended(t *testing.T) {
	g := newTestGraph(t)
	p := NewPipeline(g, newTestAnalyser(t, 0), nil)

	for _, v := range p.Sample().Bins {
		require.Zero(t, v)
	}
}

func TestPipeline_DegradesWhenAttachFails(t *testing.T) {
	a := newTestAnalyser(t, 0)
	a.Feed(sine(testFFTSize, 16, 0.5))
	p := NewPipeline(brokenGraph{}, a, nil)

	assert.True(t, p.Degraded())
	assert.Equal(t, testFFTSize/2, p.BinCount())
	for i := 0; i < 3; i++ {
		for _, v := range p.Sample().Bins {
			require.Zero(t, v)
		}
	}
}

func TestPipeline_Close(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Resume())
	p := NewPipeline(g, newTestAnalyser(t, 0), nil)
	p.Close()
	p.Close()

	g.Render(testFFTSize)
	assert.Zero(t, p.Sample().Bins[16])
}

func TestPipelineSampleAllocations(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.Resume())
	p := NewPipeline(g, newTestAnalyser(t, 0.8), nil)

	g.Render(testFFTSize)
	p.Sample()
	allocs := testing.AllocsPerRun(100, func() {
		g.Render(128)
		_ = p.Sample()
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations per frame, got %.1f", allocs)
	}
}

func TestBandAverage(t *testing.T) {
	snap := FrequencySnapshot{Bins: []uint8{255, 0, 255, 51, 0}}
	tests := []struct {
		name       string
		start, end int
		want       float64
	}{
		{"single bin", 0, 0, 1},
		{"inclusive range", 0, 2, 2.0 / 3},
		{"tail", 3, 4, 0.1},
		{"inverted", 2, 1, 0},
		{"negative start", -1, 2, 0},
		{"past the end", 3, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BandAverage(snap, tt.start, tt.end), 1e-9)
		})
	}
	assert.Zero(t, BandAverage(FrequencySnapshot{}, 0, 0))
}

func TestBands(t *testing.T) {
	bins := make([]uint8, 6)
	bins[0], bins[1] = 255, 255
	levels := Bands(FrequencySnapshot{Bins: bins})
	assert.InDelta(t, 1, levels.Bass, 1e-9)
	assert.Zero(t, levels.Mid)
	assert.Zero(t, levels.High)

	assert.Equal(t, BandLevels{}, Bands(FrequencySnapshot{Bins: []uint8{1, 2}}))
}

func TestBandEnergies(t *testing.T) {
	a := newTestAnalyser(t, 0)
	bins := make([]uint8, a.FrequencyBinCount())
	// 31.25 Hz per bin: bins 2..7 fall in the bass band (60-250 Hz).
	for k := 2; k <= 7; k++ {
		bins[k] = 255
	}
	out := BandEnergies(make([]float64, len(SpectrumBands)), FrequencySnapshot{Bins: bins}, a, SpectrumBands)
	require.Len(t, out, len(SpectrumBands))
	assert.InDelta(t, 1, out[1], 1e-9)
	assert.Zero(t, out[0])
	assert.Zero(t, out[5])
}

func TestSnapshotClone(t *testing.T) {
	snap := FrequencySnapshot{Bins: []uint8{1, 2, 3}}
	c := snap.Clone()
	snap.Bins[0] = 9
	assert.Equal(t, uint8(1), c.Bins[0])
}
