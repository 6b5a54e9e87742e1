package engine

import (
	"fmt"
	"math"

	"groove/internal/analysis"
	"groove/internal/playback"
	"groove/internal/pulse"
	"groove/internal/rhythm"
)

// State is the externally visible session state.
type State struct {
	Playing       bool
	Ready         bool
	CurrentTime   float64
	Duration      float64
	Audible       playback.Track
	Rate          float64
	Volume        float64
	Transitioning bool
	ResumePending bool
	Album         string
	Bpm           float64
	Focused       bool
}

// Frame is everything published for one tick.
type Frame struct {
	Seq      uint64
	Elapsed  float64 // loop time in seconds
	State    State
	Bins     []uint8             // byte frequency data
	Bands    analysis.BandLevels // bass, mid, high
	Spectrum []float64           // one level per analysis.SpectrumBands entry
	Level    float64             // RMS of the analysed window
	Beat     rhythm.Beat
	HasBeat  bool
	Glow     float64
	Rings    []pulse.Ring
}

// State returns a snapshot of the session.
func (e *Engine) State() State {
	return State{
		Playing:       e.tracks.Playing(),
		Ready:         e.tracks.Ready(),
		CurrentTime:   e.tracks.CurrentTime(),
		Duration:      e.tracks.Duration(),
		Audible:       e.tracks.Audible(),
		Rate:          e.tracks.Rate(),
		Volume:        e.tracks.Volume(),
		Transitioning: e.tracks.Transitioning(),
		ResumePending: e.tracks.ResumePending(),
		Album:         e.album.Title,
		Bpm:           e.beats.Bpm(),
		Focused:       e.focused,
	}
}

// FormatTime renders seconds as m:ss. Negative and non-finite values read
// as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
