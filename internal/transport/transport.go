// Package transport feeds engine frames to renderers outside the process.
package transport

import (
	"groove/internal/analysis"
	"groove/internal/engine"
	"groove/internal/pulse"
)

// Transport defines a generic interface for sending frames.
// Send is called on the engine loop and must not block.
type Transport interface {
	Send(f *engine.Frame) error
	Close() error
}

// Message is the JSON form of a frame. Unlike engine.Frame it owns its
// slices and may be kept.
type Message struct {
	Type     string             `json:"type"`
	Seq      uint64             `json:"seq"`
	Elapsed  float64            `json:"elapsed"`
	State    StateMessage       `json:"state"`
	Bins     []int              `json:"bins"`
	Bands    map[string]float64 `json:"bands"`
	Spectrum map[string]float64 `json:"spectrum"`
	Level    float64            `json:"level"`
	Beat     *BeatMessage       `json:"beat,omitempty"`
	Glow     float64            `json:"glow"`
	Rings    []RingMessage      `json:"rings,omitempty"`
}

// StateMessage mirrors engine.State.
type StateMessage struct {
	Playing     bool    `json:"playing"`
	Ready       bool    `json:"ready"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Audible     string  `json:"audible"`
	Rate        float64 `json:"rate"`
	Album       string  `json:"album"`
	Bpm         float64 `json:"bpm"`
}

type BeatMessage struct {
	Ordinal int     `json:"ordinal"`
	Time    float64 `json:"time"`
}

// RingMessage describes one live pulse ring.
type RingMessage struct {
	Ordinal   int     `json:"ordinal"`
	Progress  float64 `json:"progress"`
	Amplitude float64 `json:"amplitude"`
	Thickness float64 `json:"thickness"`
	Color     string  `json:"color"`
}

// NewMessage copies f into a Message.
func NewMessage(f *engine.Frame) Message {
	m := Message{
		Type:    "frame",
		Seq:     f.Seq,
		Elapsed: f.Elapsed,
		State: StateMessage{
			Playing:     f.State.Playing,
			Ready:       f.State.Ready,
			CurrentTime: f.State.CurrentTime,
			Duration:    f.State.Duration,
			Audible:     f.State.Audible.String(),
			Rate:        f.State.Rate,
			Album:       f.State.Album,
			Bpm:         f.State.Bpm,
		},
		Bins: make([]int, len(f.Bins)),
		Bands: map[string]float64{
			"bass": f.Bands.Bass,
			"mid":  f.Bands.Mid,
			"high": f.Bands.High,
		},
		Spectrum: make(map[string]float64, len(f.Spectrum)),
		Level:    f.Level,
		Glow:     f.Glow,
	}
	for i, b := range f.Bins {
		m.Bins[i] = int(b)
	}
	for i, v := range f.Spectrum {
		if i < len(analysis.SpectrumBands) {
			m.Spectrum[analysis.SpectrumBands[i].Name] = v
		}
	}
	if f.HasBeat {
		m.Beat = &BeatMessage{Ordinal: f.Beat.Ordinal, Time: f.Beat.Time}
	}
	for _, r := range f.Rings {
		m.Rings = append(m.Rings, ringMessage(r, f.Elapsed))
	}
	return m
}

func ringMessage(r pulse.Ring, now float64) RingMessage {
	return RingMessage{
		Ordinal:   r.Ordinal,
		Progress:  r.Progress(now),
		Amplitude: r.Amplitude,
		Thickness: r.Thickness,
		Color:     r.Color.Hex(),
	}
}
