// Package pulse turns beats into expanding rings for visual consumers.
// Each ring's shape depends on where the beat falls in the bar.
package pulse

import (
	"math"

	"groove/internal/rhythm"

	"github.com/fogleman/ease"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Duration is how long a ring lives, in seconds.
	Duration = 1.5
	// MaxRadius is the radius a ring reaches at the end of its life.
	MaxRadius = 15.0

	wobbleSpatial  = 8 // waves around the circumference
	wobbleTemporal = 3 // radians per second
)

var (
	amplitudes = [rhythm.BeatsPerBar + 1]float64{1: 0.06, 2: 0.05, 3: 0.055, 4: 0.03}
	thickness  = [rhythm.BeatsPerBar + 1]float64{1: 0.036, 2: 0.024, 3: 0.012, 4: 0.006}

	// Gold is used normally, Teal while the cover is focused.
	Gold, _ = colorful.Hex("#ffd700")
	Teal, _ = colorful.Hex("#008080")
)

// Amplitude is the wobble amplitude for a beat ordinal.
func Amplitude(ordinal int) float64 {
	if ordinal < 1 || ordinal > rhythm.BeatsPerBar {
		return amplitudes[1]
	}
	return amplitudes[ordinal]
}

// Thickness is the relative ring thickness for a beat ordinal.
func Thickness(ordinal int) float64 {
	if ordinal < 1 || ordinal > rhythm.BeatsPerBar {
		return 0.005
	}
	return thickness[ordinal]
}

// Ring is a single pulse. Born is in the caller's clock, in seconds.
type Ring struct {
	Ordinal   int
	Born      float64
	Amplitude float64
	Thickness float64
	Color     colorful.Color
}

// New builds the ring for beat b created at now.
func New(b rhythm.Beat, now float64, focused bool) Ring {
	c := Gold
	if focused {
		c = Teal
	}
	return Ring{
		Ordinal:   b.Ordinal,
		Born:      now,
		Amplitude: Amplitude(b.Ordinal),
		Thickness: Thickness(b.Ordinal),
		Color:     c,
	}
}

// Progress is the ring's age as a fraction of Duration, in [0,1].
func (r Ring) Progress(now float64) float64 {
	return math.Max(0, math.Min(1, (now-r.Born)/Duration))
}

// Done reports whether the ring has run its course.
func (r Ring) Done(now float64) bool { return r.Progress(now) >= 1 }

func (r Ring) Radius(now float64) float64 { return r.Progress(now) * MaxRadius }

func (r Ring) Opacity(now float64) float64 { return 1 - r.Progress(now) }

// Wobble is the radial offset at angle theta, relative to a unit radius.
func (r Ring) Wobble(theta, now float64) float64 {
	return r.Amplitude * math.Sin(theta*wobbleSpatial+now*wobbleTemporal)
}

// Field is the set of live rings. The zero value is ready to use.
type Field struct {
	// Fade shapes how a ring's colour falls toward the background; nil is
	// linear.
	Fade  ease.Function
	rings []Ring
}

// Add starts a ring for b.
func (f *Field) Add(b rhythm.Beat, now float64, focused bool) Ring {
	r := New(b, now, focused)
	f.rings = append(f.rings, r)
	return r
}

// Prune drops finished rings, reusing the backing array.
func (f *Field) Prune(now float64) {
	live := f.rings[:0]
	for _, r := range f.rings {
		if !r.Done(now) {
			live = append(live, r)
		}
	}
	clear(f.rings[len(live):])
	f.rings = live
}

// Rings returns the live rings. The slice is owned by the field.
func (f *Field) Rings() []Ring { return f.rings }

// Len is the number of live rings.
func (f *Field) Len() int { return len(f.rings) }

// Reset drops every ring.
func (f *Field) Reset() {
	clear(f.rings)
	f.rings = f.rings[:0]
}

// Color is r's colour at now, blended toward bg as the ring fades.
func (f *Field) Color(r Ring, bg colorful.Color, now float64) colorful.Color {
	fade := f.Fade
	if fade == nil {
		fade = ease.Linear
	}
	t := math.Max(0, math.Min(1, fade(r.Progress(now))))
	return r.Color.BlendLab(bg, t).Clamped()
}

// Glow is the brightest live ring at now, 0 when there is none. It gives
// consumers without geometry a single intensity to draw.
func (f *Field) Glow(now float64) float64 {
	var g float64
	for _, r := range f.rings {
		g = math.Max(g, r.Opacity(now))
	}
	return g
}
