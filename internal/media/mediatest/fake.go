// Package mediatest provides a deterministic media.Transport for tests.
package mediatest

import (
	"math"

	"groove/internal/media"
)

// Fake is a media.Transport whose clock only moves when Advance is called
// and whose loading completes only when the test says so.
type Fake struct {
	// PlayErr, when set, is returned by Play and playback does not start.
	PlayErr error

	Loads      int
	PlayCalls  int
	PauseCalls int
	Seeks      int

	url      string
	loaded   bool
	paused   bool
	time     float64
	duration float64
	volume   float64
	rate     float64
	muted    bool
	events   []media.Event
}

// NewFake returns a paused transport with volume and rate at 1.
func NewFake() *Fake {
	return &Fake{paused: true, volume: 1, rate: 1}
}

func (f *Fake) URL() string { return f.url }

func (f *Fake) Load(url string) {
	f.Loads++
	f.url = url
	f.loaded = false
	f.paused = true
	f.time = 0
	f.duration = 0
	if url != "" {
		f.events = append(f.events, media.Event{Type: media.LoadStart, URL: url})
	}
}

// Ready completes the current load with the given duration.
func (f *Fake) Ready(duration float64) {
	f.loaded = true
	f.duration = duration
	f.events = append(f.events,
		media.Event{Type: media.LoadedMetadata, URL: f.url},
		media.Event{Type: media.CanPlay, URL: f.url},
	)
}

// Fail completes the current load with err.
func (f *Fake) Fail(err error) {
	f.loaded = false
	f.events = append(f.events, media.Event{Type: media.Error, URL: f.url, Err: err})
}

// End stops the transport at its end and raises Ended.
func (f *Fake) End() {
	f.paused = true
	f.time = f.duration
	f.events = append(f.events, media.Event{Type: media.Ended, URL: f.url})
}

// Advance moves the clock by dt seconds scaled by the playback rate, as a
// rendering graph would. Reaching the duration ends playback.
func (f *Fake) Advance(dt float64) {
	if f.paused || !f.loaded {
		return
	}
	f.time += dt * f.rate
	if f.duration > 0 && f.time >= f.duration {
		f.End()
	}
}

// Drift offsets the clock without any seek being requested.
func (f *Fake) Drift(dt float64) {
	f.time += dt
}

func (f *Fake) Play() error {
	f.PlayCalls++
	if !f.loaded {
		return media.ErrNotReady
	}
	if f.PlayErr != nil {
		return f.PlayErr
	}
	f.paused = false
	return nil
}

func (f *Fake) Pause() {
	f.PauseCalls++
	f.paused = true
}

func (f *Fake) Paused() bool { return f.paused }

func (f *Fake) CurrentTime() float64 { return f.time }

func (f *Fake) SetCurrentTime(t float64) {
	f.Seeks++
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > f.duration {
		t = f.duration
	}
	f.time = t
}

func (f *Fake) Duration() float64 { return f.duration }

func (f *Fake) Volume() float64 { return f.volume }

func (f *Fake) SetVolume(v float64) { f.volume = v }

func (f *Fake) PlaybackRate() float64 { return f.rate }

func (f *Fake) SetPlaybackRate(r float64) { f.rate = r }

func (f *Fake) Muted() bool { return f.muted }

func (f *Fake) SetMuted(m bool) { f.muted = m }

func (f *Fake) PollEvents(dst []media.Event) []media.Event {
	dst = append(dst, f.events...)
	f.events = f.events[:0]
	return dst
}

var _ media.Transport = (*Fake)(nil)
