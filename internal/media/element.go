package media

import (
	"fmt"
	"math"
	"sync"

	"groove/internal/log"
)

// Loader decodes the source named by url.
type Loader func(url string) (*Clip, error)

type loadResult struct {
	url  string
	clip *Clip
	err  error
}

// Element is a Transport backed by a decoded Clip. It is also a graph
// source: Render mixes its output into the master bus and is the only
// thing that advances its position.
//
// All methods except the background decode are expected to be called
// from the engine loop goroutine.
type Element struct {
	load Loader
	// gate is consulted on Play; a non-nil error rejects playback.
	gate func() error

	url     string
	clip    *Clip
	pos     float64 // in clip frames
	paused  bool
	volume  float64
	rate    float64
	muted   bool
	pending []Event

	mu     sync.Mutex
	gen    uint64
	loaded *loadResult
	wg     sync.WaitGroup
}

// NewElement creates an idle, paused element. A nil loader selects LoadWAV.
func NewElement(load Loader) *Element {
	if load == nil {
		load = LoadWAV
	}
	return &Element{
		load:   load,
		paused: true,
		volume: 1,
		rate:   1,
	}
}

// SetGate installs a check run before playback starts, typically resuming
// the output graph.
func (e *Element) SetGate(gate func() error) {
	e.gate = gate
}

// Load discards the current clip and decodes url in the background.
func (e *Element) Load(url string) {
	e.url = url
	e.clip = nil
	e.pos = 0
	e.paused = true
	e.pending = e.pending[:0]

	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.loaded = nil
	e.mu.Unlock()

	// An empty url unloads.
	if url == "" {
		return
	}
	e.pending = append(e.pending, Event{Type: LoadStart, URL: url})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		clip, err := e.load(url)
		e.mu.Lock()
		// A newer Load supersedes this result.
		if gen == e.gen {
			e.loaded = &loadResult{url: url, clip: clip, err: err}
		}
		e.mu.Unlock()
	}()
}

// Wait blocks until in-flight decodes have finished.
func (e *Element) Wait() {
	e.wg.Wait()
}

// Play starts playback from the current position.
func (e *Element) Play() error {
	if e.clip == nil {
		return ErrNotReady
	}
	if e.gate != nil {
		if err := e.gate(); err != nil {
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
	}
	if e.pos >= float64(e.clip.Frames()) {
		e.pos = 0
	}
	e.paused = false
	return nil
}

func (e *Element) Pause()       { e.paused = true }
func (e *Element) Paused() bool { return e.paused }

func (e *Element) CurrentTime() float64 {
	if e.clip == nil {
		return 0
	}
	return e.pos / e.clip.SampleRate
}

// SetCurrentTime seeks, clamping to [0, Duration]. NaN seeks to 0.
func (e *Element) SetCurrentTime(t float64) {
	if e.clip == nil {
		return
	}
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if d := e.clip.Duration(); t > d {
		t = d
	}
	e.pos = t * e.clip.SampleRate
}

// Duration returns 0 until the clip has been decoded.
func (e *Element) Duration() float64 {
	if e.clip == nil {
		return 0
	}
	return e.clip.Duration()
}

func (e *Element) Volume() float64 { return e.volume }

func (e *Element) SetVolume(v float64) { e.volume = clamp01(v) }

func (e *Element) PlaybackRate() float64 { return e.rate }

func (e *Element) SetPlaybackRate(r float64) { e.rate = clamp01(r) }

func (e *Element) Muted() bool { return e.muted }

func (e *Element) SetMuted(m bool) { e.muted = m }

// PollEvents collects a finished decode, if any, and pending signals.
func (e *Element) PollEvents(dst []Event) []Event {
	e.mu.Lock()
	res := e.loaded
	e.loaded = nil
	e.mu.Unlock()

	if res != nil {
		if res.err != nil {
			log.Warnf("Media: failed to load %s: %v", res.url, res.err)
			e.pending = append(e.pending, Event{Type: Error, URL: res.url, Err: res.err})
		} else {
			e.clip = res.clip
			e.pending = append(e.pending,
				Event{Type: LoadedMetadata, URL: res.url},
				Event{Type: CanPlay, URL: res.url},
			)
		}
	}

	dst = append(dst, e.pending...)
	e.pending = e.pending[:0]
	return dst
}

// Render mixes the element into dst, interleaved stereo at sampleRate,
// advancing the position by playbackRate. Muted elements advance silently.
func (e *Element) Render(dst []float32, sampleRate float64) {
	if e.paused || e.clip == nil || e.rate <= 0 || sampleRate <= 0 {
		return
	}

	src := e.clip.Samples
	last := e.clip.Frames() - 1
	step := e.rate * e.clip.SampleRate / sampleRate
	gain := float32(e.volume)
	if e.muted {
		gain = 0
	}

	frames := len(dst) / 2
	for i := 0; i < frames; i++ {
		idx := int(e.pos)
		if idx >= last {
			e.pos = float64(last + 1)
			e.paused = true
			e.pending = append(e.pending, Event{Type: Ended, URL: e.url})
			return
		}
		frac := float32(e.pos - float64(idx))
		l := src[2*idx] + (src[2*idx+2]-src[2*idx])*frac
		r := src[2*idx+1] + (src[2*idx+3]-src[2*idx+1])*frac
		dst[2*i] += l * gain
		dst[2*i+1] += r * gain
		e.pos += step
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
