// SPDX-License-Identifier: MIT
/*
Package engine owns the playback session and drives it frame by frame:
- Dual-track playback with a turntable-style rate ramp
- Per-frame frequency snapshots from the audible mix
- Tempo-locked beats and the pulse rings they spawn

Thread Safety:
- A single goroutine (Run) owns every component
- Other goroutines queue commands with Do
- Frames are handed to publishers on the loop goroutine
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"groove/internal/analysis"
	"groove/internal/config"
	"groove/internal/graph"
	"groove/internal/log"
	"groove/internal/media"
	"groove/internal/playback"
	"groove/internal/pulse"
	"groove/internal/rhythm"

	"k8s.io/utils/clock"
)

var (
	// ErrUnknownAlbum is returned when a title is not in the catalog.
	ErrUnknownAlbum = errors.New("unknown album")
	// ErrBusy is returned when an album change is already in progress.
	ErrBusy = errors.New("album change in progress")
)

// maxFrameDelta bounds dt after a stall so the ramp never jumps.
const maxFrameDelta = 0.25

// Publisher receives every frame. Send is called on the loop goroutine and
// must not block; the frame and its slices are only valid during the call.
type Publisher interface {
	Send(f *Frame) error
}

// Options injects collaborators, mostly for tests.
type Options struct {
	Clock clock.WithTicker // nil uses the real clock.

	// Clean and Dirty replace the built-in graph elements. When nil the
	// engine decodes sources with Loader and plays them through its graph.
	Clean, Dirty media.Transport
	Loader       media.Loader
}

// Engine is the owning frame loop.
type Engine struct {
	cfg   *config.Config
	clock clock.WithTicker

	graph    *graph.Context
	elements []*media.Element
	tracks   *playback.DualTrack
	analyser *analysis.Analyser
	pipeline *analysis.Pipeline
	beats    *rhythm.Scheduler
	pulses   pulse.Field

	album   config.Album
	focused bool

	cmds chan func(*Engine)
	pubs []Publisher

	elapsed float64 // seconds of loop time
	carry   float64 // fractional frames owed to the graph
	frame   Frame
	bands   []float64
	onBeat  []func(rhythm.Beat)
}

// New builds an engine from cfg and loads the default album, if any.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	window, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return nil, err
	}
	fade, err := playback.ParseFadeCurve(cfg.Playback.FadeCurve)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:   cfg,
		clock: clk,
		graph: graph.NewContext(cfg.Output.SampleRate),
		cmds:  make(chan func(*Engine), 64),
		bands: make([]float64, len(analysis.SpectrumBands)),
	}

	clean, dirty := opts.Clean, opts.Dirty
	if clean == nil || dirty == nil {
		for i := 0; i < 2; i++ {
			el := media.NewElement(opts.Loader)
			el.SetGate(e.graph.Resume)
			if _, err := e.graph.Connect(el); err != nil {
				return nil, fmt.Errorf("failed to connect source: %w", err)
			}
			e.elements = append(e.elements, el)
		}
		clean, dirty = e.elements[0], e.elements[1]
	}

	e.tracks = playback.New(clean, dirty, playback.Options{
		Ramp: playback.RampConfig{
			Inertia:       cfg.Playback.Inertia,
			MinSafeRate:   cfg.Playback.MinSafeRate,
			FadeThreshold: cfg.Playback.FadeThreshold,
			FadeCurve:     fade,
		},
		SyncEpsilon:  cfg.Playback.SyncEpsilon,
		ResumeSettle: cfg.Playback.ResumeSettle,
		Clock:        clk,
	})

	e.analyser, err = analysis.NewAnalyser(analysis.AnalyserConfig{
		FFTSize:     cfg.Analysis.FFTSize,
		Smoothing:   cfg.Analysis.Smoothing,
		MinDecibels: cfg.Analysis.MinDecibels,
		MaxDecibels: cfg.Analysis.MaxDecibels,
		Window:      window,
	}, cfg.Output.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyser: %w", err)
	}
	e.pipeline = analysis.NewPipeline(e.graph, e.analyser, e.tracks.Playing)
	e.beats = rhythm.NewScheduler(0)

	// Rings belong to the running session.
	e.tracks.OnPlayState(func(playing bool) {
		if !playing {
			e.pulses.Reset()
		}
	})

	if title := e.startupAlbum(); title != "" {
		if err := e.SelectAlbum(title); err != nil {
			return nil, err
		}
	}

	log.Infof("Engine: Initialized (SampleRate: %.0f Hz, TickRate: %d, Albums: %d)",
		cfg.Output.SampleRate, cfg.TickRate, len(cfg.Catalog.Albums))
	return e, nil
}

func (e *Engine) startupAlbum() string {
	if e.cfg.Catalog.Default != "" {
		return e.cfg.Catalog.Default
	}
	if len(e.cfg.Catalog.Albums) > 0 {
		return e.cfg.Catalog.Albums[0].Title
	}
	return ""
}

// AddPublisher registers p for every subsequent frame. Loop goroutine only.
func (e *Engine) AddPublisher(p Publisher) {
	e.pubs = append(e.pubs, p)
}

// Output attaches a sink to the master bus, e.g. an audio device.
func (e *Engine) Output(s graph.Sink) (graph.Connection, error) {
	return e.graph.Output(s)
}

// OnPlayState registers an observer of the intended play state.
func (e *Engine) OnPlayState(fn func(playing bool)) { e.tracks.OnPlayState(fn) }

// OnReady registers an observer of source readiness.
func (e *Engine) OnReady(fn func(ready bool)) { e.tracks.OnReady(fn) }

// OnBeat registers an observer called for every beat.
func (e *Engine) OnBeat(fn func(rhythm.Beat)) { e.onBeat = append(e.onBeat, fn) }

// Do queues fn to run on the loop goroutine at the start of the next tick.
// It blocks if the queue is full.
func (e *Engine) Do(fn func(*Engine)) {
	e.cmds <- fn
}

// Run ticks the engine at the configured rate until ctx is done, then
// releases the session.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.cfg.TickRate)
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("Engine: Loop started (Interval: %s)", interval)
	last := e.clock.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info("Engine: Loop stopping")
			e.drain()
			return e.Close()
		case now := <-ticker.C():
			dt := now.Sub(last).Seconds()
			last = now
			e.Tick(dt)
		}
	}
}

// Tick runs one frame: queued commands, playback, graph rendering,
// analysis, beats, then publishing. dt is in seconds.
func (e *Engine) Tick(dt float64) {
	e.drain()

	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	dt = math.Min(dt, maxFrameDelta)
	e.elapsed += dt

	e.tracks.Tick(dt)

	owed := e.carry + dt*e.graph.SampleRate()
	frames := int(owed)
	e.carry = owed - float64(frames)
	e.graph.Render(frames)

	snap := e.pipeline.Sample()

	beat, ok := e.beats.Tick(e.tracks.CurrentTime(), e.tracks.Playing())
	if ok {
		e.pulses.Add(beat, e.elapsed, e.focused)
		for _, fn := range e.onBeat {
			fn(beat)
		}
	}
	e.pulses.Prune(e.elapsed)

	e.publish(snap, beat, ok)
}

func (e *Engine) drain() {
	for {
		select {
		case fn := <-e.cmds:
			fn(e)
		default:
			return
		}
	}
}

func (e *Engine) publish(snap analysis.FrequencySnapshot, beat rhythm.Beat, hasBeat bool) {
	if len(e.pubs) == 0 {
		return
	}
	f := &e.frame
	f.Seq++
	f.Elapsed = e.elapsed
	f.State = e.State()
	f.Bins = snap.Bins
	f.Bands = analysis.Bands(snap)
	f.Spectrum = analysis.BandEnergies(e.bands, snap, e.analyser, analysis.SpectrumBands)
	f.Level = 0
	if e.tracks.Playing() {
		f.Level = e.analyser.Level()
	}
	f.Beat, f.HasBeat = beat, hasBeat
	f.Glow = e.pulses.Glow(e.elapsed)
	f.Rings = e.pulses.Rings()

	for _, p := range e.pubs {
		if err := p.Send(f); err != nil {
			log.Debugf("Engine: publisher %T failed: %v", p, err)
		}
	}
}

// Close stops playback and tears down the graph.
func (e *Engine) Close() error {
	e.tracks.Release()
	e.pipeline.Close()
	for _, el := range e.elements {
		el.Wait()
	}
	return e.graph.Close()
}
