package playback

import (
	"fmt"
	"math"
	"strings"
	"time"

	"groove/internal/config"
	"groove/internal/log"
	"groove/internal/media"

	"k8s.io/utils/clock"
)

// Track names one of the two mixes.
type Track int

const (
	Clean Track = iota
	Dirty
)

func (t Track) String() string {
	if t == Dirty {
		return "dirty"
	}
	return "clean"
}

// Other returns the opposite track.
func (t Track) Other() Track {
	if t == Dirty {
		return Clean
	}
	return Dirty
}

// ParseTrack converts "clean" or "dirty" (case-insensitive) to a Track.
func ParseTrack(s string) (Track, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clean":
		return Clean, nil
	case "dirty":
		return Dirty, nil
	default:
		return Clean, fmt.Errorf("unknown track: %q", s)
	}
}

// Options configures a DualTrack.
type Options struct {
	Ramp         RampConfig
	SyncEpsilon  float64       // Allowed clean/dirty drift in seconds.
	ResumeSettle time.Duration // Wait after ready before resuming a swapped source.
	Clock        clock.PassiveClock
}

// DefaultOptions returns the stock tuning on the real clock.
func DefaultOptions() Options {
	return Options{
		Ramp:         DefaultRampConfig(),
		SyncEpsilon:  config.DefaultSyncEpsilon,
		ResumeSettle: config.DefaultResumeSettle,
		Clock:        clock.RealClock{},
	}
}

// DualTrack owns the clean and dirty handles and the playback session.
// Both play in lockstep at the same rate and volume; only the audible one
// is unmuted. It is the only writer of either transport's time, rate,
// volume and mute state.
//
// DualTrack is not safe for concurrent use; the engine loop drives it.
type DualTrack struct {
	opts    Options
	clock   clock.PassiveClock
	tracks  [2]*media.Handle
	audible Track
	ramp    *Ramp

	// resume is the "was playing before change" flag. Once every required
	// source is ready, resumeAt holds the end of the settle delay.
	resume   bool
	resumeAt time.Time
	swapping bool

	ready   bool
	playing bool

	onPlayState []func(playing bool)
	onReady     []func(ready bool)
}

// New wires the two transports into a stopped session with the clean track
// audible.
func New(clean, dirty media.Transport, opts Options) *DualTrack {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.SyncEpsilon <= 0 {
		opts.SyncEpsilon = config.DefaultSyncEpsilon
	}
	d := &DualTrack{
		opts:  opts,
		clock: opts.Clock,
		tracks: [2]*media.Handle{
			media.NewHandle(Clean.String(), clean),
			media.NewHandle(Dirty.String(), dirty),
		},
		audible: Clean,
	}
	d.ramp = newRamp(opts.Ramp, d)
	d.ramp.onState = d.setPlaying
	d.applyRate(0, 0)
	return d
}

// OnPlayState registers an observer of the intended play state. It fires
// as soon as a play or pause is requested, not when the ramp completes.
func (d *DualTrack) OnPlayState(fn func(playing bool)) {
	d.onPlayState = append(d.onPlayState, fn)
}

// OnReady registers an observer of overall readiness.
func (d *DualTrack) OnReady(fn func(ready bool)) {
	d.onReady = append(d.onReady, fn)
}

// Playing reports the intended play state.
func (d *DualTrack) Playing() bool { return d.playing }

// Ready reports whether every required source can play through.
func (d *DualTrack) Ready() bool { return d.ready }

func (d *DualTrack) Audible() Track      { return d.audible }
func (d *DualTrack) Rate() float64       { return d.ramp.Current() }
func (d *DualTrack) Volume() float64     { return d.ramp.Volume() }
func (d *DualTrack) Transitioning() bool { return d.ramp.Transitioning() }
func (d *DualTrack) ResumePending() bool { return d.resume }

// Swapping reports whether a source change is waiting for its new source.
func (d *DualTrack) Swapping() bool               { return d.swapping }
func (d *DualTrack) Handle(t Track) *media.Handle { return d.tracks[t] }

// CurrentTime is the authoritative (clean) transport time.
func (d *DualTrack) CurrentTime() float64 { return d.tracks[Clean].CurrentTime() }

// Duration is the clean source's duration, 0 until known.
func (d *DualTrack) Duration() float64 { return d.tracks[Clean].Duration() }

// Play ramps both tracks up to full speed. While a swapped source is still
// loading the request is remembered and honoured once it is ready.
func (d *DualTrack) Play() {
	if !d.ready {
		if d.swapping {
			d.resume = true
			return
		}
		log.Warn("DualTrack: play requested before sources are ready")
		if d.ramp.Transitioning() {
			d.ramp.Reset()
		}
		d.setPlaying(false)
		return
	}
	d.ramp.Request(1)
}

// Pause ramps both tracks down to a stop.
func (d *DualTrack) Pause() {
	d.resume = false
	d.resumeAt = time.Time{}
	d.ramp.Request(0)
}

// SetAudibleTrack unmutes which and mutes the other. Position and rate are
// untouched.
func (d *DualTrack) SetAudibleTrack(which Track) {
	d.audible = which
	d.applyMute()
}

// SwapSource replaces which's source. Playback stops at once; if the
// session was playing it resumes after the new source is ready and the
// settle delay has passed.
func (d *DualTrack) SwapSource(which Track, url string) {
	wasPlaying := d.playing || d.resume

	d.ramp.Reset()
	d.stop()

	d.tracks[which].Load(url)
	d.applyMute()

	d.resume = wasPlaying
	d.resumeAt = time.Time{}
	d.swapping = true
	log.WithFields(log.Fields{"track": which.String(), "url": url, "resume": wasPlaying}).
		Info("DualTrack: swapping source")

	d.setPlaying(false)
	d.setReady(false)
}

// Seek moves both tracks to t, clamped to [0, duration]. NaN seeks to 0.
func (d *DualTrack) Seek(t float64) {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if dur := d.Duration(); t > dur {
		t = dur
	}
	for _, h := range d.tracks {
		if h.URL() != "" {
			h.Transport().SetCurrentTime(t)
		}
	}
}

// Release cancels any ramp or pending resume and stops both transports.
func (d *DualTrack) Release() {
	d.ramp.Cancel()
	d.resume = false
	d.resumeAt = time.Time{}
	d.stop()
	d.setPlaying(false)
}

// Tick processes transport signals, completes a pending resume, advances
// the ramp and corrects drift. dt is the frame delta in seconds.
func (d *DualTrack) Tick(dt float64) {
	for _, h := range d.tracks {
		for _, ev := range h.Poll() {
			d.handle(h, ev)
		}
	}
	d.setReady(d.required())

	if d.resume && d.ready {
		now := d.clock.Now()
		switch {
		case d.resumeAt.IsZero():
			d.resumeAt = now.Add(d.opts.ResumeSettle)
		case !now.Before(d.resumeAt):
			log.Info("DualTrack: resuming after source change")
			d.resume = false
			d.resumeAt = time.Time{}
			d.swapping = false
			d.ramp.Request(1)
		}
	} else if d.swapping && d.ready {
		d.swapping = false
	}

	d.ramp.Tick(dt)
	d.sync()
}

func (d *DualTrack) handle(h *media.Handle, ev media.Event) {
	switch ev.Type {
	case media.LoadedMetadata:
		log.Debugf("DualTrack: %s duration %.2fs", h.Name(), h.Duration())
	case media.Ended:
		if h != d.tracks[Clean] {
			return
		}
		// The transport has already stopped itself.
		log.Info("DualTrack: reached end of track")
		d.ramp.Reset()
		d.Seek(0)
		d.setPlaying(false)
	case media.Error:
		log.WithFields(log.Fields{"track": h.Name(), "url": ev.URL}).
			Warnf("DualTrack: source failed: %v", ev.Err)
		d.ramp.Reset()
		d.stop()
		d.resume = false
		d.resumeAt = time.Time{}
		d.swapping = false
		d.Seek(0)
		d.setPlaying(false)
	}
}

// required reports readiness of the handles that have a source. The clean
// track is always required.
func (d *DualTrack) required() bool {
	if !d.tracks[Clean].Ready() {
		return false
	}
	dirty := d.tracks[Dirty]
	return dirty.URL() == "" || dirty.Ready()
}

// sync writes the clean time onto the dirty track when they drift apart.
func (d *DualTrack) sync() {
	clean, dirty := d.tracks[Clean], d.tracks[Dirty]
	if !clean.Ready() || !dirty.Ready() {
		return
	}
	ct, dt := clean.CurrentTime(), dirty.CurrentTime()
	if math.Abs(ct-dt) > d.opts.SyncEpsilon {
		log.Debugf("DualTrack: drift %.3fs, resyncing dirty to %.3f", dt-ct, ct)
		dirty.Transport().SetCurrentTime(ct)
	}
}

func (d *DualTrack) applyMute() {
	d.tracks[d.audible].Transport().SetMuted(false)
	d.tracks[d.audible.Other()].Transport().SetMuted(true)
}

func (d *DualTrack) setPlaying(p bool) {
	if p == d.playing {
		return
	}
	d.playing = p
	for _, fn := range d.onPlayState {
		fn(p)
	}
}

func (d *DualTrack) setReady(r bool) {
	if r == d.ready {
		return
	}
	d.ready = r
	log.Debugf("DualTrack: ready=%t", r)
	for _, fn := range d.onReady {
		fn(r)
	}
}

// deck

func (d *DualTrack) applyRate(rate, volume float64) {
	for _, h := range d.tracks {
		t := h.Transport()
		t.SetPlaybackRate(rate)
		t.SetVolume(volume)
	}
	d.applyMute()
}

func (d *DualTrack) running() bool {
	for _, h := range d.tracks {
		if h.URL() != "" && h.Paused() {
			return false
		}
	}
	return true
}

func (d *DualTrack) start() error {
	if !d.ready {
		return media.ErrNotReady
	}
	d.applyMute()
	for _, h := range d.tracks {
		if h.URL() == "" || !h.Paused() {
			continue
		}
		if err := h.Transport().Play(); err != nil {
			d.stop()
			return fmt.Errorf("%s: %w", h.Name(), err)
		}
	}
	return nil
}

func (d *DualTrack) stop() {
	for _, h := range d.tracks {
		if !h.Paused() {
			h.Transport().Pause()
		}
	}
}
