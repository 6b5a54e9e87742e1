// SPDX-License-Identifier: MIT

// Package playback keeps the clean and dirty mixes of a song locked together
// and moves them between silence and full speed with a turntable-style ramp
// of playback rate and volume.
package playback

import (
	"math"

	"groove/internal/config"
	"groove/internal/log"

	"github.com/fogleman/ease"
)

// rateTolerance is how close the rate must be to its target to count as there.
const rateTolerance = 0.01

// RampConfig tunes the ramp.
type RampConfig struct {
	Inertia       float64       // Rate units per second.
	MinSafeRate   float64       // Lowest nonzero rate ever applied.
	FadeThreshold float64       // Volume fades below this rate on the way down.
	FadeCurve     ease.Function // Maps rate/threshold in [0,1] to volume; nil is linear.
}

// DefaultRampConfig returns the stock tuning.
func DefaultRampConfig() RampConfig {
	return RampConfig{
		Inertia:       config.DefaultInertia,
		MinSafeRate:   config.DefaultMinSafeRate,
		FadeThreshold: config.DefaultFadeThreshold,
		FadeCurve:     ease.Linear,
	}
}

// deck is what a Ramp steers. Rate and volume go to both tracks alike.
type deck interface {
	applyRate(rate, volume float64)
	running() bool
	start() error
	stop()
}

// Ramp is the rate ramp controller. At most one transition is in flight;
// each new one takes a fresh generation and any continuation holding an
// older generation does nothing.
type Ramp struct {
	cfg  RampConfig
	deck deck

	target  float64
	current float64
	volume  float64

	gen   uint64 // bumped on every start and cancel
	token uint64 // generation of the in-flight transition

	onState func(playing bool)
}

func newRamp(cfg RampConfig, d deck) *Ramp {
	if cfg.FadeCurve == nil {
		cfg.FadeCurve = ease.Linear
	}
	return &Ramp{cfg: cfg, deck: d}
}

func (r *Ramp) Target() float64  { return r.target }
func (r *Ramp) Current() float64 { return r.current }
func (r *Ramp) Volume() float64  { return r.volume }

// Transitioning reports whether a transition is in flight.
func (r *Ramp) Transitioning() bool {
	return r.token != 0 && r.token == r.gen
}

// Request starts a transition toward target, 0 or 1. Values >= 0.5 are
// treated as 1. Asking for the state the ramp already rests at is a no-op.
func (r *Ramp) Request(target float64) {
	if target >= 0.5 {
		target = 1
	} else {
		target = 0
	}

	if math.Abs(target-r.current) < rateTolerance && !r.Transitioning() {
		r.target = target
		r.report()
		return
	}

	r.gen++
	r.token = r.gen
	r.target = target
	log.Debugf("Ramp: transition %d toward %.0f from %.3f", r.token, target, r.current)
	r.report()

	if target == 1 && !r.deck.running() {
		if err := r.deck.start(); err != nil {
			r.reject(err)
		}
	}
}

// Cancel abandons the in-flight transition, leaving rate and volume where
// they are.
func (r *Ramp) Cancel() {
	r.gen++
}

// Reset cancels any transition and forces the silent state without
// touching the transport.
func (r *Ramp) Reset() {
	r.Cancel()
	r.target, r.current, r.volume = 0, 0, 0
	r.deck.applyRate(0, 0)
}

// Tick advances the in-flight transition by dt seconds.
func (r *Ramp) Tick(dt float64) {
	r.step(r.token, dt)
}

func (r *Ramp) step(token uint64, dt float64) {
	if token == 0 || token != r.gen {
		return
	}

	// Termination: close to an upward target, or down at the safe minimum.
	if r.target == 1 && math.Abs(r.target-r.current) < rateTolerance ||
		r.target == 0 && r.current <= r.cfg.MinSafeRate {
		r.finish()
		return
	}

	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	next := r.current + dt*r.cfg.Inertia*sign(r.target-r.current)
	next = math.Max(r.cfg.MinSafeRate, math.Min(1, next))

	r.current = next
	if r.target == 1 {
		r.volume = 1
	} else {
		r.volume = r.fade(next)
	}
	r.deck.applyRate(r.current, r.volume)
}

func (r *Ramp) fade(rate float64) float64 {
	if rate >= r.cfg.FadeThreshold {
		return 1
	}
	return math.Max(0, math.Min(1, r.cfg.FadeCurve(rate/r.cfg.FadeThreshold)))
}

func (r *Ramp) finish() {
	r.token = 0
	r.current = r.target
	r.volume = r.target
	r.deck.applyRate(r.current, r.volume)

	if r.target == 0 {
		r.deck.stop()
	} else if !r.deck.running() {
		if err := r.deck.start(); err != nil {
			r.reject(err)
			return
		}
	}

	log.Debugf("Ramp: settled at %.0f", r.current)
	r.report()
}

// reject handles a refused start: back to silence, reported as stopped.
func (r *Ramp) reject(err error) {
	log.Warnf("Ramp: playback start rejected: %v", err)
	r.Reset()
	r.report()
}

func (r *Ramp) report() {
	if r.onState != nil {
		r.onState(r.target == 1)
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
