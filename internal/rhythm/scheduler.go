// SPDX-License-Identifier: MIT

// Package rhythm derives quarter-note beats from the transport clock.
package rhythm

import (
	"math"

	"groove/internal/log"
)

// BeatsPerBar is the length of the ordinal cycle.
const BeatsPerBar = 4

const (
	// Slack for float error when a frame lands right on a grid line.
	gridEpsilon = 1e-6
	// Backward movement larger than this is treated as a scrub.
	scrubTolerance = 1e-3
)

// Beat is one quarter-note event. Ordinal runs 1..4 within the bar; Time is
// the grid time of the beat in transport seconds.
type Beat struct {
	Ordinal int
	Time    float64
}

// Scheduler emits beats in phase with the transport. It is driven once per
// frame with the authoritative transport time and never consults a wall
// clock, so pauses and seeks keep the grid locked to the music.
//
// Scheduler is not safe for concurrent use.
type Scheduler struct {
	bpm      float64
	interval float64

	lastBeatTime float64
	ordinal      int // ordinal of lastBeatTime, 0 while paused
	lastT        float64
	playing      bool
	realign      bool
}

// NewScheduler returns a scheduler for bpm. An invalid tempo is accepted and
// simply produces no beats.
func NewScheduler(bpm float64) *Scheduler {
	s := &Scheduler{}
	s.SetBpm(bpm)
	return s
}

// Bpm returns the current tempo.
func (s *Scheduler) Bpm() float64 { return s.bpm }

// Interval is the beat length in seconds, 0 for an invalid tempo.
func (s *Scheduler) Interval() float64 { return s.interval }

// Ordinal is the ordinal of the grid line behind the transport, 0 while
// paused.
func (s *Scheduler) Ordinal() int { return s.ordinal }

// SetBpm changes the tempo. The grid is realigned at the next tick.
func (s *Scheduler) SetBpm(bpm float64) {
	s.bpm = bpm
	if !validBpm(bpm) {
		if bpm != 0 {
			log.Warnf("Rhythm: ignoring invalid tempo %v", bpm)
		}
		s.interval = 0
		return
	}
	s.interval = 60 / bpm
	s.realign = true
}

// Seek requests a realignment at the next tick, used after an explicit seek.
func (s *Scheduler) Seek() {
	s.realign = true
}

// Tick advances the grid to transport time t. It returns at most one beat;
// if several grid lines were crossed since the last tick they are folded
// into a single beat carrying the latest ordinal.
func (s *Scheduler) Tick(t float64, playing bool) (Beat, bool) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return Beat{}, false
	}
	defer func() { s.lastT = t }()

	if !playing {
		if s.playing {
			s.lastBeatTime = t
			s.ordinal = 0
		}
		s.playing = false
		return Beat{}, false
	}
	resumed := !s.playing
	s.playing = true

	if s.interval <= 0 {
		return Beat{}, false
	}

	if resumed || s.realign || t+scrubTolerance < s.lastT {
		s.align(t)
		return Beat{}, false
	}

	elapsed := t - s.lastBeatTime
	if elapsed+gridEpsilon < s.interval {
		return Beat{}, false
	}
	n := int(math.Floor((elapsed + gridEpsilon) / s.interval))
	s.ordinal = nextOrdinal(s.ordinal, n)
	s.lastBeatTime += float64(n) * s.interval
	return Beat{Ordinal: s.ordinal, Time: s.lastBeatTime}, true
}

// align snaps the grid to the last beat line at or before t and sets the
// ordinal that line carries, counting from a downbeat at time zero.
func (s *Scheduler) align(t float64) {
	k := int(math.Floor(t/s.interval + gridEpsilon))
	s.lastBeatTime = float64(k) * s.interval
	s.ordinal = ((k-1)%BeatsPerBar+BeatsPerBar)%BeatsPerBar + 1
	s.realign = false
	log.Debugf("Rhythm: grid aligned at %.3fs (beat %d, ordinal %d)", s.lastBeatTime, k, s.ordinal)
}

// nextOrdinal advances prior by n beats. A prior of 0 counts as the end of
// a bar.
func nextOrdinal(prior, n int) int {
	if prior == 0 {
		prior = BeatsPerBar
	}
	return ((prior-1+n)%BeatsPerBar+BeatsPerBar)%BeatsPerBar + 1
}

func validBpm(bpm float64) bool {
	return bpm > 0 && !math.IsNaN(bpm) && !math.IsInf(bpm, 0)
}
