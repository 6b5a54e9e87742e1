// SPDX-License-Identifier: MIT

// Package media defines the element-level playback contract shared by the
// clean and dirty tracks, a WAV-backed implementation of it, and the Handle
// that tracks a source's url and readiness.
package media

import "errors"

var (
	// ErrNotReady is returned by Play when no source has finished loading.
	ErrNotReady = errors.New("media: source not ready")
	// ErrRejected is returned by Play when the host refuses to start playback,
	// e.g. because the output graph could not be resumed.
	ErrRejected = errors.New("media: playback rejected")
)

// EventType identifies a transport signal.
type EventType int

const (
	LoadStart EventType = iota
	LoadedMetadata
	CanPlay
	Ended
	Error
)

func (t EventType) String() string {
	switch t {
	case LoadStart:
		return "loadstart"
	case LoadedMetadata:
		return "loadedmetadata"
	case CanPlay:
		return "canplay"
	case Ended:
		return "ended"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a signal emitted by a Transport. URL is the source the event
// belongs to so that late events from a replaced source can be ignored.
type Event struct {
	Type EventType
	URL  string
	Err  error
}

// Transport is one playable audio source. Implementations are driven from a
// single goroutine; signals are collected with PollEvents once per tick
// instead of being delivered through callbacks.
type Transport interface {
	// Load replaces the source and starts loading it. The transport is
	// paused and reports Duration 0 until LoadedMetadata.
	Load(url string)
	// Play starts playback. It returns ErrNotReady or an error wrapping
	// ErrRejected when playback cannot begin.
	Play() error
	Pause()
	Paused() bool

	CurrentTime() float64
	SetCurrentTime(t float64)
	Duration() float64

	Volume() float64
	SetVolume(v float64)
	PlaybackRate() float64
	SetPlaybackRate(r float64)
	Muted() bool
	SetMuted(m bool)

	// PollEvents appends all signals raised since the previous call to dst.
	PollEvents(dst []Event) []Event
}
