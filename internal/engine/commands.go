package engine

import (
	"fmt"
	"strings"

	"groove/internal/config"
	"groove/internal/log"
	"groove/internal/playback"
)

// The methods below must run on the loop goroutine; use Do from elsewhere.

// Play resumes the graph, which stays suspended until the first play, and
// ramps the session up.
func (e *Engine) Play() {
	if err := e.graph.Resume(); err != nil {
		log.Warnf("Engine: could not resume audio graph: %v", err)
	}
	e.tracks.Play()
}

// Pause ramps the session down.
func (e *Engine) Pause() { e.tracks.Pause() }

// TogglePlay pauses a playing session and plays a stopped one.
func (e *Engine) TogglePlay() {
	if e.tracks.Playing() || e.tracks.ResumePending() {
		e.Pause()
		return
	}
	e.Play()
}

// SetAudibleTrack makes which the one you hear.
func (e *Engine) SetAudibleTrack(which playback.Track) {
	e.tracks.SetAudibleTrack(which)
}

// ToggleAudible flips between the clean and dirty mixes.
func (e *Engine) ToggleAudible() {
	e.tracks.SetAudibleTrack(e.tracks.Audible().Other())
}

// SwapSource replaces one track's source, resuming afterwards if needed.
func (e *Engine) SwapSource(which playback.Track, url string) {
	e.tracks.SwapSource(which, url)
}

// Seek moves the session to t seconds and realigns the beat grid.
func (e *Engine) Seek(t float64) {
	e.tracks.Seek(t)
	e.beats.Seek()
}

// SeekBy moves the session by delta seconds.
func (e *Engine) SeekBy(delta float64) {
	e.Seek(e.tracks.CurrentTime() + delta)
}

// SetBpm sets the beat tempo. Invalid values silence the beat clock.
func (e *Engine) SetBpm(bpm float64) { e.beats.SetBpm(bpm) }

// SetFocused switches pulse colouring to the focused palette.
func (e *Engine) SetFocused(focused bool) { e.focused = focused }

// Album returns the current catalog entry.
func (e *Engine) Album() config.Album { return e.album }

// SelectAlbum swaps both tracks to the album's sources and tempo. A change
// requested while another is still loading is ignored with ErrBusy.
func (e *Engine) SelectAlbum(title string) error {
	album, ok := e.cfg.Catalog.Find(title)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAlbum, title)
	}
	if e.tracks.Swapping() {
		log.Infof("Engine: ignoring album %q, change already in progress", album.Title)
		return ErrBusy
	}
	if strings.EqualFold(album.Title, e.album.Title) && e.album.Clean != "" {
		return nil
	}

	log.WithFields(log.Fields{"album": album.Title, "bpm": album.BPM}).Info("Engine: selecting album")
	e.album = album
	e.tracks.SwapSource(playback.Clean, album.Clean)
	e.tracks.SwapSource(playback.Dirty, album.Dirty)
	e.beats.SetBpm(album.BPM)
	return nil
}

// NextAlbum moves through the catalog by step, wrapping at either end.
func (e *Engine) NextAlbum(step int) error {
	albums := e.cfg.Catalog.Albums
	if len(albums) == 0 {
		return fmt.Errorf("%w: catalog is empty", ErrUnknownAlbum)
	}
	i := 0
	for j, a := range albums {
		if strings.EqualFold(a.Title, e.album.Title) {
			i = j
			break
		}
	}
	n := len(albums)
	return e.SelectAlbum(albums[((i+step)%n+n)%n].Title)
}
