package transport

import (
	"groove/internal/engine"
	"groove/internal/log"
)

// LoggingTransport implements the Transport interface by logging state
// changes and beats. It is meant for debugging without a renderer.
type LoggingTransport struct {
	last   engine.State
	primed bool
	frames uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Info("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs what changed since the previous frame.
func (lt *LoggingTransport) Send(f *engine.Frame) error {
	lt.frames++
	st := f.State
	if !lt.primed || st.Playing != lt.last.Playing || st.Ready != lt.last.Ready ||
		st.Audible != lt.last.Audible || st.Album != lt.last.Album {
		log.WithFields(log.Fields{
			"playing": st.Playing,
			"ready":   st.Ready,
			"audible": st.Audible.String(),
			"album":   st.Album,
			"time":    engine.FormatTime(st.CurrentTime),
		}).Info("LOG_TRANSPORT: state")
	}
	if f.HasBeat {
		log.Debugf("LOG_TRANSPORT: beat %d at %.2fs (bass %.2f, mid %.2f, high %.2f)",
			f.Beat.Ordinal, f.Beat.Time, f.Bands.Bass, f.Bands.Mid, f.Bands.High)
	}
	lt.last, lt.primed = st, true
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	log.Infof("LOG_TRANSPORT: Close called after %d frames.", lt.frames)
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
