package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the playback engine.
const (
	// Playback ramp defaults
	DefaultInertia       = 0.5 // Rate change per second while ramping
	DefaultMinSafeRate   = 0.1 // Lowest nonzero playback rate ever requested
	DefaultFadeThreshold = 0.5 // Volume starts fading below this rate on ramp-down
	DefaultFadeCurve     = "linear"
	DefaultSyncEpsilon   = 0.1 // Max clean/dirty drift in seconds before correction
	DefaultResumeSettle  = 100 * time.Millisecond

	// Analysis defaults
	DefaultFFTSize     = 256 // Power of 2, yields 128 bins
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
	DefaultWindow      = "Blackman"

	// Output defaults
	DefaultOutputDevice    = MinDeviceID // System default output
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 512
	DefaultLowLatency      = false

	// Loop and transport defaults
	DefaultTickRate        = 60 // Frames per second of the owning loop
	DefaultWebSocketAddr   = ":8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPSendInterval = 33 * time.Millisecond

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MinFFTSize    = 32
	MaxFFTSize    = 32768
	MaxTickRate   = 240
)
