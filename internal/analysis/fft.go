// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync"

	"groove/internal/config"
	"groove/internal/log"
	"groove/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "BartlettHann"
	case Blackman:
		return "Blackman"
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Lanczos:
		return "Lanczos"
	case Nuttall:
		return "Nuttall"
	default:
		return fmt.Sprintf("WindowFunc(%d)", int(w))
	}
}

// AnalyserConfig configures an Analyser.
type AnalyserConfig struct {
	FFTSize     int     // Power of 2 in [32, 32768].
	Smoothing   float64 // Inter-frame smoothing in [0,1).
	MinDecibels float64 // Maps to byte 0.
	MaxDecibels float64 // Maps to byte 255.
	Window      WindowFunc
}

// DefaultAnalyserConfig mirrors a browser analyser node with a 256 point FFT.
func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{
		FFTSize:     config.DefaultFFTSize,
		Smoothing:   config.DefaultSmoothing,
		MinDecibels: config.DefaultMinDecibels,
		MaxDecibels: config.DefaultMaxDecibels,
		Window:      Blackman,
	}
}

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	ring      []float32    // Most recent fftSize mono samples, circular.
	pos       int          // Next write position in ring.
	input     []float64    // Windowed input in chronological order.
	fftOutput []complex128 // FFT complex results (fftSize/2 + 1).
	smoothed  []float64    // Smoothed linear magnitudes, one per bin.
	window    []float64    // Pre-calculated window coefficients.
}

// Analyser is an analysis tap for the audio graph. Feed records the latest
// fftSize samples of the master bus; ByteFrequencyData turns them into
// smoothed, decibel scaled bytes the way a browser AnalyserNode does.
type Analyser struct {
	fftCalculator *fourier.FFT
	fftSize       int
	sampleRate    float64
	smoothing     float64
	minDB, maxDB  float64

	mu        sync.Mutex // Guards workspace between Feed and readers.
	workspace fftWorkspace
}

// NewAnalyser validates cfg and pre-allocates every buffer the hot path
// needs.
func NewAnalyser(cfg AnalyserConfig, sampleRate float64) (*Analyser, error) {
	if !bitint.IsPowerOfTwo(cfg.FFTSize) || cfg.FFTSize < config.MinFFTSize || cfg.FFTSize > config.MaxFFTSize {
		return nil, fmt.Errorf("fft size must be a power of 2 in [%d, %d], got %d",
			config.MinFFTSize, config.MaxFFTSize, cfg.FFTSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 || math.IsNaN(cfg.Smoothing) {
		return nil, fmt.Errorf("smoothing must be in [0,1), got %f", cfg.Smoothing)
	}
	if cfg.MinDecibels >= cfg.MaxDecibels {
		return nil, fmt.Errorf("min decibels %.1f must be below max decibels %.1f", cfg.MinDecibels, cfg.MaxDecibels)
	}

	windowCoeffs := make([]float64, cfg.FFTSize)
	applyWindow(windowCoeffs, cfg.Window)

	log.Infof("Analysis: Initializing Analyser (Size: %d, SampleRate: %.1f Hz, Window: %v)",
		cfg.FFTSize, sampleRate, cfg.Window)

	return &Analyser{
		fftCalculator: fourier.NewFFT(cfg.FFTSize),
		fftSize:       cfg.FFTSize,
		sampleRate:    sampleRate,
		smoothing:     cfg.Smoothing,
		minDB:         cfg.MinDecibels,
		maxDB:         cfg.MaxDecibels,
		workspace: fftWorkspace{
			ring:      make([]float32, cfg.FFTSize),
			input:     make([]float64, cfg.FFTSize),
			fftOutput: make([]complex128, cfg.FFTSize/2+1),
			smoothed:  make([]float64, cfg.FFTSize/2),
			window:    windowCoeffs,
		},
	}, nil
}

// Feed implements graph.Tap.
func (a *Analyser) Feed(mono []float32) {
	a.mu.Lock()
	ws := &a.workspace
	// Only the tail can survive a block longer than the ring.
	if len(mono) > a.fftSize {
		mono = mono[len(mono)-a.fftSize:]
	}
	for _, s := range mono {
		ws.ring[ws.pos] = s
		ws.pos = (ws.pos + 1) % a.fftSize
	}
	a.mu.Unlock()
}

// ByteFrequencyData writes FrequencyBinCount bytes into dst. Each call
// advances the smoothing state by one frame. It does not allocate.
func (a *Analyser) ByteFrequencyData(dst []uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ws := &a.workspace
	// --- 1. Window the ring in chronological order ---
	for i := 0; i < a.fftSize; i++ {
		ws.input[i] = float64(ws.ring[(ws.pos+i)%a.fftSize]) * ws.window[i]
	}

	// --- 2. FFT ---
	a.fftCalculator.Coefficients(ws.fftOutput, ws.input)

	// --- 3. Smooth, convert to dB and scale to bytes ---
	tau := a.smoothing
	scale := 1 / float64(a.fftSize)
	rangeScale := 255 / (a.maxDB - a.minDB)
	for k := range ws.smoothed {
		mag := cmplx.Abs(ws.fftOutput[k]) * scale
		v := tau*ws.smoothed[k] + (1-tau)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		ws.smoothed[k] = v

		if k >= len(dst) {
			continue
		}
		db := math.Inf(-1)
		if v > 0 {
			db = 20 * math.Log10(v)
		}
		scaled := math.Floor(rangeScale * (db - a.minDB))
		switch {
		case scaled <= 0 || math.IsNaN(scaled):
			dst[k] = 0
		case scaled >= 255:
			dst[k] = 255
		default:
			dst[k] = uint8(scaled)
		}
	}
}

// Level returns the RMS of the samples currently held for analysis.
func (a *Analyser) Level() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var sumSquare float64
	for _, s := range a.workspace.ring {
		sumSquare += float64(s) * float64(s)
	}
	return math.Sqrt(sumSquare / float64(a.fftSize))
}

// Reset clears captured samples and smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	clear(a.workspace.ring)
	clear(a.workspace.smoothed)
	a.workspace.pos = 0
	a.mu.Unlock()
}

// FrequencyBinCount is half the FFT size.
func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

// FFTSize returns the configured FFT size (number of points).
func (a *Analyser) FFTSize() int { return a.fftSize }

// SampleRate returns the sample rate of the analysed signal (Hz).
func (a *Analyser) SampleRate() float64 { return a.sampleRate }

// FrequencyForBin returns the center frequency (Hz) for a given FFT bin index.
func (a *Analyser) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= a.FrequencyBinCount() {
		return 0.0
	}
	// Frequency resolution = sampleRate / fftSize
	return float64(binIndex) * (a.sampleRate / float64(a.fftSize))
}

// BinForFrequency returns the bin whose center is nearest hz, clamped to the
// valid range.
func (a *Analyser) BinForFrequency(hz float64) int {
	bin := int(math.Round(hz * float64(a.fftSize) / a.sampleRate))
	return max(0, min(a.FrequencyBinCount()-1, bin))
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window. Unknown types fall
// back to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// gonum windows scale the slice in place, so start from ones.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		log.Warnf("Analysis: Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
