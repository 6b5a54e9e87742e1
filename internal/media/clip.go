package media

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"groove/internal/log"

	"github.com/go-audio/wav"
)

// Clip is a fully decoded source held as interleaved stereo float32 in
// [-1, 1] at the file's own sample rate.
type Clip struct {
	Samples    []float32
	SampleRate float64
}

// Frames returns the number of stereo frames in the clip.
func (c *Clip) Frames() int {
	return len(c.Samples) / 2
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / c.SampleRate
}

// LoadWAV opens and decodes a WAV file from disk.
func LoadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w", path, err)
	}
	defer f.Close()

	clip, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode source %s: %w", path, err)
	}
	return clip, nil
}

// DecodeWAV reads a complete PCM WAV stream. Mono input is duplicated onto
// both channels; channels beyond the second are dropped.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV stream")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, errors.New("WAV stream has no usable format")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(decoder.BitDepth)
	}
	if bitDepth == 0 {
		return nil, errors.New("unknown bit depth")
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	scale := 1 / math.Pow(2, float64(bitDepth-1))

	samples := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		l := float64(buf.Data[i*channels]) * scale
		r := l
		if channels > 1 {
			r = float64(buf.Data[i*channels+1]) * scale
		}
		samples[2*i] = float32(l)
		samples[2*i+1] = float32(r)
	}

	log.Debugf("Media: decoded %d frames, %d ch, %d-bit @ %d Hz",
		frames, channels, bitDepth, buf.Format.SampleRate)

	return &Clip{Samples: samples, SampleRate: float64(buf.Format.SampleRate)}, nil
}
