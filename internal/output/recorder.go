package output

import (
	"fmt"
	"math"
	"os"
	"sync"

	"groove/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// recordBitDepth is the sample size written by Recorder.
const recordBitDepth = 16

// Recorder is a graph.Sink that writes the master bus to a 16-bit stereo
// WAV file.
type Recorder struct {
	mu        sync.Mutex
	file      *os.File
	encoder   *wav.Encoder
	sampleBuf *audio.IntBuffer // reused for format conversion
	frames    int
	closed    bool
}

// NewRecorder creates filename and prepares the encoder.
func NewRecorder(filename string, sampleRate float64) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	r := &Recorder{
		file:    file,
		encoder: wav.NewEncoder(file, int(sampleRate), recordBitDepth, channels, 1),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  int(sampleRate),
			},
			SourceBitDepth: recordBitDepth,
		},
	}
	log.Infof("Output: recording to %s", filename)
	return r, nil
}

// Write implements graph.Sink.
func (r *Recorder) Write(stereo []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	if cap(r.sampleBuf.Data) < len(stereo) {
		r.sampleBuf.Data = make([]int, len(stereo))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(stereo)]
	const scale = 1<<(recordBitDepth-1) - 1
	for i, s := range stereo {
		r.sampleBuf.Data[i] = int(math.Round(float64(max(-1, min(1, s))) * scale))
	}
	if err := r.encoder.Write(r.sampleBuf); err != nil {
		log.Errorf("Output: error writing to WAV file: %v", err)
		return
	}
	r.frames += len(stereo) / channels
}

// Frames is the number of stereo frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to finalize recording: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close recording: %w", err)
	}
	log.Infof("Output: recording closed (%d frames)", r.frames)
	return nil
}
