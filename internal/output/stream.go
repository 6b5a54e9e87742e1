// SPDX-License-Identifier: MIT
/*
Package output plays the master bus through a PortAudio device and can
record it to a WAV file.

Thread Safety:
- The frame loop writes into a mutex-guarded ring
- The device callback only reads from the ring
- No allocations in the callback
*/
package output

import (
	"fmt"
	"runtime"
	"time"

	"groove/internal/config"
	"groove/internal/log"

	"github.com/gordonklaus/portaudio"
)

// channels is fixed: the graph mixes to stereo.
const channels = 2

// Stream is a graph.Sink that plays whatever the loop renders.
type Stream struct {
	ring    *Ring
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream
}

// OpenStream opens (but does not start) an output stream for cfg.
// PortAudio must be initialized.
func OpenStream(cfg config.OutputConfig) (*Stream, error) {
	device, err := OutputDevice(cfg.Device)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		// A quarter second absorbs jitter between the loop and the device.
		ring:   NewRing(int(cfg.SampleRate / 4)),
		device: device,
	}
	if cfg.LowLatency {
		s.latency = device.DefaultLowOutputLatency
	} else {
		s.latency = device.DefaultHighOutputLatency
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  s.latency,
		},
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: cfg.FramesPerBuffer,
	}
	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		return nil, fmt.Errorf("failed to open output stream on %q: %w", device.Name, err)
	}
	s.stream = stream

	log.WithFields(log.Fields{
		"device":      device.Name,
		"sample_rate": cfg.SampleRate,
		"latency":     s.latency,
	}).Info("Output: stream opened")
	return s, nil
}

// Write implements graph.Sink.
func (s *Stream) Write(stereo []float32) { s.ring.Write(stereo) }

// Start begins pulling audio from the ring.
func (s *Stream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	return nil
}

// Close stops and closes the device stream.
func (s *Stream) Close() error {
	if s.stream == nil {
		return nil
	}
	over, under := s.ring.Stats()
	log.Debugf("Output: closing stream (overruns: %d, underruns: %d)", over, under)

	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop output stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("failed to close output stream: %w", err)
	}
	s.stream = nil
	return nil
}

// process is the device callback.
func (s *Stream) process(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.ring.Read(out)
}
