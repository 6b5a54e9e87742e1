// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
)

func TestSineWave(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 44100, 440.0},
		{"Middle C", 44100, 261.63},
		{"High Sample Rate", 192000, 440.0},
		{"Low Sample Rate", 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SineWave(testSize, tt.sampleRate, tt.frequency, 0.5)
			if len(result) != testSize {
				t.Fatalf("SineWave() buffer size = %d, want %d", len(result), testSize)
			}

			samplesPerCycle := tt.sampleRate / tt.frequency
			crossCount := 0
			for i := 1; i < testSize; i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossCount++
				}
			}

			// Two crossings per cycle, give or take phase alignment.
			expected := float64(testSize) / (samplesPerCycle / 2)
			tolerance := 0.2 * expected
			if math.Abs(float64(crossCount)-expected) > tolerance {
				t.Errorf("SineWave() zero crossings = %d, expected approximately %.1f±%.1f",
					crossCount, expected, tolerance)
			}

			for _, v := range result {
				if v > 0.5 || v < -0.5 {
					t.Fatalf("SineWave() sample %f exceeds amplitude", v)
				}
			}
		})
	}
}

func TestComplexWave(t *testing.T) {
	result := ComplexWave(testSize, testSampleRate)
	if len(result) != testSize {
		t.Fatalf("ComplexWave() buffer size = %d, want %d", len(result), testSize)
	}
	var peak float32
	for _, v := range result {
		peak = max(peak, v, -v)
	}
	if peak == 0 || peak > 1 {
		t.Errorf("ComplexWave() peak = %f, want (0, 1]", peak)
	}
}

func TestStereo(t *testing.T) {
	got := Stereo([]float32{0.1, -0.2})
	want := []float32{0.1, 0.1, -0.2, -0.2}
	if len(got) != len(want) {
		t.Fatalf("Stereo() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Stereo()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestPeakBin(t *testing.T) {
	hill := make([]float64, testSize)
	for i := range hill {
		hill[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	tests := []struct {
		name     string
		values   []float64
		start    int
		end      int
		expected int
	}{
		{"Full Range", hill, 0, testSize - 1, testSize / 4},
		{"Partial Range Start", hill, testSize / 8, testSize - 1, testSize / 4},
		{"Negative Start", hill, -10, testSize - 1, testSize / 4},
		{"Out of Range End", hill, 0, testSize * 2, testSize / 4},
		{"Past The Peak", hill, testSize / 2, testSize - 1, testSize / 2},
		{"Empty Slice", []float64{}, 0, 10, 0},
		{"Single Value", []float64{1.0}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeakBin(tt.values, tt.start, tt.end); got != tt.expected {
				t.Errorf("PeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}

	if got := PeakBin([]uint8{3, 200, 7}, 0, 2); got != 1 {
		t.Errorf("PeakBin(uint8) = %d, want 1", got)
	}
}
