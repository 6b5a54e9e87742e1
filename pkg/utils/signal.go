// SPDX-License-Identifier: MIT

// Package utils holds signal helpers shared by tests.
package utils

import (
	"cmp"
	"math"
)

// SineWave returns n samples of a sine at frequency Hz with peak amp.
func SineWave(n int, sampleRate, frequency, amp float64) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(amp * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// ComplexWave is a 440Hz fundamental plus two harmonics, peaking below 1.
func ComplexWave(n int, sampleRate float64) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// Stereo interleaves mono into L/R pairs.
func Stereo(mono []float32) []float32 {
	out := make([]float32, 2*len(mono))
	for i, v := range mono {
		out[2*i], out[2*i+1] = v, v
	}
	return out
}

// PeakBin is the index of the largest value in values[startBin:endBin+1].
// The range is clamped to the slice; an empty slice gives 0.
func PeakBin[T cmp.Ordered](values []T, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}
	startBin = max(startBin, 0)
	endBin = min(endBin, len(values)-1)
	if startBin > endBin {
		return startBin
	}

	peakBin := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > values[peakBin] {
			peakBin = bin
		}
	}
	return peakBin
}
