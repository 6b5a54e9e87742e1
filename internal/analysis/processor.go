// SPDX-License-Identifier: MIT
package analysis

// FrequencySource is anything that can produce byte frequency data. It
// decouples the Pipeline from the concrete FFT implementation.
type FrequencySource interface {
	ByteFrequencyData(dst []uint8)        // Fills dst with the next smoothed frame.
	FrequencyBinCount() int               // Number of bins per frame.
	FrequencyForBin(binIndex int) float64 // Center frequency (Hz) of a bin.
	Reset()                               // Drops captured samples and history.
}

var _ FrequencySource = (*Analyser)(nil)
