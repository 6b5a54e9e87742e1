package analysis

// FrequencySnapshot holds one frame of byte frequency data. A snapshot
// returned by Pipeline.Sample shares its buffer with the pipeline and is
// valid until the next Sample; Clone it to keep it longer.
type FrequencySnapshot struct {
	Bins []uint8
}

// Clone returns a snapshot with its own copy of the bins.
func (s FrequencySnapshot) Clone() FrequencySnapshot {
	return FrequencySnapshot{Bins: append([]uint8(nil), s.Bins...)}
}

// BandAverage returns the mean of bins start..end inclusive, normalised to
// [0,1]. Out-of-range or inverted ranges yield 0.
func BandAverage(s FrequencySnapshot, start, end int) float64 {
	if start < 0 || end < start || end >= len(s.Bins) {
		return 0
	}
	var sum int
	for _, b := range s.Bins[start : end+1] {
		sum += int(b)
	}
	return float64(sum) / float64(end-start+1) / 255
}

// BandLevels is the coarse three-way split consumers draw with.
type BandLevels struct {
	Bass float64
	Mid  float64
	High float64
}

// Bands splits the snapshot into thirds of its bin range.
func Bands(s FrequencySnapshot) BandLevels {
	n := len(s.Bins)
	if n < 3 {
		return BandLevels{}
	}
	a, b := n/3, 2*n/3
	return BandLevels{
		Bass: BandAverage(s, 0, a-1),
		Mid:  BandAverage(s, a, b-1),
		High: BandAverage(s, b, n-1),
	}
}

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// SpectrumBands are the named bands published to renderers. The top band
// is open ended and runs to Nyquist.
var SpectrumBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: 0},
}

// BandEnergies writes the level of each band into dst, which must be at
// least len(bands) long, and returns dst[:len(bands)]. Bins are assigned by
// center frequency from src; a band that covers no bin reads 0.
func BandEnergies(dst []float64, s FrequencySnapshot, src FrequencySource, bands []FrequencyBand) []float64 {
	dst = dst[:len(bands)]
	for i, band := range bands {
		var sum, count int
		for k, v := range s.Bins {
			freq := src.FrequencyForBin(k)
			if freq >= band.LowHz && (band.HighHz <= 0 || freq < band.HighHz) {
				sum += int(v)
				count++
			}
		}
		dst[i] = 0
		if count > 0 {
			dst[i] = float64(sum) / float64(count) / 255
		}
	}
	return dst
}
