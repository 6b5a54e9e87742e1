package output

import "sync"

// Ring is a fixed-size interleaved stereo FIFO between the frame loop and
// the device callback. Writes that would overflow drop the oldest samples;
// reads that find too little pad with silence.
type Ring struct {
	mu    sync.Mutex
	buf   []float32
	start int // index of the oldest sample
	n     int // samples held

	overruns  uint64
	underruns uint64
}

// NewRing holds up to frames stereo frames.
func NewRing(frames int) *Ring {
	return &Ring{buf: make([]float32, max(frames, 1)*2)}
}

// Write implements graph.Sink.
func (r *Ring) Write(stereo []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buf)
	if len(stereo) > size {
		stereo = stereo[len(stereo)-size:]
	}
	if drop := r.n + len(stereo) - size; drop > 0 {
		r.start = (r.start + drop) % size
		r.n -= drop
		r.overruns++
	}
	end := (r.start + r.n) % size
	for _, s := range stereo {
		r.buf[end] = s
		end++
		if end == size {
			end = 0
		}
	}
	r.n += len(stereo)
}

// Read fills dst, returning how many samples came from the buffer.
func (r *Ring) Read(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buf)
	got := min(len(dst), r.n)
	for i := 0; i < got; i++ {
		dst[i] = r.buf[(r.start+i)%size]
	}
	r.start = (r.start + got) % size
	r.n -= got
	if got < len(dst) {
		clear(dst[got:])
		r.underruns++
	}
	return got
}

// Len is the number of samples buffered.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Stats returns the overrun and underrun counts so far.
func (r *Ring) Stats() (overruns, underruns uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overruns, r.underruns
}
