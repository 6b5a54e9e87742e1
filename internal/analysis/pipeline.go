// Package analysis turns the audible mix into per-frame frequency
// snapshots for visual consumers.
package analysis

import (
	"groove/internal/graph"
	"groove/internal/log"
)

// Graph is the part of graph.Context a Pipeline needs.
type Graph interface {
	Attach(t graph.Tap) (graph.Connection, error)
	Disconnect(id graph.Connection)
	Err() error
}

// Tap is an analyser that can sit on the graph.
type Tap interface {
	graph.Tap
	FrequencySource
}

// Pipeline samples one analyser once per frame. If the tap cannot be
// attached the pipeline keeps working but every snapshot is zero.
type Pipeline struct {
	g        Graph
	src      Tap
	conn     graph.Connection
	degraded bool
	audible  func() bool
	bins     []uint8
}

// NewPipeline attaches src to g. audible reports whether the session is
// currently playing; nil means always.
func NewPipeline(g Graph, src Tap, audible func() bool) *Pipeline {
	p := &Pipeline{
		g:       g,
		src:     src,
		audible: audible,
		bins:    make([]uint8, src.FrequencyBinCount()),
	}
	conn, err := g.Attach(src)
	if err != nil {
		log.Warnf("Analysis: could not attach analyser, snapshots will be silent: %v", err)
		p.degraded = true
		return p
	}
	p.conn = conn
	return p
}

// Degraded reports whether the analyser failed to attach.
func (p *Pipeline) Degraded() bool { return p.degraded }

// BinCount is the number of bins in every snapshot.
func (p *Pipeline) BinCount() int { return len(p.bins) }

// Source returns the analyser behind the pipeline.
func (p *Pipeline) Source() FrequencySource { return p.src }

// Sample returns the current frame. The bins are zero while not audible,
// while the graph is not running, or if the pipeline is degraded. Sample
// does not allocate.
func (p *Pipeline) Sample() FrequencySnapshot {
	if p.degraded || p.g.Err() != nil || (p.audible != nil && !p.audible()) {
		clear(p.bins)
		return FrequencySnapshot{Bins: p.bins}
	}
	p.src.ByteFrequencyData(p.bins)
	return FrequencySnapshot{Bins: p.bins}
}

// Close detaches the analyser. Later samples are zero.
func (p *Pipeline) Close() {
	if p.degraded {
		return
	}
	p.g.Disconnect(p.conn)
	p.degraded = true
}
