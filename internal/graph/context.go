// SPDX-License-Identifier: MIT

// Package graph is the audio graph shared by the playback and analysis
// components: sources are mixed onto a stereo master bus which feeds an
// optional output sink and any number of analysis taps.
//
// A Context starts suspended. Nothing renders and no source advances until
// Resume is called, which the engine does on the first user initiated play.
package graph

import (
	"errors"
	"sync"

	"groove/internal/log"
)

var (
	ErrClosed    = errors.New("graph: context closed")
	ErrSuspended = errors.New("graph: context suspended")
)

// State of the graph's output.
type State int

const (
	Suspended State = iota
	Running
	Closed
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Running:
		return "running"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Source renders interleaved stereo frames additively into dst.
type Source interface {
	Render(dst []float32, sampleRate float64)
}

// Tap receives the mono downmix of the master bus after every render.
type Tap interface {
	Feed(mono []float32)
}

// Sink receives the interleaved stereo master bus, e.g. an output device.
type Sink interface {
	Write(stereo []float32)
}

// Connection identifies one attached source, tap or sink. Disconnecting a
// connection never affects any other.
type Connection uint64

type node[T any] struct {
	id Connection
	v  T
}

// Context owns the master bus and its connections.
type Context struct {
	sampleRate float64
	maxFrames  int

	mu      sync.Mutex
	state   State
	next    Connection
	sources []node[Source]
	taps    []node[Tap]
	sinks   []node[Sink]

	mix  []float32
	mono []float32
}

// NewContext creates a suspended graph rendering at sampleRate. Renders are
// capped to a quarter second of audio so a stalled loop does not produce a
// burst.
func NewContext(sampleRate float64) *Context {
	maxFrames := int(sampleRate / 4)
	if maxFrames < 1 {
		maxFrames = 1
	}
	return &Context{
		sampleRate: sampleRate,
		maxFrames:  maxFrames,
		mix:        make([]float32, 2*maxFrames),
		mono:       make([]float32, maxFrames),
	}
}

func (c *Context) SampleRate() float64 { return c.sampleRate }

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err reports why the context is not rendering: ErrSuspended, ErrClosed,
// or nil while running.
func (c *Context) Err() error {
	switch c.State() {
	case Running:
		return nil
	case Closed:
		return ErrClosed
	default:
		return ErrSuspended
	}
}

// Resume starts rendering. It is idempotent while running.
func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Closed:
		return ErrClosed
	case Suspended:
		log.Debug("Graph: resumed")
		c.state = Running
	}
	return nil
}

// Suspend stops rendering without releasing connections.
func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return ErrClosed
	}
	c.state = Suspended
	return nil
}

// Close releases every connection. A closed context cannot be resumed.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return nil
	}
	c.state = Closed
	c.sources, c.taps, c.sinks = nil, nil, nil
	log.Debug("Graph: closed")
	return nil
}

// Connect adds a source to the master bus.
func (c *Context) Connect(s Source) (Connection, error) {
	if s == nil {
		return 0, errors.New("graph: connect: nil source")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return 0, ErrClosed
	}
	c.next++
	c.sources = append(c.sources, node[Source]{c.next, s})
	return c.next, nil
}

// Attach adds an analysis tap after the master bus.
func (c *Context) Attach(t Tap) (Connection, error) {
	if t == nil {
		return 0, errors.New("graph: attach: nil tap")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return 0, ErrClosed
	}
	c.next++
	c.taps = append(c.taps, node[Tap]{c.next, t})
	return c.next, nil
}

// Output adds a sink receiving the stereo master bus.
func (c *Context) Output(s Sink) (Connection, error) {
	if s == nil {
		return 0, errors.New("graph: output: nil sink")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return 0, ErrClosed
	}
	c.next++
	c.sinks = append(c.sinks, node[Sink]{c.next, s})
	return c.next, nil
}

// Disconnect removes exactly the connection id. Unknown ids are ignored.
func (c *Context) Disconnect(id Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = remove(c.sources, id)
	c.taps = remove(c.taps, id)
	c.sinks = remove(c.sinks, id)
}

func remove[T any](nodes []node[T], id Connection) []node[T] {
	for i, n := range nodes {
		if n.id == id {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}

// Render pulls frames from every source, mixes them and hands the result
// to sinks and taps. It reports the number of frames rendered, which is 0
// unless the context is running.
func (c *Context) Render(frames int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Running || frames <= 0 {
		return 0
	}
	if frames > c.maxFrames {
		frames = c.maxFrames
	}

	mix := c.mix[:2*frames]
	clear(mix)
	for _, n := range c.sources {
		n.v.Render(mix, c.sampleRate)
	}

	for _, n := range c.sinks {
		n.v.Write(mix)
	}

	if len(c.taps) > 0 {
		mono := c.mono[:frames]
		for i := range mono {
			mono[i] = (mix[2*i] + mix[2*i+1]) / 2
		}
		for _, n := range c.taps {
			n.v.Feed(mono)
		}
	}

	return frames
}
