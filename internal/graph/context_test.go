// SPDX-License-Identifier: MIT
package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constSource adds a fixed value to both channels and counts rendered frames.
type constSource struct {
	v      float32
	frames int
}

func (s *constSource) Render(dst []float32, _ float64) {
	for i := range dst {
		dst[i] += s.v
	}
	s.frames += len(dst) / 2
}

type recordTap struct {
	last  []float32
	calls int
}

func (t *recordTap) Feed(mono []float32) {
	t.last = append(t.last[:0], mono...)
	t.calls++
}

type recordSink struct{ frames int }

func (s *recordSink) Write(stereo []float32) { s.frames += len(stereo) / 2 }

func TestContext_StartsSuspended(t *testing.T) {
	c := NewContext(48000)
	src := &constSource{v: 0.5}
	_, err := c.Connect(src)
	require.NoError(t, err)

	assert.Equal(t, Suspended, c.State())
	assert.ErrorIs(t, c.Err(), ErrSuspended)
	assert.Zero(t, c.Render(480))
	assert.Zero(t, src.frames, "suspended graph must not advance sources")

	require.NoError(t, c.Resume())
	require.NoError(t, c.Resume())
	assert.NoError(t, c.Err())
	assert.Equal(t, 480, c.Render(480))
	assert.Equal(t, 480, src.frames)
}

func TestContext_MixesSourcesIntoTapsAndSinks(t *testing.T) {
	c := NewContext(48000)
	require.NoError(t, c.Resume())

	_, err := c.Connect(&constSource{v: 0.25})
	require.NoError(t, err)
	_, err = c.Connect(&constSource{v: 0.5})
	require.NoError(t, err)

	tap := &recordTap{}
	sink := &recordSink{}
	_, err = c.Attach(tap)
	require.NoError(t, err)
	_, err = c.Output(sink)
	require.NoError(t, err)

	c.Render(64)
	require.Len(t, tap.last, 64)
	assert.InDelta(t, 0.75, tap.last[0], 1e-6)
	assert.Equal(t, 64, sink.frames)
}

func TestContext_DetachingOneTapKeepsOthers(t *testing.T) {
	c := NewContext(48000)
	require.NoError(t, c.Resume())
	_, err := c.Connect(&constSource{v: 1})
	require.NoError(t, err)

	a, b := &recordTap{}, &recordTap{}
	idA, err := c.Attach(a)
	require.NoError(t, err)
	idB, err := c.Attach(b)
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)

	c.Render(10)
	c.Disconnect(idA)
	c.Disconnect(idA) // second detach is a no-op
	c.Render(10)

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 2, b.calls)
}

func TestContext_RenderIsCapped(t *testing.T) {
	c := NewContext(8000)
	require.NoError(t, c.Resume())
	assert.Equal(t, 2000, c.Render(1_000_000))
}

func TestContext_Close(t *testing.T) {
	c := NewContext(48000)
	src := &constSource{v: 1}
	_, err := c.Connect(src)
	require.NoError(t, err)
	require.NoError(t, c.Resume())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, Closed, c.State())
	assert.ErrorIs(t, c.Resume(), ErrClosed)
	assert.ErrorIs(t, c.Err(), ErrClosed)
	assert.Zero(t, c.Render(100))

	_, err = c.Attach(&recordTap{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestContext_NilNodes(t *testing.T) {
	c := NewContext(48000)
	_, err := c.Connect(nil)
	assert.Error(t, err)
	_, err = c.Attach(nil)
	assert.Error(t, err)
	_, err = c.Output(nil)
	assert.Error(t, err)
}

func TestContext_RenderAllocations(t *testing.T) {
	c := NewContext(44100)
	require.NoError(t, c.Resume())
	_, _ = c.Connect(&constSource{v: 0.1})
	_, _ = c.Attach(&recordTap{last: make([]float32, 0, 1024)})

	allocs := testing.AllocsPerRun(100, func() {
		c.Render(735)
	})
	if allocs > 0 {
		t.Errorf("Render allocated memory: got %.1f allocs, want 0", allocs)
	}
}
