package transport

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"groove/internal/analysis"
	"groove/internal/engine"
	"groove/internal/log"
	"groove/internal/playback"
	"groove/internal/pulse"
	"groove/internal/rhythm"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() *engine.Frame {
	f := &engine.Frame{
		Seq:     7,
		Elapsed: 2.0,
		State: engine.State{
			Playing:     true,
			Ready:       true,
			CurrentTime: 61.5,
			Duration:    180,
			Audible:     playback.Dirty,
			Rate:        1,
			Album:       "Groove",
			Bpm:         120,
		},
		Bins:     []uint8{0, 128, 255},
		Bands:    analysis.BandLevels{Bass: 0.5, Mid: 0.25, High: 0.125},
		Spectrum: make([]float64, len(analysis.SpectrumBands)),
		Level:    0.3,
		Beat:     rhythm.Beat{Ordinal: 3, Time: 1.5},
		HasBeat:  true,
		Glow:     0.5,
	}
	f.Spectrum[0] = 0.9
	var field pulse.Field
	field.Add(f.Beat, 1.25, false)
	f.Rings = field.Rings()
	return f
}

func TestNewMessage(t *testing.T) {
	f := testFrame()
	m := NewMessage(f)

	assert.Equal(t, "frame", m.Type)
	assert.Equal(t, uint64(7), m.Seq)
	assert.Equal(t, "dirty", m.State.Audible)
	assert.Equal(t, "Groove", m.State.Album)
	assert.Equal(t, []int{0, 128, 255}, m.Bins)
	assert.Equal(t, 0.5, m.Bands["bass"])
	assert.Equal(t, 0.9, m.Spectrum[analysis.SpectrumBands[0].Name])
	assert.Len(t, m.Spectrum, len(analysis.SpectrumBands))
	require.NotNil(t, m.Beat)
	assert.Equal(t, 3, m.Beat.Ordinal)

	require.Len(t, m.Rings, 1)
	assert.InDelta(t, 0.5, m.Rings[0].Progress, 1e-9)
	assert.Equal(t, "#ffd700", m.Rings[0].Color)

	// The message owns its data.
	f.Bins[0] = 99
	assert.Equal(t, 0, m.Bins[0])
}

func TestNewMessage_NoBeat(t *testing.T) {
	f := testFrame()
	f.HasBeat = false
	f.Rings = nil
	m := NewMessage(f)
	assert.Nil(t, m.Beat)
	assert.Empty(t, m.Rings)
}

func TestLoggingTransport_LogsStateChanges(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	lt := NewLoggingTransport()
	f := testFrame()
	require.NoError(t, lt.Send(f))
	require.NoError(t, lt.Send(f))
	assert.Equal(t, 1, strings.Count(buf.String(), "LOG_TRANSPORT: state"))

	f.State.Playing = false
	require.NoError(t, lt.Send(f))
	assert.Equal(t, 2, strings.Count(buf.String(), "LOG_TRANSPORT: state"))

	require.NoError(t, lt.Close())
	assert.Contains(t, buf.String(), "after 3 frames")
}

func TestWebSocketTransport_Broadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer wst.Close()

	// No clients: nothing is queued.
	require.NoError(t, wst.Send(testFrame()))

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return wst.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, wst.Send(testFrame()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	assert.Equal(t, uint64(7), m.Seq)
	assert.Equal(t, []int{0, 128, 255}, m.Bins)
	require.NotNil(t, m.Beat)
	assert.Equal(t, 3, m.Beat.Ordinal)
}

func TestWebSocketTransport_ClientLeaves(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer wst.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return wst.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return wst.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketTransport_CloseTwice(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close())
}

func TestNewWebSocketTransport_BadAddr(t *testing.T) {
	_, err := NewWebSocketTransport("256.0.0.1:bad")
	assert.Error(t, err)
}
