// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"groove/internal/engine"
	"groove/internal/log"
	"groove/internal/playback"

	"k8s.io/utils/clock"
)

// PacketSender is what the publisher writes packets to.
type PacketSender interface {
	Send(data []byte) error
	Close() error
}

const (
	flagPlaying = 1 << iota
	flagReady
	flagBeat
	flagDirty
)

// headerSize is the fixed part of every packet in bytes.
const headerSize = 4 + 8 + 1 + 1 + 2

// Publisher keeps the latest frame and sends it as a packet on its own
// interval, independent of the engine's tick rate. A beat seen between two
// packets is carried by the next one.
type Publisher struct {
	sender   PacketSender
	clock    clock.WithTicker
	interval time.Duration

	mu      sync.Mutex // Guards the latest-frame fields below.
	bins    []uint8
	flags   uint8
	ordinal uint8
	fresh   bool

	ticker   clock.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup

	sequenceNum  uint32
	packetBuffer *bytes.Buffer // Reused for every packet.
}

// NewPublisher creates a publisher sending through sender every interval.
// If the interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender PacketSender, clk clock.WithTicker) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	log.Infof("UDPPublisher: Initializing (Interval: %s)", interval)
	return &Publisher{
		sender:       sender,
		clock:        clk,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send implements transport.Transport. It only records the frame.
func (p *Publisher) Send(f *engine.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bins = append(p.bins[:0], f.Bins...)
	flags := p.flags & flagBeat // a beat waits for the next packet
	if f.State.Playing {
		flags |= flagPlaying
	}
	if f.State.Ready {
		flags |= flagReady
	}
	if f.State.Audible == playback.Dirty {
		flags |= flagDirty
	}
	if f.HasBeat {
		flags |= flagBeat
		p.ordinal = uint8(f.Beat.Ordinal)
	}
	p.flags = flags
	p.fresh = true
	return nil
}

// Start launches the sending goroutine. Calling Start twice is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		log.Warn("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = p.clock.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, done := p.ticker, p.doneChan

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C():
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop terminates the sending goroutine and waits for it.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	p.ticker.Stop()
	p.ticker = nil
	close(p.doneChan)
	p.mu.Unlock()

	p.wg.Wait()
	log.Debug("UDPPublisher: Publisher goroutine finished.")
}

/*
UDP Packet Structure (BigEndian)

+---------------------------------------------------------------------------+
| Field           | Data Type | Size (Bytes) | Description                   |
|-----------------|-----------|--------------|-------------------------------|
| Sequence Number | uint32    | 4            | Monotonically increasing      |
| Timestamp       | int64     | 8            | Nanoseconds since epoch       |
| Flags           | uint8     | 1            | playing, ready, beat, dirty   |
| Beat Ordinal    | uint8     | 1            | 1-4, valid with the beat flag |
| Bin Count       | uint16    | 2            | Number of bins (N)            |
| Bins            | []uint8   | N            | Byte frequency data           |
+---------------------------------------------------------------------------+
*/

// publish packs and sends the latest frame if one arrived since the last
// packet.
func (p *Publisher) publish() {
	p.mu.Lock()
	if !p.fresh {
		p.mu.Unlock()
		return
	}
	p.fresh = false
	p.sequenceNum++

	buf := p.packetBuffer
	buf.Reset()
	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:], p.sequenceNum)
	binary.BigEndian.PutUint64(header[4:], uint64(p.clock.Now().UnixNano()))
	header[12] = p.flags
	header[13] = p.ordinal
	binary.BigEndian.PutUint16(header[14:], uint16(len(p.bins)))
	buf.Write(header[:])
	buf.Write(p.bins)

	p.flags &^= flagBeat
	seq := p.sequenceNum
	p.mu.Unlock()

	if err := p.sender.Send(buf.Bytes()); err != nil {
		log.Debugf("UDPPublisher: packet %d not sent: %v", seq, err)
		return
	}
	log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", seq, buf.Len())
}

// Close stops publishing and closes the sender.
func (p *Publisher) Close() error {
	p.Stop()
	return p.sender.Close()
}

// Packet is a decoded publisher packet.
type Packet struct {
	Seq       uint32
	Timestamp time.Time
	Playing   bool
	Ready     bool
	Dirty     bool
	Beat      bool
	Ordinal   int
	Bins      []uint8
}

// Decode parses a packet produced by Publisher.
func Decode(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, fmt.Errorf("packet too short: %d bytes", len(data))
	}
	n := int(binary.BigEndian.Uint16(data[14:]))
	if len(data) != headerSize+n {
		return Packet{}, fmt.Errorf("packet length %d does not match bin count %d", len(data), n)
	}
	flags := data[12]
	return Packet{
		Seq:       binary.BigEndian.Uint32(data[0:]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(data[4:]))),
		Playing:   flags&flagPlaying != 0,
		Ready:     flags&flagReady != 0,
		Dirty:     flags&flagDirty != 0,
		Beat:      flags&flagBeat != 0,
		Ordinal:   int(data[13]),
		Bins:      append([]uint8(nil), data[headerSize:]...),
	}, nil
}
