package tui

import (
	"sync"

	"groove/internal/engine"

	tea "github.com/charmbracelet/bubbletea"
)

// EngineControls queues player commands onto the engine loop.
type EngineControls struct {
	Engine *engine.Engine
	// OnError receives errors from commands that can fail. It is called on
	// the engine loop.
	OnError func(error)
}

func (c EngineControls) TogglePlay()    { c.Engine.Do((*engine.Engine).TogglePlay) }
func (c EngineControls) ToggleAudible() { c.Engine.Do((*engine.Engine).ToggleAudible) }

func (c EngineControls) SeekBy(delta float64) {
	c.Engine.Do(func(e *engine.Engine) { e.SeekBy(delta) })
}

func (c EngineControls) SetFocused(focused bool) {
	c.Engine.Do(func(e *engine.Engine) { e.SetFocused(focused) })
}

func (c EngineControls) NextAlbum(step int) {
	c.Engine.Do(func(e *engine.Engine) {
		if err := e.NextAlbum(step); err != nil && c.OnError != nil {
			c.OnError(err)
		}
	})
}

// Publisher forwards engine frames to a running program. Only the newest
// frame is kept, so a slow terminal never stalls the engine loop.
type Publisher struct {
	send      func(tea.Msg)
	latest    chan FrameMsg
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPublisher starts forwarding to send, usually (*tea.Program).Send.
func NewPublisher(send func(tea.Msg)) *Publisher {
	p := &Publisher{
		send:   send,
		latest: make(chan FrameMsg, 1),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.forward()
	return p
}

func (p *Publisher) forward() {
	defer p.wg.Done()
	for {
		select {
		case msg := <-p.latest:
			p.send(msg)
		case <-p.done:
			return
		}
	}
}

// Send implements engine.Publisher.
func (p *Publisher) Send(f *engine.Frame) error {
	msg := NewFrameMsg(f)
	for {
		select {
		case p.latest <- msg:
			return nil
		default:
		}
		// Replace the frame nobody has picked up yet.
		select {
		case <-p.latest:
		default:
		}
	}
}

// Close stops forwarding. Safe to call more than once.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
	return nil
}

// Run starts the player against a running engine and blocks until the
// user quits.
func Run(eng *engine.Engine) error {
	var prog *tea.Program
	controls := EngineControls{
		Engine:  eng,
		OnError: func(err error) { go prog.Send(ErrMsg{Err: err}) },
	}
	prog = tea.NewProgram(NewModel(controls), tea.WithAltScreen())

	pub := NewPublisher(prog.Send)
	defer pub.Close()
	eng.Do(func(e *engine.Engine) { e.AddPublisher(pub) })

	_, err := prog.Run()
	return err
}
