package media

import "math"

// Handle wraps one Transport with the url it was asked to play and whether
// that source can currently play through. Events belonging to a url other
// than the current one are dropped.
type Handle struct {
	name   string
	t      Transport
	url    string
	ready  bool
	events []Event
}

// NewHandle wraps t. name is used in log lines ("clean", "dirty").
func NewHandle(name string, t Transport) *Handle {
	return &Handle{name: name, t: t, events: make([]Event, 0, 8)}
}

func (h *Handle) Name() string         { return h.name }
func (h *Handle) URL() string          { return h.url }
func (h *Handle) Ready() bool          { return h.ready }
func (h *Handle) Transport() Transport { return h.t }
func (h *Handle) CurrentTime() float64 { return finite(h.t.CurrentTime()) }
func (h *Handle) Duration() float64    { return finite(h.t.Duration()) }
func (h *Handle) Paused() bool         { return h.t.Paused() }

// Load assigns url, clears readiness and starts loading.
func (h *Handle) Load(url string) {
	h.url = url
	h.ready = false
	h.t.Load(url)
}

// Poll drains the transport's signals and updates readiness. The returned
// slice is reused by the next call.
func (h *Handle) Poll() []Event {
	all := h.t.PollEvents(h.events[:0])
	kept := all[:0]
	for _, ev := range all {
		if ev.URL != h.url {
			continue
		}
		switch ev.Type {
		case CanPlay:
			h.ready = true
		case Error, LoadStart:
			h.ready = false
		}
		kept = append(kept, ev)
	}
	h.events = all
	return kept
}

// finite maps NaN and infinities to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
