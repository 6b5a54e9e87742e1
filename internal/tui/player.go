// Package tui is the terminal player: transport controls, a time bar, a
// small spectrum and a beat indicator fed by engine frames.
package tui

import (
	"fmt"
	"strings"

	"groove/internal/analysis"
	"groove/internal/engine"
	"groove/internal/playback"
	"groove/internal/rhythm"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	seekStep      = 5.0 // seconds
	spectrumWidth = 32
	barHeights    = " ▁▂▃▄▅▆▇█"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dirtyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	beatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))
)

// Controls is what the player asks of the engine.
type Controls interface {
	TogglePlay()
	ToggleAudible()
	SeekBy(delta float64)
	NextAlbum(step int)
	SetFocused(focused bool)
}

type keyMap struct {
	Play  key.Binding
	Dirty key.Binding
	Back  key.Binding
	Fwd   key.Binding
	Prev  key.Binding
	Next  key.Binding
	Focus key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Dirty, k.Back, k.Fwd, k.Prev, k.Next, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Focus}}
}

var keys = keyMap{
	Play:  key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
	Dirty: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "clean/dirty")),
	Back:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-5s")),
	Fwd:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+5s")),
	Prev:  key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "prev album")),
	Next:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "next album")),
	Focus: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// FrameMsg is the part of an engine frame the player draws. It owns its
// data.
type FrameMsg struct {
	State    engine.State
	Bins     []uint8
	Bands    analysis.BandLevels
	Level    float64
	Beat     rhythm.Beat
	HasBeat  bool
	Glow     float64
	RingsLen int
}

// NewFrameMsg copies what the player needs out of f.
func NewFrameMsg(f *engine.Frame) FrameMsg {
	return FrameMsg{
		State:    f.State,
		Bins:     append([]uint8(nil), f.Bins...),
		Bands:    f.Bands,
		Level:    f.Level,
		Beat:     f.Beat,
		HasBeat:  f.HasBeat,
		Glow:     f.Glow,
		RingsLen: len(f.Rings),
	}
}

// ErrMsg reports a failed command.
type ErrMsg struct{ Err error }

// Model is the Bubble Tea model for the player.
type Model struct {
	controls Controls
	keys     keyMap
	help     help.Model
	bar      progress.Model

	frame    FrameMsg
	lastBeat int
	focused  bool
	width    int
	err      error
}

// NewModel creates a player driving controls.
func NewModel(controls Controls) Model {
	return Model{
		controls: controls,
		keys:     keys,
		help:     help.New(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update handles input and frames.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, msg.Width-20)
		m.help.Width = msg.Width

	case FrameMsg:
		m.frame = msg
		if msg.HasBeat {
			m.lastBeat = msg.Beat.Ordinal
		}
		if !msg.State.Playing {
			m.lastBeat = 0
		}

	case ErrMsg:
		m.err = msg.Err

	case tea.KeyMsg:
		m.err = nil
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Play):
			m.controls.TogglePlay()
		case key.Matches(msg, m.keys.Dirty):
			m.controls.ToggleAudible()
		case key.Matches(msg, m.keys.Back):
			m.controls.SeekBy(-seekStep)
		case key.Matches(msg, m.keys.Fwd):
			m.controls.SeekBy(seekStep)
		case key.Matches(msg, m.keys.Prev):
			m.controls.NextAlbum(-1)
		case key.Matches(msg, m.keys.Next):
			m.controls.NextAlbum(1)
		case key.Matches(msg, m.keys.Focus):
			m.focused = !m.focused
			m.controls.SetFocused(m.focused)
		}
	}
	return m, nil
}

// View renders the player.
func (m Model) View() string {
	st := m.frame.State
	var sb strings.Builder

	album := st.Album
	if album == "" {
		album = "No album"
	}
	sb.WriteString(titleStyle.Render(album))
	sb.WriteString("\n\n")

	status := "⏸ paused"
	switch {
	case st.Playing && !st.Ready:
		status = "… loading"
	case st.Playing:
		status = "▶ playing"
	case st.ResumePending:
		status = "… switching"
	}
	mix := infoStyle.Render("clean")
	if st.Audible == playback.Dirty {
		mix = dirtyStyle.Render("dirty")
	}
	fmt.Fprintf(&sb, "%s  %s  %s\n\n", highlightStyle.Render(status), mix,
		infoStyle.Render(fmt.Sprintf("%.0f bpm", st.Bpm)))

	var pct float64
	if st.Duration > 0 {
		pct = st.CurrentTime / st.Duration
	}
	fmt.Fprintf(&sb, "%s %s / %s\n\n", m.bar.ViewAs(pct),
		engine.FormatTime(st.CurrentTime), engine.FormatTime(st.Duration))

	sb.WriteString(renderSpectrum(m.frame.Bins, spectrumWidth))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "bass %.2f  mid %.2f  high %.2f  level %.2f\n\n",
		m.frame.Bands.Bass, m.frame.Bands.Mid, m.frame.Bands.High, m.frame.Level)

	sb.WriteString(renderBeats(m.lastBeat))
	sb.WriteString("\n\n")

	if m.err != nil {
		sb.WriteString(errStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// renderSpectrum folds bins into width columns, one block glyph each.
func renderSpectrum(bins []uint8, width int) string {
	if len(bins) == 0 || width <= 0 {
		return strings.Repeat(" ", width)
	}
	glyphs := []rune(barHeights)
	per := max(1, len(bins)/width)
	var sb strings.Builder
	for c := 0; c < width; c++ {
		start := c * per
		if start >= len(bins) {
			sb.WriteRune(glyphs[0])
			continue
		}
		v := analysis.BandAverage(analysis.FrequencySnapshot{Bins: bins}, start, min(start+per, len(bins))-1)
		sb.WriteRune(glyphs[int(v*float64(len(glyphs)-1)+0.5)])
	}
	return sb.String()
}

// renderBeats shows the bar with the current beat lit.
func renderBeats(ordinal int) string {
	cells := make([]string, rhythm.BeatsPerBar)
	for i := range cells {
		if i+1 == ordinal {
			cells[i] = beatStyle.Render("●")
		} else {
			cells[i] = "○"
		}
	}
	return strings.Join(cells, " ")
}
