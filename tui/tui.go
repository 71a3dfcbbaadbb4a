// package tui is the terminal front end: it plays keys on a hid.Keyboard and
// draws what the mixer is doing.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pfcm/synth"
	"github.com/pfcm/synth/hid"
	"github.com/pfcm/synth/internal/buffer"
)

// Frame is how often the view redraws.
const Frame = time.Second / 30

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("229"))
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	scopeStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(Frame, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model for the synth.
type Model struct {
	mixer    *synth.Mixer
	keyboard *hid.Keyboard
	registry *synth.Registry
	scope    *buffer.Ring

	samples []float32
	width   int
	status  string
}

// New returns a model playing keyboard into mixer. scope may be nil.
func New(mixer *synth.Mixer, keyboard *hid.Keyboard, registry *synth.Registry, scope *buffer.Ring) *Model {
	m := &Model{
		mixer:    mixer,
		keyboard: keyboard,
		registry: registry,
		scope:    scope,
		width:    64,
	}
	if scope != nil {
		m.samples = make([]float32, scope.Len())
	}
	return m
}

func (m *Model) Init() tea.Cmd { return tick() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyTab:
			next := m.registry.Next(m.mixer.Instrument())
			m.mixer.SetInstrument(next)
			m.status = ""
		case tea.KeyRunes:
			for _, r := range msg.Runes {
				if err := m.keyboard.Press(unicode.ToLower(r)); err != nil {
					m.status = err.Error()
				}
			}
		}
	case tea.WindowSizeMsg:
		m.width = max(16, msg.Width-2)
	case tickMsg:
		if m.scope != nil {
			m.scope.Read(m.samples)
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s  %s\n",
		headerStyle.Render("synth"),
		m.mixer.Instrument(),
		dimStyle.Render(m.keyboard.Mode().String()))

	fmt.Fprintf(&b, "voices %2d  %s\n", m.mixer.Voices(), meterStyle.Render(meter(m.mixer.Level(), 40)))
	b.WriteString(keys(m.keyboard.Held()))
	b.WriteByte('\n')

	if m.scope != nil {
		b.WriteString(scopeStyle.Render(strings.Join(scopeLines(m.samples, m.width, 9), "\n")))
		b.WriteByte('\n')
	}
	if m.status != "" {
		b.WriteString(errStyle.Render(m.status))
		b.WriteByte('\n')
	}
	b.WriteString(dimStyle.Render("play: " + hid.Keys + "  tab: instrument  esc: quit"))
	b.WriteByte('\n')
	return b.String()
}

// keys draws the playing keys with the held ones lit.
func keys(held []int) string {
	lit := make([]bool, len(hid.Keys))
	for _, d := range held {
		lit[d] = true
	}
	var b strings.Builder
	for d, r := range hid.Keys {
		k := fmt.Sprintf(" %c ", r)
		if lit[d] {
			k = keyStyle.Render(k)
		}
		b.WriteString(k)
	}
	return b.String()
}

// meter draws an RMS level in [0, 1] on a log scale from -60dB.
func meter(level float64, width int) string {
	frac := 0.0
	if level > 0 {
		db := 20 * math.Log10(level)
		frac = min(1, max(0, (db+60)/60))
	}
	n := int(math.Round(frac * float64(width)))
	return strings.Repeat("█", n) + strings.Repeat("·", width-n)
}

// scopeLines plots samples in [-1, 1] across width columns and height rows,
// one dot per column. Positive values are at the top.
func scopeLines(samples []float32, width, height int) []string {
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	if len(samples) > 0 {
		for x := 0; x < width; x++ {
			s := float64(samples[x*len(samples)/width])
			s = min(1, max(-1, s))
			if math.IsNaN(s) {
				s = 0
			}
			y := int(math.Round((1 - s) / 2 * float64(height-1)))
			grid[y][x] = '•'
		}
	}
	lines := make([]string, height)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return lines
}
