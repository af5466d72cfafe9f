// Package tui is the interactive terminal probe: it captures every display,
// then lets the user walk a probe point across the virtual screen and reads
// the color under it.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/capture"
	"github.com/bryanchriswhite/ColorProbe/internal/display"
	"github.com/bryanchriswhite/ColorProbe/internal/probe"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const captureTimeout = 10 * time.Second

// Capturer is the part of the capture orchestrator the probe needs
type Capturer interface {
	CaptureAll(ctx context.Context) (*capture.MultiDisplayCapture, error)
	Invalidate()
}

type state int

const (
	stateCapturing state = iota
	stateProbing
	stateDone
)

type captureDoneMsg struct {
	mc  *capture.MultiDisplayCapture
	err error
}

// Model is the bubbletea model for the probe
type Model struct {
	state    state
	spinner  spinner.Model
	capturer Capturer

	mc      *capture.MultiDisplayCapture
	point   display.Point
	placed  bool
	reading probe.Reading
	picked  bool
	err     error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
	hexStyle   = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// New creates a probe model. The probe starts at start when it is set,
// otherwise at the center of the first captured display.
func New(capturer Capturer, start *display.Point) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	m := Model{
		state:    stateCapturing,
		spinner:  s,
		capturer: capturer,
	}
	if start != nil {
		m.point = *start
		m.placed = true
	}
	return m
}

// Reading returns the last reading and whether the user picked it with enter
func (m Model) Reading() (probe.Reading, bool) {
	return m.reading, m.picked
}

// Err returns the capture error that ended the session, if any
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, captureCmd(m.capturer))
}

func captureCmd(c Capturer) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
		defer cancel()

		mc, err := c.CaptureAll(ctx)
		return captureDoneMsg{mc: mc, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.state = stateDone
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.state != stateCapturing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case captureDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateDone
			return m, tea.Quit
		}
		m.mc = msg.mc
		if !m.placed && len(msg.mc.Displays) > 0 {
			b := msg.mc.Displays[0].Bounds
			m.point = display.Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
			m.placed = true
		}
		m.state = stateProbing
		return m.probe(), nil
	}

	if m.state != stateProbing {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "left", "h":
		m.point.X--
	case "right", "l":
		m.point.X++
	case "up", "k":
		m.point.Y--
	case "down", "j":
		m.point.Y++
	case "shift+left", "H":
		m.point.X -= 10
	case "shift+right", "L":
		m.point.X += 10
	case "shift+up", "K":
		m.point.Y -= 10
	case "shift+down", "J":
		m.point.Y += 10
	case "r":
		m.capturer.Invalidate()
		m.state = stateCapturing
		return m, tea.Batch(m.spinner.Tick, captureCmd(m.capturer))
	case "enter":
		m.picked = true
		m.state = stateDone
		return m, tea.Quit
	default:
		return m, nil
	}

	m.point = clampToVirtual(m.point, m.mc.VirtualBounds)
	return m.probe(), nil
}

func (m Model) probe() Model {
	r, err := probe.Probe(m.mc, m.point)
	if err != nil {
		m.err = err
		return m
	}
	m.err = nil
	m.reading = r
	return m
}

func clampToVirtual(p display.Point, vb display.Rect) display.Point {
	if vb.Width <= 0 || vb.Height <= 0 {
		return p
	}
	return display.Point{
		X: min(max(p.X, vb.X), vb.Right()-1),
		Y: min(max(p.Y, vb.Y), vb.Bottom()-1),
	}
}

func (m Model) View() string {
	switch m.state {
	case stateCapturing:
		return fmt.Sprintf("\n %s %s\n\n",
			m.spinner.View(),
			titleStyle.Render("Capturing displays..."))

	case stateProbing:
		return m.probeView()

	case stateDone:
		if m.err != nil {
			return "\n" + errStyle.Render("  Error: "+m.err.Error()) + "\n\n"
		}
		if m.picked {
			return fmt.Sprintf("\n  %s %s\n\n", swatch(m.reading.Hex, 4), hexStyle.Render(m.reading.Hex))
		}
	}
	return ""
}

func (m Model) probeView() string {
	var b strings.Builder
	r := m.reading

	b.WriteString("\n" + titleStyle.Render("  Color probe") + "\n\n")

	if m.err != nil {
		b.WriteString(errStyle.Render("  "+m.err.Error()) + "\n\n")
	}

	rows := []struct{ label, value string }{
		{"display", fmt.Sprintf("%d", r.DisplayID)},
		{"virtual", fmt.Sprintf("%d, %d", r.Virtual.X, r.Virtual.Y)},
		{"local", fmt.Sprintf("%d, %d", r.Local.X, r.Local.Y)},
		{"physical", fmt.Sprintf("%d, %d", r.Physical.X, r.Physical.Y)},
		{"color", swatch(r.Hex, 4) + " " + hexStyle.Render(r.Hex)},
	}
	for _, row := range rows {
		b.WriteString("  " + labelStyle.Render(row.label) + row.value + "\n")
	}

	b.WriteString("\n" + loupeView(r.Loupe) + "\n")
	b.WriteString(helpStyle.Render("  ←↓↑→/hjkl move · shift/HJKL ×10 · r recapture · enter pick · q quit") + "\n")
	return b.String()
}

func loupeView(grid [][]string) string {
	var b strings.Builder
	center := probe.LoupeSize / 2
	for y, row := range grid {
		b.WriteString("  ")
		for x, hex := range row {
			cell := "  "
			if x == center && y == center {
				cell = "[]"
			}
			b.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render(cell))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func swatch(hex string, width int) string {
	if hex == "" {
		return strings.Repeat(" ", width)
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render(strings.Repeat(" ", width))
}
