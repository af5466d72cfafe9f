package tui

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/bryanchriswhite/ColorProbe/internal/capture"
	"github.com/bryanchriswhite/ColorProbe/internal/display"
	tea "github.com/charmbracelet/bubbletea"
)

type fakeCapturer struct {
	mc          *capture.MultiDisplayCapture
	err         error
	invalidated int
}

func (f *fakeCapturer) CaptureAll(context.Context) (*capture.MultiDisplayCapture, error) {
	return f.mc, f.err
}

func (f *fakeCapturer) Invalidate() { f.invalidated++ }

func testCapture() *capture.MultiDisplayCapture {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	img.SetRGBA(50, 40, color.RGBA{R: 0xFF, G: 0x80, A: 255})
	img.SetRGBA(61, 40, color.RGBA{B: 0xFF, A: 255})

	bounds := display.Rect{Width: 100, Height: 80}
	return &capture.MultiDisplayCapture{
		Displays: []capture.DisplayCapture{{
			DisplayID: 4, Image: img, Width: 100, Height: 80, ScaleFactor: 1, Bounds: bounds,
		}},
		VirtualBounds: bounds,
	}
}

func send(m tea.Model, msgs ...tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		m, cmd = m.Update(msg)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestProbeStartsAtDisplayCenter(t *testing.T) {
	c := &fakeCapturer{mc: testCapture()}
	m, _ := send(New(c, nil), captureDoneMsg{mc: c.mc})

	r, picked := m.(Model).Reading()
	if picked {
		t.Error("nothing should be picked yet")
	}
	if r.Virtual != (display.Point{X: 50, Y: 40}) || r.Hex != "#FF8000" {
		t.Errorf("reading = %+v", r)
	}
	if !strings.Contains(m.View(), "#FF8000") {
		t.Error("View() should show the hex color")
	}
}

func TestProbeMovesAndPicks(t *testing.T) {
	c := &fakeCapturer{mc: testCapture()}
	m, _ := send(New(c, nil), captureDoneMsg{mc: c.mc})

	m, _ = send(m,
		runes("L"),
		tea.KeyMsg{Type: tea.KeyRight},
		tea.KeyMsg{Type: tea.KeyUp},
		tea.KeyMsg{Type: tea.KeyDown},
	)
	r, _ := m.(Model).Reading()
	if r.Virtual != (display.Point{X: 61, Y: 40}) || r.Hex != "#0000FF" {
		t.Errorf("after moving, reading = %+v", r)
	}

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should quit")
	}
	if _, picked := m.(Model).Reading(); !picked {
		t.Error("enter should pick the reading")
	}
}

func TestProbeClampsToVirtualBounds(t *testing.T) {
	c := &fakeCapturer{mc: testCapture()}
	start := display.Point{X: 98, Y: 1}
	m, _ := send(New(c, &start), captureDoneMsg{mc: c.mc})

	m, _ = send(m, runes("L"), runes("K"))
	r, _ := m.(Model).Reading()
	if r.Virtual != (display.Point{X: 99, Y: 0}) {
		t.Errorf("reading.Virtual = %v, want (99,0)", r.Virtual)
	}
}

func TestProbeRecapture(t *testing.T) {
	c := &fakeCapturer{mc: testCapture()}
	m, _ := send(New(c, nil), captureDoneMsg{mc: c.mc})

	m, cmd := send(m, runes("r"))
	if c.invalidated != 1 || cmd == nil {
		t.Errorf("recapture: invalidated = %d, cmd = %v", c.invalidated, cmd)
	}
	if m.(Model).state != stateCapturing {
		t.Error("recapture should return to capturing")
	}
}

func TestProbeCaptureError(t *testing.T) {
	c := &fakeCapturer{err: capture.ErrNoSourcesAvailable}
	m, cmd := send(New(c, nil), captureDoneMsg{err: c.err})

	if cmd == nil {
		t.Error("capture failure should quit")
	}
	if !errors.Is(m.(Model).Err(), capture.ErrNoSourcesAvailable) {
		t.Errorf("Err() = %v", m.(Model).Err())
	}
	if !strings.Contains(m.View(), "no screen sources available") {
		t.Errorf("View() = %q", m.View())
	}
}

func TestCaptureCmd(t *testing.T) {
	c := &fakeCapturer{mc: testCapture()}
	msg := captureCmd(c)()

	done, ok := msg.(captureDoneMsg)
	if !ok || done.mc != c.mc || done.err != nil {
		t.Errorf("captureCmd() = %#v", msg)
	}
}
