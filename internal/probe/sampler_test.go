package probe

import (
	"errors"
	"image"
	"image/color"
	"regexp"
	"testing"

	"github.com/bryanchriswhite/ColorProbe/internal/capture"
	"github.com/bryanchriswhite/ColorProbe/internal/display"
)

var hexPattern = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func TestHexRoundTrip(t *testing.T) {
	check := func(c RGB) {
		h := c.Hex()
		if !hexPattern.MatchString(h) {
			t.Fatalf("Hex(%v) = %q does not match %s", c, h, hexPattern)
		}
		got, err := ParseHex(h)
		if err != nil {
			t.Fatalf("ParseHex(%q) error = %v", h, err)
		}
		if got != c {
			t.Fatalf("ParseHex(Hex(%+v)) = %+v", c, got)
		}
	}

	// Every value on each channel
	for v := 0; v < 256; v++ {
		check(RGB{R: uint8(v)})
		check(RGB{G: uint8(v)})
		check(RGB{B: uint8(v)})
	}

	// Coarse grid across all three
	for r := 0; r < 256; r += 5 {
		for g := 0; g < 256; g += 5 {
			for b := 0; b < 256; b += 5 {
				check(RGB{R: uint8(r), G: uint8(g), B: uint8(b)})
			}
		}
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{"#FF8000", RGB{255, 128, 0}, false},
		{"ff8000", RGB{255, 128, 0}, false},
		{"#0a0B0c", RGB{10, 11, 12}, false},
		{"#FFF", RGB{}, true},
		{"#GG0000", RGB{}, true},
		{"#+12345", RGB{}, true},
		{"##FF0000", RGB{}, true},
		{"", RGB{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHex) {
					t.Errorf("ParseHex(%q) error = %v, want %v", tt.in, err, ErrInvalidHex)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseHex(%q) = %+v, %v; want %+v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestSample(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.SetRGBA(2, 1, color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 255})

	if got := Sample(img, 2, 1); got != (RGB{0x12, 0x34, 0x56}) {
		t.Errorf("Sample() = %+v", got)
	}
	if got := Sample(img, 3, 2); got != (RGB{}) {
		t.Errorf("Sample() corner = %+v, want black", got)
	}
}

func TestProbe(t *testing.T) {
	mc := threeWide()
	dc := mc.Displays[1]
	dc.Image.SetRGBA(80, 500, color.RGBA{R: 0xAB, G: 0xCD, B: 0xEF, A: 255})

	r, err := Probe(mc, display.Point{X: 2000, Y: 500})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if r.DisplayID != 2 {
		t.Errorf("DisplayID = %d, want 2", r.DisplayID)
	}
	if r.Local != (display.Point{X: 80, Y: 500}) || r.Physical != (display.Point{X: 80, Y: 500}) {
		t.Errorf("Local = %v, Physical = %v", r.Local, r.Physical)
	}
	if r.Hex != "#ABCDEF" {
		t.Errorf("Hex = %s, want #ABCDEF", r.Hex)
	}
	if len(r.Loupe) != LoupeSize || len(r.Loupe[0]) != LoupeSize {
		t.Fatalf("loupe is %dx%d", len(r.Loupe), len(r.Loupe[0]))
	}
	if r.Loupe[3][3] != "#ABCDEF" || r.Loupe[0][0] != "#000000" {
		t.Errorf("loupe center = %s, corner = %s", r.Loupe[3][3], r.Loupe[0][0])
	}
}

func TestProbeClampsAtEdges(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(3, 3, color.RGBA{R: 255, A: 255})
	mc := &capture.MultiDisplayCapture{Displays: []capture.DisplayCapture{{
		DisplayID: 9, Image: img, Width: 4, Height: 4, ScaleFactor: 1,
		Bounds: display.Rect{Width: 4, Height: 4},
	}}}

	r, err := Probe(mc, display.Point{X: 50, Y: 50})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if r.Physical != (display.Point{X: 3, Y: 3}) || r.Hex != "#FF0000" {
		t.Errorf("Probe() = %v %s, want clamped red corner", r.Physical, r.Hex)
	}
	for _, row := range r.Loupe {
		if len(row) != LoupeSize {
			t.Fatalf("loupe row has %d cells", len(row))
		}
	}

	if _, err := Probe(&capture.MultiDisplayCapture{}, display.Point{}); !errors.Is(err, ErrEmptyCapture) {
		t.Errorf("Probe() on empty capture error = %v", err)
	}
}
