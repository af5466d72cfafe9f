package probe

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/ColorProbe/internal/capture"
	"github.com/bryanchriswhite/ColorProbe/internal/display"
)

var (
	// ErrEmptyCapture is returned when probing a capture with no displays
	ErrEmptyCapture = errors.New("capture contains no displays")

	// ErrInvalidHex is returned by ParseHex for malformed input
	ErrInvalidHex = errors.New("invalid hex color")
)

// RGB is an opaque 8-bit color
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex formats the color as #RRGGBB in uppercase
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return c.Hex()
}

// ParseHex parses RRGGBB with an optional leading '#', in any case
func ParseHex(s string) (RGB, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Sample reads the pixel at (x, y). The caller clamps x and y to the bitmap.
func Sample(img *image.RGBA, x, y int) RGB {
	i := y*img.Stride + x*4
	return RGB{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2]}
}

// Reading is everything the magnifier shows for one probe point
type Reading struct {
	DisplayID int64         `json:"display_id"`
	Virtual   display.Point `json:"virtual"`
	Local     display.Point `json:"local"`
	Physical  display.Point `json:"physical"`
	Color     RGB           `json:"rgb"`
	Hex       string        `json:"hex"`
	Loupe     [][]string    `json:"loupe"`
}

// Probe resolves p against a capture and samples the pixel under it along
// with the surrounding loupe grid. Points between or beyond displays resolve
// to the nearest display and are clamped to its bitmap edge.
func Probe(mc *capture.MultiDisplayCapture, p display.Point) (Reading, error) {
	dc, ok := Locate(mc, p)
	if !ok {
		return Reading{}, ErrEmptyCapture
	}
	if dc.Image == nil || dc.Width == 0 || dc.Height == 0 {
		return Reading{}, fmt.Errorf("display %d has an empty bitmap", dc.DisplayID)
	}

	px := Clamp(ToPhysical(p, info(dc), dc.Width, dc.Height), dc.Width, dc.Height)
	c := Sample(dc.Image, px.X, px.Y)

	region := SampleRegion(px)
	loupe := make([][]string, 0, LoupeSize)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		row := make([]string, 0, LoupeSize)
		for x := region.Min.X; x < region.Max.X; x++ {
			q := Clamp(image.Pt(x, y), dc.Width, dc.Height)
			row = append(row, Sample(dc.Image, q.X, q.Y).Hex())
		}
		loupe = append(loupe, row)
	}

	return Reading{
		DisplayID: dc.DisplayID,
		Virtual:   p,
		Local:     ToLocal(p, dc.Bounds),
		Physical:  display.Point{X: px.X, Y: px.Y},
		Color:     c,
		Hex:       c.Hex(),
		Loupe:     loupe,
	}, nil
}
