package overlay

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Marker is the probe crosshair with a swatch and hex label
type Marker struct {
	At      image.Point
	Color   color.RGBA
	Label   string
	Radius  int
	Opacity float64
}

// NewMarker creates a marker with the default radius and opacity
func NewMarker(at image.Point, c color.RGBA, label string) *Marker {
	return &Marker{At: at, Color: c, Label: label, Radius: 12, Opacity: 0.85}
}

// Render draws the marker onto img. The crosshair leaves the probed pixel
// itself untouched.
func (m *Marker) Render(img *image.RGBA) {
	ink := Contrast(m.Color)

	for d := 2; d <= m.Radius; d++ {
		Blend(img, m.At.X-d, m.At.Y, ink, m.Opacity)
		Blend(img, m.At.X+d, m.At.Y, ink, m.Opacity)
		Blend(img, m.At.X, m.At.Y-d, ink, m.Opacity)
		Blend(img, m.At.X, m.At.Y+d, ink, m.Opacity)
	}

	face := basicfont.Face7x13
	labelW := font.MeasureString(face, m.Label).Ceil()
	const pad = 4
	swatch := 13

	box := image.Rect(0, 0, swatch+pad*3+labelW, face.Height+pad*2)
	box = box.Add(m.labelOrigin(img.Bounds(), box.Size()))

	FillRect(img, box, color.RGBA{R: 24, G: 24, B: 24, A: 255}, m.Opacity)
	FillRect(img, image.Rect(0, 0, swatch, swatch).Add(box.Min.Add(image.Pt(pad, pad))), m.Color, 1)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 235, G: 235, B: 235, A: 255}),
		Face: face,
		Dot:  fixed.P(box.Min.X+swatch+pad*2, box.Min.Y+pad+face.Ascent),
	}
	d.DrawString(m.Label)
}

// labelOrigin places the label below-right of the crosshair, flipping to the
// other side near the right or bottom edge
func (m *Marker) labelOrigin(bounds image.Rectangle, size image.Point) image.Point {
	p := m.At.Add(image.Pt(m.Radius+4, m.Radius+4))
	if p.X+size.X > bounds.Max.X {
		p.X = m.At.X - m.Radius - 4 - size.X
	}
	if p.Y+size.Y > bounds.Max.Y {
		p.Y = m.At.Y - m.Radius - 4 - size.Y
	}
	if p.X < bounds.Min.X {
		p.X = bounds.Min.X
	}
	if p.Y < bounds.Min.Y {
		p.Y = bounds.Min.Y
	}
	return p
}
