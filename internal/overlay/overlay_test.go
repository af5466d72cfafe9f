package overlay

import (
	"image"
	"image/color"
	"testing"
)

func fill(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	FillRect(img, img.Bounds(), c, 1)
	return img
}

func TestClone(t *testing.T) {
	src := fill(4, 4, color.RGBA{R: 10, A: 255})
	sub := src.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)

	dst := Clone(sub)
	if dst.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("Clone() bounds = %v", dst.Bounds())
	}

	dst.SetRGBA(0, 0, color.RGBA{B: 99, A: 255})
	if src.RGBAAt(1, 1).B != 0 {
		t.Error("Clone() shares pixels with the source")
	}
}

func TestBlend(t *testing.T) {
	img := fill(2, 2, color.RGBA{A: 255})

	Blend(img, 0, 0, color.RGBA{R: 200, G: 100, A: 255}, 0.5)
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 100, G: 50, A: 255}) {
		t.Errorf("Blend() = %v", got)
	}

	// Out of bounds is a no-op
	Blend(img, 5, 5, color.RGBA{R: 255, A: 255}, 1)
}

func TestContrast(t *testing.T) {
	black := color.RGBA{A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	if Contrast(white) != black {
		t.Error("Contrast(white) should be black")
	}
	if Contrast(black) != white {
		t.Error("Contrast(black) should be white")
	}
}

func TestMarkerRender(t *testing.T) {
	bg := color.RGBA{R: 50, G: 60, B: 70, A: 255}
	img := fill(200, 120, bg)
	at := image.Pt(100, 60)

	NewMarker(at, color.RGBA{R: 255, A: 255}, "#FF0000").Render(img)

	if img.RGBAAt(at.X, at.Y) != bg {
		t.Error("Render() must leave the probed pixel untouched")
	}
	if img.RGBAAt(at.X+5, at.Y) == bg {
		t.Error("Render() did not draw the crosshair")
	}

	// Swatch sits inside the label box below-right of the crosshair
	swatch := at.Add(image.Pt(12+4+4+2, 12+4+4+2))
	if got := img.RGBAAt(swatch.X, swatch.Y); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("swatch pixel = %v", got)
	}
}

func TestMarkerFlipsNearEdge(t *testing.T) {
	img := fill(100, 60, color.RGBA{A: 255})
	m := NewMarker(image.Pt(95, 55), color.RGBA{G: 255, A: 255}, "#00FF00")

	origin := m.labelOrigin(img.Bounds(), image.Pt(80, 21))
	if origin.X+80 > 100 || origin.Y+21 > 60 {
		t.Errorf("label at %v overflows the frame", origin)
	}
	m.Render(img)
}
