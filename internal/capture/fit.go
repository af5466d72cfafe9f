package capture

import (
	"image"

	"github.com/bryanchriswhite/ColorProbe/internal/display"
	"golang.org/x/image/draw"
)

// FitToHint scales img down, preserving aspect ratio, so it fits within
// hint. Images that already fit, and non-positive hints, are returned as is.
func FitToHint(img *image.RGBA, hint image.Point) *image.RGBA {
	if img == nil || hint.X <= 0 || hint.Y <= 0 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || (w <= hint.X && h <= hint.Y) {
		return img
	}

	scale := float64(hint.X) / float64(w)
	if s := float64(hint.Y) / float64(h); s < scale {
		scale = s
	}

	dw := int(float64(w)*scale + 0.5)
	dh := int(float64(h)*scale + 0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// thumbnailHint is the largest nominal physical size among the displays
func thumbnailHint(displays []display.Info) image.Point {
	var hint image.Point
	for _, d := range displays {
		w, h := d.PhysicalSize()
		if w > hint.X {
			hint.X = w
		}
		if h > hint.Y {
			hint.Y = h
		}
	}
	return hint
}
