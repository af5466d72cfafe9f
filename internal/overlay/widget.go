// Package overlay draws probe annotations onto copies of captured frames.
package overlay

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Clone returns a copy of src with its origin moved to (0,0)
func Clone(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Blend mixes c over the pixel at (x, y) with the given opacity. Points
// outside dst are ignored.
func Blend(dst *image.RGBA, x, y int, c color.RGBA, opacity float64) {
	if !(image.Point{X: x, Y: y}).In(dst.Bounds()) || opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}

	under := dst.RGBAAt(x, y)
	mix := func(over, under uint8) uint8 {
		return uint8(float64(over)*opacity + float64(under)*(1-opacity) + 0.5)
	}
	dst.SetRGBA(x, y, color.RGBA{
		R: mix(c.R, under.R),
		G: mix(c.G, under.G),
		B: mix(c.B, under.B),
		A: 255,
	})
}

// FillRect fills r, clipped to dst, with c at the given opacity
func FillRect(dst *image.RGBA, r image.Rectangle, c color.RGBA, opacity float64) {
	r = r.Intersect(dst.Bounds())
	if opacity >= 1 {
		draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			Blend(dst, x, y, c, opacity)
		}
	}
}

// Contrast returns black or white, whichever reads better on c
func Contrast(c color.RGBA) color.RGBA {
	// Rec. 601 luma
	luma := 299*int(c.R) + 587*int(c.G) + 114*int(c.B)
	if luma > 128*1000 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
