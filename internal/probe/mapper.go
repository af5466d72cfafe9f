// Package probe maps virtual-screen points onto captured bitmaps and reads
// colors from them.
package probe

import (
	"image"
	"math"

	"github.com/bryanchriswhite/ColorProbe/internal/capture"
	"github.com/bryanchriswhite/ColorProbe/internal/display"
)

// LoupeSize is the edge length of the magnifier sampling square
const LoupeSize = 7

// ToLocal converts a virtual point to display-local logical coordinates
func ToLocal(p display.Point, bounds display.Rect) display.Point {
	return display.Point{X: p.X - bounds.X, Y: p.Y - bounds.Y}
}

// EffectiveScale derives the per-axis scale from the captured bitmap size,
// which may differ from the nominal scale factor when the capture backend
// resized the bitmap. The nominal factor is used for an axis whose size is
// unknown.
func EffectiveScale(d display.Info, capturedW, capturedH int) (float64, float64) {
	nominal := d.ScaleFactor
	if nominal <= 0 {
		nominal = 1
	}

	xScale, yScale := nominal, nominal
	if d.Bounds.Width > 0 && capturedW > 0 {
		xScale = float64(capturedW) / float64(d.Bounds.Width)
	}
	if d.Bounds.Height > 0 && capturedH > 0 {
		yScale = float64(capturedH) / float64(d.Bounds.Height)
	}
	return xScale, yScale
}

// ToPhysical maps a virtual point on display d to a pixel of the captured
// bitmap. The result is not clamped.
func ToPhysical(p display.Point, d display.Info, capturedW, capturedH int) image.Point {
	local := ToLocal(p, d.Bounds)
	xScale, yScale := EffectiveScale(d, capturedW, capturedH)
	return image.Point{
		X: int(math.Floor(float64(local.X) * xScale)),
		Y: int(math.Floor(float64(local.Y) * yScale)),
	}
}

// ToLogical is the inverse of ToPhysical, accurate to within one logical
// pixel per axis
func ToLogical(px image.Point, d display.Info, capturedW, capturedH int) display.Point {
	xScale, yScale := EffectiveScale(d, capturedW, capturedH)
	return display.Point{
		X: d.Bounds.X + int(math.Floor(float64(px.X)/xScale)),
		Y: d.Bounds.Y + int(math.Floor(float64(px.Y)/yScale)),
	}
}

// SampleRegion is the LoupeSize square centered on px, shifted so its
// origin is never negative
func SampleRegion(px image.Point) image.Rectangle {
	half := LoupeSize / 2
	origin := image.Point{X: max(0, px.X-half), Y: max(0, px.Y-half)}
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(LoupeSize, LoupeSize))}
}

// Clamp limits px to [0,w)x[0,h)
func Clamp(px image.Point, w, h int) image.Point {
	return image.Point{
		X: min(max(px.X, 0), max(w-1, 0)),
		Y: min(max(px.Y, 0), max(h-1, 0)),
	}
}

// Locate returns the capture of the display containing p, or of the display
// nearest to p when p lies outside every captured display
func Locate(mc *capture.MultiDisplayCapture, p display.Point) (capture.DisplayCapture, bool) {
	if mc == nil {
		return capture.DisplayCapture{}, false
	}

	infos := make([]display.Info, len(mc.Displays))
	for i, dc := range mc.Displays {
		infos[i] = info(dc)
	}

	d, ok := display.Nearest(infos, p)
	if !ok {
		return capture.DisplayCapture{}, false
	}
	return mc.Display(d.ID)
}

func info(dc capture.DisplayCapture) display.Info {
	return display.Info{ID: dc.DisplayID, Bounds: dc.Bounds, ScaleFactor: dc.ScaleFactor}
}
