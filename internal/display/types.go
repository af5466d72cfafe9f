package display

import (
	"errors"
	"fmt"
)

var (
	// ErrEnumerationFailure is reported when the platform cannot list displays
	ErrEnumerationFailure = errors.New("display enumeration failed")

	// ErrNoDisplay is returned when a point lookup fails outright
	ErrNoDisplay = errors.New("no display available")
)

// Point is a position in virtual-screen (logical) coordinates
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an axis-aligned rectangle in logical pixels
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the exclusive right edge
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge
func (r Rect) Bottom() int { return r.Y + r.Height }

// Contains reports whether p lies inside r (right/bottom edges exclusive)
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// ContainsRect reports whether o lies entirely within r
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Info describes one physical display as seen by the platform
type Info struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name,omitempty"`
	Bounds      Rect    `json:"bounds"`
	ScaleFactor float64 `json:"scale_factor"`
	IsPrimary   bool    `json:"is_primary"`
}

// PhysicalSize returns the nominal bitmap size of the display:
// round(width*scale) x round(height*scale)
func (d Info) PhysicalSize() (int, int) {
	return roundScaled(d.Bounds.Width, d.ScaleFactor), roundScaled(d.Bounds.Height, d.ScaleFactor)
}

func roundScaled(v int, scale float64) int {
	f := float64(v) * scale
	if f < 0 {
		return 0
	}
	return int(f + 0.5)
}
