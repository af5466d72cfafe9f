package display

// VirtualBounds returns the smallest rectangle containing every display.
// An empty list yields the zero rectangle.
func VirtualBounds(displays []Info) Rect {
	if len(displays) == 0 {
		return Rect{}
	}

	first := displays[0].Bounds
	minX, minY := first.X, first.Y
	maxX, maxY := first.Right(), first.Bottom()

	for _, d := range displays[1:] {
		b := d.Bounds
		if b.X < minX {
			minX = b.X
		}
		if b.Y < minY {
			minY = b.Y
		}
		if b.Right() > maxX {
			maxX = b.Right()
		}
		if b.Bottom() > maxY {
			maxY = b.Bottom()
		}
	}

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Nearest returns the display containing p, or the one whose bounds are
// closest to p when p lies outside every display. ok is false only for an
// empty list.
func Nearest(displays []Info, p Point) (Info, bool) {
	if len(displays) == 0 {
		return Info{}, false
	}

	best := -1
	bestDist := 0
	for i, d := range displays {
		if d.Bounds.Contains(p) {
			return d, true
		}
		dist := distanceSq(d.Bounds, p)
		if best < 0 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return displays[best], true
}

// distanceSq is the squared distance from p to the closest point of r
func distanceSq(r Rect, p Point) int {
	dx := 0
	if p.X < r.X {
		dx = r.X - p.X
	} else if p.X >= r.Right() {
		dx = p.X - (r.Right() - 1)
	}

	dy := 0
	if p.Y < r.Y {
		dy = r.Y - p.Y
	} else if p.Y >= r.Bottom() {
		dy = p.Y - (r.Bottom() - 1)
	}

	return dx*dx + dy*dy
}
