package display

import "testing"

func TestVirtualBounds(t *testing.T) {
	tests := []struct {
		name     string
		displays []Info
		want     Rect
	}{
		{
			name:     "empty",
			displays: nil,
			want:     Rect{},
		},
		{
			name: "single display",
			displays: []Info{
				{ID: 1, Bounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
			},
			want: Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
		},
		{
			name: "single display with offset origin",
			displays: []Info{
				{ID: 1, Bounds: Rect{X: -1280, Y: 200, Width: 1280, Height: 1024}},
			},
			want: Rect{X: -1280, Y: 200, Width: 1280, Height: 1024},
		},
		{
			name: "horizontal dual",
			displays: []Info{
				{ID: 1, Bounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
				{ID: 2, Bounds: Rect{X: 1920, Y: 0, Width: 2560, Height: 1440}},
			},
			want: Rect{X: 0, Y: 0, Width: 4480, Height: 1440},
		},
		{
			name: "vertical dual",
			displays: []Info{
				{ID: 1, Bounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
				{ID: 2, Bounds: Rect{X: 0, Y: 1080, Width: 1920, Height: 1080}},
			},
			want: Rect{X: 0, Y: 0, Width: 1920, Height: 2160},
		},
		{
			name: "triple horizontal",
			displays: []Info{
				{ID: 1, Bounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
				{ID: 2, Bounds: Rect{X: 1920, Y: 0, Width: 1920, Height: 1080}},
				{ID: 3, Bounds: Rect{X: 3840, Y: 0, Width: 1920, Height: 1080}},
			},
			want: Rect{X: 0, Y: 0, Width: 5760, Height: 1080},
		},
		{
			name: "negative coordinates",
			displays: []Info{
				{ID: 1, Bounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
				{ID: 2, Bounds: Rect{X: -1920, Y: -200, Width: 1920, Height: 1080}},
			},
			want: Rect{X: -1920, Y: -200, Width: 3840, Height: 1280},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VirtualBounds(tt.displays)
			if got != tt.want {
				t.Errorf("VirtualBounds() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVirtualBounds_ContainsEveryDisplay(t *testing.T) {
	origins := []int{-3000, -1, 0, 7, 1920, 4000}
	sizes := []int{0, 1, 800, 1920}

	for n := 1; n <= 4; n++ {
		displays := make([]Info, 0, n)
		for i := 0; i < n; i++ {
			displays = append(displays, Info{
				ID: int64(i),
				Bounds: Rect{
					X:      origins[(i*5+n)%len(origins)],
					Y:      origins[(i*3+1)%len(origins)],
					Width:  sizes[(i+n)%len(sizes)],
					Height: sizes[(i*2+1)%len(sizes)],
				},
			})
		}

		vb := VirtualBounds(displays)
		for _, d := range displays {
			if !vb.ContainsRect(d.Bounds) {
				t.Errorf("n=%d: virtual bounds %v does not contain display %v", n, vb, d.Bounds)
			}
		}
	}
}

func TestNearest(t *testing.T) {
	displays := []Info{
		{ID: 1, Bounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
		{ID: 2, Bounds: Rect{X: 1920, Y: 0, Width: 1920, Height: 1080}},
		{ID: 3, Bounds: Rect{X: 3840, Y: 0, Width: 1920, Height: 1080}},
	}

	tests := []struct {
		name  string
		point Point
		want  int64
	}{
		{"inside first", Point{X: 960, Y: 540}, 1},
		{"inside second", Point{X: 2000, Y: 500}, 2},
		{"left edge of third", Point{X: 3840, Y: 0}, 3},
		{"right edge of first is exclusive", Point{X: 1920, Y: 10}, 2},
		{"far left", Point{X: -500, Y: 500}, 1},
		{"far right", Point{X: 9000, Y: 500}, 3},
		{"below second", Point{X: 2500, Y: 5000}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Nearest(displays, tt.point)
			if !ok {
				t.Fatal("expected a display")
			}
			if got.ID != tt.want {
				t.Errorf("Nearest(%v) = display %d, want %d", tt.point, got.ID, tt.want)
			}
		})
	}

	if _, ok := Nearest(nil, Point{}); ok {
		t.Error("expected no display for empty list")
	}
}

func TestInfo_PhysicalSize(t *testing.T) {
	for _, scale := range []float64{1.0, 1.25, 1.5, 2.0, 2.5} {
		d := Info{Bounds: Rect{Width: 1366, Height: 768}, ScaleFactor: scale}
		w, h := d.PhysicalSize()
		wantW := int(1366*scale + 0.5)
		wantH := int(768*scale + 0.5)
		if w != wantW || h != wantH {
			t.Errorf("scale %.2f: got %dx%d, want %dx%d", scale, w, h, wantW, wantH)
		}
	}
}
