package capture

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/display"
)

var (
	// ErrNoSourcesAvailable is returned when the platform reports zero screen sources
	ErrNoSourcesAvailable = errors.New("no screen sources available")

	// ErrCaptureTimeout is returned when the platform does not answer in time
	ErrCaptureTimeout = errors.New("screen capture timed out")

	// ErrNoMatchingSource is returned when no source could be paired with any display
	ErrNoMatchingSource = errors.New("could not match any capture sources to displays")

	// ErrDisplayNotCaptured is returned when neither the requested nor the
	// primary display is present in a capture
	ErrDisplayNotCaptured = errors.New("display not present in capture")
)

// Source is one opaque screen snapshot as returned by the platform.
// Ordering and naming are platform-defined and not trusted as ground truth.
type Source struct {
	ID    string
	Name  string
	Image *image.RGBA
}

// Size returns the bitmap dimensions
func (s Source) Size() (int, int) {
	if s.Image == nil {
		return 0, 0
	}
	b := s.Image.Bounds()
	return b.Dx(), b.Dy()
}

// SourceLister is the platform capture API: it grabs every screen at once
type SourceLister interface {
	// ListSources returns one source per screen. hint is the requested
	// thumbnail size; implementations may scale down to fit within it.
	// ctx carries the capture deadline; implementations that cannot abort
	// are abandoned by the caller when it expires.
	ListSources(ctx context.Context, hint image.Point) ([]Source, error)

	// Name returns a human-readable name for this lister
	Name() string

	// Close releases any resources held by the lister
	Close() error
}

// DisplayCapture is the bitmap of one display. Width and Height are the
// actual bitmap size in physical pixels; Bounds is copied unchanged from the
// originating display.
type DisplayCapture struct {
	DisplayID   int64        `json:"display_id"`
	SourceID    string       `json:"source_id"`
	Strategy    string       `json:"matched_by"`
	Image       *image.RGBA  `json:"-"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	ScaleFactor float64      `json:"scale_factor"`
	Bounds      display.Rect `json:"bounds"`
}

// MultiDisplayCapture is one immutable snapshot of every matched display
type MultiDisplayCapture struct {
	Displays      []DisplayCapture `json:"displays"`
	VirtualBounds display.Rect     `json:"virtual_bounds"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Display returns the capture for a display id
func (m *MultiDisplayCapture) Display(id int64) (DisplayCapture, bool) {
	for _, dc := range m.Displays {
		if dc.DisplayID == id {
			return dc, true
		}
	}
	return DisplayCapture{}, false
}
