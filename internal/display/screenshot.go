package display

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/logger"
	"github.com/kbinani/screenshot"
)

// ScreenshotPlatform enumerates displays through kbinani/screenshot. It has
// no change events, so Watch polls and compares snapshots. Display index 0
// is treated as primary.
type ScreenshotPlatform struct {
	scale        float64
	pollInterval time.Duration
}

// NewScreenshotPlatform creates the portable platform backend
func NewScreenshotPlatform(scale float64, pollInterval time.Duration) *ScreenshotPlatform {
	if scale <= 0 {
		scale = 1
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &ScreenshotPlatform{scale: scale, pollInterval: pollInterval}
}

// Name returns the platform name
func (p *ScreenshotPlatform) Name() string {
	return "screenshot"
}

// Close is a no-op; the library holds no connection
func (p *ScreenshotPlatform) Close() error {
	return nil
}

// Displays lists the active displays in library order
func (p *ScreenshotPlatform) Displays() ([]Info, error) {
	n := screenshot.NumActiveDisplays()
	if n < 0 {
		return nil, fmt.Errorf("%w: negative display count %d", ErrEnumerationFailure, n)
	}

	displays := make([]Info, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		displays = append(displays, Info{
			ID:   int64(i),
			Name: fmt.Sprintf("Screen %d", i+1),
			Bounds: Rect{
				X:      b.Min.X,
				Y:      b.Min.Y,
				Width:  b.Dx(),
				Height: b.Dy(),
			},
			ScaleFactor: p.scale,
			IsPrimary:   i == 0,
		})
	}
	return displays, nil
}

// Primary returns display 0
func (p *ScreenshotPlatform) Primary() (Info, error) {
	displays, err := p.Displays()
	if err != nil {
		return Info{}, err
	}
	if len(displays) == 0 {
		return Info{}, fmt.Errorf("%w: no active displays", ErrEnumerationFailure)
	}
	return displays[0], nil
}

// Nearest resolves a point to the closest display
func (p *ScreenshotPlatform) Nearest(x, y int) (*Info, error) {
	displays, err := p.Displays()
	if err != nil {
		return nil, err
	}
	d, ok := Nearest(displays, Point{X: x, Y: y})
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// Watch polls the display list and reports differences
func (p *ScreenshotPlatform) Watch(onChange func()) (func(), error) {
	return pollChanges(p.pollInterval, p.Displays, onChange), nil
}

// pollChanges calls onChange whenever list() returns something different
// from the previous successful call
func pollChanges(interval time.Duration, list func() ([]Info, error), onChange func()) func() {
	stopChan := make(chan struct{})
	last, _ := list()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopChan:
				return
			case <-ticker.C:
				current, err := list()
				if err != nil {
					logger.WithComponent("screenshot-display").Debug().Err(err).Msg("Display poll failed")
					continue
				}
				if !reflect.DeepEqual(current, last) {
					last = current
					onChange()
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stopChan) }) }
}
