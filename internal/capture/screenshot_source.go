package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/bryanchriswhite/ColorProbe/internal/logger"
	"github.com/kbinani/screenshot"
)

// ScreenshotSourceLister captures through kbinani/screenshot. Source ids
// embed the library's display index, which is also the display id used by
// the screenshot display platform.
type ScreenshotSourceLister struct{}

// NewScreenshotSourceLister creates the portable capture backend
func NewScreenshotSourceLister() *ScreenshotSourceLister {
	return &ScreenshotSourceLister{}
}

// Name returns the lister name
func (l *ScreenshotSourceLister) Name() string {
	return "screenshot"
}

// Close is a no-op
func (l *ScreenshotSourceLister) Close() error {
	return nil
}

// ListSources captures each active display in turn. Displays that fail are
// skipped; an error is returned only if all of them fail.
func (l *ScreenshotSourceLister) ListSources(ctx context.Context, hint image.Point) ([]Source, error) {
	log := logger.WithComponent("screenshot-source")

	n := screenshot.NumActiveDisplays()
	sources := make([]Source, 0, n)
	var lastErr error

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := screenshot.CaptureDisplay(i)
		if err != nil {
			log.Warn().Err(err).Int("display", i).Msg("Failed to capture display, skipping")
			lastErr = err
			continue
		}

		sources = append(sources, Source{
			ID:    fmt.Sprintf("screen:%d:0", i),
			Name:  fmt.Sprintf("Screen %d", i+1),
			Image: FitToHint(img, hint),
		})
	}

	if len(sources) == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to capture any display: %w", lastErr)
	}
	return sources, nil
}
