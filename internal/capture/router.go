package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/display"
	"github.com/bryanchriswhite/ColorProbe/internal/logger"
)

// Backend names accepted in configuration
const (
	BackendAuto       = "auto"
	BackendX11        = "x11"
	BackendScreenshot = "screenshot"
)

// Backend pairs a display platform with the capture lister whose source ids
// embed that platform's display ids
type Backend struct {
	Name     string
	Platform display.Platform
	Lister   SourceLister
}

// Close releases both halves of the backend
func (b *Backend) Close() error {
	var errs []error
	if b.Lister != nil {
		errs = append(errs, b.Lister.Close())
	}
	if b.Platform != nil {
		errs = append(errs, b.Platform.Close())
	}
	return errors.Join(errs...)
}

// BackendOptions configures NewBackend
type BackendOptions struct {
	ScaleFactor  float64
	PollInterval time.Duration
}

// backendFactory is swapped in tests
type backendFactory func(opts BackendOptions) (*Backend, error)

var backendFactories = map[string]backendFactory{
	BackendX11:        newX11Backend,
	BackendScreenshot: newScreenshotBackend,
}

// NewBackend opens the named backend. "auto" prefers X11 and falls back to
// the portable screenshot backend.
func NewBackend(name string, opts BackendOptions) (*Backend, error) {
	log := logger.WithComponent("capture-router")

	switch name {
	case "", BackendAuto:
		b, err := backendFactories[BackendX11](opts)
		if err == nil {
			log.Info().Str("backend", b.Name).Msg("Capture backend initialized")
			return b, nil
		}
		log.Warn().Err(err).Msg("X11 backend not available, falling back to screenshot backend")

		b, err = backendFactories[BackendScreenshot](opts)
		if err != nil {
			return nil, fmt.Errorf("no capture backends available: %w", err)
		}
		log.Info().Str("backend", b.Name).Msg("Capture backend initialized")
		return b, nil
	}

	factory, ok := backendFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
	b, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", name, err)
	}
	log.Info().Str("backend", b.Name).Msg("Capture backend initialized")
	return b, nil
}

func newX11Backend(opts BackendOptions) (*Backend, error) {
	platform, err := display.NewX11Platform(opts.ScaleFactor)
	if err != nil {
		return nil, err
	}
	lister, err := NewX11SourceLister()
	if err != nil {
		platform.Close()
		return nil, err
	}
	return &Backend{Name: BackendX11, Platform: platform, Lister: lister}, nil
}

func newScreenshotBackend(opts BackendOptions) (*Backend, error) {
	platform := display.NewScreenshotPlatform(opts.ScaleFactor, opts.PollInterval)
	return &Backend{Name: BackendScreenshot, Platform: platform, Lister: NewScreenshotSourceLister()}, nil
}
