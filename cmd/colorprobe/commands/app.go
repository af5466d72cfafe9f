package commands

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/ColorProbe/internal/capture"
	"github.com/bryanchriswhite/ColorProbe/internal/config"
	"github.com/bryanchriswhite/ColorProbe/internal/display"
	"github.com/bryanchriswhite/ColorProbe/internal/logger"
)

// app is the wired display registry and capture orchestrator
type app struct {
	backend      *capture.Backend
	registry     *display.Registry
	orchestrator *capture.Orchestrator
	mutter       *display.MutterWatcher
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.WithComponent("app")

	backend, err := capture.NewBackend(cfg.Backend, capture.BackendOptions{
		ScaleFactor:  cfg.Display.ScaleFactor,
		PollInterval: cfg.Display.PollIntervalDuration(),
	})
	if err != nil {
		return nil, err
	}

	a := &app{backend: backend}

	opts := []display.Option{display.WithRetryInterval(cfg.Display.RetryIntervalDuration())}
	if cfg.Display.WatchDBus {
		mutter, err := display.NewMutterWatcher()
		if err != nil {
			log.Debug().Err(err).Msg("Mutter display watcher not available")
		} else {
			a.mutter = mutter
			opts = append(opts, display.WithWatcher(mutter))
		}
	}

	a.registry = display.NewRegistry(backend.Platform, opts...)
	if err := a.registry.Start(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to start display registry: %w", err)
	}

	orchOpts, err := cfg.Capture.OrchestratorOptions()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.orchestrator = capture.NewOrchestrator(a.registry, backend.Lister, orchOpts)

	log.Info().
		Str("backend", backend.Name).
		Int("displays", len(a.registry.List())).
		Bool("degraded", a.registry.Degraded()).
		Msg("Display registry started")

	return a, nil
}

// Close tears down the registry, watchers and backend
func (a *app) Close() error {
	if a.registry != nil {
		a.registry.Close()
	}
	var errs []error
	if a.mutter != nil {
		errs = append(errs, a.mutter.Close())
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
	}
	return errors.Join(errs...)
}
