package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/capture"
)

// Config is the on-disk configuration document
type Config struct {
	ServerPort int           `json:"server_port" yaml:"server_port"`
	LogLevel   string        `json:"log_level" yaml:"log_level"`
	LogPretty  bool          `json:"log_pretty" yaml:"log_pretty"`
	Backend    string        `json:"backend" yaml:"backend"`
	Display    DisplayConfig `json:"display" yaml:"display"`
	Capture    CaptureConfig `json:"capture" yaml:"capture"`
}

// DisplayConfig controls display enumeration and change detection
type DisplayConfig struct {
	RetryInterval string  `json:"retry_interval" yaml:"retry_interval"`
	PollInterval  string  `json:"poll_interval" yaml:"poll_interval"`
	ScaleFactor   float64 `json:"scale_factor" yaml:"scale_factor"`
	WatchDBus     bool    `json:"watch_dbus" yaml:"watch_dbus"`
}

// CaptureConfig controls the capture orchestrator and source matching
type CaptureConfig struct {
	CacheTTL                string   `json:"cache_ttl" yaml:"cache_ttl"`
	Timeout                 string   `json:"timeout" yaml:"timeout"`
	MemoryCeilingMB         int      `json:"memory_ceiling_mb" yaml:"memory_ceiling_mb"`
	Matchers                []string `json:"matchers" yaml:"matchers"`
	DimensionTolerance      int      `json:"dimension_tolerance" yaml:"dimension_tolerance"`
	DimensionRetryTolerance int      `json:"dimension_retry_tolerance" yaml:"dimension_retry_tolerance"`
}

// Defaults returns the configuration written on first run
func Defaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		LogPretty:  true,
		Backend:    capture.BackendAuto,
		Display: DisplayConfig{
			RetryInterval: "5s",
			PollInterval:  "2s",
			ScaleFactor:   1.0,
			WatchDBus:     true,
		},
		Capture: CaptureConfig{
			CacheTTL:                "100ms",
			Timeout:                 "5s",
			MemoryCeilingMB:         150,
			Matchers:                append([]string(nil), capture.DefaultMatchers...),
			DimensionTolerance:      10,
			DimensionRetryTolerance: 20,
		},
	}
}

// RetryIntervalDuration parses RetryInterval, zero when invalid
func (d DisplayConfig) RetryIntervalDuration() time.Duration {
	return parseDuration(d.RetryInterval)
}

// PollIntervalDuration parses PollInterval, zero when invalid
func (d DisplayConfig) PollIntervalDuration() time.Duration {
	return parseDuration(d.PollInterval)
}

// CacheTTLDuration parses CacheTTL, zero when invalid
func (c CaptureConfig) CacheTTLDuration() time.Duration {
	return parseDuration(c.CacheTTL)
}

// TimeoutDuration parses Timeout, zero when invalid
func (c CaptureConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout)
}

// MemoryCeilingBytes converts MemoryCeilingMB to bytes
func (c CaptureConfig) MemoryCeilingBytes() uint64 {
	if c.MemoryCeilingMB <= 0 {
		return 0
	}
	return uint64(c.MemoryCeilingMB) << 20
}

// Chain builds the configured matcher chain
func (c CaptureConfig) Chain() (capture.Chain, error) {
	return capture.NewChain(c.Matchers, c.DimensionTolerance, c.DimensionRetryTolerance)
}

// OrchestratorOptions converts the capture section to orchestrator options
func (c CaptureConfig) OrchestratorOptions() (capture.Options, error) {
	chain, err := c.Chain()
	if err != nil {
		return capture.Options{}, err
	}
	return capture.Options{
		CacheTTL:      c.CacheTTLDuration(),
		Timeout:       c.TimeoutDuration(),
		MemoryCeiling: c.MemoryCeilingBytes(),
		Matchers:      chain,
	}, nil
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

var validLogLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}

var validBackends = map[string]bool{
	capture.BackendAuto:       true,
	capture.BackendX11:        true,
	capture.BackendScreenshot: true,
}

// Validate reports every invalid field
func (c *Config) Validate() error {
	var errs []error

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("server_port out of range: %d", c.ServerPort))
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("invalid log_level: %q (use: trace, debug, info, warn, error)", c.LogLevel))
	}
	if !validBackends[c.Backend] {
		errs = append(errs, fmt.Errorf("invalid backend: %q (use: auto, x11, screenshot)", c.Backend))
	}

	durations := []struct {
		key   string
		value string
	}{
		{"display.retry_interval", c.Display.RetryInterval},
		{"display.poll_interval", c.Display.PollInterval},
		{"capture.cache_ttl", c.Capture.CacheTTL},
		{"capture.timeout", c.Capture.Timeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", d.key, err))
		} else if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive: %s", d.key, d.value))
		}
	}

	if c.Display.ScaleFactor <= 0 {
		errs = append(errs, fmt.Errorf("display.scale_factor must be positive: %v", c.Display.ScaleFactor))
	}
	if c.Capture.MemoryCeilingMB <= 0 {
		errs = append(errs, fmt.Errorf("capture.memory_ceiling_mb must be positive: %d", c.Capture.MemoryCeilingMB))
	}
	if c.Capture.DimensionTolerance < 0 || c.Capture.DimensionRetryTolerance < c.Capture.DimensionTolerance {
		errs = append(errs, fmt.Errorf("capture dimension tolerances must satisfy 0 <= dimension_tolerance <= dimension_retry_tolerance (got %d, %d)",
			c.Capture.DimensionTolerance, c.Capture.DimensionRetryTolerance))
	}
	if _, err := c.Capture.Chain(); err != nil {
		errs = append(errs, fmt.Errorf("invalid capture.matchers: %w", err))
	}

	return errors.Join(errs...)
}
