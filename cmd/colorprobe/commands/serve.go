package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/api"
	"github.com/bryanchriswhite/ColorProbe/internal/logger"
	"github.com/spf13/cobra"
)

var memoryCheckInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ColorProbe server",
	Long: `Start the ColorProbe HTTP server.

The server exposes display enumeration, multi-display capture, pixel probing
and a WebSocket stream of display-change notifications.`,
	Example: `  # Start server on default port (8080)
  colorprobe serve

  # Start server on custom port with the portable backend
  colorprobe serve --port 9090 --backend screenshot

  # Start with debug logging
  colorprobe serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().DurationVar(&memoryCheckInterval, "memory-check-interval", 30*time.Second, "how often to check capture memory usage (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	configMgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info().
		Str("path", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	a, err := newApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize capture: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if memoryCheckInterval > 0 {
		go watchMemory(ctx, a, memoryCheckInterval)
	}

	server := api.NewServer(a.registry, a.orchestrator, configMgr)

	log.Info().
		Int("port", cfg.ServerPort).
		Str("api", fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)).
		Msg("ColorProbe is running, press Ctrl+C to stop")

	if err := server.Start(ctx, cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("Shutting down gracefully")
	return nil
}

func watchMemory(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.orchestrator.CheckMemoryUsage()
		}
	}
}
