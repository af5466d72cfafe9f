package commands

import (
	"fmt"

	"github.com/bryanchriswhite/ColorProbe/internal/display"
	"github.com/bryanchriswhite/ColorProbe/internal/logger"
	"github.com/bryanchriswhite/ColorProbe/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe [X Y]",
	Short: "Pick a color interactively",
	Long: `Capture every display and open an interactive probe. Move the probe with
the arrow keys (hold shift for steps of 10), press r to recapture and enter
to pick the color under the probe. The picked hex value is printed on exit.`,
	Example: `  # Start at the center of the first display
  colorprobe probe

  # Start at a given point
  colorprobe probe 1920 540`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
		}
		return nil
	},
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	var start *display.Point
	if len(args) == 2 {
		p, err := parsePoint(args)
		if err != nil {
			return err
		}
		start = &p
	}

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Keep log output from tearing the terminal UI
	if cfg.LogLevel == "debug" || cfg.LogLevel == "trace" || cfg.LogLevel == "info" {
		logger.Init("warn", cfg.LogPretty)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	final, err := tea.NewProgram(tui.New(a.orchestrator, start)).Run()
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}

	m, ok := final.(tui.Model)
	if !ok {
		return nil
	}
	if err := m.Err(); err != nil {
		return err
	}
	if reading, picked := m.Reading(); picked {
		fmt.Println(reading.Hex)
	}
	return nil
}
