package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/bryanchriswhite/ColorProbe/internal/display"
	"github.com/bryanchriswhite/ColorProbe/internal/probe"
	"github.com/spf13/cobra"
)

var (
	pixelFormat string
	pixelLoupe  bool
)

var pixelCmd = &cobra.Command{
	Use:   "pixel X Y",
	Short: "Read the color at a virtual-screen point",
	Long: `Capture every display and print the color at logical point (X, Y) in
virtual-screen coordinates. Points outside every display resolve to the
nearest one and are clamped to its edge.`,
	Example: `  # Color at (100, 100)
  colorprobe pixel 100 100

  # Negative coordinates address displays left of or above the primary
  colorprobe pixel -- -200 40

  # Include the 7x7 loupe as JSON
  colorprobe pixel 100 100 --format json --loupe`,
	Args: cobra.ExactArgs(2),
	RunE: runPixel,
}

func init() {
	rootCmd.AddCommand(pixelCmd)
	pixelCmd.Flags().StringVarP(&pixelFormat, "format", "f", "text", "output format (text, hex or json)")
	pixelCmd.Flags().BoolVar(&pixelLoupe, "loupe", false, "include the surrounding loupe grid")
}

func parsePoint(args []string) (display.Point, error) {
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return display.Point{}, fmt.Errorf("invalid x coordinate %q: %w", args[0], err)
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return display.Point{}, fmt.Errorf("invalid y coordinate %q: %w", args[1], err)
	}
	return display.Point{X: x, Y: y}, nil
}

func runPixel(cmd *cobra.Command, args []string) error {
	p, err := parsePoint(args)
	if err != nil {
		return err
	}

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	mc, err := a.orchestrator.CaptureAll(context.Background())
	if err != nil {
		return fmt.Errorf("failed to capture displays: %w", err)
	}

	reading, err := probe.Probe(mc, p)
	if err != nil {
		return err
	}
	if !pixelLoupe {
		reading.Loupe = nil
	}

	switch pixelFormat {
	case "hex":
		fmt.Println(reading.Hex)
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(reading)
	case "text":
		fmt.Printf("%s  %s\n", reading.Hex, reading.Color)
		fmt.Printf("display %d  local (%d, %d)  physical (%d, %d)\n",
			reading.DisplayID, reading.Local.X, reading.Local.Y, reading.Physical.X, reading.Physical.Y)
		for _, row := range reading.Loupe {
			for i, hex := range row {
				if i > 0 {
					fmt.Print(" ")
				}
				fmt.Print(hex)
			}
			fmt.Println()
		}
	default:
		return fmt.Errorf("unsupported format: %s (use 'text', 'hex' or 'json')", pixelFormat)
	}
	return nil
}
