package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/bryanchriswhite/ColorProbe/internal/output"
	"github.com/spf13/cobra"
)

var (
	captureOutDir  string
	captureFormat  string
	captureQuality int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture every display once",
	Long: `Capture every connected display in one platform call and report how each
capture source was matched to a display. With --out, each display's bitmap is
written as a JPEG named display-<id>.jpg.`,
	Example: `  # Print a summary
  colorprobe capture

  # Save every display to ./shots
  colorprobe capture --out ./shots`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureOutDir, "out", "o", "", "directory to write display-<id>.jpg files into")
	captureCmd.Flags().StringVarP(&captureFormat, "format", "f", "table", "output format (table or json)")
	captureCmd.Flags().IntVarP(&captureQuality, "quality", "q", output.DefaultQuality, "JPEG quality (1-100)")
}

func runCapture(cmd *cobra.Command, args []string) error {
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

	if captureOutDir != "" {
		if err := os.MkdirAll(captureOutDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		for _, dc := range mc.Displays {
			path := filepath.Join(captureOutDir, fmt.Sprintf("display-%d.jpg", dc.DisplayID))
			if err := writeJPEG(path, dc.Image); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		}
	}

	switch captureFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(mc)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DISPLAY\tSOURCE\tMATCHED BY\tBOUNDS\tBITMAP")
		for _, dc := range mc.Displays {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%dx%d\n", dc.DisplayID, dc.SourceID, dc.Strategy, dc.Bounds, dc.Width, dc.Height)
		}
		w.Flush()
		fmt.Printf("\nCaptured %d display(s) at %s\n", len(mc.Displays), mc.Timestamp.Format(time.RFC3339))
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", captureFormat)
	}
}

func writeJPEG(path string, img *image.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := output.EncodeJPEG(f, img, captureQuality); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
