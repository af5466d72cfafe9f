package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var displaysFormat string

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List connected displays",
	Long:  `List every display with its logical bounds, scale factor and primary flag.`,
	Example: `  # Show a table
  colorprobe displays

  # Show JSON
  colorprobe displays --format json`,
	RunE: runDisplays,
}

func init() {
	rootCmd.AddCommand(displaysCmd)
	displaysCmd.Flags().StringVarP(&displaysFormat, "format", "f", "table", "output format (table or json)")
}

func runDisplays(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	displays := a.registry.List()
	vb := a.registry.VirtualBounds()

	switch displaysFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"displays":       displays,
			"virtual_bounds": vb,
			"degraded":       a.registry.Degraded(),
		})
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBOUNDS\tSCALE\tPHYSICAL\tPRIMARY")
		for _, d := range displays {
			pw, ph := d.PhysicalSize()
			primary := ""
			if d.IsPrimary {
				primary = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%dx%d\t%s\n", d.ID, d.Name, d.Bounds, d.ScaleFactor, pw, ph, primary)
		}
		w.Flush()
		fmt.Printf("\nVirtual bounds: %s\n", vb)
		if a.registry.Degraded() {
			fmt.Println("Display enumeration is degraded; showing fallback display")
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", displaysFormat)
	}
}
