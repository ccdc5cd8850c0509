package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1F47E/earthgrid/pkg/colors"
	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/models"
)

var (
	layerName  string
	resolution int
	jsonOutput bool
	bounds     models.Viewport
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one grid for a viewport",
	Long: `Generate a synthetic intensity grid for the configured (or given) viewport.
Prints JSON with --json, otherwise a coloured map when stdout is a terminal.`,
	RunE: runGenerate,
}

func init() {
	addViewportFlags(generateCmd)
	generateCmd.Flags().IntVarP(&resolution, "resolution", "r", 0, "Grid resolution (default from layer preset)")
	generateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print samples as JSON")
}

// addViewportFlags registers --layer and the four bounds.
func addViewportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&layerName, "layer", "l", string(grid.LayerPollution), "Layer: pollution, vegetation, fire or water")
	cmd.Flags().Float64Var(&bounds.North, "north", 0, "North bound (default from config)")
	cmd.Flags().Float64Var(&bounds.South, "south", 0, "South bound (default from config)")
	cmd.Flags().Float64Var(&bounds.East, "east", 0, "East bound (default from config)")
	cmd.Flags().Float64Var(&bounds.West, "west", 0, "West bound (default from config)")
}

// viewportFromFlags overlays explicitly set bound flags on the configured viewport.
func viewportFromFlags(cmd *cobra.Command) models.Viewport {
	vp := cfg.Viewport
	if cmd.Flags().Changed("north") {
		vp.North = bounds.North
	}
	if cmd.Flags().Changed("south") {
		vp.South = bounds.South
	}
	if cmd.Flags().Changed("east") {
		vp.East = bounds.East
	}
	if cmd.Flags().Changed("west") {
		vp.West = bounds.West
	}
	return vp
}

type generateOutput struct {
	Layer    grid.Layer          `json:"layer"`
	Viewport models.Viewport     `json:"viewport"`
	Params   grid.Params         `json:"params"`
	Samples  []models.GridSample `json:"samples"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	layer := grid.Layer(layerName)
	gen, err := cfg.NewGenerator(layer)
	if err != nil {
		return err
	}
	res := gen.Params().Resolution
	if resolution != 0 {
		res = resolution
	}

	hotspots, err := layerHotspots(layer)
	if err != nil {
		return err
	}

	vp := viewportFromFlags(cmd)
	samples, err := gen.Generate(vp, hotspots, res)
	if err != nil {
		return err
	}
	logger.Debug("Grid generated",
		zap.String("layer", string(layer)),
		zap.Int("resolution", res),
		zap.Int("samples", len(samples)))

	out := cmd.OutOrStdout()
	if jsonOutput {
		params := gen.Params()
		params.Resolution = res
		return writeJSON(out, generateOutput{Layer: layer, Viewport: vp, Params: params, Samples: samples})
	}

	color := isTerminal(out)
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("earthgrid · %s", layer)))
	fmt.Fprintln(out, dimStyle.Render(renderViewport(vp)))
	fmt.Fprintln(out)
	fmt.Fprint(out, renderGrid(samples, color))
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderLegend(color))
	fmt.Fprintf(out, "%d samples, peak %s\n", len(samples), colors.BucketFor(peak(samples)))
	return nil
}

func peak(samples []models.GridSample) float64 {
	var top float64
	for _, s := range samples {
		if s.Intensity > top {
			top = s.Intensity
		}
	}
	return top
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
