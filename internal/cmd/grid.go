package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/tilearchive/internal/geojson"
	"github.com/MeKo-Tech/tilearchive/internal/grid"
	"github.com/MeKo-Tech/tilearchive/internal/mercator"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Show the tiles covering a bounding box",
	Long: `Enumerate the tile grid for a bounding box and zoom range without downloading
anything. Prints the tile ranges and counts per zoom level; --list prints every
tile and --geojson writes the tile footprints as a GeoJSON FeatureCollection.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, gridBindings)
	},
	RunE: runGrid,
}

func init() {
	rootCmd.AddCommand(gridCmd)

	addGridFlags(gridCmd)
	gridCmd.Flags().Bool("list", false, "Print every tile: zoom/column/row google_y quadkey id")
	gridCmd.Flags().String("geojson", "", "Write tile footprints to this GeoJSON file (- for stdout)")
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if logger == nil {
		initLogging(cfg)
	}
	meta, err := cfg.Metadata()
	if err != nil {
		return err
	}

	engine := mercator.New(mercator.WithLogger(logger))
	g, err := grid.New(grid.Config{
		Bounds:  meta.Bounds,
		MinZoom: meta.MinZoom,
		MaxZoom: meta.MaxZoom,
		Scheme:  meta.Scheme,
	}, grid.WithEngine(engine))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	list, _ := cmd.Flags().GetBool("list")
	geojsonPath, _ := cmd.Flags().GetString("geojson")

	if geojsonPath != "" {
		return writeGridGeoJSON(out, engine, g, geojsonPath)
	}

	printLevels(out, g)
	if list {
		for t := range g.All() {
			fmt.Fprintf(out, "%d/%d/%d %d %s %s\n", t.Zoom, t.Column, t.Row, t.Google().Y, t.QuadKey(), t.ID)
		}
	}
	return nil
}

func printLevels(out io.Writer, g *grid.Grid) {
	fmt.Fprintf(out, "%-5s %-13s %-13s %s\n", "zoom", "columns", "rows", "tiles")
	for _, l := range g.Levels() {
		fmt.Fprintf(out, "%-5d %-13s %-13s %d\n",
			l.Zoom,
			fmt.Sprintf("%d-%d", l.MinColumn, l.MaxColumn),
			fmt.Sprintf("%d-%d", l.MinRow, l.MaxRow),
			l.Count(),
		)
	}
	fmt.Fprintf(out, "total %d\n", g.Count())
}

func writeGridGeoJSON(out io.Writer, engine *mercator.Engine, g *grid.Grid, path string) error {
	data, err := geojson.ToBytes(geojson.FromGrid(engine, g))
	if err != nil {
		return err
	}

	if path == "-" {
		_, err := out.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	logger.Info("GeoJSON written", "path", path, "features", g.Count())
	return nil
}
