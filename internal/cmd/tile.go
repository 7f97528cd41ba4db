package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/tilearchive/internal/mercator"
	"github.com/MeKo-Tech/tilearchive/internal/tile"
)

var tileCmd = &cobra.Command{
	Use:   "tile",
	Short: "Convert a coordinate, QuadKey or tile id to tile addresses",
	Long: `Convert a lat/lng at a zoom level to Mercator meters, pixels, TMS and Google
tile addresses, the QuadKey and the tile bounds. With --quadkey the QuadKey is
decoded instead. With --id a stored tile identifier is decoded together with its
download URL.`,
	Example: `  tilearchive tile --lat 45.4215 --lng -75.6972 --zoom 13
  tilearchive tile --quadkey 0302
  tilearchive tile --id em9vbV9sZXZlbD0xO3RpbGVfY29sdW1uPTE7dGlsZV9yb3c9MTtzY2hlbWU9eA==`,
	RunE: runTile,
}

func init() {
	rootCmd.AddCommand(tileCmd)

	tileCmd.Flags().Float64("lat", 0, "Latitude in degrees")
	tileCmd.Flags().Float64("lng", 0, "Longitude in degrees")
	tileCmd.Flags().IntP("zoom", "z", 0, "Zoom level")
	tileCmd.Flags().String("quadkey", "", "QuadKey to decode")
	tileCmd.Flags().String("id", "", "Tile identifier to decode")
	tileCmd.Flags().Int("tile-size", mercator.DefaultTileSize, "Tile size in pixels")
}

func runTile(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging(nil)
	}

	tileSize, _ := cmd.Flags().GetInt("tile-size")
	engine := mercator.New(mercator.WithTileSize(tileSize), mercator.WithLogger(logger))
	out := cmd.OutOrStdout()

	if id, _ := cmd.Flags().GetString("id"); id != "" {
		t, err := tile.FromID(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "scheme   %s\n", t.Scheme)
		fmt.Fprintf(out, "url      %s\n", t.URL())
		printTile(out, engine, t.TMS())
		return nil
	}

	if quadkey, _ := cmd.Flags().GetString("quadkey"); quadkey != "" {
		t, err := engine.QuadKeyToTile(quadkey)
		if err != nil {
			return err
		}
		printTile(out, engine, t)
		return nil
	}

	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
		return errors.New("--lat and --lng are required unless --quadkey is given")
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	zoom, _ := cmd.Flags().GetInt("zoom")

	p, err := mercator.NewLatLng(lat, lng, zoom)
	if err != nil {
		return err
	}
	m, err := engine.LatLngToMeters(p)
	if err != nil {
		return err
	}
	px := engine.MetersToPixels(m)

	fmt.Fprintf(out, "latlng   %s\n", p)
	fmt.Fprintf(out, "meters   %.2f,%.2f\n", m.MX, m.MY)
	fmt.Fprintf(out, "pixels   %.0f,%.0f\n", px.PX, px.PY)
	printTile(out, engine, engine.PixelsToTile(px))
	return nil
}

func printTile(out io.Writer, engine *mercator.Engine, t mercator.Tile) {
	fmt.Fprintf(out, "tms      %s\n", t)
	fmt.Fprintf(out, "google   %s\n", t.Google())
	fmt.Fprintf(out, "quadkey  %s\n", engine.TileToQuadKey(t))
	fmt.Fprintf(out, "bounds   %s\n", engine.TileLatLngBounds(t))
}
