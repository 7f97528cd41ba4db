package cmd

import (
	"slices"

	"github.com/spf13/cobra"
)

// addGridFlags defines the flags that describe which tiles to cover.
func addGridFlags(cmd *cobra.Command) {
	cmd.Flags().String("bounds", "", "Bounding box: minLng,minLat,maxLng,maxLat (e.g., \"-75.1,44.9,-74.9,45.1\")")
	cmd.Flags().Int("min-zoom", 0, "Minimum zoom level")
	cmd.Flags().Int("max-zoom", 0, "Maximum zoom level")
	cmd.Flags().String("url", "", "Tile URL scheme with {z}, {x}, {y}, {quadkey} and {switch:a,b,c} placeholders")
}

var gridBindings = []flagBinding{
	{"archive.bounds", "bounds"},
	{"archive.min_zoom", "min-zoom"},
	{"archive.max_zoom", "max-zoom"},
	{"archive.url", "url"},
}

// addArchiveFlags defines the grid flags plus the archive metadata flags.
func addArchiveFlags(cmd *cobra.Command) {
	addGridFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Output MBTiles file path (default: tiles.mbtiles)")
	cmd.Flags().String("name", "", "Tileset name (required)")
	cmd.Flags().String("description", "", "Tileset description (required)")
	cmd.Flags().String("attribution", "", "Attribution text")
	cmd.Flags().String("author", "", "Tileset author")
	cmd.Flags().String("center", "", "Default view: lng,lat[,zoom] (default: bounds centroid at min zoom)")
	cmd.Flags().String("format", "", "Tile format: png or jpg (default: png)")
	cmd.Flags().String("type", "", "Layer type: baselayer or overlay (default: baselayer)")
}

var archiveBindings = slices.Concat([]flagBinding{
	{"archive.path", "output"},
	{"archive.name", "name"},
	{"archive.description", "description"},
	{"archive.attribution", "attribution"},
	{"archive.author", "author"},
	{"archive.center", "center"},
	{"archive.format", "format"},
	{"archive.type", "type"},
}, gridBindings)
