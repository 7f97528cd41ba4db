// Package geojson renders tile footprints as GeoJSON.
package geojson

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/paulmach/orb/geojson"

	"github.com/MeKo-Tech/tilearchive/internal/grid"
	"github.com/MeKo-Tech/tilearchive/internal/mercator"
	"github.com/MeKo-Tech/tilearchive/internal/tile"
)

// Property keys written on every tile feature.
const (
	PropTileID  = "tile_id"
	PropZoom    = "zoom_level"
	PropColumn  = "tile_column"
	PropRow     = "tile_row"
	PropQuadKey = "quadkey"
)

// TileFeature returns the footprint of t as a polygon feature.
func TileFeature(e *mercator.Engine, t tile.Tile) *geojson.Feature {
	b := e.TileLatLngBounds(t.TMS()).Bound()

	f := geojson.NewFeature(b.ToPolygon())
	f.BBox = geojson.NewBBox(b)
	f.Properties[PropTileID] = t.ID
	f.Properties[PropZoom] = t.Zoom
	f.Properties[PropColumn] = t.Column
	f.Properties[PropRow] = t.Row
	f.Properties[PropQuadKey] = t.QuadKey()
	return f
}

// FromTiles collects the footprints of tiles into a FeatureCollection.
func FromTiles(e *mercator.Engine, tiles iter.Seq[tile.Tile]) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for t := range tiles {
		fc.Append(TileFeature(e, t))
	}
	return fc
}

// FromGrid returns one feature per grid tile plus the grid extent as the
// collection bbox.
func FromGrid(e *mercator.Engine, g *grid.Grid) *geojson.FeatureCollection {
	fc := FromTiles(e, g.All())
	fc.BBox = geojson.NewBBox(g.Bounds().Bound())
	return fc
}

// ToBytes marshals fc as indented GeoJSON.
func ToBytes(fc *geojson.FeatureCollection) ([]byte, error) {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	return data, nil
}
