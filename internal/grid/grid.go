// Package grid enumerates every tile covering a bounding box across a zoom range.
package grid

import (
	"errors"
	"fmt"
	"iter"

	"github.com/MeKo-Tech/tilearchive/internal/mercator"
	"github.com/MeKo-Tech/tilearchive/internal/tile"
)

// DefaultBatchSize is the batch size used by Batches when none is given.
const DefaultBatchSize = 500

// ErrInvalidGrid is returned for grid parameters that fail validation.
var ErrInvalidGrid = errors.New("invalid grid")

// Config holds the parameters of a grid.
type Config struct {
	Bounds  *mercator.Bounds // Required
	MinZoom int
	MaxZoom int
	Scheme  string // Required URL template
}

// Validate checks the grid parameters.
func (c Config) Validate() error {
	switch {
	case c.Bounds == nil:
		return fmt.Errorf("%w: Grid <bounds> is required", ErrInvalidGrid)
	case c.Scheme == "":
		return fmt.Errorf("%w: Grid <scheme> is required", ErrInvalidGrid)
	case c.MinZoom < mercator.MinZoom:
		return fmt.Errorf("%w: Grid <minZoom> cannot be less than %d", ErrInvalidGrid, mercator.MinZoom)
	case c.MaxZoom > mercator.MaxZoom:
		return fmt.Errorf("%w: Grid <maxZoom> cannot be greater than %d", ErrInvalidGrid, mercator.MaxZoom)
	case c.MinZoom > c.MaxZoom:
		return fmt.Errorf("%w: Grid <minZoom> cannot be greater than <maxZoom>", ErrInvalidGrid)
	}
	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGrid, err)
	}
	return nil
}

// Level is the tile range of a grid at one zoom level, in TMS coordinates.
type Level struct {
	Zoom      int
	MinColumn int
	MaxColumn int
	MinRow    int
	MaxRow    int
}

// Columns returns the number of tile columns.
func (l Level) Columns() int {
	return l.MaxColumn - l.MinColumn + 1
}

// Rows returns the number of tile rows.
func (l Level) Rows() int {
	return l.MaxRow - l.MinRow + 1
}

// Count returns the number of tiles at this level.
func (l Level) Count() int {
	return l.Rows() * l.Columns()
}

// Option configures a Grid.
type Option func(*Grid)

// WithEngine sets the projection engine used to compute tile ranges.
func WithEngine(e *mercator.Engine) Option {
	return func(g *Grid) {
		if e != nil {
			g.engine = e
		}
	}
}

// Grid is an immutable set of tiles. It owns no persistent state; each call
// to All, Batches or Enumerator starts a fresh enumeration.
type Grid struct {
	engine *mercator.Engine
	bounds mercator.Bounds
	scheme string
	levels []Level
	count  int
}

// New validates cfg and computes the tile range of every zoom level.
// Latitudes outside the Mercator band are clamped with a warning.
func New(cfg Config, opts ...Option) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Grid{scheme: cfg.Scheme}
	for _, opt := range opts {
		opt(g)
	}
	if g.engine == nil {
		g.engine = mercator.New()
	}
	g.bounds = g.engine.ClampBounds(*cfg.Bounds)

	levels, err := buildLevels(g.engine, g.bounds, cfg.MinZoom, cfg.MaxZoom)
	if err != nil {
		return nil, err
	}
	g.levels = levels
	for _, l := range levels {
		g.count += l.Count()
	}
	return g, nil
}

func buildLevels(e *mercator.Engine, b mercator.Bounds, minZoom, maxZoom int) ([]Level, error) {
	levels := make([]Level, 0, maxZoom-minZoom+1)
	for zoom := minZoom; zoom <= maxZoom; zoom++ {
		sw, ne := b.SouthWest(), b.NorthEast()
		sw.Zoom, ne.Zoom = zoom, zoom

		t1, err := e.LatLngToTile(sw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGrid, err)
		}
		t2, err := e.LatLngToTile(ne)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGrid, err)
		}

		// Corners on the antimeridian or the Mercator limit can round one
		// tile past the edge of the pyramid.
		last := 1<<zoom - 1
		levels = append(levels, Level{
			Zoom:      zoom,
			MinColumn: min(t1.TX, t2.TX),
			MaxColumn: min(max(t1.TX, t2.TX), last),
			MinRow:    min(t1.TY, t2.TY),
			MaxRow:    min(max(t1.TY, t2.TY), last),
		})
	}
	return levels, nil
}

// Bounds returns the (clamped) bounds of the grid.
func (g *Grid) Bounds() mercator.Bounds {
	return g.bounds
}

// Scheme returns the URL template shared by all tiles.
func (g *Grid) Scheme() string {
	return g.scheme
}

// Levels returns the per-zoom tile ranges in ascending zoom order.
func (g *Grid) Levels() []Level {
	out := make([]Level, len(g.levels))
	copy(out, g.levels)
	return out
}

// Count returns the number of tiles the grid yields, without enumerating them.
func (g *Grid) Count() int {
	return g.count
}

// All yields every tile, zoom by zoom, rows ascending and columns ascending
// within each row.
func (g *Grid) All() iter.Seq[tile.Tile] {
	return func(yield func(tile.Tile) bool) {
		for _, l := range g.levels {
			for row := l.MinRow; row <= l.MaxRow; row++ {
				for col := l.MinColumn; col <= l.MaxColumn; col++ {
					if !yield(g.tile(col, row, l.Zoom)) {
						return
					}
				}
			}
		}
	}
}

// Batches groups All into slices of at most size tiles. The last batch may
// be shorter. A size <= 0 selects DefaultBatchSize.
func (g *Grid) Batches(size int) iter.Seq[[]tile.Tile] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return func(yield func([]tile.Tile) bool) {
		batch := make([]tile.Tile, 0, min(size, g.count))
		for t := range g.All() {
			batch = append(batch, t)
			if len(batch) == size {
				if !yield(batch) {
					return
				}
				batch = make([]tile.Tile, 0, size)
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}

func (g *Grid) tile(col, row, zoom int) tile.Tile {
	id, err := tile.EncodeID(tile.IDFields{Scheme: g.scheme, Column: col, Row: row, Zoom: zoom})
	if err != nil {
		// Scheme and ranges are validated in New.
		panic(fmt.Sprintf("grid: encode tile id: %v", err))
	}
	return tile.Tile{Scheme: g.scheme, Column: col, Row: row, Zoom: zoom, ID: id}
}
