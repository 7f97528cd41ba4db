// Package tile defines the tile records produced by a grid, their
// deterministic identifiers and the resolution of their download URLs.
package tile

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/tilearchive/internal/mercator"
)

// ErrIllegalTile is returned for addresses outside the pyramid.
var ErrIllegalTile = errors.New("illegal parameters for tile")

// Tile is one enumerated unit of a grid. Column and Row follow the TMS
// convention used by the MBTiles map table.
type Tile struct {
	Scheme string // URL template the tile is downloaded from
	Column int
	Row    int
	Zoom   int
	ID     string
}

// New builds a Tile for a TMS address and computes its identifier.
func New(scheme string, t mercator.Tile) (Tile, error) {
	// TMS and Google addresses share the same valid range.
	if err := Validate(mercator.Google{X: t.TX, Y: t.TY, Zoom: t.Zoom}); err != nil {
		return Tile{}, err
	}
	id, err := EncodeID(IDFields{Scheme: scheme, Column: t.TX, Row: t.TY, Zoom: t.Zoom})
	if err != nil {
		return Tile{}, err
	}
	return Tile{Scheme: scheme, Column: t.TX, Row: t.TY, Zoom: t.Zoom, ID: id}, nil
}

// FromID rebuilds a Tile from its identifier.
func FromID(id string) (Tile, error) {
	f, err := DecodeID(id)
	if err != nil {
		return Tile{}, err
	}
	return New(f.Scheme, mercator.Tile{TX: f.Column, TY: f.Row, Zoom: f.Zoom})
}

// Validate rejects Google addresses with x or y >= 2^zoom.
func Validate(g mercator.Google) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrIllegalTile, g)
	}
	return nil
}

// TMS returns the TMS address.
func (t Tile) TMS() mercator.Tile {
	return mercator.Tile{TX: t.Column, TY: t.Row, Zoom: t.Zoom}
}

// Google returns the Google/XYZ address.
func (t Tile) Google() mercator.Google {
	return t.TMS().Google()
}

// QuadKey returns the QuadKey of the tile.
func (t Tile) QuadKey() string {
	return t.TMS().QuadKey()
}

// URL resolves the tile's download URL from its scheme.
func (t Tile) URL() string {
	g := t.Google()
	return ResolveURL(t.Scheme, g.X, g.Y, g.Zoom, t.QuadKey())
}

// String returns the Google address as "z{zoom}_x{x}_y{y}".
func (t Tile) String() string {
	g := t.Google()
	return fmt.Sprintf("z%d_x%d_y%d", g.Zoom, g.X, g.Y)
}
