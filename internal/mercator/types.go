// Package mercator implements the Global Mercator (EPSG:3857) tile pyramid:
// conversions between lat/lng, meters, pixels, TMS and Google tiles, and QuadKeys.
package mercator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0

	// MaxMercatorLatitude is the northern edge of the square Mercator world.
	MaxMercatorLatitude = 85.05112877980659

	MinZoom = 0
	MaxZoom = 23
)

// LatLng is a geographic point in WGS84 degrees.
type LatLng struct {
	Lat  float64
	Lng  float64
	Zoom int
}

// NewLatLng returns a validated LatLng.
func NewLatLng(lat, lng float64, zoom int) (LatLng, error) {
	p := LatLng{Lat: lat, Lng: lng, Zoom: zoom}
	if err := p.Validate(); err != nil {
		return LatLng{}, err
	}
	return p, nil
}

// Validate checks the latitude, longitude and zoom ranges.
func (p LatLng) Validate() error {
	if p.Lat < MinLatitude || p.Lat > MaxLatitude {
		return newValidationError("lat", p.Lat, "[-90,90]", "LatLng [lat] must be within -90 to 90 degrees")
	}
	if p.Lng < MinLongitude || p.Lng > MaxLongitude {
		return newValidationError("lng", p.Lng, "[-180,180]", "LatLng [lng] must be within -180 to 180 degrees")
	}
	return ValidateZoom(p.Zoom)
}

// String returns "lng,lat".
func (p LatLng) String() string {
	return formatFloat(p.Lng) + "," + formatFloat(p.Lat)
}

// Point returns the orb point (lng, lat).
func (p LatLng) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// ValidateZoom checks that zoom lies within [MinZoom, MaxZoom].
func ValidateZoom(zoom int) error {
	if zoom < MinZoom || zoom > MaxZoom {
		return newValidationError("zoom", zoom, "[0,23]", "[zoom] must be within 0 to 23")
	}
	return nil
}

// Bounds is a geographic bounding box [minLng, minLat, maxLng, maxLat].
// The corners are kept as given; callers that need ordered corners use Bound.
type Bounds struct {
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64
}

// NewBounds validates a 4-element array and both of its corners.
func NewBounds(values []float64) (Bounds, error) {
	if len(values) != 4 {
		return Bounds{}, newValidationError("bounds", values, "len == 4", "[bounds] must be an array with 4 numbers")
	}
	b := Bounds{MinLng: values[0], MinLat: values[1], MaxLng: values[2], MaxLat: values[3]}
	if err := b.Validate(); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

// Validate checks both corners as LatLng points.
func (b Bounds) Validate() error {
	if err := (LatLng{Lat: b.MinLat, Lng: b.MinLng}).Validate(); err != nil {
		return err
	}
	return (LatLng{Lat: b.MaxLat, Lng: b.MaxLng}).Validate()
}

// SouthWest returns the first corner.
func (b Bounds) SouthWest() LatLng {
	return LatLng{Lat: b.MinLat, Lng: b.MinLng}
}

// NorthEast returns the second corner.
func (b Bounds) NorthEast() LatLng {
	return LatLng{Lat: b.MaxLat, Lng: b.MaxLng}
}

// Array returns the bounds as [minLng, minLat, maxLng, maxLat].
func (b Bounds) Array() [4]float64 {
	return [4]float64{b.MinLng, b.MinLat, b.MaxLng, b.MaxLat}
}

// Bound returns the ordered orb bound of the two corners.
func (b Bounds) Bound() orb.Bound {
	return orb.MultiPoint{b.SouthWest().Point(), b.NorthEast().Point()}.Bound()
}

// Center returns the centroid of the bounding box.
func (b Bounds) Center() LatLng {
	c := b.Bound().Center()
	return LatLng{Lat: c.Lat(), Lng: c.Lon()}
}

// String returns the comma-joined bounds.
func (b Bounds) String() string {
	return strings.Join([]string{
		formatFloat(b.MinLng), formatFloat(b.MinLat),
		formatFloat(b.MaxLng), formatFloat(b.MaxLat),
	}, ",")
}

// Meters is a point in spherical Mercator meters.
type Meters struct {
	MX   float64
	MY   float64
	Zoom int
}

// Pixels is a pixel position within the pyramid at Zoom.
type Pixels struct {
	PX   float64
	PY   float64
	Zoom int
}

// Tile is a TMS tile address (origin bottom-left).
type Tile struct {
	TX   int
	TY   int
	Zoom int
}

// String returns "zoom/tx/ty".
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.TX, t.TY)
}

// Google returns the address in the Google convention.
func (t Tile) Google() Google {
	if t.Zoom == 0 {
		return Google{}
	}
	return Google{X: t.TX, Y: (1 << t.Zoom) - 1 - t.TY, Zoom: t.Zoom}
}

// Google is a Google/XYZ tile address (origin top-left).
type Google struct {
	X    int
	Y    int
	Zoom int
}

// String returns "zoom/x/y".
func (g Google) String() string {
	return fmt.Sprintf("%d/%d/%d", g.Zoom, g.X, g.Y)
}

// TMS returns the address in the TMS convention.
func (g Google) TMS() Tile {
	if g.Zoom == 0 {
		return Tile{}
	}
	return Tile{TX: g.X, TY: (1 << g.Zoom) - 1 - g.Y, Zoom: g.Zoom}
}

// Validate checks that the address lies inside the pyramid at its zoom.
func (g Google) Validate() error {
	if err := ValidateZoom(g.Zoom); err != nil {
		return err
	}
	n := 1 << g.Zoom
	if g.X < 0 || g.Y < 0 || g.X >= n || g.Y >= n {
		return newValidationError("tile", g.String(), fmt.Sprintf("[0,%d)", n), "illegal parameters for tile")
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
