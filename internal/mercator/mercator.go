package mercator

import (
	"log/slog"
	"math"
)

const (
	// EarthRadius is the WGS84 equatorial radius in meters.
	EarthRadius = 6378137.0

	// DefaultTileSize is the edge length of a tile in pixels.
	DefaultTileSize = 256
)

// Engine converts between the coordinate spaces of the Mercator tile pyramid.
// An Engine is immutable and safe for concurrent use.
type Engine struct {
	logger            *slog.Logger
	tileSize          int
	initialResolution float64
	originShift       float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTileSize sets the tile edge length in pixels.
func WithTileSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.tileSize = size
		}
	}
}

// WithLogger sets the logger used for clamp warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine. The default tile size is 256 pixels.
func New(opts ...Option) *Engine {
	e := &Engine{
		tileSize: DefaultTileSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.initialResolution = 2 * math.Pi * EarthRadius / float64(e.tileSize)
	e.originShift = 2 * math.Pi * EarthRadius / 2.0
	return e
}

// TileSize returns the tile edge length in pixels.
func (e *Engine) TileSize() int {
	return e.tileSize
}

// OriginShift returns half the projected world circumference in meters.
func (e *Engine) OriginShift() float64 {
	return e.originShift
}

// Resolution returns meters per pixel at the equator for zoom.
func (e *Engine) Resolution(zoom int) float64 {
	return e.initialResolution / math.Pow(2, float64(zoom))
}

// LatLngToMeters projects a geographic point to Mercator meters.
func (e *Engine) LatLngToMeters(p LatLng) (Meters, error) {
	if err := p.Validate(); err != nil {
		return Meters{}, err
	}
	mx := p.Lng * e.originShift / 180.0
	my := math.Log(math.Tan((90+p.Lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	my = my * e.originShift / 180.0

	return e.Meters(mx, my, p.Zoom), nil
}

// MetersToLatLng converts Mercator meters back to a geographic point.
func (e *Engine) MetersToLatLng(m Meters) LatLng {
	lng := (m.MX / e.originShift) * 180.0
	lat := (m.MY / e.originShift) * 180.0
	lat = 180 / math.Pi * (2*math.Atan(math.Exp(lat*math.Pi/180.0)) - math.Pi/2.0)

	return LatLng{Lat: lat, Lng: lng, Zoom: m.Zoom}
}

// MetersToPixels converts meters to pixel coordinates at m.Zoom.
func (e *Engine) MetersToPixels(m Meters) Pixels {
	res := e.Resolution(m.Zoom)
	px := (m.MX + e.originShift) / res
	py := (m.MY + e.originShift) / res

	return Pixels{PX: px, PY: py, Zoom: m.Zoom}
}

// PixelsToMeters converts pixel coordinates to meters at p.Zoom.
func (e *Engine) PixelsToMeters(p Pixels) Meters {
	res := e.Resolution(p.Zoom)
	mx := p.PX*res - e.originShift
	my := p.PY*res - e.originShift

	return Meters{MX: mx, MY: my, Zoom: p.Zoom}
}

// PixelsToTile returns the TMS tile containing the pixel. Zoom 0 is always
// the single world tile and negative results are clamped to 0.
func (e *Engine) PixelsToTile(p Pixels) Tile {
	if p.Zoom == 0 {
		return Tile{}
	}
	size := float64(e.tileSize)
	tx := int(math.Ceil(p.PX/size)) - 1
	ty := int(math.Ceil(p.PY/size)) - 1

	return Tile{TX: max(tx, 0), TY: max(ty, 0), Zoom: p.Zoom}
}

// MetersToTile returns the TMS tile containing the point.
func (e *Engine) MetersToTile(m Meters) Tile {
	if m.Zoom == 0 {
		return Tile{}
	}
	return e.PixelsToTile(e.MetersToPixels(m))
}

// LatLngToTile returns the TMS tile containing the geographic point.
func (e *Engine) LatLngToTile(p LatLng) (Tile, error) {
	m, err := e.LatLngToMeters(p)
	if err != nil {
		return Tile{}, err
	}
	return e.PixelsToTile(e.MetersToPixels(m)), nil
}

// LatLngToGoogle returns the Google tile containing the geographic point.
func (e *Engine) LatLngToGoogle(p LatLng) (Google, error) {
	if p.Zoom == 0 {
		if err := p.Validate(); err != nil {
			return Google{}, err
		}
		return Google{}, nil
	}
	t, err := e.LatLngToTile(p)
	if err != nil {
		return Google{}, err
	}
	return e.TileToGoogle(t), nil
}

// TileBounds returns the tile extent in meters as [minX, minY, maxX, maxY].
func (e *Engine) TileBounds(t Tile) [4]float64 {
	size := float64(e.tileSize)
	lo := e.PixelsToMeters(Pixels{PX: float64(t.TX) * size, PY: float64(t.TY) * size, Zoom: t.Zoom})
	hi := e.PixelsToMeters(Pixels{PX: float64(t.TX+1) * size, PY: float64(t.TY+1) * size, Zoom: t.Zoom})

	return [4]float64{lo.MX, lo.MY, hi.MX, hi.MY}
}

// TileLatLngBounds returns the tile extent in degrees as Bounds.
func (e *Engine) TileLatLngBounds(t Tile) Bounds {
	if t.Zoom == 0 {
		return Bounds{
			MinLng: MinLongitude,
			MinLat: -MaxMercatorLatitude,
			MaxLng: MaxLongitude,
			MaxLat: MaxMercatorLatitude,
		}
	}
	mb := e.TileBounds(t)
	lo := e.MetersToLatLng(Meters{MX: mb[0], MY: mb[1], Zoom: t.Zoom})
	hi := e.MetersToLatLng(Meters{MX: mb[2], MY: mb[3], Zoom: t.Zoom})

	return Bounds{MinLng: lo.Lng, MinLat: lo.Lat, MaxLng: hi.Lng, MaxLat: hi.Lat}
}

// GoogleBounds returns the extent in meters of a Google tile.
func (e *Engine) GoogleBounds(g Google) [4]float64 {
	return e.TileBounds(e.GoogleToTile(g))
}

// GoogleLatLngBounds returns the extent in degrees of a Google tile.
func (e *Engine) GoogleLatLngBounds(g Google) Bounds {
	return e.TileLatLngBounds(e.GoogleToTile(g))
}

// TileToGoogle flips a TMS row into the Google convention.
func (e *Engine) TileToGoogle(t Tile) Google {
	return t.Google()
}

// GoogleToTile flips a Google row into the TMS convention.
func (e *Engine) GoogleToTile(g Google) Tile {
	return g.TMS()
}

// Meters builds a Meters value, clamping each axis to the projected world.
func (e *Engine) Meters(mx, my float64, zoom int) Meters {
	cx := clamp(mx, -e.originShift, e.originShift)
	cy := clamp(my, -e.originShift, e.originShift)
	if cx != mx || cy != my {
		e.logger.Warn("meters clamped to projected world extent",
			"mx", mx, "my", my, "clamped_mx", cx, "clamped_my", cy)
	}
	return Meters{MX: cx, MY: cy, Zoom: zoom}
}

// Pixels builds a Pixels value, flooring fractional input.
func (e *Engine) Pixels(px, py float64, zoom int) Pixels {
	fx, fy := math.Floor(px), math.Floor(py)
	if fx != px || fy != py {
		e.logger.Warn("fractional pixels floored", "px", px, "py", py, "zoom", zoom)
	}
	return Pixels{PX: fx, PY: fy, Zoom: zoom}
}

// ClampLatLng limits latitude to the Mercator band. The input must already be
// a valid LatLng.
func (e *Engine) ClampLatLng(p LatLng) LatLng {
	lat := clamp(p.Lat, -MaxMercatorLatitude, MaxMercatorLatitude)
	if lat != p.Lat {
		e.logger.Warn("latitude clamped to mercator range", "lat", p.Lat, "clamped_lat", lat)
	}
	return LatLng{Lat: lat, Lng: p.Lng, Zoom: p.Zoom}
}

// ClampBounds clamps both corners of b with ClampLatLng.
func (e *Engine) ClampBounds(b Bounds) Bounds {
	sw := e.ClampLatLng(b.SouthWest())
	ne := e.ClampLatLng(b.NorthEast())
	return Bounds{MinLng: sw.Lng, MinLat: sw.Lat, MaxLng: ne.Lng, MaxLat: ne.Lat}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
