package mercator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixtureLatLng = LatLng{Lat: 45, Lng: -75}
	fixtureMeters = Meters{MX: -8348961.809495518, MY: 5621521.486192067, Zoom: 13}
	fixturePixels = Pixels{PX: 611669.3333333334, PY: 1342753.919383204, Zoom: 13}
	fixtureTile   = Tile{TX: 2389, TY: 5245, Zoom: 13}
	fixtureGoogle = Google{X: 2389, Y: 2946, Zoom: 13}
	fixtureQuad   = "0302321010121"

	fixtureMeterBounds = [4]float64{-8350592.466098936, 5620873.31197872, -8345700.496288683, 5625765.281788971}
	fixtureLatLngBounds = Bounds{
		MinLng: -75.01464843750001, MinLat: 44.99588261816546,
		MaxLng: -74.97070312499999, MaxLat: 45.02695045318546,
	}
)

// fiveDigits compares floats to five significant digits.
var fiveDigits = cmpopts.EquateApprox(1e-5, 0)

func TestEngineDefaults(t *testing.T) {
	e := New()
	assert.Equal(t, 256, e.TileSize())
	assert.InDelta(t, 20037508.342789244, e.OriginShift(), 1e-9)
	assert.InDelta(t, 156543.03392804097, e.Resolution(0), 1e-9)
	assert.InDelta(t, 19.109257071294063, e.Resolution(13), 1e-12)

	e512 := New(WithTileSize(512))
	assert.InDelta(t, e.Resolution(1), e512.Resolution(0), 1e-9)
}

func TestLatLngToMeters(t *testing.T) {
	e := New()
	m, err := e.LatLngToMeters(fixtureLatLng)
	require.NoError(t, err)

	assert.Equal(t, fixtureMeters.MX, m.MX)
	assert.InDelta(t, fixtureMeters.MY, m.MY, 1e-8)
}

func TestMetersToLatLng(t *testing.T) {
	e := New()
	p := e.MetersToLatLng(fixtureMeters)

	assert.InDelta(t, fixtureLatLng.Lat, p.Lat, 1e-12)
	assert.InDelta(t, fixtureLatLng.Lng, p.Lng, 1e-12)
	assert.Equal(t, 13, p.Zoom)
}

func TestMetersToPixels(t *testing.T) {
	e := New()
	p := e.MetersToPixels(fixtureMeters)

	assert.InDelta(t, fixturePixels.PX, p.PX, 1e-9)
	assert.InDelta(t, fixturePixels.PY, p.PY, 1e-9)
	assert.Equal(t, 13, p.Zoom)
}

func TestPixelsToTile(t *testing.T) {
	e := New()
	assert.Equal(t, fixtureTile, e.PixelsToTile(fixturePixels))
	assert.Equal(t, fixtureTile, e.MetersToTile(fixtureMeters))
}

func TestPixelsToTileClampsNegative(t *testing.T) {
	e := New()
	got := e.PixelsToTile(Pixels{PX: 0, PY: 0, Zoom: 5})
	assert.Equal(t, Tile{TX: 0, TY: 0, Zoom: 5}, got)
}

func TestPixelsToTileZoomZero(t *testing.T) {
	e := New()
	assert.Equal(t, Tile{}, e.PixelsToTile(Pixels{PX: 200, PY: 100, Zoom: 0}))
}

func TestPixelsToMeters(t *testing.T) {
	e := New()
	m := e.PixelsToMeters(fixturePixels)

	if diff := cmp.Diff(fixtureMeters, m, fiveDigits); diff != "" {
		t.Errorf("PixelsToMeters() mismatch (-want +got):\n%s", diff)
	}
}

func TestTileBounds(t *testing.T) {
	e := New()
	got := e.TileBounds(fixtureTile)
	for i := range got {
		assert.InDelta(t, fixtureMeterBounds[i], got[i], 1e-6, "index %d", i)
	}
	assert.Equal(t, got, e.GoogleBounds(fixtureGoogle))
}

func TestTileLatLngBounds(t *testing.T) {
	e := New()
	for _, got := range []Bounds{e.TileLatLngBounds(fixtureTile), e.GoogleLatLngBounds(fixtureGoogle)} {
		want := fixtureLatLngBounds.Array()
		have := got.Array()
		for i := range have {
			assert.InDelta(t, want[i], have[i], 1e-9, "index %d", i)
		}
	}
}

func TestTileLatLngBoundsZoomZero(t *testing.T) {
	e := New()
	got := e.TileLatLngBounds(Tile{}).Array()
	want := [4]float64{-180, -85.0511287798, 180, 85.0511287798}
	for i := range got {
		assert.InDelta(t, want[i], got[i], 1e-9)
	}
}

func TestTileToGoogle(t *testing.T) {
	e := New()
	assert.Equal(t, fixtureGoogle, e.TileToGoogle(fixtureTile))
	assert.Equal(t, fixtureTile, e.GoogleToTile(fixtureGoogle))
	assert.Equal(t, Google{}, e.TileToGoogle(Tile{}))
	assert.Equal(t, Tile{}, e.GoogleToTile(Google{}))
}

func TestLatLngToGoogle(t *testing.T) {
	e := New()
	g, err := e.LatLngToGoogle(LatLng{Lat: 45, Lng: -75, Zoom: 13})
	require.NoError(t, err)
	assert.Equal(t, fixtureGoogle, g)

	g, err = e.LatLngToGoogle(LatLng{Lat: 45, Lng: -75, Zoom: 0})
	require.NoError(t, err)
	assert.Equal(t, Google{}, g)
}

func TestLatLngToMetersRejectsInvalid(t *testing.T) {
	e := New()
	_, err := e.LatLngToMeters(LatLng{Lat: -220, Lng: 120})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestLatLngToMetersClampsPoles(t *testing.T) {
	e := New()
	m, err := e.LatLngToMeters(LatLng{Lat: 90, Lng: 0})
	require.NoError(t, err)
	assert.Equal(t, e.OriginShift(), m.MY)

	m, err = e.LatLngToMeters(LatLng{Lat: -90, Lng: 0})
	require.NoError(t, err)
	assert.Equal(t, -e.OriginShift(), m.MY)
}

func TestPixelsFloors(t *testing.T) {
	e := New()
	p := e.Pixels(10.7, 3.2, 4)
	assert.Equal(t, Pixels{PX: 10, PY: 3, Zoom: 4}, p)
}

func TestClampLatLng(t *testing.T) {
	e := New()
	assert.Equal(t, MaxMercatorLatitude, e.ClampLatLng(LatLng{Lat: 89, Lng: 10}).Lat)
	assert.Equal(t, -MaxMercatorLatitude, e.ClampLatLng(LatLng{Lat: -89, Lng: 10}).Lat)
	assert.Equal(t, 45.0, e.ClampLatLng(LatLng{Lat: 45, Lng: 10}).Lat)

	b := e.ClampBounds(Bounds{MinLng: -180, MinLat: -90, MaxLng: 180, MaxLat: 90})
	assert.Equal(t, Bounds{MinLng: -180, MinLat: -MaxMercatorLatitude, MaxLng: 180, MaxLat: MaxMercatorLatitude}, b)
}

func TestProjectionInverse(t *testing.T) {
	e := New()
	points := []LatLng{
		{Lat: 45, Lng: -75},
		{Lat: 52.3759, Lng: 9.732},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 64.1466, Lng: -21.9426},
		{Lat: 0.5, Lng: 0.5},
		{Lat: -84, Lng: -179.5},
	}
	for _, p := range points {
		t.Run(p.String(), func(t *testing.T) {
			m, err := e.LatLngToMeters(p)
			require.NoError(t, err)
			if diff := cmp.Diff(p, e.MetersToLatLng(m), fiveDigits); diff != "" {
				t.Errorf("lat/lng round trip mismatch (-want +got):\n%s", diff)
			}

			for _, zoom := range []int{1, 7, 13, 19} {
				m.Zoom = zoom
				back := e.PixelsToMeters(e.MetersToPixels(m))
				if diff := cmp.Diff(m, back, fiveDigits); diff != "" {
					t.Errorf("meters round trip at z%d mismatch (-want +got):\n%s", zoom, diff)
				}
			}
		})
	}
}

func TestGoogleRoundTrip(t *testing.T) {
	e := New()
	for zoom := 1; zoom <= MaxZoom; zoom++ {
		n := 1 << zoom
		for _, tile := range []Tile{
			{TX: 0, TY: 0, Zoom: zoom},
			{TX: n - 1, TY: n - 1, Zoom: zoom},
			{TX: n / 2, TY: n / 3, Zoom: zoom},
			{TX: n / 7, TY: n - 1 - n/5, Zoom: zoom},
		} {
			assert.Equal(t, tile, e.GoogleToTile(e.TileToGoogle(tile)), "zoom %d", zoom)

			qk := e.TileToQuadKey(tile)
			require.Len(t, qk, zoom)
			g, err := e.QuadKeyToGoogle(qk)
			require.NoError(t, err)
			assert.Equal(t, tile, e.GoogleToTile(g), "quadkey %s", qk)
		}
	}
}

// maptile from orb is used as an independent reference for tile math.
func TestAgainstOrbMaptile(t *testing.T) {
	e := New()
	points := []orb.Point{
		{-75, 45},
		{9.732, 52.3759},
		{151.2093, -33.8688},
		{-21.9426, 64.1466},
	}
	for _, pt := range points {
		for _, zoom := range []int{3, 9, 13, 17} {
			t.Run(fmt.Sprintf("%v_z%d", pt, zoom), func(t *testing.T) {
				g, err := e.LatLngToGoogle(LatLng{Lat: pt.Lat(), Lng: pt.Lon(), Zoom: zoom})
				require.NoError(t, err)

				ref := maptile.At(pt, maptile.Zoom(zoom))
				assert.Equal(t, int(ref.X), g.X)
				assert.Equal(t, int(ref.Y), g.Y)

				want := ref.Bound()
				got := e.GoogleLatLngBounds(g)
				assert.InDelta(t, want.Min.Lon(), got.MinLng, 1e-9)
				assert.InDelta(t, want.Min.Lat(), got.MinLat, 1e-9)
				assert.InDelta(t, want.Max.Lon(), got.MaxLng, 1e-9)
				assert.InDelta(t, want.Max.Lat(), got.MaxLat, 1e-9)
			})
		}
	}
}
