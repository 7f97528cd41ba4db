package mercator

import (
	"fmt"
	"strings"
)

// TileToQuadKey encodes a TMS tile as a Microsoft QuadKey.
func (e *Engine) TileToQuadKey(t Tile) string {
	return t.QuadKey()
}

// QuadKey encodes the tile as a Microsoft QuadKey.
// Zoom 0 has no QuadKey and yields the empty string.
func (t Tile) QuadKey() string {
	if t.Zoom == 0 {
		return ""
	}
	g := t.Google()

	var sb strings.Builder
	sb.Grow(t.Zoom)
	for i := t.Zoom; i > 0; i-- {
		digit := byte('0')
		mask := 1 << (i - 1)
		if g.X&mask != 0 {
			digit++
		}
		if g.Y&mask != 0 {
			digit += 2
		}
		sb.WriteByte(digit)
	}
	return sb.String()
}

// GoogleToQuadKey encodes a Google tile as a QuadKey.
func (e *Engine) GoogleToQuadKey(g Google) string {
	return g.TMS().QuadKey()
}

// QuadKeyToGoogle decodes a QuadKey. The zoom is the key length.
func (e *Engine) QuadKeyToGoogle(quadkey string) (Google, error) {
	zoom := len(quadkey)
	if zoom > MaxZoom {
		return Google{}, newValidationError("quadkey", quadkey, "len <= 23", "[quadkey] must not be longer than 23 digits")
	}

	var x, y int
	for i := zoom; i > 0; i-- {
		mask := 1 << (i - 1)
		switch c := quadkey[zoom-i]; c {
		case '0':
		case '1':
			x |= mask
		case '2':
			y |= mask
		case '3':
			x |= mask
			y |= mask
		default:
			return Google{}, fmt.Errorf("%w: %q at position %d", ErrInvalidQuadKey, c, zoom-i)
		}
	}
	return Google{X: x, Y: y, Zoom: zoom}, nil
}

// QuadKeyToTile decodes a QuadKey into a TMS tile.
func (e *Engine) QuadKeyToTile(quadkey string) (Tile, error) {
	g, err := e.QuadKeyToGoogle(quadkey)
	if err != nil {
		return Tile{}, err
	}
	return e.GoogleToTile(g), nil
}
