package mercator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileToQuadKey(t *testing.T) {
	e := New()
	tests := []struct {
		tile Tile
		want string
	}{
		{fixtureTile, fixtureQuad},
		{Tile{}, ""},
		{Tile{TX: 0, TY: 1, Zoom: 1}, "0"},
		{Tile{TX: 1, TY: 1, Zoom: 1}, "1"},
		{Tile{TX: 0, TY: 0, Zoom: 1}, "2"},
		{Tile{TX: 1, TY: 0, Zoom: 1}, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.tile.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, e.TileToQuadKey(tt.tile))
		})
	}

	assert.Equal(t, fixtureQuad, e.GoogleToQuadKey(fixtureGoogle))
}

func TestQuadKeyToGoogle(t *testing.T) {
	e := New()
	g, err := e.QuadKeyToGoogle(fixtureQuad)
	require.NoError(t, err)
	assert.Equal(t, fixtureGoogle, g)

	tile, err := e.QuadKeyToTile(fixtureQuad)
	require.NoError(t, err)
	assert.Equal(t, fixtureTile, tile)

	g, err = e.QuadKeyToGoogle("")
	require.NoError(t, err)
	assert.Equal(t, Google{}, g)
}

func TestQuadKeyInvalidDigit(t *testing.T) {
	e := New()
	for _, qk := range []string{"030486861", "4", "01a", "0-1"} {
		_, err := e.QuadKeyToTile(qk)
		require.Error(t, err, qk)
		assert.True(t, errors.Is(err, ErrInvalidQuadKey), qk)
		assert.Contains(t, err.Error(), "invalid quadkey digit")
	}
}

func TestQuadKeyTooLong(t *testing.T) {
	e := New()
	_, err := e.QuadKeyToGoogle("000000000000000000000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
