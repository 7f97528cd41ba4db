package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name   string
		scheme string
		want   string
	}{
		{"zoom", "http://a.tile.osm.org/{zoom}/{x}/{y}.png", "http://a.tile.osm.org/13/2389/2946.png"},
		{"z", "https://tiles.example.com/{z}/{x}/{y}.jpg", "https://tiles.example.com/13/2389/2946.jpg"},
		{"quadkey", "http://ecn.t0.tiles.virtualearth.net/tiles/a{quadkey}.jpeg?g=587", "http://ecn.t0.tiles.virtualearth.net/tiles/a0302321010121.jpeg?g=587"},
		{"no placeholders", "http://static.example.com/tile.png", "http://static.example.com/tile.png"},
		{"first occurrence only", "http://x/{x}/{x}", "http://x/2389/{x}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(tt.scheme, 2389, 2946, 13, "0302321010121"))
		})
	}
}

func TestResolveSwitch(t *testing.T) {
	seen := map[string]int{}
	for range 300 {
		url := ResolveSwitch("http://tile-{switch:a,b,c}.openstreetmap.fr/hot/1/0/0.png")
		seen[url]++
	}

	assert.Len(t, seen, 3, "every alternative should eventually be chosen")
	for _, sub := range []string{"a", "b", "c"} {
		assert.Contains(t, seen, "http://tile-"+sub+".openstreetmap.fr/hot/1/0/0.png")
	}
}

func TestResolveSwitchCaseInsensitive(t *testing.T) {
	url := ResolveSwitch("http://{SWITCH:Mt0}.google.com/vt")
	assert.Equal(t, "http://Mt0.google.com/vt", url)
}

func TestResolveSwitchAbsent(t *testing.T) {
	url := "http://tile.openstreetmap.org/1/0/0.png"
	assert.Equal(t, url, ResolveSwitch(url))
}
