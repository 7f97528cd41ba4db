package archive

import (
	"context"
	"sync"

	"github.com/MeKo-Tech/tilearchive/internal/grid"
	"github.com/MeKo-Tech/tilearchive/internal/mbtiles"
	"github.com/MeKo-Tech/tilearchive/internal/tile"
)

// fakeStore keeps an archive in memory and records the calls it receives.
type fakeStore struct {
	mu        sync.Mutex
	calls     []string
	lookups   int
	metadata  map[string]string
	images    map[string][]byte
	mapRows   map[string]mbtiles.MapRow
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		metadata: map[string]string{},
		images:   map[string][]byte{},
		mapRows:  map[string]mbtiles.MapRow{},
	}
}

func (s *fakeStore) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeStore) CreateTable(_ context.Context, t mbtiles.Table) error {
	s.record("create table " + t.Name)
	return nil
}

func (s *fakeStore) EnsureUniqueIndex(_ context.Context, idx mbtiles.Index) error {
	s.record("create index " + idx.Name)
	return nil
}

func (s *fakeStore) CreateView(_ context.Context, name, _ string) error {
	s.record("create view " + name)
	return nil
}

func (s *fakeStore) ReplaceMetadata(_ context.Context, rows []mbtiles.MetadataRow) error {
	s.record("replace metadata")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = map[string]string{}
	for _, r := range rows {
		s.metadata[r.Name] = r.Value
	}
	return nil
}

func (s *fakeStore) ExistingTileIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	s.record("existing ids")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	found := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := s.images[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

func (s *fakeStore) InsertTiles(_ context.Context, records []mbtiles.TileRecord) error {
	s.record("insert tiles")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, r := range records {
		s.images[r.TileID] = r.Data
		s.mapRows[r.TileID] = r.MapRow
	}
	return nil
}

func (s *fakeStore) InsertMap(_ context.Context, rows []mbtiles.MapRow) error {
	s.record("insert map")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if _, ok := s.mapRows[r.TileID]; !ok {
			s.mapRows[r.TileID] = r
		}
	}
	return nil
}

func collectTiles(g *grid.Grid) []tile.Tile {
	var tiles []tile.Tile
	for t := range g.All() {
		tiles = append(tiles, t)
	}
	return tiles
}
