package mbtiles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.mbtiles")
	w, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open writer: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	if err := createArchive(context.Background(), w); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return w
}

func createArchive(ctx context.Context, w *Writer) error {
	for _, table := range Tables() {
		if err := w.CreateTable(ctx, table); err != nil {
			return err
		}
	}
	for _, idx := range Indexes() {
		if err := w.EnsureUniqueIndex(ctx, idx); err != nil {
			return err
		}
	}
	return w.CreateView(ctx, TilesView, TilesViewSQL)
}

func record(id string, z, x, y int, data string) TileRecord {
	return TileRecord{MapRow: MapRow{TileID: id, Zoom: z, Column: x, Row: y}, Data: []byte(data)}
}

func TestWriter_Open(t *testing.T) {
	w := newTestWriter(t)

	if _, err := os.Stat(w.Path()); os.IsNotExist(err) {
		t.Fatal("Database file was not created")
	}

	for _, name := range []string{"metadata", "map", "images", "tiles"} {
		var count int
		err := w.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = ?", name).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to query schema: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected %s to exist, got count=%d", name, count)
		}
	}

	var indexes int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name IN ('metadata_name', 'map_tile_id', 'map_tile', 'images_tile_id')").Scan(&indexes); err != nil {
		t.Fatalf("Failed to query indexes: %v", err)
	}
	if indexes != 4 {
		t.Errorf("Expected 4 unique indexes, got %d", indexes)
	}
}

func TestWriter_SchemaIdempotent(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	if err := w.InsertTiles(ctx, []TileRecord{record("a", 1, 0, 0, "data")}); err != nil {
		t.Fatalf("Failed to insert tile: %v", err)
	}
	if err := createArchive(ctx, w); err != nil {
		t.Fatalf("Re-creating schema failed: %v", err)
	}

	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&count); err != nil {
		t.Fatalf("Failed to count tiles: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected existing tile to survive, got %d tiles", count)
	}
}

func TestWriter_ReplaceMetadata(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	if err := w.ReplaceMetadata(ctx, []MetadataRow{{"name", "first"}, {"format", "png"}}); err != nil {
		t.Fatalf("Failed to write metadata: %v", err)
	}
	if err := w.ReplaceMetadata(ctx, []MetadataRow{{"name", "second"}}); err != nil {
		t.Fatalf("Failed to rewrite metadata: %v", err)
	}

	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM metadata").Scan(&count); err != nil {
		t.Fatalf("Failed to count metadata: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected old metadata to be cleared, got %d rows", count)
	}

	var name string
	if err := w.db.QueryRow("SELECT value FROM metadata WHERE name = 'name'").Scan(&name); err != nil {
		t.Fatalf("Failed to read name: %v", err)
	}
	if name != "second" {
		t.Errorf("Expected name=second, got %q", name)
	}

	err := w.ReplaceMetadata(ctx, []MetadataRow{{"name", "a"}, {"name", "b"}})
	if err == nil {
		t.Error("Expected duplicate metadata names to fail")
	}
}

func TestWriter_InsertTiles(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	records := []TileRecord{
		record("a", 13, 4317, 5499, "tile a"),
		record("b", 13, 4318, 5499, "tile b"),
		record("c", 14, 8634, 10998, "tile c"),
	}
	if err := w.InsertTiles(ctx, records); err != nil {
		t.Fatalf("Failed to insert tiles: %v", err)
	}

	var data []byte
	err := w.db.QueryRow("SELECT tile_data FROM tiles WHERE zoom_level=13 AND tile_column=4318 AND tile_row=5499").Scan(&data)
	if err != nil {
		t.Fatalf("Failed to query tile: %v", err)
	}
	if string(data) != "tile b" {
		t.Errorf("Tile data mismatch: got %q", data)
	}

	// Replacing a tile keeps a single row.
	if err := w.InsertTiles(ctx, []TileRecord{record("a", 13, 4317, 5499, "tile a v2")}); err != nil {
		t.Fatalf("Failed to replace tile: %v", err)
	}
	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&count); err != nil {
		t.Fatalf("Failed to count images: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 images, got %d", count)
	}

	if err := w.InsertTiles(ctx, nil); err != nil {
		t.Errorf("Empty insert should be a no-op: %v", err)
	}
}

func TestWriter_ExistingTileIDs(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	var records []TileRecord
	var ids []string
	for i := range 1200 {
		id := fmt.Sprintf("tile-%04d", i)
		ids = append(ids, id)
		if i%2 == 0 {
			records = append(records, record(id, 10, i, 0, "x"))
		}
	}
	if err := w.InsertTiles(ctx, records); err != nil {
		t.Fatalf("Failed to insert tiles: %v", err)
	}

	found, err := w.ExistingTileIDs(ctx, ids)
	if err != nil {
		t.Fatalf("ExistingTileIDs failed: %v", err)
	}
	if len(found) != 600 {
		t.Fatalf("Expected 600 existing ids, got %d", len(found))
	}
	if _, ok := found[ids[0]]; !ok {
		t.Error("Expected first id to exist")
	}
	if _, ok := found[ids[1]]; ok {
		t.Error("Expected second id to be missing")
	}

	empty, err := w.ExistingTileIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty result, got %v, %v", empty, err)
	}
}

func TestWriter_InsertMapKeepsExisting(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	rows := []MapRow{{TileID: "a", Zoom: 1, Column: 0, Row: 0}, {TileID: "b", Zoom: 1, Column: 1, Row: 0}}
	if err := w.InsertMap(ctx, rows); err != nil {
		t.Fatalf("Failed to insert map: %v", err)
	}
	if err := w.InsertMap(ctx, rows); err != nil {
		t.Fatalf("Failed to re-insert map: %v", err)
	}

	var count int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM map").Scan(&count); err != nil {
		t.Fatalf("Failed to count map rows: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 map rows, got %d", count)
	}

	// Map rows without images do not appear in the tiles view.
	if err := w.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&count); err != nil {
		t.Fatalf("Failed to count tiles: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 tiles, got %d", count)
	}
}

func TestWriter_ContextCanceled(t *testing.T) {
	w := newTestWriter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.InsertTiles(ctx, []TileRecord{record("a", 1, 0, 0, "x")}); err == nil {
		t.Error("Expected canceled context to fail the insert")
	}
}
