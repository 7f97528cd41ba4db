package mbtiles

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrTileNotFound is returned by ReadTile for addresses missing from the archive.
var ErrTileNotFound = errors.New("tile not found")

// Reader reads tiles from an archive.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens an archive for reading.
func OpenReader(path string) (*Reader, error) {
	// Open in read-only mode with immutable flag
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// tiles is a view in archives written by Writer and a table in plain MBTiles files.
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?", TilesView).Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain a %s table or view", TilesView)
	}

	return &Reader{db: db, path: path}, nil
}

// Path returns the archive file path.
func (r *Reader) Path() string {
	return r.path
}

// ReadTile returns the stored bytes of a tile. Coordinates are in XYZ format
// and are converted to TMS internally.
func (r *Reader) ReadTile(z, x, y int) ([]byte, error) {
	tmsY := (1 << z) - 1 - y

	var data []byte
	err := r.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level=? AND tile_column=? AND tile_row=?",
		z, x, tmsY,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrTileNotFound, z, x, y)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tile: %w", err)
	}
	return data, nil
}

// Metadata reads the metadata rows.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	meta, err := MetadataFromMap(values)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return meta, nil
}

// ZoomCount is the number of stored tiles at one zoom level.
type ZoomCount struct {
	Zoom  int
	Count int
}

// TileCounts returns the number of tiles per zoom level in ascending order.
func (r *Reader) TileCounts() ([]ZoomCount, error) {
	rows, err := r.db.Query("SELECT zoom_level, COUNT(*) FROM tiles GROUP BY zoom_level ORDER BY zoom_level")
	if err != nil {
		return nil, fmt.Errorf("failed to count tiles: %w", err)
	}
	defer rows.Close()

	var counts []ZoomCount
	for rows.Next() {
		var zc ZoomCount
		if err := rows.Scan(&zc.Zoom, &zc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan tile count: %w", err)
		}
		counts = append(counts, zc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tile counts: %w", err)
	}
	return counts, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
