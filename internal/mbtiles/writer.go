package mbtiles

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// maxQueryParams bounds the number of placeholders per IN query.
const maxQueryParams = 500

// Writer is the read/write SQLite store behind an archive. Writes are
// serialized and each bulk insert runs in a single transaction.
type Writer struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (or creates) the archive at path. The schema is created
// separately with CreateTable, EnsureUniqueIndex and CreateView.
func Open(path string) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps PRAGMAs and transactions on the same handle.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 50000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	return &Writer{db: db, path: path}, nil
}

// Path returns the archive file path.
func (w *Writer) Path() string {
	return w.path
}

// CreateTable creates t if it does not exist.
func (w *Writer) CreateTable(ctx context.Context, t Table) error {
	return w.exec(ctx, t.CreateSQL(), "create table "+t.Name)
}

// EnsureUniqueIndex creates idx if it does not exist.
func (w *Writer) EnsureUniqueIndex(ctx context.Context, idx Index) error {
	return w.exec(ctx, idx.CreateSQL(), "create index "+idx.Name)
}

// CreateView creates a view named name from selectSQL if it does not exist.
func (w *Writer) CreateView(ctx context.Context, name, selectSQL string) error {
	query := fmt.Sprintf("CREATE VIEW IF NOT EXISTS %s AS %s", quoteIdent(name), selectSQL)
	return w.exec(ctx, query, "create view "+name)
}

func (w *Writer) exec(ctx context.Context, query, what string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	return nil
}

// ReplaceMetadata clears the metadata table and writes rows.
func (w *Writer) ReplaceMetadata(ctx context.Context, rows []MetadataRow) error {
	return w.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM metadata"); err != nil {
			return fmt.Errorf("failed to clear metadata: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO metadata (name, value) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare metadata insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row.Name, row.Value); err != nil {
				return fmt.Errorf("failed to insert metadata %q: %w", row.Name, err)
			}
		}
		return nil
	})
}

// ExistingTileIDs returns the subset of ids already present in images.
func (w *Writer) ExistingTileIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	found := make(map[string]struct{})
	for start := 0; start < len(ids); start += maxQueryParams {
		chunk := ids[start:min(start+maxQueryParams, len(ids))]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		query := "SELECT tile_id FROM images WHERE tile_id IN (" +
			strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",") + ")"

		if err := w.collectIDs(ctx, query, args, found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (w *Writer) collectIDs(ctx context.Context, query string, args []any, found map[string]struct{}) error {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query tile ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan tile id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tile ids: %w", err)
	}
	return nil
}

// InsertTiles writes each record into images and map in one transaction.
// Existing rows with the same key are replaced.
func (w *Writer) InsertTiles(ctx context.Context, records []TileRecord) error {
	if len(records) == 0 {
		return nil
	}
	return w.inTx(ctx, func(tx *sql.Tx) error {
		images, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO images (tile_id, tile_data) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare images insert: %w", err)
		}
		defer images.Close()

		mapping, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO map (tile_id, zoom_level, tile_column, tile_row) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare map insert: %w", err)
		}
		defer mapping.Close()

		for _, r := range records {
			if _, err := images.ExecContext(ctx, r.TileID, r.Data); err != nil {
				return fmt.Errorf("failed to insert image %d/%d/%d: %w", r.Zoom, r.Column, r.Row, err)
			}
			if _, err := mapping.ExecContext(ctx, r.TileID, r.Zoom, r.Column, r.Row); err != nil {
				return fmt.Errorf("failed to insert map %d/%d/%d: %w", r.Zoom, r.Column, r.Row, err)
			}
		}
		return nil
	})
}

// InsertMap writes map rows in one transaction, keeping rows that already
// exist.
func (w *Writer) InsertMap(ctx context.Context, rows []MapRow) error {
	if len(rows) == 0 {
		return nil
	}
	return w.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO map (tile_id, zoom_level, tile_column, tile_row) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare map insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.TileID, r.Zoom, r.Column, r.Row); err != nil {
				return fmt.Errorf("failed to insert map %d/%d/%d: %w", r.Zoom, r.Column, r.Row, err)
			}
		}
		return nil
	})
}

func (w *Writer) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
