package mbtiles

import (
	"fmt"
	"strings"
)

// Column is one column of a table definition.
type Column struct {
	Name        string
	Type        string
	Constraints string
}

// Table is a table definition created with "IF NOT EXISTS" semantics.
type Table struct {
	Name    string
	Columns []Column
}

// CreateSQL returns the CREATE TABLE statement.
func (t Table) CreateSQL() string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def := quoteIdent(c.Name) + " " + c.Type
		if c.Constraints != "" {
			def += " " + c.Constraints
		}
		cols = append(cols, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(t.Name), strings.Join(cols, ", "))
}

// Index is a unique index definition.
type Index struct {
	Name    string
	Table   string
	Columns []string
}

// CreateSQL returns the CREATE UNIQUE INDEX statement.
func (i Index) CreateSQL() string {
	cols := make([]string, len(i.Columns))
	for n, c := range i.Columns {
		cols[n] = quoteIdent(c)
	}
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
		quoteIdent(i.Name), quoteIdent(i.Table), strings.Join(cols, ", "))
}

// MetadataRow is one key/value row of the metadata table.
type MetadataRow struct {
	Name  string
	Value string
}

// MapRow links a tile address (TMS row) to its image.
type MapRow struct {
	TileID string
	Zoom   int
	Column int
	Row    int
}

// TileRecord is a downloaded tile ready to be stored in images and map.
type TileRecord struct {
	MapRow
	Data []byte
}

// Archive layout.
var (
	MetadataTable = Table{Name: "metadata", Columns: []Column{
		{Name: "name", Type: "TEXT", Constraints: "PRIMARY KEY"},
		{Name: "value", Type: "TEXT", Constraints: "NOT NULL"},
	}}

	MapTable = Table{Name: "map", Columns: []Column{
		{Name: "tile_id", Type: "TEXT", Constraints: "PRIMARY KEY"},
		{Name: "zoom_level", Type: "INTEGER"},
		{Name: "tile_column", Type: "INTEGER"},
		{Name: "tile_row", Type: "INTEGER"},
	}}

	ImagesTable = Table{Name: "images", Columns: []Column{
		{Name: "tile_id", Type: "TEXT", Constraints: "PRIMARY KEY"},
		{Name: "tile_data", Type: "BLOB"},
	}}
)

// TilesView is the name of the view joining map and images.
const TilesView = "tiles"

// TilesViewSQL is the select statement behind TilesView.
const TilesViewSQL = `SELECT
	map.zoom_level AS zoom_level,
	map.tile_column AS tile_column,
	map.tile_row AS tile_row,
	images.tile_data AS tile_data
FROM map
JOIN images ON images.tile_id = map.tile_id`

// Tables returns the base tables of an archive.
func Tables() []Table {
	return []Table{MetadataTable, MapTable, ImagesTable}
}

// Indexes returns the uniqueness constraints of an archive.
func Indexes() []Index {
	return []Index{
		{Name: "metadata_name", Table: "metadata", Columns: []string{"name"}},
		{Name: "map_tile_id", Table: "map", Columns: []string{"tile_id"}},
		{Name: "map_tile", Table: "map", Columns: []string{"tile_row", "tile_column", "zoom_level"}},
		{Name: "images_tile_id", Table: "images", Columns: []string{"tile_id"}},
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
