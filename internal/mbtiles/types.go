// Package mbtiles stores tiles in an MBTiles 1.1 style SQLite archive made of
// metadata, map and images tables joined by a tiles view.
package mbtiles

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/tilearchive/internal/mercator"
)

// Metadata defaults applied by Normalize.
const (
	DefaultVersion = "1.1.0"
	DefaultType    = "baselayer"
	DefaultFormat  = "png"
)

var (
	// ErrInvalidMetadata is returned when archive metadata fails validation.
	ErrInvalidMetadata = errors.New("invalid metadata")

	validTypes   = []string{"overlay", "baselayer"}
	validFormats = []string{"png", "jpg"}
)

// Center is the default view of an archive. Zoom is optional.
type Center struct {
	Lng  float64
	Lat  float64
	Zoom *int
}

// String returns "lng,lat" or "lng,lat,zoom".
func (c Center) String() string {
	return StringifyCenter(c)
}

// Metadata contains the MBTiles metadata fields.
type Metadata struct {
	Name        string // Human-readable tileset identifier
	Description string
	Attribution string
	Author      string
	Type        string // "baselayer" or "overlay"
	Format      string // "png" or "jpg"
	Version     string
	Scheme      string // URL template the tiles were downloaded from
	Bounds      *mercator.Bounds
	Center      *Center // Derived from Bounds when nil
	MinZoom     int
	MaxZoom     int
}

// Normalize fills Version, Type and Format with their defaults and derives
// Center from the bounds centroid at MinZoom when it is not set.
func (m Metadata) Normalize() Metadata {
	if m.Version == "" {
		m.Version = DefaultVersion
	}
	if m.Type == "" {
		m.Type = DefaultType
	}
	if m.Format == "" {
		m.Format = DefaultFormat
	}
	if m.Center == nil && m.Bounds != nil {
		c := m.Bounds.Center()
		zoom := m.MinZoom
		m.Center = &Center{Lng: c.Lng, Lat: c.Lat, Zoom: &zoom}
	}
	return m
}

// Validate checks required fields and enumerated values. The returned error
// names the offending field.
func (m Metadata) Validate() error {
	required := []struct {
		field string
		empty bool
	}{
		{"name", m.Name == ""},
		{"type", m.Type == ""},
		{"version", m.Version == ""},
		{"description", m.Description == ""},
		{"format", m.Format == ""},
		{"bounds", m.Bounds == nil},
	}
	for _, r := range required {
		if r.empty {
			return fmt.Errorf("%w: MBTiles.metadata <%s> is required", ErrInvalidMetadata, r.field)
		}
	}

	if !slices.Contains(validTypes, m.Type) {
		return fmt.Errorf("%w: MBTiles.metadata <type> must be [overlay or baselayer]", ErrInvalidMetadata)
	}
	if !slices.Contains(validFormats, m.Format) {
		return fmt.Errorf("%w: MBTiles.metadata <format> must be [png or jpg]", ErrInvalidMetadata)
	}

	if err := m.Bounds.Validate(); err != nil {
		return fmt.Errorf("%w: MBTiles.metadata <bounds>: %w", ErrInvalidMetadata, err)
	}
	for _, z := range []struct {
		field string
		zoom  int
	}{{"minzoom", m.MinZoom}, {"maxzoom", m.MaxZoom}} {
		if err := mercator.ValidateZoom(z.zoom); err != nil {
			return fmt.Errorf("%w: MBTiles.metadata <%s>: %w", ErrInvalidMetadata, z.field, err)
		}
	}
	if m.MinZoom > m.MaxZoom {
		return fmt.Errorf("%w: MBTiles.metadata <minzoom> cannot be greater than <maxzoom>", ErrInvalidMetadata)
	}
	if m.Center != nil {
		if err := validateCenter(*m.Center); err != nil {
			return fmt.Errorf("%w: MBTiles.metadata <center>: %w", ErrInvalidMetadata, err)
		}
	}
	return nil
}

// Rows flattens the metadata into key/value rows. Scheme and author are
// only written when set.
func (m Metadata) Rows() []MetadataRow {
	rows := []MetadataRow{
		{"name", m.Name},
		{"type", m.Type},
		{"version", m.Version},
		{"attribution", m.Attribution},
		{"description", m.Description},
	}
	if m.Bounds != nil {
		rows = append(rows, MetadataRow{"bounds", StringifyBounds(*m.Bounds)})
	}
	if m.Center != nil {
		rows = append(rows, MetadataRow{"center", StringifyCenter(*m.Center)})
	}
	rows = append(rows,
		MetadataRow{"minzoom", strconv.Itoa(m.MinZoom)},
		MetadataRow{"maxzoom", strconv.Itoa(m.MaxZoom)},
		MetadataRow{"format", m.Format},
	)
	if m.Scheme != "" {
		rows = append(rows, MetadataRow{"scheme", m.Scheme})
	}
	if m.Author != "" {
		rows = append(rows, MetadataRow{"author", m.Author})
	}
	return rows
}

// MetadataFromMap parses metadata rows read from an archive. Unknown keys are
// ignored. Both "minzoom" and the older "minZoom" spelling are accepted.
func MetadataFromMap(values map[string]string) (Metadata, error) {
	m := Metadata{
		Name:        values["name"],
		Description: values["description"],
		Attribution: values["attribution"],
		Author:      values["author"],
		Type:        values["type"],
		Format:      values["format"],
		Version:     values["version"],
		Scheme:      values["scheme"],
	}

	for _, z := range []struct {
		keys []string
		dst  *int
	}{
		{[]string{"minzoom", "minZoom"}, &m.MinZoom},
		{[]string{"maxzoom", "maxZoom"}, &m.MaxZoom},
	} {
		for _, key := range z.keys {
			v, ok := values[key]
			if !ok {
				continue
			}
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return Metadata{}, fmt.Errorf("failed to parse %s %q: %w", key, v, err)
			}
			*z.dst = i
			break
		}
	}

	if v, ok := values["bounds"]; ok && v != "" {
		b, err := ParseBounds(v)
		if err != nil {
			return Metadata{}, err
		}
		m.Bounds = &b
	}
	if v, ok := values["center"]; ok && v != "" {
		c, err := ParseCenter(v)
		if err != nil {
			return Metadata{}, err
		}
		m.Center = &c
	}
	return m, nil
}

// ParseBounds parses "minLng,minLat,maxLng,maxLat".
func ParseBounds(s string) (mercator.Bounds, error) {
	values, err := parseFloats(s)
	if err != nil {
		return mercator.Bounds{}, fmt.Errorf("[bounds] %w", err)
	}
	if len(values) != 4 {
		return mercator.Bounds{}, errors.New("[bounds] must have 4 numbers")
	}
	return mercator.NewBounds(values)
}

// StringifyBounds returns the comma-joined bounds.
func StringifyBounds(b mercator.Bounds) string {
	return b.String()
}

// ParseCenter parses "lng,lat" or "lng,lat,zoom".
func ParseCenter(s string) (Center, error) {
	values, err := parseFloats(s)
	if err != nil {
		return Center{}, fmt.Errorf("[center] %w", err)
	}
	if len(values) < 2 || len(values) > 3 {
		return Center{}, errors.New("[center] must have 2 or 3 numbers")
	}

	c := Center{Lng: values[0], Lat: values[1]}
	if len(values) == 3 {
		zoom := int(values[2])
		c.Zoom = &zoom
	}
	if err := validateCenter(c); err != nil {
		return Center{}, err
	}
	return c, nil
}

// StringifyCenter returns "lng,lat[,zoom]".
func StringifyCenter(c Center) string {
	parts := []string{
		strconv.FormatFloat(c.Lng, 'f', -1, 64),
		strconv.FormatFloat(c.Lat, 'f', -1, 64),
	}
	if c.Zoom != nil {
		parts = append(parts, strconv.Itoa(*c.Zoom))
	}
	return strings.Join(parts, ",")
}

func validateCenter(c Center) error {
	if c.Lat < mercator.MinLatitude || c.Lat > mercator.MaxLatitude {
		return errors.New("[y] must be within -90 to 90 degrees")
	}
	if c.Lng < mercator.MinLongitude || c.Lng > mercator.MaxLongitude {
		return errors.New("[x] must be within -180 to 180 degrees")
	}
	if c.Zoom != nil {
		return mercator.ValidateZoom(*c.Zoom)
	}
	return nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		values = append(values, f)
	}
	return values, nil
}
