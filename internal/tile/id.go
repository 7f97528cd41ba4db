package tile

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingField is returned when a tile identifier lacks one of its fields.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidID is returned for identifiers that are not valid encodings.
	ErrInvalidID = errors.New("invalid tile id")
)

// IDFields are the components a tile identifier is derived from.
// Column, Row and Zoom are TMS values; negative values count as absent.
type IDFields struct {
	Scheme string
	Column int
	Row    int
	Zoom   int
}

// EncodeID derives the deterministic identifier of a tile: the standard
// base64 encoding of "zoom_level=Z;tile_column=C;tile_row=R;scheme=S".
func EncodeID(f IDFields) (string, error) {
	switch {
	case f.Scheme == "":
		return "", fmt.Errorf("%w: scheme", ErrMissingField)
	case f.Zoom < 0:
		return "", fmt.Errorf("%w: zoom_level", ErrMissingField)
	case f.Column < 0:
		return "", fmt.Errorf("%w: tile_column", ErrMissingField)
	case f.Row < 0:
		return "", fmt.Errorf("%w: tile_row", ErrMissingField)
	}

	raw := fmt.Sprintf("zoom_level=%d;tile_column=%d;tile_row=%d;scheme=%s", f.Zoom, f.Column, f.Row, f.Scheme)
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// DecodeID recovers the fields of an identifier produced by EncodeID.
func DecodeID(id string) (IDFields, error) {
	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return IDFields{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}

	// The scheme is last and may itself contain ';' or '='.
	values := make(map[string]string, 4)
	for _, part := range strings.SplitN(string(raw), ";", 4) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return IDFields{}, fmt.Errorf("%w: malformed segment %q", ErrInvalidID, part)
		}
		values[key] = value
	}

	var f IDFields
	for _, key := range []string{"zoom_level", "tile_column", "tile_row", "scheme"} {
		value, ok := values[key]
		if !ok || value == "" {
			return IDFields{}, fmt.Errorf("%w: %s", ErrMissingField, key)
		}
		if key == "scheme" {
			f.Scheme = value
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return IDFields{}, fmt.Errorf("%w: %s=%q", ErrInvalidID, key, value)
		}
		switch key {
		case "zoom_level":
			f.Zoom = n
		case "tile_column":
			f.Column = n
		case "tile_row":
			f.Row = n
		}
	}
	return f, nil
}
