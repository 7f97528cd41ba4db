package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSlogAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug"}, &buf)

	logger.With("component", "archive").Info("Downloaded tile",
		"tile", "10/298/655",
		"size", 1024,
		"ok", true,
		"elapsed", 250*time.Millisecond,
		"error", errors.New("boom"),
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "Downloaded tile", line["message"])
	assert.Equal(t, "archive", line["component"])
	assert.Equal(t, "10/298/655", line["tile"])
	assert.Equal(t, 1024.0, line["size"])
	assert.Equal(t, true, line["ok"])
	assert.Equal(t, "boom", line["error"])
	assert.Contains(t, line, "elapsed")
	assert.Contains(t, line, "time")
}

func TestSlogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn"}, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("Latitude clamped")
	logger.Error("Giving up on tile")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestSlogGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{}, &buf)

	logger.WithGroup("grid").Info("Levels", "zoom", 4)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, 4.0, lines[0]["grid.zoom"])
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Console: true}, &buf)

	logger.Info("Archive saved", "tiles", 8)

	out := buf.String()
	assert.Contains(t, out, "Archive saved")
	assert.Contains(t, out, "tiles=")
}
