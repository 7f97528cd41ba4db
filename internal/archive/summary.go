package archive

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Summary reports the outcome of a download run.
type Summary struct {
	Total      int // Tiles considered
	Skipped    int // Already in the archive
	Downloaded int
	Failed     int // Given up after all attempts
	Bytes      int64
	Elapsed    time.Duration
}

// Add returns the element-wise sum of s and o.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Total:      s.Total + o.Total,
		Skipped:    s.Skipped + o.Skipped,
		Downloaded: s.Downloaded + o.Downloaded,
		Failed:     s.Failed + o.Failed,
		Bytes:      s.Bytes + o.Bytes,
		Elapsed:    s.Elapsed + o.Elapsed,
	}
}

// OK reports whether every tile is now in the archive.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Skipped+s.Downloaded == s.Total
}

func (s Summary) String() string {
	return fmt.Sprintf("%d tiles: %d downloaded (%s), %d skipped, %d failed in %s",
		s.Total, s.Downloaded, humanSize(int(s.Bytes)), s.Skipped, s.Failed, s.Elapsed.Round(time.Millisecond))
}

func humanSize(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
