package worker

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress tracks download progress across all batches of a grid and
// renders it as a progress bar when enabled. Skipped and abandoned tiles
// advance the bar like downloaded ones.
type Progress struct {
	startTime  time.Time
	bar        *progressbar.ProgressBar
	total      int
	downloaded int
	skipped    int
	failed     int
	mu         sync.Mutex
}

// NewProgressWriter creates a progress tracker drawing on w. A nil writer
// only counts.
func NewProgressWriter(total int, w io.Writer) *Progress {
	p := &Progress{total: total, startTime: time.Now()}
	if w != nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("tiles"),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
		)
	}
	return p
}

// Downloaded records n stored tiles.
func (p *Progress) Downloaded(n int) {
	p.add(n, &p.downloaded)
}

// Skipped records n tiles that were already in the archive.
func (p *Progress) Skipped(n int) {
	p.add(n, &p.skipped)
}

// Failed records n tiles that were given up on.
func (p *Progress) Failed(n int) {
	p.add(n, &p.failed)
}

func (p *Progress) add(n int, counter *int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	*counter += n
	p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

// Done finishes the bar.
func (p *Progress) Done() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Summary reports the counters with the elapsed time and download rate.
func (p *Progress) Summary() string {
	p.mu.Lock()
	downloaded, skipped, failed, total := p.downloaded, p.skipped, p.failed, p.total
	p.mu.Unlock()

	elapsed := time.Since(p.startTime)

	var rate float64
	if elapsed.Seconds() > 0 {
		rate = float64(downloaded) / elapsed.Seconds()
	}

	return fmt.Sprintf("Downloaded %d/%d tiles (%d skipped, %d failed) in %s (%.1f tiles/sec)",
		downloaded, total, skipped, failed, formatDuration(elapsed), rate)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, mins)
}
