// Package fetch downloads tile bytes over HTTP with per-request timeouts and
// bounded retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError carries the HTTP status of a failed fetch.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Config configures an HTTPFetcher.
type Config struct {
	// Timeout bounds a single request attempt (default: 30s)
	Timeout time.Duration
	// Retries is the number of extra attempts for 5xx and transport errors (default: 2)
	Retries int
	// Backoff is multiplied by attempt² before each retry (default: 1s)
	Backoff time.Duration
	// UserAgent is sent with every request
	UserAgent string
	// MaxConnsPerHost limits parallel connections to one tile server (default: 8)
	MaxConnsPerHost int
	// SizeWarningThreshold logs a warning for tiles larger than this (default: 5MB)
	SizeWarningThreshold int64
	// Logger for fetch operations
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:              30 * time.Second,
		Retries:              2,
		Backoff:              time.Second,
		UserAgent:            "tilearchive/1.0",
		MaxConnsPerHost:      8,
		SizeWarningThreshold: 5 * 1024 * 1024,
		Logger:               slog.Default(),
	}
}

// Stats is a snapshot of fetcher counters.
type Stats struct {
	Requests  int64 `json:"requests"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Retries   int64 `json:"retries"`
	Bytes     int64 `json:"bytes"`
}

// HTTPFetcher fetches tiles from HTTP tile servers. It is safe for
// concurrent use.
type HTTPFetcher struct {
	client *http.Client
	cfg    Config

	requests  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	retries   atomic.Int64
	bytes     atomic.Int64
}

// NewHTTPFetcher creates a fetcher. Zero Retries and Backoff are kept as
// given; other zero fields take their defaults.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.SizeWarningThreshold <= 0 {
		cfg.SizeWarningThreshold = def.SizeWarningThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxConnsPerHost * 2,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{Transport: transport},
		cfg:    cfg,
	}
}

// FetchBytes downloads url, retrying 5xx responses and transport errors.
// 4xx responses fail immediately.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= f.cfg.Retries; attempt++ {
		if attempt > 0 {
			f.retries.Add(1)
			delay := time.Duration(attempt*attempt) * f.cfg.Backoff
			f.cfg.Logger.Debug("Retrying tile fetch", "url", url, "attempt", attempt, "delay", delay, "error", lastErr)
			if err := sleep(ctx, delay); err != nil {
				break
			}
		}

		data, err := f.fetchOnce(ctx, url)
		if err == nil {
			f.succeeded.Add(1)
			f.bytes.Add(int64(len(data)))
			if int64(len(data)) > f.cfg.SizeWarningThreshold {
				f.cfg.Logger.Warn("Large tile", "url", url, "size", humanize.Bytes(uint64(len(data))))
			}
			return data, nil
		}

		lastErr = err
		if !shouldRetry(ctx, err) {
			break
		}
	}

	f.failed.Add(1)
	return nil, fmt.Errorf("failed to fetch %s: %w", url, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	f.requests.Add(1)

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// Stats returns the current counters.
func (f *HTTPFetcher) Stats() Stats {
	return Stats{
		Requests:  f.requests.Load(),
		Succeeded: f.succeeded.Load(),
		Failed:    f.failed.Load(),
		Retries:   f.retries.Load(),
		Bytes:     f.bytes.Load(),
	}
}

// shouldRetry reports whether a failed attempt is worth repeating.
func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	// Per-attempt timeouts and connection errors.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
