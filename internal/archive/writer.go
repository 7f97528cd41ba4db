// Package archive turns archive metadata and a tile grid into a populated
// MBTiles archive: it writes metadata, builds the schema, downloads every
// missing tile and records the tile map.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MeKo-Tech/tilearchive/internal/grid"
	"github.com/MeKo-Tech/tilearchive/internal/mbtiles"
	"github.com/MeKo-Tech/tilearchive/internal/mercator"
	"github.com/MeKo-Tech/tilearchive/internal/metrics"
	"github.com/MeKo-Tech/tilearchive/internal/tile"
	"github.com/MeKo-Tech/tilearchive/internal/worker"
)

// Store is the persistence the writer needs. mbtiles.Writer implements it.
type Store interface {
	CreateTable(ctx context.Context, t mbtiles.Table) error
	EnsureUniqueIndex(ctx context.Context, idx mbtiles.Index) error
	CreateView(ctx context.Context, name, selectSQL string) error
	ReplaceMetadata(ctx context.Context, rows []mbtiles.MetadataRow) error
	ExistingTileIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	InsertTiles(ctx context.Context, records []mbtiles.TileRecord) error
	InsertMap(ctx context.Context, rows []mbtiles.MapRow) error
}

// Fetcher downloads tile bytes. fetch.HTTPFetcher implements it.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Config tunes the download loop.
type Config struct {
	// BatchSize is the number of grid tiles checked and downloaded together (default: 500)
	BatchSize int
	// Workers is the number of parallel downloads per batch (default: 4)
	Workers int
	// MaxAttempts is the number of download rounds per batch before a tile is given up (default: 3)
	MaxAttempts int
	// MapBatchSize is the number of map rows written per transaction (default: 10000)
	MapBatchSize int
	// CacheSize is the number of recently stored tile ids kept in memory (default: 100000)
	CacheSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:    grid.DefaultBatchSize,
		Workers:      4,
		MaxAttempts:  3,
		MapBatchSize: 10000,
		CacheSize:    100000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.MapBatchSize <= 0 {
		c.MapBatchSize = def.MapBatchSize
	}
	if c.CacheSize <= 0 {
		c.CacheSize = def.CacheSize
	}
	return c
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(w *Writer) {
		if r != nil {
			w.metrics = r
		}
	}
}

// WithEngine sets the projection engine used to build grids.
func WithEngine(e *mercator.Engine) Option {
	return func(w *Writer) {
		if e != nil {
			w.engine = e
		}
	}
}

// WithProgress draws a progress bar on out while downloading.
func WithProgress(out io.Writer) Option {
	return func(w *Writer) {
		w.progressOut = out
	}
}

// Writer orchestrates building an archive. It is meant to be driven by a
// single caller; downloads inside a batch run in parallel.
type Writer struct {
	store       Store
	fetcher     Fetcher
	cfg         Config
	logger      *slog.Logger
	metrics     metrics.Recorder
	engine      *mercator.Engine
	progressOut io.Writer

	// Tile ids stored by this writer, checked before querying the store.
	recent *lru.Cache[string, struct{}]
}

// New creates a Writer.
func New(store Store, fetcher Fetcher, cfg Config, opts ...Option) (*Writer, error) {
	if store == nil {
		return nil, errors.New("archive: store is required")
	}
	if fetcher == nil {
		return nil, errors.New("archive: fetcher is required")
	}

	w := &Writer{
		store:   store,
		fetcher: fetcher,
		cfg:     cfg.withDefaults(),
		logger:  slog.Default(),
		metrics: metrics.NoOp{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.engine == nil {
		w.engine = mercator.New(mercator.WithLogger(w.logger))
	}

	recent, err := lru.New[string, struct{}](w.cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tile id cache: %w", err)
	}
	w.recent = recent
	return w, nil
}

// Config returns the effective configuration.
func (w *Writer) Config() Config {
	return w.cfg
}

// WriteMetadata normalizes and validates meta, then replaces the metadata
// rows of the archive. It returns the metadata as written.
func (w *Writer) WriteMetadata(ctx context.Context, meta mbtiles.Metadata) (mbtiles.Metadata, error) {
	meta = meta.Normalize()
	if err := meta.Validate(); err != nil {
		w.logger.Error("Invalid metadata", "error", err)
		return meta, err
	}

	if err := w.store.CreateTable(ctx, mbtiles.MetadataTable); err != nil {
		return meta, err
	}
	if err := w.store.ReplaceMetadata(ctx, meta.Rows()); err != nil {
		return meta, fmt.Errorf("failed to write metadata: %w", err)
	}

	w.logger.Info("Metadata written", "name", meta.Name, "bounds", meta.Bounds.String(), "center", meta.Center.String())
	return meta, nil
}

// BuildIndexes creates the archive tables, their unique indexes and the
// tiles view. Existing data is kept.
func (w *Writer) BuildIndexes(ctx context.Context) error {
	for _, t := range mbtiles.Tables() {
		if err := w.store.CreateTable(ctx, t); err != nil {
			return err
		}
	}
	for _, idx := range mbtiles.Indexes() {
		if err := w.store.EnsureUniqueIndex(ctx, idx); err != nil {
			return err
		}
	}
	if err := w.store.CreateView(ctx, mbtiles.TilesView, mbtiles.TilesViewSQL); err != nil {
		return err
	}

	w.logger.Debug("Indexes created")
	return nil
}

// Save builds the whole archive for meta: metadata, indexes, downloads and
// the tile map. Metadata and grid validation run before anything is written.
func (w *Writer) Save(ctx context.Context, meta mbtiles.Metadata) (Summary, error) {
	meta = meta.Normalize()
	if err := meta.Validate(); err != nil {
		w.logger.Error("Invalid metadata", "error", err)
		return Summary{}, err
	}
	g, err := grid.New(grid.Config{
		Bounds:  meta.Bounds,
		MinZoom: meta.MinZoom,
		MaxZoom: meta.MaxZoom,
		Scheme:  meta.Scheme,
	}, grid.WithEngine(w.engine))
	if err != nil {
		return Summary{}, err
	}

	if _, err := w.WriteMetadata(ctx, meta); err != nil {
		return Summary{}, err
	}
	if err := w.BuildIndexes(ctx); err != nil {
		return Summary{}, err
	}

	summary, err := w.Download(ctx, g)
	if err != nil {
		return summary, err
	}
	if err := w.Map(ctx, g); err != nil {
		return summary, err
	}

	w.logger.Info("Archive saved", "summary", summary.String())
	return summary, nil
}

// Download fetches and stores every tile of g that is not yet in the
// archive, batch by batch. Per-tile failures are counted, not returned.
func (w *Writer) Download(ctx context.Context, g *grid.Grid) (Summary, error) {
	start := time.Now()
	progress := worker.NewProgressWriter(g.Count(), w.progressOut)
	defer progress.Done()

	w.logger.Info("Download started", "tiles", g.Count(), "workers", w.cfg.Workers, "batch_size", w.cfg.BatchSize)

	var total Summary
	for batch := range g.Batches(w.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			total.Elapsed = time.Since(start)
			w.logger.Warn("Download cancelled", "progress", progress.Summary())
			return total, err
		}

		s, err := w.downloadBatch(ctx, batch, progress)
		total = total.Add(s)
		if err != nil {
			total.Elapsed = time.Since(start)
			if ctx.Err() != nil {
				w.logger.Warn("Download cancelled", "progress", progress.Summary())
			}
			return total, err
		}
	}

	total.Elapsed = time.Since(start)
	w.logger.Info("Download finished", "progress", progress.Summary())
	return total, nil
}

// DownloadAndStore fetches and stores the tiles of one batch that are not
// yet in the archive.
func (w *Writer) DownloadAndStore(ctx context.Context, tiles []tile.Tile) (Summary, error) {
	start := time.Now()
	s, err := w.downloadBatch(ctx, tiles, worker.NewProgressWriter(len(tiles), nil))
	s.Elapsed = time.Since(start)
	return s, err
}

func (w *Writer) downloadBatch(ctx context.Context, tiles []tile.Tile, progress *worker.Progress) (Summary, error) {
	summary := Summary{Total: len(tiles)}
	w.metrics.IncBatches()

	remaining, err := w.missing(ctx, tiles)
	if err != nil {
		return summary, err
	}
	summary.Skipped = len(tiles) - len(remaining)
	progress.Skipped(summary.Skipped)
	w.metrics.AddSkipped(summary.Skipped)

	pool := worker.New(worker.Config{
		Workers: w.cfg.Workers,
		Fetcher: w.fetcher,
		OnProgress: func(r worker.Result) {
			w.metrics.ObserveFetch(r.Err == nil, len(r.Data), r.Elapsed)
		},
	})

	for attempt := 1; attempt <= w.cfg.MaxAttempts && len(remaining) > 0; attempt++ {
		if ctx.Err() != nil {
			break
		}

		tasks := make([]worker.Task, len(remaining))
		for i, t := range remaining {
			tasks[i] = worker.NewTask(t)
		}

		var records []mbtiles.TileRecord
		var retry []tile.Tile
		var size int64
		for _, r := range pool.Run(ctx, tasks) {
			t := r.Task.Tile
			if r.Err != nil {
				// Tasks skipped after cancellation carry ctx.Err().
				if ctx.Err() == nil || !errors.Is(r.Err, ctx.Err()) {
					w.logger.Warn("Tile download failed", "tile", t.String(), "url", r.Task.URL, "attempt", attempt, "error", r.Err)
				}
				retry = append(retry, t)
				continue
			}
			w.logger.Debug("Downloaded tile", "tile", t.String(), "url", r.Task.URL, "size", humanSize(len(r.Data)), "elapsed", r.Elapsed)
			records = append(records, mbtiles.TileRecord{
				MapRow: mbtiles.MapRow{TileID: t.ID, Zoom: t.Zoom, Column: t.Column, Row: t.Row},
				Data:   r.Data,
			})
			size += int64(len(r.Data))
		}

		// Fetched tiles are stored even when ctx was cancelled meanwhile.
		if err := w.store.InsertTiles(context.WithoutCancel(ctx), records); err != nil {
			return summary, fmt.Errorf("failed to store tiles: %w", err)
		}
		for _, rec := range records {
			w.recent.Add(rec.TileID, struct{}{})
		}
		summary.Downloaded += len(records)
		summary.Bytes += size
		progress.Downloaded(len(records))
		w.metrics.AddStored(len(records))

		remaining = retry
	}

	if err := ctx.Err(); err != nil {
		w.logger.Info("Batch interrupted", "stored", summary.Downloaded, "remaining", len(remaining))
		return summary, err
	}

	for _, t := range remaining {
		w.logger.Error("Giving up on tile", "tile", t.String(), "attempts", w.cfg.MaxAttempts)
	}
	summary.Failed = len(remaining)
	progress.Failed(summary.Failed)
	return summary, nil
}

// missing returns the tiles whose id is neither in the recent cache nor in
// the store.
func (w *Writer) missing(ctx context.Context, tiles []tile.Tile) ([]tile.Tile, error) {
	unknown := make([]string, 0, len(tiles))
	for _, t := range tiles {
		if !w.recent.Contains(t.ID) {
			unknown = append(unknown, t.ID)
		}
	}

	existing := map[string]struct{}{}
	if len(unknown) > 0 {
		var err error
		existing, err = w.store.ExistingTileIDs(ctx, unknown)
		if err != nil {
			return nil, fmt.Errorf("failed to look up stored tiles: %w", err)
		}
	}

	remaining := make([]tile.Tile, 0, len(unknown))
	seen := make(map[string]struct{}, len(unknown))
	for _, t := range tiles {
		if w.recent.Contains(t.ID) {
			continue
		}
		if _, ok := existing[t.ID]; ok {
			w.recent.Add(t.ID, struct{}{})
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		remaining = append(remaining, t)
	}
	return remaining, nil
}

// Map records every tile of g in the map table. Rows that already exist are
// kept.
func (w *Writer) Map(ctx context.Context, g *grid.Grid) error {
	w.logger.Info("Map started", "tiles", g.Count())

	written := 0
	for batch := range g.Batches(w.cfg.MapBatchSize) {
		rows := make([]mbtiles.MapRow, len(batch))
		for i, t := range batch {
			rows[i] = mbtiles.MapRow{TileID: t.ID, Zoom: t.Zoom, Column: t.Column, Row: t.Row}
		}
		if err := w.store.InsertMap(ctx, rows); err != nil {
			return fmt.Errorf("failed to write map: %w", err)
		}
		written += len(rows)
	}

	w.logger.Info("Map finished", "tiles", written)
	return nil
}
