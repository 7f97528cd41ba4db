// Package metrics records download and storage activity of the archive
// writer.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics port used by the archive writer.
type Recorder interface {
	// ObserveFetch records one finished tile download.
	ObserveFetch(success bool, size int, duration time.Duration)

	// AddSkipped counts tiles already present in the archive.
	AddSkipped(n int)

	// AddStored counts tiles written to the archive.
	AddStored(n int)

	// IncBatches counts processed grid batches.
	IncBatches()
}

// NoOp is a Recorder that discards everything.
type NoOp struct{}

// ObserveFetch implements Recorder.
func (NoOp) ObserveFetch(_ bool, _ int, _ time.Duration) {}

// AddSkipped implements Recorder.
func (NoOp) AddSkipped(_ int) {}

// AddStored implements Recorder.
func (NoOp) AddStored(_ int) {}

// IncBatches implements Recorder.
func (NoOp) IncBatches() {}

// Collector implements Recorder using Prometheus.
type Collector struct {
	registry      *prometheus.Registry
	tilesFetched  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	tileBytes     prometheus.Counter
	tilesSkipped  prometheus.Counter
	tilesStored   prometheus.Counter
	batches       prometheus.Counter
}

// NewCollector creates a collector registered on a fresh registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "tilearchive"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		tilesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tiles_fetched_total",
				Help:      "Total number of tile downloads",
			},
			[]string{"status"},
		),

		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tile_fetch_duration_seconds",
				Help:      "Tile download duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		tileBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tile_bytes_total",
				Help:      "Total bytes of downloaded tiles",
			},
		),

		tilesSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tiles_skipped_total",
				Help:      "Tiles skipped because they were already stored",
			},
		),

		tilesStored: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tiles_stored_total",
				Help:      "Tiles written to the archive",
			},
		),

		batches: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Grid batches processed",
			},
		),
	}
}

// Registry returns the registry holding the collector's series.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveFetch implements Recorder.
func (c *Collector) ObserveFetch(success bool, size int, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	c.tilesFetched.WithLabelValues(status).Inc()
	c.fetchDuration.Observe(duration.Seconds())
	if success {
		c.tileBytes.Add(float64(size))
	}
}

// AddSkipped implements Recorder.
func (c *Collector) AddSkipped(n int) {
	c.tilesSkipped.Add(float64(n))
}

// AddStored implements Recorder.
func (c *Collector) AddStored(n int) {
	c.tilesStored.Add(float64(n))
}

// IncBatches implements Recorder.
func (c *Collector) IncBatches() {
	c.batches.Inc()
}

// WriteTextfile writes all series in the node exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
