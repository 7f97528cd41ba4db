package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/tilearchive/internal/archive"
	"github.com/MeKo-Tech/tilearchive/internal/fetch"
	"github.com/MeKo-Tech/tilearchive/internal/mbtiles"
	"github.com/MeKo-Tech/tilearchive/internal/metrics"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Download tiles into an MBTiles archive",
	Long: `Write the archive metadata, create the tables and indexes, download every
tile of the grid that is not yet stored and record the tile map.

Running save again on the same archive only downloads the missing tiles.`,
	Example: `  tilearchive save -o ottawa.mbtiles --name Ottawa --description "City of Ottawa" \
    --bounds -75.1,44.9,-74.9,45.1 --min-zoom 10 --max-zoom 13 \
    --url "https://{switch:a,b,c}.tile.example.com/{z}/{x}/{y}.png"`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, slices.Concat(archiveBindings, saveBindings))
	},
	RunE: runSave,
}

var saveBindings = []flagBinding{
	{"archive.batch_size", "batch-size"},
	{"download.workers", "workers"},
	{"download.timeout", "timeout"},
	{"download.retries", "retries"},
	{"download.max_attempts", "max-attempts"},
	{"download.user_agent", "user-agent"},
	{"download.progress", "progress"},
	{"metrics.file", "metrics-file"},
	{"save.allow_failures", "allow-failures"},
}

func init() {
	rootCmd.AddCommand(saveCmd)

	addArchiveFlags(saveCmd)
	saveCmd.Flags().Int("batch-size", 0, "Number of tiles checked and downloaded per batch (default: 500)")
	saveCmd.Flags().IntP("workers", "w", 0, "Number of parallel downloads (default: 4)")
	saveCmd.Flags().Duration("timeout", 0, "Timeout per tile request (default: 30s)")
	saveCmd.Flags().Int("retries", 0, "Retries per request for 5xx and network errors (default: 2)")
	saveCmd.Flags().Int("max-attempts", 0, "Download rounds per batch before a tile is given up (default: 3)")
	saveCmd.Flags().String("user-agent", "", "User-Agent header sent to the tile server")
	saveCmd.Flags().Bool("progress", true, "Show progress bar while downloading")
	saveCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile when done")
	saveCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some tiles could not be downloaded")
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if logger == nil {
		initLogging(cfg)
	}
	meta, err := cfg.Metadata()
	if err != nil {
		return err
	}

	store, err := mbtiles.Open(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close archive", "path", cfg.Archive.Path, "error", err)
		}
	}()

	fetcher := fetch.NewHTTPFetcher(cfg.Fetcher(logger))
	collector := metrics.NewCollector(cfg.Metrics.Namespace)

	opts := []archive.Option{archive.WithLogger(logger), archive.WithMetrics(collector)}
	if cfg.Download.Progress {
		opts = append(opts, archive.WithProgress(cmd.ErrOrStderr()))
	}
	writer, err := archive.New(store, fetcher, cfg.ArchiveWriter(), opts...)
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("Saving archive",
		"path", cfg.Archive.Path,
		"name", meta.Name,
		"zoom", fmt.Sprintf("%d-%d", meta.MinZoom, meta.MaxZoom),
		"workers", cfg.Download.Workers,
	)

	summary, saveErr := writer.Save(ctx, meta)

	if cfg.Metrics.File != "" {
		if err := collector.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.Error("Failed to write metrics", "path", cfg.Metrics.File, "error", err)
		}
	}
	stats := fetcher.Stats()
	logger.Debug("Fetch stats",
		"requests", stats.Requests,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"retries", stats.Retries,
	)

	if saveErr != nil {
		return saveErr
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary.String())

	if summary.Failed > 0 {
		if viper.GetBool("save.allow_failures") {
			logger.Warn("Some tiles failed to download, but continuing due to --allow-failures flag", "failed_count", summary.Failed)
			return nil
		}
		return fmt.Errorf("%d of %d tiles failed to download (run save again to retry)", summary.Failed, summary.Total)
	}
	return nil
}
