package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/tilearchive/internal/archive"
	"github.com/MeKo-Tech/tilearchive/internal/fetch"
	"github.com/MeKo-Tech/tilearchive/internal/mbtiles"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Validate and write archive metadata",
	Long: `Validate the archive metadata and replace the metadata table of the archive.
No tiles are downloaded. With --dry-run the metadata is only validated and printed.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, archiveBindings)
	},
	RunE: runMetadata,
}

func init() {
	rootCmd.AddCommand(metadataCmd)

	addArchiveFlags(metadataCmd)
	metadataCmd.Flags().Bool("dry-run", false, "Validate and print the metadata without writing it")
}

func runMetadata(cmd *cobra.Command, args []string) error {
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

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		meta = meta.Normalize()
		if err := meta.Validate(); err != nil {
			return err
		}
		printMetadataRows(cmd, meta.Rows())
		return nil
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

	// The fetcher is never used when only metadata is written.
	writer, err := archive.New(store, fetch.NewHTTPFetcher(cfg.Fetcher(logger)), cfg.ArchiveWriter(), archive.WithLogger(logger))
	if err != nil {
		return err
	}
	written, err := writer.WriteMetadata(cmd.Context(), meta)
	if err != nil {
		return err
	}

	printMetadataRows(cmd, written.Rows())
	return nil
}

func printMetadataRows(cmd *cobra.Command, rows []mbtiles.MetadataRow) {
	out := cmd.OutOrStdout()
	for _, r := range rows {
		fmt.Fprintf(out, "%-12s %s\n", r.Name, r.Value)
	}
}
