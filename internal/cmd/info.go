package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/tilearchive/internal/mbtiles"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive.mbtiles>",
	Short: "Show metadata and tile counts of an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]

	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	r, err := mbtiles.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	counts, err := r.TileCounts()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file         %s (%s)\n", path, humanize.Bytes(uint64(st.Size())))
	printMetadataRows(cmd, meta.Rows())

	total := 0
	for _, c := range counts {
		fmt.Fprintf(out, "zoom %-7d %s tiles\n", c.Zoom, humanize.Comma(int64(c.Count)))
		total += c.Count
	}
	fmt.Fprintf(out, "total        %s tiles\n", humanize.Comma(int64(total)))
	return nil
}
