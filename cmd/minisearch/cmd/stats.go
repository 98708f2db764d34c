package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/output"
	"github.com/Aman-CERP/minisearch/pkg/minisearch"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show document, segment, and token counts for the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := minisearch.Open(indexDir, minisearch.DefaultConfig())
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			stats := idx.Stats()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("", "documents: %d", stats.DocCount)
			out.Statusf("", "segments:  %d", stats.SegmentCount)
			out.Statusf("", "tokens:    %d", stats.TokenCount)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
