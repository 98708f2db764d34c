package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/catalog"
	"github.com/Aman-CERP/minisearch/internal/output"
	"github.com/Aman-CERP/minisearch/pkg/minisearch"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show health and size of the index at --dir",
		Long: `Display information about the current index including document,
segment, and token counts, and whether it is registered in the catalog
(it is registered when opened with 'minisearch serve').`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

type statusOutput struct {
	Dir          string `json:"dir"`
	DocCount     int    `json:"doc_count"`
	SegmentCount int    `json:"segment_count"`
	TokenCount   int    `json:"token_count"`
	Registered   bool   `json:"registered"`
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	idx, err := minisearch.Open(indexDir, minisearch.DefaultConfig())
	if err != nil {
		return fmt.Errorf("no index found at %s: %w", indexDir, err)
	}
	defer func() { _ = idx.Close() }()

	stats := idx.Stats()
	status := statusOutput{
		Dir:          indexDir,
		DocCount:     stats.DocCount,
		SegmentCount: stats.SegmentCount,
		TokenCount:   stats.TokenCount,
	}

	if cat, err := catalog.Open(catalog.DefaultCatalogPath(), catalog.BackendCGO); err == nil {
		if entry, err := cat.Get(cmd.Context(), indexDir); err == nil && entry != nil {
			status.Registered = true
		}
		_ = cat.Close()
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("", "dir:         %s", status.Dir)
	out.Statusf("", "documents:   %d", status.DocCount)
	out.Statusf("", "segments:    %d", status.SegmentCount)
	out.Statusf("", "tokens:      %d", status.TokenCount)
	out.Statusf("", "registered:  %t", status.Registered)
	return nil
}
