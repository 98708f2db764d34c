package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/catalog"
	"github.com/Aman-CERP/minisearch/internal/output"
)

func newListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexes previously opened via 'minisearch serve'",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Open(catalog.DefaultCatalogPath(), catalog.BackendCGO)
			if err != nil {
				return err
			}
			defer func() { _ = cat.Close() }()

			entries, err := cat.List(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			out := output.New(cmd.OutOrStdout())
			if len(entries) == 0 {
				out.Status("", "no indexes registered yet")
				return nil
			}
			for _, e := range entries {
				out.Statusf("", "%s (docs: %d, segments: %d, last accessed: %s)",
					e.Path, e.DocCount, e.SegmentCount, e.LastAccessed.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
