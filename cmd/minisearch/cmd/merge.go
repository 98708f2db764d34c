package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/output"
	"github.com/Aman-CERP/minisearch/pkg/minisearch"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Compact document-store segments past the deleted-byte threshold",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			idx, err := minisearch.Open(indexDir, minisearch.DefaultConfig())
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			if err := idx.Merge(); err != nil {
				return err
			}

			out.Success("merge complete")
			return nil
		},
	}
}
