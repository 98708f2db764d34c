package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/output"
	"github.com/Aman-CERP/minisearch/pkg/minisearch"
)

func newFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Force every buffered write to disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			idx, err := minisearch.Open(indexDir, minisearch.DefaultConfig())
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			if err := idx.Flush(); err != nil {
				return err
			}

			out.Success("flushed")
			return nil
		},
	}
}
