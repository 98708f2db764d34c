package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/output"
	"github.com/Aman-CERP/minisearch/pkg/minisearch"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Tombstone a document by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			idx, err := minisearch.Open(indexDir, minisearch.DefaultConfig())
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			existed, err := idx.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("document not found: %s", args[0])
			}

			out.Successf("deleted document %s", args[0])
			return nil
		},
	}
}
