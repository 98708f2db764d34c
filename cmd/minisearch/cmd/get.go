package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/pkg/minisearch"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a document's stored content by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := minisearch.Open(indexDir, minisearch.DefaultConfig())
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			doc, err := idx.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), doc.Content)
			return err
		},
	}
}
