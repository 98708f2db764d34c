package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/output"
	"github.com/Aman-CERP/minisearch/pkg/minisearch"
)

func newAddCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a document to the index",
		Long: `Add analyses and stores a document, printing its assigned id.

Content can be given as an argument, read from --file, or piped via stdin:

  minisearch add "the quick brown fox"
  minisearch add --file notes.txt
  cat notes.txt | minisearch add`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := resolveAddContent(cmd, args, file)
			if err != nil {
				return err
			}
			return runAdd(cmd, content)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read document content from this file instead of an argument")

	return cmd
}

func resolveAddContent(cmd *cobra.Command, args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func runAdd(cmd *cobra.Command, content string) error {
	out := output.New(cmd.OutOrStdout())

	idx, err := minisearch.Open(indexDir, minisearch.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	id, err := idx.Add(cmd.Context(), content)
	if err != nil {
		return err
	}

	out.Successf("added document %s", id)
	return nil
}
