package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/output"
	"github.com/Aman-CERP/minisearch/pkg/minisearch"
)

type searchResultJSON struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

func newSearchCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search the index with BM25 ranking.

Query syntax: a bag of whitespace-separated terms (AND semantics), or a
double-quoted phrase. Append ~N to a term for fuzzy matching, or ~N to a
phrase for slop.

Examples:
  minisearch search "authentication middleware"
  minisearch search fwx~1
  minisearch search '"quick fox"~2' --limit 5
  minisearch search "error handling" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, limit int, format string) error {
	idx, err := minisearch.Open(indexDir, minisearch.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	results, err := idx.Search(cmd.Context(), query, limit)
	if err != nil {
		return err
	}

	if format == "json" {
		rows := make([]searchResultJSON, len(results))
		for i, r := range results {
			rows[i] = searchResultJSON{ID: r.Document.ID, Content: r.Document.Content, Score: r.Score}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	out := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		out.Status("", "no results")
		return nil
	}
	for i, r := range results {
		out.Statusf("", "%d. [%s] (%.4f) %s", i+1, r.Document.ID, r.Score, truncate(r.Document.Content, 120))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
