package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/catalog"
	"github.com/Aman-CERP/minisearch/internal/logging"
	"github.com/Aman-CERP/minisearch/internal/mcpserver"
	"github.com/Aman-CERP/minisearch/pkg/minisearch"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the index over MCP to an AI client",
		Long: `Serve opens the index and fronts it with an MCP tool server
exposing search, add, and stats tools. Only the stdio transport is
currently implemented.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, transport)
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "MCP transport (stdio)")

	return cmd
}

func runServe(cmd *cobra.Command, transport string) error {
	ctx := cmd.Context()

	// The stdio transport owns stdout for JSON-RPC framing; route every log
	// line to the file instead, same as the teacher's MCP mode.
	if transport == "stdio" || transport == "" {
		if cleanup, err := logging.SetupServerMode(); err == nil {
			defer cleanup()
		}
	}

	idx, err := minisearch.Open(indexDir, minisearch.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	if cat, err := catalog.Open(catalog.DefaultCatalogPath(), catalog.BackendCGO); err == nil {
		if err := cat.Register(ctx, indexDir); err != nil {
			slog.Warn("failed to register index in catalog", slog.String("error", err.Error()))
		}
		stats := idx.Stats()
		if err := cat.Touch(ctx, indexDir, int64(stats.DocCount), stats.SegmentCount); err != nil {
			slog.Warn("failed to update catalog entry", slog.String("error", err.Error()))
		}
		_ = cat.Close()
	} else {
		slog.Warn("failed to open catalog", slog.String("error", err.Error()))
	}

	srv, err := mcpserver.NewServer(idx)
	if err != nil {
		return err
	}

	return srv.Serve(ctx, transport)
}
