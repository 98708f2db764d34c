// Package cmd provides the CLI commands for minisearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/minisearch/internal/logging"
	"github.com/Aman-CERP/minisearch/pkg/version"
)

// Debug logging flag, shared by every subcommand via PersistentPreRunE.
var (
	debugMode      bool
	indexDir       string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the minisearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "minisearch",
		Short:   "Embeddable full-text search engine",
		Version: version.Version,
		Long: `minisearch indexes and searches a directory of documents using
BM25 ranking, fuzzy term matching, and phrase queries with slop.

Run 'minisearch add' to store documents and 'minisearch search' to query
them, or 'minisearch serve' to expose the index over MCP to an AI client.`,
	}

	cmd.SetVersionTemplate("minisearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&indexDir, "dir", defaultIndexDir(), "Index directory")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.minisearch/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newFlushCmd())
	cmd.AddCommand(newMergeCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func defaultIndexDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ".minisearch"
	}
	return filepath.Join(cwd, ".minisearch")
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}
