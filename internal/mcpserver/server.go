package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/minisearch/pkg/minisearch"
	"github.com/Aman-CERP/minisearch/pkg/version"
)

// Server is the MCP tool server fronting one opened index.
type Server struct {
	mcp    *mcp.Server
	index  *minisearch.Index
	logger *slog.Logger

	mu sync.Mutex // serializes tool calls against the index's single-writer model
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query; supports quoted phrases and trailing ~N fuzzy/slop modifiers"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results; 0 or omitted means 10, a negative value means unbounded"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked search results"`
}

// SearchResultOutput is a single ranked hit.
type SearchResultOutput struct {
	ID      string  `json:"id" jsonschema:"document id"`
	Content string  `json:"content" jsonschema:"document content"`
	Score   float64 `json:"score" jsonschema:"BM25 relevance score"`
}

// AddInput is the input schema for the add tool.
type AddInput struct {
	Content string `json:"content" jsonschema:"the document content to analyse and store"`
}

// AddOutput is the output schema for the add tool.
type AddOutput struct {
	ID string `json:"id" jsonschema:"the newly assigned document id"`
}

// StatsInput is the (empty) input schema for the stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	DocCount     int `json:"doc_count" jsonschema:"number of live documents"`
	SegmentCount int `json:"segment_count" jsonschema:"number of on-disk document segments"`
	TokenCount   int `json:"token_count" jsonschema:"number of distinct tokens in the index"`
}

// NewServer wraps idx as an MCP tool server.
func NewServer(idx *minisearch.Index) (*Server, error) {
	if idx == nil {
		return nil, fmt.Errorf("index is required")
	}

	s := &Server{
		index:  idx,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "minisearch",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the index with BM25 ranking. Supports bag-of-terms queries, quoted phrases, and ~N fuzzy/slop modifiers.",
	}, s.searchHandler)
	s.logger.Debug("registered tool", slog.String("name", "search"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "add",
		Description: "Analyse and add a document to the index, returning its assigned document id.",
	}, s.addHandler)
	s.logger.Debug("registered tool", slog.String("name", "add"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "stats",
		Description: "Report document, segment, and distinct-token counts for the index.",
	}, s.statsHandler)
	s.logger.Debug("registered tool", slog.String("name", "stats"))

	s.logger.Info("mcp tools registered", slog.Int("count", 3))
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	s.mu.Lock()
	results, err := s.index.Search(ctx, input.Query, limit)
	s.mu.Unlock()
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	out := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{
			ID:      r.Document.ID,
			Content: r.Document.Content,
			Score:   r.Score,
		})
	}
	return nil, out, nil
}

func (s *Server) addHandler(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (
	*mcp.CallToolResult, AddOutput, error,
) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, AddOutput{}, NewInvalidParamsError("content parameter is required and must be non-empty")
	}

	s.mu.Lock()
	id, err := s.index.Add(ctx, input.Content)
	s.mu.Unlock()
	if err != nil {
		return nil, AddOutput{}, MapError(err)
	}
	return nil, AddOutput{ID: id}, nil
}

func (s *Server) statsHandler(_ context.Context, _ *mcp.CallToolRequest, _ StatsInput) (
	*mcp.CallToolResult, StatsOutput, error,
) {
	s.mu.Lock()
	stats := s.index.Stats()
	s.mu.Unlock()

	return nil, StatsOutput{
		DocCount:     stats.DocCount,
		SegmentCount: stats.SegmentCount,
		TokenCount:   stats.TokenCount,
	}, nil
}

// Serve starts the server using the given transport ("stdio" is the only
// one currently implemented, matching the MCP SDK's transport support).
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting mcp server", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
