package mcpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raglite-go/raglite/internal/content"
	"github.com/raglite-go/raglite/internal/engine"
	"github.com/raglite-go/raglite/internal/ragerr"
	"github.com/raglite-go/raglite/internal/search"
	"github.com/raglite-go/raglite/internal/store"
	"github.com/raglite-go/raglite/pkg/version"
)

// Server bridges an AI client (Claude Code, Cursor) to one corpus's
// internal/engine.Engine over the MCP protocol.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	logger *slog.Logger

	mu sync.RWMutex
}

// NewServer wires an MCP server over eng, registering the engine's public
// operations as MCP tools.
func NewServer(eng *engine.Engine, logger *slog.Logger) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{engine: eng, logger: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: "raglite", Version: version.Version},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search the ingested corpus. Embeds the query, runs an ANN lookup, optionally reranks, and returns the best-matching chunks with their source and relevance score.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ingest",
		Description: "Ingest a file, directory, or raw text into the corpus: discover, chunk, embed, and index. Safe to re-run; unchanged sources are skipped unless force_rebuild is set.",
	}, s.handleIngest)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_content",
		Description: "Resolve a content_id returned by search (used for image chunks and other content too large to inline) into its underlying blob.",
	}, s.handleGetContent)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "stats",
		Description: "Report the corpus's on-disk state, document/chunk counts, the embedder model it was built with, and whether that model is still compatible with the current configuration.",
	}, s.handleStats)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reset",
		Description: "Destructively clear the corpus's documents, chunks, and vector index. Requires confirm=true.",
	}, s.handleReset)

	s.logger.Info("mcp tools registered", slog.Int("count", 5))
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query is required")
	}

	start := time.Now()
	requestID := generateRequestID()
	limit := clampLimit(input.Limit, 10, 1, 100)

	opts := search.QueryOptions{
		TopK:              limit,
		Rerank:            input.Rerank,
		ContentTypeFilter: store.ContentType(input.ContentType),
	}

	results, err := s.engine.Search(ctx, input.Query, opts)
	s.logger.Info("search", slog.String("request_id", requestID), slog.String("query", input.Query),
		slog.Duration("duration", time.Since(start)), slog.Int("result_count", len(results)))
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	output := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, ToSearchResultOutput(r))
	}
	return nil, output, nil
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (
	*mcp.CallToolResult, IngestOutput, error,
) {
	if input.Path == "" && input.Text == "" {
		return nil, IngestOutput{}, NewInvalidParamsError("one of path or text is required")
	}
	if input.Text != "" && input.SourceID == "" {
		return nil, IngestOutput{}, NewInvalidParamsError("source_id is required when text is set")
	}

	src := engine.Source{Path: input.Path}
	if input.Text != "" {
		src = engine.Source{Bytes: []byte(input.Text), SourceID: input.SourceID, Title: input.SourceID}
	}

	report, err := s.engine.Ingest(ctx, src, engine.IngestOptions{ForceRebuild: input.ForceRebuild})
	if err != nil {
		return nil, IngestOutput{}, MapError(err)
	}

	warnings := make([]string, 0, len(report.Warnings)+len(report.Failed))
	warnings = append(warnings, report.Warnings...)
	for _, f := range report.Failed {
		warnings = append(warnings, fmt.Sprintf("%s: %s", f.Source, f.Err))
	}

	return nil, IngestOutput{
		DocumentsProcessed:  report.DocumentsProcessed,
		ChunksCreated:       report.ChunksCreated,
		EmbeddingsGenerated: report.EmbeddingsGenerated,
		ProcessingTimeMS:    report.ProcessingTimeMS,
		Warnings:            warnings,
	}, nil
}

func (s *Server) handleGetContent(ctx context.Context, _ *mcp.CallToolRequest, input GetContentInput) (
	*mcp.CallToolResult, GetContentOutput, error,
) {
	if input.ContentID == "" {
		return nil, GetContentOutput{}, NewInvalidParamsError("content_id is required")
	}

	format := content.FormatFilePath
	if input.AsBase64 {
		format = content.FormatBase64
	}

	res, err := s.engine.GetContent(ctx, input.ContentID, format)
	if err != nil {
		return nil, GetContentOutput{}, MapError(err)
	}
	return nil, GetContentOutput{Path: res.Path, Base64: res.Base64, Mime: res.Mime}, nil
}

func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (
	*mcp.CallToolResult, StatsOutput, error,
) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, MapError(err)
	}

	out := StatsOutput{
		DatabaseExists: stats.DatabaseExists,
		IndexExists:    stats.IndexExists,
		Mode:           string(stats.Mode),
		DocumentCount:  stats.DocumentCount,
		ChunkCount:     stats.ChunkCount,
		Model: ModelInfo{
			Name:          stats.ModelInfo.Name,
			Dimensions:    stats.ModelInfo.Dimensions,
			SupportsImage: stats.ModelInfo.SupportsImage,
		},
		Compatible: stats.Compatibility.Compatible,
		Reason:     stats.Compatibility.Reason,
	}
	if !stats.LastIngestedAt.IsZero() {
		out.LastIngestedAt = stats.LastIngestedAt.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleReset(ctx context.Context, _ *mcp.CallToolRequest, input ResetInput) (
	*mcp.CallToolResult, ResetOutput, error,
) {
	if !input.Confirm {
		return nil, ResetOutput{}, NewInvalidParamsError("reset requires confirm=true")
	}

	report, err := s.engine.Reset(ctx, store.ResetOptions{})
	if err != nil {
		return nil, ResetOutput{}, MapError(err)
	}
	return nil, ResetOutput{DocumentsRemoved: report.DocumentsRemoved, ChunksRemoved: report.ChunksRemoved}, nil
}

// Serve runs the server until ctx is canceled. Only the stdio transport is
// implemented; it is the only one the spec's MCP client integration needs.
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch transport {
	case "", "stdio":
		s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp server stopped")
		return nil
	default:
		return ragerr.New(ragerr.KindConfigValidation, fmt.Sprintf("unsupported mcp transport %q (supported: stdio)", transport), nil)
	}
}

func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
