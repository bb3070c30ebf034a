package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglite-go/raglite/internal/config"
	"github.com/raglite-go/raglite/internal/engine"
	"github.com/raglite-go/raglite/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	corpusDir := t.TempDir()

	cfg := config.NewConfig()
	cfg.Ingest.Provider = "static"
	cfg.Search.RerankingStrategy = store.RerankingTextDerived

	eng, err := engine.Open(context.Background(), corpusDir, *cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := NewServer(eng, logger)
	require.NoError(t, err)
	return s
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestHandleSearch_RejectsEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.handleSearch(context.Background(), nil, SearchInput{})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestHandleIngestThenSearch(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleIngest(ctx, nil, IngestInput{
		Text:     "the quick brown fox jumps over the lazy dog",
		SourceID: "doc://fox",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.DocumentsProcessed)
	assert.Greater(t, out.ChunksCreated, 0)

	_, results, err := s.handleSearch(ctx, nil, SearchInput{Query: "quick brown fox"})
	require.NoError(t, err)
	require.NotEmpty(t, results.Results)
	assert.Equal(t, "doc://fox", results.Results[0].Source)
}

func TestHandleIngest_RequiresSourceIDForText(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.handleIngest(context.Background(), nil, IngestInput{Text: "no source id"})
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestHandleStats_ReportsEmptyCorpus(t *testing.T) {
	s := newTestServer(t)
	_, out, err := s.handleStats(context.Background(), nil, StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.DocumentCount)
	assert.True(t, out.Compatible)
}

func TestHandleReset_RequiresConfirm(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.handleReset(context.Background(), nil, ResetInput{Confirm: false})
	require.Error(t, err)
}

func TestHandleReset_ClearsCorpus(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.handleIngest(ctx, nil, IngestInput{Text: "content to reset", SourceID: "doc://reset"})
	require.NoError(t, err)

	_, resetOut, err := s.handleReset(ctx, nil, ResetInput{Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, 1, resetOut.DocumentsRemoved)

	_, statsOut, err := s.handleStats(ctx, nil, StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, statsOut.DocumentCount)
}

func TestHandleGetContent_RequiresContentID(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.handleGetContent(context.Background(), nil, GetContentInput{})
	require.Error(t, err)
}

func TestMapError_PlainErrorMapsToInternalError(t *testing.T) {
	// A plain (non-RagError) error maps to the internal error code.
	err := MapError(assert.AnError)
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInternalError, err.Code)
}
