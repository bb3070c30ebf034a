package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglite-go/raglite/internal/config"
	"github.com/raglite-go/raglite/internal/search"
	"github.com/raglite-go/raglite/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	corpusDir := t.TempDir()

	cfg := config.NewConfig()
	cfg.Ingest.Provider = "static"
	cfg.Search.RerankingStrategy = store.RerankingTextDerived

	e, err := Open(context.Background(), corpusDir, *cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, corpusDir
}

func TestEngine_OpenCreatesCorpusArtifacts(t *testing.T) {
	e, corpusDir := newTestEngine(t)

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.ModeText, stats.Mode)
	assert.True(t, stats.Compatibility.Compatible)
	assert.Equal(t, 0, stats.DocumentCount)

	require.NoError(t, e.Close())
	assert.FileExists(t, filepath.Join(corpusDir, "metadata.db"))
	assert.FileExists(t, filepath.Join(corpusDir, "telemetry.db"))
}

func TestEngine_Search_RecordsQueryTelemetry(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, Source{Bytes: []byte("the quick brown fox"), SourceID: "doc://fox"}, IngestOptions{})
	require.NoError(t, err)

	_, err = e.Search(ctx, "fox", search.QueryOptions{})
	require.NoError(t, err)

	snapshot := e.metrics.Snapshot()
	assert.Equal(t, int64(1), snapshot.TotalQueries)
}

func TestEngine_IngestBytesThenSearch(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	report, err := e.Ingest(ctx, Source{
		Bytes:    []byte("the quick brown fox jumps over the lazy dog"),
		SourceID: "doc://fox",
		Title:    "fox",
	}, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Greater(t, report.ChunksCreated, 0)

	results, err := e.Search(ctx, "quick brown fox", search.QueryOptions{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc://fox", results[0].Source)
}

func TestEngine_IngestRequiresPathOrBytes(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Ingest(context.Background(), Source{}, IngestOptions{})
	assert.Error(t, err)
}

func TestEngine_IngestDirectoryDiscoversFiles(t *testing.T) {
	e, _ := newTestEngine(t)
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("raglite ingests plain text documents for retrieval"), 0o644))

	report, err := e.Ingest(context.Background(), Source{Path: srcDir}, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
}

func TestEngine_ResetClearsCorpusAndRewiresIndex(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, Source{Bytes: []byte("ephemeral content to be reset"), SourceID: "doc://a"}, IngestOptions{})
	require.NoError(t, err)

	_, err = e.Reset(ctx, store.ResetOptions{})
	require.NoError(t, err)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)

	results, err := e.Search(ctx, "ephemeral", search.QueryOptions{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = e.Ingest(ctx, Source{Bytes: []byte("content added after reset"), SourceID: "doc://b"}, IngestOptions{})
	require.NoError(t, err)
	results, err = e.Search(ctx, "content added after reset", search.QueryOptions{TopK: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestEngine_CloseIsPersistentAcrossReopen(t *testing.T) {
	e, corpusDir := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, Source{Bytes: []byte("durable content across reopen"), SourceID: "doc://durable"}, IngestOptions{})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	cfg := config.NewConfig()
	cfg.Ingest.Provider = "static"
	reopened, err := Open(ctx, corpusDir, *cfg)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, "durable content", search.QueryOptions{TopK: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}
