package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglite-go/raglite/internal/batch"
	"github.com/raglite-go/raglite/internal/chunk"
	"github.com/raglite-go/raglite/internal/content"
	"github.com/raglite-go/raglite/internal/embed"
	"github.com/raglite-go/raglite/internal/lock"
	"github.com/raglite-go/raglite/internal/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, Config) {
	t.Helper()
	dir := t.TempDir()

	metadata, err := store.OpenMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { metadata.Close() })

	contentStore, err := content.Open(filepath.Join(dir, "content"), content.DefaultCaps())
	require.NoError(t, err)
	t.Cleanup(func() { contentStore.Close() })

	cfg := Config{
		RootDir:     dir,
		Metadata:    metadata,
		VectorIndex: store.NewVectorIndex(embed.Static768Dimensions, 1000, store.DefaultGraphParams()),
		Content:     contentStore,
		Embedder:    embed.NewStaticEmbedder768(),
		Chunkers: ChunkerSet{
			Code:     chunk.NewCodeChunker(),
			Markdown: chunk.NewMarkdownChunker(),
			Text:     chunk.NewTextChunker(chunk.ChunkerOptions{ChunkSizeTokens: 200, OverlapTokens: 20}),
		},
		Batch: batch.NewOptimizer(batch.DefaultConfig()),
		Lock:  lock.New(dir),
	}
	return NewPipeline(cfg), cfg
}

func defaultOpts() Options {
	return Options{
		Mode:      store.ModeText,
		ModelName: "static768",
		ModelType: store.ModelTypeSentenceTransformer,
		ModelDims: embed.Static768Dimensions,
		Reranking: store.RerankingTextDerived,
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestPipeline_Ingest_MixedCorpus(t *testing.T) {
	p, cfg := newTestPipeline(t)
	src := t.TempDir()

	writeFile(t, src, "readme.md", "# Title\n\nSome introductory prose about the project.\n")
	writeFile(t, src, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")
	writeFile(t, src, "notes.txt", "Plain text notes about nothing in particular.\n")

	result, err := p.Ingest(context.Background(), src, defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, 3, result.DocumentsIngested)
	assert.Greater(t, result.ChunksIngested, 0)
	assert.Empty(t, result.Failed)

	hasData, err := cfg.Metadata.HasData(context.Background())
	require.NoError(t, err)
	assert.True(t, hasData)

	info, err := cfg.Metadata.GetSystemInfo(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, store.ModeText, info.Mode)
	assert.Equal(t, "static768", info.ModelName)

	_, err = os.Stat(filepath.Join(cfg.RootDir, DefaultVectorIndexFileName))
	require.NoError(t, err)
}

func TestPipeline_IngestBytes_SingleBlob(t *testing.T) {
	p, cfg := newTestPipeline(t)

	result, err := p.IngestBytes(context.Background(), "blob://one", "One", store.ContentTypeText,
		[]byte("a short document about nothing special"), defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocumentsIngested)
	assert.Equal(t, 1, result.ChunksIngested)

	doc, err := cfg.Metadata.GetDocumentBySource(context.Background(), "blob://one")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "One", doc.Title)
}

func TestPipeline_Ingest_DedupesEmbeddingsAcrossDocuments(t *testing.T) {
	p, cfg := newTestPipeline(t)

	body := "identical content shared by two different documents"
	_, err := p.IngestBytes(context.Background(), "blob://a", "A", store.ContentTypeText, []byte(body), defaultOpts())
	require.NoError(t, err)
	_, err = p.IngestBytes(context.Background(), "blob://b", "B", store.ContentTypeText, []byte(body), defaultOpts())
	require.NoError(t, err)

	stats, err := cfg.Metadata.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, 1, stats.EmbeddingCount)
}

func TestPipeline_IngestBytes_ReingestReplacesChunks(t *testing.T) {
	p, cfg := newTestPipeline(t)

	_, err := p.IngestBytes(context.Background(), "blob://doc", "Doc", store.ContentTypeText,
		[]byte("first revision of the document"), defaultOpts())
	require.NoError(t, err)

	_, err = p.IngestBytes(context.Background(), "blob://doc", "Doc", store.ContentTypeText,
		[]byte("second revision of the document, totally rewritten"), defaultOpts())
	require.NoError(t, err)

	stats, err := cfg.Metadata.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)

	doc, err := cfg.Metadata.GetDocumentBySource(context.Background(), "blob://doc")
	require.NoError(t, err)
	chunks, err := cfg.Metadata.GetChunksByDocument(context.Background(), doc.DocID)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.Contains(t, c.Text, "second revision")
	}
}

func TestPipeline_Ingest_SystemInfoWrittenOnceThenOnForceRebuild(t *testing.T) {
	p, cfg := newTestPipeline(t)

	_, err := p.IngestBytes(context.Background(), "blob://one", "One", store.ContentTypeText,
		[]byte("first corpus content"), defaultOpts())
	require.NoError(t, err)

	info1, err := cfg.Metadata.GetSystemInfo(context.Background())
	require.NoError(t, err)
	created := info1.CreatedAt

	_, err = p.IngestBytes(context.Background(), "blob://two", "Two", store.ContentTypeText,
		[]byte("second unrelated content"), defaultOpts())
	require.NoError(t, err)

	info2, err := cfg.Metadata.GetSystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, created, info2.CreatedAt)

	rebuildOpts := defaultOpts()
	rebuildOpts.ForceRebuild = true
	_, err = p.IngestBytes(context.Background(), "blob://three", "Three", store.ContentTypeText,
		[]byte("third content after rebuild"), rebuildOpts)
	require.NoError(t, err)

	info3, err := cfg.Metadata.GetSystemInfo(context.Background())
	require.NoError(t, err)
	assert.True(t, info3.UpdatedAt.After(created) || info3.UpdatedAt.Equal(created))
}

func TestPipeline_IngestBytes_ImageContent(t *testing.T) {
	p, cfg := newTestPipeline(t)

	opts := defaultOpts()
	opts.Mode = store.ModeMultimodal
	opts.SupportsImage = true

	result, err := p.IngestBytes(context.Background(), "blob://pic.png", "Pic", store.ContentTypeImage,
		[]byte{0xFF, 0xD8, 0xFF, 0x01, 0x02, 0x03}, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksIngested)

	doc, err := cfg.Metadata.GetDocumentBySource(context.Background(), "blob://pic.png")
	require.NoError(t, err)
	chunks, err := cfg.Metadata.GetChunksByDocument(context.Background(), doc.DocID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, store.ContentTypeImage, chunks[0].ContentType)
	assert.NotEmpty(t, chunks[0].ContentID)
}

func TestPipeline_Ingest_EmptyDirectoryProducesNoDocuments(t *testing.T) {
	p, _ := newTestPipeline(t)
	src := t.TempDir()

	result, err := p.Ingest(context.Background(), src, defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, 0, result.DocumentsIngested)
}

func TestPipeline_removeSource_DeletesDocumentAndUnreferencedEmbedding(t *testing.T) {
	p, cfg := newTestPipeline(t)

	_, err := p.IngestBytes(context.Background(), "blob://gone", "Gone", store.ContentTypeText,
		[]byte("content that will be removed"), defaultOpts())
	require.NoError(t, err)

	doc, err := cfg.Metadata.GetDocumentBySource(context.Background(), "blob://gone")
	require.NoError(t, err)
	require.NotNil(t, doc)
	chunks, err := cfg.Metadata.GetChunksByDocument(context.Background(), doc.DocID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	embeddingID := chunks[0].EmbeddingID

	require.NoError(t, p.removeSource(context.Background(), "blob://gone"))

	doc, err = cfg.Metadata.GetDocumentBySource(context.Background(), "blob://gone")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.False(t, cfg.VectorIndex.Contains(embeddingID))
}
