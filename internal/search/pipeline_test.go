package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglite-go/raglite/internal/embed"
	"github.com/raglite-go/raglite/internal/rerank"
	"github.com/raglite-go/raglite/internal/store"
)

type searchFixture struct {
	pipeline *Pipeline
	metadata store.MetadataStore
	vector   *store.VectorIndex
	bm25     store.BM25Index
	embedder embed.Embedder
}

func newSearchFixture(t *testing.T, withReranker bool) *searchFixture {
	t.Helper()

	metadata, err := store.OpenMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { metadata.Close() })

	bm25, err := store.NewSQLiteBM25Index("", store.DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { bm25.Close() })

	embedder := embed.NewStaticEmbedder768()
	vec := store.NewVectorIndex(embed.Static768Dimensions, 1000, store.DefaultGraphParams())

	var reranker rerank.Reranker
	if withReranker {
		reranker = &rerank.DisabledReranker{}
	}

	cfg := Config{
		Metadata:    metadata,
		VectorIndex: vec,
		BM25:        bm25,
		Embedder:    embedder,
		Reranker:    reranker,
	}

	require.NoError(t, metadata.SetSystemInfo(context.Background(), &store.SystemInfo{
		Mode:              store.ModeText,
		ModelName:         "static768",
		ModelType:         store.ModelTypeSentenceTransformer,
		ModelDimensions:   embed.Static768Dimensions,
		RerankingStrategy: store.RerankingDisabled,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}))

	return &searchFixture{pipeline: NewPipeline(cfg), metadata: metadata, vector: vec, bm25: bm25, embedder: embedder}
}

// seedChunk writes one document with one chunk/embedding, indexing it into
// both the vector and lexical indices, mirroring what Pipeline.Ingest does.
func (f *searchFixture) seedChunk(t *testing.T, source, text string) (chunkID, embeddingID string) {
	t.Helper()
	ctx := context.Background()

	docID, err := f.metadata.UpsertDocument(ctx, source, source, store.ContentTypeText)
	require.NoError(t, err)

	vector, err := f.embedder.EmbedText(ctx, text)
	require.NoError(t, err)

	embeddingID = store.HashContent([]byte(text), []byte(store.ContentTypeText), []byte("static768:768"))
	chunkID = store.HashContent([]byte(source), []byte("0"), []byte(embeddingID))

	chunk := &store.Chunk{
		ChunkID: chunkID, DocID: docID, ChunkIndex: 0, Text: text,
		TokenCount: len(store.Tokenize(text)), ContentType: store.ContentTypeText,
		EmbeddingID: embeddingID, CreatedAt: time.Now(),
	}
	record := &store.EmbeddingRecord{
		EmbeddingID: embeddingID, Vector: vector, ContentType: store.ContentTypeText,
		Dims: len(vector), CreatedAt: time.Now(),
	}
	require.NoError(t, f.metadata.ReplaceChunks(ctx, docID, []*store.Chunk{chunk}, []*store.EmbeddingRecord{record}))
	_, err = f.vector.Add(embeddingID, vector)
	require.NoError(t, err)
	require.NoError(t, f.bm25.Index(ctx, []*store.LexicalDocument{{ID: chunkID, Content: text}}))
	return chunkID, embeddingID
}

func TestPipeline_Search_ReturnsSeededChunk(t *testing.T) {
	f := newSearchFixture(t, false)
	chunkID, _ := f.seedChunk(t, "doc://a", "the quick brown fox jumps over the lazy dog")

	results, err := f.pipeline.Search(context.Background(), "quick brown fox", QueryOptions{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, chunkID, results[0].ChunkID)
	assert.Equal(t, "doc://a", results[0].Source)
	assert.GreaterOrEqual(t, results[0].Score, 0.0)
	assert.LessOrEqual(t, results[0].Score, 1.0)
}

func TestPipeline_Search_NoSystemInfoReturnsEmpty(t *testing.T) {
	metadata, err := store.OpenMetadataStore("")
	require.NoError(t, err)
	t.Cleanup(func() { metadata.Close() })

	p := NewPipeline(Config{
		Metadata:    metadata,
		VectorIndex: store.NewVectorIndex(embed.Static768Dimensions, 10, store.DefaultGraphParams()),
		Embedder:    embed.NewStaticEmbedder768(),
	})

	results, err := p.Search(context.Background(), "anything", QueryOptions{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPipeline_Search_RespectsTopK(t *testing.T) {
	f := newSearchFixture(t, false)
	for i := 0; i < 5; i++ {
		f.seedChunk(t, "doc://multi", "shared content variant "+string(rune('a'+i)))
	}

	results, err := f.pipeline.Search(context.Background(), "shared content", QueryOptions{TopK: 2})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
}

func TestPipeline_Search_ContentTypeFilterExcludesOtherModalities(t *testing.T) {
	f := newSearchFixture(t, false)
	ctx := context.Background()

	docID, err := f.metadata.UpsertDocument(ctx, "doc://image", "Image", store.ContentTypeImage)
	require.NoError(t, err)
	vector, err := f.embedder.EmbedImage(ctx, []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	embeddingID := store.HashContent([]byte{1, 2, 3}, []byte(store.ContentTypeImage), []byte("static768:768"))
	chunkID := store.HashContent([]byte("doc://image"), []byte("0"), []byte(embeddingID))
	chunk := &store.Chunk{ChunkID: chunkID, DocID: docID, ContentType: store.ContentTypeImage, EmbeddingID: embeddingID, CreatedAt: time.Now()}
	record := &store.EmbeddingRecord{EmbeddingID: embeddingID, Vector: vector, ContentType: store.ContentTypeImage, Dims: len(vector), CreatedAt: time.Now()}
	require.NoError(t, f.metadata.ReplaceChunks(ctx, docID, []*store.Chunk{chunk}, []*store.EmbeddingRecord{record}))
	_, err = f.vector.Add(embeddingID, vector)
	require.NoError(t, err)

	f.seedChunk(t, "doc://text", "some text content entirely unrelated")

	results, err := f.pipeline.Search(ctx, "anything", QueryOptions{TopK: 10, ContentTypeFilter: store.ContentTypeText})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, store.ContentTypeText, r.ContentType)
	}
}

func TestPipeline_Search_WithRerankerAppliesItsScores(t *testing.T) {
	f := newSearchFixture(t, true)
	f.seedChunk(t, "doc://a", "alpha content first")
	f.seedChunk(t, "doc://b", "beta content second")

	results, err := f.pipeline.Search(context.Background(), "content", QueryOptions{TopK: 5, Rerank: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestPipeline_Search_BM25AssistSurfacesLexicalOnlyMatch(t *testing.T) {
	f := newSearchFixture(t, false)
	f.seedChunk(t, "doc://unique", "ERRCODE-8841 appears nowhere else in this corpus")
	f.seedChunk(t, "doc://filler", "completely unrelated filler content about gardening")

	results, err := f.pipeline.Search(context.Background(), "ERRCODE-8841", QueryOptions{TopK: 5, BM25Assist: true})
	require.NoError(t, err)

	var found bool
	for _, r := range results {
		if r.Source == "doc://unique" {
			found = true
		}
	}
	assert.True(t, found)
}
