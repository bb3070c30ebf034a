// Package ingest orchestrates the Ingestion Pipeline (C7): discovery,
// preprocessing, chunking, batch embedding, and durable persistence of a
// corpus, generalized from the teacher's internal/index Coordinator and
// Runner into a single corpus-level pipeline.
package ingest

import (
	"time"

	"github.com/raglite-go/raglite/internal/batch"
	"github.com/raglite-go/raglite/internal/chunk"
	"github.com/raglite-go/raglite/internal/content"
	"github.com/raglite-go/raglite/internal/embed"
	"github.com/raglite-go/raglite/internal/lock"
	"github.com/raglite-go/raglite/internal/store"
)

// ChunkerSet is the set of per-content-type chunkers a Pipeline dispatches
// discovered files to.
type ChunkerSet struct {
	Code     chunk.Chunker
	Markdown chunk.Chunker
	Text     chunk.Chunker
}

// Config wires a Pipeline to the corpus it operates on.
type Config struct {
	// RootDir is the corpus data directory: it holds the vector index file
	// and the corpus lock, independent of whatever directory is passed to
	// Ingest as the source tree.
	RootDir string

	Metadata    store.MetadataStore
	VectorIndex *store.VectorIndex
	BM25        store.BM25Index
	Content     content.Store
	Embedder    embed.Embedder
	Chunkers    ChunkerSet

	// Preprocessors runs before chunking (frontmatter stripping, diagram
	// fences, tree-sitter-derived signature extraction).
	Preprocessors *chunk.Registry

	// Batch drives memory-aware, concurrent embedding of chunk batches.
	Batch *batch.Optimizer

	// Lock serializes Ingest calls against this corpus, including from
	// other processes.
	Lock *lock.CorpusLock

	// VectorIndexFileName is the file name (relative to RootDir) the
	// vector index is persisted under.
	VectorIndexFileName string

	// ExcludePatterns are glob-style patterns to exclude from directory
	// discovery on top of .gitignore.
	ExcludePatterns []string

	// MaxFileSize is the largest file discovery will read. Zero uses
	// scanner.DefaultMaxFileSize.
	MaxFileSize int64
}

// Options parametrizes one Ingest or IngestBytes call.
type Options struct {
	Mode         store.Mode
	ModelName    string
	ModelType    store.ModelType
	ModelDims    int
	SupportsImage bool
	Reranking    store.RerankingStrategy

	ForceRebuild bool

	ChunkSizeTokens int
	OverlapTokens   int

	IncludePatterns []string
	ExcludePatterns []string

	Progress batch.ProgressFunc
}

// FailedItem reports a source that could not be ingested without aborting
// the whole run.
type FailedItem struct {
	Source string
	Err    error
}

// Result summarizes the outcome of an ingest run.
type Result struct {
	DocumentsIngested int
	ChunksIngested    int
	Warnings          []string
	Failed            []FailedItem
	Duration          time.Duration
}

// rawChunk is a chunker's output, normalized to the content types the
// corpus stores (text or image), before embedding and persistence.
type rawChunk struct {
	chunkIndex  int
	text        string // empty for image chunks
	contentType store.ContentType
	imageBytes  []byte // set only for ContentTypeImage
	imageMime   string
}

// pendingChunk carries a rawChunk through embedding before it is written
// to the metadata store.
type pendingChunk struct {
	raw         rawChunk
	embeddingID string
	vector      []float32
	contentID   string
	isNew       bool // true if this embedding was not already in the store
}
