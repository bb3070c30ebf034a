// Package store provides the metadata relational store (SQLite), the
// ANN vector index, and the BM25 lexical index. This is the persistence
// layer for the retrieval engine.
package store

import (
	"context"
	"fmt"
	"time"
)

// ContentType classifies the modality of a document or chunk.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeMixed ContentType = "mixed"
)

// Mode is the corpus-wide embedding space selector.
type Mode string

const (
	ModeText       Mode = "text"
	ModeMultimodal Mode = "multimodal"
)

// ModelType names the family of embedding model backing a corpus.
type ModelType string

const (
	ModelTypeSentenceTransformer ModelType = "sentence-transformer"
	ModelTypeCLIP                ModelType = "clip"
)

// RerankingStrategy selects which Reranker implementation a corpus uses.
type RerankingStrategy string

const (
	RerankingCrossEncoder RerankingStrategy = "cross-encoder"
	RerankingTextDerived  RerankingStrategy = "text-derived"
	RerankingMetadata     RerankingStrategy = "metadata"
	RerankingHybrid       RerankingStrategy = "hybrid"
	RerankingDisabled     RerankingStrategy = "disabled"
)

// State keys for the runtime key-value state table.
const (
	StateKeyIndexDimension = "index_embedding_dimension"
	StateKeyIndexModel     = "index_embedding_model"
)

// Checkpoint state keys for resumable ingestion.
const (
	StateKeyCheckpointStage         = "checkpoint_stage"
	StateKeyCheckpointTotal         = "checkpoint_total"
	StateKeyCheckpointEmbedded      = "checkpoint_embedded"
	StateKeyCheckpointTimestamp     = "checkpoint_timestamp"
	StateKeyCheckpointEmbedderModel = "checkpoint_embedder_model"
)

// CurrentSchemaVersion is the current metadata database schema version.
const CurrentSchemaVersion = 1

// SystemInfo is the singleton record describing the corpus's mode and
// embedding model. Created on first ingest; changed only by a rebuild.
type SystemInfo struct {
	Mode                   Mode
	ModelName              string
	ModelType              ModelType
	ModelDimensions        int
	ModelVersion           string
	SupportedContentTypes  []ContentType
	RerankingStrategy      RerankingStrategy
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Document is a logical source unit (a file, URL, or other ingested item).
type Document struct {
	DocID       int64
	Source      string
	Title       string
	ContentType ContentType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is the smallest retrievable unit of a document.
type Chunk struct {
	ChunkID     string // stable id, content-addressed within its document
	DocID       int64
	ChunkIndex  int
	Text        string
	TokenCount  int
	ContentType ContentType
	EmbeddingID string // foreign key into EmbeddingRecord
	ContentID   string // optional handle into the Content Store
	CreatedAt   time.Time
}

// EmbeddingRecord is a deduplicated, content-addressed embedding vector.
// embedding_id = hash(normalize(content), content_type, model_fingerprint).
type EmbeddingRecord struct {
	EmbeddingID string
	Vector      []float32
	ContentType ContentType
	Dims        int
	RefCount    int
	CreatedAt   time.Time
}

// ContentRef describes a blob stored in the content-addressed Content Store.
type ContentRef struct {
	ContentID   string
	ByteLength  int64
	Mime        string
	StoragePath string
	RefCount    int
	CreatedAt   time.Time
}

// ResetOptions controls the scope of MetadataStore.Reset.
type ResetOptions struct {
	// KeepSystemInfo preserves the mode/model record across the reset.
	KeepSystemInfo bool
}

// ResetReport summarizes what a Reset removed.
type ResetReport struct {
	DocumentsRemoved   int
	ChunksRemoved      int
	EmbeddingsRemoved  int
}

// IndexCheckpoint is the saved state of an in-progress ingest, for resume.
type IndexCheckpoint struct {
	Stage         string // "discovering"|"chunking"|"embedding"|"indexing"|"complete"
	Total         int
	EmbeddedCount int
	Timestamp     time.Time
	EmbedderModel string
}

// MetadataStore persists documents, chunks, embeddings, and corpus-wide
// system info in SQLite. All mutating operations that touch more than one
// row family (ReplaceChunks, Reset) are transactional.
type MetadataStore interface {
	// System info
	GetSystemInfo(ctx context.Context) (*SystemInfo, error)
	SetSystemInfo(ctx context.Context, info *SystemInfo) error

	// Documents
	UpsertDocument(ctx context.Context, source, title string, contentType ContentType) (docID int64, error error)
	GetDocumentBySource(ctx context.Context, source string) (*Document, error)
	GetDocument(ctx context.Context, docID int64) (*Document, error)
	DeleteDocument(ctx context.Context, docID int64) error

	// Chunks + embeddings, atomic per document (I1, I4)
	ReplaceChunks(ctx context.Context, docID int64, chunks []*Chunk, embeddings []*EmbeddingRecord) error
	GetChunksByEmbeddingIDs(ctx context.Context, ids []string) ([]*Chunk, error)
	GetChunksByDocument(ctx context.Context, docID int64) ([]*Chunk, error)

	// Embedding refcounting (dedup, I1)
	IncRef(ctx context.Context, embeddingID string) error
	DecRef(ctx context.Context, embeddingID string) error
	GetEmbedding(ctx context.Context, embeddingID string) (*EmbeddingRecord, error)

	// State (key-value runtime state, used for checkpoints and index metadata)
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	// Checkpoints (resumable ingestion)
	SaveCheckpoint(ctx context.Context, cp *IndexCheckpoint) error
	LoadCheckpoint(ctx context.Context) (*IndexCheckpoint, error)
	ClearCheckpoint(ctx context.Context) error

	// Corpus-wide
	HasData(ctx context.Context) (bool, error)
	Reset(ctx context.Context, opts ResetOptions) (*ResetReport, error)
	Stats(ctx context.Context) (*CorpusStats, error)

	Close() error
}

// CorpusStats summarizes the size of a corpus for the engine's Stats operation.
type CorpusStats struct {
	DocumentCount  int
	ChunkCount     int
	EmbeddingCount int
}

// Document represents a single lexical-index entry for the BM25 index.
// Kept distinct from the metadata Document above: this one is the
// content unit the lexical engine scores, keyed by chunk id.
type LexicalDocument struct {
	ID      string // chunk id
	Content string
}

// BM25Result represents a single BM25 search result.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats provides statistics about the BM25 index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// BM25Index provides keyword search using the BM25 algorithm. It backs
// the lexical-fallback reranker and recall-assist candidate sourcing.
type BM25Index interface {
	Index(ctx context.Context, docs []*LexicalDocument) error
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Delete(ctx context.Context, docIDs []string) error
	AllIDs() ([]string, error)
	Stats() *IndexStats
	Save(path string) error
	Load(path string) error
	Close() error
}

// BM25Config configures the BM25 index.
type BM25Config struct {
	K1             float64
	B              float64
	StopWords      []string
	MinTokenLength int
}

// DefaultBM25Config returns default BM25 configuration tuned for prose.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultStopWords,
		MinTokenLength: 2,
	}
}

// DefaultStopWords contains common English function words filtered during
// tokenization. Generalized from the teacher's code-keyword stop list to
// prose, since this engine indexes arbitrary document text, not source code.
var DefaultStopWords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "of", "to",
	"in", "on", "at", "by", "for", "with", "as", "is", "are", "was", "were",
	"be", "been", "being", "it", "its", "this", "that", "these", "those",
	"from", "into", "about", "than", "not", "no", "do", "does", "did",
}

// VectorResult represents a single ANN search result.
type VectorResult struct {
	EmbeddingID string
	Distance    float32 // cosine distance, lower is more similar
	Score       float32 // normalized similarity in [0,1]
}

// GraphParams are the tunable HNSW construction/query parameters.
type GraphParams struct {
	M              int
	EfConstruction int
	EfSearch       int
	Seed           uint32
}

// DefaultGraphParams returns sensible defaults for the vector index.
func DefaultGraphParams() GraphParams {
	return GraphParams{
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
		Seed:           1,
	}
}

// ErrDimensionMismatch indicates a vector's length does not match the
// corpus's declared model dimensions.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
