// Package engine wires the metadata/vector/lexical stores (C1, C3),
// content store (C2), embedder (C4), reranker (C5), chunkers (C6),
// ingest pipeline (C7), search pipeline (C8), mode validator (C9),
// resource manager (C10), and batch optimizer (C11) into the single
// entry point cmd/raglite and internal/mcpserver both call, generalized
// from the teacher's internal/daemon.Engine.
package engine

import (
	"database/sql"
	"time"

	"github.com/raglite-go/raglite/internal/batch"
	"github.com/raglite-go/raglite/internal/chunk"
	"github.com/raglite-go/raglite/internal/config"
	"github.com/raglite-go/raglite/internal/content"
	"github.com/raglite-go/raglite/internal/embed"
	"github.com/raglite-go/raglite/internal/ingest"
	"github.com/raglite-go/raglite/internal/lock"
	"github.com/raglite-go/raglite/internal/rerank"
	"github.com/raglite-go/raglite/internal/resource"
	"github.com/raglite-go/raglite/internal/search"
	"github.com/raglite-go/raglite/internal/store"
	"github.com/raglite-go/raglite/internal/telemetry"
)

const (
	metadataFileName = "metadata.db"
	bm25DirName      = "bm25"
)

// Engine is one corpus's full retrieval stack: one corpus directory, one
// metadata/vector/lexical store set, one embedder, one reranker. Open
// acquires no long-lived lock on the corpus; only Ingest does, via
// internal/lock.CorpusLock, so concurrent Search calls are never blocked
// by an in-flight ingest.
type Engine struct {
	corpusDir string
	cfg       config.Config

	metadata store.MetadataStore
	vector   *store.VectorIndex
	bm25     store.BM25Index
	contentS content.Store

	embedder embed.Embedder
	reranker rerank.Reranker

	chunkers      ingest.ChunkerSet
	preprocessors *chunk.Registry
	batchOpt      *batch.Optimizer
	corpusLock    *lock.CorpusLock
	resources     *resource.Manager

	ingestPipeline *ingest.Pipeline
	searchPipeline *search.Pipeline

	vectorIndexPath string

	metricsDB *sql.DB
	metrics   *telemetry.QueryMetrics
}

// Source identifies what Ingest should read: a filesystem path (a single
// file or a directory tree) or an in-memory blob with no backing file.
type Source struct {
	Path  string // discovery root or single file; mutually exclusive with Bytes
	Bytes []byte
	// SourceID and Title are only used (and required) when Bytes is set.
	SourceID string
	Title    string
}

// IngestOptions parametrizes one Ingest call. ChunkSizeTokens/OverlapTokens
// default to cfg.Chunker's (or cfg.Ingest's per-call override) values when
// zero.
type IngestOptions struct {
	ForceRebuild    bool
	ChunkSizeTokens int
	OverlapTokens   int
	IncludePatterns []string
	ExcludePatterns []string
	Progress        batch.ProgressFunc
}

// IngestReport summarizes one Ingest call, matching spec.md §6.3
// field-for-field.
type IngestReport struct {
	DocumentsProcessed  int
	ChunksCreated       int
	EmbeddingsGenerated int
	ProcessingTimeMS    int64
	Warnings            []string
	Failed              []ingest.FailedItem
}

// ModelInfo mirrors embed.ModelInfo for external callers that should not
// need to import internal/embed directly.
type ModelInfo struct {
	Name          string
	Dimensions    int
	SupportsImage bool
}

// Compatibility reports whether the corpus's persisted SystemInfo agrees
// with the engine's currently configured mode/model (C9's R1-R4 rules).
type Compatibility struct {
	Compatible bool
	Reason     string
}

// Stats reports a corpus's on-disk state and configuration compatibility,
// matching spec.md §6.3 field-for-field.
type Stats struct {
	DatabaseExists bool
	IndexExists    bool
	Mode           store.Mode
	ModelInfo      ModelInfo
	Compatibility  Compatibility
	DocumentCount  int
	ChunkCount     int
	LastIngestedAt time.Time
}
