// Package rerank reorders a candidate set returned by the retrieval stage
// into final relevance order. Generalized from the teacher's
// internal/search.Reranker (a single cross-encoder-or-nothing abstraction)
// into five named strategies selectable per corpus mode.
package rerank

import (
	"context"
	"time"

	"github.com/raglite-go/raglite/internal/store"
)

// Strategy names a Reranker implementation. Persisted on SystemInfo
// (store.RerankingStrategy) so a corpus always reranks the way it was built.
type Strategy string

const (
	StrategyCrossEncoder Strategy = "cross-encoder"
	StrategyTextDerived  Strategy = "text-derived"
	StrategyMetadata     Strategy = "metadata"
	StrategyHybrid       Strategy = "hybrid"
	StrategyDisabled     Strategy = "disabled"
)

// Candidate is one retrieval-stage result being scored/reordered. Rerankers
// read Text/ContentType/Source/CreatedAt and overwrite Score; they never
// drop or add candidates (Rerank returns a permutation, not a filter).
type Candidate struct {
	ChunkID     string
	DocID       int64
	Text        string // chunk text, or a caption/metadata proxy for image chunks
	ContentType store.ContentType
	Source      string // owning document's Source, for path-prefix weighting
	CreatedAt   time.Time
	Score       float64 // in [0,1]; overwritten by Rerank
}

// Reranker reorders candidates by relevance to query. Implementations
// return a permutation of the input (same length, every ChunkID preserved)
// with Score set to the new relevance estimate in [0,1].
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error)
	Available(ctx context.Context) bool
	Close() error
}

// HybridWeights controls HybridReranker's composition of the other
// strategies. Weights need not sum to 1; HybridReranker normalizes them.
type HybridWeights struct {
	CrossEncoder float64
	TextDerived  float64
	Metadata     float64
}

// DefaultHybridWeights favors the cross-encoder signal with metadata as a
// light recency/priority nudge.
func DefaultHybridWeights() HybridWeights {
	return HybridWeights{
		CrossEncoder: 0.7,
		TextDerived:  0.2,
		Metadata:     0.1,
	}
}

// RerankConfig configures reranker construction across all five strategies.
type RerankConfig struct {
	Strategy Strategy

	// CrossEncoder settings (native-bridged or remote scoring model).
	Endpoint string
	Model    string
	Timeout  time.Duration
	PoolSize int

	// Metadata settings.
	RecencyHalfLife time.Duration     // recency score decays to 0.5 after this long
	SourcePriority  map[string]float64 // path prefix -> weight multiplier in [0,2]

	// Hybrid settings.
	HybridWeights HybridWeights

	// DegenerateThreshold, when > 0, wraps the constructed reranker with
	// WithDegenerateFallback at this variance threshold.
	DegenerateThreshold float64
	BM25Index           store.BM25Index
}

// DefaultRerankConfig returns defaults matching spec.md §4.5/§9.
func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		Strategy:        StrategyCrossEncoder,
		Endpoint:        DefaultCrossEncoderEndpoint,
		Model:           DefaultCrossEncoderModel,
		Timeout:         DefaultCrossEncoderTimeout,
		PoolSize:        DefaultCrossEncoderPoolSize,
		RecencyHalfLife: 30 * 24 * time.Hour,
		HybridWeights:   DefaultHybridWeights(),
	}
}
