// Package search implements the Search Pipeline (C8): given a query,
// resolve the corpus's embedding space, run an ANN search, hydrate the
// matching chunks, optionally rerank, and return an ordered, deduplicated
// result set. Generalized from the teacher's search.Engine (fixed
// RRF-of-BM25-and-vector fusion) into the ANN-first, optional-rerank flow.
package search

import (
	"time"

	"github.com/raglite-go/raglite/internal/rerank"
	"github.com/raglite-go/raglite/internal/store"
)

// DefaultRerankExpansion is how many extra ANN candidates to fetch per
// requested result before reranking narrows back down to TopK. Reranking
// only helps if it has more candidates than TopK to choose among.
const DefaultRerankExpansion = 4

// QueryOptions parametrizes one Search call.
type QueryOptions struct {
	TopK int

	Rerank   bool
	Strategy rerank.Strategy

	// ContentTypeFilter, if non-empty, restricts results to one modality.
	ContentTypeFilter store.ContentType

	// RerankExpansion overrides DefaultRerankExpansion.
	RerankExpansion int

	// BM25Assist unions BM25's top lexical matches into the ANN candidate
	// set before reranking, for queries the embedding space alone misses
	// (exact identifiers, error codes, quoted phrases).
	BM25Assist bool

	// Deadline bounds the whole call (§5's timeout contract); zero means
	// ctx's own deadline, if any, applies instead.
	Deadline time.Time
}

// Result is one ranked chunk returned by Search.
type Result struct {
	ChunkID     string
	DocID       int64
	Source      string
	ChunkIndex  int
	Text        string
	ContentType store.ContentType
	ContentID   string
	Score       float64
}
