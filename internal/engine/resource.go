package engine

import (
	"github.com/raglite-go/raglite/internal/embed"
	"github.com/raglite-go/raglite/internal/rerank"
)

// embedderResource adapts embed.Embedder to resource.Resource: Close
// aliases Cleanup, and MemoryBytes defers to the embedder's own estimate
// when it reports one (e.g. embed.CachedEmbedder's LRU footprint),
// falling back to zero for embedders with no meaningful resident cost
// (e.g. embed.StaticEmbedder).
type embedderResource struct {
	embed.Embedder
}

func newEmbedderResource(e embed.Embedder) *embedderResource {
	return &embedderResource{Embedder: e}
}

func (r *embedderResource) Close() error {
	return r.Embedder.Cleanup()
}

func (r *embedderResource) MemoryBytes() int64 {
	if m, ok := r.Embedder.(interface{ MemoryBytes() int64 }); ok {
		return m.MemoryBytes()
	}
	return 0
}

// rerankerResource adapts rerank.Reranker to resource.Resource. Rerankers
// already expose Close(); only MemoryBytes needs adapting.
type rerankerResource struct {
	rerank.Reranker
}

func newRerankerResource(r rerank.Reranker) *rerankerResource {
	return &rerankerResource{Reranker: r}
}

func (r *rerankerResource) MemoryBytes() int64 {
	if m, ok := r.Reranker.(interface{ MemoryBytes() int64 }); ok {
		return m.MemoryBytes()
	}
	return 0
}
