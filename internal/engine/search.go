package engine

import (
	"context"
	"time"

	"github.com/raglite-go/raglite/internal/content"
	"github.com/raglite-go/raglite/internal/search"
	"github.com/raglite-go/raglite/internal/telemetry"
)

// Search resolves query into a ranked set of chunks via the wired search
// pipeline (C8), defaulting opts.TopK to the corpus's configured
// cfg.Search.TopK and opts.Rerank to cfg.Search.EnableReranking when the
// caller leaves them unset. Every call is recorded in the corpus's query
// telemetry (internal/telemetry), recorded regardless of the outcome.
func (e *Engine) Search(ctx context.Context, query string, opts search.QueryOptions) ([]search.Result, error) {
	if opts.TopK <= 0 {
		opts.TopK = e.cfg.Search.TopK
	}
	if !opts.Rerank {
		opts.Rerank = e.cfg.Search.EnableReranking
	}

	start := time.Now()
	results, err := e.searchPipeline.Search(ctx, query, opts)

	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		QueryType:   telemetry.QueryTypeMixed,
		ResultCount: len(results),
		Latency:     time.Since(start),
		Timestamp:   time.Now(),
	})

	return results, err
}

// GetContent retrieves a content-addressed blob by its handle (C2),
// typically a chunk's ContentID for image/large-text content that does
// not inline into search results.
func (e *Engine) GetContent(ctx context.Context, contentID string, format content.Format) (content.GetResult, error) {
	return e.contentS.Get(ctx, contentID, format)
}
