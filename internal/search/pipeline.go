package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/raglite-go/raglite/internal/embed"
	"github.com/raglite-go/raglite/internal/ragerr"
	"github.com/raglite-go/raglite/internal/rerank"
	"github.com/raglite-go/raglite/internal/store"
)

// Config wires a Pipeline to one corpus's retrieval stack. Reranker is
// fixed at construction time to whatever strategy the corpus's SystemInfo
// records: a corpus always reranks the way it was built, so Pipeline never
// reselects a strategy per query.
type Config struct {
	Metadata    store.MetadataStore
	VectorIndex *store.VectorIndex
	BM25        store.BM25Index
	Embedder    embed.Embedder
	Reranker    rerank.Reranker
}

// Pipeline resolves a query into a ranked set of chunks (C8).
type Pipeline struct {
	config Config
}

// NewPipeline constructs a Pipeline from its wired dependencies.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{config: cfg}
}

// Search embeds query, runs an ANN search for candidates, hydrates their
// chunk rows, optionally reranks, and returns up to opts.TopK results
// ordered by descending score (ties broken by ascending doc id, then
// chunk index).
func (p *Pipeline) Search(ctx context.Context, query string, opts QueryOptions) ([]Result, error) {
	if !opts.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, opts.Deadline)
		defer cancel()
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	expansion := opts.RerankExpansion
	if expansion <= 0 {
		expansion = DefaultRerankExpansion
	}
	candidateK := topK
	if opts.Rerank {
		candidateK = topK * expansion
	}

	info, err := p.config.Metadata.GetSystemInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("load system info: %w", err)
	}
	if info == nil {
		return []Result{}, nil
	}

	queryVec, err := p.config.Embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vecResults, err := p.config.VectorIndex.Search(queryVec, candidateK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	ids := make([]string, len(vecResults))
	scoreByID := make(map[string]float64, len(vecResults))
	for i, r := range vecResults {
		ids[i] = r.EmbeddingID
		scoreByID[r.EmbeddingID] = clamp01(float64(r.Score))
	}

	if opts.BM25Assist && p.config.BM25 != nil {
		if err := p.assistWithBM25(ctx, query, candidateK, &ids, scoreByID); err != nil {
			slog.Warn("search: bm25 assist failed", slog.String("error", err.Error()))
		}
	}

	chunks, err := p.config.Metadata.GetChunksByEmbeddingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}
	if len(chunks) < len(ids) {
		slog.Warn("search: vector index referenced embeddings with no chunk row",
			slog.Int("requested", len(ids)), slog.Int("found", len(chunks)))
	}

	results, err := p.hydrate(ctx, chunks, scoreByID, opts)
	if err != nil {
		return nil, err
	}

	if opts.Rerank && p.config.Reranker != nil && len(results) > 0 {
		results, err = p.rerankResults(ctx, query, results)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocID != results[j].DocID {
			return results[i].DocID < results[j].DocID
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// assistWithBM25 unions BM25's top lexical matches into ids/scoreByID,
// reusing the teacher's RRFFusion (fusion.go) as a candidate union rather
// than a final-score fusion: the fused rank determines only which extra
// ids join the ANN candidate set, not their eventual Result.Score (that
// stays cosine-similarity- or rerank-derived, per spec.md §4.8).
func (p *Pipeline) assistWithBM25(ctx context.Context, query string, limit int, ids *[]string, scoreByID map[string]float64) error {
	lexical, err := p.config.BM25.Search(ctx, query, limit)
	if err != nil {
		return err
	}
	if len(lexical) == 0 {
		return nil
	}

	vec := make([]*store.VectorResult, len(*ids))
	for i, id := range *ids {
		vec[i] = &store.VectorResult{EmbeddingID: id, Score: float32(scoreByID[id])}
	}
	fused := NewRRFFusion().Fuse(lexical, vec, DefaultWeights())

	for _, f := range fused {
		if _, ok := scoreByID[f.ChunkID]; ok {
			continue
		}
		*ids = append(*ids, f.ChunkID)
		scoreByID[f.ChunkID] = f.RRFScore
	}
	return nil
}

func (p *Pipeline) hydrate(ctx context.Context, chunks []*store.Chunk, scoreByID map[string]float64, opts QueryOptions) ([]Result, error) {
	docCache := make(map[int64]*store.Document)
	results := make([]Result, 0, len(chunks))
	for _, c := range chunks {
		if opts.ContentTypeFilter != "" && c.ContentType != opts.ContentTypeFilter {
			continue
		}
		doc, ok := docCache[c.DocID]
		if !ok {
			var err error
			doc, err = p.config.Metadata.GetDocument(ctx, c.DocID)
			if err != nil {
				return nil, ragerr.Wrap(ragerr.KindIndexDesync, err)
			}
			docCache[c.DocID] = doc
		}
		source := ""
		if doc != nil {
			source = doc.Source
		}
		results = append(results, Result{
			ChunkID:     c.ChunkID,
			DocID:       c.DocID,
			Source:      source,
			ChunkIndex:  c.ChunkIndex,
			Text:        c.Text,
			ContentType: c.ContentType,
			ContentID:   c.ContentID,
			Score:       scoreByID[c.EmbeddingID],
		})
	}
	return results, nil
}

func (p *Pipeline) rerankResults(ctx context.Context, query string, results []Result) ([]Result, error) {
	candidates := make([]rerank.Candidate, len(results))
	byChunkID := make(map[string]int, len(results))
	for i, r := range results {
		candidates[i] = rerank.Candidate{
			ChunkID:     r.ChunkID,
			DocID:       r.DocID,
			Text:        r.Text,
			ContentType: r.ContentType,
			Source:      r.Source,
			Score:       r.Score,
		}
		byChunkID[r.ChunkID] = i
	}

	reranked, err := p.config.Reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(reranked))
	for i, c := range reranked {
		idx, ok := byChunkID[c.ChunkID]
		if !ok {
			continue
		}
		r := results[idx]
		r.Score = clamp01(c.Score)
		out[i] = r
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
