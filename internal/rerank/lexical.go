package rerank

import (
	"context"
	"sort"

	"github.com/raglite-go/raglite/internal/store"
)

// LexicalFallback wraps a Reranker and substitutes a deterministic
// BM25-style lexical score whenever the wrapped reranker's output is
// degenerate (all candidates scored near-identically, which a broken or
// misconfigured scoring model can produce silently). index is the
// teacher's existing BM25 engine (internal/store/bm25.go), reused here
// rather than re-derived, since it already indexes every chunk by ChunkID.
type LexicalFallback struct {
	inner     Reranker
	index     store.BM25Index
	threshold float64
}

var _ Reranker = (*LexicalFallback)(nil)

// WithDegenerateFallback wraps r so that when the range (max-min) of its
// output scores falls below threshold, those scores are discarded in favor
// of a BM25 search against index.
func WithDegenerateFallback(r Reranker, index store.BM25Index, threshold float64) *LexicalFallback {
	return &LexicalFallback{inner: r, index: index, threshold: threshold}
}

func (f *LexicalFallback) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return []Candidate{}, nil
	}

	results, err := f.inner.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, err
	}

	if !isDegenerate(results, f.threshold) {
		return results, nil
	}

	return f.lexicalRerank(ctx, query, candidates)
}

// isDegenerate reports whether scores range(max-min) < threshold. A single
// candidate is never degenerate: there is nothing to distinguish it from.
func isDegenerate(results []Candidate, threshold float64) bool {
	if len(results) < 2 {
		return false
	}
	min, max := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}
	return (max - min) < threshold
}

func (f *LexicalFallback) lexicalRerank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	bm25Results, err := f.index.Search(ctx, query, len(candidates))
	if err != nil {
		return nil, err
	}

	scoreByID := make(map[string]float64, len(bm25Results))
	minScore, maxScore := 0.0, 0.0
	for i, r := range bm25Results {
		scoreByID[r.DocID] = r.Score
		if i == 0 {
			minScore, maxScore = r.Score, r.Score
			continue
		}
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	spread := maxScore - minScore
	merged := make([]Candidate, len(candidates))
	for i, c := range candidates {
		raw, found := scoreByID[c.ChunkID]
		switch {
		case !found:
			c.Score = 0
		case spread > 0:
			c.Score = (raw - minScore) / spread
		default:
			c.Score = 1.0
		}
		merged[i] = c
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	return merged, nil
}

func (f *LexicalFallback) Available(ctx context.Context) bool {
	return f.inner.Available(ctx)
}

func (f *LexicalFallback) Close() error {
	return f.inner.Close()
}
