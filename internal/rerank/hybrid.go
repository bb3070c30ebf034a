package rerank

import (
	"context"
	"fmt"
	"sort"
)

// HybridReranker composes the cross-encoder, text-derived, and metadata
// strategies into a single weighted score. Any of the three sub-rerankers
// may be nil, in which case its weight is treated as 0 and excluded from
// normalization.
type HybridReranker struct {
	crossEncoder Reranker
	textDerived  Reranker
	metadata     Reranker
	weights      HybridWeights
}

var _ Reranker = (*HybridReranker)(nil)

// NewHybridReranker creates a hybrid reranker. weights need not sum to 1;
// Rerank normalizes by the sum of weights whose reranker is non-nil.
func NewHybridReranker(crossEncoder, textDerived, metadata Reranker, weights HybridWeights) *HybridReranker {
	return &HybridReranker{
		crossEncoder: crossEncoder,
		textDerived:  textDerived,
		metadata:     metadata,
		weights:      weights,
	}
}

func (h *HybridReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return []Candidate{}, nil
	}

	type weighted struct {
		r      Reranker
		weight float64
	}
	components := []weighted{
		{h.crossEncoder, h.weights.CrossEncoder},
		{h.textDerived, h.weights.TextDerived},
		{h.metadata, h.weights.Metadata},
	}

	totalWeight := 0.0
	scoresByChunk := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		scoresByChunk[c.ChunkID] = 0
	}

	for _, comp := range components {
		if comp.r == nil || comp.weight == 0 {
			continue
		}
		results, err := comp.r.Rerank(ctx, query, candidates)
		if err != nil {
			return nil, fmt.Errorf("hybrid rerank: component failed: %w", err)
		}
		for _, res := range results {
			scoresByChunk[res.ChunkID] += res.Score * comp.weight
		}
		totalWeight += comp.weight
	}

	merged := make([]Candidate, len(candidates))
	copy(merged, candidates)
	if totalWeight > 0 {
		for i := range merged {
			merged[i].Score = clamp01(scoresByChunk[merged[i].ChunkID] / totalWeight)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	return merged, nil
}

// Available reports true only if every weighted component is available;
// a hybrid score with a missing component would silently under-weight it.
func (h *HybridReranker) Available(ctx context.Context) bool {
	if h.crossEncoder != nil && h.weights.CrossEncoder > 0 && !h.crossEncoder.Available(ctx) {
		return false
	}
	if h.textDerived != nil && h.weights.TextDerived > 0 && !h.textDerived.Available(ctx) {
		return false
	}
	if h.metadata != nil && h.weights.Metadata > 0 && !h.metadata.Available(ctx) {
		return false
	}
	return true
}

func (h *HybridReranker) Close() error {
	var errs []error
	for _, r := range []Reranker{h.crossEncoder, h.textDerived, h.metadata} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("hybrid reranker close: %v", errs)
	}
	return nil
}
