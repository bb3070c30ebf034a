package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReranker assigns a fixed score per ChunkID without reordering.
type fakeReranker struct {
	scores    map[string]float64
	available bool
	closed    bool
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, candidates []Candidate) ([]Candidate, error) {
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = f.scores[c.ChunkID]
		out[i] = c
	}
	return out, nil
}

func (f *fakeReranker) Available(_ context.Context) bool { return f.available }
func (f *fakeReranker) Close() error                     { f.closed = true; return nil }

func TestHybridReranker_Rerank_WeightsComposition(t *testing.T) {
	ce := &fakeReranker{scores: map[string]float64{"a": 1.0, "b": 0.0}, available: true}
	td := &fakeReranker{scores: map[string]float64{"a": 0.0, "b": 1.0}, available: true}

	h := NewHybridReranker(ce, td, nil, HybridWeights{CrossEncoder: 1, TextDerived: 1})
	results, err := h.Rerank(context.Background(), "query", candidates("a", "b"))

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 0.5, results[0].Score, 0.001)
	assert.InDelta(t, 0.5, results[1].Score, 0.001)
}

func TestHybridReranker_Rerank_NilComponentExcludedFromNormalization(t *testing.T) {
	ce := &fakeReranker{scores: map[string]float64{"a": 0.8}, available: true}

	h := NewHybridReranker(ce, nil, nil, HybridWeights{CrossEncoder: 0.7, TextDerived: 0.2, Metadata: 0.1})
	results, err := h.Rerank(context.Background(), "query", candidates("a"))

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.8, results[0].Score, 0.001)
}

func TestHybridReranker_Rerank_EmptyCandidates(t *testing.T) {
	h := NewHybridReranker(nil, nil, nil, DefaultHybridWeights())
	results, err := h.Rerank(context.Background(), "query", []Candidate{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHybridReranker_Available_FalseWhenWeightedComponentUnavailable(t *testing.T) {
	ce := &fakeReranker{available: false}
	h := NewHybridReranker(ce, nil, nil, HybridWeights{CrossEncoder: 1})
	assert.False(t, h.Available(context.Background()))
}

func TestHybridReranker_Available_IgnoresZeroWeightComponent(t *testing.T) {
	ce := &fakeReranker{available: true}
	td := &fakeReranker{available: false}
	h := NewHybridReranker(ce, td, nil, HybridWeights{CrossEncoder: 1, TextDerived: 0})
	assert.True(t, h.Available(context.Background()))
}

func TestHybridReranker_Close_ClosesAllComponents(t *testing.T) {
	ce := &fakeReranker{}
	td := &fakeReranker{}
	h := NewHybridReranker(ce, td, nil, DefaultHybridWeights())

	require.NoError(t, h.Close())
	assert.True(t, ce.closed)
	assert.True(t, td.closed)
}

func TestHybridReranker_InterfaceCompliance(t *testing.T) {
	var _ Reranker = (*HybridReranker)(nil)
}
