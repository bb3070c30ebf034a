package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextDerivedReranker_Rerank_OrdersByOverlap(t *testing.T) {
	reranker := NewTextDerivedReranker()
	cands := []Candidate{
		{ChunkID: "low", Text: "completely unrelated filler content"},
		{ChunkID: "high", Text: "golang concurrency patterns with channels"},
		{ChunkID: "mid", Text: "channels in distributed systems"},
	}

	results, err := reranker.Rerank(context.Background(), "golang channels concurrency", cands)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "high", results[0].ChunkID)
	assert.Equal(t, "low", results[2].ChunkID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.GreaterOrEqual(t, results[1].Score, results[2].Score)
}

func TestTextDerivedReranker_Rerank_NoOverlapScoresZero(t *testing.T) {
	reranker := NewTextDerivedReranker()
	cands := []Candidate{{ChunkID: "c1", Text: "alpha beta gamma"}}

	results, err := reranker.Rerank(context.Background(), "zzz qqq xyz", cands)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestTextDerivedReranker_Rerank_EmptyCandidates(t *testing.T) {
	reranker := NewTextDerivedReranker()
	results, err := reranker.Rerank(context.Background(), "query", []Candidate{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTextDerivedReranker_Available(t *testing.T) {
	reranker := NewTextDerivedReranker()
	assert.True(t, reranker.Available(context.Background()))
}

func TestTextDerivedReranker_InterfaceCompliance(t *testing.T) {
	var _ Reranker = (*TextDerivedReranker)(nil)
}
