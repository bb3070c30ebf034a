package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(ids ...string) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ChunkID: id, Text: id}
	}
	return out
}

func TestDisabledReranker_Rerank_PreservesOrder(t *testing.T) {
	reranker := &DisabledReranker{}
	results, err := reranker.Rerank(context.Background(), "query", candidates("c1", "c2", "c3"))

	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "c1", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)

	assert.Equal(t, "c2", results[1].ChunkID)
	assert.InDelta(t, 0.99, results[1].Score, 0.001)

	assert.Equal(t, "c3", results[2].ChunkID)
	assert.InDelta(t, 0.98, results[2].Score, 0.001)
}

func TestDisabledReranker_Rerank_EmptyCandidates(t *testing.T) {
	reranker := &DisabledReranker{}
	results, err := reranker.Rerank(context.Background(), "query", []Candidate{})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDisabledReranker_Available(t *testing.T) {
	reranker := &DisabledReranker{}
	assert.True(t, reranker.Available(context.Background()))
}

func TestDisabledReranker_Close(t *testing.T) {
	reranker := &DisabledReranker{}
	assert.NoError(t, reranker.Close())
}

func TestDisabledReranker_InterfaceCompliance(t *testing.T) {
	var _ Reranker = (*DisabledReranker)(nil)
}
