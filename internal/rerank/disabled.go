package rerank

import "context"

// DisabledReranker passes candidates through unchanged except for a
// deterministic decreasing score, preserving the input order. Generalized
// from the teacher's NoOpReranker: used when a corpus opts out of
// reranking, and as the base case HybridReranker/WithDegenerateFallback
// fall back to when nothing else is available.
type DisabledReranker struct{}

var _ Reranker = (*DisabledReranker)(nil)

func (d *DisabledReranker) Rerank(_ context.Context, _ string, candidates []Candidate) ([]Candidate, error) {
	results := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = 1.0 - float64(i)*0.01
		results[i] = c
	}
	return results, nil
}

func (d *DisabledReranker) Available(_ context.Context) bool { return true }

func (d *DisabledReranker) Close() error { return nil }
