package rerank

import (
	"context"
	"sort"

	"github.com/raglite-go/raglite/internal/store"
)

// TextDerivedReranker scores multimodal candidates by token overlap between
// the query and each candidate's textual proxy (Candidate.Text: a caption
// for image chunks, raw text for text chunks). It needs no scoring model,
// so it is the default for multimodal mode where a text-only cross-encoder
// cannot meaningfully score an image chunk's embedding directly.
//
// Grounded on the teacher's BM25 tokenization (internal/store/tokenizer.go)
// rather than a new tokenizer: Tokenize already lowercases, splits
// camelCase/snake_case, and drops short tokens, which is exactly the
// normalization a term-overlap score needs.
type TextDerivedReranker struct{}

var _ Reranker = (*TextDerivedReranker)(nil)

// NewTextDerivedReranker creates a text-derived reranker. It has no external
// dependency to fail on, so construction cannot error.
func NewTextDerivedReranker() *TextDerivedReranker {
	return &TextDerivedReranker{}
}

func (t *TextDerivedReranker) Rerank(_ context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return []Candidate{}, nil
	}

	queryTokens := tokenSet(query)

	scored := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = jaccard(queryTokens, tokenSet(c.Text))
		scored[i] = c
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored, nil
}

func (t *TextDerivedReranker) Available(_ context.Context) bool { return true }

func (t *TextDerivedReranker) Close() error { return nil }

func tokenSet(text string) map[string]struct{} {
	tokens := store.Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// jaccard computes |a ∩ b| / |a ∪ b|, 0 when both sets are empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
