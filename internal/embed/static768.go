package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/raglite-go/raglite/internal/store"
)

// Static768Dimensions is the embedding dimension for the 768-dimension static embedder.
// It equals DefaultDimensions (768).
const Static768Dimensions = 768

// StaticEmbedder768 generates 768-dimensional embeddings using a hash-based approach.
// Uses the same algorithm as StaticEmbedder but with 768 dimensions instead of 256.
type StaticEmbedder768 struct {
	mu     sync.RWMutex
	closed bool
}

// NewStaticEmbedder768 creates a new dimension-compatible static embedder.
func NewStaticEmbedder768() *StaticEmbedder768 {
	return &StaticEmbedder768{}
}

// EmbedText generates embedding for a single text.
func (e *StaticEmbedder768) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	// Handle empty/whitespace input
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, Static768Dimensions), nil
	}

	// Generate vector
	vector := e.generateVector(trimmed)

	// Normalize
	return normalizeVector(vector), nil
}

// generateVector creates a hash-based vector from text.
// Uses the same algorithm as StaticEmbedder but with 768 dimensions.
func (e *StaticEmbedder768) generateVector(text string) []float32 {
	vector := make([]float32, Static768Dimensions)

	// Step 1: Tokenize, reusing the lexical index's tokenizer
	tokens := store.Tokenize(text)

	// Step 2: Filter stop words
	tokens = store.FilterStopWords(tokens, staticStopWords)

	// Step 3: Add tokens with weight 0.7
	for _, token := range tokens {
		index := hashToIndex(token, Static768Dimensions)
		vector[index] += tokenWeight
	}

	// Step 4: Extract n-grams and add with weight 0.3
	normalized := normalizeForNgrams(text)
	ngrams := extractNgrams(normalized, ngramSize)
	for _, ngram := range ngrams {
		index := hashToIndex(ngram, Static768Dimensions)
		vector[index] += ngramWeight
	}

	return vector
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder768) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}

	return results, nil
}

// EmbedImage hashes raw image bytes the same way StaticEmbedder.EmbedImage
// does, at 768 dimensions. ModelInfo reports SupportsImage=false for the
// same reason: a byte hash carries no visual semantics.
func (e *StaticEmbedder768) EmbedImage(ctx context.Context, data []byte, mime string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	vector := make([]float32, Static768Dimensions)
	if len(data) == 0 {
		return vector, nil
	}
	h := fnv.New64()
	_, _ = h.Write(data)
	seed := h.Sum64()
	for i := range vector {
		idx := int((seed >> uint(i%56)) % uint64(Static768Dimensions))
		vector[idx] += tokenWeight
	}
	return normalizeVector(vector), nil
}

// ModelInfo describes this embedder.
func (e *StaticEmbedder768) ModelInfo() ModelInfo {
	return ModelInfo{
		Name:          "static768",
		Type:          store.ModelTypeSentenceTransformer,
		Dimensions:    Static768Dimensions,
		SupportsImage: false,
	}
}

// IsLoaded is true until Cleanup is called: no external process or model
// weights to load.
func (e *StaticEmbedder768) IsLoaded(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Load is a no-op; nothing needs loading.
func (e *StaticEmbedder768) Load(_ context.Context) error { return nil }

// Cleanup releases resources.
func (e *StaticEmbedder768) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// SetBatchIndex is a no-op for static embedder (no thermal management needed).
func (e *StaticEmbedder768) SetBatchIndex(_ int) {}

// SetFinalBatch is a no-op for static embedder (no thermal management needed).
func (e *StaticEmbedder768) SetFinalBatch(_ bool) {}
