package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/raglite-go/raglite/internal/store"
)

// StaticEmbedder generates embeddings using a hash-based approach.
// Works without external dependencies (no network, no model download).
// Provides deterministic, fast embeddings with reduced semantic quality.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

// staticStopWords reuses the same prose stop list the lexical index
// filters on, so the static embedder and BM25 agree on which tokens
// carry signal.
var staticStopWords = store.BuildStopWordMap(store.DefaultStopWords)

// Weights for vector generation
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// NewStaticEmbedder creates a new static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// EmbedText generates embedding for a single text.
func (e *StaticEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	// Handle empty/whitespace input
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}

	// Generate vector
	vector := e.generateVector(trimmed)

	// Normalize
	return normalizeVector(vector), nil
}

// generateVector creates a hash-based vector from text.
func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, StaticDimensions)

	// Step 1: Tokenize, reusing the lexical index's tokenizer so both
	// layers split identifiers and compound words the same way.
	tokens := store.Tokenize(text)

	// Step 2: Filter stop words
	tokens = store.FilterStopWords(tokens, staticStopWords)

	// Step 3: Add tokens with weight 0.7
	for _, token := range tokens {
		index := hashToIndex(token, StaticDimensions)
		vector[index] += tokenWeight
	}

	// Step 4: Extract n-grams and add with weight 0.3
	normalized := normalizeForNgrams(text)
	ngrams := extractNgrams(normalized, ngramSize)
	for _, ngram := range ngrams {
		index := hashToIndex(ngram, StaticDimensions)
		vector[index] += ngramWeight
	}

	return vector
}

// normalizeForNgrams prepares text for n-gram extraction.
func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// extractNgrams extracts n-character sliding windows.
func extractNgrams(text string, n int) []string {
	// Return empty slice, not nil, for consistent API behavior (DEBT-012)
	if len(text) < n {
		return []string{}
	}

	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

// hashToIndex uses FNV-64 to map a string to an index.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

// EmbedImage hashes raw image bytes with FNV-64 and spreads the resulting
// seed over the vector, treating them as an opaque byte stream (the
// token/n-gram generator used for text is not involved).
// This keeps StaticEmbedder a complete Embedder for interface-conformance
// and local testing, but its ModelInfo reports SupportsImage=false: a
// hash of raw bytes carries no visual semantics, and internal/mode's R1
// rejects multimodal-mode requests against it before this is ever called
// for a real corpus.
func (e *StaticEmbedder) EmbedImage(ctx context.Context, data []byte, mime string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	vector := make([]float32, StaticDimensions)
	if len(data) == 0 {
		return vector, nil
	}
	h := fnv.New64()
	_, _ = h.Write(data)
	seed := h.Sum64()
	for i := range vector {
		idx := int((seed >> uint(i%56)) % uint64(StaticDimensions))
		vector[idx] += tokenWeight
	}
	return normalizeVector(vector), nil
}

// ModelInfo describes this embedder.
func (e *StaticEmbedder) ModelInfo() ModelInfo {
	return ModelInfo{
		Name:          "static",
		Type:          store.ModelTypeSentenceTransformer,
		Dimensions:    StaticDimensions,
		SupportsImage: false,
	}
}

// IsLoaded is true until Cleanup is called: the static embedder has no
// external process or model weights to load.
func (e *StaticEmbedder) IsLoaded(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Load is a no-op; nothing needs loading.
func (e *StaticEmbedder) Load(_ context.Context) error { return nil }

// Cleanup releases resources.
func (e *StaticEmbedder) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// SetBatchIndex is a no-op for static embedder (no thermal management needed).
func (e *StaticEmbedder) SetBatchIndex(_ int) {}

// SetFinalBatch is a no-op for static embedder (no thermal management needed).
func (e *StaticEmbedder) SetFinalBatch(_ bool) {}
