package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Cross-encoder reranker configuration defaults.
const (
	DefaultCrossEncoderEndpoint = "http://localhost:9659" // same host as the embedder's model server
	DefaultCrossEncoderModel    = "reranker-small"
	DefaultCrossEncoderTimeout  = 30 * time.Second
	DefaultCrossEncoderPoolSize = 50
)

// CrossEncoderConfig holds configuration for CrossEncoderReranker.
type CrossEncoderConfig struct {
	// Endpoint is the scoring server URL.
	Endpoint string

	// Model is the reranker model alias.
	Model string

	// Timeout is the request timeout.
	Timeout time.Duration

	// PoolSize is the default number of candidates to rerank.
	PoolSize int

	// SkipHealthCheck skips the health check during construction (for testing).
	SkipHealthCheck bool

	// Instruction is a custom instruction prefix for the scoring model.
	Instruction string
}

// DefaultCrossEncoderConfig returns default cross-encoder configuration.
func DefaultCrossEncoderConfig() CrossEncoderConfig {
	return CrossEncoderConfig{
		Endpoint: DefaultCrossEncoderEndpoint,
		Model:    DefaultCrossEncoderModel,
		Timeout:  DefaultCrossEncoderTimeout,
		PoolSize: DefaultCrossEncoderPoolSize,
	}
}

// CrossEncoderReranker scores (query, candidate_text) pairs via a secondary
// scoring model reachable over HTTP, reusing the same connection-pooling
// client shape internal/embed's SentenceTransformerEmbedder uses. This is
// the default strategy for text-mode corpora.
type CrossEncoderReranker struct {
	client   *http.Client
	config   CrossEncoderConfig
	mu       sync.RWMutex
	closed   bool
	endpoint string
}

var _ Reranker = (*CrossEncoderReranker)(nil)

// NewCrossEncoderReranker creates a new cross-encoder reranker client.
func NewCrossEncoderReranker(ctx context.Context, cfg CrossEncoderConfig) (*CrossEncoderReranker, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultCrossEncoderEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCrossEncoderModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultCrossEncoderTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = DefaultCrossEncoderPoolSize
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	r := &CrossEncoderReranker{
		client:   client,
		config:   cfg,
		endpoint: cfg.Endpoint,
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := r.healthCheck(checkCtx); err != nil {
			return nil, fmt.Errorf("cross-encoder reranker health check failed: %w", err)
		}
	}

	slog.Debug("crossencoder_reranker_created",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("model", cfg.Model),
		slog.Duration("timeout", cfg.Timeout),
		slog.Int("pool_size", cfg.PoolSize))

	return r, nil
}

func (r *CrossEncoderReranker) healthCheck(ctx context.Context) error {
	url := r.endpoint + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to reranker server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reranker server unhealthy (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}

type rerankRequest struct {
	Query       string   `json:"query"`
	Documents   []string `json:"documents"`
	Model       string   `json:"model,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
	Model            string  `json:"model"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

// Rerank scores candidates against query and returns them reordered by
// descending score. Candidate.ChunkID/DocID/ContentType/Source/CreatedAt
// are carried through unchanged; only order and Score change.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	start := time.Now()

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, fmt.Errorf("reranker is closed")
	}
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return []Candidate{}, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Text
	}

	reqBody := rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     r.config.Model,
	}
	if r.config.Instruction != "" {
		reqBody.Instruction = r.config.Instruction
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	url := r.endpoint + "/rerank"
	timeoutCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	if len(result.Results) != len(candidates) {
		return nil, fmt.Errorf("rerank response returned %d scores for %d candidates", len(result.Results), len(candidates))
	}

	reordered := make([]Candidate, len(result.Results))
	for i, res := range result.Results {
		c := candidates[res.Index]
		c.Score = res.Score
		reordered[i] = c
	}

	slog.Debug("crossencoder_rerank_timing",
		slog.Int("candidate_count", len(candidates)),
		slog.Duration("total", time.Since(start)),
		slog.Float64("server_time_ms", result.ProcessingTimeMs))

	return reordered, nil
}

// Available checks if the reranker service is reachable.
func (r *CrossEncoderReranker) Available(ctx context.Context) bool {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return false
	}
	r.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.healthCheck(checkCtx) == nil
}

// Close releases the connection pool.
func (r *CrossEncoderReranker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if transport, ok := r.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}

	return nil
}
