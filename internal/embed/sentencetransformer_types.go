package embed

import "time"

// SentenceTransformer API constants. The embedder talks to a local model
// server over the same request/response shape Ollama exposes for embedding
// models (a common convention several sentence-transformer serving
// wrappers also adopt), so the HTTP client below stays host-agnostic.
const (
	// DefaultSentenceTransformerHost is the default local model server endpoint
	DefaultSentenceTransformerHost = "http://localhost:11434"

	// DefaultSentenceTransformerModel is the recommended general-purpose
	// sentence embedding model.
	DefaultSentenceTransformerModel = "all-minilm"

	// SentenceTransformerConnectTimeout for initial health check
	SentenceTransformerConnectTimeout = 5 * time.Second

	// SentenceTransformerPoolSize for connection pool
	SentenceTransformerPoolSize = 4
)

// FallbackSentenceTransformerModels are tried in order if the primary
// model is unavailable on the configured server.
var FallbackSentenceTransformerModels = []string{
	"nomic-embed-text",
	"mxbai-embed-large",
}

// SentenceTransformerConfig configures the SentenceTransformer embedder
type SentenceTransformerConfig struct {
	// Host is the SentenceTransformer API endpoint (default: http://localhost:11434)
	Host string

	// Model is the embedding model to use (default: all-minilm)
	Model string

	// FallbackModels are tried in order if primary model unavailable
	FallbackModels []string

	// Dimensions can be set to override auto-detection (0 = auto-detect)
	Dimensions int

	// BatchSize for batch embedding requests (default: 32)
	BatchSize int

	// Timeout for API requests (default: 60s)
	Timeout time.Duration

	// ConnectTimeout for initial health check (default: 5s)
	ConnectTimeout time.Duration

	// MaxRetries for transient failures (default: 3)
	MaxRetries int

	// PoolSize for HTTP connection pool (default: 4)
	PoolSize int

	// SkipHealthCheck skips initial SentenceTransformer availability check (for testing)
	SkipHealthCheck bool

	// ProgressFunc is called after each batch with (completed, total) counts
	// This allows callers to display progress during embedding
	ProgressFunc func(completed, total int)

	// Thermal management settings for sustained GPU workloads (Apple Silicon)
	// InterBatchDelay is the pause between embedding batches (default: 0, disabled)
	InterBatchDelay time.Duration

	// TimeoutProgression increases timeout for later batches (1.0 = no increase)
	// Formula: effectiveTimeout = baseTimeout * (1 + (batchIndex*BatchSize/1000) * (TimeoutProgression - 1))
	TimeoutProgression float64

	// RetryTimeoutMultiplier scales timeout on each retry (1.0 = no scaling)
	// Formula: retryTimeout = baseTimeout * (RetryTimeoutMultiplier ^ attemptNumber)
	RetryTimeoutMultiplier float64
}

// DefaultSentenceTransformerConfig returns sensible defaults
func DefaultSentenceTransformerConfig() SentenceTransformerConfig {
	return SentenceTransformerConfig{
		Host:           DefaultSentenceTransformerHost,
		Model:          DefaultSentenceTransformerModel,
		FallbackModels: FallbackSentenceTransformerModels,
		Dimensions:     0, // Auto-detect
		BatchSize:      DefaultBatchSize,
		Timeout:        DefaultTimeout,
		ConnectTimeout: SentenceTransformerConnectTimeout,
		MaxRetries:     DefaultMaxRetries,
		PoolSize:       SentenceTransformerPoolSize,
		// Thermal management defaults (no inter-batch delay, no retry timeout
		// scaling; timeout progression 1.5)
		InterBatchDelay:        DefaultInterBatchDelay,
		TimeoutProgression:     DefaultTimeoutProgression,
		RetryTimeoutMultiplier: DefaultRetryTimeoutMultiplier,
	}
}

// SentenceTransformerEmbedRequest is the SentenceTransformer /api/embed request
type SentenceTransformerEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"` // string or []string for batch
}

// SentenceTransformerEmbedResponse is the SentenceTransformer /api/embed response
type SentenceTransformerEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// SentenceTransformerModelListResponse is the SentenceTransformer /api/tags response
type SentenceTransformerModelListResponse struct {
	Models []SentenceTransformerModelInfo `json:"models"`
}

// SentenceTransformerModelInfo describes an installed model
type SentenceTransformerModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}
