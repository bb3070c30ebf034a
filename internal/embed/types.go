package embed

import (
	"context"
	"math"
	"time"

	"github.com/raglite-go/raglite/internal/store"
)

// Common embedding constants
const (
	// MinBatchSize is the minimum allowed batch size
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion)
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests
	DefaultBatchSize = 32

	// DefaultTimeout is the default timeout for embedding requests
	// Deprecated: Use DefaultWarmTimeout and DefaultColdTimeout instead
	DefaultTimeout = 60 * time.Second

	// DefaultWarmTimeout is the timeout for subsequent queries when the
	// model is already loaded.
	DefaultWarmTimeout = 120 * time.Second

	// DefaultColdTimeout is the timeout for the first query when the model
	// may still need loading.
	DefaultColdTimeout = 180 * time.Second

	// ModelUnloadThreshold is the duration after which a remote model
	// server is assumed to have unloaded an idle model.
	ModelUnloadThreshold = 5 * time.Minute

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3
)

// Thermal-aware batching constants, relevant to sustained local inference
// workloads (GPU/NPU throttling under long embedding runs).
const (
	// DefaultInterBatchDelay is the default pause between embedding batches.
	DefaultInterBatchDelay = 0 * time.Millisecond

	// MaxInterBatchDelay caps the cooling delay to prevent excessive slowdown.
	MaxInterBatchDelay = 5 * time.Second

	// DefaultTimeoutProgression controls how much timeout increases per
	// 1000 chunks. 1.0 = disabled.
	DefaultTimeoutProgression = 1.5

	// MaxTimeoutProgression caps the timeout multiplier.
	MaxTimeoutProgression = 3.0

	// DefaultRetryTimeoutMultiplier scales timeout on each retry attempt.
	// 1.0 = disabled.
	DefaultRetryTimeoutMultiplier = 1.0

	// MaxRetryTimeoutMultiplier caps the retry timeout scaling.
	MaxRetryTimeoutMultiplier = 2.0
)

// Static embedder constants
const (
	// StaticDimensions is the embedding dimension for the static embedder.
	StaticDimensions = 256

	// StaticWideDimensions is the embedding dimension for the wide static
	// embedder variant (static768.go).
	StaticWideDimensions = 768

	// DefaultDimensions is the fallback embedding dimension used when a
	// remote model server's dimensions cannot be auto-detected.
	DefaultDimensions = 768
)

// ModelInfo describes an embedder's identity to callers that need to
// validate it against a corpus (internal/mode, C9) or register it with the
// resource manager (internal/resource, C10).
type ModelInfo struct {
	Name          string
	Type          store.ModelType
	Dimensions    int
	SupportsImage bool
}

// Embedder generates vector embeddings for text and, for multimodal
// models, images. Implementations: StaticEmbedder/StaticEmbedder768 (pure
// Go, no external process), SentenceTransformerEmbedder (remote HTTP model
// server, text-only), CLIPEmbedder (native-bridged, multimodal).
type Embedder interface {
	// EmbedText generates an embedding for a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedImage generates an embedding for raw image bytes. Implementations
	// that do not support images return an error; internal/mode's R1 rejects
	// multimodal-mode requests against such a model before this is ever
	// called in anger.
	EmbedImage(ctx context.Context, data []byte, mime string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelInfo describes this embedder for mode/model validation and
	// resource registration.
	ModelInfo() ModelInfo

	// IsLoaded reports whether the model is ready to serve requests
	// without an additional load step.
	IsLoaded(ctx context.Context) bool

	// Load prepares the model to serve requests (starts a subprocess,
	// opens a connection, dlopens a library). A no-op for embedders with
	// no separate load step.
	Load(ctx context.Context) error

	// Cleanup releases resources. The engine registers embedders with
	// internal/resource through an adapter whose Close calls Cleanup; see
	// internal/engine/resource.go.
	Cleanup() error

	// SetBatchIndex sets the batch index for thermal timeout progression,
	// used when resuming from a checkpoint to keep the correct position.
	SetBatchIndex(idx int)

	// SetFinalBatch marks the embedder as processing the final batch,
	// triggering a timeout boost for peak thermal throttling.
	SetFinalBatch(isFinal bool)
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v // Return as-is if zero vector
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
