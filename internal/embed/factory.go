package embed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderSentenceTransformer uses SentenceTransformer API for embeddings (default provider, text-only)
	ProviderSentenceTransformer ProviderType = "sentencetransformer"

	// ProviderCLIP uses a native CLIP library for joint text/image embeddings (opt-in, multimodal mode)
	ProviderCLIP ProviderType = "clip"

	// ProviderStatic uses hash-based embeddings (only when selected explicitly; never an automatic fallback)
	ProviderStatic ProviderType = "static"
)

// NewEmbedder creates an embedder based on provider type with automatic fallback.
// The RAGLITE_EMBEDDER environment variable can override the provider:
//   - "sentencetransformer": Use SentenceTransformerEmbedder (default provider, text-only)
//   - "clip": Use CLIPEmbedder (opt-in, required for multimodal mode)
//   - "static": Use StaticEmbedder768 (only when selected explicitly)
//
// Query embedding caching is enabled by default (saves 50-200ms per repeated query).
// Set RAGLITE_EMBED_CACHE=false to disable caching.
func NewEmbedder(ctx context.Context, provider ProviderType, model string) (Embedder, error) {
	var embedder Embedder
	var err error

	// Check for environment variable override
	// BUG-041: Track explicit selection to prevent silent fallback
	envProvider := os.Getenv("RAGLITE_EMBEDDER")
	explicitSelection := envProvider != ""
	if envProvider != "" {
		switch strings.ToLower(envProvider) {
		case "clip":
			embedder, err = newCLIPWithFallback(ctx, explicitSelection)
		case "sentencetransformer":
			embedder, err = newSentenceTransformerWithFallback(ctx, model, explicitSelection)
		case "static":
			embedder, err = NewStaticEmbedder768(), nil
		}
	}

	// If no override or unrecognized, use provider switch
	// These are auto-detection scenarios, so allow fallback (explicitSelection = false)
	if embedder == nil && err == nil {
		switch provider {
		case ProviderCLIP:
			embedder, err = newCLIPWithFallback(ctx, false)

		case ProviderSentenceTransformer:
			embedder, err = newSentenceTransformerWithFallback(ctx, model, false)

		case ProviderStatic:
			embedder, err = NewStaticEmbedder768(), nil

		default:
			// Default to SentenceTransformer; CLIP is opt-in for multimodal mode
			embedder, err = newDefaultWithFallback(ctx, model)
		}
	}

	if err != nil {
		return nil, err
	}

	// Wrap with cache unless disabled (QW-1: saves 50-200ms per repeated query)
	if !isCacheDisabled() {
		embedder = NewCachedEmbedderWithDefaults(embedder)
	}

	return embedder, nil
}

// isCacheDisabled checks if embedding cache is disabled via environment.
func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("RAGLITE_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// newCLIPWithFallback creates a CLIP embedder.
// BUG-073: No longer falls back to SentenceTransformer/static - returns error if CLIP unavailable.
// Users must select another provider explicitly (RAGLITE_EMBEDDER or ingest.provider).
func newCLIPWithFallback(ctx context.Context, _ bool) (Embedder, error) {
	cfg := DefaultCLIPConfig()

	// Apply config file settings first (set via SetCLIPConfig)
	if globalCLIPConfig.LibraryPath != "" {
		cfg.LibraryPath = globalCLIPConfig.LibraryPath
	}
	if globalCLIPConfig.Model != "" {
		cfg.Model = globalCLIPConfig.Model
	}

	// Environment variables override config file settings (highest priority)
	cfg = clipLibraryPathFromEnv(cfg)

	embedder, err := NewCLIPEmbedder(ctx, cfg)
	if err != nil {
		// BUG-073: No silent fallback - return clear error message
		return nil, fmt.Errorf("clip unavailable: %w\n\nTo fix:\n  1. Install a native CLIP library and set RAGLITE_CLIP_LIBRARY\n  2. Or use SentenceTransformer: set RAGLITE_EMBEDDER=sentencetransformer\n  3. Or use the static embedder: set RAGLITE_EMBEDDER=static", err)
	}
	return embedder, nil
}

// newDefaultWithFallback selects the default embedder: SentenceTransformer.
// It does not fall back to Static768; an unavailable SentenceTransformer is an error.
// CLIP is opt-in via RAGLITE_EMBEDDER=clip or config, required only for multimodal mode.
// This is always auto-detection, so allow fallback (explicitSelection = false).
func newDefaultWithFallback(ctx context.Context, model string) (Embedder, error) {
	return newSentenceTransformerWithFallback(ctx, model, false)
}

// newSentenceTransformerWithFallback creates SentenceTransformer embedder.
// BUG-073: No longer falls back to static embeddings - returns error if SentenceTransformer unavailable.
// Users must select static explicitly (RAGLITE_EMBEDDER=static or ingest.provider: static).
func newSentenceTransformerWithFallback(ctx context.Context, model string, _ bool) (Embedder, error) {
	cfg := DefaultSentenceTransformerConfig()
	// Only override model if it looks like an SentenceTransformer model name
	// (contains ":" tag or is a known SentenceTransformer embedding model)
	// Ignore GGUF model names like "nomic-embed-text-v1.5" from config
	if model != "" && isSentenceTransformerModelName(model) {
		cfg.Model = model
	}

	// Check for host override
	if host := os.Getenv("RAGLITE_SENTENCETRANSFORMER_HOST"); host != "" {
		cfg.Host = host
	}

	// Check for model override (highest priority)
	if modelOverride := os.Getenv("RAGLITE_SENTENCETRANSFORMER_MODEL"); modelOverride != "" {
		cfg.Model = modelOverride
	}

	// Check for timeout override (e.g., "120s", "2m")
	if timeoutStr := os.Getenv("RAGLITE_SENTENCETRANSFORMER_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	// Thermal management settings (for Apple Silicon and other GPUs under sustained load)
	// These help prevent timeout failures during long indexing operations
	// BUG-052: Now reads from config.yaml via SetThermalConfig(), with env vars as override

	// Apply config file settings first (set via SetThermalConfig)
	if globalThermalConfig.InterBatchDelay > 0 {
		delay := globalThermalConfig.InterBatchDelay
		if delay > MaxInterBatchDelay {
			delay = MaxInterBatchDelay
		}
		cfg.InterBatchDelay = delay
	}
	if globalThermalConfig.TimeoutProgression >= 1.0 {
		progression := globalThermalConfig.TimeoutProgression
		if progression > MaxTimeoutProgression {
			progression = MaxTimeoutProgression
		}
		cfg.TimeoutProgression = progression
	}
	if globalThermalConfig.RetryTimeoutMultiplier >= 1.0 {
		mult := globalThermalConfig.RetryTimeoutMultiplier
		if mult > MaxRetryTimeoutMultiplier {
			mult = MaxRetryTimeoutMultiplier
		}
		cfg.RetryTimeoutMultiplier = mult
	}

	// Environment variables override config file settings
	if delayStr := os.Getenv("RAGLITE_INTER_BATCH_DELAY"); delayStr != "" {
		if delay, err := time.ParseDuration(delayStr); err == nil && delay >= 0 {
			if delay > MaxInterBatchDelay {
				delay = MaxInterBatchDelay
			}
			cfg.InterBatchDelay = delay
		}
	}

	if progressionStr := os.Getenv("RAGLITE_TIMEOUT_PROGRESSION"); progressionStr != "" {
		if progression, err := parseFloat64(progressionStr); err == nil && progression >= 1.0 {
			if progression > MaxTimeoutProgression {
				progression = MaxTimeoutProgression
			}
			cfg.TimeoutProgression = progression
		}
	}

	if retryMultStr := os.Getenv("RAGLITE_RETRY_TIMEOUT_MULTIPLIER"); retryMultStr != "" {
		if mult, err := parseFloat64(retryMultStr); err == nil && mult >= 1.0 {
			if mult > MaxRetryTimeoutMultiplier {
				mult = MaxRetryTimeoutMultiplier
			}
			cfg.RetryTimeoutMultiplier = mult
		}
	}

	embedder, err := NewSentenceTransformerEmbedder(ctx, cfg)
	if err != nil {
		// BUG-073: No silent fallback - return clear error message
		return nil, fmt.Errorf("sentencetransformer unavailable: %w\n\nTo fix:\n  1. Start SentenceTransformer: sentencetransformer serve\n  2. Or use the static embedder: set RAGLITE_EMBEDDER=static", err)
	}
	return embedder, nil
}

// ThermalConfig holds thermal management settings loaded from config.yaml.
// BUG-052: These settings are now wired from config file, not just env vars.
type ThermalConfig struct {
	InterBatchDelay        time.Duration // Pause between batches for GPU cooling
	TimeoutProgression     float64       // Timeout multiplier for later batches (1.0-3.0)
	RetryTimeoutMultiplier float64       // Timeout multiplier per retry (1.0-2.0)
}

// globalThermalConfig holds config file settings set via SetThermalConfig.
// Env vars take precedence over these values.
var globalThermalConfig ThermalConfig

// SetThermalConfig sets thermal management config from the user's config.yaml.
// This should be called before NewEmbedder() to ensure config file settings are used.
// Environment variables still take precedence over config file settings.
// BUG-052: Fixes issue where config.yaml thermal settings were ignored.
func SetThermalConfig(cfg ThermalConfig) {
	globalThermalConfig = cfg
	if cfg.InterBatchDelay > 0 || cfg.TimeoutProgression != 0 || cfg.RetryTimeoutMultiplier != 0 {
		slog.Debug("thermal_config_set",
			slog.Duration("inter_batch_delay", cfg.InterBatchDelay),
			slog.Float64("timeout_progression", cfg.TimeoutProgression),
			slog.Float64("retry_timeout_multiplier", cfg.RetryTimeoutMultiplier))
	}
}

// CLIPServerConfig holds CLIP library settings loaded from config.yaml.
type CLIPServerConfig struct {
	LibraryPath string // Native CLIP library path (default: libclip.so)
	Model       string // Checkpoint name (default: "ViT-B-32")
}

// globalCLIPConfig holds config file settings set via SetCLIPConfig.
// Env vars take precedence over these values.
var globalCLIPConfig CLIPServerConfig

// SetCLIPConfig sets CLIP library config from the user's config.yaml.
// This should be called before NewEmbedder() to ensure config file settings are used.
// Environment variables still take precedence over config file settings.
func SetCLIPConfig(cfg CLIPServerConfig) {
	globalCLIPConfig = cfg
	if cfg.LibraryPath != "" || cfg.Model != "" {
		slog.Debug("clip_config_set",
			slog.String("library_path", cfg.LibraryPath),
			slog.String("model", cfg.Model))
	}
}

// NewDefaultEmbedder creates a static embedder (768 dimensions).
//
// Deprecated: This function ignores user configuration and always returns
// StaticEmbedder768, which can cause dimension mismatches if the index was
// built with a different embedder (e.g., SentenceTransformer with 4096 dims).
// Use NewEmbedder(ctx, ParseProvider(cfg.Ingest.Provider), cfg.Ingest.Model) instead.
func NewDefaultEmbedder(ctx context.Context) (Embedder, error) {
	return NewEmbedder(ctx, ProviderStatic, "")
}

// ParseProvider converts a string to ProviderType
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "clip":
		return ProviderCLIP
	case "sentencetransformer", "llama":
		// "llama" mapped to SentenceTransformer for backwards compatibility (BUG-021 resolved)
		return ProviderSentenceTransformer
	case "static":
		return ProviderStatic
	default:
		// Default to SentenceTransformer; CLIP is opt-in and required only for multimodal mode.
		return ProviderSentenceTransformer
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// isSentenceTransformerModelName checks if a model name looks like an SentenceTransformer model
// SentenceTransformer models have a ":" tag (e.g., "qwen3-embedding:8b")
// GGUF models have version numbers (e.g., "nomic-embed-text-v1.5")
func isSentenceTransformerModelName(model string) bool {
	// Has tag separator - definitely SentenceTransformer (e.g., "qwen3-embedding:8b")
	if strings.Contains(model, ":") {
		return true
	}

	// Has version number pattern - likely GGUF, not SentenceTransformer
	// e.g., "nomic-embed-text-v1.5", "bge-small-en-v1.5"
	if strings.Contains(model, "-v") && (strings.Contains(model, ".") || strings.HasSuffix(model, "-v1") || strings.HasSuffix(model, "-v2")) {
		return false
	}

	// Has .gguf extension - definitely not SentenceTransformer
	if strings.HasSuffix(strings.ToLower(model), ".gguf") {
		return false
	}

	return false
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{
		string(ProviderCLIP),
		string(ProviderSentenceTransformer),
		string(ProviderStatic),
	}
}

// IsValidProvider checks if a provider name is valid
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo contains information about an embedder
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo returns information about an embedder
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	modelInfo := embedder.ModelInfo()
	info := EmbedderInfo{
		Model:      modelInfo.Name,
		Dimensions: modelInfo.Dimensions,
		Available:  embedder.IsLoaded(ctx),
	}

	// Unwrap cached embedder to get underlying type
	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
	}

	// Determine provider type from embedder type or model name
	switch inner.(type) {
	case *CLIPEmbedder:
		info.Provider = ProviderCLIP
	case *SentenceTransformerEmbedder:
		info.Provider = ProviderSentenceTransformer
	default:
		switch modelInfo.Name {
		case "static", "static768":
			info.Provider = ProviderStatic
		default:
			info.Provider = ProviderStatic
		}
	}

	return info
}

// MustNewEmbedder creates an embedder and panics on failure
// Use only in tests or initialization code where failure is fatal
func MustNewEmbedder(ctx context.Context, provider ProviderType, model string) Embedder {
	embedder, err := NewEmbedder(ctx, provider, model)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedder: %v", err))
	}
	return embedder
}

// parseFloat64 parses a string to float64, used for env-var batch timeout overrides
func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
