package rerank

import (
	"context"
	"fmt"
	"os"

	"github.com/raglite-go/raglite/internal/store"
)

// NewReranker constructs a Reranker for cfg.Strategy. The RAGLITE_RERANKER
// environment variable overrides cfg.Strategy when set, mirroring
// internal/embed's RAGLITE_EMBEDDER override.
func NewReranker(ctx context.Context, cfg RerankConfig) (Reranker, error) {
	strategy := cfg.Strategy
	if env := os.Getenv("RAGLITE_RERANKER"); env != "" {
		strategy = ParseStrategy(env)
	}

	var r Reranker
	var err error

	switch strategy {
	case StrategyCrossEncoder:
		r, err = newCrossEncoder(ctx, cfg)
	case StrategyTextDerived:
		r = NewTextDerivedReranker()
	case StrategyMetadata:
		r = NewMetadataReranker(cfg.RecencyHalfLife, cfg.SourcePriority)
	case StrategyHybrid:
		r, err = newHybrid(ctx, cfg)
	case StrategyDisabled, "":
		r = &DisabledReranker{}
	default:
		return nil, fmt.Errorf("unknown rerank strategy %q", strategy)
	}
	if err != nil {
		return nil, err
	}

	if cfg.DegenerateThreshold > 0 && cfg.BM25Index != nil {
		r = WithDegenerateFallback(r, cfg.BM25Index, cfg.DegenerateThreshold)
	}

	return r, nil
}

func newCrossEncoder(ctx context.Context, cfg RerankConfig) (Reranker, error) {
	ceCfg := DefaultCrossEncoderConfig()
	if cfg.Endpoint != "" {
		ceCfg.Endpoint = cfg.Endpoint
	}
	if cfg.Model != "" {
		ceCfg.Model = cfg.Model
	}
	if cfg.Timeout > 0 {
		ceCfg.Timeout = cfg.Timeout
	}
	if cfg.PoolSize > 0 {
		ceCfg.PoolSize = cfg.PoolSize
	}

	r, err := NewCrossEncoderReranker(ctx, ceCfg)
	if err != nil {
		return nil, fmt.Errorf("cross-encoder reranker unavailable: %w\n\nTo fix:\n  1. Start a scoring server at %s\n  2. Or switch strategy: RAGLITE_RERANKER=text-derived\n  3. Or disable reranking: RAGLITE_RERANKER=disabled", err, ceCfg.Endpoint)
	}
	return r, nil
}

func newHybrid(ctx context.Context, cfg RerankConfig) (Reranker, error) {
	weights := cfg.HybridWeights
	if weights == (HybridWeights{}) {
		weights = DefaultHybridWeights()
	}

	var crossEncoder Reranker
	if weights.CrossEncoder > 0 {
		ceCfg := DefaultCrossEncoderConfig()
		if cfg.Endpoint != "" {
			ceCfg.Endpoint = cfg.Endpoint
		}
		if cfg.Model != "" {
			ceCfg.Model = cfg.Model
		}
		ce, err := NewCrossEncoderReranker(ctx, ceCfg)
		if err != nil {
			// A hybrid blend degrades gracefully: drop the unavailable
			// component and renormalize over what remains.
			weights.CrossEncoder = 0
		} else {
			crossEncoder = ce
		}
	}

	var textDerived Reranker
	if weights.TextDerived > 0 {
		textDerived = NewTextDerivedReranker()
	}

	var metadata Reranker
	if weights.Metadata > 0 {
		metadata = NewMetadataReranker(cfg.RecencyHalfLife, cfg.SourcePriority)
	}

	return NewHybridReranker(crossEncoder, textDerived, metadata, weights), nil
}

// ParseStrategy maps a strategy name to a Strategy, defaulting to
// StrategyDisabled for unrecognized input.
func ParseStrategy(s string) Strategy {
	switch s {
	case "cross-encoder", "crossencoder":
		return StrategyCrossEncoder
	case "text-derived", "textderived":
		return StrategyTextDerived
	case "metadata":
		return StrategyMetadata
	case "hybrid":
		return StrategyHybrid
	case "disabled", "none":
		return StrategyDisabled
	default:
		return StrategyDisabled
	}
}

// DefaultStrategyForMode picks the reranking strategy spec.md §4.5 names as
// the default for a corpus mode: cross-encoder for text, text-derived for
// multimodal (a text-only cross-encoder cannot score image chunks).
func DefaultStrategyForMode(mode store.Mode) Strategy {
	if mode == store.ModeMultimodal {
		return StrategyTextDerived
	}
	return StrategyCrossEncoder
}
