package batch

import (
	"context"
	"fmt"
	"time"
)

// DefaultMaxRetries bounds how many times a failed batch is retried before
// its items are reported as failed rather than dropped.
const DefaultMaxRetries = 3

// RetryConfig configures exponential-ish backoff between batch retries.
// Generalized from internal/embed/retry.go's DownloadWithRetry: same
// algorithm (exponential delay capped at MaxDelay), applied here to a
// batch-embed call instead of a single model download.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the default batch retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// retryWithBackoff retries fn with exponential backoff, honoring context
// cancellation between attempts.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err != nil {
			lastErr = err

			if attempt >= cfg.MaxRetries {
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			continue
		}

		return nil
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}
