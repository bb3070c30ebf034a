// Package batch implements memory-aware batching over arbitrary embeddable
// items: grouping by content type, halving under memory pressure, retrying
// failed batches with backoff, and reporting per-item outcomes in the
// caller's original order (C11).
package batch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/raglite-go/raglite/internal/ragerr"
	"github.com/raglite-go/raglite/internal/resource"
	"github.com/raglite-go/raglite/internal/store"
)

// Item is one unit of work to embed.
type Item struct {
	ID          string
	ContentType store.ContentType
	Text        string
	Image       []byte
	Mime        string
}

// EmbedFunc embeds a batch of items, returning one vector per item in the
// same order. Supplied by the caller (internal/ingest wires this to
// internal/embed.Embedder.EmbedBatch / EmbedImage).
type EmbedFunc func(ctx context.Context, items []Item) ([][]float32, error)

// ProgressFunc is invoked after each sub-batch completes.
type ProgressFunc func(done, total int)

// ItemResult is one item's outcome. Exactly one of Vector/Err is set.
type ItemResult struct {
	Item   Item
	Vector []float32
	Err    error
}

// Result holds every item's outcome in the same order as the input slice.
type Result struct {
	Items []ItemResult
}

// Failed returns the subset of results that errored.
func (r Result) Failed() []ItemResult {
	var failed []ItemResult
	for _, it := range r.Items {
		if it.Err != nil {
			failed = append(failed, it)
		}
	}
	return failed
}

// Config configures an Optimizer.
type Config struct {
	// MemoryLimitBytes is the resident-memory threshold above which a batch
	// that has failed its retries is halved and each half tried once more.
	MemoryLimitBytes int64
	// MaxConcurrency bounds in-flight sub-batches across all content types.
	MaxConcurrency int
	// BatchSizeOverride, if set for a content type, replaces
	// DefaultBatchSize for that type.
	BatchSizeOverride map[store.ContentType]int
	Retry             RetryConfig
}

// DefaultConfig returns sensible defaults: 1.5GiB threshold, 4-way
// concurrency, default retry policy.
func DefaultConfig() Config {
	return Config{
		MemoryLimitBytes: (3 << 30) / 2,
		MaxConcurrency:   4,
		Retry:            DefaultRetryConfig(),
	}
}

// Optimizer batches items by content type and runs them through an
// EmbedFunc with memory-aware halving and retry.
type Optimizer struct {
	config Config
}

// NewOptimizer constructs an Optimizer.
func NewOptimizer(cfg Config) *Optimizer {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	return &Optimizer{config: cfg}
}

type job struct {
	indices []int
	items   []Item
}

// Run batches items, embeds each batch via embedFn, and returns every
// item's outcome in input order. A sub-batch's failure never aborts the
// others: Run only returns a non-nil error for context cancellation.
func (o *Optimizer) Run(ctx context.Context, items []Item, embedFn EmbedFunc, progress ProgressFunc) (Result, error) {
	if len(items) == 0 {
		return Result{}, nil
	}

	groups := make(map[store.ContentType][]int)
	var order []store.ContentType
	for i, it := range items {
		if _, seen := groups[it.ContentType]; !seen {
			order = append(order, it.ContentType)
		}
		groups[it.ContentType] = append(groups[it.ContentType], i)
	}

	var jobs []job
	for _, ct := range order {
		idxs := groups[ct]
		size := o.batchSizeFor(ct)
		for start := 0; start < len(idxs); start += size {
			end := start + size
			if end > len(idxs) {
				end = len(idxs)
			}
			sub := idxs[start:end]
			jobItems := make([]Item, len(sub))
			for k, idx := range sub {
				jobItems[k] = items[idx]
			}
			jobs = append(jobs, job{indices: sub, items: jobItems})
		}
	}

	results := make([]ItemResult, len(items))
	var mu sync.Mutex
	var done int

	sem := make(chan struct{}, o.config.MaxConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, j := range jobs {
		j := j
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			o.runJob(gctx, j.indices, j.items, embedFn, results, &mu)

			mu.Lock()
			done += len(j.indices)
			d := done
			mu.Unlock()
			if progress != nil {
				progress(d, len(items))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	return Result{Items: results}, nil
}

// batchSizeFor resolves the effective batch size for a content type.
func (o *Optimizer) batchSizeFor(ct store.ContentType) int {
	if o.config.BatchSizeOverride != nil {
		if size, ok := o.config.BatchSizeOverride[ct]; ok && size > 0 {
			return size
		}
	}
	return DefaultBatchSize(ct)
}

// runJob embeds one batch, halving and retrying once under memory pressure
// before surfacing a resource-exhausted error for whichever half still
// fails. Results are written directly into the shared results slice.
func (o *Optimizer) runJob(ctx context.Context, indices []int, items []Item, embedFn EmbedFunc, results []ItemResult, mu *sync.Mutex) {
	vectors, err := o.embedWithRetry(ctx, items, embedFn)
	if err == nil {
		recordSuccess(results, indices, items, vectors, mu)
		return
	}

	if len(items) > 1 && resource.CurrentRSSBytes() > o.config.MemoryLimitBytes {
		mid := len(items) / 2
		o.embedOnce(ctx, indices[:mid], items[:mid], embedFn, results, mu)
		o.embedOnce(ctx, indices[mid:], items[mid:], embedFn, results, mu)
		return
	}

	recordFailure(results, indices, items, err, mu)
}

// embedOnce makes a single embed attempt (no retry, no further halving),
// wrapping any failure as a resource-exhausted error since it only runs
// as the second half of a memory-pressure halve-and-retry.
func (o *Optimizer) embedOnce(ctx context.Context, indices []int, items []Item, embedFn EmbedFunc, results []ItemResult, mu *sync.Mutex) {
	vectors, err := embedFn(ctx, items)
	if err != nil {
		recordFailure(results, indices, items, ragerr.Wrap(ragerr.KindResourceExhausted, err), mu)
		return
	}
	recordSuccess(results, indices, items, vectors, mu)
}

func (o *Optimizer) embedWithRetry(ctx context.Context, items []Item, embedFn EmbedFunc) ([][]float32, error) {
	var vectors [][]float32
	err := retryWithBackoff(ctx, o.config.Retry, func() error {
		v, err := embedFn(ctx, items)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	return vectors, err
}

func recordSuccess(results []ItemResult, indices []int, items []Item, vectors [][]float32, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	for k, idx := range indices {
		results[idx] = ItemResult{Item: items[k], Vector: vectors[k]}
	}
}

func recordFailure(results []ItemResult, indices []int, items []Item, err error, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()
	for k, idx := range indices {
		results[idx] = ItemResult{Item: items[k], Err: err}
	}
}
