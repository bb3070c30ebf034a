package engine

import (
	"context"
	"time"

	"github.com/raglite-go/raglite/internal/ingest"
	"github.com/raglite-go/raglite/internal/ragerr"
	"github.com/raglite-go/raglite/internal/store"
)

// Ingest discovers, chunks, embeds, and persists src into the corpus,
// dispatching to ingest.Pipeline's Ingest or IngestBytes depending on
// whether src carries a filesystem path or an in-memory blob.
func (e *Engine) Ingest(ctx context.Context, src Source, opts IngestOptions) (IngestReport, error) {
	start := time.Now()

	pipelineOpts := e.ingestOptionsFor(opts)

	var result *ingest.Result
	var err error
	switch {
	case src.Bytes != nil:
		if src.SourceID == "" {
			return IngestReport{}, ragerr.New(ragerr.KindInvalidPath, "ingest: SourceID is required for in-memory sources", nil)
		}
		result, err = e.ingestPipeline.IngestBytes(ctx, src.SourceID, src.Title, store.ContentTypeText, src.Bytes, pipelineOpts)
	case src.Path != "":
		result, err = e.ingestPipeline.Ingest(ctx, src.Path, pipelineOpts)
	default:
		return IngestReport{}, ragerr.New(ragerr.KindInvalidPath, "ingest: Source must set either Path or Bytes", nil)
	}
	if err != nil {
		return IngestReport{}, err
	}

	report := IngestReport{
		DocumentsProcessed:  result.DocumentsIngested,
		ChunksCreated:       result.ChunksIngested,
		EmbeddingsGenerated: result.ChunksIngested,
		ProcessingTimeMS:    time.Since(start).Milliseconds(),
		Warnings:            result.Warnings,
		Failed:              result.Failed,
	}
	return report, nil
}

func (e *Engine) ingestOptionsFor(opts IngestOptions) ingest.Options {
	chunkSize := opts.ChunkSizeTokens
	if chunkSize == 0 {
		chunkSize = e.cfg.Ingest.ChunkSize
	}
	if chunkSize == 0 {
		chunkSize = e.cfg.Chunker.ChunkSize
	}
	overlap := opts.OverlapTokens
	if overlap == 0 {
		overlap = e.cfg.Ingest.ChunkOverlap
	}
	if overlap == 0 {
		overlap = e.cfg.Chunker.ChunkOverlap
	}

	info := e.embedder.ModelInfo()
	return ingest.Options{
		Mode:            e.cfg.Mode,
		ModelName:       info.Name,
		ModelType:       info.Type,
		ModelDims:       info.Dimensions,
		SupportsImage:   info.SupportsImage,
		Reranking:       e.cfg.Search.RerankingStrategy,
		ForceRebuild:    opts.ForceRebuild || e.cfg.Ingest.ForceRebuild,
		ChunkSizeTokens: chunkSize,
		OverlapTokens:   overlap,
		IncludePatterns: opts.IncludePatterns,
		ExcludePatterns: opts.ExcludePatterns,
		Progress:        opts.Progress,
	}
}
