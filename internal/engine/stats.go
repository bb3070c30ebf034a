package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/raglite-go/raglite/internal/ingest"
	"github.com/raglite-go/raglite/internal/mode"
	"github.com/raglite-go/raglite/internal/search"
	"github.com/raglite-go/raglite/internal/store"
)

// Stats reports the corpus's on-disk state, its persisted mode/model, and
// whether the engine's current configuration is still compatible with it
// (C9's R1-R4 rules, checked without ForceRebuild).
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	info := e.embedder.ModelInfo()
	stats := Stats{
		DatabaseExists: fileExists(filepathMetadataDB(e.corpusDir)),
		IndexExists:    fileExists(e.vectorIndexPath),
		Mode:           e.cfg.Mode,
		ModelInfo: ModelInfo{
			Name:          info.Name,
			Dimensions:    info.Dimensions,
			SupportsImage: info.SupportsImage,
		},
	}

	existing, err := e.metadata.GetSystemInfo(ctx)
	if err != nil {
		return Stats{}, err
	}
	if existing != nil {
		stats.LastIngestedAt = existing.UpdatedAt
	}

	_, validateErr := mode.Validate(mode.Request{
		Mode: e.cfg.Mode,
		Model: mode.ModelDescriptor{
			Name: info.Name, Type: info.Type,
			Dimensions: info.Dimensions, SupportsImage: info.SupportsImage,
		},
	}, existing)
	if validateErr != nil {
		stats.Compatibility = Compatibility{Compatible: false, Reason: validateErr.Error()}
	} else {
		stats.Compatibility = Compatibility{Compatible: true}
	}

	corpusStats, err := e.metadata.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.DocumentCount = corpusStats.DocumentCount
	stats.ChunkCount = corpusStats.ChunkCount

	return stats, nil
}

// Reset clears the corpus per opts, then rebuilds the in-memory vector
// index to an empty state and rewires the ingest/search pipelines to it,
// so a subsequent Search or Ingest on the same Engine never touches the
// closed, discarded index.
func (e *Engine) Reset(ctx context.Context, opts store.ResetOptions) (store.ResetReport, error) {
	report, err := e.metadata.Reset(ctx, opts)
	if err != nil {
		return store.ResetReport{}, err
	}

	e.vector.Close()
	e.vector = store.NewVectorIndex(e.embedder.ModelInfo().Dimensions, e.cfg.Performance.MaxFiles, store.DefaultGraphParams())

	e.ingestPipeline = ingest.NewPipeline(ingest.Config{
		RootDir:         e.corpusDir,
		Metadata:        e.metadata,
		VectorIndex:     e.vector,
		BM25:            e.bm25,
		Content:         e.contentS,
		Embedder:        e.embedder,
		Chunkers:        e.chunkers,
		Preprocessors:   e.preprocessors,
		Batch:           e.batchOpt,
		Lock:            e.corpusLock,
		ExcludePatterns: e.cfg.Paths.Exclude,
		MaxFileSize:     e.cfg.Content.MaxFileSize,
	})
	e.searchPipeline = search.NewPipeline(search.Config{
		Metadata:    e.metadata,
		VectorIndex: e.vector,
		BM25:        e.bm25,
		Embedder:    e.embedder,
		Reranker:    e.reranker,
	})

	return *report, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func filepathMetadataDB(corpusDir string) string {
	return filepath.Join(corpusDir, metadataFileName)
}
