package engine

import (
	"context"
	"database/sql"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/raglite-go/raglite/internal/batch"
	"github.com/raglite-go/raglite/internal/chunk"
	"github.com/raglite-go/raglite/internal/config"
	"github.com/raglite-go/raglite/internal/content"
	"github.com/raglite-go/raglite/internal/embed"
	"github.com/raglite-go/raglite/internal/ingest"
	"github.com/raglite-go/raglite/internal/lock"
	"github.com/raglite-go/raglite/internal/ragerr"
	"github.com/raglite-go/raglite/internal/rerank"
	"github.com/raglite-go/raglite/internal/resource"
	"github.com/raglite-go/raglite/internal/search"
	"github.com/raglite-go/raglite/internal/store"
	"github.com/raglite-go/raglite/internal/telemetry"
)

const telemetryFileName = "telemetry.db"

// Open wires a corpus's full retrieval stack from cfg. corpusDir is created
// if absent. The embedder and reranker named in cfg.Ingest/cfg.Search are
// resolved through their respective factories, so Open is the only place
// in the module that needs to know both a corpus's directory layout and
// its configuration.
func Open(ctx context.Context, corpusDir string, cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metadata, err := store.OpenMetadataStore(filepath.Join(corpusDir, metadataFileName))
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindInvalidPath, err)
	}

	embedder, err := resolveEmbedder(ctx, cfg)
	if err != nil {
		metadata.Close()
		return nil, err
	}

	vector := store.NewVectorIndex(embedder.ModelInfo().Dimensions, cfg.Performance.MaxFiles, store.DefaultGraphParams())
	vectorIndexPath := filepath.Join(corpusDir, ingest.DefaultVectorIndexFileName)
	if loaded, err := store.LoadVectorIndex(vectorIndexPath); err == nil {
		vector = loaded
	}

	bm25, err := store.NewBM25IndexWithBackend(filepath.Join(corpusDir, bm25DirName), store.DefaultBM25Config(), "sqlite")
	if err != nil {
		metadata.Close()
		return nil, ragerr.Wrap(ragerr.KindInvalidPath, err)
	}

	contentDir := cfg.Content.ContentDir
	if contentDir == "" {
		contentDir = "content"
	}
	if !filepath.IsAbs(contentDir) {
		contentDir = filepath.Join(corpusDir, contentDir)
	}
	contentStore, err := content.Open(contentDir, content.Caps{
		MaxFileSize:       cfg.Content.MaxFileSize,
		MaxContentDirSize: cfg.Content.MaxContentDirSize,
	})
	if err != nil {
		metadata.Close()
		bm25.Close()
		return nil, err
	}

	reranker, err := resolveReranker(ctx, cfg, bm25)
	if err != nil {
		metadata.Close()
		bm25.Close()
		contentStore.Close()
		return nil, err
	}

	resources := resource.NewManager(resource.DefaultConfig(), 16)
	if err := resources.Register(ctx, "embedder", newEmbedderResource(embedder)); err != nil {
		return nil, err
	}
	if err := resources.Register(ctx, "reranker", newRerankerResource(reranker)); err != nil {
		return nil, err
	}

	preprocessors := chunk.NewRegistry()
	chunkers := ingest.ChunkerSet{
		Code:     chunk.NewCodeChunker(),
		Markdown: chunk.NewMarkdownChunker(),
		Text: chunk.NewTextChunker(chunk.ChunkerOptions{
			ChunkSizeTokens: cfg.Chunker.ChunkSize,
			OverlapTokens:   cfg.Chunker.ChunkOverlap,
		}),
	}

	batchOpt := batch.NewOptimizer(batch.Config{
		MaxConcurrency: cfg.Performance.IndexWorkers,
	})
	corpusLock := lock.New(corpusDir)

	ingestPipeline := ingest.NewPipeline(ingest.Config{
		RootDir:         corpusDir,
		Metadata:        metadata,
		VectorIndex:     vector,
		BM25:            bm25,
		Content:         contentStore,
		Embedder:        embedder,
		Chunkers:        chunkers,
		Preprocessors:   preprocessors,
		Batch:           batchOpt,
		Lock:            corpusLock,
		ExcludePatterns: cfg.Paths.Exclude,
		MaxFileSize:     cfg.Content.MaxFileSize,
	})

	searchPipeline := search.NewPipeline(search.Config{
		Metadata:    metadata,
		VectorIndex: vector,
		BM25:        bm25,
		Embedder:    embedder,
		Reranker:    reranker,
	})

	metricsDB, metrics, err := openQueryMetrics(corpusDir)
	if err != nil {
		metadata.Close()
		bm25.Close()
		contentStore.Close()
		return nil, err
	}

	return &Engine{
		corpusDir:       corpusDir,
		cfg:             cfg,
		metadata:        metadata,
		vector:          vector,
		bm25:            bm25,
		contentS:        contentStore,
		embedder:        embedder,
		reranker:        reranker,
		chunkers:        chunkers,
		preprocessors:   preprocessors,
		batchOpt:        batchOpt,
		corpusLock:      corpusLock,
		resources:       resources,
		ingestPipeline:  ingestPipeline,
		searchPipeline:  searchPipeline,
		vectorIndexPath: vectorIndexPath,
		metricsDB:       metricsDB,
		metrics:         metrics,
	}, nil
}

// openQueryMetrics opens a dedicated SQLite connection for query telemetry,
// separate from the metadata store so a corrupt/missing telemetry.db can
// never affect the metadata or vector stores.
func openQueryMetrics(corpusDir string) (*sql.DB, *telemetry.QueryMetrics, error) {
	db, err := sql.Open("sqlite", filepath.Join(corpusDir, telemetryFileName))
	if err != nil {
		return nil, nil, ragerr.Wrap(ragerr.KindInvalidPath, err)
	}
	if err := telemetry.InitTelemetrySchema(db); err != nil {
		db.Close()
		return nil, nil, ragerr.Wrap(ragerr.KindInvalidPath, err)
	}
	metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		db.Close()
		return nil, nil, ragerr.Wrap(ragerr.KindInvalidPath, err)
	}
	return db, telemetry.NewQueryMetrics(metricsStore), nil
}

func resolveEmbedder(ctx context.Context, cfg config.Config) (embed.Embedder, error) {
	if cfg.Ingest.Provider == "" {
		return embed.NewDefaultEmbedder(ctx)
	}
	model := cfg.Ingest.Model
	if model == "" {
		model = cfg.Search.EmbeddingModel
	}
	return embed.NewEmbedder(ctx, embed.ProviderType(cfg.Ingest.Provider), model)
}

func resolveReranker(ctx context.Context, cfg config.Config, bm25 store.BM25Index) (rerank.Reranker, error) {
	if !cfg.Search.EnableReranking {
		return &rerank.DisabledReranker{}, nil
	}
	return rerank.NewReranker(ctx, rerank.RerankConfig{
		Strategy:  rerank.Strategy(cfg.Search.RerankingStrategy),
		BM25Index: bm25,
	})
}

// Close persists the vector index and releases every resource the engine
// opened, in the reverse order they were acquired. The first error
// encountered is returned; Close still attempts every remaining release.
func (e *Engine) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(e.vector.Save(e.vectorIndexPath))
	record(e.resources.Shutdown(context.Background()))
	record(e.bm25.Close())
	record(e.contentS.Close())
	record(e.metadata.Close())
	record(e.vector.Close())
	record(e.metrics.Close())
	record(e.metricsDB.Close())

	return firstErr
}
