package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/raglite-go/raglite/internal/mode"
	"github.com/raglite-go/raglite/internal/ragerr"
	"github.com/raglite-go/raglite/internal/store"
)

// DefaultVectorIndexFileName is the file name the vector index is
// persisted under inside a Pipeline's RootDir.
const DefaultVectorIndexFileName = "vectors.rlv"

// Pipeline orchestrates ingestion into one corpus: discovery, chunking,
// batch embedding, and durable persistence, serialized against itself (and
// any other process) via a corpus-scoped lock.
type Pipeline struct {
	config Config
}

// NewPipeline constructs a Pipeline from its wired dependencies.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.VectorIndexFileName == "" {
		cfg.VectorIndexFileName = DefaultVectorIndexFileName
	}
	return &Pipeline{config: cfg}
}

func (p *Pipeline) vectorIndexPath() string {
	return filepath.Join(p.config.RootDir, p.config.VectorIndexFileName)
}

// Ingest discovers files under root, chunks, embeds, and persists them.
func (p *Pipeline) Ingest(ctx context.Context, root string, opts Options) (*Result, error) {
	start := time.Now()

	if err := p.config.Lock.Lock(ctx); err != nil {
		return nil, fmt.Errorf("acquire corpus lock: %w", err)
	}
	defer p.config.Lock.Unlock()

	systemInfo, err := p.validateMode(ctx, opts)
	if err != nil {
		return nil, err
	}
	hadData, err := p.config.Metadata.HasData(ctx)
	if err != nil {
		return nil, fmt.Errorf("check corpus state: %w", err)
	}

	files, err := p.discoverFiles(ctx, root, opts)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	result := &Result{}
	for _, f := range files {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		data, err := readFile(f)
		if err != nil {
			result.Failed = append(result.Failed, FailedItem{Source: f.path, Err: err})
			continue
		}

		docResult, err := p.ingestSource(ctx, f, data, opts)
		if err != nil {
			result.Failed = append(result.Failed, FailedItem{Source: f.path, Err: err})
			continue
		}
		result.DocumentsIngested++
		result.ChunksIngested += docResult
	}

	if err := p.finalize(ctx, systemInfo, hadData, opts); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// IngestBytes ingests a single in-memory blob, for callers with no
// filesystem path (API uploads, piped content).
func (p *Pipeline) IngestBytes(ctx context.Context, source, title string, contentType store.ContentType, data []byte, opts Options) (*Result, error) {
	start := time.Now()

	if err := p.config.Lock.Lock(ctx); err != nil {
		return nil, fmt.Errorf("acquire corpus lock: %w", err)
	}
	defer p.config.Lock.Unlock()

	systemInfo, err := p.validateMode(ctx, opts)
	if err != nil {
		return nil, err
	}
	hadData, err := p.config.Metadata.HasData(ctx)
	if err != nil {
		return nil, fmt.Errorf("check corpus state: %w", err)
	}

	result := &Result{}
	language := ""
	if contentType == store.ContentTypeImage {
		language = "application/octet-stream"
	}

	raw, err := p.chunkBytes(ctx, data, contentType, language, opts)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", source, err)
	}

	n, failed, err := p.persistDocument(ctx, source, title, contentType, raw, opts)
	if err != nil {
		return nil, fmt.Errorf("persist %s: %w", source, err)
	}
	result.Failed = append(result.Failed, failed...)
	result.DocumentsIngested = 1
	result.ChunksIngested = n

	if err := p.finalize(ctx, systemInfo, hadData, opts); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// validateMode runs C9's four rules against the corpus's stored
// SystemInfo (if any) and returns the SystemInfo that should exist once
// this ingest completes.
func (p *Pipeline) validateMode(ctx context.Context, opts Options) (*store.SystemInfo, error) {
	existing, err := p.config.Metadata.GetSystemInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("load system info: %w", err)
	}

	req := mode.Request{
		Mode: opts.Mode,
		Model: mode.ModelDescriptor{
			Name: opts.ModelName, Type: opts.ModelType,
			Dimensions: opts.ModelDims, SupportsImage: opts.SupportsImage,
		},
		ForceRebuild: opts.ForceRebuild,
	}

	validation, err := mode.Validate(req, existing)
	if err != nil {
		return nil, err
	}
	for _, w := range validation.Warnings {
		slog.Warn("ingest mode validation warning", slog.String("warning", w))
	}

	if existing != nil && !opts.ForceRebuild {
		return existing, nil
	}
	return mode.NewSystemInfo(req, opts.Reranking), nil
}

// ingestSource reads one discovered file's chunks and persists them as a
// document. Returns the number of chunks persisted.
func (p *Pipeline) ingestSource(ctx context.Context, f discoveredFile, data []byte, opts Options) (int, error) {
	raw, err := p.chunkFile(ctx, f, data, opts)
	if err != nil {
		return 0, err
	}
	n, failed, err := p.persistDocument(ctx, f.path, f.path, f.contentType, raw, opts)
	if err != nil {
		return 0, err
	}
	if len(failed) > 0 {
		slog.Warn("ingest: some chunks failed to embed",
			slog.String("source", f.path), slog.Int("failed", len(failed)))
	}
	return n, nil
}

// persistDocument embeds raw's chunks, then writes the document's chunk
// set and embeddings in a single metadata transaction (I1, I4), updating
// the in-memory vector and lexical indices for anything newly embedded.
func (p *Pipeline) persistDocument(ctx context.Context, source, title string, contentType store.ContentType, raw []rawChunk, opts Options) (int, []FailedItem, error) {
	if len(raw) == 0 {
		return 0, nil, nil
	}

	pending, failed, err := p.embedChunks(ctx, raw, opts.Progress)
	if err != nil {
		return 0, nil, err
	}

	// Drop chunks whose embedding never materialized; persist the rest.
	usable := pending[:0]
	for _, pc := range pending {
		if len(pc.vector) == 0 {
			continue
		}
		usable = append(usable, pc)
	}
	if len(usable) == 0 {
		return 0, failed, nil
	}

	docID, err := p.config.Metadata.UpsertDocument(ctx, source, title, contentType)
	if err != nil {
		return 0, nil, fmt.Errorf("upsert document: %w", err)
	}

	chunks := make([]*store.Chunk, len(usable))
	embeddings := make([]*store.EmbeddingRecord, len(usable))
	now := time.Now()
	for i, pc := range usable {
		chunkID := store.HashContent([]byte(source), []byte(fmt.Sprintf("%d", pc.raw.chunkIndex)), []byte(pc.embeddingID))
		chunks[i] = &store.Chunk{
			ChunkID:     chunkID,
			DocID:       docID,
			ChunkIndex:  pc.raw.chunkIndex,
			Text:        pc.raw.text,
			TokenCount:  len(store.Tokenize(pc.raw.text)),
			ContentType: pc.raw.contentType,
			EmbeddingID: pc.embeddingID,
			ContentID:   pc.contentID,
			CreatedAt:   now,
		}
		embeddings[i] = &store.EmbeddingRecord{
			EmbeddingID: pc.embeddingID,
			Vector:      pc.vector,
			ContentType: pc.raw.contentType,
			Dims:        len(pc.vector),
			CreatedAt:   now,
		}

		if pc.raw.contentType == store.ContentTypeImage && p.config.Content != nil {
			contentID, err := p.config.Content.Put(ctx, pc.raw.imageBytes, pc.raw.imageMime)
			if err != nil {
				return 0, nil, fmt.Errorf("store image content: %w", err)
			}
			chunks[i].ContentID = contentID
		}
	}

	if err := p.config.Metadata.ReplaceChunks(ctx, docID, chunks, embeddings); err != nil {
		return 0, nil, fmt.Errorf("replace chunks: %w", err)
	}

	if p.config.BM25 != nil {
		docs := make([]*store.LexicalDocument, 0, len(chunks))
		for _, c := range chunks {
			if c.ContentType != store.ContentTypeImage {
				docs = append(docs, &store.LexicalDocument{ID: c.ChunkID, Content: c.Text})
			}
		}
		if len(docs) > 0 {
			if err := p.config.BM25.Index(ctx, docs); err != nil {
				slog.Warn("bm25 index update failed", slog.String("error", err.Error()))
			}
		}
	}

	for _, pc := range usable {
		if !pc.isNew || p.config.VectorIndex.Contains(pc.embeddingID) {
			continue
		}
		if _, err := p.config.VectorIndex.Add(pc.embeddingID, pc.vector); err != nil {
			return 0, nil, fmt.Errorf("add to vector index: %w", ragerr.Wrap(ragerr.KindIndexDesync, err))
		}
	}

	return len(usable), failed, nil
}

// finalize persists the vector index atomically and records SystemInfo,
// once per Ingest/IngestBytes call. hadData reflects the corpus's state
// before this call began, so a first-ever ingest always writes SystemInfo
// even though the metadata store now has data from this run.
func (p *Pipeline) finalize(ctx context.Context, systemInfo *store.SystemInfo, hadData bool, opts Options) error {
	if err := p.config.VectorIndex.Save(p.vectorIndexPath()); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}

	if !hadData || opts.ForceRebuild {
		now := time.Now()
		if systemInfo.CreatedAt.IsZero() {
			systemInfo.CreatedAt = now
		}
		systemInfo.UpdatedAt = now
		if err := p.config.Metadata.SetSystemInfo(ctx, systemInfo); err != nil {
			return fmt.Errorf("save system info: %w", err)
		}
	}

	return nil
}
