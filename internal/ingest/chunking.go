package ingest

import (
	"context"
	"fmt"

	"github.com/raglite-go/raglite/internal/chunk"
	"github.com/raglite-go/raglite/internal/store"
)

// chunkFile preprocesses and chunks one discovered file's bytes into
// rawChunks, dispatching to the chunker for its chunkKind.
func (p *Pipeline) chunkFile(ctx context.Context, f discoveredFile, data []byte, opts Options) ([]rawChunk, error) {
	if f.chunkKind == chunkKindImage {
		mime := f.language
		if mime == "" {
			mime = "application/octet-stream"
		}
		return []rawChunk{{chunkIndex: 0, contentType: store.ContentTypeImage, imageBytes: data, imageMime: mime}}, nil
	}

	content := string(data)
	if p.config.Preprocessors != nil {
		processed, err := p.config.Preprocessors.Apply(content, f.language, chunk.ModeKeep)
		if err != nil {
			return nil, fmt.Errorf("preprocess %s: %w", f.path, err)
		}
		content = processed
	}

	chunker := p.chunkerFor(f.chunkKind, opts)
	input := &chunk.FileInput{Path: f.path, Content: []byte(content), Language: f.language}
	chunks, err := chunker.Chunk(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", f.path, err)
	}

	raw := make([]rawChunk, 0, len(chunks))
	for i, c := range chunks {
		raw = append(raw, rawChunk{chunkIndex: i, text: c.Content, contentType: store.ContentTypeText})
	}
	return raw, nil
}

// chunkBytes chunks an in-memory blob the same way chunkFile does, for
// IngestBytes callers that have no filesystem path.
func (p *Pipeline) chunkBytes(ctx context.Context, data []byte, contentType store.ContentType, language string, opts Options) ([]rawChunk, error) {
	if contentType == store.ContentTypeImage {
		mime := language
		if mime == "" {
			mime = "application/octet-stream"
		}
		return []rawChunk{{chunkIndex: 0, contentType: store.ContentTypeImage, imageBytes: data, imageMime: mime}}, nil
	}

	kind := chunkKindText
	switch language {
	case "markdown":
		kind = chunkKindMarkdown
	}

	content := string(data)
	if p.config.Preprocessors != nil {
		processed, err := p.config.Preprocessors.Apply(content, language, chunk.ModeKeep)
		if err == nil {
			content = processed
		}
	}

	chunker := p.chunkerFor(kind, opts)
	chunks, err := chunker.Chunk(ctx, &chunk.FileInput{Path: "blob", Content: []byte(content), Language: language})
	if err != nil {
		return nil, fmt.Errorf("chunk blob: %w", err)
	}

	raw := make([]rawChunk, 0, len(chunks))
	for i, c := range chunks {
		raw = append(raw, rawChunk{chunkIndex: i, text: c.Content, contentType: store.ContentTypeText})
	}
	return raw, nil
}

// chunkerFor returns the chunker for kind, building a fresh one with the
// caller's chunk_size/chunk_overlap when Options overrides the corpus
// default, otherwise reusing the Pipeline's configured chunker.
func (p *Pipeline) chunkerFor(kind chunkKind, opts Options) chunk.Chunker {
	if opts.ChunkSizeTokens > 0 || opts.OverlapTokens > 0 {
		switch kind {
		case chunkKindCode:
			return chunk.NewCodeChunkerWithOptions(chunk.CodeChunkerOptions{
				MaxChunkTokens: opts.ChunkSizeTokens, OverlapTokens: opts.OverlapTokens,
			})
		case chunkKindMarkdown:
			return chunk.NewMarkdownChunkerWithOptions(chunk.MarkdownChunkerOptions{
				MaxChunkTokens: opts.ChunkSizeTokens, OverlapTokens: opts.OverlapTokens,
			})
		default:
			return chunk.NewTextChunker(chunk.ChunkerOptions{
				ChunkSizeTokens: opts.ChunkSizeTokens, OverlapTokens: opts.OverlapTokens,
			})
		}
	}

	switch kind {
	case chunkKindCode:
		if p.config.Chunkers.Code != nil {
			return p.config.Chunkers.Code
		}
	case chunkKindMarkdown:
		if p.config.Chunkers.Markdown != nil {
			return p.config.Chunkers.Markdown
		}
	}
	return p.config.Chunkers.Text
}
