package ingest

import (
	"context"
	"fmt"

	"github.com/raglite-go/raglite/internal/batch"
	"github.com/raglite-go/raglite/internal/store"
)

// modelFingerprint identifies the embedding space a vector belongs to
// ("name:dims"), the third input to the embedding_id hash after the
// content bytes and the content type (spec.md §4.1). The content is hashed
// as it is; no normalization is applied.
func (p *Pipeline) modelFingerprint() string {
	info := p.config.Embedder.ModelInfo()
	return fmt.Sprintf("%s:%d", info.Name, info.Dimensions)
}

// embedChunks resolves embeddings for raw, deduplicating against the
// metadata store's existing embedding rows and batching only what's new
// through the batch Optimizer.
func (p *Pipeline) embedChunks(ctx context.Context, raw []rawChunk, progress batch.ProgressFunc) ([]pendingChunk, []FailedItem, error) {
	fingerprint := p.modelFingerprint()
	pending := make([]pendingChunk, len(raw))

	var toEmbed []batch.Item
	var toEmbedIdx []int

	for i, rc := range raw {
		var embeddingID string
		if rc.contentType == store.ContentTypeImage {
			embeddingID = store.HashContent(rc.imageBytes, []byte(rc.contentType), []byte(fingerprint))
		} else {
			embeddingID = store.HashContent([]byte(rc.text), []byte(rc.contentType), []byte(fingerprint))
		}

		pending[i] = pendingChunk{raw: rc, embeddingID: embeddingID}

		existing, err := p.config.Metadata.GetEmbedding(ctx, embeddingID)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup embedding %s: %w", embeddingID, err)
		}
		if existing != nil {
			pending[i].vector = existing.Vector
			continue
		}

		pending[i].isNew = true
		item := batch.Item{ID: embeddingID, ContentType: rc.contentType, Text: rc.text}
		if rc.contentType == store.ContentTypeImage {
			item.Image = rc.imageBytes
			item.Mime = rc.imageMime
		}
		toEmbed = append(toEmbed, item)
		toEmbedIdx = append(toEmbedIdx, i)
	}

	if len(toEmbed) == 0 {
		return pending, nil, nil
	}

	result, err := p.config.Batch.Run(ctx, toEmbed, p.embedFunc, progress)
	if err != nil {
		return nil, nil, fmt.Errorf("batch embed: %w", err)
	}

	var failed []FailedItem
	for j, r := range result.Items {
		idx := toEmbedIdx[j]
		if r.Err != nil {
			failed = append(failed, FailedItem{Source: pending[idx].embeddingID, Err: r.Err})
			pending[idx].isNew = false // could not embed; drop at persistence time
			continue
		}
		pending[idx].vector = r.Vector
	}

	return pending, failed, nil
}

// embedFunc is the batch.EmbedFunc backing Pipeline's Batch Optimizer. The
// Optimizer groups items by content type before calling this, so each
// invocation's items are homogeneous.
func (p *Pipeline) embedFunc(ctx context.Context, items []batch.Item) ([][]float32, error) {
	if len(items) == 0 {
		return nil, nil
	}

	if items[0].ContentType == store.ContentTypeImage {
		vectors := make([][]float32, len(items))
		for i, it := range items {
			v, err := p.config.Embedder.EmbedImage(ctx, it.Image, it.Mime)
			if err != nil {
				return nil, fmt.Errorf("embed image %d: %w", i, err)
			}
			vectors[i] = v
		}
		return vectors, nil
	}

	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = it.Text
	}
	return p.config.Embedder.EmbedBatch(ctx, texts)
}
