package ingest

import (
	"context"
	"log/slog"

	"github.com/raglite-go/raglite/internal/watcher"
)

// WatchOptions configures opt-in incremental ingestion driven by
// filesystem change events, layered on top of Pipeline.Ingest rather than
// replacing it: every detected create or modify re-runs Ingest over the
// whole Root, and every delete removes that path's document.
type WatchOptions struct {
	Enabled         bool
	Root            string
	IngestOptions   Options
	WatcherOptions  watcher.Options
	IgnorePatterns  []string
}

// Watch starts a HybridWatcher over root and feeds its events into the
// Pipeline until ctx is cancelled. Directory events and renames are
// ignored: a rename surfaces to the underlying watcher as a delete plus a
// create, which this handles as a removal plus a re-ingest of Root. Not on the critical path of Ingest/IngestBytes; this exists to
// keep a corpus fresh across a long-running process.
func (p *Pipeline) Watch(ctx context.Context, opts WatchOptions) error {
	wopts := opts.WatcherOptions.WithDefaults()
	wopts.IgnorePatterns = append(wopts.IgnorePatterns, opts.IgnorePatterns...)

	w, err := watcher.NewHybridWatcher(wopts)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(ctx, opts.Root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			slog.Warn("watch: watcher error", slog.String("error", err.Error()))
		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			p.handleWatchEvent(ctx, event, opts)
		}
	}
}

func (p *Pipeline) handleWatchEvent(ctx context.Context, event watcher.FileEvent, opts WatchOptions) {
	if event.IsDir {
		return
	}

	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		if _, err := p.Ingest(ctx, opts.Root, opts.IngestOptions); err != nil {
			slog.Warn("watch: re-ingest failed",
				slog.String("path", event.Path), slog.String("error", err.Error()))
		}
	case watcher.OpDelete:
		if err := p.removeSource(ctx, event.Path); err != nil {
			slog.Warn("watch: remove failed",
				slog.String("path", event.Path), slog.String("error", err.Error()))
		}
	default:
		// Rename/gitignore/config changes are not distinguished here; a
		// full rescan on the next create/modify event self-heals them.
	}
}

// removeSource deletes a document and its chunks/vector entries by source
// path, used when a watched file is deleted on disk.
func (p *Pipeline) removeSource(ctx context.Context, source string) error {
	doc, err := p.config.Metadata.GetDocumentBySource(ctx, source)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	chunks, err := p.config.Metadata.GetChunksByDocument(ctx, doc.DocID)
	if err != nil {
		return err
	}

	if err := p.config.Metadata.DeleteDocument(ctx, doc.DocID); err != nil {
		return err
	}

	var chunkIDs []string
	for _, c := range chunks {
		chunkIDs = append(chunkIDs, c.ChunkID)
		// DeleteDocument already decremented this embedding's refcount;
		// once it hits zero nothing else references the vector, so the
		// ANN graph entry can go too.
		emb, err := p.config.Metadata.GetEmbedding(ctx, c.EmbeddingID)
		if err == nil && (emb == nil || emb.RefCount <= 0) {
			p.config.VectorIndex.Delete(c.EmbeddingID)
		}
	}
	if p.config.BM25 != nil && len(chunkIDs) > 0 {
		if err := p.config.BM25.Delete(ctx, chunkIDs); err != nil {
			slog.Warn("bm25 delete failed", slog.String("error", err.Error()))
		}
	}

	return p.config.VectorIndex.Save(p.vectorIndexPath())
}
