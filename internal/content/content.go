// Package content implements the content-addressed blob store: documents
// and chunks too large or too binary to inline in the metadata database
// (images, large text bodies) are written here, addressed by the SHA-256
// hash of their bytes, and referenced from chunks via a content_id handle.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio"
	"github.com/raglite-go/raglite/internal/ragerr"
)

// Format selects how Get returns a blob's bytes.
type Format int

const (
	FormatFilePath Format = iota
	FormatBase64
)

// GetResult is the result of a Get call; exactly one of Path/Base64 is set
// depending on the requested Format.
type GetResult struct {
	Path   string
	Base64 string
	Mime   string
}

// ContentMeta describes a stored blob without its bytes.
type ContentMeta struct {
	ContentID  string
	ByteLength int64
	Mime       string
	RefCount   int
	CreatedAt  time.Time
}

// Store is the content-addressed blob store contract (C2).
type Store interface {
	Put(ctx context.Context, data []byte, mime string) (contentID string, err error)
	Get(ctx context.Context, contentID string, format Format) (GetResult, error)
	Metadata(ctx context.Context, contentID string) (ContentMeta, error)
	Exists(ctx context.Context, contentID string) (bool, error)
	RefInc(ctx context.Context, contentID string) error
	RefDec(ctx context.Context, contentID string) error
	GC(ctx context.Context) (reclaimed int, err error)
	Verify(ctx context.Context, contentID string) error
	Close() error
}

// refEntry tracks a blob's accounting. Kept in memory and rebuilt from disk
// on open, since content_refs also lives in the metadata database — this
// in-process cache spares a DB round trip on every Put/Get.
type refEntry struct {
	byteLength int64
	mime       string
	refCount   int
	createdAt  time.Time
}

// Caps bounds the store's disk footprint (I5).
type Caps struct {
	MaxFileSize       int64
	MaxContentDirSize int64
}

// DefaultCaps returns generous defaults: 64MiB per file, 8GiB total.
func DefaultCaps() Caps {
	return Caps{
		MaxFileSize:       64 << 20,
		MaxContentDirSize: 8 << 30,
	}
}

// FSStore is the filesystem-backed Store implementation: a sha256/xx/...
// content-addressed tree rooted at a directory, with atomic publish via
// write-temp-then-rename (here, renameio, matching the teacher's other
// atomic-publish call sites such as the vector index's Save).
type FSStore struct {
	mu       sync.Mutex
	root     string
	caps     Caps
	refs     map[string]*refEntry
	totalSz  int64
}

var _ Store = (*FSStore)(nil)

// Open opens (creating if absent) a content store rooted at dir.
func Open(dir string, caps Caps) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content root: %w", err)
	}
	s := &FSStore{root: dir, caps: caps, refs: make(map[string]*refEntry)}
	if err := s.rebuildIndex(); err != nil {
		return nil, fmt.Errorf("rebuild content index: %w", err)
	}
	return s, nil
}

func (s *FSStore) rebuildIndex() error {
	return filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		id := filepath.Base(rel)
		if len(id) != 64 { // sha256 hex digest length
			return nil
		}
		s.refs[id] = &refEntry{byteLength: info.Size(), refCount: 0, createdAt: info.ModTime()}
		s.totalSz += info.Size()
		return nil
	})
}

func (s *FSStore) pathFor(contentID string) string {
	return filepath.Join(s.root, contentID[:2], contentID)
}

// Put stores data, deduplicating on content hash, and returns its content_id.
func (s *FSStore) Put(ctx context.Context, data []byte, mime string) (string, error) {
	if int64(len(data)) > s.caps.MaxFileSize {
		return "", ragerr.New(ragerr.KindStorageCapExceeded,
			fmt.Sprintf("content %d bytes exceeds per-file cap %d", len(data), s.caps.MaxFileSize), nil)
	}

	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.refs[id]; ok {
		existing.refCount++
		return id, nil
	}

	if s.totalSz+int64(len(data)) > s.caps.MaxContentDirSize {
		return "", ragerr.New(ragerr.KindStorageCapExceeded,
			fmt.Sprintf("writing %d bytes would exceed content store cap %d", len(data), s.caps.MaxContentDirSize), nil)
	}

	path := s.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create content shard directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write content blob: %w", err)
	}

	s.refs[id] = &refEntry{byteLength: int64(len(data)), mime: mime, refCount: 1, createdAt: time.Now().UTC()}
	s.totalSz += int64(len(data))
	return id, nil
}

// Get retrieves a blob, either as a file path or inline base64.
func (s *FSStore) Get(ctx context.Context, contentID string, format Format) (GetResult, error) {
	s.mu.Lock()
	entry, ok := s.refs[contentID]
	s.mu.Unlock()
	if !ok {
		return GetResult{}, ragerr.New(ragerr.KindMissingFile, "content id not found: "+contentID, nil)
	}

	path := s.pathFor(contentID)
	switch format {
	case FormatFilePath:
		return GetResult{Path: path, Mime: entry.mime}, nil
	case FormatBase64:
		data, err := os.ReadFile(path)
		if err != nil {
			return GetResult{}, fmt.Errorf("read content blob: %w", err)
		}
		return GetResult{Base64: base64.StdEncoding.EncodeToString(data), Mime: entry.mime}, nil
	default:
		return GetResult{}, fmt.Errorf("unknown format %d", format)
	}
}

// Metadata returns accounting info for a stored blob.
func (s *FSStore) Metadata(ctx context.Context, contentID string) (ContentMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.refs[contentID]
	if !ok {
		return ContentMeta{}, ragerr.New(ragerr.KindMissingFile, "content id not found: "+contentID, nil)
	}
	return ContentMeta{
		ContentID:  contentID,
		ByteLength: entry.byteLength,
		Mime:       entry.mime,
		RefCount:   entry.refCount,
		CreatedAt:  entry.createdAt,
	}, nil
}

// Exists reports whether contentID is stored.
func (s *FSStore) Exists(ctx context.Context, contentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refs[contentID]
	return ok, nil
}

// RefInc increments a blob's refcount, e.g. when a second chunk references
// already-deduplicated content.
func (s *FSStore) RefInc(ctx context.Context, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.refs[contentID]
	if !ok {
		return ragerr.New(ragerr.KindMissingFile, "content id not found: "+contentID, nil)
	}
	entry.refCount++
	return nil
}

// RefDec decrements a blob's refcount. A refcount of zero makes the blob
// eligible for GC (I6) but does not remove it immediately.
func (s *FSStore) RefDec(ctx context.Context, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.refs[contentID]
	if !ok {
		return ragerr.New(ragerr.KindMissingFile, "content id not found: "+contentID, nil)
	}
	if entry.refCount > 0 {
		entry.refCount--
	}
	return nil
}

// GC sweeps and deletes every blob with refcount == 0 (I6).
func (s *FSStore) GC(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reclaimed := 0
	for id, entry := range s.refs {
		if entry.refCount > 0 {
			continue
		}
		path := s.pathFor(id)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return reclaimed, fmt.Errorf("gc remove %s: %w", id, err)
		}
		s.totalSz -= entry.byteLength
		delete(s.refs, id)
		reclaimed++
	}
	return reclaimed, nil
}

// Verify recomputes contentID's hash from its stored bytes and compares it
// to the content-addressed path component, returning IntegrityFailure on
// mismatch or on any read error.
func (s *FSStore) Verify(ctx context.Context, contentID string) error {
	path := s.pathFor(contentID)
	f, err := os.Open(path)
	if err != nil {
		return ragerr.New(ragerr.KindIntegrityFailure, "cannot open content blob for verification", err).
			WithDetail("content_id", contentID)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ragerr.New(ragerr.KindIntegrityFailure, "cannot read content blob for verification", err).
			WithDetail("content_id", contentID)
	}
	got := hex.EncodeToString(h.Sum(nil))
	if got != contentID {
		return ragerr.New(ragerr.KindIntegrityFailure, "content hash does not match its address", nil).
			WithDetail("content_id", contentID).
			WithDetail("computed_hash", got)
	}
	return nil
}

func (s *FSStore) Close() error {
	return nil
}
