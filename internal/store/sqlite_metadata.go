package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO
)

// SQLiteMetadataStore is the MetadataStore implementation backed by
// modernc.org/sqlite. One *sql.DB per corpus directory; WAL mode plus a
// single writer connection gives one-writer/many-reader semantics without
// an external database process, mirroring the connection setup in
// sqlite_bm25.go (pragmas, single-connection pool, integrity-checked open).
type SQLiteMetadataStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)

// OpenMetadataStore opens (creating if absent) the metadata database at
// path, running schema migrations as needed. An empty path opens an
// in-memory store, used by tests.
func OpenMetadataStore(path string) (*SQLiteMetadataStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create metadata directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	s := &SQLiteMetadataStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteMetadataStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		doc_id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		embedding_id TEXT PRIMARY KEY,
		dims INTEGER NOT NULL,
		content_type TEXT NOT NULL,
		vector BLOB NOT NULL,
		refcount INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id TEXT PRIMARY KEY,
		doc_id INTEGER NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		token_count INTEGER NOT NULL,
		embedding_id TEXT NOT NULL REFERENCES embeddings(embedding_id),
		content_id TEXT,
		content_type TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(doc_id, chunk_index)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks(embedding_id);

	CREATE TABLE IF NOT EXISTS system_info (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		mode TEXT NOT NULL,
		model_name TEXT NOT NULL,
		model_type TEXT NOT NULL,
		model_dimensions INTEGER NOT NULL,
		model_version TEXT NOT NULL,
		reranking_strategy TEXT NOT NULL,
		supported_content_types TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kv_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		CurrentSchemaVersion, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *SQLiteMetadataStore) GetSystemInfo(ctx context.Context) (*SystemInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT mode, model_name, model_type, model_dimensions,
		model_version, reranking_strategy, supported_content_types, created_at, updated_at
		FROM system_info WHERE id = 1`)

	var info SystemInfo
	var mode, modelType, strategy, types, created, updated string
	if err := row.Scan(&mode, &info.ModelName, &modelType, &info.ModelDimensions,
		&info.ModelVersion, &strategy, &types, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get system info: %w", err)
	}
	info.Mode = Mode(mode)
	info.ModelType = ModelType(modelType)
	info.RerankingStrategy = RerankingStrategy(strategy)
	info.SupportedContentTypes = decodeContentTypes(types)
	info.CreatedAt, _ = time.Parse(time.RFC3339, created)
	info.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &info, nil
}

func (s *SQLiteMetadataStore) SetSystemInfo(ctx context.Context, info *SystemInfo) error {
	now := time.Now().UTC()
	if info.CreatedAt.IsZero() {
		info.CreatedAt = now
	}
	info.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_info (id, mode, model_name, model_type, model_dimensions,
			model_version, reranking_strategy, supported_content_types, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			model_name = excluded.model_name,
			model_type = excluded.model_type,
			model_dimensions = excluded.model_dimensions,
			model_version = excluded.model_version,
			reranking_strategy = excluded.reranking_strategy,
			supported_content_types = excluded.supported_content_types,
			updated_at = excluded.updated_at`,
		string(info.Mode), info.ModelName, string(info.ModelType), info.ModelDimensions,
		info.ModelVersion, string(info.RerankingStrategy), encodeContentTypes(info.SupportedContentTypes),
		info.CreatedAt.Format(time.RFC3339), info.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set system info: %w", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) UpsertDocument(ctx context.Context, source, title string, contentType ContentType) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (source, title, content_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			title = excluded.title, content_type = excluded.content_type, updated_at = excluded.updated_at`,
		source, title, string(contentType), now, now)
	if err != nil {
		return 0, fmt.Errorf("upsert document: %w", err)
	}
	var docID int64
	if err := s.db.QueryRowContext(ctx, `SELECT doc_id FROM documents WHERE source = ?`, source).Scan(&docID); err != nil {
		return 0, fmt.Errorf("read back document id: %w", err)
	}
	return docID, nil
}

func (s *SQLiteMetadataStore) GetDocumentBySource(ctx context.Context, source string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc_id, source, title, content_type, created_at, updated_at
		FROM documents WHERE source = ?`, source)
	var d Document
	var contentType, created, updated string
	if err := row.Scan(&d.DocID, &d.Source, &d.Title, &contentType, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	d.ContentType = ContentType(contentType)
	d.CreatedAt, _ = time.Parse(time.RFC3339, created)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &d, nil
}

func (s *SQLiteMetadataStore) GetDocument(ctx context.Context, docID int64) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc_id, source, title, content_type, created_at, updated_at
		FROM documents WHERE doc_id = ?`, docID)
	var d Document
	var contentType, created, updated string
	if err := row.Scan(&d.DocID, &d.Source, &d.Title, &contentType, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	d.ContentType = ContentType(contentType)
	d.CreatedAt, _ = time.Parse(time.RFC3339, created)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &d, nil
}

func (s *SQLiteMetadataStore) DeleteDocument(ctx context.Context, docID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := decRefsForDocument(ctx, tx, docID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return tx.Commit()
}

// decRefsForDocument decrements the refcount of every embedding referenced
// by docID's chunks, as part of the same transaction that removes them.
func decRefsForDocument(ctx context.Context, tx *sql.Tx, docID int64) error {
	rows, err := tx.QueryContext(ctx, `SELECT embedding_id FROM chunks WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("list chunk embeddings: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE embeddings SET refcount = refcount - 1 WHERE embedding_id = ?`, id); err != nil {
			return fmt.Errorf("decrement refcount: %w", err)
		}
	}
	return nil
}

// ReplaceChunks atomically swaps docID's chunk set: deletes prior chunks,
// decrements their embedding refcounts, inserts the new chunks and
// upserts (dedup-aware) their embedding records. chunk_index is taken as
// given by the caller, which is responsible for it forming the gap-free
// 0..n-1 prefix required by I4 (the chunker assigns indices in order).
func (s *SQLiteMetadataStore) ReplaceChunks(ctx context.Context, docID int64, chunks []*Chunk, embeddings []*EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := decRefsForDocument(ctx, tx, docID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("delete prior chunks: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range embeddings {
		vecBlob := encodeVector(e.Vector)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO embeddings (embedding_id, dims, content_type, vector, refcount, created_at)
			VALUES (?, ?, ?, ?, 1, ?)
			ON CONFLICT(embedding_id) DO UPDATE SET refcount = refcount + 1`,
			e.EmbeddingID, e.Dims, string(e.ContentType), vecBlob, now)
		if err != nil {
			return fmt.Errorf("upsert embedding %s: %w", e.EmbeddingID, err)
		}
	}

	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (chunk_id, doc_id, chunk_index, text, token_count, embedding_id, content_id, content_type, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ChunkID, docID, c.ChunkIndex, c.Text, c.TokenCount, c.EmbeddingID, nullableString(c.ContentID), string(c.ContentType), now)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `UPDATE documents SET updated_at = ? WHERE doc_id = ?`, now, docID)
	if err != nil {
		return fmt.Errorf("touch document: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteMetadataStore) GetChunksByEmbeddingIDs(ctx context.Context, ids []string) ([]*Chunk, error) {
	out := make([]*Chunk, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx, `SELECT chunk_id, doc_id, chunk_index, text, token_count,
			embedding_id, content_id, content_type, created_at FROM chunks WHERE embedding_id = ? LIMIT 1`, id)
		c, err := scanChunk(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("get chunk by embedding %s: %w", id, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SQLiteMetadataStore) GetChunksByDocument(ctx context.Context, docID int64) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, doc_id, chunk_index, text, token_count,
		embedding_id, content_id, content_type, created_at FROM chunks WHERE doc_id = ? ORDER BY chunk_index ASC`, docID)
	if err != nil {
		return nil, fmt.Errorf("get chunks by document: %w", err)
	}
	defer rows.Close()

	var out []*Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChunk(row *sql.Row) (*Chunk, error) {
	var c Chunk
	var contentID sql.NullString
	var contentType, created string
	if err := row.Scan(&c.ChunkID, &c.DocID, &c.ChunkIndex, &c.Text, &c.TokenCount,
		&c.EmbeddingID, &contentID, &contentType, &created); err != nil {
		return nil, err
	}
	c.ContentID = contentID.String
	c.ContentType = ContentType(contentType)
	c.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &c, nil
}

func scanChunkRows(rows *sql.Rows) (*Chunk, error) {
	var c Chunk
	var contentID sql.NullString
	var contentType, created string
	if err := rows.Scan(&c.ChunkID, &c.DocID, &c.ChunkIndex, &c.Text, &c.TokenCount,
		&c.EmbeddingID, &contentID, &contentType, &created); err != nil {
		return nil, err
	}
	c.ContentID = contentID.String
	c.ContentType = ContentType(contentType)
	c.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &c, nil
}

func (s *SQLiteMetadataStore) IncRef(ctx context.Context, embeddingID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE embeddings SET refcount = refcount + 1 WHERE embedding_id = ?`, embeddingID)
	return err
}

func (s *SQLiteMetadataStore) DecRef(ctx context.Context, embeddingID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE embeddings SET refcount = refcount - 1 WHERE embedding_id = ?`, embeddingID)
	return err
}

func (s *SQLiteMetadataStore) GetEmbedding(ctx context.Context, embeddingID string) (*EmbeddingRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT embedding_id, dims, content_type, vector, refcount, created_at
		FROM embeddings WHERE embedding_id = ?`, embeddingID)
	var e EmbeddingRecord
	var contentType, created string
	var vecBlob []byte
	if err := row.Scan(&e.EmbeddingID, &e.Dims, &contentType, &vecBlob, &e.RefCount, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	e.ContentType = ContentType(contentType)
	e.Vector = decodeVector(vecBlob, e.Dims)
	e.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &e, nil
}

func (s *SQLiteMetadataStore) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *SQLiteMetadataStore) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLiteMetadataStore) SaveCheckpoint(ctx context.Context, cp *IndexCheckpoint) error {
	pairs := map[string]string{
		StateKeyCheckpointStage:         cp.Stage,
		StateKeyCheckpointTotal:         fmt.Sprintf("%d", cp.Total),
		StateKeyCheckpointEmbedded:      fmt.Sprintf("%d", cp.EmbeddedCount),
		StateKeyCheckpointTimestamp:     time.Now().UTC().Format(time.RFC3339),
		StateKeyCheckpointEmbedderModel: cp.EmbedderModel,
	}
	for k, v := range pairs {
		if err := s.SetState(ctx, k, v); err != nil {
			return fmt.Errorf("save checkpoint key %s: %w", k, err)
		}
	}
	return nil
}

func (s *SQLiteMetadataStore) LoadCheckpoint(ctx context.Context) (*IndexCheckpoint, error) {
	stage, err := s.GetState(ctx, StateKeyCheckpointStage)
	if err != nil {
		return nil, err
	}
	if stage == "" {
		return nil, nil
	}
	cp := &IndexCheckpoint{Stage: stage}
	if v, _ := s.GetState(ctx, StateKeyCheckpointTotal); v != "" {
		fmt.Sscanf(v, "%d", &cp.Total)
	}
	if v, _ := s.GetState(ctx, StateKeyCheckpointEmbedded); v != "" {
		fmt.Sscanf(v, "%d", &cp.EmbeddedCount)
	}
	if v, _ := s.GetState(ctx, StateKeyCheckpointTimestamp); v != "" {
		cp.Timestamp, _ = time.Parse(time.RFC3339, v)
	}
	cp.EmbedderModel, _ = s.GetState(ctx, StateKeyCheckpointEmbedderModel)
	return cp, nil
}

func (s *SQLiteMetadataStore) ClearCheckpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_state WHERE key IN (?, ?, ?, ?, ?)`,
		StateKeyCheckpointStage, StateKeyCheckpointTotal, StateKeyCheckpointEmbedded,
		StateKeyCheckpointTimestamp, StateKeyCheckpointEmbedderModel)
	return err
}

func (s *SQLiteMetadataStore) HasData(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return false, fmt.Errorf("count documents: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteMetadataStore) Reset(ctx context.Context, opts ResetOptions) (*ResetReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	report := &ResetReport{}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&report.DocumentsRemoved); err != nil {
		return nil, err
	}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&report.ChunksRemoved); err != nil {
		return nil, err
	}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&report.EmbeddingsRemoved); err != nil {
		return nil, err
	}

	for _, stmt := range []string{`DELETE FROM chunks`, `DELETE FROM embeddings`, `DELETE FROM documents`, `DELETE FROM kv_state`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("reset: %w", err)
		}
	}
	if !opts.KeepSystemInfo {
		if _, err := tx.ExecContext(ctx, `DELETE FROM system_info`); err != nil {
			return nil, fmt.Errorf("reset system info: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *SQLiteMetadataStore) Stats(ctx context.Context) (*CorpusStats, error) {
	var st CorpusStats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&st.DocumentCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.ChunkCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&st.EmbeddingCount); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *SQLiteMetadataStore) Close() error {
	return s.db.Close()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		bits := math.Float32bits(x)
		buf[i*4] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}

func decodeVector(buf []byte, dims int) []float32 {
	v := make([]float32, dims)
	for i := 0; i < dims && (i+1)*4 <= len(buf); i++ {
		bits := uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		v[i] = math.Float32frombits(bits)
	}
	return v
}

func encodeContentTypes(types []ContentType) string {
	s := ""
	for i, t := range types {
		if i > 0 {
			s += ","
		}
		s += string(t)
	}
	return s
}

func decodeContentTypes(s string) []ContentType {
	if s == "" {
		return nil
	}
	var out []ContentType
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, ContentType(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

// HashContent returns the hex-encoded SHA-256 hash of data, the base of the
// embedding_id formula: hash(normalize(content), content_type, model_fingerprint).
func HashContent(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
