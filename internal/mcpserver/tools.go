package mcpserver

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query       string `json:"query" jsonschema:"the search query to execute"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Rerank      bool   `json:"rerank,omitempty" jsonschema:"force reranking on regardless of the corpus default"`
	ContentType string `json:"content_type,omitempty" jsonschema:"restrict results to one modality: text or image"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked list of matching chunks"`
}

// SearchResultOutput is a single ranked chunk returned by search.
type SearchResultOutput struct {
	Source      string  `json:"source" jsonschema:"the document's source identifier"`
	ChunkIndex  int     `json:"chunk_index" jsonschema:"position of this chunk within its document"`
	Text        string  `json:"text" jsonschema:"the chunk's text, empty for image chunks"`
	ContentType string  `json:"content_type" jsonschema:"text or image"`
	ContentID   string  `json:"content_id,omitempty" jsonschema:"handle for get_content, set for image chunks"`
	Score       float64 `json:"score" jsonschema:"relevance score, higher is better"`
}

// IngestInput defines the input schema for the ingest tool.
type IngestInput struct {
	Path         string `json:"path,omitempty" jsonschema:"file or directory path to ingest"`
	Text         string `json:"text,omitempty" jsonschema:"raw text to ingest instead of a path"`
	SourceID     string `json:"source_id,omitempty" jsonschema:"source identifier for text ingestion, required when text is set"`
	ForceRebuild bool   `json:"force_rebuild,omitempty" jsonschema:"re-embed and re-index even if the source is unchanged"`
}

// IngestOutput defines the output schema for the ingest tool.
type IngestOutput struct {
	DocumentsProcessed  int      `json:"documents_processed"`
	ChunksCreated       int      `json:"chunks_created"`
	EmbeddingsGenerated int      `json:"embeddings_generated"`
	ProcessingTimeMS    int64    `json:"processing_time_ms"`
	Warnings            []string `json:"warnings,omitempty"`
}

// GetContentInput defines the input schema for the get_content tool.
type GetContentInput struct {
	ContentID string `json:"content_id" jsonschema:"content handle from a search result"`
	AsBase64  bool   `json:"as_base64,omitempty" jsonschema:"return the blob base64-encoded instead of a file path"`
}

// GetContentOutput defines the output schema for the get_content tool.
type GetContentOutput struct {
	Path   string `json:"path,omitempty" jsonschema:"on-disk path to the blob, set unless as_base64 was requested"`
	Base64 string `json:"base64,omitempty" jsonschema:"base64-encoded blob, set when as_base64 was requested"`
	Mime   string `json:"mime" jsonschema:"the blob's MIME type"`
}

// StatsInput defines the input schema for the stats tool (no parameters).
type StatsInput struct{}

// StatsOutput defines the output schema for the stats tool.
type StatsOutput struct {
	DatabaseExists bool      `json:"database_exists"`
	IndexExists    bool      `json:"index_exists"`
	Mode           string    `json:"mode"`
	DocumentCount  int       `json:"document_count"`
	ChunkCount     int       `json:"chunk_count"`
	Model          ModelInfo `json:"model"`
	Compatible     bool      `json:"compatible"`
	Reason         string    `json:"reason,omitempty"`
	LastIngestedAt string    `json:"last_ingested_at,omitempty"`
}

// ModelInfo describes the embedder backing the corpus.
type ModelInfo struct {
	Name          string `json:"name"`
	Dimensions    int    `json:"dimensions"`
	SupportsImage bool   `json:"supports_image"`
}

// ResetInput defines the input schema for the reset tool.
type ResetInput struct {
	Confirm bool `json:"confirm" jsonschema:"must be true; guards against an accidental destructive reset"`
}

// ResetOutput defines the output schema for the reset tool.
type ResetOutput struct {
	DocumentsRemoved int `json:"documents_removed"`
	ChunksRemoved    int `json:"chunks_removed"`
}
