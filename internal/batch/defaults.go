package batch

import "github.com/raglite-go/raglite/internal/store"

// Default batch sizes by content type. Image embedding models typically
// carry a much larger per-item memory footprint than text models, so the
// default image batch is a fraction of the text default.
const (
	DefaultTextBatchSize  = 32
	DefaultImageBatchSize = 8
	DefaultMixedBatchSize = 16
)

// DefaultBatchSize returns the default batch size for a content type.
func DefaultBatchSize(ct store.ContentType) int {
	switch ct {
	case store.ContentTypeImage:
		return DefaultImageBatchSize
	case store.ContentTypeMixed:
		return DefaultMixedBatchSize
	default:
		return DefaultTextBatchSize
	}
}
