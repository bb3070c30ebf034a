package ragerr

import "fmt"

// Resolution gives the caller an actionable way out of the error, matching
// the engine's {error, message, details, resolution} response contract.
type Resolution struct {
	Action      string
	Command     string
	Explanation string
}

// RagError is the structured error type returned by every public operation.
type RagError struct {
	Kind       Kind
	Message    string
	Category   Category
	Severity   Severity
	Details    map[string]string
	Cause      error
	Retryable  bool
	Resolution *Resolution
}

func (e *RagError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *RagError) Unwrap() error {
	return e.Cause
}

// Is enables errors.Is(err, &RagError{Kind: ...}) by comparing kinds.
func (e *RagError) Is(target error) bool {
	t, ok := target.(*RagError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key/value detail and returns the error for chaining.
func (e *RagError) WithDetail(key, value string) *RagError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithResolution attaches an actionable resolution hint.
func (e *RagError) WithResolution(r Resolution) *RagError {
	e.Resolution = &r
	return e
}

// New creates a RagError of the given kind; category/severity/retryable are
// derived from the kind so they never drift out of sync with it.
func New(kind Kind, message string, cause error) *RagError {
	return &RagError{
		Kind:      kind,
		Message:   message,
		Category:  categoryFor(kind),
		Severity:  severityFor(kind),
		Cause:     cause,
		Retryable: retryableFor(kind),
	}
}

// Wrap creates a RagError from an existing error without discarding it.
func Wrap(kind Kind, err error) *RagError {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

// IsRetryable reports whether err is a RagError eligible for local retry.
func IsRetryable(err error) bool {
	ae, ok := err.(*RagError)
	return ok && ae.Retryable
}

// IsFatal reports whether err is a RagError with fatal severity.
func IsFatal(err error) bool {
	ae, ok := err.(*RagError)
	return ok && ae.Severity == SeverityFatal
}

// GetKind extracts the Kind from err, or "" if err is not a RagError.
func GetKind(err error) Kind {
	if ae, ok := err.(*RagError); ok {
		return ae.Kind
	}
	return ""
}

// Rebuild is a convenience Resolution for the many kinds that are fixed by
// re-running ingest with ForceRebuild.
func Rebuild(command string) Resolution {
	return Resolution{
		Action:      "force_rebuild",
		Command:     command,
		Explanation: "the stored corpus is incompatible with the requested model/mode; rebuilding discards and regenerates the index",
	}
}
