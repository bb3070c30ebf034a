package chunk

import "fmt"

// Mode selects what a Preprocessor does with the content it recognizes.
type Mode string

const (
	// ModeStrip removes the recognized content outright (e.g. frontmatter).
	ModeStrip Mode = "strip"
	// ModeKeep passes the content through unchanged; the preprocessor only
	// reports applicability, it performs no transform.
	ModeKeep Mode = "keep"
	// ModePlaceholder replaces the recognized content with a short marker,
	// keeping the surrounding text's structure intact for chunking while
	// dropping bytes that aren't useful to embed (e.g. a diagram's raw DSL).
	ModePlaceholder Mode = "placeholder"
	// ModeExtract returns a derived summary of the recognized content
	// instead of the content itself (e.g. function signatures, not bodies).
	ModeExtract Mode = "extract"
)

// Preprocessor transforms content for a given language/format before it
// reaches the chunker. Preprocessors are pure: no I/O, no model loads
// (spec.md §4.6) — AppliesTo and Process are both deterministic functions
// of their arguments.
type Preprocessor interface {
	Name() string
	AppliesTo(language string) bool
	Process(content string, mode Mode) (string, error)
}

// Registry holds the set of preprocessors available to the chunker,
// dispatching by language/format.
type Registry struct {
	preprocessors []Preprocessor
}

// NewRegistry builds a registry with the standard preprocessor set:
// markdown frontmatter/fence handling, diagram-DSL fences, and the
// tree-sitter-backed code preprocessor.
func NewRegistry() *Registry {
	return &Registry{
		preprocessors: []Preprocessor{
			NewMarkdownPreprocessor(),
			NewDiagramPreprocessor(),
			NewTreeSitterPreprocessor(),
		},
	}
}

// For returns the preprocessors applicable to language, in registration
// order.
func (r *Registry) For(language string) []Preprocessor {
	var out []Preprocessor
	for _, p := range r.preprocessors {
		if p.AppliesTo(language) {
			out = append(out, p)
		}
	}
	return out
}

// Apply runs every applicable preprocessor for language against content in
// mode, in registration order, each consuming the prior one's output.
func (r *Registry) Apply(content, language string, mode Mode) (string, error) {
	out := content
	for _, p := range r.For(language) {
		var err error
		out, err = p.Process(out, mode)
		if err != nil {
			return "", fmt.Errorf("preprocessor %s: %w", p.Name(), err)
		}
	}
	return out, nil
}

// Register adds a custom preprocessor, e.g. for a project-specific DSL.
func (r *Registry) Register(p Preprocessor) {
	r.preprocessors = append(r.preprocessors, p)
}
