package chunk

import (
	"context"
	"fmt"
	"strings"
)

// TreeSitterPreprocessor extracts symbol signatures and doc-comments from
// source code via the tree-sitter parser (parser.go, languages.go,
// extractor.go — already a teacher dependency, github.com/smacker/go-tree-sitter,
// previously used only by CodeChunker directly). ExtractSignatures returns
// a compact signature listing for a source file; Process itself passes
// content through unchanged in every mode.
type TreeSitterPreprocessor struct {
	parser    *Parser
	extractor *SymbolExtractor
	registry  *LanguageRegistry
}

func NewTreeSitterPreprocessor() *TreeSitterPreprocessor {
	registry := DefaultRegistry()
	return &TreeSitterPreprocessor{
		parser:    NewParserWithRegistry(registry),
		extractor: NewSymbolExtractorWithRegistry(registry),
		registry:  registry,
	}
}

func (p *TreeSitterPreprocessor) Name() string { return "treesitter" }

func (p *TreeSitterPreprocessor) AppliesTo(language string) bool {
	_, ok := p.registry.GetByName(language)
	return ok
}

// Process returns content unchanged in every mode, ModeExtract included:
// signature extraction needs the language tag, which Process does not
// receive, so it is done by ExtractSignatures instead.
func (p *TreeSitterPreprocessor) Process(content string, mode Mode) (string, error) {
	if mode != ModeExtract {
		return content, nil
	}
	return content, nil
}

// ExtractSignatures parses source in language and returns one line per
// symbol, nested ones included: "type name: signature", doc comment on the line above
// when present. Exposed as its own method (not routed through Process)
// because it needs the language tag to select the tree-sitter grammar,
// which the Preprocessor interface doesn't carry.
func (p *TreeSitterPreprocessor) ExtractSignatures(ctx context.Context, source []byte, language string) (string, error) {
	tree, err := p.parser.Parse(ctx, source, language)
	if err != nil {
		return "", fmt.Errorf("parse for signature extraction: %w", err)
	}
	symbols := p.extractor.Extract(tree, source)

	var lines []string
	for _, s := range symbols {
		if s.DocComment != "" {
			lines = append(lines, "// "+strings.ReplaceAll(strings.TrimSpace(s.DocComment), "\n", " "))
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", s.Type, s.Name, s.Signature))
	}
	return strings.Join(lines, "\n"), nil
}

func (p *TreeSitterPreprocessor) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}
