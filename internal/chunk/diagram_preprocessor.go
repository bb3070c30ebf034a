package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

// diagramFencePattern matches fenced code blocks whose info string names a
// diagram DSL: ```mermaid ... ``` or ```plantuml ... ```.
var diagramFencePattern = regexp.MustCompile("(?s)```(mermaid|plantuml)\\n(.*?)```")

// DiagramPreprocessor recognizes Mermaid and PlantUML fences. Diagram DSL
// source embeds poorly (an embedding model sees syntax, not the picture it
// describes), so in placeholder mode it is replaced with a short marker
// rather than chunked verbatim — a supplemental preprocessor beyond what
// the teacher had, since the spec's chunker is document-oriented rather
// than code-oriented and technical documents commonly embed diagrams.
type DiagramPreprocessor struct{}

func NewDiagramPreprocessor() *DiagramPreprocessor { return &DiagramPreprocessor{} }

func (p *DiagramPreprocessor) Name() string { return "diagram" }

func (p *DiagramPreprocessor) AppliesTo(language string) bool {
	switch language {
	case "markdown", "md", "mdx":
		return true
	default:
		return false
	}
}

func (p *DiagramPreprocessor) Process(content string, mode Mode) (string, error) {
	if mode != ModePlaceholder {
		return content, nil
	}
	return diagramFencePattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := diagramFencePattern.FindStringSubmatch(match)
		kind := sub[1]
		lines := strings.Count(strings.TrimSpace(sub[2]), "\n") + 1
		return fmt.Sprintf("[diagram: %s, %d lines]", kind, lines)
	}), nil
}
