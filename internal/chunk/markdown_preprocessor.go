package chunk

import "strings"

// MarkdownPreprocessor handles two pieces of Markdown structure: strip mode
// removes YAML frontmatter and extract mode returns the header outline.
// Fenced code blocks are left as they are. Its patterns are MarkdownChunker's
// own frontmatter/header regexes (markdown_chunker.go) rather than
// reimplemented, since the chunker already has to recognize both.
type MarkdownPreprocessor struct{}

func NewMarkdownPreprocessor() *MarkdownPreprocessor { return &MarkdownPreprocessor{} }

func (p *MarkdownPreprocessor) Name() string { return "markdown" }

func (p *MarkdownPreprocessor) AppliesTo(language string) bool {
	switch language {
	case "markdown", "md", "mdx":
		return true
	default:
		return false
	}
}

func (p *MarkdownPreprocessor) Process(content string, mode Mode) (string, error) {
	switch mode {
	case ModeStrip:
		if m := frontmatterPattern.FindString(content); m != "" {
			return strings.TrimPrefix(content, m), nil
		}
		return content, nil
	case ModeExtract:
		return p.extractOutline(content), nil
	case ModeKeep, ModePlaceholder:
		return content, nil
	default:
		return content, nil
	}
}

// extractOutline returns the document's header outline, one line per
// header, "level title" — a cheap structural summary useful as a chunking
// hint without re-walking the full section parser.
func (p *MarkdownPreprocessor) extractOutline(content string) string {
	matches := headerPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return ""
	}
	var lines []string
	for _, m := range matches {
		lines = append(lines, m[1]+" "+strings.TrimSpace(m[2]))
	}
	return strings.Join(lines, "\n")
}
