package chunk

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/raglite-go/raglite/internal/store"
)

// ChunkerOptions parametrizes the generic chunker: chunk_size and
// chunk_overlap are both counted in tokens via the same tokenizer the
// corpus's lexical index uses (internal/store/tokenizer.go), so the
// chunker and the BM25 index agree on what a "token" is.
type ChunkerOptions struct {
	ChunkSizeTokens int
	OverlapTokens   int
}

func (o ChunkerOptions) withDefaults() ChunkerOptions {
	if o.ChunkSizeTokens == 0 {
		o.ChunkSizeTokens = DefaultMaxChunkTokens
	}
	if o.OverlapTokens == 0 {
		o.OverlapTokens = DefaultOverlapTokens
	}
	return o
}

// countTokens counts content's tokens the same way the lexical index does,
// so chunk_size and chunk_overlap mean the same thing in both places.
func countTokens(content string) int {
	return len(store.Tokenize(content))
}

// TextChunker splits prose with no structural markup (no headers, no code
// fences) into token-budgeted, overlap-guaranteed chunks, preferring
// paragraph and sentence breaks as breakpoints. It is the fallback chunker
// for ContentTypeText. MarkdownChunker reuses its packing routine
// (splitWithOverlap) for sections too large for one chunk; CodeChunker does
// not, and splits oversize code by lines instead.
type TextChunker struct {
	options ChunkerOptions
}

func NewTextChunker(opts ChunkerOptions) *TextChunker {
	return &TextChunker{options: opts.withDefaults()}
}

func (c *TextChunker) SupportedExtensions() []string {
	return []string{".txt"}
}

func (c *TextChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	groups := splitWithOverlap(splitIntoParagraphs(content), c.options.ChunkSizeTokens, c.options.OverlapTokens)

	now := time.Now()
	chunks := make([]*Chunk, 0, len(groups))
	line := 1
	for _, g := range groups {
		trimmed := strings.TrimSpace(g)
		if trimmed == "" {
			continue
		}
		lineCount := strings.Count(trimmed, "\n") + 1
		chunks = append(chunks, &Chunk{
			ID:          generateChunkID(file.Path, trimmed),
			FilePath:    file.Path,
			Content:     trimmed,
			RawContent:  trimmed,
			ContentType: ContentTypeText,
			Language:    file.Language,
			StartLine:   line,
			EndLine:     line + lineCount - 1,
			Metadata:    make(map[string]string),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		line += lineCount
	}
	return chunks, nil
}

func splitIntoParagraphs(content string) []string {
	parts := strings.Split(content, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitWithOverlap packs units (paragraphs, or any caller-chosen granule)
// into token-budgeted groups, each no larger than maxTokens once it has at
// least one unit, and carries exactly overlapTokens worth of trailing words
// from each group into the start of the next — guaranteeing every pair of
// consecutive chunks shares overlapTokens tokens, not an approximation of
// it (spec.md §4.6/§8: tokens(cᵢ) ≤ chunk_size, exact chunk_overlap shared
// tokens between consecutive chunks). Units larger than maxTokens minus
// overlapTokens are first sub-split on sentence, then word, boundaries, so
// the carried-over tail plus the next unit still fits in maxTokens. Where it
// would not (a code fence or table kept whole, or words that tokenize into
// several tokens), the tail is shortened until it fits, and that pair of
// chunks shares fewer than overlapTokens tokens.
func splitWithOverlap(units []string, maxTokens, overlapTokens int) []string {
	unitBudget := maxTokens
	if overlapTokens > 0 && overlapTokens < maxTokens {
		unitBudget = maxTokens - overlapTokens
	}
	units = splitOversizeUnits(units, unitBudget)
	if len(units) == 0 {
		return nil
	}

	var groups []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		groups = append(groups, strings.Join(current, "\n\n"))
	}

	for _, u := range units {
		ut := countTokens(u)
		if len(current) > 0 && currentTokens+ut > maxTokens {
			flush()
			tail := tailWords(strings.Join(current, "\n\n"), overlapTokens)
			for n := overlapTokens; tail != "" && countTokens(tail)+ut > maxTokens; n-- {
				tail = tailWords(tail, n-1)
			}
			current = nil
			if tail != "" {
				current = append(current, tail)
			}
			currentTokens = countTokens(strings.Join(current, "\n\n"))
		}
		current = append(current, u)
		currentTokens += ut
	}
	flush()

	return groups
}

// tailWords returns the trailing n words of s, joined back with single
// spaces. Words, not store.Tokenize tokens, are the unit of overlap
// reconstruction: it keeps the carried-forward text exactly reproducible
// from the source, while n is still chosen in the same token currency as
// chunk_size so the overlap budget is consistent.
func tailWords(s string, n int) string {
	words := strings.Fields(s)
	if n <= 0 || len(words) == 0 {
		return ""
	}
	if len(words) <= n {
		return s
	}
	return strings.Join(words[len(words)-n:], " ")
}

// splitOversizeUnits sub-splits any unit whose own token count already
// exceeds maxTokens, so the packer in splitWithOverlap never has to emit a
// single unit as an over-budget chunk. Code fences and tables are kept
// whole even when oversize: splitting inside them would produce a chunk
// that is no longer valid markdown/code, which matters more than the
// token cap for that one chunk.
func splitOversizeUnits(units []string, maxTokens int) []string {
	var out []string
	for _, u := range units {
		out = append(out, splitUnit(u, maxTokens)...)
	}
	return out
}

func splitUnit(unit string, maxTokens int) []string {
	if countTokens(unit) <= maxTokens || isAtomicUnit(unit) {
		return []string{unit}
	}

	sentences := splitIntoSentences(unit)
	if len(sentences) > 1 {
		return packSmallUnits(sentences, maxTokens, splitUnit)
	}

	// A single sentence (or a unit with no sentence punctuation at all,
	// e.g. one long line) still over budget: fall back to word boundaries.
	return packWords(unit, maxTokens)
}

// isAtomicUnit reports whether unit is a fenced code block or a markdown
// table, which splitUnit must never break apart mid-block.
func isAtomicUnit(unit string) bool {
	return strings.Contains(unit, "```") || strings.Contains(unit, "|---")
}

// packSmallUnits greedily packs already-small units (sentences) back into
// maxTokens-budgeted groups, recursing into recurse for any unit that is
// still oversize on its own.
func packSmallUnits(units []string, maxTokens int, recurse func(string, int) []string) []string {
	var out []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
			currentTokens = 0
		}
	}

	for _, u := range units {
		ut := countTokens(u)
		if ut > maxTokens {
			flush()
			out = append(out, recurse(u, maxTokens)...)
			continue
		}
		if len(current) > 0 && currentTokens+ut > maxTokens {
			flush()
		}
		current = append(current, u)
		currentTokens += ut
	}
	flush()

	return out
}

// splitIntoSentences splits s on '.', '!', '?' followed by whitespace (or
// end of string), trimming and dropping empty results.
func splitIntoSentences(s string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		b.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			sentences = append(sentences, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		sentences = append(sentences, b.String())
	}

	out := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		if trimmed := strings.TrimSpace(sent); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// packWords is the last-resort splitter for a single sentence (or
// unpunctuated run of text) still over maxTokens: it packs whitespace-
// separated words into maxTokens-budgeted groups.
func packWords(s string, maxTokens int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{s}
	}

	var out []string
	var current []string
	currentTokens := 0
	for _, w := range words {
		wt := countTokens(w)
		if wt == 0 {
			wt = 1
		}
		if len(current) > 0 && currentTokens+wt > maxTokens {
			out = append(out, strings.Join(current, " "))
			current = nil
			currentTokens = 0
		}
		current = append(current, w)
		currentTokens += wt
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}

// renumberChunkIndexes drops zero-length/whitespace-only chunks and keeps
// the survivors in their original order. Chunk carries no index field, so
// nothing is renumbered here; an index taken from a chunk's position in the
// returned slice is gap-free.
func renumberChunkIndexes(chunks []*Chunk) []*Chunk {
	out := make([]*Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}
