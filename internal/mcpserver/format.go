package mcpserver

import (
	"fmt"
	"strings"

	"github.com/raglite-go/raglite/internal/search"
)

// FormatSearchResults renders ranked search results as markdown, suitable
// for a tool result an AI client shows directly to a user.
func FormatSearchResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for %q\n\n", query)
	fmt.Fprintf(&sb, "Found %d result", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		formatResult(&sb, i+1, r)
	}
	return sb.String()
}

func formatResult(sb *strings.Builder, num int, r search.Result) {
	fmt.Fprintf(sb, "### %d. %s (chunk %d, score: %.3f)\n\n", num, r.Source, r.ChunkIndex, r.Score)
	if r.ContentType == "image" && r.ContentID != "" {
		fmt.Fprintf(sb, "_image content, resolve via get_content with content_id=%q_\n\n", r.ContentID)
		return
	}
	fmt.Fprintf(sb, "```\n%s\n```\n\n", r.Text)
}

// ToSearchResultOutput converts an engine search.Result into the tool's
// structured output shape.
func ToSearchResultOutput(r search.Result) SearchResultOutput {
	return SearchResultOutput{
		Source:      r.Source,
		ChunkIndex:  r.ChunkIndex,
		Text:        r.Text,
		ContentType: string(r.ContentType),
		ContentID:   r.ContentID,
		Score:       r.Score,
	}
}

// clampLimit clamps limit into [min, max], substituting defaultVal when
// limit is unset (<=0).
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		limit = defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
