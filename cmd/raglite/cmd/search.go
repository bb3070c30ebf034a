package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raglite-go/raglite/internal/output"
	"github.com/raglite-go/raglite/internal/search"
	"github.com/raglite-go/raglite/internal/store"
)

type searchOptions struct {
	limit       int
	rerank      bool
	contentType string
	format      string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the corpus",
		Long: `Search the corpus using hybrid (BM25 + semantic) search with
reciprocal rank fusion and optional reranking.`,
		Example: `  raglite search "authentication middleware"
  raglite search "architecture decision" --content-type text --limit 5
  raglite search "release notes" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "force reranking on regardless of the corpus default")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "", "restrict results to one modality: text or image")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	cleanup := setupCLILogging()
	defer cleanup()

	out := output.New(cmd.OutOrStdout())

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	results, err := eng.Search(cmd.Context(), query, search.QueryOptions{
		TopK:              opts.limit,
		Rerank:            opts.rerank,
		ContentTypeFilter: store.ContentType(opts.contentType),
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results for %q", query))
		return nil
	}
	for i, r := range results {
		out.Statusf("", "%d. %s (chunk %d, score %.3f)", i+1, r.Source, r.ChunkIndex, r.Score)
		if r.Text != "" {
			out.Code(r.Text)
		}
	}
	return nil
}
