package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raglite-go/raglite/internal/engine"
	"github.com/raglite-go/raglite/internal/output"
	"github.com/raglite-go/raglite/internal/preflight"
	"github.com/raglite-go/raglite/internal/ui"
)

type ingestOptions struct {
	text         string
	sourceID     string
	forceRebuild bool
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Ingest a file, directory, or raw text into the corpus",
		Long: `Discover, chunk, embed, and index documents into the corpus.

A single file or a directory tree can be ingested by path; directories
are walked recursively. Use --text/--source-id to ingest an in-memory
document with no backing file.`,
		Example: `  raglite ingest ./docs
  raglite ingest ./docs/architecture.md
  raglite ingest --text "release notes for v2" --source-id notes://v2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 0 {
				path = args[0]
			}
			return runIngest(cmd, path, opts)
		},
	}

	cmd.Flags().StringVar(&opts.text, "text", "", "ingest this raw text instead of a path")
	cmd.Flags().StringVar(&opts.sourceID, "source-id", "", "source identifier for --text ingestion")
	cmd.Flags().BoolVar(&opts.forceRebuild, "force-rebuild", false, "re-embed and re-index even if the source is unchanged")

	return cmd
}

func runIngest(cmd *cobra.Command, path string, opts ingestOptions) error {
	cleanup := setupCLILogging()
	defer cleanup()

	if path == "" && opts.text == "" {
		return fmt.Errorf("ingest requires either a path argument or --text")
	}
	if opts.text != "" && opts.sourceID == "" {
		return fmt.Errorf("--source-id is required when using --text")
	}

	out := output.New(cmd.OutOrStdout())

	root, err := projectRoot()
	if err != nil {
		return err
	}
	checker := preflight.New(preflight.WithOutput(cmd.OutOrStdout()))
	results := checker.RunAll(cmd.Context(), root)
	if checker.HasCriticalFailures(results) {
		checker.PrintResults(results)
		return fmt.Errorf("preflight checks failed, aborting ingest")
	}

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	src := engine.Source{Path: path}
	if opts.text != "" {
		src = engine.Source{Bytes: []byte(opts.text), SourceID: opts.sourceID, Title: opts.sourceID}
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout()))
	if err := renderer.Start(cmd.Context()); err != nil {
		return fmt.Errorf("failed to start progress display: %w", err)
	}
	defer renderer.Stop()

	report, err := eng.Ingest(cmd.Context(), src, engine.IngestOptions{
		ForceRebuild: opts.forceRebuild,
		Progress: func(done, total int) {
			renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEmbedding, Current: done, Total: total})
		},
	})
	if err != nil {
		return err
	}
	renderer.Complete(ui.CompletionStats{
		Files:    report.DocumentsProcessed,
		Chunks:   report.ChunksCreated,
		Duration: time.Duration(report.ProcessingTimeMS) * time.Millisecond,
		Errors:   len(report.Failed),
		Warnings: len(report.Warnings),
	})

	out.Successf("Ingested %d document(s), %d chunk(s) in %dms", report.DocumentsProcessed, report.ChunksCreated, report.ProcessingTimeMS)
	for _, w := range report.Warnings {
		out.Warning(w)
	}
	for _, f := range report.Failed {
		out.Errorf("%s: %s", f.Source, f.Err)
	}
	return nil
}
