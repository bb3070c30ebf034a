// Package cmd provides the CLI commands for raglite.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raglite-go/raglite/internal/config"
	"github.com/raglite-go/raglite/internal/engine"
	"github.com/raglite-go/raglite/internal/logging"
	"github.com/raglite-go/raglite/internal/profiling"
	"github.com/raglite-go/raglite/pkg/version"
)

// corpusDirName is the default corpus directory, created alongside a
// project's config file the same way the teacher keeps its index under
// .raglite.
const corpusDirName = ".raglite"

var corpusFlag string

// Profiling flags, carried from the teacher's root.go.
var (
	profileCPU string
	profileMem string
	profiler   = profiling.NewProfiler()
	cpuCleanup func()
)

// NewRootCmd creates the root command for the raglite CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "raglite",
		Short:   "Embedded local retrieval engine",
		Version: version.Version,
		Long: `raglite ingests documents and images into a local corpus and serves
hybrid (BM25 + semantic) search over them, either directly from the CLI
or as an MCP tool surface for AI coding assistants.`,
	}
	cmd.SetVersionTemplate("raglite version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&corpusFlag, "corpus", "", "corpus directory (default: <project root>/.raglite)")
	cmd.PersistentFlags().StringVar(&profileCPU, "cpu-profile", "", "write a CPU profile to this path")
	cmd.PersistentFlags().StringVar(&profileMem, "mem-profile", "", "write a heap profile to this path on exit")
	cmd.PersistentPreRunE = startProfiling
	cmd.PersistentPostRunE = stopProfiling

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the raglite CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// projectRoot resolves the project root for config/corpus discovery,
// falling back to the working directory when no project markers exist.
func projectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return cwd, nil
	}
	return root, nil
}

// resolveCorpusDir honors --corpus, defaulting to <project root>/.raglite.
func resolveCorpusDir() (string, error) {
	if corpusFlag != "" {
		return corpusFlag, nil
	}
	root, err := projectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, corpusDirName), nil
}

// loadConfig resolves the project root and loads its layered configuration.
func loadConfig() (config.Config, error) {
	root, err := projectRoot()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return config.Config{}, err
	}
	return *cfg, nil
}

// openEngine loads config and opens the engine against the resolved
// corpus directory, creating it on first use.
func openEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	corpusDir, err := resolveCorpusDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(corpusDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create corpus directory %s: %w", corpusDir, err)
	}
	return engine.Open(ctx, corpusDir, cfg)
}

// startProfiling starts CPU profiling if --cpu-profile was given.
func startProfiling(_ *cobra.Command, _ []string) error {
	if profileCPU == "" {
		return nil
	}
	cleanup, err := profiler.StartCPU(profileCPU)
	if err != nil {
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	cpuCleanup = cleanup
	return nil
}

// stopProfiling stops CPU profiling and writes the heap profile if
// --mem-profile was given.
func stopProfiling(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}
	return nil
}

// setupCLILogging initializes file-only logging for a CLI invocation,
// returning a no-op cleanup if logging setup fails so callers never need
// to check the error.
func setupCLILogging() func() {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	_, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return func() {}
	}
	return cleanup
}
