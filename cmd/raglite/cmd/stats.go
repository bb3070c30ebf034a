package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raglite-go/raglite/internal/output"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics and compatibility",
		Long: `Display the corpus's on-disk state, document/chunk counts, the embedder
model it was built with, and whether that model is still compatible with
the current configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func runStats(cmd *cobra.Command, jsonOutput bool) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, err := eng.Stats(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("", "mode: %s", stats.Mode)
	out.Statusf("", "documents: %d, chunks: %d", stats.DocumentCount, stats.ChunkCount)
	out.Statusf("", "embedder: %s (%d dims, image support: %v)", stats.ModelInfo.Name, stats.ModelInfo.Dimensions, stats.ModelInfo.SupportsImage)
	if stats.Compatibility.Compatible {
		out.Success("configuration is compatible with the stored corpus")
	} else {
		out.Warningf("configuration is incompatible: %s", stats.Compatibility.Reason)
	}
	return nil
}
