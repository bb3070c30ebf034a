package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raglite-go/raglite/internal/output"
	"github.com/raglite-go/raglite/internal/store"
)

func newResetCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the corpus",
		Long: `Destructively clear the corpus's documents, chunks, and vector index.
This cannot be undone; requires --confirm.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReset(cmd, confirm)
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required: confirm the destructive reset")
	return cmd
}

func runReset(cmd *cobra.Command, confirm bool) error {
	if !confirm {
		return fmt.Errorf("reset requires --confirm")
	}

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	report, err := eng.Reset(cmd.Context(), store.ResetOptions{})
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("Removed %d document(s), %d chunk(s)", report.DocumentsRemoved, report.ChunksRemoved)
	return nil
}
