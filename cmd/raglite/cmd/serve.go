package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/raglite-go/raglite/internal/logging"
	"github.com/raglite-go/raglite/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run raglite as an MCP server over the given transport, exposing
search/ingest/get_content/stats/reset as MCP tools.

The MCP protocol requires stdout to carry only JSON-RPC traffic, so this
command logs exclusively to a file (never stdout/stderr) once it starts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, transport)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	return cmd
}

func runServe(cmd *cobra.Command, transport string) error {
	cleanup, err := logging.SetupMCPModeWithLevel("info")
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanup()

	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	srv, err := mcpserver.NewServer(eng, slog.Default())
	if err != nil {
		return err
	}

	return srv.Serve(cmd.Context(), transport)
}
