package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raglite-go/raglite/configs"
	"github.com/raglite-go/raglite/internal/output"
)

// mcpServerConfig is one entry of a .mcp.json's mcpServers map.
type mcpServerConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// mcpConfig is the root .mcp.json structure Claude Code and similar
// clients read to discover local MCP servers.
type mcpConfig struct {
	MCPServers map[string]mcpServerConfig `json:"mcpServers"`
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize raglite for a project",
		Long: `Initialize raglite for the current project.

Writes .raglite.yaml (project configuration, safe to check into version
control) and registers raglite as an MCP server in .mcp.json so Claude
Code and similar clients can discover it. Run 'raglite ingest' afterward
to build the corpus.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing .raglite.yaml")
	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := projectRoot()
	if err != nil {
		return err
	}

	configPath := filepath.Join(root, ".raglite.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		out.Warning("Project configuration already exists")
		out.Statusf("📁", "Location: %s", configPath)
		out.Status("💡", "Use --force to overwrite")
	} else {
		if err := os.WriteFile(configPath, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", configPath, err)
		}
		out.Success("Created project configuration")
		out.Statusf("📁", "Location: %s", configPath)
	}

	if err := registerMCPServer(root); err != nil {
		out.Warningf("could not register MCP server: %v", err)
	} else {
		out.Success("Registered raglite as an MCP server in .mcp.json")
	}

	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Run 'raglite ingest <path>' to build the corpus")
	out.Status("", "  2. Restart your MCP client to pick up the new server")

	return nil
}

// registerMCPServer adds (or updates) a "raglite" entry in root's
// .mcp.json, preserving any other servers already configured there.
func registerMCPServer(root string) error {
	mcpPath := filepath.Join(root, ".mcp.json")

	cfg := mcpConfig{MCPServers: map[string]mcpServerConfig{}}
	if data, err := os.ReadFile(mcpPath); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("existing .mcp.json is not valid JSON: %w", err)
		}
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]mcpServerConfig{}
	}

	cfg.MCPServers["raglite"] = mcpServerConfig{Command: "raglite", Args: []string{"serve"}}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(mcpPath, append(data, '\n'), 0o644)
}
