package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes NewRootCmd with args against corpusDir, capturing combined
// stdout/stderr. Each call builds a fresh command tree since cobra commands
// are not safe to re-execute.
func runCLI(t *testing.T, corpusDir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--corpus", corpusDir}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
	return dir
}

func TestInitCmd_WritesProjectConfigAndMCPJSON(t *testing.T) {
	dir := chdirTemp(t)
	corpus := filepath.Join(dir, ".raglite")

	out, err := runCLI(t, corpus, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created project configuration")

	assert.FileExists(t, filepath.Join(dir, ".raglite.yaml"))

	data, err := os.ReadFile(filepath.Join(dir, ".mcp.json"))
	require.NoError(t, err)
	var cfg mcpConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	entry, ok := cfg.MCPServers["raglite"]
	require.True(t, ok, "raglite entry should be registered")
	assert.Equal(t, "raglite", entry.Command)
	assert.Equal(t, []string{"serve"}, entry.Args)
}

func TestInitCmd_PreservesExistingMCPServers(t *testing.T) {
	dir := chdirTemp(t)
	corpus := filepath.Join(dir, ".raglite")

	existing := `{"mcpServers":{"other-tool":{"command":"other-tool","args":["run"]}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mcp.json"), []byte(existing), 0o644))

	_, err := runCLI(t, corpus, "init")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ".mcp.json"))
	require.NoError(t, err)
	var cfg mcpConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	_, hasOther := cfg.MCPServers["other-tool"]
	_, hasRaglite := cfg.MCPServers["raglite"]
	assert.True(t, hasOther, "pre-existing server entry must be preserved")
	assert.True(t, hasRaglite, "raglite entry must be added")
}

func TestInitCmd_RefusesOverwriteWithoutForce(t *testing.T) {
	dir := chdirTemp(t)
	corpus := filepath.Join(dir, ".raglite")

	_, err := runCLI(t, corpus, "init")
	require.NoError(t, err)

	out, err := runCLI(t, corpus, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func writeStaticProjectConfig(t *testing.T, dir string) {
	t.Helper()
	yaml := `version: 1
mode: text
chunker:
  chunk_size: 500
  chunk_overlap: 50
ingest:
  provider: static
  model: static-test
search:
  enable_reranking: false
  top_k: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".raglite.yaml"), []byte(yaml), 0o644))
}

func TestIngestSearchStatsReset_EndToEnd(t *testing.T) {
	dir := chdirTemp(t)
	corpus := filepath.Join(dir, ".raglite")
	writeStaticProjectConfig(t, dir)

	out, err := runCLI(t, corpus, "ingest", "--text", "the quick brown fox jumps over the lazy dog", "--source-id", "doc://fox")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested")

	out, err = runCLI(t, corpus, "search", "fox")
	require.NoError(t, err)
	assert.Contains(t, out, "doc://fox")

	out, err = runCLI(t, corpus, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "documents: 1")

	out, err = runCLI(t, corpus, "stats", "--json")
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))

	out, err = runCLI(t, corpus, "reset", "--confirm")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 document")
}

func TestResetCmd_RequiresConfirm(t *testing.T) {
	dir := chdirTemp(t)
	corpus := filepath.Join(dir, ".raglite")
	writeStaticProjectConfig(t, dir)

	_, err := runCLI(t, corpus, "reset")
	assert.Error(t, err)
}

func TestIngestCmd_RequiresSourceIDForText(t *testing.T) {
	dir := chdirTemp(t)
	corpus := filepath.Join(dir, ".raglite")
	writeStaticProjectConfig(t, dir)

	_, err := runCLI(t, corpus, "ingest", "--text", "no source id here")
	assert.Error(t, err)
}

func TestIngestCmd_RequiresPathOrText(t *testing.T) {
	dir := chdirTemp(t)
	corpus := filepath.Join(dir, ".raglite")
	writeStaticProjectConfig(t, dir)

	_, err := runCLI(t, corpus, "ingest")
	assert.Error(t, err)
}

func TestConfigCmd_ShowAndPath(t *testing.T) {
	dir := chdirTemp(t)
	corpus := filepath.Join(dir, ".raglite")
	writeStaticProjectConfig(t, dir)

	out, err := runCLI(t, corpus, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "mode")

	out, err = runCLI(t, corpus, "config", "path")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestVersionCmd_Short(t *testing.T) {
	dir := chdirTemp(t)
	corpus := filepath.Join(dir, ".raglite")

	out, err := runCLI(t, corpus, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
