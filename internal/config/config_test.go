package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglite-go/raglite/internal/store"
)

// =============================================================================
// AC01: Default Configuration Tests
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, store.ModeText, cfg.Mode)

	assert.Equal(t, 1500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)

	assert.Equal(t, "", cfg.Ingest.Provider) // empty triggers auto-detection
	assert.Equal(t, 32, cfg.Ingest.BatchSize)

	assert.True(t, cfg.Search.EnableReranking)
	assert.Equal(t, store.RerankingTextDerived, cfg.Search.RerankingStrategy)
	assert.Equal(t, 10, cfg.Search.TopK)

	assert.Equal(t, 512, cfg.Resources.MemoryThresholdMB)
	assert.Equal(t, 30000, cfg.Resources.CleanupIntervalMS)

	assert.Equal(t, "content", cfg.Content.ContentDir)
	assert.True(t, cfg.Content.EnableDeduplication)

	assert.Equal(t, 100000, cfg.Performance.MaxFiles)
	assert.Equal(t, runtime.NumCPU(), cfg.Performance.IndexWorkers)
	assert.Equal(t, "500ms", cfg.Performance.WatchDebounce)
	assert.Equal(t, 1000, cfg.Performance.CacheSize)

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)

	assert.Contains(t, cfg.Paths.Exclude, "**/node_modules/**")
	assert.Contains(t, cfg.Paths.Exclude, "**/.git/**")
	assert.Contains(t, cfg.Paths.Exclude, "**/vendor/**")
}

func TestConfig_VersionDefaultsToOne(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 1, cfg.Version)
}

func TestNewConfig_PassesValidate(t *testing.T) {
	cfg := NewConfig()
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// AC02: Configuration File Loading Tests
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 10, cfg.Search.TopK)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
chunker:
  chunk_size: 2000
  chunk_overlap: 300
search:
  top_k: 25
`
	err := os.WriteFile(filepath.Join(tmpDir, ".raglite.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 300, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 25, cfg.Search.TopK)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
ingest:
  provider: static
`
	err := os.WriteFile(filepath.Join(tmpDir, ".raglite.yml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Ingest.Provider)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := "version: 1\ningest:\n  provider: sentencetransformer\n"
	ymlContent := "version: 1\ningest:\n  provider: static\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".raglite.yaml"), []byte(yamlContent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".raglite.yml"), []byte(ymlContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "sentencetransformer", cfg.Ingest.Provider)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	invalidContent := `
version: 1
search:
  top_k: [invalid yaml syntax
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".raglite.yaml"), []byte(invalidContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_InvalidFieldType_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	invalidContent := `
version: 1
chunker:
  chunk_size: "not-a-number"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".raglite.yaml"), []byte(invalidContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
}

// =============================================================================
// AC03: Project Type Detection Tests
// =============================================================================

func TestDetectProjectType_GoMod_ReturnsGo(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "go.mod"), []byte("module test"), 0o644))

	assert.Equal(t, ProjectTypeGo, DetectProjectType(tmpDir))
}

func TestDetectProjectType_PackageJson_ReturnsNode(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "package.json"), []byte("{}"), 0o644))

	assert.Equal(t, ProjectTypeNode, DetectProjectType(tmpDir))
}

func TestDetectProjectType_PyprojectToml_ReturnsPython(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "pyproject.toml"), []byte("[project]"), 0o644))

	assert.Equal(t, ProjectTypePython, DetectProjectType(tmpDir))
}

func TestDetectProjectType_RequirementsTxt_ReturnsPython(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "requirements.txt"), []byte("requests==2.0"), 0o644))

	assert.Equal(t, ProjectTypePython, DetectProjectType(tmpDir))
}

func TestDetectProjectType_NoMarkerFiles_ReturnsUnknown(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "random.txt"), []byte("hello"), 0o644))

	assert.Equal(t, ProjectTypeUnknown, DetectProjectType(tmpDir))
}

func TestDetectProjectType_Priority_GoOverNode(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "go.mod"), []byte("module test"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "package.json"), []byte("{}"), 0o644))

	assert.Equal(t, ProjectTypeGo, DetectProjectType(tmpDir))
}

// =============================================================================
// AC04: Directory Auto-Detection Tests
// =============================================================================

func TestFindProjectRoot_GitDirectory_ReturnsGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	nestedDir := filepath.Join(tmpDir, "src", "internal")
	require.NoError(t, os.Mkdir(gitDir, 0o755))
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))

	root, err := FindProjectRoot(nestedDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_ConfigFile_ReturnsConfigLocation(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "src", "internal")
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".raglite.yaml"), []byte("version: 1"), 0o644))

	root, err := FindProjectRoot(nestedDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_NoMarkers_ReturnsCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()

	root, err := FindProjectRoot(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestDiscoverSourceDirs_FindsCommonDirs(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "src"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "lib"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "internal"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "cmd"), 0o755))

	dirs := DiscoverSourceDirs(tmpDir)

	assert.Contains(t, dirs, "src")
	assert.Contains(t, dirs, "lib")
	assert.Contains(t, dirs, "internal")
	assert.Contains(t, dirs, "cmd")
}

func TestDiscoverDocsDirs_FindsDocDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "docs"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "doc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "README.md"), []byte("# Title"), 0o644))

	dirs := DiscoverDocsDirs(tmpDir)

	assert.Contains(t, dirs, "docs")
	assert.Contains(t, dirs, "doc")
	assert.Contains(t, dirs, "README.md")
}

func TestDiscoverSourceDirs_NextJS_FindsAppAndPages(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "package.json"), []byte(`{"dependencies":{"next":"*"}}`), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "app"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "pages"), 0o755))

	dirs := DiscoverSourceDirs(tmpDir)

	assert.Contains(t, dirs, "app")
	assert.Contains(t, dirs, "pages")
}

// =============================================================================
// AC05: Environment Variable Override Tests
// =============================================================================

func TestLoad_EnvVarOverridesProvider(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "version: 1\ningest:\n  provider: sentencetransformer\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".raglite.yaml"), []byte(configContent), 0o644))
	t.Setenv("RAGLITE_EMBEDDER", "static")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Ingest.Provider)
}

func TestLoad_EnvVarOverridesModel(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RAGLITE_EMBEDDING_MODEL", "all-minilm")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "all-minilm", cfg.Ingest.Model)
	assert.Equal(t, "all-minilm", cfg.Search.EmbeddingModel)
}

func TestLoad_EnvVarOverridesLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RAGLITE_LOG_LEVEL", "debug")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_EnvVarOverridesTransport(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RAGLITE_TRANSPORT", "sse")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "sse", cfg.Server.Transport)
}

func TestLoad_EnvVarOverridesTopK(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "version: 1\nsearch:\n  top_k: 25\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".raglite.yaml"), []byte(configContent), 0o644))
	t.Setenv("RAGLITE_TOP_K", "40")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Search.TopK)
}

func TestLoad_EnvVarOverridesChunkSize(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RAGLITE_CHUNK_SIZE", "3000")
	t.Setenv("RAGLITE_CHUNK_OVERLAP", "100")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 100, cfg.Chunker.ChunkOverlap)
}

func TestLoad_EnvVarEmptyString_DoesNotOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RAGLITE_EMBEDDER", "")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "", cfg.Ingest.Provider) // empty = auto-detect
}

// =============================================================================
// AC06: User/Global Configuration Tests
// =============================================================================

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path := GetUserConfigPath()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	expected := filepath.Join(home, ".config", "raglite", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	customConfig := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	path := GetUserConfigPath()

	expected := filepath.Join(customConfig, "raglite", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigDir_ReturnsParentOfConfigPath(t *testing.T) {
	dir := GetUserConfigDir()
	path := GetUserConfigPath()

	assert.Equal(t, filepath.Dir(path), dir)
}

func TestUserConfigExists_ReturnsFalseWhenMissing(t *testing.T) {
	emptyDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", emptyDir)

	assert.False(t, UserConfigExists())
}

func TestUserConfigExists_ReturnsTrueWhenPresent(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	ragliteDir := filepath.Join(configDir, "raglite")
	require.NoError(t, os.MkdirAll(ragliteDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ragliteDir, "config.yaml"), []byte("version: 1"), 0o644))

	assert.True(t, UserConfigExists())
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	ragliteDir := filepath.Join(configDir, "raglite")
	require.NoError(t, os.MkdirAll(ragliteDir, 0o755))
	userConfig := "version: 1\nsearch:\n  top_k: 30\n"
	require.NoError(t, os.WriteFile(filepath.Join(ragliteDir, "config.yaml"), []byte(userConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Search.TopK)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	ragliteDir := filepath.Join(configDir, "raglite")
	require.NoError(t, os.MkdirAll(ragliteDir, 0o755))
	userConfig := "version: 1\ningest:\n  provider: sentencetransformer\n  model: user-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(ragliteDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "version: 1\ningest:\n  model: project-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".raglite.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "project-model", cfg.Ingest.Model)
	assert.Equal(t, "sentencetransformer", cfg.Ingest.Provider)
}

func TestLoad_EnvVarOverridesUserAndProjectConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("RAGLITE_EMBEDDING_MODEL", "env-model")

	ragliteDir := filepath.Join(configDir, "raglite")
	require.NoError(t, os.MkdirAll(ragliteDir, 0o755))
	userConfig := "version: 1\ningest:\n  model: user-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(ragliteDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "version: 1\ningest:\n  model: project-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".raglite.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Ingest.Model)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	ragliteDir := filepath.Join(configDir, "raglite")
	require.NoError(t, os.MkdirAll(ragliteDir, 0o755))
	invalidConfig := "version: 1\ningest:\n  model: [invalid yaml\n"
	require.NoError(t, os.WriteFile(filepath.Join(ragliteDir, "config.yaml"), []byte(invalidConfig), 0o644))

	cfg, err := Load(projectDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "user config")
}
