package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raglite-go/raglite/internal/ragerr"
	"github.com/raglite-go/raglite/internal/store"
)

// ProjectType represents the type of project detected.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeUnknown ProjectType = "unknown"
)

// Config is the complete configuration for one raglite corpus: how it
// chunks, ingests, searches, manages resources, and stores content, plus
// the ambient sections (path filters, performance tuning, server
// transport) carried from the teacher's configuration surface.
type Config struct {
	Version int        `yaml:"version" json:"version"`
	Mode    store.Mode `yaml:"mode" json:"mode"`

	Chunker     ChunkerConfig     `yaml:"chunker" json:"chunker"`
	Ingest      IngestConfig      `yaml:"ingest" json:"ingest"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Resources   ResourceConfig    `yaml:"resources" json:"resources"`
	Content     ContentConfig     `yaml:"content" json:"content"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
}

// ChunkerConfig configures how documents are split into chunks (C6).
type ChunkerConfig struct {
	ChunkSize    int    `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap" json:"chunk_overlap"`
	Tokenizer    string `yaml:"tokenizer" json:"tokenizer"` // "code" or "word", see internal/chunk
}

// IngestConfig configures the ingestion pipeline (C7).
type IngestConfig struct {
	Mode      store.Mode `yaml:"mode" json:"mode"`
	Provider  string     `yaml:"provider" json:"provider"` // embed.ProviderType: sentencetransformer, clip, static
	Model     string     `yaml:"model" json:"model"`
	BatchSize int        `yaml:"batch_size" json:"batch_size"`

	// ChunkSize/ChunkOverlap, when non-zero, override Chunker's corpus-wide
	// defaults for this ingest call only.
	ChunkSize    int `yaml:"chunk_size,omitempty" json:"chunk_size,omitempty"`
	ChunkOverlap int `yaml:"chunk_overlap,omitempty" json:"chunk_overlap,omitempty"`

	ForceRebuild bool   `yaml:"force_rebuild" json:"force_rebuild"`
	Content      string `yaml:"content" json:"content"` // content directory override, relative to corpus dir
}

// SearchConfig configures the search pipeline (C8).
type SearchConfig struct {
	EmbeddingModel    string                  `yaml:"embedding_model" json:"embedding_model"`
	EnableReranking   bool                    `yaml:"enable_reranking" json:"enable_reranking"`
	RerankingStrategy store.RerankingStrategy `yaml:"reranking_strategy" json:"reranking_strategy"`
	TopK              int                     `yaml:"top_k" json:"top_k"`
}

// ResourceConfig configures the resource manager (C10).
type ResourceConfig struct {
	MemoryThresholdMB int  `yaml:"memory_threshold_mb" json:"memory_threshold_mb"`
	CleanupIntervalMS int  `yaml:"cleanup_interval_ms" json:"cleanup_interval_ms"`
	EnableGC          bool `yaml:"enable_gc" json:"enable_gc"`
	AutoCleanup       bool `yaml:"auto_cleanup" json:"auto_cleanup"`
}

// ContentConfig configures the content store (C2).
type ContentConfig struct {
	ContentDir          string `yaml:"content_dir" json:"content_dir"`
	MaxFileSize         int64  `yaml:"max_file_size" json:"max_file_size"`
	MaxContentDirSize   int64  `yaml:"max_content_dir_size" json:"max_content_dir_size"`
	EnableDeduplication bool   `yaml:"enable_deduplication" json:"enable_deduplication"`
}

// PathsConfig configures which paths to include and exclude during discovery.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// PerformanceConfig configures performance tuning options.
type PerformanceConfig struct {
	MaxFiles      int    `yaml:"max_files" json:"max_files"`
	IndexWorkers  int    `yaml:"index_workers" json:"index_workers"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
	SQLiteCacheMB int    `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
}

// ServerConfig configures the MCP/HTTP server transport.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"` // "stdio" or "sse"
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// defaultExcludePatterns are always excluded.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Mode:    store.ModeText,
		Chunker: ChunkerConfig{
			ChunkSize:    1500,
			ChunkOverlap: 200,
			Tokenizer:    "code",
		},
		Ingest: IngestConfig{
			Mode:      store.ModeText,
			Provider:  "", // empty selects sentencetransformer; there is no automatic fallback to static
			Model:     "",
			BatchSize: 32,
		},
		Search: SearchConfig{
			EmbeddingModel:    "",
			EnableReranking:   true,
			RerankingStrategy: store.RerankingTextDerived,
			TopK:              10,
		},
		Resources: ResourceConfig{
			MemoryThresholdMB: 512,
			CleanupIntervalMS: 30000,
			EnableGC:          true,
			AutoCleanup:       true,
		},
		Content: ContentConfig{
			ContentDir:          "content",
			MaxFileSize:         50 * 1024 * 1024,       // 50MB per item
			MaxContentDirSize:   5 * 1024 * 1024 * 1024, // 5GB per corpus
			EnableDeduplication: true,
		},
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Performance: PerformanceConfig{
			MaxFiles:      100000,
			IndexWorkers:  runtime.NumCPU(),
			WatchDebounce: "500ms",
			CacheSize:     1000,
			SQLiteCacheMB: 64,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/raglite/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/raglite/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "raglite", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback - should rarely happen
		return filepath.Join(os.TempDir(), ".config", "raglite", "config.yaml")
	}
	return filepath.Join(home, ".config", "raglite", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	// Check if file exists
	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	// Load the config
	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, ragerr.New(ragerr.KindConfigValidation, "failed to load user config from "+configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified corpus directory, applying
// sources in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/raglite/config.yaml)
//  3. Project config (.raglite.yaml in the corpus directory)
//  4. Environment variables (RAGLITE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .raglite.yaml or .raglite.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".raglite.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".raglite.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ragerr.New(ragerr.KindConfigValidation, "failed to read config file "+path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return ragerr.New(ragerr.KindConfigValidation, "failed to parse config file "+path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Mode != "" {
		c.Mode = other.Mode
	}

	// Chunker
	if other.Chunker.ChunkSize != 0 {
		c.Chunker.ChunkSize = other.Chunker.ChunkSize
	}
	if other.Chunker.ChunkOverlap != 0 {
		c.Chunker.ChunkOverlap = other.Chunker.ChunkOverlap
	}
	if other.Chunker.Tokenizer != "" {
		c.Chunker.Tokenizer = other.Chunker.Tokenizer
	}

	// Ingest
	if other.Ingest.Mode != "" {
		c.Ingest.Mode = other.Ingest.Mode
	}
	if other.Ingest.Provider != "" {
		c.Ingest.Provider = other.Ingest.Provider
	}
	if other.Ingest.Model != "" {
		c.Ingest.Model = other.Ingest.Model
	}
	if other.Ingest.BatchSize != 0 {
		c.Ingest.BatchSize = other.Ingest.BatchSize
	}
	if other.Ingest.ChunkSize != 0 {
		c.Ingest.ChunkSize = other.Ingest.ChunkSize
	}
	if other.Ingest.ChunkOverlap != 0 {
		c.Ingest.ChunkOverlap = other.Ingest.ChunkOverlap
	}
	if other.Ingest.Content != "" {
		c.Ingest.Content = other.Ingest.Content
	}
	// ForceRebuild is a one-shot flag, not a persistent preference; never merged from file.

	// Search
	if other.Search.EmbeddingModel != "" {
		c.Search.EmbeddingModel = other.Search.EmbeddingModel
	}
	if other.Search.RerankingStrategy != "" {
		c.Search.RerankingStrategy = other.Search.RerankingStrategy
	}
	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}

	// Resources
	if other.Resources.MemoryThresholdMB != 0 {
		c.Resources.MemoryThresholdMB = other.Resources.MemoryThresholdMB
	}
	if other.Resources.CleanupIntervalMS != 0 {
		c.Resources.CleanupIntervalMS = other.Resources.CleanupIntervalMS
	}

	// Content
	if other.Content.ContentDir != "" {
		c.Content.ContentDir = other.Content.ContentDir
	}
	if other.Content.MaxFileSize != 0 {
		c.Content.MaxFileSize = other.Content.MaxFileSize
	}
	if other.Content.MaxContentDirSize != 0 {
		c.Content.MaxContentDirSize = other.Content.MaxContentDirSize
	}

	// Paths
	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	// Performance
	if other.Performance.MaxFiles != 0 {
		c.Performance.MaxFiles = other.Performance.MaxFiles
	}
	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.WatchDebounce != "" {
		c.Performance.WatchDebounce = other.Performance.WatchDebounce
	}
	if other.Performance.CacheSize != 0 {
		c.Performance.CacheSize = other.Performance.CacheSize
	}
	if other.Performance.SQLiteCacheMB != 0 {
		c.Performance.SQLiteCacheMB = other.Performance.SQLiteCacheMB
	}

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies RAGLITE_* environment variable overrides, the
// highest-precedence configuration source.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RAGLITE_MODE"); v != "" {
		c.Mode = store.Mode(v)
	}
	if v := os.Getenv("RAGLITE_EMBEDDER"); v != "" {
		c.Ingest.Provider = v
	}
	if v := os.Getenv("RAGLITE_EMBEDDING_MODEL"); v != "" {
		c.Ingest.Model = v
		c.Search.EmbeddingModel = v
	}
	if v := os.Getenv("RAGLITE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chunker.ChunkSize = n
		}
	}
	if v := os.Getenv("RAGLITE_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Chunker.ChunkOverlap = n
		}
	}
	if v := os.Getenv("RAGLITE_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("RAGLITE_ENABLE_RERANKING"); v != "" {
		c.Search.EnableReranking = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("RAGLITE_MEMORY_THRESHOLD_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Resources.MemoryThresholdMB = n
		}
	}
	if v := os.Getenv("RAGLITE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("RAGLITE_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// DetectProjectType detects the project type based on marker files.
// Priority: go.mod > package.json > pyproject.toml/requirements.txt
func DetectProjectType(dir string) ProjectType {
	// Check for Go project
	if fileExists(filepath.Join(dir, "go.mod")) {
		return ProjectTypeGo
	}

	// Check for Node.js project
	if fileExists(filepath.Join(dir, "package.json")) {
		return ProjectTypeNode
	}

	// Check for Python project
	if fileExists(filepath.Join(dir, "pyproject.toml")) ||
		fileExists(filepath.Join(dir, "requirements.txt")) {
		return ProjectTypePython
	}

	return ProjectTypeUnknown
}

// FindProjectRoot finds the project root directory by walking up from
// startDir looking for a .git directory or a .raglite.yaml/.yml file.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", ragerr.New(ragerr.KindInvalidPath, "failed to get absolute path", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".raglite.yaml")) ||
			fileExists(filepath.Join(currentDir, ".raglite.yml")) {
			return currentDir, nil
		}

		// Move up one directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// DiscoverSourceDirs discovers common source directories in the project.
func DiscoverSourceDirs(dir string) []string {
	commonSourceDirs := []string{"src", "lib", "pkg", "internal", "cmd"}
	frameworkDirs := []string{"app", "pages"} // Next.js, etc.

	var found []string

	// Check common source directories
	for _, d := range commonSourceDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}

	// Check for framework-specific directories
	if isNextJS(dir) {
		for _, d := range frameworkDirs {
			if dirExists(filepath.Join(dir, d)) {
				found = append(found, d)
			}
		}
	}

	return found
}

// DiscoverDocsDirs discovers documentation directories in the project.
func DiscoverDocsDirs(dir string) []string {
	commonDocDirs := []string{"docs", "doc"}
	commonDocFiles := []string{"README.md", "readme.md", "README.markdown"}

	var found []string

	// Check common doc directories
	for _, d := range commonDocDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}

	// Check for README files
	for _, f := range commonDocFiles {
		if fileExists(filepath.Join(dir, f)) {
			found = append(found, f)
			break // Only add one README
		}
	}

	return found
}

// isNextJS checks if the project is a Next.js project.
func isNextJS(dir string) bool {
	pkgPath := filepath.Join(dir, "package.json")
	if !fileExists(pkgPath) {
		return false
	}

	data, err := os.ReadFile(pkgPath)
	if err != nil {
		return false
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}

	_, hasNext := pkg.Dependencies["next"]
	_, hasNextDev := pkg.DevDependencies["next"]
	return hasNext || hasNextDev
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// String returns a string representation of ProjectType.
func (p ProjectType) String() string {
	return string(p)
}

// IsKnown returns true if the project type is known (not unknown).
func (p ProjectType) IsKnown() bool {
	return p != ProjectTypeUnknown
}

// Validate validates the configuration, returning a ConfigValidation
// RagError describing the first out-of-range field found.
func (c *Config) Validate() error {
	if c.Mode != store.ModeText && c.Mode != store.ModeMultimodal {
		return ragerr.New(ragerr.KindConfigValidation,
			"mode must be 'text' or 'multimodal', got "+string(c.Mode), nil)
	}

	if c.Chunker.ChunkSize <= 0 {
		return ragerr.New(ragerr.KindConfigValidation, "chunker.chunk_size must be positive", nil)
	}
	if c.Chunker.ChunkOverlap < 0 {
		return ragerr.New(ragerr.KindConfigValidation, "chunker.chunk_overlap must be non-negative", nil)
	}
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return ragerr.New(ragerr.KindConfigValidation, "chunker.chunk_overlap must be less than chunker.chunk_size", nil)
	}

	if c.Ingest.BatchSize <= 0 {
		return ragerr.New(ragerr.KindConfigValidation, "ingest.batch_size must be positive", nil)
	}
	if c.Ingest.ChunkSize != 0 || c.Ingest.ChunkOverlap != 0 {
		size := c.Ingest.ChunkSize
		if size == 0 {
			size = c.Chunker.ChunkSize
		}
		overlap := c.Ingest.ChunkOverlap
		if overlap == 0 {
			overlap = c.Chunker.ChunkOverlap
		}
		if overlap >= size {
			return ragerr.New(ragerr.KindConfigValidation, "ingest.chunk_overlap must be less than ingest.chunk_size", nil)
		}
	}

	if c.Search.TopK <= 0 {
		return ragerr.New(ragerr.KindConfigValidation, "search.top_k must be positive", nil)
	}
	if c.Search.RerankingStrategy != "" {
		switch c.Search.RerankingStrategy {
		case store.RerankingCrossEncoder, store.RerankingTextDerived, store.RerankingMetadata,
			store.RerankingHybrid, store.RerankingDisabled:
		default:
			return ragerr.New(ragerr.KindConfigValidation,
				"search.reranking_strategy has unknown value "+string(c.Search.RerankingStrategy), nil)
		}
	}

	if c.Resources.MemoryThresholdMB < 64 {
		return ragerr.New(ragerr.KindConfigValidation, "resources.memory_threshold_mb must be at least 64", nil)
	}
	if c.Resources.CleanupIntervalMS < 5000 {
		return ragerr.New(ragerr.KindConfigValidation, "resources.cleanup_interval_ms must be at least 5000", nil)
	}

	if c.Content.MaxFileSize <= 0 {
		return ragerr.New(ragerr.KindConfigValidation, "content.max_file_size must be positive", nil)
	}
	if c.Content.MaxContentDirSize <= 0 {
		return ragerr.New(ragerr.KindConfigValidation, "content.max_content_dir_size must be positive", nil)
	}
	if c.Content.MaxContentDirSize < c.Content.MaxFileSize {
		return ragerr.New(ragerr.KindConfigValidation, "content.max_content_dir_size must be at least content.max_file_size", nil)
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return ragerr.New(ragerr.KindConfigValidation,
			"server.transport must be 'stdio' or 'sse', got "+c.Server.Transport, nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return ragerr.New(ragerr.KindConfigValidation,
			"server.log_level must be 'debug', 'info', 'warn', or 'error', got "+c.Server.LogLevel, nil)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ragerr.New(ragerr.KindConfigValidation, "failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return ragerr.New(ragerr.KindConfigValidation, "failed to write config file", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns the list of field names that were added with their default values,
// for configs written by an older version of raglite.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Chunker.ChunkSize == 0 {
		c.Chunker.ChunkSize = defaults.Chunker.ChunkSize
		added = append(added, "chunker.chunk_size")
	}
	if c.Chunker.ChunkOverlap == 0 {
		c.Chunker.ChunkOverlap = defaults.Chunker.ChunkOverlap
		added = append(added, "chunker.chunk_overlap")
	}
	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = defaults.Ingest.BatchSize
		added = append(added, "ingest.batch_size")
	}
	if c.Search.TopK == 0 {
		c.Search.TopK = defaults.Search.TopK
		added = append(added, "search.top_k")
	}
	if c.Resources.MemoryThresholdMB == 0 {
		c.Resources.MemoryThresholdMB = defaults.Resources.MemoryThresholdMB
		added = append(added, "resources.memory_threshold_mb")
	}
	if c.Resources.CleanupIntervalMS == 0 {
		c.Resources.CleanupIntervalMS = defaults.Resources.CleanupIntervalMS
		added = append(added, "resources.cleanup_interval_ms")
	}
	if c.Content.ContentDir == "" {
		c.Content.ContentDir = defaults.Content.ContentDir
		added = append(added, "content.content_dir")
	}
	if c.Content.MaxFileSize == 0 {
		c.Content.MaxFileSize = defaults.Content.MaxFileSize
		added = append(added, "content.max_file_size")
	}
	if c.Content.MaxContentDirSize == 0 {
		c.Content.MaxContentDirSize = defaults.Content.MaxContentDirSize
		added = append(added, "content.max_content_dir_size")
	}
	if c.Performance.SQLiteCacheMB == 0 {
		c.Performance.SQLiteCacheMB = defaults.Performance.SQLiteCacheMB
		added = append(added, "performance.sqlite_cache_mb")
	}

	return added
}
