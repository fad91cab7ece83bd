// Package config provides configuration loading and structs for the mise server.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// OpenAIKeyEnv overrides embedding.api_key when set.
const OpenAIKeyEnv = "MISE_OPENAI_API_KEY"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Lexical   LexicalConfig   `yaml:"lexical"`
	Semantic  SemanticConfig  `yaml:"semantic"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DataConfig holds the recipe source directories.
type DataConfig struct {
	RecipeDirs []string `yaml:"recipe_dirs"`
	// Watch reindexes the collection when a recipe file changes.
	Watch           bool `yaml:"watch"`
	WatchDebounceMs int  `yaml:"watch_debounce_ms"`
}

// StorageConfig holds the snapshot location and persistence policy.
type StorageConfig struct {
	SnapshotDir  string `yaml:"snapshot_dir"`
	LoadSnapshot bool   `yaml:"load_snapshot"`
	SaveOnBuild  bool   `yaml:"save_on_build"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
}

// LexicalConfig configures the lexical normalization pipeline.
type LexicalConfig struct {
	Lemmatizer     string   `yaml:"lemmatizer"`
	ExtraStopWords []string `yaml:"extra_stop_words"`
}

// SemanticConfig configures the semantic index build.
type SemanticConfig struct {
	BatchSize int     `yaml:"batch_size"`
	Workers   int     `yaml:"workers"`
	MinScore  float64 `yaml:"min_score"`
}

// SearchConfig holds hybrid merge weights and result limits.
type SearchConfig struct {
	SemanticWeight     float64 `yaml:"semantic_weight"`
	LexicalWeight      float64 `yaml:"lexical_weight"`
	SemanticCandidates int     `yaml:"semantic_candidates"`
	LexicalCandidates  int     `yaml:"lexical_candidates"`
	HybridLimit        int     `yaml:"hybrid_limit"`
	DefaultTopK        int     `yaml:"default_top_k"`
	DefaultK           int     `yaml:"default_k"`
	SimilarK           int     `yaml:"similar_k"`
	ExpandSynonyms     bool    `yaml:"expand_synonyms"`
}

// Load reads and parses the config file at path, expands paths, applies defaults
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if key := os.Getenv(OpenAIKeyEnv); key != "" {
		cfg.Embedding.APIKey = key
	}

	configDir := filepath.Dir(path)
	cfg.Storage.SnapshotDir = expandPath(cfg.Storage.SnapshotDir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Data.RecipeDirs {
		cfg.Data.RecipeDirs[i] = expandPath(cfg.Data.RecipeDirs[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Embedding.Provider {
	case ProviderHash, ProviderONNX, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == ProviderONNX && c.Embedding.ModelPath == "" {
		return fmt.Errorf("embedding.model_path is required for the onnx provider")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	switch c.Lexical.Lemmatizer {
	case "", "noun", "snowball", "porter":
	default:
		return fmt.Errorf("unknown lemmatizer %q", c.Lexical.Lemmatizer)
	}
	if c.Semantic.MinScore < 0 || c.Semantic.MinScore > 1 {
		return fmt.Errorf("semantic.min_score must be within [0, 1]")
	}
	return c.Search.Validate()
}

// Validate checks the hybrid weights: each non-negative and summing to at most 1.
func (s *SearchConfig) Validate() error {
	if s.SemanticWeight < 0 || s.LexicalWeight < 0 {
		return fmt.Errorf("search weights must not be negative")
	}
	if s.SemanticWeight+s.LexicalWeight > 1+1e-9 {
		return fmt.Errorf("search weights sum to %.3f, must be at most 1", s.SemanticWeight+s.LexicalWeight)
	}
	if math.IsNaN(s.SemanticWeight) || math.IsNaN(s.LexicalWeight) {
		return fmt.Errorf("search weights must be numbers")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
