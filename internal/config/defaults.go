package config

// Embedding providers.
const (
	ProviderHash   = "hash"
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
)

// DefaultOpenAIModel is used when the openai provider has no model configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Data.RecipeDirs == nil {
		cfg.Data.RecipeDirs = []string{"/usr/local/var/mise/data/recipes"}
	}
	if cfg.Data.WatchDebounceMs == 0 {
		cfg.Data.WatchDebounceMs = 500
	}
	if cfg.Storage.SnapshotDir == "" {
		cfg.Storage.SnapshotDir = "/usr/local/var/mise/data/snapshot"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderHash
	}
	if cfg.Embedding.Provider == ProviderOpenAI && cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultOpenAIModel
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Lexical.Lemmatizer == "" {
		cfg.Lexical.Lemmatizer = "noun"
	}
	if cfg.Semantic.BatchSize == 0 {
		cfg.Semantic.BatchSize = 16
	}
	if cfg.Semantic.Workers == 0 {
		cfg.Semantic.Workers = 4
	}
	// Weights default together so that one may be set to zero explicitly.
	if cfg.Search.SemanticWeight == 0 && cfg.Search.LexicalWeight == 0 {
		cfg.Search.SemanticWeight = 0.7
		cfg.Search.LexicalWeight = 0.3
	}
	if cfg.Search.SemanticCandidates == 0 {
		cfg.Search.SemanticCandidates = 30
	}
	if cfg.Search.LexicalCandidates == 0 {
		cfg.Search.LexicalCandidates = 30
	}
	if cfg.Search.HybridLimit == 0 {
		cfg.Search.HybridLimit = 20
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 20
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 10
	}
	if cfg.Search.SimilarK == 0 {
		cfg.Search.SimilarK = 5
	}
}
