// Package embedding provides text embedding providers: a deterministic hashing
// embedder, ONNX Runtime, and OpenAI-compatible APIs, plus an LRU cache decorator.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/mise/internal/metrics"
)

// Embedder produces vector embeddings for text. Implementations must be
// deterministic for a fixed Model and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Model identifies the embedding function; vectors from different models are not comparable.
	Model() string
	Close() error
}

// Provider names accepted by New.
const (
	ProviderHash   = "hash"
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
)

// Options selects and configures an embedding provider.
type Options struct {
	Provider   string
	Model      string
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	APIKey     string
	BaseURL    string
	Logger     *zap.Logger
}

// New creates the embedder named by opts.Provider, instrumented with metrics and
// wrapped in an LRU cache when opts.CacheSize > 0.
func New(opts Options) (Embedder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		base Embedder
		err  error
	)
	provider := strings.ToLower(opts.Provider)
	switch provider {
	case "", ProviderHash:
		provider = ProviderHash
		base = NewHashEmbedder(opts.Dimensions)
	case ProviderONNX:
		base, err = NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens)
	case ProviderOpenAI:
		base, err = NewOpenAIEmbedder(&OpenAIConfig{
			APIKey:     opts.APIKey,
			BaseURL:    opts.BaseURL,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Embedding provider ready",
		zap.String("provider", provider),
		zap.String("model", base.Model()),
		zap.Int("dimensions", base.Dimensions()))

	var e Embedder = &instrumented{Embedder: base, provider: provider}
	if opts.CacheSize > 0 {
		e, err = NewCachedEmbedder(e, opts.CacheSize)
		if err != nil {
			_ = base.Close()
			return nil, err
		}
	}
	return e, nil
}

// instrumented records request counts and latency for every embedding call.
type instrumented struct {
	Embedder
	provider string
}

func (i *instrumented) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	v, err := i.Embedder.Embed(ctx, text)
	i.observe(start, err)
	return v, err
}

func (i *instrumented) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	v, err := i.Embedder.EmbedBatch(ctx, texts)
	i.observe(start, err)
	return v, err
}

func (i *instrumented) observe(start time.Time, err error) {
	model := i.Embedder.Model()
	metrics.EmbeddingRequestsTotal.WithLabelValues(i.provider, model, metrics.Status(err)).Inc()
	if err == nil {
		metrics.EmbeddingRequestDuration.WithLabelValues(i.provider, model).Observe(time.Since(start).Seconds())
	}
}
