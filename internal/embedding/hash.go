package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/mise/pkg/utils"
)

// DefaultHashDimensions is the HashEmbedder dimension when none is configured.
const DefaultHashDimensions = 384

// HashEmbedder is a deterministic bag-of-words embedder using signed feature hashing.
// Texts that share words get nearby vectors, which makes it usable offline and in tests.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a hashing embedder with the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the L2-normalized hashed word counts of text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	dims := uint32(e.dimensions)
	for _, word := range Words(text) {
		h := hashWord(word)
		idx := h % dims
		if (h/dims)%2 == 0 {
			emb[idx]++
		} else {
			emb[idx]--
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the model identifier, which encodes the dimension.
func (e *HashEmbedder) Model() string {
	return fmt.Sprintf("hash-bow-%d", e.dimensions)
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
