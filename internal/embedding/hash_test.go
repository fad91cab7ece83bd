package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/mise/pkg/utils"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "Garlic Butter Pasta")
	b, _ := e.Embed(ctx, "garlic, butter & pasta")
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("case and punctuation should not change the embedding")
		}
	}
	if n := utils.L2Norm(a); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", n)
	}
}

func TestHashEmbedder_SharedWordsAreCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "garlic pasta")
	near, _ := e.Embed(ctx, "garlic butter pasta")
	far, _ := e.Embed(ctx, "spicy korean chicken")
	if utils.SquaredL2(q, near) >= utils.SquaredL2(q, far) {
		t.Error("text sharing words should be closer")
	}
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != DefaultHashDimensions {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
	v, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatal("empty text should embed to the zero vector")
		}
	}
}

func TestHashEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).EmbedBatch(ctx, []string{"a"}); err == nil {
		t.Error("expected context error")
	}
}

func TestNew_Providers(t *testing.T) {
	e, err := New(Options{Provider: "hash", Dimensions: 32, CacheSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 32 || e.Model() != "hash-bow-32" {
		t.Errorf("got %d %s", e.Dimensions(), e.Model())
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}

	if _, err := New(Options{Provider: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := New(Options{Provider: "openai", Dimensions: 8}); err == nil {
		t.Error("expected error for openai without key")
	}
}

func BenchmarkHashEmbedder_Embed(b *testing.B) {
	e := NewHashEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "spicy korean chicken with gochujang and rice")
	}
}
