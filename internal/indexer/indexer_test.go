package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/mise/internal/embedding"
	"github.com/hyperjump/mise/internal/models"
	"github.com/hyperjump/mise/internal/search"
)

type failingEmbedder struct {
	embedding.Embedder
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func testRecipes() []*models.Recipe {
	return []*models.Recipe{
		{
			ID: "korean-chicken", Title: "Spicy   Korean Chicken",
			Ingredients:  []models.Ingredient{{Item: " chicken "}, {Item: "gochujang"}},
			Instructions: []string{"Fry the chicken."},
			Country:      "South Korea", Difficulty: "medium",
		},
		{
			ID: "beef-rice", Title: "Quick Beef Rice",
			Ingredients:  []models.Ingredient{{Item: "beef"}, {Item: "rice"}},
			Instructions: []string{"Brown the beef."},
			Country:      "USA", Difficulty: "easy",
		},
		{
			ID: "garlic-pasta", Title: "Garlic Butter Pasta",
			Ingredients:  []models.Ingredient{{Item: "spaghetti"}, {Item: "garlic"}},
			Instructions: []string{"Boil pasta."},
			Country:      "Italy", Difficulty: "easy",
		},
	}
}

func newTestIndexer(emb embedding.Embedder, opts ...IndexerOption) (*Indexer, *search.Engine) {
	engine := search.NewEngine(nil)
	return NewIndexer(engine, emb, nil, nil, opts...), engine
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello   world  ", "hello world"},
		{"line1\n\n\tline2", "line1 line2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Preprocess(tt.in); got != tt.want {
			t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepareRecipe_DoesNotMutateInput(t *testing.T) {
	r := testRecipes()[0]
	p := prepareRecipe(r)
	if p.Title != "Spicy Korean Chicken" || p.Ingredients[0].Item != "chicken" {
		t.Errorf("prepared = %+v", p)
	}
	if r.Title != "Spicy   Korean Chicken" || r.Category != "" {
		t.Error("input recipe should be unchanged")
	}
	if p.Category != models.Unknown {
		t.Errorf("category should default to Unknown, got %q", p.Category)
	}
	if prepareRecipe(&models.Recipe{ID: "x", Title: "x"}).Ingredients != nil {
		t.Error("nil ingredients should stay nil so validation rejects them")
	}
}

func TestBuild(t *testing.T) {
	idx, _ := newTestIndexer(embedding.NewHashEmbedder(32))
	snap, err := idx.Build(context.Background(), testRecipes())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Store.Len() != 3 || snap.Lexical.Len() != 3 || snap.Facets.Len() != 3 {
		t.Errorf("index sizes: store=%d lexical=%d facets=%d", snap.Store.Len(), snap.Lexical.Len(), snap.Facets.Len())
	}
	if snap.Semantic == nil || snap.Semantic.Size() != 3 {
		t.Fatal("semantic index should be built")
	}
	if snap.BuildID == "" || snap.BuiltAt.IsZero() {
		t.Error("snapshot should be stamped")
	}
	other, err := idx.Build(context.Background(), testRecipes())
	if err != nil {
		t.Fatal(err)
	}
	if other.BuildID == snap.BuildID {
		t.Error("each build should get a new id")
	}
}

func TestBuild_InvalidRecipes(t *testing.T) {
	idx, _ := newTestIndexer(nil)
	ctx := context.Background()

	dup := append(testRecipes(), &models.Recipe{ID: "beef-rice", Title: "Again", Ingredients: []models.Ingredient{}, Instructions: []string{}})
	if _, err := idx.Build(ctx, dup); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("duplicate id: got %v", err)
	}
	noTitle := append(testRecipes(), &models.Recipe{ID: "x", Ingredients: []models.Ingredient{}, Instructions: []string{}})
	if _, err := idx.Build(ctx, noTitle); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("missing title: got %v", err)
	}
}

func TestBuild_SemanticFailureDegrades(t *testing.T) {
	idx, _ := newTestIndexer(failingEmbedder{embedding.NewHashEmbedder(8)})
	snap, err := idx.Build(context.Background(), testRecipes())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Semantic != nil {
		t.Error("semantic index should be absent after an embedding failure")
	}
	if snap.Lexical.Len() != 3 {
		t.Error("lexical index should still be built")
	}
}

func TestBuild_Cancelled(t *testing.T) {
	idx, _ := newTestIndexer(embedding.NewHashEmbedder(8))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Build(ctx, testRecipes()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReindex_SwapsSnapshot(t *testing.T) {
	idx, engine := newTestIndexer(embedding.NewHashEmbedder(32))
	ctx := context.Background()

	if _, err := idx.Reindex(ctx, testRecipes()); err != nil {
		t.Fatal(err)
	}
	resp, err := engine.SearchText("chicken", 10)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 result, got %d", resp.Count)
	}

	before := engine.Snapshot()
	bad := append(testRecipes(), &models.Recipe{ID: "x"})
	if _, err := idx.Reindex(ctx, bad); err == nil {
		t.Fatal("expected reindex error")
	}
	if engine.Snapshot() != before {
		t.Error("failed reindex should leave the installed snapshot untouched")
	}
}

func TestSaveLoad_ThroughIndexer(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "snapshot")
	emb := embedding.NewHashEmbedder(32)

	idx, engine := newTestIndexer(emb)
	if _, err := idx.Reindex(ctx, testRecipes()); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(ctx, dir); err != nil {
		t.Fatal(err)
	}
	want, err := engine.SearchHybrid(ctx, "garlic chicken", nil)
	if err != nil {
		t.Fatal(err)
	}

	idx2, engine2 := newTestIndexer(emb)
	if _, err := idx2.Load(ctx, dir); err != nil {
		t.Fatal(err)
	}
	got, err := engine2.SearchHybrid(ctx, "garlic chicken", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Count != want.Count {
		t.Fatalf("count = %d, want %d", got.Count, want.Count)
	}
	for i := range want.Results {
		if got.Results[i].Recipe.ID != want.Results[i].Recipe.ID || got.Results[i].Score != want.Results[i].Score {
			t.Errorf("result %d = %s/%f, want %s/%f", i,
				got.Results[i].Recipe.ID, got.Results[i].Score,
				want.Results[i].Recipe.ID, want.Results[i].Score)
		}
	}
	if engine2.Stats().BuildID != engine.Stats().BuildID {
		t.Error("build id should survive a save/load round trip")
	}
}

func TestLoad_MismatchKeepsEngine(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "snapshot")

	idx, _ := newTestIndexer(embedding.NewHashEmbedder(32))
	if _, err := idx.Reindex(ctx, testRecipes()); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(ctx, dir); err != nil {
		t.Fatal(err)
	}

	other, engine := newTestIndexer(embedding.NewHashEmbedder(16))
	if _, err := other.Reindex(ctx, testRecipes()[:1]); err != nil {
		t.Fatal(err)
	}
	before := engine.Snapshot()
	if _, err := other.Load(ctx, dir); !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if engine.Snapshot() != before {
		t.Error("failed load should leave the installed snapshot untouched")
	}
}

func TestReindexDirs_AutoSave(t *testing.T) {
	ctx := context.Background()
	recipes := t.TempDir()
	snapDir := filepath.Join(t.TempDir(), "snapshot")
	files := map[string]string{
		"pasta.json":  `{"title": "Garlic Pasta", "ingredients": ["garlic"], "instructions": ["Cook."]}`,
		"broken.json": `{`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(recipes, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	idx, engine := newTestIndexer(embedding.NewHashEmbedder(8), WithAutoSave(snapDir))
	snap, skipped, err := idx.ReindexDirs(ctx, []string{recipes})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Store.Len() != 1 || len(skipped) != 1 {
		t.Errorf("recipes=%d skipped=%d", snap.Store.Len(), len(skipped))
	}
	if _, err := engine.Recipe("pasta"); err != nil {
		t.Errorf("recipe should be served after reindex: %v", err)
	}
	if _, err := os.Stat(filepath.Join(snapDir, "manifest.json")); err != nil {
		t.Errorf("snapshot should be saved automatically: %v", err)
	}
}
