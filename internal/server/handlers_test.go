package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/mise/internal/config"
	"github.com/hyperjump/mise/internal/embedding"
	"github.com/hyperjump/mise/internal/indexer"
	"github.com/hyperjump/mise/internal/models"
	"github.com/hyperjump/mise/internal/search"
)

var testRecipes = map[string]string{
	"korean-chicken.json": `{
  "title": "Spicy Korean Chicken",
  "description": "Crispy chicken glazed in a sweet and spicy sauce",
  "ingredients": [{"item": "chicken thighs", "quantity": "500 g"}, {"item": "gochujang", "quantity": "2 tbsp"}],
  "instructions": ["Fry the chicken.", "Toss in sauce."],
  "country": "South Korea", "category": "Main", "difficulty": "medium", "meal_type": "dinner",
  "duration": {"prep": 15, "cook": 30}
}`,
	"beef-rice.json": `{
  "title": "Quick Beef Rice",
  "description": "Ground beef over steamed rice",
  "ingredients": [{"item": "beef", "quantity": "300 g"}, {"item": "rice", "quantity": "1 cup"}],
  "instructions": ["Brown the beef.", "Serve over rice."],
  "country": "USA", "category": "Main", "difficulty": "easy", "meal_type": "lunch",
  "duration": {"prep": 5, "cook": 15}
}`,
	"garlic-pasta.json": `{
  "title": "Garlic Butter Pasta",
  "description": "Spaghetti tossed in garlic butter",
  "ingredients": [{"item": "spaghetti", "quantity": "200 g"}, {"item": "garlic", "quantity": "4 cloves"}, {"item": "butter", "quantity": "3 tbsp"}],
  "instructions": ["Boil pasta.", "Melt butter with garlic."],
  "country": "Italy", "category": "Pasta", "difficulty": "easy", "meal_type": "dinner",
  "duration": {"prep": 5, "cook": 20}
}`,
}

func newTestServer(t *testing.T, emb embedding.Embedder) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range testRecipes {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Default()
	cfg.Data.RecipeDirs = []string{dir}
	engine := search.NewEngine(&cfg.Search)
	idx := indexer.NewIndexer(engine, emb, nil, &cfg.Semantic)
	srv := NewServer(engine, idx, cfg, nil)
	if _, _, err := idx.ReindexDirs(context.Background(), cfg.Data.RecipeDirs); err != nil {
		t.Fatal(err)
	}
	return srv, dir
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func resultIDs(resp *models.SearchResponse) []string {
	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		ids = append(ids, r.Recipe.ID)
	}
	return ids
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, embedding.NewHashEmbedder(32))
	w := doRequest(t, srv, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]interface{}
	decode(t, w, &out)
	if out["status"] != "ok" {
		t.Errorf("status field: got %v", out["status"])
	}
	if out["recipes"].(float64) != 3 {
		t.Errorf("recipes: got %v", out["recipes"])
	}
	if out["semantic_search"] != true {
		t.Errorf("semantic_search: got %v", out["semantic_search"])
	}
}

func TestHandleGetRecipe(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodGet, "/api/recipes/garlic-pasta")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var recipe models.Recipe
	decode(t, w, &recipe)
	if recipe.Title != "Garlic Butter Pasta" || recipe.Duration.Total != 25 {
		t.Errorf("recipe: got %+v", recipe)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/recipes/missing")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing recipe status: got %d", w.Code)
	}
}

func TestHandleListRecipes(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodGet, "/api/recipes?page=2&per_page=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Recipes []models.Recipe `json:"recipes"`
		Total   int             `json:"total"`
		Pages   int             `json:"pages"`
	}
	decode(t, w, &out)
	if out.Total != 3 || out.Pages != 2 {
		t.Errorf("total/pages: got %d/%d", out.Total, out.Pages)
	}
	if len(out.Recipes) != 1 || out.Recipes[0].ID != "korean-chicken" {
		t.Errorf("second page: got %+v", out.Recipes)
	}

	// A page far past the end, large enough to overflow the offset, is empty.
	w = doRequest(t, srv, http.MethodGet, "/api/recipes?page=9223372036854775807&per_page=2")
	if w.Code != http.StatusOK {
		t.Fatalf("huge page status: got %d", w.Code)
	}
	out.Recipes = nil
	decode(t, w, &out)
	if len(out.Recipes) != 0 || out.Total != 3 {
		t.Errorf("huge page: got %d recipes, total %d", len(out.Recipes), out.Total)
	}

	for _, target := range []string{"/api/recipes?page=0", "/api/recipes?per_page=x"} {
		if w := doRequest(t, srv, http.MethodGet, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d", target, w.Code)
		}
	}
}

func TestHandleRecipeFacets(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := doRequest(t, srv, http.MethodGet, "/api/recipes/beef-rice/facets")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var facets models.RecipeFacets
	decode(t, w, &facets)
	if facets.Country != "USA" || facets.Duration != string(models.BucketQuick) {
		t.Errorf("facets: got %+v", facets)
	}
}

func TestHandleSearchText(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodGet, "/api/search/text?q=garlic+butter&top_k=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	if resp.SearchType != models.SearchTypeText {
		t.Errorf("search_type: got %s", resp.SearchType)
	}
	if ids := resultIDs(&resp); len(ids) == 0 || ids[0] != "garlic-pasta" {
		t.Errorf("results: got %v", ids)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/search/text?q=", http.StatusBadRequest},
		{"/api/search/text?q=%20%20", http.StatusBadRequest},
		{"/api/search/text?q=pasta&top_k=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := doRequest(t, srv, http.MethodGet, tt.target); w.Code != tt.want {
			t.Errorf("%s: got %d, want %d", tt.target, w.Code, tt.want)
		}
	}
}

func TestHandleSearchSemantic(t *testing.T) {
	srv, _ := newTestServer(t, embedding.NewHashEmbedder(32))

	w := doRequest(t, srv, http.MethodGet, "/api/search/semantic?q=pasta&k=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	if resp.Count != 2 {
		t.Errorf("count: got %d", resp.Count)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/search/semantic?q=pasta&k=5&country=USA")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp = models.SearchResponse{}
	decode(t, w, &resp)
	if ids := resultIDs(&resp); len(ids) != 1 || ids[0] != "beef-rice" {
		t.Errorf("filtered results: got %v", ids)
	}
	if resp.Filters == nil || resp.Filters.Country != "USA" {
		t.Errorf("filters not echoed: %+v", resp.Filters)
	}
}

func TestHandleSearchHybrid_Degraded(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodGet, "/api/search/hybrid?q=garlic")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	if len(resp.Degraded) != 1 || resp.Degraded[0] != search.IndexSemantic {
		t.Errorf("degraded: got %v", resp.Degraded)
	}
	if ids := resultIDs(&resp); len(ids) != 1 || ids[0] != "garlic-pasta" {
		t.Errorf("results: got %v", ids)
	}
}

func TestHandleSearchHybrid_Filters(t *testing.T) {
	srv, _ := newTestServer(t, embedding.NewHashEmbedder(32))

	q := url.Values{}
	q.Set("q", "dinner")
	q.Set("exclude_ingredients", "garlic, chicken thighs")
	w := doRequest(t, srv, http.MethodGet, "/api/search/hybrid?"+q.Encode())
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	for _, id := range resultIDs(&resp) {
		if id != "beef-rice" {
			t.Errorf("excluded recipe returned: %s", id)
		}
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/search/hybrid?q=rice&max_time=-5"); w.Code != http.StatusBadRequest {
		t.Errorf("negative max_time: got %d", w.Code)
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/search/hybrid?q=rice&max_time=soon"); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric max_time: got %d", w.Code)
	}
}

func TestHandleFilter(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"difficulty=easy", []string{"beef-rice", "garlic-pasta"}},
		{"max_time=20", []string{"beef-rice", "garlic-pasta"}},
		{"difficulty=medium&max_time=60", []string{"korean-chicken"}},
		{"ingredients=garlic,butter", []string{"garlic-pasta"}},
		{"meal_type=dinner&exclude_ingredients=garlic", []string{"korean-chicken"}},
		{"", []string{"beef-rice", "garlic-pasta", "korean-chicken"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := doRequest(t, srv, http.MethodGet, "/api/filter?"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d", w.Code)
			}
			var out struct {
				Count   int             `json:"count"`
				Recipes []models.Recipe `json:"recipes"`
			}
			decode(t, w, &out)
			got := make([]string, 0, len(out.Recipes))
			for _, r := range out.Recipes {
				got = append(got, r.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleSimilar(t *testing.T) {
	srv, _ := newTestServer(t, embedding.NewHashEmbedder(32))

	w := doRequest(t, srv, http.MethodGet, "/api/recipes/garlic-pasta/similar?k=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	ids := resultIDs(&resp)
	if len(ids) != 2 {
		t.Fatalf("results: got %v", ids)
	}
	for _, id := range ids {
		if id == "garlic-pasta" {
			t.Error("similar results must not include the source recipe")
		}
	}

	if w := doRequest(t, srv, http.MethodGet, "/api/recipes/missing/similar"); w.Code != http.StatusNotFound {
		t.Errorf("missing recipe: got %d", w.Code)
	}
}

func TestHandleSuggest(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodGet, "/api/suggest?prefix=g")
	var short struct {
		Suggestions []string `json:"suggestions"`
	}
	decode(t, w, &short)
	if short.Suggestions == nil || len(short.Suggestions) != 0 {
		t.Errorf("short prefix should yield an empty list, got %v", short.Suggestions)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/suggest/ingredients?prefix=ga&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Suggestions []models.IngredientSuggestion `json:"suggestions"`
	}
	decode(t, w, &out)
	if len(out.Suggestions) != 1 || out.Suggestions[0].Ingredient != "garlic" || out.Suggestions[0].Frequency != 1 {
		t.Errorf("ingredient suggestions: got %+v", out.Suggestions)
	}

	if w := doRequest(t, srv, http.MethodGet, "/api/suggest?prefix=ga&limit=many"); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d", w.Code)
	}
}

func TestHandleStats(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := doRequest(t, srv, http.MethodGet, "/api/stats")
	var out struct {
		TotalRecipes int                    `json:"total_recipes"`
		Collection   models.CollectionStats `json:"collection"`
	}
	decode(t, w, &out)
	if out.TotalRecipes != 3 || out.Collection.Difficulties["easy"] != 2 {
		t.Errorf("stats: got %+v", out)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/index/stats")
	var stats models.Stats
	decode(t, w, &stats)
	if stats.Documents != 3 || stats.Lexical.TotalDocuments != 3 || stats.Semantic.Size != 0 {
		t.Errorf("index stats: got %+v", stats)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/facets")
	var values models.FacetValues
	decode(t, w, &values)
	if len(values.Countries) != 3 {
		t.Errorf("facet countries: got %v", values.Countries)
	}
}

func TestHandleReindex(t *testing.T) {
	srv, dir := newTestServer(t, embedding.NewHashEmbedder(32))
	if err := os.WriteFile(filepath.Join(dir, "toast.json"),
		[]byte(`{"title": "Toast", "ingredients": ["bread"], "instructions": ["Toast it."]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"title": `), 0644); err != nil {
		t.Fatal(err)
	}

	w := doRequest(t, srv, http.MethodPost, "/api/admin/reindex")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}
	var out struct {
		Recipes  int                 `json:"recipes"`
		Semantic bool                `json:"semantic"`
		Skipped  []map[string]string `json:"skipped"`
	}
	decode(t, w, &out)
	if out.Recipes != 4 || !out.Semantic || len(out.Skipped) != 1 {
		t.Errorf("reindex: got %+v", out)
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/recipes/toast"); w.Code != http.StatusOK {
		t.Errorf("new recipe should be served after reindex, got %d", w.Code)
	}
}

func TestHandleReindex_NoIndexer(t *testing.T) {
	srv := NewServer(search.NewEngine(nil), nil, nil, nil)
	if w := doRequest(t, srv, http.MethodPost, "/api/admin/reindex"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	doRequest(t, srv, http.MethodGet, "/api/search/text?q=beef")
	w := doRequest(t, srv, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "mise_queries_total") {
		t.Error("expected mise_queries_total in metrics output")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("q: %w", models.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("x: %w", models.ErrNotFound), http.StatusNotFound},
		{models.ErrUnavailable, http.StatusServiceUnavailable},
		{models.NewPersistenceError("load", "/tmp", errors.New("bad")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
