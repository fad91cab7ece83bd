package keyword

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/hyperjump/mise/internal/models"
)

func scenarioRecipes() []*models.Recipe {
	return []*models.Recipe{
		{
			ID:           "korean-chicken",
			Title:        "Spicy Korean Chicken",
			Description:  "Crispy fried chicken glazed in gochujang.",
			Ingredients:  []models.Ingredient{{Item: "chicken wings", Quantity: "1 kg"}, {Item: "gochujang", Quantity: "3 tbsp"}},
			Instructions: []string{"Fry the wings.", "Toss in sauce."},
			Tags:         []string{"spicy", "korean"},
		},
		{
			ID:           "beef-rice",
			Title:        "Quick Beef Rice",
			Description:  "A fast weeknight bowl.",
			Ingredients:  []models.Ingredient{{Item: "ground beef", Quantity: "500 g"}, {Item: "rice", Quantity: "2 cups"}, {Item: "garlic", Quantity: "2 cloves"}},
			Instructions: []string{"Brown the beef.", "Serve over rice."},
			Tags:         []string{"quick"},
		},
		{
			ID:           "garlic-pasta",
			Title:        "Garlic Butter Pasta",
			Description:  "Silky pasta with garlic and butter.",
			Ingredients:  []models.Ingredient{{Item: "spaghetti", Quantity: "400 g"}, {Item: "garlic", Quantity: "4 cloves"}, {Item: "butter", Quantity: "50 g"}},
			Instructions: []string{"Boil spaghetti.", "Melt butter with garlic."},
			Tags:         []string{"italian", "quick"},
		},
	}
}

func hitIDs(hits []models.TextHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func TestIndex_SearchChicken(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	hits := ix.Search("chicken", 10)
	if len(hits) != 1 || hits[0].ID != "korean-chicken" {
		t.Fatalf("hits = %v", hits)
	}
	if hits[0].Score <= 0 {
		t.Errorf("score should be positive, got %f", hits[0].Score)
	}
	if want := 1.0 / 2.0; hits[0].Score != want {
		t.Errorf("score = %f, want %f", hits[0].Score, want)
	}
}

func TestIndex_SearchScoresByDocumentFrequency(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	// garlic is in two recipes (1/3 each), butter only in the pasta (1/2).
	hits := ix.Search("garlic butter", 0)
	if got := hitIDs(hits); !reflect.DeepEqual(got, []string{"garlic-pasta", "beef-rice"}) {
		t.Fatalf("order = %v", got)
	}
	if want := 1.0/3.0 + 1.0/2.0; math.Abs(hits[0].Score-want) > 1e-9 {
		t.Errorf("pasta score = %v, want %v", hits[0].Score, want)
	}
	if want := 1.0 / 3.0; math.Abs(hits[1].Score-want) > 1e-9 {
		t.Errorf("rice score = %v, want %v", hits[1].Score, want)
	}
}

func TestIndex_SearchRepeatedTermsAddWeight(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	once := ix.Search("chicken", 0)
	twice := ix.Search("chicken chicken", 0)
	if len(once) != 1 || len(twice) != 1 {
		t.Fatalf("hits = %v / %v", once, twice)
	}
	if math.Abs(twice[0].Score-2*once[0].Score) > 1e-9 {
		t.Errorf("repeated term score = %v, want %v", twice[0].Score, 2*once[0].Score)
	}
	if math.Abs(twice[0].Score-1.0) > 1e-9 {
		t.Errorf("score = %v, want 1", twice[0].Score)
	}
}

func TestIndex_StopWordPluralsAreIndexed(t *testing.T) {
	ix := Build(nil, []*models.Recipe{{
		ID:           "mug-cake",
		Title:        "Ten Minutes Cups Cake",
		Ingredients:  []models.Ingredient{{Item: "flour"}},
		Instructions: []string{"Bake."},
	}})
	if got := hitIDs(ix.Search("cups", 0)); !reflect.DeepEqual(got, []string{"mug-cake"}) {
		t.Errorf("Search(cups) = %v", got)
	}
	if got := hitIDs(ix.Search("cup", 0)); len(got) != 0 {
		t.Errorf("singular stop word should not match: %v", got)
	}
}

func TestIndex_SearchTieBreaksByID(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	hits := ix.Search("quick", 0)
	if got := hitIDs(hits); !reflect.DeepEqual(got, []string{"beef-rice", "garlic-pasta"}) {
		t.Errorf("order = %v", got)
	}
	if got := ix.Search("quick", 1); len(got) != 1 || got[0].ID != "beef-rice" {
		t.Errorf("topK=1 = %v", got)
	}
}

func TestIndex_SearchEdgeCases(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	for _, q := range []string{"", "the and of", "recipe cup", "unobtainium"} {
		hits := ix.Search(q, 10)
		if hits == nil || len(hits) != 0 {
			t.Errorf("Search(%q) = %v, want empty", q, hits)
		}
	}
}

func TestIndex_TitleTermsAlwaysMatch(t *testing.T) {
	recipes := scenarioRecipes()
	ix := Build(nil, recipes)
	for _, r := range recipes {
		for _, term := range ix.Analyzer().Terms(r.Title) {
			found := false
			for _, h := range ix.Search(term, 0) {
				if h.ID == r.ID {
					found = true
				}
			}
			if !found {
				t.Errorf("searching %q did not return %s", term, r.ID)
			}
		}
	}
}

func TestIndex_Suggest(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	got := ix.Suggest("GA", 5)
	if len(got) == 0 || got[0] != "garlic" {
		t.Errorf("Suggest(GA) = %v", got)
	}
	got = ix.Suggest("s", 0)
	for i := 1; i < len(got); i++ {
		if ix.DocFrequency(got[i-1]) < ix.DocFrequency(got[i]) {
			t.Errorf("suggestions not ordered by frequency: %v", got)
		}
	}
	if got := ix.Suggest("s", 2); len(got) != 2 {
		t.Errorf("limit not applied: %v", got)
	}
	if got := ix.Suggest("zz", 5); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}

func TestIndex_DocTerms(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	terms, err := ix.DocTerms("garlic-pasta")
	if err != nil {
		t.Fatal(err)
	}
	if len(terms) == 0 {
		t.Fatal("expected terms")
	}
	if _, err := ix.DocTerms("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIndex_Stats(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	stats := ix.Stats()
	if stats.TotalDocuments != 3 {
		t.Errorf("TotalDocuments = %d", stats.TotalDocuments)
	}
	if stats.TotalTerms == 0 || stats.AvgTermsPerDocument == 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.TopTerms) > TopTermsLimit {
		t.Errorf("too many top terms: %d", len(stats.TopTerms))
	}
	if stats.TopTerms[0].Frequency < stats.TopTerms[len(stats.TopTerms)-1].Frequency {
		t.Errorf("top terms not sorted: %v", stats.TopTerms)
	}
}

func TestIndex_Empty(t *testing.T) {
	ix := Build(nil, nil)
	if hits := ix.Search("chicken", 10); len(hits) != 0 {
		t.Errorf("hits = %v", hits)
	}
	if got := ix.Suggest("ch", 10); len(got) != 0 {
		t.Errorf("suggest = %v", got)
	}
	stats := ix.Stats()
	if stats.TotalDocuments != 0 || stats.TotalTerms != 0 || stats.AvgTermsPerDocument != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestIndex_EncodeDecodeRoundTrip(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	var buf bytes.Buffer
	if err := ix.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := Decode(&buf, nil, ix.Roster())
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{"chicken", "garlic butter", "quick", "rice beef", "nothing"} {
		if !reflect.DeepEqual(ix.Search(q, 0), loaded.Search(q, 0)) {
			t.Errorf("Search(%q) differs after round trip", q)
		}
	}
	if !reflect.DeepEqual(ix.Suggest("g", 0), loaded.Suggest("g", 0)) {
		t.Error("Suggest differs after round trip")
	}
}

func TestDecode_RosterMismatch(t *testing.T) {
	ix := Build(nil, scenarioRecipes())
	var buf bytes.Buffer
	if err := ix.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	if _, err := Decode(bytes.NewReader(data), nil, []string{"beef-rice", "garlic-pasta"}); err == nil {
		t.Error("expected error for short roster")
	}
	if _, err := Decode(bytes.NewReader(data), nil, []string{"beef-rice", "garlic-pasta", "other"}); err == nil {
		t.Error("expected error for foreign roster")
	}
}
