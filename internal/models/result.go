package models

// TextHit is a single lexical index hit.
type TextHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// SemanticHit is a single semantic index hit. Score is 1/(1+Distance).
type SemanticHit struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Distance float64 `json:"distance"`
	Rank     int     `json:"rank"`
}

// IngredientSuggestion is an ingredient facet key with its recipe count.
type IngredientSuggestion struct {
	Ingredient string `json:"ingredient"`
	Frequency  int    `json:"frequency"`
}

// FacetValues lists every distinct value observed per facet dimension at build time.
type FacetValues struct {
	Countries          []string `json:"countries"`
	Categories         []string `json:"categories"`
	Difficulties       []string `json:"difficulties"`
	MealTypes          []string `json:"meal_types"`
	CookingMethods     []string `json:"cooking_methods"`
	Ingredients        []string `json:"ingredients"`
	DurationCategories []string `json:"duration_categories"`
}

// RecipeFacets holds the facet values of a single recipe.
type RecipeFacets struct {
	Country       string   `json:"country"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
	MealType      string   `json:"meal_type"`
	CookingMethod string   `json:"cooking_method"`
	Duration      string   `json:"duration"`
	Ingredients   []string `json:"ingredients"`
}

// SearchResult is a ranked recipe with the scores that placed it.
type SearchResult struct {
	Recipe        *Recipe `json:"recipe"`
	Score         float64 `json:"score"`
	SemanticScore float64 `json:"semantic_score,omitempty"`
	LexicalScore  float64 `json:"lexical_score,omitempty"`
	Distance      float64 `json:"distance,omitempty"`
	Rank          int     `json:"rank"`
}

// SearchResponse is the response for text, semantic, hybrid and similar-recipe queries.
type SearchResponse struct {
	Query      string          `json:"query"`
	SearchType string          `json:"search_type"`
	Filters    *FilterCriteria `json:"filters,omitempty"`
	Count      int             `json:"count"`
	Results    []*SearchResult `json:"results"`
	// Degraded names sub-indexes that were skipped because they were unavailable.
	Degraded  []string `json:"degraded,omitempty"`
	QueryTime int64    `json:"query_time_ms"`
}

// Search types reported in SearchResponse.SearchType.
const (
	SearchTypeText     = "text"
	SearchTypeSemantic = "semantic"
	SearchTypeHybrid   = "hybrid"
	SearchTypeSimilar  = "similar"
)
