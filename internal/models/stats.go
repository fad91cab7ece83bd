package models

import "time"

// TermFrequency pairs a key with the number of recipes in its posting set.
type TermFrequency struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

// LexicalStats describes the lexical index.
type LexicalStats struct {
	TotalTerms          int             `json:"total_terms"`
	TotalDocuments      int             `json:"total_documents"`
	AvgTermsPerDocument float64         `json:"avg_terms_per_document"`
	TopTerms            []TermFrequency `json:"top_terms"`
}

// FacetStats describes the facet index.
type FacetStats struct {
	TotalCountries      int             `json:"total_countries"`
	TotalCategories     int             `json:"total_categories"`
	TotalDifficulties   int             `json:"total_difficulties"`
	TotalMealTypes      int             `json:"total_meal_types"`
	TotalCookingMethods int             `json:"total_cooking_methods"`
	TotalIngredients    int             `json:"total_ingredients"`
	TopIngredients      []TermFrequency `json:"top_ingredients"`
}

// SemanticStats describes the semantic index.
type SemanticStats struct {
	Size      int    `json:"size"`
	Dimension int    `json:"dimension"`
	Model     string `json:"model"`
}

// CollectionStats counts recipes per categorical value.
type CollectionStats struct {
	Countries    map[string]int `json:"countries"`
	Categories   map[string]int `json:"categories"`
	Difficulties map[string]int `json:"difficulties"`
	MealTypes    map[string]int `json:"meal_types"`
}

// NewCollectionStats counts recipes per country, category, difficulty and meal type.
func NewCollectionStats(recipes []*Recipe) CollectionStats {
	cs := CollectionStats{
		Countries:    make(map[string]int),
		Categories:   make(map[string]int),
		Difficulties: make(map[string]int),
		MealTypes:    make(map[string]int),
	}
	for _, r := range recipes {
		cs.Countries[r.Country]++
		cs.Categories[r.Category]++
		cs.Difficulties[r.Difficulty]++
		cs.MealTypes[r.MealType]++
	}
	return cs
}

// Stats summarizes the installed index snapshot.
type Stats struct {
	Documents  int             `json:"documents"`
	BuildID    string          `json:"build_id,omitempty"`
	BuiltAt    time.Time       `json:"built_at,omitempty"`
	Lexical    LexicalStats    `json:"lexical"`
	Facets     FacetStats      `json:"facets"`
	Semantic   SemanticStats   `json:"semantic"`
	Collection CollectionStats `json:"collection"`
}
