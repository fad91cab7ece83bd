// Package models defines core data structures for recipes, queries, and search results.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Unknown is the facet value used when a categorical recipe field is missing.
const Unknown = "Unknown"

// Recipe is a validated recipe document. It is immutable once ingested.
type Recipe struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Ingredients   []Ingredient `json:"ingredients"`
	Instructions  []string     `json:"instructions"`
	Tags          []string     `json:"tags"`
	Country       string       `json:"country"`
	Category      string       `json:"category"`
	Difficulty    string       `json:"difficulty"`
	MealType      string       `json:"meal_type"`
	CookingMethod string       `json:"cooking_method"`
	Servings      int          `json:"servings,omitempty"`
	Duration      Duration     `json:"duration"`
	SourceFile    string       `json:"source_file,omitempty"`
}

// Ingredient is a single ingredient line of a recipe.
type Ingredient struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity"`
}

// UnmarshalJSON accepts either an object or a bare string naming the item.
func (i *Ingredient) UnmarshalJSON(data []byte) error {
	var item string
	if err := json.Unmarshal(data, &item); err == nil {
		*i = Ingredient{Item: item}
		return nil
	}
	type plain Ingredient
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Ingredient(p)
	return nil
}

// Duration holds preparation and cooking times in minutes.
type Duration struct {
	Prep  int `json:"prep"`
	Cook  int `json:"cook"`
	Total int `json:"total"`
}

// Validate checks the fields every recipe must carry.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: recipe id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: recipe %s: title is required", ErrInvalidInput, r.ID)
	}
	if r.Ingredients == nil {
		return fmt.Errorf("%w: recipe %s: ingredients are required", ErrInvalidInput, r.ID)
	}
	if r.Instructions == nil {
		return fmt.Errorf("%w: recipe %s: instructions are required", ErrInvalidInput, r.ID)
	}
	if r.Duration.Prep < 0 || r.Duration.Cook < 0 || r.Duration.Total < 0 {
		return fmt.Errorf("%w: recipe %s: negative duration", ErrInvalidInput, r.ID)
	}
	return nil
}

// Normalize applies ingestion defaults in place: missing categorical fields become
// Unknown, a zero total duration is derived from prep and cook, and tags are
// trimmed and de-duplicated.
func (r *Recipe) Normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.Country = orUnknown(r.Country)
	r.Category = orUnknown(r.Category)
	r.Difficulty = orUnknown(r.Difficulty)
	r.MealType = orUnknown(r.MealType)
	r.CookingMethod = orUnknown(r.CookingMethod)
	if r.Duration.Total == 0 {
		r.Duration.Total = r.Duration.Prep + r.Duration.Cook
	}
	if len(r.Tags) > 0 {
		seen := make(map[string]struct{}, len(r.Tags))
		tags := r.Tags[:0]
		for _, t := range r.Tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
		r.Tags = tags
	}
}

// IngredientNames returns the item names of the recipe's ingredients in order.
func (r *Recipe) IngredientNames() []string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Item)
	}
	return names
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unknown
	}
	return v
}
