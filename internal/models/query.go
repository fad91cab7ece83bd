package models

import (
	"fmt"
	"strings"
)

// FilterCriteria holds independent facet conditions. Zero-value fields impose no constraint.
type FilterCriteria struct {
	Country       string `json:"country,omitempty"`
	Category      string `json:"category,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	MealType      string `json:"meal_type,omitempty"`
	CookingMethod string `json:"cooking_method,omitempty"`
	// MaxTime is a maximum total duration in minutes, applied through duration buckets.
	MaxTime *int `json:"max_time,omitempty"`
	// Ingredients must all be present in a matching recipe.
	Ingredients []string `json:"ingredients,omitempty"`
	// ExcludeIngredients must all be absent from a matching recipe.
	ExcludeIngredients []string `json:"exclude_ingredients,omitempty"`
}

// IsEmpty reports whether no criterion is set.
func (c *FilterCriteria) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.Country == "" && c.Category == "" && c.Difficulty == "" &&
		c.MealType == "" && c.CookingMethod == "" && c.MaxTime == nil &&
		len(c.Ingredients) == 0 && len(c.ExcludeIngredients) == 0
}

// Validate rejects malformed criteria. A nil criteria is valid.
func (c *FilterCriteria) Validate() error {
	if c == nil {
		return nil
	}
	if c.MaxTime != nil && *c.MaxTime < 0 {
		return fmt.Errorf("%w: max_time must not be negative", ErrInvalidInput)
	}
	for _, ing := range c.Ingredients {
		if strings.TrimSpace(ing) == "" {
			return fmt.Errorf("%w: empty ingredient in ingredients", ErrInvalidInput)
		}
	}
	for _, ing := range c.ExcludeIngredients {
		if strings.TrimSpace(ing) == "" {
			return fmt.Errorf("%w: empty ingredient in exclude_ingredients", ErrInvalidInput)
		}
	}
	return nil
}

// ValidateQueryText rejects an empty or whitespace-only query string.
func ValidateQueryText(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	return nil
}

// NormalizeIngredient lowercases and trims an ingredient name the way the facet index stores it.
func NormalizeIngredient(item string) string {
	return strings.ToLower(strings.TrimSpace(item))
}
