package indexer

import (
	"strings"
	"unicode"

	"github.com/hyperjump/mise/internal/models"
)

// Preprocess normalizes text for indexing (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// prepareRecipe returns a normalized copy of r with whitespace collapsed in its free-text
// fields, leaving the caller's recipe untouched.
func prepareRecipe(r *models.Recipe) *models.Recipe {
	c := *r
	c.Title = Preprocess(r.Title)
	c.Description = Preprocess(r.Description)
	if r.Ingredients != nil {
		c.Ingredients = make([]models.Ingredient, len(r.Ingredients))
		for i, ing := range r.Ingredients {
			c.Ingredients[i] = models.Ingredient{Item: Preprocess(ing.Item), Quantity: Preprocess(ing.Quantity)}
		}
	}
	if r.Instructions != nil {
		c.Instructions = make([]string, len(r.Instructions))
		for i, step := range r.Instructions {
			c.Instructions[i] = Preprocess(step)
		}
	}
	c.Tags = append([]string(nil), r.Tags...)
	c.Normalize()
	return &c
}
