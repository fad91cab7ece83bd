// Package facet provides the facet index: exact-match posting sets per categorical
// dimension with intersection and exclusion filtering.
package facet

import (
	"encoding/gob"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/mise/internal/models"
)

// Dimension names a facet dimension.
type Dimension string

// Facet dimensions.
const (
	Country       Dimension = "country"
	Category      Dimension = "category"
	Difficulty    Dimension = "difficulty"
	MealType      Dimension = "meal_type"
	CookingMethod Dimension = "cooking_method"
	Ingredient    Dimension = "ingredient"
	Duration      Dimension = "duration"
)

// Dimensions lists every facet dimension.
var Dimensions = []Dimension{Country, Category, Difficulty, MealType, CookingMethod, Ingredient, Duration}

// MinIngredientLength is the rune length an ingredient name must exceed to be indexed.
const MinIngredientLength = 2

// TopIngredientsLimit is the number of ingredients reported by Stats.
const TopIngredientsLimit = 10

type postings map[string]map[string]struct{}

func (p postings) add(key, id string) {
	set, ok := p[key]
	if !ok {
		set = make(map[string]struct{})
		p[key] = set
	}
	set[id] = struct{}{}
}

// Index maps facet values to recipe ids. It is immutable after Build or Decode
// and safe for concurrent reads.
type Index struct {
	dims     map[Dimension]postings
	universe []string
	// ingredients holds every ingredient key in ascending order for prefix lookups.
	ingredients []string
}

func newIndex() *Index {
	ix := &Index{dims: make(map[Dimension]postings, len(Dimensions))}
	for _, d := range Dimensions {
		ix.dims[d] = make(postings)
	}
	return ix
}

// Build indexes each recipe under its categorical values, its normalized ingredient
// names and its duration bucket. Empty categorical values are indexed as models.Unknown.
func Build(recipes []*models.Recipe) *Index {
	ix := newIndex()
	for _, r := range recipes {
		ix.universe = append(ix.universe, r.ID)
		ix.dims[Country].add(orUnknown(r.Country), r.ID)
		ix.dims[Category].add(orUnknown(r.Category), r.ID)
		ix.dims[Difficulty].add(orUnknown(r.Difficulty), r.ID)
		ix.dims[MealType].add(orUnknown(r.MealType), r.ID)
		ix.dims[CookingMethod].add(orUnknown(r.CookingMethod), r.ID)
		for _, ing := range r.Ingredients {
			if key := models.NormalizeIngredient(ing.Item); utf8.RuneCountInString(key) > MinIngredientLength {
				ix.dims[Ingredient].add(key, r.ID)
			}
		}
		ix.dims[Duration].add(string(models.BucketFor(r.Duration.Total)), r.ID)
	}
	ix.finish()
	return ix
}

func (ix *Index) finish() {
	sort.Strings(ix.universe)
	ix.ingredients = sortedKeys(ix.dims[Ingredient])
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return models.Unknown
	}
	return v
}

// Len returns the number of indexed recipes.
func (ix *Index) Len() int {
	return len(ix.universe)
}

// Roster returns every indexed recipe id in ascending order.
func (ix *Index) Roster() []string {
	return ix.universe
}

// Filter returns the ids of recipes satisfying every criterion, in ascending order.
// Nil or empty criteria return every indexed id.
func (ix *Index) Filter(c *models.FilterCriteria) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return append([]string{}, ix.universe...), nil
	}
	out := make([]string, 0)
	for _, id := range ix.universe {
		if ix.matches(id, c) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Matches reports whether the recipe id satisfies c. Unknown ids never match.
func (ix *Index) Matches(id string, c *models.FilterCriteria) bool {
	if !ix.has(Duration, "", id) {
		return false
	}
	return ix.matches(id, c)
}

// Set returns the filter result as a set, for membership tests.
func (ix *Index) Set(c *models.FilterCriteria) (map[string]struct{}, error) {
	ids, err := ix.Filter(c)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (ix *Index) matches(id string, c *models.FilterCriteria) bool {
	if c == nil {
		return true
	}
	exact := []struct {
		dim   Dimension
		value string
	}{
		{Country, c.Country},
		{Category, c.Category},
		{Difficulty, c.Difficulty},
		{MealType, c.MealType},
		{CookingMethod, c.CookingMethod},
	}
	for _, e := range exact {
		if e.value != "" && !ix.has(e.dim, e.value, id) {
			return false
		}
	}
	if c.MaxTime != nil {
		ok := false
		for _, b := range models.BucketsWithin(*c.MaxTime) {
			if ix.has(Duration, string(b), id) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, ing := range c.Ingredients {
		if !ix.has(Ingredient, models.NormalizeIngredient(ing), id) {
			return false
		}
	}
	for _, ing := range c.ExcludeIngredients {
		if ix.has(Ingredient, models.NormalizeIngredient(ing), id) {
			return false
		}
	}
	return true
}

// has reports whether id is in the posting set for key. An empty key matches any key of dim.
func (ix *Index) has(dim Dimension, key, id string) bool {
	if key == "" {
		for _, set := range ix.dims[dim] {
			if _, ok := set[id]; ok {
				return true
			}
		}
		return false
	}
	_, ok := ix.dims[dim][key][id]
	return ok
}

// SuggestIngredients returns ingredient keys starting with prefix (case-insensitive),
// ordered by descending recipe count, then name. limit <= 0 returns every match.
func (ix *Index) SuggestIngredients(prefix string, limit int) []models.IngredientSuggestion {
	prefix = models.NormalizeIngredient(prefix)
	out := []models.IngredientSuggestion{}
	if prefix == "" {
		return out
	}
	start := sort.SearchStrings(ix.ingredients, prefix)
	for i := start; i < len(ix.ingredients) && strings.HasPrefix(ix.ingredients[i], prefix); i++ {
		key := ix.ingredients[i]
		out = append(out, models.IngredientSuggestion{Ingredient: key, Frequency: len(ix.dims[Ingredient][key])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Values returns the sorted distinct values of every dimension.
// Duration categories are always listed as quick, medium, long.
func (ix *Index) Values() models.FacetValues {
	buckets := make([]string, len(models.DurationBuckets))
	for i, b := range models.DurationBuckets {
		buckets[i] = string(b)
	}
	return models.FacetValues{
		Countries:          sortedKeys(ix.dims[Country]),
		Categories:         sortedKeys(ix.dims[Category]),
		Difficulties:       sortedKeys(ix.dims[Difficulty]),
		MealTypes:          sortedKeys(ix.dims[MealType]),
		CookingMethods:     sortedKeys(ix.dims[CookingMethod]),
		Ingredients:        append([]string{}, ix.ingredients...),
		DurationCategories: buckets,
	}
}

// RecipeFacets returns the facet values of one recipe.
func (ix *Index) RecipeFacets(id string) (models.RecipeFacets, error) {
	if !ix.has(Duration, "", id) {
		return models.RecipeFacets{}, fmt.Errorf("recipe %q: %w", id, models.ErrNotFound)
	}
	f := models.RecipeFacets{
		Country:       ix.keyFor(Country, id),
		Category:      ix.keyFor(Category, id),
		Difficulty:    ix.keyFor(Difficulty, id),
		MealType:      ix.keyFor(MealType, id),
		CookingMethod: ix.keyFor(CookingMethod, id),
		Duration:      ix.keyFor(Duration, id),
		Ingredients:   []string{},
	}
	for _, key := range ix.ingredients {
		if _, ok := ix.dims[Ingredient][key][id]; ok {
			f.Ingredients = append(f.Ingredients, key)
		}
	}
	return f, nil
}

func (ix *Index) keyFor(dim Dimension, id string) string {
	for key, set := range ix.dims[dim] {
		if _, ok := set[id]; ok {
			return key
		}
	}
	return models.Unknown
}

// Stats reports distinct value counts per dimension and the most common ingredients.
func (ix *Index) Stats() models.FacetStats {
	stats := models.FacetStats{
		TotalCountries:      len(ix.dims[Country]),
		TotalCategories:     len(ix.dims[Category]),
		TotalDifficulties:   len(ix.dims[Difficulty]),
		TotalMealTypes:      len(ix.dims[MealType]),
		TotalCookingMethods: len(ix.dims[CookingMethod]),
		TotalIngredients:    len(ix.ingredients),
		TopIngredients:      make([]models.TermFrequency, 0, len(ix.ingredients)),
	}
	for _, key := range ix.ingredients {
		stats.TopIngredients = append(stats.TopIngredients, models.TermFrequency{Term: key, Frequency: len(ix.dims[Ingredient][key])})
	}
	sort.SliceStable(stats.TopIngredients, func(i, j int) bool {
		return stats.TopIngredients[i].Frequency > stats.TopIngredients[j].Frequency
	})
	if len(stats.TopIngredients) > TopIngredientsLimit {
		stats.TopIngredients = stats.TopIngredients[:TopIngredientsLimit]
	}
	return stats
}

func sortedKeys(p postings) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// payload is the serialized form of an Index: dimension -> value -> sorted ids.
type payload struct {
	Dimensions map[string]map[string][]string
}

// Encode writes the posting sets of every dimension to w.
func (ix *Index) Encode(w io.Writer) error {
	p := payload{Dimensions: make(map[string]map[string][]string, len(ix.dims))}
	for dim, post := range ix.dims {
		values := make(map[string][]string, len(post))
		for key, set := range post {
			ids := make([]string, 0, len(set))
			for id := range set {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			values[key] = ids
		}
		p.Dimensions[string(dim)] = values
	}
	if err := gob.NewEncoder(w).Encode(&p); err != nil {
		return fmt.Errorf("failed to encode facet index: %w", err)
	}
	return nil
}

// Decode reads an index written by Encode and checks that every recipe in roster
// is placed in exactly one duration bucket and no unknown id is referenced.
func Decode(r io.Reader, roster []string) (*Index, error) {
	var p payload
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode facet index: %w", err)
	}
	known := make(map[string]struct{}, len(roster))
	for _, id := range roster {
		known[id] = struct{}{}
	}
	ix := newIndex()
	for name, values := range p.Dimensions {
		dim := Dimension(name)
		post, ok := ix.dims[dim]
		if !ok {
			return nil, fmt.Errorf("facet index has unknown dimension %q", name)
		}
		for key, ids := range values {
			for _, id := range ids {
				if _, ok := known[id]; !ok {
					return nil, fmt.Errorf("facet %s=%q references unknown recipe %q", name, key, id)
				}
				post.add(key, id)
			}
		}
	}
	bucketed := make(map[string]struct{}, len(known))
	for bucket, set := range ix.dims[Duration] {
		for id := range set {
			if _, dup := bucketed[id]; dup {
				return nil, fmt.Errorf("recipe %q is in more than one duration bucket (%s)", id, bucket)
			}
			bucketed[id] = struct{}{}
		}
	}
	if len(bucketed) != len(known) {
		return nil, fmt.Errorf("facet index covers %d recipes, roster has %d", len(bucketed), len(known))
	}
	ix.universe = append([]string{}, roster...)
	ix.finish()
	return ix, nil
}
