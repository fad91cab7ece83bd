package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestFilterCriteria_Validate(t *testing.T) {
	tests := []struct {
		name     string
		criteria *FilterCriteria
		wantErr  bool
	}{
		{"nil criteria", nil, false},
		{"empty criteria", &FilterCriteria{}, false},
		{"valid max time", &FilterCriteria{MaxTime: intPtr(45)}, false},
		{"negative max time", &FilterCriteria{MaxTime: intPtr(-1)}, true},
		{"blank ingredient", &FilterCriteria{Ingredients: []string{"garlic", " "}}, true},
		{"blank excluded ingredient", &FilterCriteria{ExcludeIngredients: []string{""}}, true},
		{"full criteria", &FilterCriteria{Country: "Italy", Difficulty: "easy", Ingredients: []string{"garlic"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestFilterCriteria_IsEmpty(t *testing.T) {
	var nilCriteria *FilterCriteria
	if !nilCriteria.IsEmpty() {
		t.Error("nil criteria should be empty")
	}
	if !(&FilterCriteria{}).IsEmpty() {
		t.Error("zero criteria should be empty")
	}
	if (&FilterCriteria{MaxTime: intPtr(0)}).IsEmpty() {
		t.Error("criteria with max time should not be empty")
	}
	if (&FilterCriteria{ExcludeIngredients: []string{"nuts"}}).IsEmpty() {
		t.Error("criteria with exclusions should not be empty")
	}
}

func TestValidateQueryText(t *testing.T) {
	if err := ValidateQueryText("  "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank query: got %v", err)
	}
	if err := ValidateQueryText("pasta"); err != nil {
		t.Errorf("valid query: got %v", err)
	}
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		total int
		want  DurationBucket
	}{
		{0, BucketQuick},
		{29, BucketQuick},
		{30, BucketMedium},
		{60, BucketMedium},
		{61, BucketLong},
		{240, BucketLong},
	}
	for _, tt := range tests {
		if got := BucketFor(tt.total); got != tt.want {
			t.Errorf("BucketFor(%d) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestBucketsWithin(t *testing.T) {
	if got := BucketsWithin(20); len(got) != 1 || got[0] != BucketQuick {
		t.Errorf("BucketsWithin(20) = %v", got)
	}
	if got := BucketsWithin(30); len(got) != 2 || got[1] != BucketMedium {
		t.Errorf("BucketsWithin(30) = %v", got)
	}
	if got := BucketsWithin(500); len(got) != 2 {
		t.Errorf("long recipes never qualify: got %v", got)
	}
}

func TestRecipe_NormalizeAndValidate(t *testing.T) {
	r := &Recipe{
		ID:           " r1 ",
		Title:        "Garlic Butter Pasta",
		Ingredients:  []Ingredient{{Item: "Garlic", Quantity: "3 cloves"}},
		Instructions: []string{"Boil pasta."},
		Tags:         []string{"pasta", " pasta", "", "quick"},
		Country:      "Italy",
		Duration:     Duration{Prep: 10, Cook: 15},
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.ID != "r1" {
		t.Errorf("id not trimmed: %q", r.ID)
	}
	if r.Category != Unknown || r.MealType != Unknown || r.CookingMethod != Unknown || r.Difficulty != Unknown {
		t.Errorf("missing fields should default to Unknown: %+v", r)
	}
	if r.Country != "Italy" {
		t.Errorf("country = %s", r.Country)
	}
	if r.Duration.Total != 25 {
		t.Errorf("total should be derived from prep+cook, got %d", r.Duration.Total)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "pasta" || r.Tags[1] != "quick" {
		t.Errorf("tags = %v", r.Tags)
	}
}

func TestRecipe_ValidateMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		recipe Recipe
	}{
		{"missing id", Recipe{Title: "x", Ingredients: []Ingredient{}, Instructions: []string{}}},
		{"missing title", Recipe{ID: "a", Ingredients: []Ingredient{}, Instructions: []string{}}},
		{"missing ingredients", Recipe{ID: "a", Title: "x", Instructions: []string{}}},
		{"missing instructions", Recipe{ID: "a", Title: "x", Ingredients: []Ingredient{}}},
		{"negative duration", Recipe{ID: "a", Title: "x", Ingredients: []Ingredient{}, Instructions: []string{}, Duration: Duration{Prep: -5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.recipe.Validate(); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPersistenceError_Is(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPersistenceError("write", "/tmp/x", cause)
	if !errors.Is(err, ErrPersistence) {
		t.Error("should match ErrPersistence")
	}
	if !errors.Is(err, cause) {
		t.Error("should match the cause")
	}
}

func TestNewCollectionStats(t *testing.T) {
	recipes := []*Recipe{
		{Country: "Italy", Category: "Pasta", Difficulty: "easy", MealType: "dinner"},
		{Country: "Italy", Category: "Dessert", Difficulty: "easy", MealType: "dessert"},
		{Country: "USA", Category: "Main", Difficulty: "medium", MealType: "dinner"},
	}
	cs := NewCollectionStats(recipes)
	if cs.Countries["Italy"] != 2 || cs.Countries["USA"] != 1 {
		t.Errorf("countries = %v", cs.Countries)
	}
	if cs.MealTypes["dinner"] != 2 {
		t.Errorf("meal types = %v", cs.MealTypes)
	}
}

func TestIngredient_UnmarshalJSON(t *testing.T) {
	var ings []Ingredient
	if err := json.Unmarshal([]byte(`["salt", {"item": "flour", "quantity": "2 cups"}]`), &ings); err != nil {
		t.Fatal(err)
	}
	if len(ings) != 2 || ings[0].Item != "salt" || ings[1].Item != "flour" || ings[1].Quantity != "2 cups" {
		t.Errorf("ingredients = %+v", ings)
	}
	if err := json.Unmarshal([]byte(`[42]`), &ings); err == nil {
		t.Error("expected error for a numeric ingredient")
	}
}
