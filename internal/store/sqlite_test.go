package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/mise/internal/models"
)

func TestSQLiteCatalog_ReplaceAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	catalog, err := OpenSQLiteCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer catalog.Close()
	ctx := context.Background()

	recipes := []*models.Recipe{
		{
			ID:           "pasta",
			Title:        "Garlic Butter Pasta",
			Ingredients:  []models.Ingredient{{Item: "garlic", Quantity: "3 cloves"}},
			Instructions: []string{"Boil pasta."},
			Tags:         []string{"quick"},
			Country:      "Italy",
			Duration:     models.Duration{Prep: 5, Cook: 15, Total: 20},
		},
		{ID: "rice", Title: "Quick Beef Rice", Ingredients: []models.Ingredient{}, Instructions: []string{}},
	}
	if err := catalog.ReplaceAll(ctx, recipes); err != nil {
		t.Fatal(err)
	}

	n, err := catalog.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count: %v, %d", err, n)
	}

	got, err := catalog.Get(ctx, "pasta")
	if err != nil {
		t.Fatal(err)
	}
	if got.Country != "Italy" || got.Duration.Total != 20 || len(got.Ingredients) != 1 {
		t.Errorf("got %+v", got)
	}

	if _, err := catalog.Get(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Replacing drops recipes that are no longer present.
	if err := catalog.ReplaceAll(ctx, recipes[1:]); err != nil {
		t.Fatal(err)
	}
	all, err := catalog.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ID != "rice" {
		t.Errorf("All = %v", all)
	}
}

func TestSQLiteCatalog_Meta(t *testing.T) {
	catalog, err := OpenSQLiteCatalog(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer catalog.Close()
	ctx := context.Background()

	v, err := catalog.Meta(ctx, "build_id")
	if err != nil || v != "" {
		t.Errorf("unset meta: %q, %v", v, err)
	}
	if err := catalog.SetMeta(ctx, "build_id", "one"); err != nil {
		t.Fatal(err)
	}
	if err := catalog.SetMeta(ctx, "build_id", "two"); err != nil {
		t.Fatal(err)
	}
	v, _ = catalog.Meta(ctx, "build_id")
	if v != "two" {
		t.Errorf("meta = %q", v)
	}
}
