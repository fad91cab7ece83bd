package store

import (
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/mise/internal/models"
)

func sampleRecipes() []*models.Recipe {
	return []*models.Recipe{
		{ID: "c", Title: "Garlic Butter Pasta"},
		{ID: "a", Title: "Spicy Korean Chicken"},
		{ID: "b", Title: "Quick Beef Rice"},
	}
}

func TestNew_SortsIDs(t *testing.T) {
	s, err := New(sampleRecipes())
	if err != nil {
		t.Fatal(err)
	}
	ids := s.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("ids = %v", ids)
	}
	if s.Len() != 3 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	recipes := append(sampleRecipes(), &models.Recipe{ID: "a", Title: "dup"})
	if _, err := New(recipes); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStore_Get(t *testing.T) {
	s, _ := New(sampleRecipes())
	r, err := s.Get("b")
	if err != nil {
		t.Fatal(err)
	}
	if r.Title != "Quick Beef Rice" {
		t.Errorf("got %s", r.Title)
	}
	if _, err := s.Get("zzz"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_List(t *testing.T) {
	s, _ := New(sampleRecipes())
	tests := []struct {
		offset, limit int
		want          []string
	}{
		{0, 2, []string{"a", "b"}},
		{2, 2, []string{"c"}},
		{3, 2, nil},
		{-1, 1, []string{"a"}},
		{0, 0, nil},
		{1, math.MaxInt, []string{"b", "c"}},
		{math.MaxInt, 1, nil},
	}
	for _, tt := range tests {
		got := s.List(tt.offset, tt.limit)
		if len(got) != len(tt.want) {
			t.Errorf("List(%d,%d) len = %d, want %d", tt.offset, tt.limit, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].ID != tt.want[i] {
				t.Errorf("List(%d,%d)[%d] = %s, want %s", tt.offset, tt.limit, i, got[i].ID, tt.want[i])
			}
		}
	}
}

func TestStore_Resolve(t *testing.T) {
	s, _ := New(sampleRecipes())
	got := s.Resolve([]string{"c", "missing", "a"})
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("Resolve = %v", got)
	}
}

func TestEmpty(t *testing.T) {
	s := Empty()
	if s.Len() != 0 || len(s.All()) != 0 || len(s.List(0, 10)) != 0 {
		t.Error("empty store should have no recipes")
	}
	if s.Has("a") {
		t.Error("empty store should not contain ids")
	}
}
