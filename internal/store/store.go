// Package store holds the canonical recipe collection that every index is built from.
package store

import (
	"fmt"
	"sort"

	"github.com/hyperjump/mise/internal/models"
)

// Store is an immutable, id-keyed recipe collection. It is safe for concurrent reads.
type Store struct {
	byID map[string]*models.Recipe
	ids  []string
}

// New builds a store from recipes. Duplicate or empty ids are rejected.
func New(recipes []*models.Recipe) (*Store, error) {
	s := &Store{
		byID: make(map[string]*models.Recipe, len(recipes)),
		ids:  make([]string, 0, len(recipes)),
	}
	for _, r := range recipes {
		if r == nil || r.ID == "" {
			return nil, fmt.Errorf("%w: recipe without id", models.ErrInvalidInput)
		}
		if _, dup := s.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate recipe id %q", models.ErrInvalidInput, r.ID)
		}
		s.byID[r.ID] = r
		s.ids = append(s.ids, r.ID)
	}
	sort.Strings(s.ids)
	return s, nil
}

// Empty returns a store with no recipes.
func Empty() *Store {
	return &Store{byID: map[string]*models.Recipe{}}
}

// Get returns the recipe with the given id or ErrNotFound.
func (s *Store) Get(id string) (*models.Recipe, error) {
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("recipe %q: %w", id, models.ErrNotFound)
}

// Has reports whether id is in the store.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Len returns the number of recipes.
func (s *Store) Len() int {
	return len(s.ids)
}

// IDs returns all recipe ids in ascending order. The slice must not be modified.
func (s *Store) IDs() []string {
	return s.ids
}

// All returns every recipe in ascending id order.
func (s *Store) All() []*models.Recipe {
	out := make([]*models.Recipe, len(s.ids))
	for i, id := range s.ids {
		out[i] = s.byID[id]
	}
	return out
}

// List returns up to limit recipes starting at offset, in ascending id order.
func (s *Store) List(offset, limit int) []*models.Recipe {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.ids) || limit <= 0 {
		return []*models.Recipe{}
	}
	end := len(s.ids)
	if limit < end-offset {
		end = offset + limit
	}
	out := make([]*models.Recipe, 0, end-offset)
	for _, id := range s.ids[offset:end] {
		out = append(out, s.byID[id])
	}
	return out
}

// Resolve maps ids to recipes, skipping ids that are not in the store.
func (s *Store) Resolve(ids []string) []*models.Recipe {
	out := make([]*models.Recipe, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
