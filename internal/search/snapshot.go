package search

import (
	"time"

	"github.com/hyperjump/mise/internal/facet"
	"github.com/hyperjump/mise/internal/keyword"
	"github.com/hyperjump/mise/internal/models"
	"github.com/hyperjump/mise/internal/store"
	"github.com/hyperjump/mise/internal/vector"
)

// Snapshot is one frozen generation of the collection and its indexes. Store, Lexical and
// Facets are always set; Semantic is nil when embeddings are unavailable.
type Snapshot struct {
	Store    *store.Store
	Lexical  *keyword.Index
	Facets   *facet.Index
	Semantic *vector.SemanticIndex
	BuildID  string
	BuiltAt  time.Time
}

// EmptySnapshot returns a snapshot over no recipes.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Store:   store.Empty(),
		Lexical: keyword.Build(nil, nil),
		Facets:  facet.Build(nil),
	}
}

// Stats summarizes the snapshot's collection and indexes.
func (s *Snapshot) Stats() models.Stats {
	st := models.Stats{
		Documents:  s.Store.Len(),
		BuildID:    s.BuildID,
		BuiltAt:    s.BuiltAt,
		Lexical:    s.Lexical.Stats(),
		Facets:     s.Facets.Stats(),
		Collection: models.NewCollectionStats(s.Store.All()),
	}
	if s.Semantic != nil {
		st.Semantic = s.Semantic.Stats()
	}
	return st
}

func (s *Snapshot) semanticAvailable() bool {
	return s.Semantic != nil && s.Semantic.Size() > 0
}
