package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/mise/internal/config"
	"github.com/hyperjump/mise/internal/metrics"
	"github.com/hyperjump/mise/internal/models"
)

// Sub-index names reported in SearchResponse.Degraded.
const (
	IndexSemantic = "semantic"
	IndexLexical  = "lexical"
)

// Engine answers queries against the installed snapshot. Snapshots are swapped
// atomically: a query runs entirely against the snapshot it started with.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]
	config   *config.SearchConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine serving an empty snapshot until Swap is called.
func NewEngine(cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	if cfg == nil {
		cfg = &config.Default().Search
	}
	e := &Engine{config: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.snapshot.Store(EmptySnapshot())
	return e
}

// Swap installs s and returns the previously installed snapshot. A nil s installs an empty one.
func (e *Engine) Swap(s *Snapshot) *Snapshot {
	if s == nil {
		s = EmptySnapshot()
	}
	prev := e.snapshot.Swap(s)

	metrics.IndexDocuments.WithLabelValues("store").Set(float64(s.Store.Len()))
	metrics.IndexDocuments.WithLabelValues(IndexLexical).Set(float64(s.Lexical.Len()))
	metrics.IndexDocuments.WithLabelValues("facet").Set(float64(s.Facets.Len()))
	semSize := 0
	if s.Semantic != nil {
		semSize = s.Semantic.Size()
	}
	metrics.IndexDocuments.WithLabelValues(IndexSemantic).Set(float64(semSize))
	metrics.IndexTerms.Set(float64(s.Lexical.Stats().TotalTerms))

	e.logger.Info("Index snapshot installed",
		zap.String("build_id", s.BuildID),
		zap.Int("recipes", s.Store.Len()),
		zap.Bool("semantic", s.semanticAvailable()))
	return prev
}

// Snapshot returns the installed snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Config returns the search settings the engine was created with.
func (e *Engine) Config() *config.SearchConfig {
	return e.config
}

func observe(kind string, start time.Time, err error) {
	metrics.QueriesTotal.WithLabelValues(kind, metrics.Status(err)).Inc()
	metrics.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func newResponse(query, searchType string, criteria *models.FilterCriteria) *models.SearchResponse {
	resp := &models.SearchResponse{
		Query:      query,
		SearchType: searchType,
		Results:    []*models.SearchResult{},
	}
	if !criteria.IsEmpty() {
		resp.Filters = criteria
	}
	return resp
}

type responseBuilder struct {
	snap *Snapshot
	resp *models.SearchResponse
}

func (r *responseBuilder) finish(start time.Time) *models.SearchResponse {
	r.resp.Count = len(r.resp.Results)
	r.resp.QueryTime = time.Since(start).Milliseconds()
	return r.resp
}

// add appends the recipe id with the next rank. Ids missing from the store are skipped.
func (r *responseBuilder) add(id string, fill func(*models.SearchResult)) {
	recipe, err := r.snap.Store.Get(id)
	if err != nil {
		return
	}
	res := &models.SearchResult{Recipe: recipe, Rank: len(r.resp.Results) + 1}
	fill(res)
	r.resp.Results = append(r.resp.Results, res)
}

// SearchText runs a lexical search. topK <= 0 returns every match.
func (e *Engine) SearchText(query string, topK int) (resp *models.SearchResponse, err error) {
	start := time.Now()
	defer func() { observe(models.SearchTypeText, start, err) }()

	query, err = ProcessQuery(query, nil)
	if err != nil {
		return nil, err
	}
	snap := e.snapshot.Load()
	b := &responseBuilder{snap: snap, resp: newResponse(query, models.SearchTypeText, nil)}
	for _, h := range e.lexicalHits(snap, query, topK) {
		b.add(h.ID, func(r *models.SearchResult) {
			r.Score = h.Score
			r.LexicalScore = h.Score
		})
	}
	return b.finish(start), nil
}

func (e *Engine) lexicalHits(snap *Snapshot, query string, topK int) []models.TextHit {
	if e.config.ExpandSynonyms {
		return snap.Lexical.SearchTerms(snap.Lexical.ExpandQuery(query), topK)
	}
	return snap.Lexical.Search(query, topK)
}

// SearchSemantic returns the k recipes nearest to query. With criteria, the nearest k
// recipes that satisfy the criteria are returned.
func (e *Engine) SearchSemantic(ctx context.Context, query string, k int, criteria *models.FilterCriteria) (resp *models.SearchResponse, err error) {
	start := time.Now()
	defer func() { observe(models.SearchTypeSemantic, start, err) }()

	query, err = ProcessQuery(query, criteria)
	if err != nil {
		return nil, err
	}
	snap := e.snapshot.Load()
	b := &responseBuilder{snap: snap, resp: newResponse(query, models.SearchTypeSemantic, criteria)}
	if !snap.semanticAvailable() {
		if snap.Semantic == nil && snap.Store.Len() > 0 {
			b.resp.Degraded = []string{IndexSemantic}
		}
		return b.finish(start), nil
	}
	if k <= 0 {
		k = e.config.DefaultK
	}

	candidates := k
	if !criteria.IsEmpty() {
		candidates = snap.Semantic.Size()
	}
	hits, err := snap.Semantic.Search(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}
	for _, h := range hits {
		if len(b.resp.Results) == k {
			break
		}
		if !criteria.IsEmpty() && !snap.Facets.Matches(h.ID, criteria) {
			continue
		}
		b.add(h.ID, func(r *models.SearchResult) {
			r.Score = h.Score
			r.SemanticScore = h.Score
			r.Distance = h.Distance
		})
	}
	return b.finish(start), nil
}

// SearchHybrid runs the semantic and lexical searches concurrently, merges them with
// the configured weights, keeps recipes matching criteria and returns the top
// search.hybrid_limit. An unavailable sub-index is skipped and named in Degraded.
func (e *Engine) SearchHybrid(ctx context.Context, query string, criteria *models.FilterCriteria) (resp *models.SearchResponse, err error) {
	start := time.Now()
	defer func() { observe(models.SearchTypeHybrid, start, err) }()

	query, err = ProcessQuery(query, criteria)
	if err != nil {
		return nil, err
	}
	snap := e.snapshot.Load()

	var (
		semanticHits []models.SemanticHit
		lexicalHits  []models.TextHit
		semanticErr  error
		wg           sync.WaitGroup
	)

	if snap.semanticAvailable() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semanticHits, semanticErr = snap.Semantic.Search(ctx, query, e.config.SemanticCandidates)
		}()
	}

	if snap.Lexical.Len() > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lexicalHits = e.lexicalHits(snap, query, e.config.LexicalCandidates)
		}()
	}

	wg.Wait()

	b := &responseBuilder{snap: snap, resp: newResponse(query, models.SearchTypeHybrid, criteria)}
	if snap.Store.Len() == 0 {
		return b.finish(start), nil
	}
	if !snap.semanticAvailable() || semanticErr != nil {
		if semanticErr != nil {
			e.logger.Warn("Semantic search failed, answering from lexical index only", zap.Error(semanticErr))
		}
		semanticHits = nil
		b.resp.Degraded = append(b.resp.Degraded, IndexSemantic)
	}
	if snap.Lexical.Len() == 0 {
		b.resp.Degraded = append(b.resp.Degraded, IndexLexical)
	}
	for _, name := range b.resp.Degraded {
		metrics.DegradedQueriesTotal.WithLabelValues(name).Inc()
	}

	fused := Merge(semanticHits, lexicalHits, e.config.SemanticWeight, e.config.LexicalWeight)
	var allowed map[string]struct{}
	if !criteria.IsEmpty() {
		allowed, err = snap.Facets.Set(criteria)
		if err != nil {
			return nil, err
		}
	}
	for _, f := range fused {
		if e.config.HybridLimit > 0 && len(b.resp.Results) == e.config.HybridLimit {
			break
		}
		if allowed != nil {
			if _, ok := allowed[f.ID]; !ok {
				continue
			}
		}
		b.add(f.ID, func(r *models.SearchResult) {
			r.Score = f.Score
			r.SemanticScore = f.SemanticScore
			r.LexicalScore = f.LexicalScore
			r.Distance = f.Distance
		})
	}
	return b.finish(start), nil
}

// Filter returns the recipes satisfying criteria in ascending id order. Empty criteria
// return the whole collection.
func (e *Engine) Filter(criteria *models.FilterCriteria) (recipes []*models.Recipe, err error) {
	start := time.Now()
	defer func() { observe("filter", start, err) }()

	snap := e.snapshot.Load()
	ids, err := snap.Facets.Filter(criteria)
	if err != nil {
		return nil, err
	}
	return snap.Store.Resolve(ids), nil
}

// FindSimilar returns up to k recipes closest to the recipe id, never including id itself.
func (e *Engine) FindSimilar(ctx context.Context, id string, k int) (resp *models.SearchResponse, err error) {
	start := time.Now()
	defer func() { observe(models.SearchTypeSimilar, start, err) }()

	snap := e.snapshot.Load()
	if !snap.Store.Has(id) {
		return nil, fmt.Errorf("recipe %q: %w", id, models.ErrNotFound)
	}
	if k <= 0 {
		k = e.config.SimilarK
	}
	b := &responseBuilder{snap: snap, resp: newResponse(id, models.SearchTypeSimilar, nil)}
	if snap.Semantic == nil {
		b.resp.Degraded = []string{IndexSemantic}
		return b.finish(start), nil
	}
	hits, err := snap.Semantic.FindSimilar(ctx, id, k)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		b.add(h.ID, func(r *models.SearchResult) {
			r.Score = h.Score
			r.SemanticScore = h.Score
			r.Distance = h.Distance
		})
	}
	return b.finish(start), nil
}

// Suggest returns lexical terms starting with prefix.
func (e *Engine) Suggest(prefix string, limit int) []string {
	return e.snapshot.Load().Lexical.Suggest(prefix, limit)
}

// SuggestIngredients returns ingredient facet keys starting with prefix.
func (e *Engine) SuggestIngredients(prefix string, limit int) []models.IngredientSuggestion {
	return e.snapshot.Load().Facets.SuggestIngredients(prefix, limit)
}

// FacetValues lists every distinct value per facet dimension.
func (e *Engine) FacetValues() models.FacetValues {
	return e.snapshot.Load().Facets.Values()
}

// Recipe returns the recipe with the given id.
func (e *Engine) Recipe(id string) (*models.Recipe, error) {
	return e.snapshot.Load().Store.Get(id)
}

// Recipes returns a page of recipes in id order and the collection size.
func (e *Engine) Recipes(offset, limit int) ([]*models.Recipe, int) {
	snap := e.snapshot.Load()
	return snap.Store.List(offset, limit), snap.Store.Len()
}

// RecipeFacets returns the facet values of the recipe with the given id.
func (e *Engine) RecipeFacets(id string) (models.RecipeFacets, error) {
	return e.snapshot.Load().Facets.RecipeFacets(id)
}

// Stats summarizes the installed snapshot.
func (e *Engine) Stats() models.Stats {
	return e.snapshot.Load().Stats()
}
