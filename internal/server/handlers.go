package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/mise/internal/models"
	"github.com/hyperjump/mise/pkg/utils"
)

const (
	defaultPerPage      = 20
	maxPerPage          = 100
	defaultSuggestLimit = 10
	minPrefixLen        = 2
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"recipes":         stats.Documents,
		"semantic_search": stats.Semantic.Size > 0,
		"build_id":        stats.BuildID,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_recipes": stats.Documents,
		"collection":    stats.Collection,
	})
}

func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.FacetValues())
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q, "page", 1)
	if err != nil || page < 1 {
		s.respondError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	perPage, err := intParam(q, "per_page", defaultPerPage)
	if err != nil || perPage < 1 {
		s.respondError(w, http.StatusBadRequest, "per_page must be a positive integer")
		return
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	// Pages past the end come back empty, including ones whose offset would overflow.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/perPage {
		offset = (page - 1) * perPage
	}
	recipes, total := s.engine.Recipes(offset, perPage)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"recipes":  recipes,
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"pages":    (total + perPage - 1) / perPage,
	})
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := s.engine.Recipe(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, recipe)
}

func (s *Server) handleRecipeFacets(w http.ResponseWriter, r *http.Request) {
	facets, err := s.engine.RecipeFacets(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, facets)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	k, err := intParam(r.URL.Query(), "k", s.config.Search.SimilarK)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	resp, err := s.engine.FindSimilar(r.Context(), chi.URLParam(r, "id"), k)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchText(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topK, err := intParam(q, "top_k", s.config.Search.DefaultTopK)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("text search request", zap.String("query", q.Get("q")), zap.Int("top_k", topK))
	resp, err := s.engine.SearchText(q.Get("q"), topK)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchSemantic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	k, err := intParam(q, "k", s.config.Search.DefaultK)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	criteria, err := parseCriteria(q)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("semantic search request", zap.String("query", q.Get("q")), zap.Int("k", k))
	resp, err := s.engine.SearchSemantic(r.Context(), q.Get("q"), k, criteria)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchHybrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria, err := parseCriteria(q)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("hybrid search request", zap.String("query", q.Get("q")))
	resp, err := s.engine.SearchHybrid(r.Context(), q.Get("q"), criteria)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r.URL.Query())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	recipes, err := s.engine.Filter(criteria)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"filters": criteria,
		"count":   len(recipes),
		"recipes": recipes,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	prefix, limit, err := suggestParams(r.URL.Query())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	suggestions := []string{}
	if len([]rune(prefix)) >= minPrefixLen {
		suggestions = append(suggestions, s.engine.Suggest(prefix, limit)...)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"prefix":      prefix,
		"suggestions": suggestions,
	})
}

func (s *Server) handleSuggestIngredients(w http.ResponseWriter, r *http.Request) {
	prefix, limit, err := suggestParams(r.URL.Query())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	suggestions := []models.IngredientSuggestion{}
	if len([]rune(prefix)) >= minPrefixLen {
		suggestions = append(suggestions, s.engine.SuggestIngredients(prefix, limit)...)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"prefix":      prefix,
		"suggestions": suggestions,
	})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		s.respondErr(w, fmt.Errorf("reindexing disabled: %w", models.ErrUnavailable))
		return
	}
	dirs := s.config.Data.RecipeDirs
	s.logger.Info("Reindex requested", zap.Strings("dirs", dirs))
	snap, skipped, err := s.indexer.ReindexDirs(r.Context(), dirs)
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	failed := make([]map[string]string, 0, len(skipped))
	for _, le := range skipped {
		failed = append(failed, map[string]string{"file": le.File, "error": le.Err.Error()})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "reindexed",
		"build_id": snap.BuildID,
		"recipes":  snap.Store.Len(),
		"semantic": snap.Semantic != nil,
		"skipped":  failed,
	})
}

// parseCriteria reads the facet filter query parameters.
func parseCriteria(q url.Values) (*models.FilterCriteria, error) {
	c := &models.FilterCriteria{
		Country:            strings.TrimSpace(q.Get("country")),
		Category:           strings.TrimSpace(q.Get("category")),
		Difficulty:         strings.TrimSpace(q.Get("difficulty")),
		MealType:           strings.TrimSpace(q.Get("meal_type")),
		CookingMethod:      strings.TrimSpace(q.Get("cooking_method")),
		Ingredients:        utils.SplitList(q.Get("ingredients")),
		ExcludeIngredients: utils.SplitList(q.Get("exclude_ingredients")),
	}
	if raw := q.Get("max_time"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: max_time must be an integer", models.ErrInvalidInput)
		}
		c.MaxTime = &v
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, nil
	}
	return c, nil
}

func suggestParams(q url.Values) (string, int, error) {
	limit, err := intParam(q, "limit", defaultSuggestLimit)
	if err != nil {
		return "", 0, err
	}
	return strings.TrimSpace(q.Get("prefix")), limit, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", models.ErrInvalidInput, name)
	}
	return v, nil
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
