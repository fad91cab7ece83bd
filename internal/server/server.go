// Package server provides the HTTP API for Mise.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/mise/internal/config"
	"github.com/hyperjump/mise/internal/indexer"
	"github.com/hyperjump/mise/internal/metrics"
	"github.com/hyperjump/mise/internal/search"
)

// Server is the HTTP server for the Mise API.
type Server struct {
	engine  *search.Engine
	indexer *indexer.Indexer
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. idx may be nil, in which case
// the reindex endpoint reports the index as unavailable.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		indexer: idx,
		config:  cfg,
		logger:  logger,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	metrics.Register()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/index/stats", s.handleIndexStats)
		r.Get("/facets", s.handleFacets)
		r.Get("/filter", s.handleFilter)

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", s.handleListRecipes)
			r.Get("/{id}", s.handleGetRecipe)
			r.Get("/{id}/facets", s.handleRecipeFacets)
			r.Get("/{id}/similar", s.handleSimilar)
		})

		r.Route("/search", func(r chi.Router) {
			r.Get("/text", s.handleSearchText)
			r.Get("/semantic", s.handleSearchSemantic)
			r.Get("/hybrid", s.handleSearchHybrid)
		})

		r.Get("/suggest", s.handleSuggest)
		r.Get("/suggest/ingredients", s.handleSuggestIngredients)

		r.Post("/admin/reindex", s.handleReindex)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops. After Stop it returns
// http.ErrServerClosed, also when Stop ran first.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server. It may be called before or concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
