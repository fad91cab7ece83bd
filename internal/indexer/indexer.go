// Package indexer builds index snapshots from a recipe collection, installs them in the
// search engine and persists them.
package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/mise/internal/config"
	"github.com/hyperjump/mise/internal/embedding"
	"github.com/hyperjump/mise/internal/facet"
	"github.com/hyperjump/mise/internal/keyword"
	"github.com/hyperjump/mise/internal/loader"
	"github.com/hyperjump/mise/internal/metrics"
	"github.com/hyperjump/mise/internal/models"
	"github.com/hyperjump/mise/internal/search"
	"github.com/hyperjump/mise/internal/snapshot"
	"github.com/hyperjump/mise/internal/store"
	"github.com/hyperjump/mise/internal/vector"
)

// Indexer builds snapshots and swaps them into the engine. Reindex, Save and Load are
// serialized; queries keep running against the installed snapshot throughout.
type Indexer struct {
	engine      *search.Engine
	embedder    embedding.Embedder
	analyzer    *keyword.Analyzer
	config      *config.SemanticConfig
	snapshotDir string
	logger      *zap.Logger

	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build and persistence events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithAutoSave saves every snapshot installed by Reindex to dir.
func WithAutoSave(dir string) IndexerOption {
	return func(idx *Indexer) { idx.snapshotDir = dir }
}

// NewIndexer creates an indexer feeding engine. embedder may be nil, in which case snapshots
// are built without a semantic index. A nil analyzer selects keyword.NewAnalyzer().
func NewIndexer(
	engine *search.Engine,
	embedder embedding.Embedder,
	analyzer *keyword.Analyzer,
	cfg *config.SemanticConfig,
	opts ...IndexerOption,
) *Indexer {
	if analyzer == nil {
		analyzer = keyword.NewAnalyzer()
	}
	if cfg == nil {
		cfg = &config.Default().Semantic
	}
	idx := &Indexer{
		engine:   engine,
		embedder: embedder,
		analyzer: analyzer,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build validates recipes and builds the lexical, facet and semantic indexes concurrently.
// A semantic build failure is logged and the snapshot is returned without a semantic index;
// cancellation of ctx and invalid recipes fail the whole build.
func (idx *Indexer) Build(ctx context.Context, recipes []*models.Recipe) (*search.Snapshot, error) {
	start := time.Now()
	prepared := make([]*models.Recipe, 0, len(recipes))
	for _, r := range recipes {
		p := prepareRecipe(r)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		prepared = append(prepared, p)
	}
	st, err := store.New(prepared)
	if err != nil {
		return nil, err
	}
	all := st.All()

	snap := &search.Snapshot{
		Store:   st,
		BuildID: uuid.New().String(),
		BuiltAt: time.Now().UTC(),
	}

	var semanticErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Lexical = keyword.Build(idx.analyzer, all)
		return nil
	})
	g.Go(func() error {
		snap.Facets = facet.Build(all)
		return nil
	})
	if idx.embedder != nil {
		g.Go(func() error {
			sem, err := vector.Build(gctx, idx.embedder, all,
				vector.WithBatchSize(idx.config.BatchSize),
				vector.WithWorkers(idx.config.Workers),
				vector.WithMinScore(idx.config.MinScore),
				vector.WithLogger(idx.logger),
			)
			if err != nil {
				semanticErr = err
				return nil
			}
			snap.Semantic = sem
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if semanticErr != nil {
		idx.logger.Error("Semantic index build failed, continuing without semantic search",
			zap.Error(semanticErr))
	}

	idx.logger.Info("Index snapshot built",
		zap.String("build_id", snap.BuildID),
		zap.Int("recipes", st.Len()),
		zap.Int("terms", snap.Lexical.Stats().TotalTerms),
		zap.Bool("semantic", snap.Semantic != nil),
		zap.Duration("duration", time.Since(start)))
	return snap, nil
}

// Reindex builds a snapshot from recipes and installs it atomically. On error the engine
// keeps serving its current snapshot.
func (idx *Indexer) Reindex(ctx context.Context, recipes []*models.Recipe) (snap *search.Snapshot, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.ReindexTotal.WithLabelValues(metrics.Status(err)).Inc()
		metrics.ReindexDuration.Observe(time.Since(start).Seconds())
	}()

	snap, err = idx.Build(ctx, recipes)
	if err != nil {
		return nil, fmt.Errorf("reindex: %w", err)
	}
	idx.engine.Swap(snap)

	if idx.snapshotDir != "" {
		if err := snapshot.Save(ctx, idx.snapshotDir, snap); err != nil {
			idx.logger.Error("Failed to save snapshot", zap.String("dir", idx.snapshotDir), zap.Error(err))
		}
	}
	return snap, nil
}

// ReindexDirs loads every recipe file in dirs and reindexes the collection. Files that
// could not be loaded are returned alongside the installed snapshot.
func (idx *Indexer) ReindexDirs(ctx context.Context, dirs []string) (*search.Snapshot, []loader.LoadError, error) {
	recipes, skipped, err := loader.LoadDirs(dirs, idx.logger)
	if err != nil {
		return nil, nil, err
	}
	snap, err := idx.Reindex(ctx, recipes)
	if err != nil {
		return nil, skipped, err
	}
	return snap, skipped, nil
}

// Save writes the installed snapshot to dir.
func (idx *Indexer) Save(ctx context.Context, dir string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	snap := idx.engine.Snapshot()
	if err := snapshot.Save(ctx, dir, snap); err != nil {
		return err
	}
	idx.logger.Info("Snapshot saved", zap.String("dir", dir), zap.String("build_id", snap.BuildID))
	return nil
}

// Load reads the snapshot at dir and installs it. On error the engine keeps serving its
// current snapshot.
func (idx *Indexer) Load(ctx context.Context, dir string) (*search.Snapshot, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	snap, err := snapshot.Load(ctx, dir, snapshot.LoadOptions{
		Analyzer: idx.analyzer,
		Embedder: idx.embedder,
		MinScore: idx.config.MinScore,
		Logger:   idx.logger,
	})
	if err != nil {
		return nil, err
	}
	idx.engine.Swap(snap)
	return snap, nil
}
