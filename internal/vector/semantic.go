package vector

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/mise/internal/embedding"
	"github.com/hyperjump/mise/internal/models"
)

// Defaults for semantic index builds.
const (
	DefaultBatchSize = 16
	// MaxTextIngredients bounds how many ingredient names go into a recipe's text.
	MaxTextIngredients = 8
)

// SemanticIndex embeds recipes with an injected embedder and answers
// nearest-neighbour queries over the resulting vectors.
type SemanticIndex struct {
	embedder embedding.Embedder
	flat     *FlatIndex
	minScore float64
}

type buildConfig struct {
	batchSize int
	workers   int
	minScore  float64
	logger    *zap.Logger
}

// Option configures Build and New.
type Option func(*buildConfig)

// WithBatchSize sets how many texts are embedded per embedder call.
func WithBatchSize(n int) Option {
	return func(c *buildConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithWorkers sets how many batches are embedded concurrently.
func WithWorkers(n int) Option {
	return func(c *buildConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMinScore drops hits whose similarity score is below s. Zero disables the threshold.
func WithMinScore(s float64) Option {
	return func(c *buildConfig) {
		if s >= 0 {
			c.minScore = s
		}
	}
}

// WithLogger sets the logger used during builds.
func WithLogger(l *zap.Logger) Option {
	return func(c *buildConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newBuildConfig(opts []Option) *buildConfig {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	c := &buildConfig{batchSize: DefaultBatchSize, workers: workers, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New wraps an existing flat index, e.g. one loaded from a snapshot.
// The embedder must produce vectors of the index's dimension and model.
func New(embedder embedding.Embedder, flat *FlatIndex, opts ...Option) (*SemanticIndex, error) {
	if embedder.Dimensions() != flat.Dimension() {
		return nil, fmt.Errorf("embedder dimension %d does not match index dimension %d", embedder.Dimensions(), flat.Dimension())
	}
	if embedder.Model() != flat.Model() {
		return nil, fmt.Errorf("embedder model %q does not match index model %q", embedder.Model(), flat.Model())
	}
	c := newBuildConfig(opts)
	return &SemanticIndex{embedder: embedder, flat: flat, minScore: c.minScore}, nil
}

// Build embeds the representative text of every recipe in batches on a worker pool.
// Cancelling ctx aborts the build between batches.
func Build(ctx context.Context, embedder embedding.Embedder, recipes []*models.Recipe, opts ...Option) (*SemanticIndex, error) {
	c := newBuildConfig(opts)
	flat, err := NewFlatIndex(embedder.Dimensions(), embedder.Model())
	if err != nil {
		return nil, err
	}
	start := time.Now()

	type batch struct {
		ids   []string
		texts []string
		vecs  [][]float32
	}
	var batches []*batch
	for i := 0; i < len(recipes); i += c.batchSize {
		end := i + c.batchSize
		if end > len(recipes) {
			end = len(recipes)
		}
		b := &batch{}
		for _, r := range recipes[i:end] {
			b.ids = append(b.ids, r.ID)
			b.texts = append(b.texts, RecipeText(r))
		}
		batches = append(batches, b)
	}

	pool, err := ants.NewPool(c.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		if failed() {
			break
		}
		b := b
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			vecs, err := embedder.EmbedBatch(ctx, b.texts)
			if err != nil {
				fail(fmt.Errorf("embed batch: %w", err))
				return
			}
			if len(vecs) != len(b.texts) {
				fail(fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(b.texts)))
				return
			}
			b.vecs = vecs
		}); err != nil {
			wg.Done()
			fail(fmt.Errorf("submit embedding batch: %w", err))
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	for _, b := range batches {
		if err := flat.Add(b.ids, b.vecs); err != nil {
			return nil, err
		}
	}

	c.logger.Info("Semantic index built",
		zap.Int("recipes", flat.Size()),
		zap.Int("batches", len(batches)),
		zap.Int("dimensions", flat.Dimension()),
		zap.String("model", flat.Model()),
		zap.Duration("duration", time.Since(start)))

	return &SemanticIndex{embedder: embedder, flat: flat, minScore: c.minScore}, nil
}

// RecipeText builds the text embedded for a recipe: the title twice, the description,
// up to MaxTextIngredients ingredient names, tags, category and country.
func RecipeText(r *models.Recipe) string {
	var parts []string
	if r.Title != "" {
		parts = append(parts, r.Title, r.Title)
	}
	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	names := r.IngredientNames()
	if len(names) > MaxTextIngredients {
		names = names[:MaxTextIngredients]
	}
	if s := joinNonEmpty(names); s != "" {
		parts = append(parts, s)
	}
	if s := joinNonEmpty(r.Tags); s != "" {
		parts = append(parts, s)
	}
	for _, v := range []string{r.Category, r.Country} {
		if v != "" && v != models.Unknown {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ". ")
}

func joinNonEmpty(items []string) string {
	var kept []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ", ")
}

// Search embeds query and returns the k nearest recipes, scored 1/(1+d) and ranked from 1.
func (s *SemanticIndex) Search(ctx context.Context, query string, k int) ([]models.SemanticHit, error) {
	if err := models.ValidateQueryText(query); err != nil {
		return nil, err
	}
	if s.flat.Size() == 0 || k <= 0 {
		return []models.SemanticHit{}, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	neighbors, err := s.flat.Search(vec, k)
	if err != nil {
		return nil, err
	}
	return s.hits(neighbors, "", k), nil
}

// FindSimilar returns up to k recipes nearest to the stored vector of id, excluding id itself.
func (s *SemanticIndex) FindSimilar(ctx context.Context, id string, k int) ([]models.SemanticHit, error) {
	vec, ok := s.flat.Vector(id)
	if !ok {
		return nil, fmt.Errorf("recipe %q: %w", id, models.ErrNotFound)
	}
	if k <= 0 {
		return []models.SemanticHit{}, nil
	}
	if n := s.flat.Size(); k > n {
		k = n
	}
	neighbors, err := s.flat.Search(vec, k+1)
	if err != nil {
		return nil, err
	}
	return s.hits(neighbors, id, k), nil
}

func (s *SemanticIndex) hits(neighbors []Neighbor, exclude string, k int) []models.SemanticHit {
	out := make([]models.SemanticHit, 0, len(neighbors))
	for _, n := range neighbors {
		if n.ID == exclude {
			continue
		}
		score := 1.0 / (1.0 + n.Distance)
		if score < s.minScore {
			continue
		}
		out = append(out, models.SemanticHit{ID: n.ID, Score: score, Distance: n.Distance, Rank: len(out) + 1})
		if len(out) == k {
			break
		}
	}
	return out
}

// Flat returns the underlying vector index.
func (s *SemanticIndex) Flat() *FlatIndex {
	return s.flat
}

// Size returns the number of embedded recipes.
func (s *SemanticIndex) Size() int {
	return s.flat.Size()
}

// Stats describes the index.
func (s *SemanticIndex) Stats() models.SemanticStats {
	return models.SemanticStats{Size: s.flat.Size(), Dimension: s.flat.Dimension(), Model: s.flat.Model()}
}
