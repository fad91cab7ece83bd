// Package main is the Mise CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/mise/internal/config"
	"github.com/hyperjump/mise/internal/embedding"
	"github.com/hyperjump/mise/internal/indexer"
	"github.com/hyperjump/mise/internal/keyword"
	"github.com/hyperjump/mise/internal/search"
	"github.com/hyperjump/mise/internal/snapshot"
	"github.com/hyperjump/mise/pkg/utils"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

const defaultConfigPath = "/usr/local/etc/mise/config.yaml"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "mise",
		Short: "Hybrid recipe search",
		Long: `mise indexes a collection of JSON recipes and answers lexical, semantic,
hybrid and faceted queries from the command line or over HTTP.

Getting Started:
  1. Create config:  mise config init ./config.yaml
  2. Build indexes:  mise index --config ./config.yaml
  3. Query:          mise search --config ./config.yaml garlic pasta
  4. Serve the API:  mise serve --config ./config.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(g),
		newIndexCmd(g),
		newSearchCmd(g),
		newSimilarCmd(g),
		newFilterCmd(g),
		newStatsCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory; when the default file does not exist either,
// built-in defaults are used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// components is the wired search stack.
type components struct {
	cfg      *config.Config
	logger   *zap.Logger
	embedder embedding.Embedder
	engine   *search.Engine
	indexer  *indexer.Indexer
}

func (c *components) Close() {
	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			c.logger.Warn("embedder close failed", zap.Error(err))
		}
	}
	_ = c.logger.Sync()
}

// setup loads the config, creates the logger and wires the search stack.
func setup(g *globalFlags, autoSave bool) (*components, error) {
	cfg, resolved, err := loadConfig(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || g.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return newComponents(cfg, logger, autoSave)
}

func newComponents(cfg *config.Config, logger *zap.Logger, autoSave bool) (*components, error) {
	lemmatizer, err := keyword.NewLemmatizer(cfg.Lexical.Lemmatizer)
	if err != nil {
		return nil, err
	}
	analyzer := keyword.NewAnalyzer(
		keyword.WithLemmatizer(lemmatizer),
		keyword.WithStopWords(cfg.Lexical.ExtraStopWords...),
	)

	c := &components{cfg: cfg, logger: logger}
	emb, err := embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		ModelPath:  cfg.Embedding.ModelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Logger:     logger,
	})
	if err != nil {
		logger.Warn("Embedding provider unavailable, semantic search disabled",
			zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
	} else {
		c.embedder = emb
	}

	c.engine = search.NewEngine(&cfg.Search, search.WithLogger(logger))
	opts := []indexer.IndexerOption{indexer.WithLogger(logger)}
	if autoSave && cfg.Storage.SaveOnBuild && cfg.Storage.SnapshotDir != "" {
		opts = append(opts, indexer.WithAutoSave(cfg.Storage.SnapshotDir))
	}
	c.indexer = indexer.NewIndexer(c.engine, c.embedder, analyzer, &cfg.Semantic, opts...)
	return c, nil
}

// warmup installs the persisted snapshot when one is configured and readable, and
// otherwise builds indexes from the recipe directories.
func (c *components) warmup(ctx context.Context) error {
	dir := c.cfg.Storage.SnapshotDir
	if c.cfg.Storage.LoadSnapshot && dir != "" && snapshot.Exists(dir) {
		snap, err := c.indexer.Load(ctx, dir)
		if err == nil {
			c.logger.Info("Snapshot loaded",
				zap.String("dir", dir),
				zap.String("build_id", snap.BuildID),
				zap.Int("recipes", snap.Store.Len()))
			return nil
		}
		c.logger.Warn("Snapshot unusable, rebuilding from recipes", zap.String("dir", dir), zap.Error(err))
	}
	_, skipped, err := c.indexer.ReindexDirs(ctx, c.cfg.Data.RecipeDirs)
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		c.logger.Warn("Some recipe files were skipped", zap.Int("skipped", len(skipped)))
	}
	return nil
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
