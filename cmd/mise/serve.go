package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/mise/internal/server"
	"github.com/hyperjump/mise/internal/watcher"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		Short:   "Start the HTTP API",
		Long: `Load the persisted snapshot (or build indexes from the recipe directories),
start the HTTP API and, when data.watch is enabled, reindex whenever a recipe file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(g, true)
			if err != nil {
				return err
			}
			defer c.Close()
			if cmd.Flags().Changed("host") {
				c.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				c.cfg.Server.Port = port
			}
			return runServe(cmd.Context(), c)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "override server.host")
	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	return cmd
}

func runServe(parent context.Context, c *components) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.warmup(ctx); err != nil {
		return err
	}

	if c.cfg.Data.Watch {
		w := watcher.NewWatcher(
			c.cfg.Data.RecipeDirs,
			func(changed []string) {
				c.logger.Info("Recipe files changed, reindexing", zap.Int("files", len(changed)))
				if _, _, err := c.indexer.ReindexDirs(ctx, c.cfg.Data.RecipeDirs); err != nil {
					c.logger.Error("reindex after change failed", zap.Error(err))
				}
			},
			watcher.WithLogger(c.logger),
			watcher.WithDebounce(time.Duration(c.cfg.Data.WatchDebounceMs)*time.Millisecond),
		)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := server.NewServer(c.engine, c.indexer, c.cfg, c.logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
