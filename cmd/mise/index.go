package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(g *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "index [recipe-dir...]",
		Short: "Build indexes from recipe files and save the snapshot",
		Long: `Load every recipe in the given directories (default: data.recipe_dirs), build the
lexical, facet and semantic indexes and save them to storage.snapshot_dir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := setup(g, false)
			if err != nil {
				return err
			}
			defer c.Close()

			dirs := c.cfg.Data.RecipeDirs
			if len(args) > 0 {
				dirs = args
			}
			dir := c.cfg.Storage.SnapshotDir
			if output != "" {
				dir = output
			}

			snap, skipped, err := c.indexer.ReindexDirs(cmd.Context(), dirs)
			if err != nil {
				return fmt.Errorf("indexing failed: %w", err)
			}
			if err := c.indexer.Save(cmd.Context(), dir); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %d recipe(s) into %s (build %s)\n", snap.Store.Len(), dir, snap.BuildID)
			if snap.Semantic == nil {
				fmt.Fprintln(out, "Semantic index unavailable; hybrid search will use lexical results only")
			}
			for _, le := range skipped {
				fmt.Fprintf(out, "Skipped %s: %v\n", le.File, le.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot directory (default: storage.snapshot_dir)")
	return cmd
}
