package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/mise/internal/cli"
	"github.com/hyperjump/mise/internal/models"
)

func newStatsCmd(g *globalFlags) *cobra.Command {
	var (
		format    string
		serverURL string
	)
	cmd := &cobra.Command{
		Use:     "stats",
		Aliases: []string{"status"},
		Short:   "Show index statistics",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := cli.ParseFormat(format)
			if err != nil {
				return err
			}
			var stats models.Stats
			if serverURL != "" {
				if err := getJSON(cmd.Context(), serverURL+"/api/index/stats", &stats); err != nil {
					return err
				}
			} else {
				c, err := setup(g, false)
				if err != nil {
					return err
				}
				defer c.Close()
				if err := c.warmup(cmd.Context()); err != nil {
					return err
				}
				stats = c.engine.Stats()
			}
			return cli.WriteStats(cmd.OutOrStdout(), stats, outFormat)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.Flags().StringVar(&serverURL, "server", "", "read statistics from a running server")
	return cmd
}
