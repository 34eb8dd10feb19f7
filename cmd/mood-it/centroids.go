package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justestif/spotify-mood-it/internal/centroids"
	"github.com/justestif/spotify-mood-it/internal/logging"
)

func cmdCentroids() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "centroids",
		Short: "Manage the mood centroid table",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Rebuild and persist the mood centroid table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			table, err := centroids.Rebuild(ctx, a.store, a.lexicon, a.embedder, logging.Component("centroids"))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Built %d mood centroids with %s (%d dimensions)\n",
				len(table.Vectors), table.Model, table.Dimensions)
			return nil
		},
	})
	return cmd
}
