// Command mood-it classifies a Spotify library into moods and builds playlists
// from the matches.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mood-it",
		Short:         "Sort your liked songs into moods",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", "", "path to a YAML config file (default: $CONFIG_PATH or ./config.yaml)")

	cmd.AddCommand(
		cmdServe(),
		cmdCentroids(),
		cmdMoods(),
		cmdClassify(),
	)
	return cmd
}
