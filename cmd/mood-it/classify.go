package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justestif/spotify-mood-it/internal/auth"
	"github.com/justestif/spotify-mood-it/internal/logging"
	"github.com/justestif/spotify-mood-it/internal/moodtracks"
)

func cmdClassify() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print liked tracks matching a mood",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			moodName, _ := cmd.Flags().GetString("mood")
			createPlaylist, _ := cmd.Flags().GetBool("playlist")
			if strings.TrimSpace(moodName) == "" {
				return errors.New("--mood is required")
			}

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireSpotify(); err != nil {
				return err
			}

			threshold := a.cfg.Classifier.Threshold
			if cmd.Flags().Changed("threshold") {
				threshold, _ = cmd.Flags().GetFloat64("threshold")
			}

			table, err := a.centroids(ctx)
			if err != nil {
				return fmt.Errorf("loading mood centroids: %w", err)
			}

			authenticator, err := auth.New(auth.Config{
				ClientID:       a.cfg.Spotify.ClientID,
				ClientSecret:   a.cfg.Spotify.ClientSecret,
				RedirectURI:    a.cfg.Spotify.RedirectURI,
				TokenCachePath: a.cfg.Spotify.TokenCachePath,
			}, logging.Component("auth"))
			if err != nil {
				return err
			}

			client, err := authenticator.Authenticate(ctx)
			if err != nil {
				return fmt.Errorf("authenticating: %w", err)
			}

			svc := a.moodService(table)
			matched, err := svc.TracksForMood(ctx, client, moodName, threshold)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d tracks match %q at threshold %.2f\n", len(matched), moodName, threshold)
			uris := make([]string, 0, len(matched))
			for _, t := range matched {
				fmt.Fprintf(out, "  %.3f  %s - %s\n", t.Similarity, t.Name, t.Artist)
				uris = append(uris, t.URI)
			}

			if !createPlaylist {
				return nil
			}
			if len(uris) == 0 {
				fmt.Fprintln(out, "No tracks matched; playlist not created")
				return nil
			}

			playlist, err := svc.CreatePlaylist(ctx, client, moodName, uris)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created playlist %q: %s\n", moodtracks.PlaylistName(moodName), playlist.URL)
			return nil
		},
	}

	cmd.Flags().String("mood", "", "mood to match (see `mood-it moods`)")
	cmd.Flags().Float64("threshold", 0, "minimum cosine similarity in [-1, 1] (default from config)")
	cmd.Flags().Bool("playlist", false, "create a playlist from the matches")
	return cmd
}
