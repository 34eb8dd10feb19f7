package main

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/justestif/spotify-mood-it/internal/auth"
	"github.com/justestif/spotify-mood-it/internal/config"
	"github.com/justestif/spotify-mood-it/internal/logging"
	"github.com/justestif/spotify-mood-it/internal/web"
	webfs "github.com/justestif/spotify-mood-it/web"
)

func cmdServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireSpotify(); err != nil {
				return err
			}

			table, err := a.centroids(ctx)
			if err != nil {
				return fmt.Errorf("loading mood centroids: %w", err)
			}

			oauth, err := auth.NewSpotifyAuthenticator(auth.Config{
				ClientID:     a.cfg.Spotify.ClientID,
				ClientSecret: a.cfg.Spotify.ClientSecret,
				RedirectURI:  a.cfg.Spotify.RedirectURI,
			})
			if err != nil {
				return err
			}

			var sessions web.SessionManager = web.NewSessionStore()
			if a.cfg.Server.SessionStore == config.SessionsPostgres {
				sessions = web.NewDBSessionStore(a.db.Sessions(), logging.Component("sessions"))
			}

			templatesFS, err := fs.Sub(webfs.TemplatesFS, "templates")
			if err != nil {
				return fmt.Errorf("creating templates filesystem: %w", err)
			}
			staticFS, err := fs.Sub(webfs.StaticFS, "static")
			if err != nil {
				return fmt.Errorf("creating static filesystem: %w", err)
			}

			templates, err := web.NewTemplates(templatesFS)
			if err != nil {
				return fmt.Errorf("loading templates: %w", err)
			}

			webLogger := logging.Component("web")
			server, err := web.NewServer(web.ServerConfig{
				Addr:            a.cfg.Server.Addr,
				CORSOrigins:     a.cfg.Server.CORSOrigins,
				RateLimit:       a.cfg.Server.RateLimit,
				RateLimitWindow: a.cfg.Server.RateLimitWindow,
				RequestTimeout:  a.cfg.Server.RequestTimeout,
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
				StaticFS:        staticFS,
				Handlers: web.HandlersConfig{
					Auth:             oauth,
					Sessions:         sessions,
					Templates:        templates,
					Moods:            a.moodService(table),
					DefaultThreshold: a.cfg.Classifier.Threshold,
					DefaultGroups:    a.cfg.Classifier.Groups,
					FrontendURL:      a.cfg.Server.FrontendURL,
					SecureCookies:    a.cfg.Server.SecureCookies,
					Catalogs:         web.SpotifyCatalog(oauth, logging.Component("spotify")),
					Logger:           webLogger,
				},
				Logger: webLogger,
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			if a.db != nil {
				go runMaintenance(ctx, a.db, logging.Component("maintenance"))
			}

			return server.Run(ctx)
		},
	}
}
