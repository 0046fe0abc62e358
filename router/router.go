// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/danielhkuo/movienight/auth"
	"github.com/danielhkuo/movienight/catalog"
	"github.com/danielhkuo/movienight/cliparse"
	"github.com/danielhkuo/movienight/events"
	"github.com/danielhkuo/movienight/handlers"
	"github.com/danielhkuo/movienight/invites"
	"github.com/danielhkuo/movienight/ledger"
	"github.com/danielhkuo/movienight/metrics"
	"github.com/danielhkuo/movienight/middleware"
	"github.com/danielhkuo/movienight/nominations"
	"github.com/danielhkuo/movienight/sessions"
	"github.com/danielhkuo/movienight/store"
)

const requestTimeout = 30 * time.Second

// NewRouter wires the services over db and mounts every route. pub and m may
// be nil.
func NewRouter(db *sql.DB, cfg cliparse.Config, pub events.Publisher, m *metrics.Metrics) http.Handler {
	st := store.New(db)
	tokens := auth.NewTokenIssuer(cfg.VoterTokenSecret, cfg.VoterTokenTTL)
	media := NewMedia(cfg, m)

	l := ledger.New(st, pub, m)
	inviteService := invites.NewService(st, tokens, pub, m)
	sessionService := sessions.NewService(st, l, pub, m)
	guard := nominations.NewGuard(st, media.Requester, cfg.ExternalTimeout, pub, m)

	inviteHandler := handlers.NewInviteHandler(inviteService, cfg)
	votingHandler := handlers.NewVotingHandler(l)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	movieHandler := handlers.NewMovieHandler(guard, media.Searcher)
	adminHandler := handlers.NewAdminHandler(sessionService, inviteService)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithLogging)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))
		r.Use(middleware.VoterIdentity(tokens))

		// Voter routes (public)
		r.Group(func(r chi.Router) {
			if cfg.RateLimitPerMinute > 0 {
				r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
			}

			r.Post("/join/{code}", inviteHandler.Join)

			r.Get("/search", movieHandler.Search)
			r.Get("/search/recent", movieHandler.Recent)

			r.Route("/sessions/{slug}", func(r chi.Router) {
				r.Get("/", sessionHandler.View)
				r.Patch("/me", sessionHandler.UpdateMe)
				r.Get("/standings", sessionHandler.Standings)

				r.Get("/me/codes", inviteHandler.MyCodes)
				r.Post("/me/codes", inviteHandler.MintCode)
				r.Patch("/me/codes/{code}", inviteHandler.SetCodeLabel)

				r.Post("/votes", votingHandler.CastVote)
				r.Delete("/votes/{movieID}", votingHandler.RetractVote)

				r.Post("/movies", movieHandler.Nominate)
				r.Post("/requests", movieHandler.Request)
				r.Delete("/movies/{movieID}", movieHandler.Remove)
			})
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.AdminSecret))

			r.Get("/sessions", adminHandler.ListSessions)
			r.Post("/sessions", adminHandler.CreateSession)
			r.Get("/sessions/{id}", adminHandler.GetSession)
			r.Patch("/sessions/{id}", adminHandler.UpdateSession)
			r.Delete("/sessions/{id}", adminHandler.DeleteSession)
			r.Post("/sessions/{id}/close", adminHandler.CloseSession)
			r.Post("/sessions/{id}/codes", adminHandler.GenerateCodes)
			r.Get("/sessions/{id}/tree", adminHandler.Tree)

			r.Post("/codes/{code}/revoke", adminHandler.RevokeCode)
			r.Post("/codes/{code}/reopen", adminHandler.ReopenCode)
			r.Delete("/codes/{code}", adminHandler.DeleteCode)

			r.Patch("/voters/{id}/slots", adminHandler.AdjustSlots)
			r.Delete("/voters/{id}", adminHandler.RemoveVoter)
		})
	})

	// Root endpoint
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("movienight API v1"))
	})

	return r
}

// Media holds the media services selected by the config. Requester is nil
// when no request service is configured.
type Media struct {
	Searcher  *catalog.Searcher
	Requester catalog.Requester
}

// NewMedia picks the mock library when MockMedia is set, otherwise Jellyfin
// and Jellyseerr for whichever of them has a URL.
func NewMedia(cfg cliparse.Config, m *metrics.Metrics) Media {
	media := Media{Searcher: &catalog.Searcher{Failures: m}}

	if cfg.MockMedia {
		mock := catalog.NewMockLibrary()
		media.Searcher.Library = mock.Shelf()
		media.Searcher.Catalog = mock
		media.Requester = mock
		slog.Info("Using mock media library")
		return media
	}

	if cfg.JellyfinURL != "" {
		media.Searcher.Library = catalog.NewJellyfinClient(cfg.JellyfinURL, cfg.JellyfinAPIKey, cfg.ExternalTimeout)
	}
	if cfg.JellyseerrURL != "" {
		seerr := catalog.NewJellyseerrClient(cfg.JellyseerrURL, cfg.JellyseerrAPIKey, cfg.ExternalTimeout)
		media.Searcher.Catalog = seerr
		media.Requester = seerr
	}
	if media.Searcher.Library == nil && media.Searcher.Catalog == nil {
		slog.Warn("No media services configured; search returns nothing")
	}
	return media
}
