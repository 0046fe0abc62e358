// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the movie night server.

Movie night is an invite-only voting app for a group choosing a film. An
admin opens a session and hands out root invite codes; every guest who joins
can pass on a limited number of codes of their own, so the guest list grows
as a tree. Guests nominate films from the media library or the wider
catalog, spend a fixed budget of votes, and the session closes on a winner.

# Commands

	movienight [serve]        Run the HTTP server and the expiry sweeper
	movienight migrate        Apply database migrations and exit
	movienight codes --session friday --count 3 --label family

# Starting the Server

Configuration comes from flags, then a .env file, then the environment:

	DATABASE_URL=movienight.db ADMIN_SECRET=... VOTER_TOKEN_SECRET=... go run .

Or with flags:

	go run . serve -p 3318 -d "postgres://..." -t postgres --mock-media

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file or PostgreSQL connection string
  - ADMIN_SECRET (--admin-secret): value of the X-Admin-Secret header
  - VOTER_TOKEN_SECRET: HMAC key for voter tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - JELLYFIN_URL, JELLYSEERR_URL and their API keys, or MOCK_MEDIA
  - NATS_URL: publish domain events
  - SWEEP_SCHEDULE: how often expired sessions are closed

# Architecture

  - handlers: HTTP request handlers
  - router: chi routes and middleware stack
  - invites: codes, claims, and the invite tree
  - ledger: votes and tallies
  - nominations: the nomination guard and movie requests
  - sessions: session lifecycle, views, and the expiry sweeper
  - catalog: Jellyfin, Jellyseerr, and mock media clients
  - store: SQL access for both databases
  - db: connections and goose migrations
  - events, metrics: NATS events and Prometheus counters
  - auth, apperr, middleware, models, cliparse: shared plumbing

See package documentation for each component.
*/
package main
