// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the movie night API.

# Route Registration

NewRouter builds the services over one database and returns a chi router
with every endpoint mounted:

	h := router.NewRouter(db, cfg, publisher, metrics)

Every request passes through chi's RequestID, RealIP and Recoverer, then
middleware.WithLogging and CORS. Routes under /api also get a request
timeout and middleware.VoterIdentity.

# Endpoints

Operational:

	GET /health  - Liveness
	GET /metrics - Prometheus

Voters (rate limited per IP):

	POST   /api/join/{code}                     - Claim an invite
	GET    /api/search?q=                       - Library and catalog search
	GET    /api/search/recent                   - Newest library films
	GET    /api/sessions/{slug}                 - Session view
	PATCH  /api/sessions/{slug}/me              - Set display name
	GET    /api/sessions/{slug}/standings       - Tally and winner
	GET    /api/sessions/{slug}/me/codes        - Own invite codes
	POST   /api/sessions/{slug}/me/codes        - Mint a code
	PATCH  /api/sessions/{slug}/me/codes/{code} - Relabel a code
	POST   /api/sessions/{slug}/votes           - Cast a vote
	DELETE /api/sessions/{slug}/votes/{movieID} - Retract a vote
	POST   /api/sessions/{slug}/movies          - Nominate
	POST   /api/sessions/{slug}/requests        - Request and nominate
	DELETE /api/sessions/{slug}/movies/{movieID} - Remove own nomination

Admin (requires X-Admin-Secret):

	GET|POST            /api/admin/sessions
	GET|PATCH|DELETE    /api/admin/sessions/{id}
	POST                /api/admin/sessions/{id}/close
	POST                /api/admin/sessions/{id}/codes
	GET                 /api/admin/sessions/{id}/tree
	POST                /api/admin/codes/{code}/revoke
	POST                /api/admin/codes/{code}/reopen
	DELETE              /api/admin/codes/{code}
	PATCH               /api/admin/voters/{id}/slots
	DELETE              /api/admin/voters/{id}

# Media Services

NewMedia chooses what backs search and requests: the mock library when
MockMedia is set, otherwise Jellyfin and Jellyseerr for whichever has a URL.
*/
package router
