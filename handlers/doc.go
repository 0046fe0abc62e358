// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the movie night API.

# Handler Types

Each handler wraps one service and decodes, calls, and encodes:

  - InviteHandler: joining through an invite code and a voter's own codes
  - VotingHandler: casting and retracting votes
  - SessionHandler: the voter's view of a session and their display name
  - MovieHandler: nominations, movie requests, and media search
  - AdminHandler: session lifecycle, root codes, and the invite tree

Handlers never touch the database directly:

	inviteHandler := handlers.NewInviteHandler(inviteService, cfg)

# Voter Flow

A guest follows an invite link and gets a voter token back, both in the body
and as the movienight_voter cookie:

	POST /api/join/{code}                 → Join
	GET  /api/sessions/{slug}             → View
	POST /api/sessions/{slug}/votes       → CastVote
	POST /api/sessions/{slug}/movies      → Nominate
	POST /api/sessions/{slug}/me/codes    → MintCode

Routes under /api/sessions/{slug} other than the view need an identified
voter, read by middleware.VoterIdentity from the cookie, the X-Voter-Token
header, or a bearer token.

# Admin Flow

Routes under /api/admin require the X-Admin-Secret header:

	POST   /api/admin/sessions             → CreateSession (with root codes)
	POST   /api/admin/sessions/{id}/close  → CloseSession (records the winner)
	GET    /api/admin/sessions/{id}/tree   → Tree
	DELETE /api/admin/codes/{code}         → DeleteCode

Errors from the services are apperr values; middleware.WriteError maps
their kind to a status code.
*/
package handlers
