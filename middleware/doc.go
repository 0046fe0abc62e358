// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

WithLogging logs method, path, status, duration and the chi request id of
every request:

	r.Use(chimw.RequestID)
	r.Use(middleware.WithLogging)

# CORS

CORS allows the configured frontend origins with credentials, so the voter
cookie travels on cross-origin calls. Allowed headers include
X-Voter-Token and X-Admin-Secret.

# Identity

VoterIdentity reads a voter token from the movienight_voter cookie, the
X-Voter-Token header or a bearer Authorization header. A valid token puts
the voter id in the request context; handlers read it with VoterID. An
invalid token is ignored and the request continues anonymously.

RequireAdmin guards admin routes with the X-Admin-Secret header, compared
in constant time.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.WriteError(w, err)

WriteError maps apperr kinds to statuses: validation 400, unauthorized
401, forbidden 403, not found 404, conflict 409, external failure 502.
Anything else is logged and returned as a generic 500.

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
*/
package middleware
