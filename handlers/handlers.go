// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/middleware"
)

// requireVoter returns the caller's voter id, or writes 401 and reports false.
func requireVoter(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.VoterID(r.Context())
	if id == "" {
		middleware.WriteError(w, apperr.Unauthorized("Join this movie night first"))
		return "", false
	}
	return id, true
}
