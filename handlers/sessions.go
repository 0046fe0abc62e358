// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/movienight/middleware"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/sessions"
)

// SessionHandler serves the voter-facing session pages.
type SessionHandler struct {
	sessions *sessions.Service
}

func NewSessionHandler(svc *sessions.Service) *SessionHandler {
	return &SessionHandler{sessions: svc}
}

// View handles GET /api/sessions/{slug}. Anonymous callers see the session
// without their own votes.
func (h *SessionHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.View(r.Context(), chi.URLParam(r, "slug"), middleware.VoterID(r.Context()))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, view)
}

// UpdateMe handles PATCH /api/sessions/{slug}/me
func (h *SessionHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}
	var req models.UpdateDisplayNameRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	voter, err := h.sessions.UpdateDisplayName(r.Context(), chi.URLParam(r, "slug"), voterID, req.DisplayName)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, voter)
}

// Standings handles GET /api/sessions/{slug}/standings
func (h *SessionHandler) Standings(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.Standings(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}
