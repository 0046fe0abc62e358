// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/movienight/ledger"
	"github.com/danielhkuo/movienight/middleware"
	"github.com/danielhkuo/movienight/models"
)

type VotingHandler struct {
	ledger *ledger.Ledger
}

func NewVotingHandler(l *ledger.Ledger) *VotingHandler {
	return &VotingHandler{ledger: l}
}

// CastVote handles POST /api/sessions/{slug}/votes
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}
	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	res, err := h.ledger.CastVote(r.Context(), chi.URLParam(r, "slug"), voterID, req.MovieID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, res)
}

// RetractVote handles DELETE /api/sessions/{slug}/votes/{movieID}
func (h *VotingHandler) RetractVote(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}

	res, err := h.ledger.RetractVote(r.Context(), chi.URLParam(r, "slug"), voterID, chi.URLParam(r, "movieID"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}
