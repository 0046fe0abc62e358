// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/movienight/catalog"
	"github.com/danielhkuo/movienight/middleware"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/nominations"
)

type MovieHandler struct {
	guard    *nominations.Guard
	searcher *catalog.Searcher
}

func NewMovieHandler(guard *nominations.Guard, searcher *catalog.Searcher) *MovieHandler {
	return &MovieHandler{guard: guard, searcher: searcher}
}

// Nominate handles POST /api/sessions/{slug}/movies
func (h *MovieHandler) Nominate(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}
	var req models.NominateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	movie, err := h.guard.Nominate(r.Context(), chi.URLParam(r, "slug"), voterID, nominations.CandidateFromRequest(req))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, movie)
}

// Request handles POST /api/sessions/{slug}/requests
func (h *MovieHandler) Request(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}
	var req models.NominateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	movie, err := h.guard.RequestAndNominate(r.Context(), chi.URLParam(r, "slug"), voterID, nominations.CandidateFromRequest(req))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, movie)
}

// Remove handles DELETE /api/sessions/{slug}/movies/{movieID}
func (h *MovieHandler) Remove(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}
	if err := h.guard.RemoveNomination(r.Context(), chi.URLParam(r, "slug"), voterID, chi.URLParam(r, "movieID")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Nomination removed"})
}

// Search handles GET /api/search?q=
func (h *MovieHandler) Search(w http.ResponseWriter, r *http.Request) {
	res, err := h.searcher.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, res)
}

// Recent handles GET /api/search/recent
func (h *MovieHandler) Recent(w http.ResponseWriter, r *http.Request) {
	items, err := h.searcher.Recent(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, map[string][]catalog.Item{"items": items})
}
