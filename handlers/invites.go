// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/movienight/cliparse"
	"github.com/danielhkuo/movienight/invites"
	"github.com/danielhkuo/movienight/middleware"
	"github.com/danielhkuo/movienight/models"
)

type InviteHandler struct {
	invites *invites.Service
	cfg     cliparse.Config
}

func NewInviteHandler(svc *invites.Service, cfg cliparse.Config) *InviteHandler {
	return &InviteHandler{invites: svc, cfg: cfg}
}

// Join handles POST /api/join/{code}
func (h *InviteHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req models.JoinRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	res, err := h.invites.Claim(r.Context(), invites.ClaimRequest{
		Code:           chi.URLParam(r, "code"),
		Fingerprint:    req.Fingerprint,
		CurrentVoterID: middleware.VoterID(r.Context()),
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.VoterCookie,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.cfg.VoterTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	status := http.StatusCreated
	if res.AlreadyJoined {
		status = http.StatusOK
	}
	middleware.JSONResponse(w, status, models.JoinResponse{
		Voter:         res.Voter,
		Session:       res.Session,
		Token:         res.Token,
		AlreadyJoined: res.AlreadyJoined,
	})
}

// MyCodes handles GET /api/sessions/{slug}/me/codes
func (h *InviteHandler) MyCodes(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}
	codes, err := h.invites.ListVoterCodes(r.Context(), chi.URLParam(r, "slug"), voterID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, codes)
}

// MintCode handles POST /api/sessions/{slug}/me/codes
func (h *InviteHandler) MintCode(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}
	var req models.MintCodeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	code, err := h.invites.MintVoterCode(r.Context(), chi.URLParam(r, "slug"), voterID, req.Label)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, code)
}

// SetCodeLabel handles PATCH /api/sessions/{slug}/me/codes/{code}
func (h *InviteHandler) SetCodeLabel(w http.ResponseWriter, r *http.Request) {
	voterID, ok := requireVoter(w, r)
	if !ok {
		return
	}
	var req models.SetLabelRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	code, err := h.invites.SetCodeLabel(r.Context(), chi.URLParam(r, "slug"), voterID, chi.URLParam(r, "code"), req.Label)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, code)
}
