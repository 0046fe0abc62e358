// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danielhkuo/movienight/invites"
	"github.com/danielhkuo/movienight/middleware"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/sessions"
)

// AdminHandler serves the routes behind RequireAdmin.
type AdminHandler struct {
	sessions *sessions.Service
	invites  *invites.Service
}

func NewAdminHandler(s *sessions.Service, i *invites.Service) *AdminHandler {
	return &AdminHandler{sessions: s, invites: i}
}

// ListSessions handles GET /api/admin/sessions
func (h *AdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.sessions.List(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, map[string][]models.SessionSummary{"sessions": list})
}

// CreateSession handles POST /api/admin/sessions
func (h *AdminHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	res, err := h.sessions.Create(r.Context(), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, res)
}

// GetSession handles GET /api/admin/sessions/{id}
func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	detail, err := h.sessions.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, detail)
}

// UpdateSession handles PATCH /api/admin/sessions/{id}
func (h *AdminHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	sess, err := h.sessions.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /api/admin/sessions/{id}
func (h *AdminHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Session deleted"})
}

// CloseSession handles POST /api/admin/sessions/{id}/close
func (h *AdminHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	var req models.CloseSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	sess, err := h.sessions.Close(r.Context(), chi.URLParam(r, "id"), req.WinnerMovieID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, sess)
}

// GenerateCodes handles POST /api/admin/sessions/{id}/codes
func (h *AdminHandler) GenerateCodes(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateCodesRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	codes, err := h.invites.GenerateRootCodes(r.Context(), chi.URLParam(r, "id"), req.Count, req.Label, req.MaxUses)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, models.CodesResponse{Codes: codes})
}

// Tree handles GET /api/admin/sessions/{id}/tree
func (h *AdminHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.invites.BuildTree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, tree)
}

// RevokeCode handles POST /api/admin/codes/{code}/revoke
func (h *AdminHandler) RevokeCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.invites.RevokeCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, code)
}

// ReopenCode handles POST /api/admin/codes/{code}/reopen
func (h *AdminHandler) ReopenCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.invites.ReopenCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, code)
}

// DeleteCode handles DELETE /api/admin/codes/{code}
func (h *AdminHandler) DeleteCode(w http.ResponseWriter, r *http.Request) {
	if err := h.invites.DeleteCode(r.Context(), chi.URLParam(r, "code")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Code deleted"})
}

// AdjustSlots handles PATCH /api/admin/voters/{id}/slots
func (h *AdminHandler) AdjustSlots(w http.ResponseWriter, r *http.Request) {
	var req models.AdjustSlotsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	voter, err := h.invites.AdjustSlots(r.Context(), chi.URLParam(r, "id"), req.Slots)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, voter)
}

// RemoveVoter handles DELETE /api/admin/voters/{id}
func (h *AdminHandler) RemoveVoter(w http.ResponseWriter, r *http.Request) {
	if err := h.invites.RemoveVoter(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Voter removed"})
}
