package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atlas/internal/application/drafting"
	"github.com/rezkam/atlas/internal/infrastructure/http/middleware"
	"github.com/rezkam/atlas/internal/infrastructure/http/response"
)

type openSessionRequest struct {
	ProjectID string  `json:"project_id" validate:"required"`
	Prompt    string  `json:"prompt" validate:"required,max=10000"`
	CycleID   *string `json:"cycle_id"`
}

type acceptRequest struct {
	DraftIDs []string `json:"draft_ids" validate:"dive,required"`
}

type acceptResponse struct {
	Session  DraftSessionDTO    `json:"session"`
	Outcomes []drafting.Outcome `json:"outcomes"`
}

// OpenDraftSession handles POST /drafting/sessions. A blocked session is
// still 201; the client reads status and blocked_reason.
func (h *Handler) OpenDraftSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.drafting.Open(r.Context(), middleware.UserFrom(r.Context()), req.ProjectID, req.Prompt, req.CycleID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "draft session opened via HTTP",
		"session_id", session.ID,
		"project_id", session.ProjectID,
		"status", session.Status,
		"drafts", len(session.Drafts))
	response.Created(w, draftSessionDTO(session))
}

// GetDraftSession handles GET /drafting/sessions/{session_id}.
func (h *Handler) GetDraftSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.drafting.Get(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "session_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, draftSessionDTO(session))
}

// AcceptDrafts handles POST /drafting/sessions/{session_id}/accept. An empty
// draft_ids accepts every draft.
func (h *Handler) AcceptDrafts(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.drafting.Accept(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "session_id"), req.DraftIDs)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	outcomes := result.Outcomes
	if outcomes == nil {
		outcomes = []drafting.Outcome{}
	}
	response.OK(w, acceptResponse{
		Session:  draftSessionDTO(result.Session),
		Outcomes: outcomes,
	})
}
