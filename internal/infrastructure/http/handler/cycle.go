package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/infrastructure/http/middleware"
	"github.com/rezkam/atlas/internal/infrastructure/http/response"
)

type createCycleRequest struct {
	StartDate *Date `json:"start_date"`
	EndDate   *Date `json:"end_date"`
}

type fromTemplateRequest struct {
	Template  string `json:"template" validate:"required"`
	StartDate *Date  `json:"start_date"`
}

type updateCycleRequest struct {
	UpdateMask []string `json:"update_mask" validate:"required"`
	Name       *string  `json:"name" validate:"omitempty,max=255"`
	StartDate  *Date    `json:"start_date"`
	EndDate    *Date    `json:"end_date"`
}

type startCycleRequest struct {
	Name      string `json:"name" validate:"max=255"`
	StartDate *Date  `json:"start_date"`
	EndDate   *Date  `json:"end_date"`
}

type completeCycleRequest struct {
	MoveTo *string `json:"move_to"`
}

type completeCycleResponse struct {
	Cycle      CycleDTO `json:"cycle"`
	MovedTasks int      `json:"moved_tasks"`
}

// ListCycles handles GET /projects/{project_id}/cycles.
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.cycles.List(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "project_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, map[string]any{"cycles": cycleDTOs(cycles)})
}

// CreateCycle handles POST /projects/{project_id}/cycles.
func (h *Handler) CreateCycle(w http.ResponseWriter, r *http.Request) {
	var req createCycleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	projectID := chi.URLParam(r, "project_id")
	c, err := h.cycles.Create(r.Context(), middleware.UserFrom(r.Context()), projectID, cycle.CreateInput{
		StartDate: timePtr(req.StartDate),
		EndDate:   timePtr(req.EndDate),
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "cycle created via HTTP", "cycle_id", c.ID, "project_id", projectID)
	response.Created(w, cycleDTO(c))
}

// CreateCyclesFromTemplate handles POST /projects/{project_id}/cycles/from-template.
func (h *Handler) CreateCyclesFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req fromTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	projectID := chi.URLParam(r, "project_id")
	cycles, err := h.cycles.CreateFromTemplate(r.Context(), middleware.UserFrom(r.Context()),
		projectID, req.Template, timePtr(req.StartDate))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "cycles created from template via HTTP",
		"project_id", projectID,
		"template", req.Template,
		"count", len(cycles))
	response.Created(w, map[string]any{"cycles": cycleDTOs(cycles)})
}

// GetCycle handles GET /cycles/{cycle_id}.
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	c, err := h.cycles.Get(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "cycle_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, cycleDTO(c))
}

// UpdateCycle handles PATCH /cycles/{cycle_id}.
func (h *Handler) UpdateCycle(w http.ResponseWriter, r *http.Request) {
	var req updateCycleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.cycles.Update(r.Context(), middleware.UserFrom(r.Context()), domain.UpdateCycleParams{
		CycleID:    chi.URLParam(r, "cycle_id"),
		UpdateMask: req.UpdateMask,
		Name:       req.Name,
		StartDate:  timePtr(req.StartDate),
		EndDate:    timePtr(req.EndDate),
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, cycleDTO(c))
}

// DeleteCycle handles DELETE /cycles/{cycle_id}.
func (h *Handler) DeleteCycle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cycle_id")
	if err := h.cycles.Delete(r.Context(), middleware.UserFrom(r.Context()), id); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "cycle deleted via HTTP", "cycle_id", id)
	response.NoContent(w)
}

// StartCycle handles POST /cycles/{cycle_id}/start.
func (h *Handler) StartCycle(w http.ResponseWriter, r *http.Request) {
	var req startCycleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "cycle_id")
	c, err := h.cycles.Start(r.Context(), middleware.UserFrom(r.Context()), id, cycle.StartInput{
		Name:      req.Name,
		StartDate: timePtr(req.StartDate),
		EndDate:   timePtr(req.EndDate),
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "cycle started via HTTP", "cycle_id", id, "project_id", c.ProjectID)
	response.OK(w, cycleDTO(c))
}

// CompleteCycle handles POST /cycles/{cycle_id}/complete.
func (h *Handler) CompleteCycle(w http.ResponseWriter, r *http.Request) {
	var req completeCycleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "cycle_id")
	result, err := h.cycles.Complete(r.Context(), middleware.UserFrom(r.Context()), id, req.MoveTo)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "cycle completed via HTTP", "cycle_id", id, "moved_tasks", result.MovedTasks)
	response.OK(w, completeCycleResponse{
		Cycle:      cycleDTO(result.Cycle),
		MovedTasks: result.MovedTasks,
	})
}
