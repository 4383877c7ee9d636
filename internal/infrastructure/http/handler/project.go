package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atlas/internal/application/project"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/infrastructure/http/middleware"
	"github.com/rezkam/atlas/internal/infrastructure/http/response"
)

type createProjectRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	ExecutionMode string `json:"execution_mode"`
}

type updateProjectRequest struct {
	UpdateMask    []string `json:"update_mask" validate:"required"`
	Name          *string  `json:"name" validate:"omitempty,max=255"`
	ExecutionMode *string  `json:"execution_mode"`
}

type replaceMembersRequest struct {
	Members []memberRequest `json:"members" validate:"dive"`
}

type memberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"max=64"`
}

type listProjectsResponse struct {
	Projects      []ProjectDTO `json:"projects"`
	TotalCount    int          `json:"total_count"`
	NextPageToken *string      `json:"next_page_token,omitempty"`
}

// CreateProject handles POST /projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var mode domain.ExecutionMode
	if req.ExecutionMode != "" {
		m, err := domain.NewExecutionMode(req.ExecutionMode)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		mode = m
	}

	user := middleware.UserFrom(r.Context())
	p, err := h.projects.Create(r.Context(), user, req.Name, mode)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "project created via HTTP", "project_id", p.ID, "owner", user.ID)
	response.Created(w, projectDTO(p))
}

// ListProjects handles GET /projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	result, err := h.projects.List(r.Context(), middleware.UserFrom(r.Context()), domain.ListProjectsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	projects := make([]ProjectDTO, 0, len(result.Items))
	for i := range result.Items {
		projects = append(projects, projectDTO(&result.Items[i]))
	}
	response.OK(w, listProjectsResponse{
		Projects:      projects,
		TotalCount:    result.TotalCount,
		NextPageToken: pageToken(offset+len(result.Items), result.HasMore),
	})
}

// GetProject handles GET /projects/{project_id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.Get(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "project_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, projectDTO(p))
}

// UpdateProject handles PATCH /projects/{project_id}.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := domain.UpdateProjectParams{
		ProjectID:  chi.URLParam(r, "project_id"),
		UpdateMask: req.UpdateMask,
		Name:       req.Name,
	}
	if req.ExecutionMode != nil {
		mode, err := domain.NewExecutionMode(*req.ExecutionMode)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		params.ExecutionMode = &mode
	}

	p, err := h.projects.Update(r.Context(), middleware.UserFrom(r.Context()), params)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, projectDTO(p))
}

// ListMembers handles GET /projects/{project_id}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.projects.Members(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "project_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, map[string]any{"members": memberDTOs(members)})
}

// ReplaceMembers handles PUT /projects/{project_id}/members.
func (h *Handler) ReplaceMembers(w http.ResponseWriter, r *http.Request) {
	var req replaceMembersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := make([]project.MemberInput, 0, len(req.Members))
	for _, m := range req.Members {
		in = append(in, project.MemberInput{UserID: m.UserID, Role: m.Role})
	}

	projectID := chi.URLParam(r, "project_id")
	members, err := h.projects.ReplaceMembers(r.Context(), middleware.UserFrom(r.Context()), projectID, in)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "project members replaced via HTTP", "project_id", projectID, "count", len(members))
	response.OK(w, map[string]any{"members": memberDTOs(members)})
}

// FlowMetrics handles GET /projects/{project_id}/flow-metrics.
func (h *Handler) FlowMetrics(w http.ResponseWriter, r *http.Request) {
	result, err := h.projects.FlowMetrics(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "project_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, result)
}
