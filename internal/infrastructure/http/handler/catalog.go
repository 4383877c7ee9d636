package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/infrastructure/http/middleware"
	"github.com/rezkam/atlas/internal/infrastructure/http/response"
)

type taskTypeRequest struct {
	ID                string   `json:"id" validate:"required,max=64"`
	Description       string   `json:"description" validate:"max=255"`
	IsContainer       bool     `json:"is_container"`
	AllowedChildTypes []string `json:"allowed_child_types" validate:"dive,required"`
}

type cycleTemplateRequest struct {
	DurationDays int `json:"duration_days" validate:"required,gte=1,lte=365"`
	Count        int `json:"count" validate:"required,gte=1,lte=52"`
}

// ListTaskTypes handles GET /task-types.
func (h *Handler) ListTaskTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.TaskTypes(r.Context())
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	out := make([]TaskTypeDTO, 0, len(types))
	for i := range types {
		out = append(out, taskTypeDTO(&types[i]))
	}
	response.OK(w, map[string]any{"task_types": out})
}

// CreateTaskType handles POST /task-types.
func (h *Handler) CreateTaskType(w http.ResponseWriter, r *http.Request) {
	var req taskTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.catalog.CreateTaskType(r.Context(), middleware.UserFrom(r.Context()), req.taskType())
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.Created(w, taskTypeDTO(t))
}

// UpdateTaskType handles PUT /task-types/{type_id}. The path id wins over the body.
func (h *Handler) UpdateTaskType(w http.ResponseWriter, r *http.Request) {
	var req taskTypeRequest
	req.ID = chi.URLParam(r, "type_id")
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "type_id")

	t, err := h.catalog.UpdateTaskType(r.Context(), middleware.UserFrom(r.Context()), req.taskType())
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, taskTypeDTO(t))
}

func (req taskTypeRequest) taskType() domain.TaskType {
	return domain.TaskType{
		ID:                req.ID,
		Description:       req.Description,
		IsContainer:       req.IsContainer,
		AllowedChildTypes: req.AllowedChildTypes,
	}
}

// ListCycleTemplates handles GET /cycle-templates.
func (h *Handler) ListCycleTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.catalog.CycleTemplates(r.Context())
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	out := make([]CycleTemplateDTO, 0, len(templates))
	for _, t := range templates {
		out = append(out, CycleTemplateDTO{Name: t.Name, DurationDays: t.DurationDays, Count: t.Count})
	}
	response.OK(w, map[string]any{"cycle_templates": out})
}

// SaveCycleTemplate handles PUT /cycle-templates/{name}.
func (h *Handler) SaveCycleTemplate(w http.ResponseWriter, r *http.Request) {
	var req cycleTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.catalog.SaveCycleTemplate(r.Context(), middleware.UserFrom(r.Context()), domain.CycleTemplate{
		Name:         chi.URLParam(r, "name"),
		DurationDays: req.DurationDays,
		Count:        req.Count,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, CycleTemplateDTO{Name: t.Name, DurationDays: t.DurationDays, Count: t.Count})
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.catalog.Users(r.Context())
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		roles := u.Roles
		if roles == nil {
			roles = []string{}
		}
		out = append(out, UserDTO{ID: u.ID, FullName: u.FullName, Roles: roles})
	}
	response.OK(w, map[string]any{"users": out})
}
