package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atlas/internal/application/task"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/infrastructure/http/middleware"
	"github.com/rezkam/atlas/internal/infrastructure/http/response"
	"github.com/rezkam/atlas/internal/ptr"
)

type createTaskRequest struct {
	Subject      string   `json:"subject" validate:"required,max=255"`
	Status       string   `json:"status"`
	Priority     string   `json:"priority"`
	Weight       *float64 `json:"weight" validate:"omitempty,gte=0"`
	ProjectID    *string  `json:"project_id"`
	ParentTaskID *string  `json:"parent_task_id"`
	Type         *string  `json:"type"`
	CycleID      *string  `json:"cycle_id"`
}

type updateTaskRequest struct {
	UpdateMask   []string `json:"update_mask" validate:"required"`
	Subject      *string  `json:"subject" validate:"omitempty,max=255"`
	Status       *string  `json:"status"`
	Priority     *string  `json:"priority"`
	Weight       *float64 `json:"weight" validate:"omitempty,gte=0"`
	ParentTaskID *string  `json:"parent_task_id"`
	Type         *string  `json:"type"`
	CycleID      *string  `json:"cycle_id"`
}

type assigneeRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type relateRequest struct {
	TargetTaskID string `json:"target_task_id" validate:"required"`
	Type         string `json:"type" validate:"required"`
}

type listTasksResponse struct {
	Tasks         []TaskDTO `json:"tasks"`
	TotalCount    int       `json:"total_count"`
	NextPageToken *string   `json:"next_page_token,omitempty"`
}

// CreateTask handles POST /tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := task.CreateInput{
		Subject:      req.Subject,
		ProjectID:    req.ProjectID,
		ParentTaskID: req.ParentTaskID,
		TypeID:       req.Type,
		CycleID:      req.CycleID,
	}
	if req.Weight != nil {
		in.Weight = *req.Weight
	}
	if req.Status != "" {
		status, err := domain.NewTaskStatus(req.Status)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		in.Status = status
	}
	if req.Priority != "" {
		priority, err := domain.NewTaskPriority(req.Priority)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		in.Priority = priority
	}

	t, err := h.tasks.Create(r.Context(), middleware.UserFrom(r.Context()), in)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to create task via HTTP", "subject", req.Subject, "error", err)
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "task created via HTTP", "task_id", t.ID)
	response.Created(w, taskDTO(t))
}

// ListTasks handles GET /tasks.
//
// Filters: project_id, cycle_id, parent_task_id, assigned_to, status
// (repeatable or comma separated) and backlog=true.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := page(r)

	params := domain.ListTasksParams{
		ProjectID:    ptr.NonZero(q.Get("project_id")),
		CycleID:      ptr.NonZero(q.Get("cycle_id")),
		ParentTaskID: ptr.NonZero(q.Get("parent_task_id")),
		AssignedTo:   ptr.NonZero(q.Get("assigned_to")),
		Limit:        limit,
		Offset:       offset,
	}
	if v := q.Get("backlog"); v != "" {
		backlog, err := strconv.ParseBool(v)
		if err != nil {
			response.ValidationError(w, "backlog", "must be true or false")
			return
		}
		params.BacklogOnly = backlog
	}
	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			status, err := domain.NewTaskStatus(s)
			if err != nil {
				response.FromDomainError(w, r, err)
				return
			}
			params.Statuses = append(params.Statuses, status)
		}
	}

	result, err := h.tasks.List(r.Context(), middleware.UserFrom(r.Context()), params)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	tasks := make([]TaskDTO, 0, len(result.Items))
	for i := range result.Items {
		tasks = append(tasks, taskDTO(&result.Items[i]))
	}
	response.OK(w, listTasksResponse{
		Tasks:         tasks,
		TotalCount:    result.TotalCount,
		NextPageToken: pageToken(offset+len(result.Items), result.HasMore),
	})
}

// GetTask handles GET /tasks/{task_id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.tasks.Get(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "task_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, taskDTO(t))
}

// UpdateTask handles PATCH /tasks/{task_id}. Only fields named in
// update_mask change; a masked reference field sent as null is cleared.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := domain.UpdateTaskParams{
		TaskID:       chi.URLParam(r, "task_id"),
		UpdateMask:   req.UpdateMask,
		Subject:      req.Subject,
		Weight:       req.Weight,
		ParentTaskID: req.ParentTaskID,
		TypeID:       req.Type,
		CycleID:      req.CycleID,
	}
	if req.Status != nil {
		status, err := domain.NewTaskStatus(*req.Status)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		params.Status = &status
	}
	if req.Priority != nil {
		priority, err := domain.NewTaskPriority(*req.Priority)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		params.Priority = &priority
	}

	t, err := h.tasks.Update(r.Context(), middleware.UserFrom(r.Context()), params)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, taskDTO(t))
}

// DeleteTask handles DELETE /tasks/{task_id}.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")
	if err := h.tasks.Delete(r.Context(), middleware.UserFrom(r.Context()), id); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "task deleted via HTTP", "task_id", id)
	response.NoContent(w)
}

// ListAssignees handles GET /tasks/{task_id}/assignees.
func (h *Handler) ListAssignees(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.tasks.Assignments(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "task_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	out := make([]AssignmentDTO, 0, len(assignments))
	for i := range assignments {
		out = append(out, assignmentDTO(&assignments[i]))
	}
	response.OK(w, map[string]any{"assignments": out})
}

// Assign handles POST /tasks/{task_id}/assignees.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assigneeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.tasks.Assign(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "task_id"), req.UserID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.Created(w, assignmentDTO(a))
}

// SwitchAssignee handles PUT /tasks/{task_id}/assignee. Every other open
// assignment is cancelled.
func (h *Handler) SwitchAssignee(w http.ResponseWriter, r *http.Request) {
	var req assigneeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.tasks.SwitchAssignee(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "task_id"), req.UserID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, assignmentDTO(a))
}

// Unassign handles DELETE /tasks/{task_id}/assignees/{user_id}.
func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	err := h.tasks.Unassign(r.Context(), middleware.UserFrom(r.Context()),
		chi.URLParam(r, "task_id"), chi.URLParam(r, "user_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.NoContent(w)
}

// ListRelationships handles GET /tasks/{task_id}/relationships.
func (h *Handler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	rels, err := h.tasks.Relationships(r.Context(), middleware.UserFrom(r.Context()), chi.URLParam(r, "task_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	out := make([]RelationshipDTO, 0, len(rels))
	for i := range rels {
		out = append(out, relationshipDTO(&rels[i]))
	}
	response.OK(w, map[string]any{"relationships": out})
}

// Relate handles POST /tasks/{task_id}/relationships.
func (h *Handler) Relate(w http.ResponseWriter, r *http.Request) {
	var req relateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rel, err := domain.NewRelationType(req.Type)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	created, err := h.tasks.Relate(r.Context(), middleware.UserFrom(r.Context()),
		chi.URLParam(r, "task_id"), req.TargetTaskID, rel)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.Created(w, relationshipDTO(created))
}

// Search handles GET /search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		response.ValidationError(w, "q", "required field missing")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	hits, err := h.tasks.Search(r.Context(), middleware.UserFrom(r.Context()), query, limit)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	out := make([]SearchHitDTO, 0, len(hits))
	for _, hit := range hits {
		out = append(out, SearchHitDTO{Kind: hit.Kind, ID: hit.ID, Title: hit.Title})
	}
	response.OK(w, map[string]any{"results": out})
}
