package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atlas/internal/application/catalog"
	"github.com/rezkam/atlas/internal/application/cycle"
	"github.com/rezkam/atlas/internal/application/drafting"
	"github.com/rezkam/atlas/internal/application/project"
	"github.com/rezkam/atlas/internal/application/task"
)

// Handler adapts HTTP requests to application service calls. Every route
// expects the authenticated principal in the request context.
type Handler struct {
	projects *project.Service
	cycles   *cycle.Service
	tasks    *task.Service
	catalog  *catalog.Service
	drafting *drafting.Service
}

// NewHandler creates the API handler.
func NewHandler(
	projects *project.Service,
	cycles *cycle.Service,
	tasks *task.Service,
	catalog *catalog.Service,
	drafting *drafting.Service,
) *Handler {
	return &Handler{
		projects: projects,
		cycles:   cycles,
		tasks:    tasks,
		catalog:  catalog,
		drafting: drafting,
	}
}

// Routes returns the versioned API router, to be mounted behind auth.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/projects", func(r chi.Router) {
		r.Post("/", h.CreateProject)
		r.Get("/", h.ListProjects)
		r.Route("/{project_id}", func(r chi.Router) {
			r.Get("/", h.GetProject)
			r.Patch("/", h.UpdateProject)
			r.Get("/members", h.ListMembers)
			r.Put("/members", h.ReplaceMembers)
			r.Get("/flow-metrics", h.FlowMetrics)
			r.Get("/cycles", h.ListCycles)
			r.Post("/cycles", h.CreateCycle)
			r.Post("/cycles/from-template", h.CreateCyclesFromTemplate)
		})
	})

	r.Route("/cycles/{cycle_id}", func(r chi.Router) {
		r.Get("/", h.GetCycle)
		r.Patch("/", h.UpdateCycle)
		r.Delete("/", h.DeleteCycle)
		r.Post("/start", h.StartCycle)
		r.Post("/complete", h.CompleteCycle)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.CreateTask)
		r.Get("/", h.ListTasks)
		r.Route("/{task_id}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Patch("/", h.UpdateTask)
			r.Delete("/", h.DeleteTask)
			r.Get("/assignees", h.ListAssignees)
			r.Post("/assignees", h.Assign)
			r.Put("/assignee", h.SwitchAssignee)
			r.Delete("/assignees/{user_id}", h.Unassign)
			r.Get("/relationships", h.ListRelationships)
			r.Post("/relationships", h.Relate)
		})
	})

	r.Get("/task-types", h.ListTaskTypes)
	r.Post("/task-types", h.CreateTaskType)
	r.Put("/task-types/{type_id}", h.UpdateTaskType)
	r.Get("/cycle-templates", h.ListCycleTemplates)
	r.Put("/cycle-templates/{name}", h.SaveCycleTemplate)
	r.Get("/users", h.ListUsers)

	r.Get("/search", h.Search)

	r.Route("/drafting/sessions", func(r chi.Router) {
		r.Post("/", h.OpenDraftSession)
		r.Get("/{session_id}", h.GetDraftSession)
		r.Post("/{session_id}/accept", h.AcceptDrafts)
	})

	return r
}
