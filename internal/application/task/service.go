// Package task implements task CRUD, assignment and relationship management.
// Every task write passes through the pre-save hooks, which enforce the
// hierarchy rules and derive is_group.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/hierarchy"
)

// Default configuration values.
const (
	DefaultPageSize    = 25
	MaxPageSize        = 100
	DefaultSearchLimit = 20
)

// Config holds configuration for the Service.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Hook runs against a task about to be written. parent is the task's
// current parent, or nil. Hooks may set derived fields on t.
type Hook func(ctx context.Context, repo Repository, t *domain.Task, parent *domain.Task) error

// Service provides business logic for tasks.
type Service struct {
	repo    Repository
	config  Config
	preSave []Hook
}

// NewService creates a new task service.
// Applies application defaults for zero or invalid config values.
func NewService(repo Repository, config Config) *Service {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = DefaultPageSize
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = MaxPageSize
	}

	return &Service{
		repo:    repo,
		config:  config,
		preSave: []Hook{CheckCycleProject, CheckHierarchy},
	}
}

// CreateInput carries the fields of a new task.
type CreateInput struct {
	Subject      string
	Status       domain.TaskStatus
	Priority     domain.TaskPriority
	Weight       float64
	Origin       domain.TaskOrigin
	ProjectID    *string
	ParentTaskID *string
	TypeID       *string
	CycleID      *string
}

// Create validates and inserts a task owned by user.
// A task without a project inherits its parent's project.
func (s *Service) Create(ctx context.Context, user access.User, in CreateInput) (*domain.Task, error) {
	subject, err := domain.NewSubject(in.Subject)
	if err != nil {
		return nil, err
	}
	if _, err := domain.NewWeight(in.Weight); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = domain.TaskStatusOpen
	}
	if in.Priority == "" {
		in.Priority = domain.TaskPriorityMedium
	}
	if in.Origin == "" {
		in.Origin = domain.TaskOriginHuman
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	now := time.Now().UTC()
	t := &domain.Task{
		ID:           id.String(),
		Subject:      subject.String(),
		Status:       in.Status,
		Priority:     in.Priority,
		Weight:       in.Weight,
		Origin:       in.Origin,
		ProjectID:    in.ProjectID,
		ParentTaskID: in.ParentTaskID,
		TypeID:       in.TypeID,
		CycleID:      in.CycleID,
		Owner:        user.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.AtomicTask(ctx, func(repo Repository) error {
		var parent *domain.Task
		if t.ParentTaskID != nil {
			parent, err = repo.FindVisibleTask(ctx, access.Tasks(user), *t.ParentTaskID)
			if err != nil {
				return fmt.Errorf("parent task: %w", err)
			}
			if t.ProjectID == nil {
				t.ProjectID = parent.ProjectID
			}
		}
		if t.ProjectID != nil {
			if _, err := repo.FindVisibleProject(ctx, access.Projects(user), *t.ProjectID); err != nil {
				return err
			}
		}

		if err := s.runPreSave(ctx, repo, t, parent); err != nil {
			return err
		}
		if err := repo.CreateTask(ctx, t); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "task created", "task_id", t.ID, "owner", user.ID, "origin", t.Origin)
	return t, nil
}

// Get returns a visible task.
func (s *Service) Get(ctx context.Context, user access.User, id string) (*domain.Task, error) {
	return s.repo.FindVisibleTask(ctx, access.Tasks(user), id)
}

// List returns a page of visible tasks.
func (s *Service) List(ctx context.Context, user access.User, params domain.ListTasksParams) (*domain.PagedResult[domain.Task], error) {
	params.Limit, params.Offset = s.clampPage(params.Limit, params.Offset)
	return s.repo.ListTasks(ctx, access.Tasks(user), params)
}

// Update applies the fields named in params.UpdateMask and re-runs the pre-save hooks.
func (s *Service) Update(ctx context.Context, user access.User, params domain.UpdateTaskParams) (*domain.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Task
	err := s.repo.AtomicTask(ctx, func(repo Repository) error {
		t, err := repo.FindVisibleTask(ctx, access.Tasks(user), params.TaskID)
		if err != nil {
			return err
		}

		if params.Has(domain.FieldSubject) {
			subject, err := domain.NewSubject(*params.Subject)
			if err != nil {
				return err
			}
			t.Subject = subject.String()
		}
		if params.Has(domain.FieldStatus) {
			t.Status = *params.Status
		}
		if params.Has(domain.FieldPriority) {
			t.Priority = *params.Priority
		}
		if params.Has(domain.FieldWeight) {
			t.Weight = 0
			if params.Weight != nil {
				t.Weight = *params.Weight
			}
		}
		if params.Has(domain.FieldType) {
			t.TypeID = params.TypeID
		}
		if params.Has(domain.FieldCycle) {
			t.CycleID = params.CycleID
		}

		var parent *domain.Task
		if params.Has(domain.FieldParentTask) {
			t.ParentTaskID = params.ParentTaskID
			if t.ParentTaskID != nil {
				if err := hierarchy.CheckNoLoop(ctx, repo, t.ID, *t.ParentTaskID); err != nil {
					return err
				}
				parent, err = repo.FindVisibleTask(ctx, access.Tasks(user), *t.ParentTaskID)
				if err != nil {
					return fmt.Errorf("parent task: %w", err)
				}
			}
		} else if t.ParentTaskID != nil {
			parent, err = repo.FindTaskByID(ctx, *t.ParentTaskID)
			if err != nil && !errors.Is(err, domain.ErrTaskNotFound) {
				return err
			}
		}

		t.UpdatedAt = time.Now().UTC()
		if err := s.runPreSave(ctx, repo, t, parent); err != nil {
			return err
		}
		if err := repo.UpdateTask(ctx, t); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a visible task that has no children.
// Returns domain.ErrTaskHasChildren otherwise.
func (s *Service) Delete(ctx context.Context, user access.User, id string) error {
	return s.repo.AtomicTask(ctx, func(repo Repository) error {
		if _, err := repo.FindVisibleTask(ctx, access.Tasks(user), id); err != nil {
			return err
		}
		children, err := repo.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: %d children", domain.ErrTaskHasChildren, children)
		}
		return repo.DeleteTask(ctx, id)
	})
}

func (s *Service) runPreSave(ctx context.Context, repo Repository, t *domain.Task, parent *domain.Task) error {
	for _, hook := range s.preSave {
		if err := hook(ctx, repo, t, parent); err != nil {
			return err
		}
	}
	return nil
}

// CheckCycleProject rejects a cycle that does not belong to the task's project.
func CheckCycleProject(ctx context.Context, repo Repository, t *domain.Task, _ *domain.Task) error {
	if t.CycleID == nil {
		return nil
	}
	c, err := repo.FindCycleByID(ctx, *t.CycleID)
	if err != nil {
		return err
	}
	if t.ProjectID == nil || *t.ProjectID != c.ProjectID {
		return fmt.Errorf("%w: cycle %s", domain.ErrCycleProjectMismatch, c.ID)
	}
	return nil
}

// CheckHierarchy validates the parent/type/cycle combination against the
// current task type registry and derives is_group from the task's type.
func CheckHierarchy(ctx context.Context, repo Repository, t *domain.Task, parent *domain.Task) error {
	types, err := repo.ListTaskTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load task types: %w", err)
	}
	reg := hierarchy.NewRegistry(types)

	var activeID *string
	if t.ProjectID != nil {
		active, err := repo.FindActiveCycle(ctx, *t.ProjectID, "")
		if err != nil {
			return err
		}
		if active != nil {
			activeID = &active.ID
		}
	}

	if err := hierarchy.Validate(reg, hierarchy.Proposal{
		TypeID:        t.TypeID,
		CycleID:       t.CycleID,
		Parent:        parent,
		ActiveCycleID: activeID,
	}); err != nil {
		return err
	}

	isGroup, err := hierarchy.IsGroup(reg, t.TypeID)
	if err != nil {
		return err
	}
	t.IsGroup = isGroup
	return nil
}

// Assign opens an assignment of a visible task to assignee.
// Assigning someone who already holds an open assignment is a no-op.
func (s *Service) Assign(ctx context.Context, user access.User, taskID, assignee string) (*domain.Assignment, error) {
	var result *domain.Assignment
	err := s.repo.AtomicTask(ctx, func(repo Repository) error {
		if _, err := repo.FindVisibleTask(ctx, access.Tasks(user), taskID); err != nil {
			return err
		}
		if _, err := repo.FindUserByID(ctx, assignee); err != nil {
			return err
		}

		existing, err := repo.ListAssignments(ctx, taskID)
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].AllocatedTo == assignee && existing[i].Status == domain.AssignmentStatusOpen {
				result = &existing[i]
				return nil
			}
		}

		a, err := newAssignment(taskID, assignee)
		if err != nil {
			return err
		}
		if err := repo.CreateAssignment(ctx, a); err != nil {
			return fmt.Errorf("failed to assign task: %w", err)
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Unassign cancels the open assignment of assignee on a visible task.
// Returns domain.ErrNotFound if there is none.
func (s *Service) Unassign(ctx context.Context, user access.User, taskID, assignee string) error {
	return s.repo.AtomicTask(ctx, func(repo Repository) error {
		if _, err := repo.FindVisibleTask(ctx, access.Tasks(user), taskID); err != nil {
			return err
		}
		n, err := repo.TransitionAssignments(ctx, taskID, assignee, domain.AssignmentStatusOpen, domain.AssignmentStatusCancelled)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: open assignment of %s", domain.ErrNotFound, assignee)
		}
		return nil
	})
}

// SwitchAssignee cancels every open assignment of a visible task and opens
// one for assignee.
func (s *Service) SwitchAssignee(ctx context.Context, user access.User, taskID, assignee string) (*domain.Assignment, error) {
	var result *domain.Assignment
	err := s.repo.AtomicTask(ctx, func(repo Repository) error {
		if _, err := repo.FindVisibleTask(ctx, access.Tasks(user), taskID); err != nil {
			return err
		}
		if _, err := repo.FindUserByID(ctx, assignee); err != nil {
			return err
		}
		if _, err := repo.TransitionAssignments(ctx, taskID, "", domain.AssignmentStatusOpen, domain.AssignmentStatusCancelled); err != nil {
			return err
		}
		a, err := newAssignment(taskID, assignee)
		if err != nil {
			return err
		}
		if err := repo.CreateAssignment(ctx, a); err != nil {
			return fmt.Errorf("failed to assign task: %w", err)
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Assignments lists the assignments of a visible task.
func (s *Service) Assignments(ctx context.Context, user access.User, taskID string) ([]domain.Assignment, error) {
	if _, err := s.repo.FindVisibleTask(ctx, access.Tasks(user), taskID); err != nil {
		return nil, err
	}
	return s.repo.ListAssignments(ctx, taskID)
}

func newAssignment(taskID, assignee string) (*domain.Assignment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}
	now := time.Now().UTC()
	return &domain.Assignment{
		ID:          id.String(),
		TaskID:      taskID,
		AllocatedTo: assignee,
		Status:      domain.AssignmentStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Relate links two visible tasks. A Blocks link also records the reverse
// Is Blocked By link on the target.
func (s *Service) Relate(ctx context.Context, user access.User, sourceID, targetID string, rel domain.RelationType) (*domain.Relationship, error) {
	if sourceID == targetID {
		return nil, domain.ErrSelfRelation
	}

	var created *domain.Relationship
	err := s.repo.AtomicTask(ctx, func(repo Repository) error {
		scope := access.Tasks(user)
		if _, err := repo.FindVisibleTask(ctx, scope, sourceID); err != nil {
			return err
		}
		if _, err := repo.FindVisibleTask(ctx, scope, targetID); err != nil {
			return err
		}

		forward, err := newRelationship(sourceID, targetID, rel, false)
		if err != nil {
			return err
		}
		if err := repo.CreateRelationship(ctx, forward); err != nil {
			return fmt.Errorf("failed to relate tasks: %w", err)
		}

		if reverse, ok := rel.Reverse(); ok {
			back, err := newRelationship(targetID, sourceID, reverse, true)
			if err != nil {
				return err
			}
			if err := repo.CreateRelationship(ctx, back); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
				return fmt.Errorf("failed to record reverse relationship: %w", err)
			}
		}
		created = forward
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Relationships lists links whose source is a visible task.
func (s *Service) Relationships(ctx context.Context, user access.User, taskID string) ([]domain.Relationship, error) {
	if _, err := s.repo.FindVisibleTask(ctx, access.Tasks(user), taskID); err != nil {
		return nil, err
	}
	return s.repo.ListRelationships(ctx, taskID)
}

func newRelationship(source, target string, rel domain.RelationType, reverse bool) (*domain.Relationship, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}
	return &domain.Relationship{
		ID:           id.String(),
		SourceTaskID: source,
		TargetTaskID: target,
		Type:         rel,
		IsReverse:    reverse,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Search finds visible tasks and projects whose subject or name contains query.
func (s *Service) Search(ctx context.Context, user access.User, query string, limit int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	if limit <= 0 || limit > s.config.MaxPageSize {
		limit = DefaultSearchLimit
	}
	return s.repo.Search(ctx, access.Tasks(user), access.Projects(user), query, limit)
}

func (s *Service) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.config.DefaultPageSize
	}
	if limit > s.config.MaxPageSize {
		limit = s.config.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
