// Package project implements project management, membership and flow metrics.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
	"github.com/rezkam/atlas/internal/flow"
)

// Default configuration values.
const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Config holds configuration for the Service.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service provides business logic for projects.
type Service struct {
	repo   Repository
	config Config
	now    func() time.Time
}

// NewService creates a new project service.
// Applies application defaults for zero or invalid config values.
func NewService(repo Repository, config Config) *Service {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = DefaultPageSize
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = MaxPageSize
	}
	return &Service{
		repo:   repo,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a project owned by user. The owner becomes its first member.
func (s *Service) Create(ctx context.Context, user access.User, name string, mode domain.ExecutionMode) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrProjectNameRequired
	}
	if mode == "" {
		mode = domain.ExecutionModeKanban
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.now()
	p := &domain.Project{
		ID:            id.String(),
		Name:          name,
		ExecutionMode: mode,
		Owner:         user.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.repo.AtomicProject(ctx, func(repo Repository) error {
		if err := repo.CreateProject(ctx, p); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		owner := domain.ProjectMember{ProjectID: p.ID, UserID: user.ID, Role: "Owner", AddedAt: now}
		return repo.ReplaceMembers(ctx, p.ID, []domain.ProjectMember{owner})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "project created", "project_id", p.ID, "owner", user.ID, "mode", p.ExecutionMode)
	return p, nil
}

// Get returns a visible project.
func (s *Service) Get(ctx context.Context, user access.User, id string) (*domain.Project, error) {
	return s.repo.FindVisibleProject(ctx, access.Projects(user), id)
}

// List returns a page of visible projects.
func (s *Service) List(ctx context.Context, user access.User, params domain.ListProjectsParams) (*domain.PagedResult[domain.Project], error) {
	if params.Limit <= 0 {
		params.Limit = s.config.DefaultPageSize
	}
	if params.Limit > s.config.MaxPageSize {
		params.Limit = s.config.MaxPageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.repo.ListProjects(ctx, access.Projects(user), params)
}

// Update renames a project or changes its execution mode.
// Leaving Scrum while a cycle is Active returns domain.ErrActiveCycleBlocksModeChange.
func (s *Service) Update(ctx context.Context, user access.User, params domain.UpdateProjectParams) (*domain.Project, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Project
	err := s.repo.AtomicProject(ctx, func(repo Repository) error {
		p, err := repo.FindVisibleProject(ctx, access.Projects(user), params.ProjectID)
		if err != nil {
			return err
		}

		if params.Has(domain.FieldName) {
			name := strings.TrimSpace(*params.Name)
			if name == "" {
				return domain.ErrProjectNameRequired
			}
			p.Name = name
		}

		if params.Has(domain.FieldExecutionMode) && *params.ExecutionMode != p.ExecutionMode {
			if p.ExecutionMode == domain.ExecutionModeScrum {
				active, err := repo.FindActiveCycle(ctx, p.ID, "")
				if err != nil {
					return err
				}
				if active != nil {
					return domain.NewConflictError(domain.ErrActiveCycleBlocksModeChange, active.ID)
				}
			}
			p.ExecutionMode = *params.ExecutionMode
		}

		p.UpdatedAt = s.now()
		if err := repo.UpdateProject(ctx, p); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Members lists the members of a visible project.
func (s *Service) Members(ctx context.Context, user access.User, projectID string) ([]domain.ProjectMember, error) {
	if _, err := s.repo.FindVisibleProject(ctx, access.Projects(user), projectID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, projectID)
}

// MemberInput names one member of a replacement set.
type MemberInput struct {
	UserID string
	Role   string
}

// ReplaceMembers swaps the member set of a project. Only the owner, project
// managers and full-access users may do so; the owner always stays a member.
func (s *Service) ReplaceMembers(ctx context.Context, user access.User, projectID string, members []MemberInput) ([]domain.ProjectMember, error) {
	var result []domain.ProjectMember
	err := s.repo.AtomicProject(ctx, func(repo Repository) error {
		p, err := repo.FindVisibleProject(ctx, access.Projects(user), projectID)
		if err != nil {
			return err
		}
		if p.Owner != user.ID && !user.IsProjectManager() && !user.HasFullAccess() {
			return fmt.Errorf("%w: only the owner or a project manager can change members", domain.ErrForbidden)
		}

		current, err := repo.ListMembers(ctx, p.ID)
		if err != nil {
			return err
		}
		addedAt := make(map[string]time.Time, len(current))
		for _, m := range current {
			addedAt[m.UserID] = m.AddedAt
		}
		now := s.now()
		since := func(userID string) time.Time {
			if t, ok := addedAt[userID]; ok {
				return t
			}
			return now
		}

		seen := make(map[string]bool, len(members)+1)
		result = make([]domain.ProjectMember, 0, len(members)+1)
		for _, m := range members {
			userID := strings.TrimSpace(m.UserID)
			if userID == "" || seen[userID] {
				continue
			}
			if _, err := repo.FindUserByID(ctx, userID); err != nil {
				return err
			}
			seen[userID] = true
			result = append(result, domain.ProjectMember{ProjectID: p.ID, UserID: userID, Role: m.Role, AddedAt: since(userID)})
		}
		if p.Owner != "" && !seen[p.Owner] {
			result = append(result, domain.ProjectMember{ProjectID: p.ID, UserID: p.Owner, Role: "Owner", AddedAt: since(p.Owner)})
		}
		slices.SortFunc(result, func(a, b domain.ProjectMember) int { return strings.Compare(a.UserID, b.UserID) })

		return repo.ReplaceMembers(ctx, p.ID, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FlowMetrics computes the health of a visible project from its tasks.
func (s *Service) FlowMetrics(ctx context.Context, user access.User, projectID string) (*flow.Result, error) {
	p, err := s.repo.FindVisibleProject(ctx, access.Projects(user), projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListProjectTasks(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project tasks: %w", err)
	}

	snapshots := make([]flow.TaskSnapshot, len(tasks))
	for i, t := range tasks {
		snapshots[i] = flow.SnapshotOf(t)
	}
	result := flow.Compute(snapshots, p.ExecutionMode, s.now())
	return &result, nil
}
