// Package catalog maintains the reference data the rest of the system reads:
// task types with their containment rules, cycle templates and users.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
)

// Service provides catalog maintenance.
type Service struct {
	repo Repository
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TaskTypes returns every registered task type.
func (s *Service) TaskTypes(ctx context.Context) ([]domain.TaskType, error) {
	return s.repo.ListTaskTypes(ctx)
}

// CycleTemplates returns every cycle template.
func (s *Service) CycleTemplates(ctx context.Context) ([]domain.CycleTemplate, error) {
	return s.repo.ListCycleTemplates(ctx)
}

// CreateTaskType registers a new task type.
// Returns domain.ErrAlreadyExists if the id is taken.
func (s *Service) CreateTaskType(ctx context.Context, user access.User, t domain.TaskType) (*domain.TaskType, error) {
	if !user.HasFullAccess() {
		return nil, fmt.Errorf("%w: task types are maintained by administrators", domain.ErrForbidden)
	}

	t.ID = strings.TrimSpace(t.ID)
	err := s.repo.AtomicCatalog(ctx, func(repo Repository) error {
		if _, err := repo.FindTaskType(ctx, t.ID); err == nil {
			return fmt.Errorf("%w: task type %s", domain.ErrAlreadyExists, t.ID)
		}
		return saveTaskType(ctx, repo, &t, nil)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTaskType replaces an existing task type's description and rules.
// Existing tasks are not revalidated.
func (s *Service) UpdateTaskType(ctx context.Context, user access.User, t domain.TaskType) (*domain.TaskType, error) {
	if !user.HasFullAccess() {
		return nil, fmt.Errorf("%w: task types are maintained by administrators", domain.ErrForbidden)
	}

	t.ID = strings.TrimSpace(t.ID)
	err := s.repo.AtomicCatalog(ctx, func(repo Repository) error {
		if _, err := repo.FindTaskType(ctx, t.ID); err != nil {
			return err
		}
		return saveTaskType(ctx, repo, &t, nil)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// saveTaskType normalizes t and checks that every allowed child names a
// known type. pending holds ids being registered in the same batch.
func saveTaskType(ctx context.Context, repo Repository, t *domain.TaskType, pending map[string]bool) error {
	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" {
		return fmt.Errorf("%w: task type id is required", domain.ErrUnknownTaskType)
	}

	known := make(map[string]bool, len(pending))
	for id := range pending {
		known[id] = true
	}
	existing, err := repo.ListTaskTypes(ctx)
	if err != nil {
		return err
	}
	for _, e := range existing {
		known[e.ID] = true
	}
	known[t.ID] = true

	allowed := make([]string, 0, len(t.AllowedChildTypes))
	seen := make(map[string]bool, len(t.AllowedChildTypes))
	for _, child := range t.AllowedChildTypes {
		child = strings.TrimSpace(child)
		if child == "" || seen[child] {
			continue
		}
		if !known[child] {
			return fmt.Errorf("%w: %s allows unknown child %s", domain.ErrUnknownTaskType, t.ID, child)
		}
		seen[child] = true
		allowed = append(allowed, child)
	}
	t.AllowedChildTypes = allowed

	if err := repo.UpsertTaskType(ctx, t); err != nil {
		return fmt.Errorf("failed to save task type: %w", err)
	}
	return nil
}

// SaveCycleTemplate inserts or replaces a cycle template.
func (s *Service) SaveCycleTemplate(ctx context.Context, user access.User, t domain.CycleTemplate) (*domain.CycleTemplate, error) {
	if !user.HasFullAccess() {
		return nil, fmt.Errorf("%w: cycle templates are maintained by administrators", domain.ErrForbidden)
	}
	if err := checkTemplate(&t); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertCycleTemplate(ctx, &t); err != nil {
		return nil, fmt.Errorf("failed to save cycle template: %w", err)
	}
	return &t, nil
}

func checkTemplate(t *domain.CycleTemplate) error {
	t.Name = strings.TrimSpace(t.Name)
	switch {
	case t.Name == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidTemplate)
	case t.DurationDays <= 0:
		return fmt.Errorf("%w: %s duration must be positive", domain.ErrInvalidTemplate, t.Name)
	case t.Count <= 0:
		return fmt.Errorf("%w: %s count must be positive", domain.ErrInvalidTemplate, t.Name)
	}
	return nil
}

// Users returns every user.
func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}
