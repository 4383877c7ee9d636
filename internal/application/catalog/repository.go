package catalog

import (
	"context"

	"github.com/rezkam/atlas/internal/domain"
)

// Repository defines storage operations for reference data: task types,
// cycle templates and users.
type Repository interface {
	// ListTaskTypes returns every registered task type ordered by id.
	ListTaskTypes(ctx context.Context) ([]domain.TaskType, error)

	// FindTaskType retrieves a task type.
	// Returns domain.ErrTaskTypeNotFound if it does not exist.
	FindTaskType(ctx context.Context, id string) (*domain.TaskType, error)

	// UpsertTaskType inserts or replaces a task type and its allowed children.
	UpsertTaskType(ctx context.Context, t *domain.TaskType) error

	// ListCycleTemplates returns every cycle template ordered by name.
	ListCycleTemplates(ctx context.Context) ([]domain.CycleTemplate, error)

	// UpsertCycleTemplate inserts or replaces a cycle template.
	UpsertCycleTemplate(ctx context.Context, t *domain.CycleTemplate) error

	// ListUsers returns every user ordered by id.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpsertUser inserts or replaces a user and its roles.
	UpsertUser(ctx context.Context, u *domain.User) error

	// AtomicCatalog runs fn inside one transaction.
	AtomicCatalog(ctx context.Context, fn func(repo Repository) error) error
}
