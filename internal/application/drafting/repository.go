package drafting

import (
	"context"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
)

// Repository defines storage operations for drafting sessions and drafts.
type Repository interface {
	// FindVisibleProject retrieves a project if scope admits it.
	// Returns domain.ErrProjectNotFound if it does not exist or is not visible.
	FindVisibleProject(ctx context.Context, scope access.Expr, id string) (*domain.Project, error)

	// FindCycleByID retrieves a cycle without visibility checks.
	// Returns domain.ErrCycleNotFound if the cycle does not exist.
	FindCycleByID(ctx context.Context, id string) (*domain.Cycle, error)

	// CreateSession inserts a session without its drafts.
	CreateSession(ctx context.Context, s *domain.DraftSession) error

	// UpdateSession persists status, blocked reason and intents.
	UpdateSession(ctx context.Context, s *domain.DraftSession) error

	// FindSession retrieves a session with its drafts in creation order.
	// Returns domain.ErrSessionNotFound if it does not exist.
	FindSession(ctx context.Context, id string) (*domain.DraftSession, error)

	// CreateDraft inserts a draft.
	CreateDraft(ctx context.Context, d *domain.TaskDraft) error

	// UpdateDraft persists a draft's status and created task.
	UpdateDraft(ctx context.Context, d *domain.TaskDraft) error

	// AtomicDrafting runs fn inside one transaction.
	AtomicDrafting(ctx context.Context, fn func(repo Repository) error) error
}
