package cycle

import (
	"context"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
)

// Repository defines the storage operations the cycle lifecycle needs.
type Repository interface {
	// FindProjectByID retrieves a project without visibility checks.
	// Returns domain.ErrProjectNotFound if the project does not exist.
	FindProjectByID(ctx context.Context, id string) (*domain.Project, error)

	// FindVisibleProject retrieves a project if scope admits it.
	// Returns domain.ErrProjectNotFound if it does not exist or is not visible.
	FindVisibleProject(ctx context.Context, scope access.Expr, id string) (*domain.Project, error)

	// LockProject serializes lifecycle writes for a project until the
	// surrounding transaction ends. Must be called inside AtomicCycle.
	LockProject(ctx context.Context, projectID string) error

	// IncrementCycleSequence bumps the project's cycle counter and returns the new value.
	IncrementCycleSequence(ctx context.Context, projectID string) (int, error)

	// CreateCycle inserts a cycle.
	// Returns domain.ErrAlreadyExists if the project already has an active cycle.
	CreateCycle(ctx context.Context, c *domain.Cycle) error

	// FindCycleByID retrieves a cycle without visibility checks.
	// Returns domain.ErrCycleNotFound if the cycle does not exist.
	FindCycleByID(ctx context.Context, id string) (*domain.Cycle, error)

	// FindCycleForUpdate is FindCycleByID with a row lock held until the
	// transaction ends, where the store supports row locks.
	FindCycleForUpdate(ctx context.Context, id string) (*domain.Cycle, error)

	// FindVisibleCycle retrieves a cycle if scope admits it.
	// Returns domain.ErrCycleNotFound if it does not exist or is not visible.
	FindVisibleCycle(ctx context.Context, scope access.Expr, id string) (*domain.Cycle, error)

	// ListCycles returns the visible cycles of a project ordered by sequence.
	ListCycles(ctx context.Context, scope access.Expr, projectID string) ([]domain.Cycle, error)

	// FindActiveCycle returns the Active cycle of a project other than
	// excludeID, or nil if there is none.
	FindActiveCycle(ctx context.Context, projectID, excludeID string) (*domain.Cycle, error)

	// FindLatestCycle returns the cycle with the highest sequence, or nil.
	FindLatestCycle(ctx context.Context, projectID string) (*domain.Cycle, error)

	// UpdateCycle persists name, status and dates.
	// Returns domain.ErrCycleNotFound if the cycle does not exist and
	// domain.ErrAlreadyExists if the write would create a second active cycle.
	UpdateCycle(ctx context.Context, c *domain.Cycle) error

	// DeleteCycle removes a cycle and detaches its tasks.
	// Returns domain.ErrCycleNotFound if the cycle does not exist.
	DeleteCycle(ctx context.Context, id string) error

	// CountUnfinishedTasks counts tasks of a cycle in Open, Working or Pending Review.
	CountUnfinishedTasks(ctx context.Context, cycleID string) (int, error)

	// MoveUnfinishedTasks reassigns unfinished tasks of one cycle to another
	// as a direct field update and returns how many moved.
	MoveUnfinishedTasks(ctx context.Context, fromCycleID, toCycleID string) (int, error)

	// CycleStatusCounts returns task counts per status for a cycle.
	CycleStatusCounts(ctx context.Context, cycleID string) (map[domain.TaskStatus]int, error)

	// ListProjectTasks returns every task of a project.
	ListProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error)

	// FindCycleTemplate retrieves a cycle template by name.
	// Returns domain.ErrTemplateNotFound if it does not exist.
	FindCycleTemplate(ctx context.Context, name string) (*domain.CycleTemplate, error)

	// AtomicCycle runs fn inside one transaction.
	// All writes made through the repo passed to fn commit or roll back together.
	AtomicCycle(ctx context.Context, fn func(repo Repository) error) error
}

// ReportSink stores reports of completed cycles.
type ReportSink interface {
	Put(ctx context.Context, report *Report) error
}
