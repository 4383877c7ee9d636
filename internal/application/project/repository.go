package project

import (
	"context"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
)

// Repository defines storage operations for projects and their members.
type Repository interface {
	// CreateProject inserts a project.
	CreateProject(ctx context.Context, p *domain.Project) error

	// FindVisibleProject retrieves a project if scope admits it.
	// Returns domain.ErrProjectNotFound if it does not exist or is not visible.
	FindVisibleProject(ctx context.Context, scope access.Expr, id string) (*domain.Project, error)

	// ListProjects returns a page of projects admitted by scope, oldest first.
	ListProjects(ctx context.Context, scope access.Expr, params domain.ListProjectsParams) (*domain.PagedResult[domain.Project], error)

	// UpdateProject persists name and execution mode.
	// Returns domain.ErrProjectNotFound if the project does not exist.
	UpdateProject(ctx context.Context, p *domain.Project) error

	// FindActiveCycle returns the Active cycle of a project other than
	// excludeID, or nil if there is none.
	FindActiveCycle(ctx context.Context, projectID, excludeID string) (*domain.Cycle, error)

	// ListMembers returns the members of a project ordered by user id.
	ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error)

	// ReplaceMembers swaps the member set of a project for members.
	ReplaceMembers(ctx context.Context, projectID string, members []domain.ProjectMember) error

	// FindUserByID retrieves a user with roles.
	// Returns domain.ErrUserNotFound if the user does not exist.
	FindUserByID(ctx context.Context, id string) (*domain.User, error)

	// ListProjectTasks returns every task of a project.
	ListProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error)

	// AtomicProject runs fn inside one transaction.
	AtomicProject(ctx context.Context, fn func(repo Repository) error) error
}
