package task

import (
	"context"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/domain"
)

// Repository defines storage operations for tasks, their assignments and relationships.
type Repository interface {
	// FindVisibleProject retrieves a project if scope admits it.
	// Returns domain.ErrProjectNotFound if it does not exist or is not visible.
	FindVisibleProject(ctx context.Context, scope access.Expr, id string) (*domain.Project, error)

	// FindCycleByID retrieves a cycle without visibility checks.
	// Returns domain.ErrCycleNotFound if the cycle does not exist.
	FindCycleByID(ctx context.Context, id string) (*domain.Cycle, error)

	// FindActiveCycle returns the Active cycle of a project other than
	// excludeID, or nil if there is none.
	FindActiveCycle(ctx context.Context, projectID, excludeID string) (*domain.Cycle, error)

	// ListTaskTypes returns every registered task type.
	ListTaskTypes(ctx context.Context) ([]domain.TaskType, error)

	// CreateTask inserts a task.
	CreateTask(ctx context.Context, t *domain.Task) error

	// FindTaskByID retrieves a task without visibility checks.
	// Returns domain.ErrTaskNotFound if the task does not exist.
	FindTaskByID(ctx context.Context, id string) (*domain.Task, error)

	// FindVisibleTask retrieves a task if scope admits it.
	// Returns domain.ErrTaskNotFound if it does not exist or is not visible.
	FindVisibleTask(ctx context.Context, scope access.Expr, id string) (*domain.Task, error)

	// ListTasks returns a page of tasks admitted by scope and matching params.
	ListTasks(ctx context.Context, scope access.Expr, params domain.ListTasksParams) (*domain.PagedResult[domain.Task], error)

	// UpdateTask persists every mutable task field.
	// Returns domain.ErrTaskNotFound if the task does not exist.
	UpdateTask(ctx context.Context, t *domain.Task) error

	// DeleteTask removes a task with its assignments and relationships.
	// Returns domain.ErrTaskNotFound if the task does not exist.
	DeleteTask(ctx context.Context, id string) error

	// CountChildren counts tasks whose parent is taskID.
	CountChildren(ctx context.Context, taskID string) (int, error)

	// ParentOf returns the parent id of a task, or nil for top-level tasks.
	ParentOf(ctx context.Context, taskID string) (*string, error)

	// FindUserByID retrieves a user with roles.
	// Returns domain.ErrUserNotFound if the user does not exist.
	FindUserByID(ctx context.Context, id string) (*domain.User, error)

	// CreateAssignment inserts an assignment.
	CreateAssignment(ctx context.Context, a *domain.Assignment) error

	// ListAssignments returns the assignments of a task, oldest first.
	ListAssignments(ctx context.Context, taskID string) ([]domain.Assignment, error)

	// TransitionAssignments moves a task's assignments in status from to status to.
	// An empty userID matches every assignee. Returns the number of rows changed.
	TransitionAssignments(ctx context.Context, taskID, userID string, from, to domain.AssignmentStatus) (int, error)

	// CreateRelationship inserts a relationship.
	// Returns domain.ErrAlreadyExists if the same link already exists.
	CreateRelationship(ctx context.Context, r *domain.Relationship) error

	// ListRelationships returns relationships whose source is taskID.
	ListRelationships(ctx context.Context, taskID string) ([]domain.Relationship, error)

	// Search matches visible tasks by subject and visible projects by name.
	Search(ctx context.Context, taskScope, projectScope access.Expr, query string, limit int) ([]domain.SearchResult, error)

	// AtomicTask runs fn inside one transaction.
	AtomicTask(ctx context.Context, fn func(repo Repository) error) error
}
