package domain

import "time"

// ListTasksParams contains parameters for listing tasks with filtering and pagination.
//
// Common use cases:
//   - "Backlog of project X": ProjectID=X, BacklogOnly=true
//   - "Tasks in cycle Y": CycleID=Y
//   - "My open work": AssignedTo=me, Statuses=[Open, Working]
type ListTasksParams struct {
	// Optional filters (nil or empty = no filter applied)
	ProjectID    *string
	CycleID      *string
	ParentTaskID *string
	AssignedTo   *string
	Statuses     []TaskStatus

	// BacklogOnly keeps only open tasks that are not placed in any cycle.
	BacklogOnly bool

	// Pagination
	Limit  int
	Offset int
}

// PagedResult contains one page of rows and the total across pages.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int
	HasMore    bool
}

// ListProjectsParams contains pagination for project listing.
type ListProjectsParams struct {
	Limit  int
	Offset int
}

// SearchResult is one hit from global search.
type SearchResult struct {
	Kind  string // "task" or "project"
	ID    string
	Title string
}

// UpdateTaskParams contains parameters for updating a task with field mask support.
type UpdateTaskParams struct {
	TaskID string

	// UpdateMask specifies which fields to update.
	// Only fields in this list will be modified.
	UpdateMask []string

	// Field values (only applied if field is in UpdateMask).
	// A nil pointer on a nullable reference field clears it.
	Subject      *string
	Status       *TaskStatus
	Priority     *TaskPriority
	Weight       *float64
	ParentTaskID *string
	TypeID       *string
	CycleID      *string
}

// UpdateProjectParams contains parameters for updating a project with field mask support.
type UpdateProjectParams struct {
	ProjectID  string
	UpdateMask []string

	Name          *string
	ExecutionMode *ExecutionMode
}

// UpdateCycleParams edits a cycle's name and dates. Status is never edited here.
type UpdateCycleParams struct {
	CycleID    string
	UpdateMask []string

	Name      *string
	StartDate *time.Time
	EndDate   *time.Time
}

// Field names for task update masks.
const (
	FieldSubject    = "subject"
	FieldStatus     = "status"
	FieldPriority   = "priority"
	FieldWeight     = "weight"
	FieldParentTask = "parent_task"
	FieldType       = "type"
	FieldCycle      = "cycle"
)

// Field names for project and cycle update masks.
const (
	FieldName          = "name"
	FieldExecutionMode = "execution_mode"
	FieldStartDate     = "start_date"
	FieldEndDate       = "end_date"
)
