package domain

import (
	"errors"
	"fmt"
)

// Domain errors returned by repository implementations.

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidID indicates the provided ID format is invalid.
	ErrInvalidID = errors.New("invalid ID format")

	// ErrAlreadyExists indicates a unique constraint rejected the write.
	ErrAlreadyExists = errors.New("resource already exists")

	ErrProjectNotFound  = errors.New("project not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrCycleNotFound    = errors.New("cycle not found")
	ErrTaskTypeNotFound = errors.New("task type not found")
	ErrTemplateNotFound = errors.New("cycle template not found")
	ErrSessionNotFound  = errors.New("draft session not found")
	ErrUserNotFound     = errors.New("user not found")
)

// Authentication and authorization errors.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidAPIKeyFormat = errors.New("invalid API key format")
)

// Validation errors.
var (
	ErrSubjectRequired      = errors.New("subject is required")
	ErrSubjectTooLong       = errors.New("subject must be 255 characters or less")
	ErrProjectNameRequired  = errors.New("project name is required")
	ErrCycleNameRequired    = errors.New("cycle name is required")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrInvalidTaskPriority  = errors.New("invalid task priority")
	ErrInvalidExecutionMode = errors.New("invalid execution mode")
	ErrInvalidCycleStatus   = errors.New("invalid cycle status")
	ErrInvalidRelationType  = errors.New("invalid relation type")
	ErrInvalidWeight        = errors.New("weight must not be negative")
	ErrInvalidDateRange     = errors.New("start date must be on or before end date")
	ErrActiveCycleDates     = errors.New("an active cycle requires both start and end dates")
	ErrSelfRelation         = errors.New("a task cannot be related to itself")
	ErrEmptyUpdateMask      = errors.New("update mask is required")
	ErrUnknownField         = errors.New("unknown field in update mask")
	ErrPromptRequired       = errors.New("prompt is required")
	ErrInvalidTemplate      = errors.New("cycle template needs a positive duration and count")
)

// Task hierarchy errors. All are terminal; retrying the same write fails the same way.
var (
	// ErrNotAContainer: the parent's task type cannot hold children.
	ErrNotAContainer = errors.New("parent task type is not a container")

	// ErrDisallowedChildType: the parent's task type restricts children and this type is not allowed.
	ErrDisallowedChildType = errors.New("task type is not allowed under the parent task type")

	// ErrCycleConflict: the task targets a cycle other than the project's active cycle.
	ErrCycleConflict = errors.New("task cycle conflicts with the project's active cycle")

	ErrUnknownTaskType      = errors.New("unknown task type")
	ErrHierarchyLoop        = errors.New("task cannot be its own ancestor")
	ErrCycleProjectMismatch = errors.New("cycle belongs to a different project")
	ErrTaskHasChildren      = errors.New("task has child tasks")
)

// Cycle lifecycle errors.
var (
	ErrUnsupportedExecutionMode    = errors.New("cycles are only supported for Scrum projects")
	ErrInvalidStateTransition      = errors.New("invalid cycle state transition")
	ErrConflictingActiveCycle      = errors.New("another cycle is already active in this project")
	ErrMissingEndDate              = errors.New("end date is required to start a cycle")
	ErrOpenTasksRemain             = errors.New("unfinished tasks remain in cycle")
	ErrCannotDeleteActive          = errors.New("cannot delete an active cycle")
	ErrCannotDeleteCompleted       = errors.New("cannot delete a completed cycle")
	ErrInvalidMoveTarget           = errors.New("tasks can only move to another planned cycle of the same project")
	ErrActiveCycleBlocksModeChange = errors.New("complete the active cycle before leaving Scrum")
)

// Drafting errors.
var (
	ErrSessionNotReviewable = errors.New("draft session is not awaiting review")
)

// ConflictError is a conflict that names the entity it collided with.
// It unwraps to the sentinel in Err so callers can match with errors.Is.
type ConflictError struct {
	Err      error
	EntityID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.EntityID)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// NewConflictError wraps a conflict sentinel with the conflicting entity id.
func NewConflictError(err error, entityID string) error {
	return &ConflictError{Err: err, EntityID: entityID}
}

// OpenTasksRemainError reports how many unfinished tasks block completion.
type OpenTasksRemainError struct {
	Count int
}

func (e *OpenTasksRemainError) Error() string {
	return fmt.Sprintf("cannot complete cycle: %d unfinished tasks remain; choose a cycle to move them to", e.Count)
}

func (e *OpenTasksRemainError) Unwrap() error {
	return ErrOpenTasksRemain
}

// InvalidTransitionError names the attempted cycle transition.
type InvalidTransitionError struct {
	From CycleStatus
	To   CycleStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrInvalidStateTransition, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}
