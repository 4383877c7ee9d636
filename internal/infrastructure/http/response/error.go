package response

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rezkam/atlas/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information. Details is never null.
type ErrorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []ErrorField `json:"details"`
}

// ErrorField describes a field-specific error.
type ErrorField struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// BadRequest sends a 400 Bad Request error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, "INVALID_REQUEST", message, http.StatusBadRequest)
}

// ValidationError sends a 400 validation error for one field.
func ValidationError(w http.ResponseWriter, field, issue string) {
	ValidationErrors(w, []ErrorField{{Field: field, Issue: issue}})
}

// ValidationErrors sends a 400 validation error with field details.
func ValidationErrors(w http.ResponseWriter, fields []ErrorField) {
	ErrorWithDetails(w, "VALIDATION_ERROR", "validation failed", http.StatusBadRequest, fields)
}

// NotFound sends a 404 Not Found error.
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, "NOT_FOUND", resource+" not found", http.StatusNotFound)
}

// Unauthorized sends a 401 Unauthorized error.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, "UNAUTHORIZED", message, http.StatusUnauthorized)
}

// Forbidden sends a 403 Forbidden error.
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, "FORBIDDEN", message, http.StatusForbidden)
}

// Conflict sends a 409 Conflict error.
func Conflict(w http.ResponseWriter, code, message string, details ...ErrorField) {
	ErrorWithDetails(w, code, message, http.StatusConflict, details)
}

// InternalError logs err and sends a generic 500 so internals never reach the client.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		slog.ErrorContext(r.Context(), "Internal server error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}
	Error(w, "INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError)
}

// Error sends an error response without details.
func Error(w http.ResponseWriter, code, message string, statusCode int) {
	ErrorWithDetails(w, code, message, statusCode, nil)
}

// ErrorWithDetails sends an error response.
func ErrorWithDetails(w http.ResponseWriter, code, message string, statusCode int, details []ErrorField) {
	if details == nil {
		details = []ErrorField{}
	}
	write(w, statusCode, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message, Details: details},
	})
}

// validationFields maps validation sentinels to the request field they concern.
var validationFields = []struct {
	err   error
	field string
}{
	{domain.ErrInvalidID, "id"},
	{domain.ErrSubjectRequired, "subject"},
	{domain.ErrSubjectTooLong, "subject"},
	{domain.ErrProjectNameRequired, "name"},
	{domain.ErrCycleNameRequired, "name"},
	{domain.ErrInvalidTaskStatus, "status"},
	{domain.ErrInvalidTaskPriority, "priority"},
	{domain.ErrInvalidExecutionMode, "execution_mode"},
	{domain.ErrInvalidCycleStatus, "status"},
	{domain.ErrInvalidRelationType, "type"},
	{domain.ErrInvalidWeight, "weight"},
	{domain.ErrInvalidDateRange, "start_date"},
	{domain.ErrActiveCycleDates, "end_date"},
	{domain.ErrMissingEndDate, "end_date"},
	{domain.ErrSelfRelation, "target_task_id"},
	{domain.ErrEmptyUpdateMask, "update_mask"},
	{domain.ErrUnknownField, "update_mask"},
	{domain.ErrPromptRequired, "prompt"},
	{domain.ErrInvalidTemplate, "template"},
	{domain.ErrInvalidAPIKeyFormat, "api_key"},
	{domain.ErrUnknownTaskType, "type"},
	{domain.ErrNotAContainer, "parent_task_id"},
	{domain.ErrDisallowedChildType, "type"},
	{domain.ErrHierarchyLoop, "parent_task_id"},
	{domain.ErrCycleProjectMismatch, "cycle_id"},
	{domain.ErrInvalidMoveTarget, "move_to"},
	{domain.ErrUnsupportedExecutionMode, "execution_mode"},
}

var notFoundResources = []struct {
	err      error
	resource string
}{
	{domain.ErrProjectNotFound, "project"},
	{domain.ErrTaskNotFound, "task"},
	{domain.ErrCycleNotFound, "cycle"},
	{domain.ErrTaskTypeNotFound, "task type"},
	{domain.ErrTemplateNotFound, "cycle template"},
	{domain.ErrSessionNotFound, "draft session"},
	{domain.ErrUserNotFound, "user"},
	{domain.ErrNotFound, "resource"},
}

var conflictCodes = []struct {
	err  error
	code string
}{
	{domain.ErrConflictingActiveCycle, "CONFLICTING_ACTIVE_CYCLE"},
	{domain.ErrOpenTasksRemain, "OPEN_TASKS_REMAIN"},
	{domain.ErrCycleConflict, "CYCLE_CONFLICT"},
	{domain.ErrCannotDeleteActive, "CANNOT_DELETE_ACTIVE"},
	{domain.ErrCannotDeleteCompleted, "CANNOT_DELETE_COMPLETED"},
	{domain.ErrTaskHasChildren, "TASK_HAS_CHILDREN"},
	{domain.ErrInvalidStateTransition, "INVALID_STATE_TRANSITION"},
	{domain.ErrActiveCycleBlocksModeChange, "ACTIVE_CYCLE"},
	{domain.ErrSessionNotReviewable, "SESSION_NOT_REVIEWABLE"},
	{domain.ErrAlreadyExists, "ALREADY_EXISTS"},
}

// FromDomainError maps domain errors to HTTP responses.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, c := range conflictCodes {
		if errors.Is(err, c.err) {
			Conflict(w, c.code, err.Error(), conflictDetails(err)...)
			return
		}
	}

	for _, v := range validationFields {
		if errors.Is(err, v.err) {
			ValidationError(w, v.field, v.err.Error())
			return
		}
	}

	for _, n := range notFoundResources {
		if errors.Is(err, n.err) {
			NotFound(w, n.resource)
			return
		}
	}

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		Unauthorized(w, "invalid or missing API key")
	case errors.Is(err, domain.ErrForbidden):
		Forbidden(w, "not allowed to perform this action")
	default:
		InternalError(w, r, err)
	}
}

func conflictDetails(err error) []ErrorField {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return []ErrorField{{Field: "conflicting_id", Issue: conflict.EntityID}}
	}
	var remain *domain.OpenTasksRemainError
	if errors.As(err, &remain) {
		return []ErrorField{{Field: "open_tasks", Issue: strconv.Itoa(remain.Count)}}
	}
	return nil
}
