package domain

import (
	"fmt"
	"strings"
)

// Subject is a validated task subject value object (1-255 characters).
type Subject struct {
	value string
}

// NewSubject creates a new Subject, validating the input.
func NewSubject(s string) (Subject, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return Subject{}, ErrSubjectRequired
	}

	if len(s) > 255 {
		return Subject{}, ErrSubjectTooLong
	}

	return Subject{value: s}, nil
}

// String returns the subject value.
func (t Subject) String() string {
	return t.value
}

// NewTaskStatus validates and creates a TaskStatus.
// Matching is case-insensitive; the canonical spelling is returned.
func NewTaskStatus(s string) (TaskStatus, error) {
	for _, status := range []TaskStatus{
		TaskStatusOpen, TaskStatusWorking, TaskStatusPendingReview,
		TaskStatusCompleted, TaskStatusCancelled,
	} {
		if strings.EqualFold(string(status), s) {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidTaskStatus, s)
}

// NewTaskPriority validates and creates a TaskPriority.
// Empty input defaults to Medium.
func NewTaskPriority(s string) (TaskPriority, error) {
	if s == "" {
		return TaskPriorityMedium, nil
	}

	for _, priority := range []TaskPriority{
		TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent,
	} {
		if strings.EqualFold(string(priority), s) {
			return priority, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidTaskPriority, s)
}

// NewExecutionMode validates and creates an ExecutionMode.
// Empty input defaults to Kanban.
func NewExecutionMode(s string) (ExecutionMode, error) {
	switch {
	case s == "":
		return ExecutionModeKanban, nil
	case strings.EqualFold(s, string(ExecutionModeKanban)):
		return ExecutionModeKanban, nil
	case strings.EqualFold(s, string(ExecutionModeScrum)):
		return ExecutionModeScrum, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidExecutionMode, s)
	}
}

// NewCycleStatus validates and creates a CycleStatus.
func NewCycleStatus(s string) (CycleStatus, error) {
	for _, status := range []CycleStatus{
		CycleStatusPlanned, CycleStatusActive, CycleStatusCompleted, CycleStatusArchived,
	} {
		if strings.EqualFold(string(status), s) {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidCycleStatus, s)
}

// NewRelationType validates and creates a RelationType.
func NewRelationType(s string) (RelationType, error) {
	for _, rel := range []RelationType{
		RelationBlocks, RelationIsBlockedBy, RelationRelatesTo, RelationDuplicates,
	} {
		if strings.EqualFold(string(rel), s) {
			return rel, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidRelationType, s)
}

// Weight is a validated story point estimate.
type Weight struct {
	value float64
}

// NewWeight rejects negative estimates.
func NewWeight(v float64) (Weight, error) {
	if v < 0 {
		return Weight{}, fmt.Errorf("%w: %v", ErrInvalidWeight, v)
	}
	return Weight{value: v}, nil
}

// Float64 returns the weight value.
func (w Weight) Float64() float64 {
	return w.value
}
