package domain

// TaskStatus represents the current state of a task.
// Value object - immutable string enum.
type TaskStatus string

const (
	TaskStatusOpen          TaskStatus = "Open"
	TaskStatusWorking       TaskStatus = "Working"
	TaskStatusPendingReview TaskStatus = "Pending Review"
	TaskStatusCompleted     TaskStatus = "Completed"
	TaskStatusCancelled     TaskStatus = "Cancelled"
)

// IsUnfinished reports whether a task in this status still blocks cycle completion.
func (s TaskStatus) IsUnfinished() bool {
	return s == TaskStatusOpen || s == TaskStatusWorking || s == TaskStatusPendingReview
}

// IsInProgress reports whether the task counts as work in flight.
func (s TaskStatus) IsInProgress() bool {
	return s == TaskStatusWorking || s == TaskStatusPendingReview
}

// UnfinishedTaskStatuses lists the statuses that must be resolved before a cycle completes.
var UnfinishedTaskStatuses = []TaskStatus{TaskStatusOpen, TaskStatusWorking, TaskStatusPendingReview}

// TaskPriority represents the priority level of a task.
// Value object - immutable string enum.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
	TaskPriorityUrgent TaskPriority = "Urgent"
)

// TaskOrigin records who produced a task.
type TaskOrigin string

const (
	TaskOriginHuman TaskOrigin = "Human"
	TaskOriginAI    TaskOrigin = "AI"
)

// ExecutionMode selects how a project schedules work.
type ExecutionMode string

const (
	ExecutionModeKanban ExecutionMode = "Kanban"
	ExecutionModeScrum  ExecutionMode = "Scrum"
)

// CycleStatus is the lifecycle state of a cycle.
type CycleStatus string

const (
	CycleStatusPlanned   CycleStatus = "Planned"
	CycleStatusActive    CycleStatus = "Active"
	CycleStatusCompleted CycleStatus = "Completed"
	CycleStatusArchived  CycleStatus = "Archived"
)

// AssignmentStatus is the state of an assignment record.
type AssignmentStatus string

const (
	AssignmentStatusOpen      AssignmentStatus = "Open"
	AssignmentStatusClosed    AssignmentStatus = "Closed"
	AssignmentStatusCancelled AssignmentStatus = "Cancelled"
)

// RelationType classifies a link between two tasks.
type RelationType string

const (
	RelationBlocks      RelationType = "Blocks"
	RelationIsBlockedBy RelationType = "Is Blocked By"
	RelationRelatesTo   RelationType = "Relates To"
	RelationDuplicates  RelationType = "Duplicates"
)

// Reverse returns the relation stored on the target side, if the type has one.
func (r RelationType) Reverse() (RelationType, bool) {
	if r == RelationBlocks {
		return RelationIsBlockedBy, true
	}
	return "", false
}

// DraftSessionStatus tracks a drafting session through the pipeline.
type DraftSessionStatus string

const (
	DraftSessionDecomposing DraftSessionStatus = "Decomposing"
	DraftSessionBlocked     DraftSessionStatus = "Blocked"
	DraftSessionReviewing   DraftSessionStatus = "Reviewing"
	DraftSessionCompleted   DraftSessionStatus = "Completed"
)

// DraftStatus is the review state of a single draft.
type DraftStatus string

const (
	DraftStatusDraft    DraftStatus = "Draft"
	DraftStatusAccepted DraftStatus = "Accepted"
	DraftStatusRejected DraftStatus = "Rejected"
)

// Well-known user identifiers and roles.
const (
	AdministratorUserID = "Administrator"

	RoleSystemUser     = "System User"
	RoleProjectManager = "Project Manager"
)
